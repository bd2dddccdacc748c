package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// HTTPClient is the provider API implementation of Fetcher and Creator.
type HTTPClient struct {
	baseURL           string
	idempotencyHeader string
	client            *http.Client
}

// NewHTTPClient returns a client rooted at baseURL. idempotencyHeader is the
// configured header name idempotency tokens are sent under on create calls.
func NewHTTPClient(baseURL, idempotencyHeader string) *HTTPClient {
	return &HTTPClient{
		baseURL:           strings.TrimRight(baseURL, "/"),
		idempotencyHeader: idempotencyHeader,
		client:            &http.Client{Timeout: defaultTimeout},
	}
}

func (c *HTTPClient) Fetch(ctx context.Context, kind, remoteID string, actx AccountContext) (RawObject, error) {
	endpoint := fmt.Sprintf("%s/v1/%ss/%s", c.baseURL, kind, url.PathEscape(remoteID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Kind: kind, RemoteID: remoteID, Err: err}
	}
	return c.do(req, kind, remoteID, actx)
}

func (c *HTTPClient) FetchPage(ctx context.Context, kind string, filters map[string]string, startingAfter string, actx AccountContext) (*ListPage, error) {
	query := url.Values{}
	for k, v := range filters {
		query.Set(k, v)
	}
	if startingAfter != "" {
		query.Set("starting_after", startingAfter)
	}
	endpoint := fmt.Sprintf("%s/v1/%ss?%s", c.baseURL, kind, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Kind: kind, Err: err}
	}
	body, err := c.do(req, kind, "", actx)
	if err != nil {
		return nil, err
	}

	page := &ListPage{}
	if more, ok := body["has_more"].(bool); ok {
		page.HasMore = more
	}
	items, _ := body["data"].([]interface{})
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			page.Objects = append(page.Objects, RawObject(obj))
		}
	}
	return page, nil
}

func (c *HTTPClient) Create(ctx context.Context, kind string, params map[string]string, idempotencyToken string, actx AccountContext) (RawObject, error) {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	endpoint := fmt.Sprintf("%s/v1/%ss", c.baseURL, kind)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &FetchError{Kind: kind, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyToken != "" {
		req.Header.Set(c.idempotencyHeader, idempotencyToken)
	}
	return c.do(req, kind, "", actx)
}

func (c *HTTPClient) do(req *http.Request, kind, remoteID string, actx AccountContext) (RawObject, error) {
	req.Header.Set("Authorization", "Bearer "+actx.APIKey)
	if actx.APIVersion != "" {
		req.Header.Set("X-API-Version", actx.APIVersion)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: kind, RemoteID: remoteID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Kind: kind, RemoteID: remoteID}
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{
			Kind:     kind,
			RemoteID: remoteID,
			Err:      fmt.Errorf("provider returned %d: %s", resp.StatusCode, string(body)),
		}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var obj RawObject
	if err := dec.Decode(&obj); err != nil {
		return nil, &FetchError{Kind: kind, RemoteID: remoteID, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return obj, nil
}
