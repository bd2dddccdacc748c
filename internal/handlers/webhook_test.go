package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prudhvinik1/paymirror/internal/events"
	"github.com/prudhvinik1/paymirror/internal/models"
	"github.com/prudhvinik1/paymirror/internal/registry"
	"github.com/prudhvinik1/paymirror/internal/remote"
	"github.com/prudhvinik1/paymirror/internal/repositories"
	syncengine "github.com/prudhvinik1/paymirror/internal/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memEvents struct {
	byID map[string]*models.EventRecord
}

func (m *memEvents) GetByRemoteID(ctx context.Context, remoteID string) (*models.EventRecord, error) {
	event, ok := m.byID[remoteID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return event, nil
}

func (m *memEvents) Create(ctx context.Context, event *models.EventRecord) error {
	if _, ok := m.byID[event.RemoteID]; ok {
		return repositories.ErrDuplicateEvent
	}
	event.ID = int64(len(m.byID) + 1)
	event.CreatedAt = time.Now().UTC()
	m.byID[event.RemoteID] = event
	return nil
}

func (m *memEvents) MarkProcessed(ctx context.Context, event *models.EventRecord) error {
	now := time.Now().UTC()
	event.Processed = true
	event.ProcessedAt = &now
	event.Failure = ""
	return nil
}

func (m *memEvents) MarkFailed(ctx context.Context, event *models.EventRecord, failure string) error {
	event.Processed = false
	event.Failure = failure
	return nil
}

func (m *memEvents) ListFailed(ctx context.Context, accountID string) ([]*models.EventRecord, error) {
	return nil, nil
}

func (m *memEvents) ListStalled(ctx context.Context, accountID string, before time.Time) ([]*models.EventRecord, error) {
	return nil, nil
}

type memStore struct {
	records map[string]*models.RemoteObject
}

func (s *memStore) GetByRemoteID(ctx context.Context, desc *registry.Descriptor, accountID, remoteID string) (*models.RemoteObject, error) {
	obj, ok := s.records[desc.Table+"|"+remoteID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return obj, nil
}

func (s *memStore) Upsert(ctx context.Context, desc *registry.Descriptor, obj *models.RemoteObject) error {
	s.records[desc.Table+"|"+obj.RemoteID] = obj
	return nil
}

func (s *memStore) SetRelation(ctx context.Context, desc *registry.Descriptor, accountID, remoteID, column, targetRemoteID string) error {
	obj, ok := s.records[desc.Table+"|"+remoteID]
	if !ok {
		return repositories.ErrNotFound
	}
	obj.Relations[column] = targetRemoteID
	return nil
}

func (s *memStore) Delete(ctx context.Context, desc *registry.Descriptor, accountID, remoteID string) error {
	delete(s.records, desc.Table+"|"+remoteID)
	return nil
}

type cannedFetcher struct {
	objects map[string]remote.RawObject
}

func (f *cannedFetcher) Fetch(ctx context.Context, kind, remoteID string, actx remote.AccountContext) (remote.RawObject, error) {
	obj, ok := f.objects[kind+":"+remoteID]
	if !ok {
		return nil, &remote.NotFoundError{Kind: kind, RemoteID: remoteID}
	}
	return obj, nil
}

func (f *cannedFetcher) FetchPage(ctx context.Context, kind string, filters map[string]string, startingAfter string, actx remote.AccountContext) (*remote.ListPage, error) {
	return &remote.ListPage{}, nil
}

func newTestHandler(fetcher *cannedFetcher) *WebhookHandler {
	account := remote.AccountContext{AccountID: "acct_test"}
	engine := syncengine.NewEngine(
		registry.NewBuiltinRegistry(),
		&memStore{records: make(map[string]*models.RemoteObject)},
		fetcher,
	)
	reconciler := events.NewReconciler(
		&memEvents{byID: make(map[string]*models.EventRecord)},
		engine,
		fetcher,
		events.NewHandlerRegistry(),
	)
	return NewWebhookHandler(reconciler, account)
}

const customerEventBody = `{
	"id": "evt_1",
	"object": "event",
	"type": "customer.updated",
	"livemode": false,
	"data": {"object": {"id": "cus_1", "object": "customer"}}
}`

func TestWebhookHandler_AcknowledgesProcessedEvent(t *testing.T) {
	fetcher := &cannedFetcher{objects: map[string]remote.RawObject{
		"customer:cus_1": {"id": "cus_1", "object": "customer"},
	}}
	handler := newTestHandler(fetcher)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(customerEventBody))
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

// Processing failures still acknowledge with 200: the receipt is durable and
// a retry would only redeliver an event we already hold.
func TestWebhookHandler_AcknowledgesFailedProcessing(t *testing.T) {
	fetcher := &cannedFetcher{objects: map[string]remote.RawObject{}}
	handler := newTestHandler(fetcher)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(customerEventBody))
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "received; processing failed", rec.Body.String())
}

func TestWebhookHandler_RejectsMissingEventID(t *testing.T) {
	handler := newTestHandler(&cannedFetcher{objects: map[string]remote.RawObject{}})

	body := `{"object": "event", "type": "customer.updated"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookHandler_RejectsInvalidJSON(t *testing.T) {
	handler := newTestHandler(&cannedFetcher{objects: map[string]remote.RawObject{}})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
