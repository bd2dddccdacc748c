package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/prudhvinik1/paymirror/internal/events"
	"github.com/prudhvinik1/paymirror/internal/remote"
)

// WebhookHandler is the inbound receipt endpoint. Payloads arrive already
// signature-verified by the transport in front of this service; this handler
// only decodes the envelope and hands it to the reconciler.
type WebhookHandler struct {
	reconciler *events.Reconciler
	account    remote.AccountContext
}

func NewWebhookHandler(reconciler *events.Reconciler, account remote.AccountContext) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, account: account}
}

// Handle acknowledges receipt with 200 whenever the event was durably
// recorded, even when processing failed. A non-2xx would make the provider
// retry transport delivery of an event we already hold. 400 is reserved for
// envelopes with no event id, where there is nothing durable to protect.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var envelope remote.RawObject
	if err := dec.Decode(&envelope); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	event, err := h.reconciler.Receive(r.Context(), envelope, h.account)
	if errors.Is(err, events.ErrNoEventID) {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}
	if err != nil {
		// Receipt itself failed; nothing durable exists yet, so let the
		// provider retry delivery.
		log.Printf("webhook receipt failed: %v", err)
		http.Error(w, "receipt failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if event.Failed() {
		w.Write([]byte("received; processing failed"))
		return
	}
	w.Write([]byte("OK"))
}
