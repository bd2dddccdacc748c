package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/prudhvinik1/paymirror/internal/models"
	"github.com/prudhvinik1/paymirror/internal/remote"
	"github.com/prudhvinik1/paymirror/internal/repositories"
	syncengine "github.com/prudhvinik1/paymirror/internal/sync"
)

// ErrNoEventID means the envelope carries no remote event identifier, so
// there is nothing durable to record for it.
var ErrNoEventID = errors.New("envelope has no event id")

// Reconciler drives inbound event envelopes through the
// receive -> durable record -> canonical re-fetch -> resolve -> processed/failed
// state machine.
type Reconciler struct {
	events   repositories.EventRepository
	engine   *syncengine.Engine
	fetcher  remote.Fetcher
	handlers *HandlerRegistry
}

func NewReconciler(events repositories.EventRepository, engine *syncengine.Engine, fetcher remote.Fetcher, handlers *HandlerRegistry) *Reconciler {
	return &Reconciler{events: events, engine: engine, fetcher: fetcher, handlers: handlers}
}

// Receive records and processes one inbound envelope. Delivering the same
// event id twice is an idempotent no-op: the stored record is returned
// unchanged and no handler fires again. The durable receipt commits before
// processing starts, and processing failures are absorbed into the record's
// failed state so the transport can always acknowledge receipt.
func (r *Reconciler) Receive(ctx context.Context, envelope remote.RawObject, actx remote.AccountContext) (*models.EventRecord, error) {
	remoteID := envelope.ID()
	if remoteID == "" {
		return nil, ErrNoEventID
	}

	existing, err := r.events.GetByRemoteID(ctx, remoteID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	event, err := r.record(ctx, remoteID, envelope, actx)
	if errors.Is(err, repositories.ErrDuplicateEvent) {
		// Lost the insert race to a concurrent delivery of the same event.
		return r.events.GetByRemoteID(ctx, remoteID)
	}
	if err != nil {
		return nil, err
	}

	r.process(ctx, event, actx)
	return event, nil
}

func (r *Reconciler) record(ctx context.Context, remoteID string, envelope remote.RawObject, actx remote.AccountContext) (*models.EventRecord, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope %s: %w", remoteID, err)
	}

	eventType, _ := envelope["type"].(string)
	apiVersion, _ := envelope["api_version"].(string)
	livemode, ok := envelope["livemode"].(bool)
	if !ok {
		livemode = actx.Livemode
	}

	event := &models.EventRecord{
		RemoteID:   remoteID,
		Type:       eventType,
		APIVersion: apiVersion,
		AccountID:  actx.AccountID,
		Livemode:   livemode,
		Payload:    payload,
	}
	if err := r.events.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// process runs one processing attempt: re-fetch the affected object's
// canonical current state (the envelope only tells us which object changed,
// never what it now looks like) and resolve it into the local store. The
// stored state after processing is the object's remote state as of fetch
// time; a late-processed event whose fetch races behind a newer write can
// overwrite it with staler data, which is inherent to re-fetch-based
// reconciliation and deliberately not special-cased. The object write and
// the processed/failed bookkeeping also commit as separate statements, so a
// crash between them leaves a synced object with an unprocessed receipt;
// ReprocessStalled converges those, and re-running processing is idempotent.
func (r *Reconciler) process(ctx context.Context, event *models.EventRecord, actx remote.AccountContext) {
	kind, objectID, err := affectedObject(event)
	if err == nil {
		if isDeletion(event) {
			// The provider no longer serves the object; a re-fetch would
			// only 404. Drop the local record instead.
			err = r.engine.Delete(ctx, kind, objectID, actx)
		} else {
			err = r.reconcileObject(ctx, kind, objectID, actx)
		}
	}

	if err != nil {
		log.Printf("event %s processing failed: %v", event.RemoteID, err)
		if markErr := r.events.MarkFailed(ctx, event, err.Error()); markErr != nil {
			log.Printf("failed to record failure for event %s: %v", event.RemoteID, markErr)
		}
		return
	}

	if err := r.events.MarkProcessed(ctx, event); err != nil {
		log.Printf("failed to mark event %s processed: %v", event.RemoteID, err)
		return
	}
	// Strictly after the processed state committed.
	r.handlers.Dispatch(event)
}

func (r *Reconciler) reconcileObject(ctx context.Context, kind, objectID string, actx remote.AccountContext) error {
	canonical, err := r.fetcher.Fetch(ctx, kind, objectID, actx)
	if err != nil {
		return err
	}
	_, err = r.engine.ResolveAndUpsert(ctx, kind, canonical, actx)
	return err
}

// Reprocess re-runs processing for an already-recorded event. Safe to call
// repeatedly: each attempt re-fetches canonical state rather than replaying
// the stale original payload. Already-processed events are returned as-is.
func (r *Reconciler) Reprocess(ctx context.Context, remoteID string, actx remote.AccountContext) (*models.EventRecord, error) {
	event, err := r.events.GetByRemoteID(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	if event.Processed {
		return event, nil
	}
	r.process(ctx, event, actx)
	return event, nil
}

// ReprocessFailed sweeps every failed event for the account through another
// processing attempt. Returns how many transitioned to processed.
func (r *Reconciler) ReprocessFailed(ctx context.Context, actx remote.AccountContext) (int, error) {
	failed, err := r.events.ListFailed(ctx, actx.AccountID)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, event := range failed {
		r.process(ctx, event, actx)
		if event.Processed {
			recovered++
		}
	}
	return recovered, nil
}

// ReprocessStalled sweeps receipts whose processing never ran to completion:
// processed is false but no failure was recorded, as left behind by a crash
// between the durable receipt and the bookkeeping. Receipts younger than the
// grace window are skipped so in-flight deliveries are not raced. Returns
// how many transitioned to processed.
func (r *Reconciler) ReprocessStalled(ctx context.Context, grace time.Duration, actx remote.AccountContext) (int, error) {
	stalled, err := r.events.ListStalled(ctx, actx.AccountID, time.Now().Add(-grace))
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, event := range stalled {
		r.process(ctx, event, actx)
		if event.Processed {
			recovered++
		}
	}
	return recovered, nil
}

// isDeletion reports whether the event's verb is a hard deletion, e.g.
// "customer.deleted".
func isDeletion(event *models.EventRecord) bool {
	parts := event.Parts()
	return parts[len(parts)-1] == "deleted"
}

// affectedObject extracts the kind and id of the event's primarily affected
// object from the stored envelope.
func affectedObject(event *models.EventRecord) (kind, objectID string, err error) {
	var envelope struct {
		Data struct {
			Object map[string]interface{} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return "", "", fmt.Errorf("malformed envelope payload: %w", err)
	}

	obj := remote.RawObject(envelope.Data.Object)
	kind = obj.ObjectName()
	objectID = obj.ID()
	if kind == "" || objectID == "" {
		return "", "", fmt.Errorf("envelope data carries no object kind/id")
	}
	return kind, objectID, nil
}
