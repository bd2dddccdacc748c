package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prudhvinik1/paymirror/internal/models"
	"github.com/prudhvinik1/paymirror/internal/registry"
	"github.com/prudhvinik1/paymirror/internal/remote"
	"github.com/prudhvinik1/paymirror/internal/repositories"
)

// TokenSource hands out idempotency tokens for outbound mutating calls.
// Retries of the same logical action (same correlation key) get the same
// token back.
type TokenSource interface {
	TokenFor(ctx context.Context, kind, action string, livemode bool, correlationKey string) (string, error)
}

// Engine turns raw provider representations into persisted local records.
// It owns the upsert path and the recursive relation resolution that keeps
// foreign keys pointing at materialized records.
type Engine struct {
	registry *registry.Registry
	objects  repositories.ObjectRepository
	fetcher  remote.Fetcher
	creator  remote.Creator
	tokens   TokenSource
}

func NewEngine(reg *registry.Registry, objects repositories.ObjectRepository, fetcher remote.Fetcher) *Engine {
	return &Engine{registry: reg, objects: objects, fetcher: fetcher}
}

// WithCreator enables EnsureRemote, attaching the mutating-call boundary and
// the idempotency token source it requires.
func (e *Engine) WithCreator(creator remote.Creator, tokens TokenSource) *Engine {
	e.creator = creator
	e.tokens = tokens
	return e
}

// Upsert creates or fully replaces the local record for one raw object,
// keyed by its remote id, without touching relation fields. Calling it twice
// with identical data is idempotent; concurrent calls for the same remote id
// serialize on the store's unique-conflict handling.
func (e *Engine) Upsert(ctx context.Context, kind string, raw remote.RawObject, actx remote.AccountContext) (*models.RemoteObject, error) {
	desc, err := e.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	return e.upsert(ctx, desc, raw, nil, actx)
}

func (e *Engine) upsert(ctx context.Context, desc *registry.Descriptor, raw remote.RawObject, relations map[string]string, actx remote.AccountContext) (*models.RemoteObject, error) {
	remoteID := raw.ID()
	if remoteID == "" {
		return nil, &SyncError{Kind: desc.Kind, Err: errors.New("raw data has no id")}
	}

	fields, err := registry.RecordFromRaw(desc, raw)
	if err != nil {
		return nil, &SyncError{Kind: desc.Kind, RemoteID: remoteID, Err: err}
	}
	snapshot, err := json.Marshal(raw)
	if err != nil {
		return nil, &SyncError{Kind: desc.Kind, RemoteID: remoteID, Err: err}
	}

	obj := &models.RemoteObject{
		Kind:      desc.Kind,
		RemoteID:  remoteID,
		AccountID: actx.AccountID,
		Livemode:  rawLivemode(raw, actx),
		Fields:    fields,
		Relations: relations,
		RawData:   snapshot,
	}
	if obj.Relations == nil {
		obj.Relations = make(map[string]string)
	}

	if err := e.objects.Upsert(ctx, desc, obj); err != nil {
		return nil, &SyncError{Kind: desc.Kind, RemoteID: remoteID, Err: err}
	}
	return obj, nil
}

// resolution is the bookkeeping for one top-level ResolveAndUpsert call.
// inFlight prevents infinite recursion on cyclic graphs; done records which
// objects this pass has already materialized so repeated references are not
// re-upserted; pending holds relation columns that must be backfilled once
// their in-flight target exists.
type resolution struct {
	inFlight map[string]bool
	done     map[string]bool
	pending  []pendingRelation
}

type pendingRelation struct {
	ownerDesc *registry.Descriptor
	ownerID   string
	column    string
	targetKey string
	targetID  string
}

func objectKey(kind, remoteID string) string {
	return kind + ":" + remoteID
}

// ResolveAndUpsert is the main sync entry point: it walks the raw object's
// relation fields, materializes every dependency bottom-up, then upserts the
// object itself with its foreign keys set. Cyclic references terminate via a
// two-pass insert-then-backfill. Resolving the same object twice in sequence
// is idempotent and creates no duplicate dependencies.
func (e *Engine) ResolveAndUpsert(ctx context.Context, kind string, raw remote.RawObject, actx remote.AccountContext) (*models.RemoteObject, error) {
	res := &resolution{
		inFlight: make(map[string]bool),
		done:     make(map[string]bool),
	}
	obj, err := e.resolve(ctx, res, kind, raw, actx)
	if err != nil {
		return nil, err
	}
	if len(res.pending) > 0 {
		// Every in-flight object has been upserted by now, so an undrained
		// backfill means its target never materialized.
		p := res.pending[0]
		return nil, &DependencyError{
			Kind:     p.ownerDesc.Kind,
			RemoteID: p.ownerID,
			Err:      fmt.Errorf("relation %s target %s never materialized", p.column, p.targetKey),
		}
	}
	return obj, nil
}

func (e *Engine) resolve(ctx context.Context, res *resolution, kind string, raw remote.RawObject, actx remote.AccountContext) (*models.RemoteObject, error) {
	desc, err := e.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	remoteID := raw.ID()
	if remoteID == "" {
		return nil, &SyncError{Kind: kind, Err: errors.New("raw data has no id")}
	}
	key := objectKey(kind, remoteID)
	res.inFlight[key] = true

	relations := make(map[string]string, len(desc.Relations))
	for _, rel := range desc.Relations {
		targetID, err := e.resolveRelation(ctx, res, desc, remoteID, rel, raw[rel.SourceKey], actx)
		if err != nil {
			return nil, err
		}
		relations[rel.Column] = targetID
	}

	obj, err := e.upsert(ctx, desc, raw, relations, actx)
	if err != nil {
		return nil, err
	}
	res.done[key] = true

	// Backfill relations that were deferred because this object was still
	// in flight when a dependency referenced it.
	remaining := res.pending[:0]
	for _, p := range res.pending {
		if p.targetKey != key {
			remaining = append(remaining, p)
			continue
		}
		if err := e.objects.SetRelation(ctx, p.ownerDesc, actx.AccountID, p.ownerID, p.column, p.targetID); err != nil {
			return nil, &SyncError{Kind: p.ownerDesc.Kind, RemoteID: p.ownerID, Err: err}
		}
	}
	res.pending = remaining

	return obj, nil
}

// resolveRelation materializes one relation field's target and returns the
// remote id the owner's foreign key should hold ("" when the relation is
// absent or deferred to backfill).
func (e *Engine) resolveRelation(ctx context.Context, res *resolution, ownerDesc *registry.Descriptor, ownerID string, rel registry.RelationSpec, rawValue interface{}, actx remote.AccountContext) (string, error) {
	targetID := remote.IDFromValue(rawValue)
	if targetID == "" {
		return "", nil
	}

	targetKey := objectKey(rel.TargetKind, targetID)
	if res.done[targetKey] {
		// Already materialized by this pass (e.g. a sibling referenced it).
		return targetID, nil
	}
	if res.inFlight[targetKey] {
		// Cycle: the target is an ancestor of this resolution. Leave the
		// foreign key null for now and fill it once the target's upsert
		// completes.
		res.pending = append(res.pending, pendingRelation{
			ownerDesc: ownerDesc,
			ownerID:   ownerID,
			column:    rel.Column,
			targetKey: targetKey,
			targetID:  targetID,
		})
		return "", nil
	}

	targetDesc, err := e.registry.Lookup(rel.TargetKind)
	if err != nil {
		return "", err
	}

	targetData := remote.EmbeddedObject(rawValue)
	if targetData == nil {
		// Identifier-only reference. Immutable kinds already mirrored locally
		// are trusted as-is; everything else is re-fetched for canonical
		// current state rather than trusting possibly-stale context.
		if targetDesc.Immutable {
			if _, err := e.objects.GetByRemoteID(ctx, targetDesc, actx.AccountID, targetID); err == nil {
				return targetID, nil
			} else if !errors.Is(err, repositories.ErrNotFound) {
				return "", &DependencyError{Kind: rel.TargetKind, RemoteID: targetID, Err: err}
			}
		}
		targetData, err = e.fetcher.Fetch(ctx, rel.TargetKind, targetID, actx)
		if err != nil {
			return "", &DependencyError{Kind: rel.TargetKind, RemoteID: targetID, Err: err}
		}
	}

	if _, err := e.resolve(ctx, res, rel.TargetKind, targetData, actx); err != nil {
		var depErr *DependencyError
		if errors.As(err, &depErr) {
			return "", err
		}
		return "", &DependencyError{Kind: rel.TargetKind, RemoteID: targetID, Err: err}
	}
	return targetID, nil
}

// Delete removes the local record for an object the provider reports as
// hard-deleted. A missing local record is not an error; deletion is
// idempotent under redelivery.
func (e *Engine) Delete(ctx context.Context, kind, remoteID string, actx remote.AccountContext) error {
	desc, err := e.registry.Lookup(kind)
	if err != nil {
		return err
	}
	err = e.objects.Delete(ctx, desc, actx.AccountID, remoteID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &SyncError{Kind: kind, RemoteID: remoteID, Err: err}
	}
	return nil
}

// Sync fetches an object's canonical state and resolves it into the local
// store. It is the manual entry point used by operator tooling; failures
// propagate directly since there is no event receipt to protect.
func (e *Engine) Sync(ctx context.Context, kind, remoteID string, actx remote.AccountContext) (*models.RemoteObject, error) {
	if _, err := e.registry.Lookup(kind); err != nil {
		return nil, err
	}
	raw, err := e.fetcher.Fetch(ctx, kind, remoteID, actx)
	if err != nil {
		return nil, err
	}
	return e.ResolveAndUpsert(ctx, kind, raw, actx)
}

// SyncAll walks the provider's paginated list of a kind and resolves every
// object. Returns the number of objects synced.
func (e *Engine) SyncAll(ctx context.Context, kind string, filters map[string]string, actx remote.AccountContext) (int, error) {
	if _, err := e.registry.Lookup(kind); err != nil {
		return 0, err
	}

	count := 0
	it := remote.List(e.fetcher, kind, filters, actx)
	for it.Next(ctx) {
		if _, err := e.ResolveAndUpsert(ctx, kind, it.Object(), actx); err != nil {
			return count, err
		}
		count++
	}
	if err := it.Err(); err != nil {
		return count, err
	}
	return count, nil
}

// EnsureRemote returns the local record for the given remote id, creating
// the object on the provider first when it exists nowhere. The creation call
// carries an idempotency token keyed by correlationKey, so retrying the same
// logical action cannot create the object twice remotely.
func (e *Engine) EnsureRemote(ctx context.Context, kind, remoteID string, params map[string]string, correlationKey string, actx remote.AccountContext) (*models.RemoteObject, error) {
	desc, err := e.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if e.creator == nil || e.tokens == nil {
		return nil, fmt.Errorf("engine has no creator configured for %s", kind)
	}

	if remoteID != "" {
		if obj, err := e.objects.GetByRemoteID(ctx, desc, actx.AccountID, remoteID); err == nil {
			return obj, nil
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}

		raw, err := e.fetcher.Fetch(ctx, kind, remoteID, actx)
		if err == nil {
			return e.ResolveAndUpsert(ctx, kind, raw, actx)
		}
		var notFound *remote.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	token, err := e.tokens.TokenFor(ctx, kind, "create", actx.Livemode, correlationKey)
	if err != nil {
		return nil, err
	}
	raw, err := e.creator.Create(ctx, kind, params, token, actx)
	if err != nil {
		return nil, err
	}
	return e.ResolveAndUpsert(ctx, kind, raw, actx)
}

func rawLivemode(raw remote.RawObject, actx remote.AccountContext) bool {
	if live, ok := raw["livemode"].(bool); ok {
		return live
	}
	return actx.Livemode
}
