package repositories

import (
	"context"
	"time"

	"github.com/prudhvinik1/paymirror/internal/models"
	"github.com/prudhvinik1/paymirror/internal/registry"
)

type ObjectRepository interface {
	GetByRemoteID(ctx context.Context, desc *registry.Descriptor, accountID, remoteID string) (*models.RemoteObject, error)
	// Upsert inserts or fully replaces the record keyed by
	// (account_id, remote_id) in a single atomic statement. Insert-only kinds
	// are never updated; a conflicting insert is a no-op that returns the
	// already-stored row's identity.
	Upsert(ctx context.Context, desc *registry.Descriptor, obj *models.RemoteObject) error
	// SetRelation backfills one relation column after its target exists.
	SetRelation(ctx context.Context, desc *registry.Descriptor, accountID, remoteID, column, targetRemoteID string) error
	// Delete removes a record after the provider reports hard deletion.
	Delete(ctx context.Context, desc *registry.Descriptor, accountID, remoteID string) error
}

type EventRepository interface {
	GetByRemoteID(ctx context.Context, remoteID string) (*models.EventRecord, error)
	// Create persists the durable receipt. Returns ErrDuplicateEvent when a
	// record with the same remote event id already exists.
	Create(ctx context.Context, event *models.EventRecord) error
	MarkProcessed(ctx context.Context, event *models.EventRecord) error
	MarkFailed(ctx context.Context, event *models.EventRecord, failure string) error
	ListFailed(ctx context.Context, accountID string) ([]*models.EventRecord, error)
	// ListStalled returns unprocessed receipts with no recorded failure
	// created before the cutoff, i.e. events whose processing never ran to
	// completion.
	ListStalled(ctx context.Context, accountID string, before time.Time) ([]*models.EventRecord, error)
}
