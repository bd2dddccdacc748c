package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/paymirror/internal/models"
)

// ErrDuplicateEvent is returned when an event with the same remote id was
// already durably recorded.
var ErrDuplicateEvent = errors.New("event already recorded")

const uniqueViolation = "23505"

type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

const eventColumns = `id, remote_id, type, api_version, account_id, livemode,
	payload, processed, processed_at, failure, created_at, updated_at`

func (r *PostgresEventRepository) GetByRemoteID(ctx context.Context, remoteID string) (*models.EventRecord, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE remote_id = $1`

	event, err := scanEvent(r.pool.QueryRow(ctx, query, remoteID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", remoteID, err)
	}
	return event, nil
}

// Create commits the receipt in its own statement, before any processing
// side effect runs. A concurrent duplicate delivery loses the unique-index
// race and surfaces as ErrDuplicateEvent.
func (r *PostgresEventRepository) Create(ctx context.Context, event *models.EventRecord) error {
	query := `INSERT INTO events (remote_id, type, api_version, account_id, livemode, payload, processed)
	          VALUES ($1, $2, $3, $4, $5, $6, false)
	          RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		event.RemoteID,
		event.Type,
		event.APIVersion,
		event.AccountID,
		event.Livemode,
		event.Payload,
	).Scan(&event.ID, &event.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEvent
	}
	if err != nil {
		return fmt.Errorf("failed to create event %s: %w", event.RemoteID, err)
	}
	return nil
}

func (r *PostgresEventRepository) MarkProcessed(ctx context.Context, event *models.EventRecord) error {
	query := `UPDATE events
	          SET processed = true, processed_at = NOW(), failure = '', updated_at = NOW()
	          WHERE id = $1
	          RETURNING processed_at, updated_at`

	err := r.pool.QueryRow(ctx, query, event.ID).Scan(&event.ProcessedAt, &event.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to mark event %s processed: %w", event.RemoteID, err)
	}
	event.Processed = true
	event.Failure = ""
	return nil
}

func (r *PostgresEventRepository) MarkFailed(ctx context.Context, event *models.EventRecord, failure string) error {
	query := `UPDATE events
	          SET processed = false, failure = $1, updated_at = NOW()
	          WHERE id = $2
	          RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, failure, event.ID).Scan(&event.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to mark event %s failed: %w", event.RemoteID, err)
	}
	event.Processed = false
	event.Failure = failure
	return nil
}

func (r *PostgresEventRepository) ListFailed(ctx context.Context, accountID string) ([]*models.EventRecord, error) {
	query := `SELECT ` + eventColumns + `
	          FROM events
	          WHERE account_id = $1 AND processed = false AND failure <> ''
	          ORDER BY created_at ASC`
	return r.queryEvents(ctx, query, accountID)
}

// ListStalled picks up receipts a crash left behind: committed but neither
// processed nor failed. The cutoff keeps in-flight deliveries out of the
// result.
func (r *PostgresEventRepository) ListStalled(ctx context.Context, accountID string, before time.Time) ([]*models.EventRecord, error) {
	query := `SELECT ` + eventColumns + `
	          FROM events
	          WHERE account_id = $1 AND processed = false AND failure = '' AND created_at < $2
	          ORDER BY created_at ASC`
	return r.queryEvents(ctx, query, accountID, before)
}

func (r *PostgresEventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*models.EventRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.EventRecord
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (*models.EventRecord, error) {
	var event models.EventRecord
	err := row.Scan(
		&event.ID,
		&event.RemoteID,
		&event.Type,
		&event.APIVersion,
		&event.AccountID,
		&event.Livemode,
		&event.Payload,
		&event.Processed,
		&event.ProcessedAt,
		&event.Failure,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
