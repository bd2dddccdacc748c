package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/paymirror/internal/models"
	"github.com/prudhvinik1/paymirror/internal/registry"
)

var ErrNotFound = errors.New("not found")

// PostgresObjectRepository persists mirrored objects into their per-kind
// tables. SQL is built from the kind's descriptor, so adding a kind is a
// registry entry plus a migration, not new repository code.
type PostgresObjectRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresObjectRepository(pool *pgxpool.Pool) *PostgresObjectRepository {
	return &PostgresObjectRepository{pool: pool}
}

func (r *PostgresObjectRepository) GetByRemoteID(ctx context.Context, desc *registry.Descriptor, accountID, remoteID string) (*models.RemoteObject, error) {
	cols := []string{"id", "remote_id", "account_id", "livemode", "raw_data", "created_at", "updated_at"}
	for _, spec := range desc.Fields {
		cols = append(cols, spec.Column)
	}
	for _, rel := range desc.Relations {
		cols = append(cols, rel.Column)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE account_id = $1 AND remote_id = $2`,
		strings.Join(cols, ", "), desc.Table,
	)

	obj := &models.RemoteObject{
		Kind:      desc.Kind,
		Fields:    make(map[string]interface{}, len(desc.Fields)),
		Relations: make(map[string]string, len(desc.Relations)),
	}
	dest := []interface{}{
		&obj.ID, &obj.RemoteID, &obj.AccountID, &obj.Livemode,
		&obj.RawData, &obj.CreatedAt, &obj.UpdatedAt,
	}
	fieldVals := make([]interface{}, len(desc.Fields))
	for i := range desc.Fields {
		dest = append(dest, &fieldVals[i])
	}
	relVals := make([]*string, len(desc.Relations))
	for i := range desc.Relations {
		dest = append(dest, &relVals[i])
	}

	err := r.pool.QueryRow(ctx, query, accountID, remoteID).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", desc.Kind, remoteID, err)
	}

	for i, spec := range desc.Fields {
		obj.Fields[spec.Column] = fieldVals[i]
	}
	for i, rel := range desc.Relations {
		if relVals[i] != nil {
			obj.Relations[rel.Column] = *relVals[i]
		}
	}
	return obj, nil
}

// Upsert writes the record with a single INSERT ... ON CONFLICT statement.
// The atomic conflict clause is what serializes concurrent upserts of the
// same remote id across processes; there is no select-then-branch race and
// no application-level lock.
func (r *PostgresObjectRepository) Upsert(ctx context.Context, desc *registry.Descriptor, obj *models.RemoteObject) error {
	cols := []string{"remote_id", "account_id", "livemode", "raw_data"}
	args := []interface{}{obj.RemoteID, obj.AccountID, obj.Livemode, obj.RawData}

	for _, spec := range desc.Fields {
		cols = append(cols, spec.Column)
		args = append(args, obj.Fields[spec.Column])
	}
	for _, rel := range desc.Relations {
		cols = append(cols, rel.Column)
		args = append(args, nullableID(obj.Relations[rel.Column]))
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var conflict string
	if desc.InsertOnly {
		conflict = "DO NOTHING"
	} else {
		assignments := make([]string, 0, len(cols))
		// Full replace, not merge: every declared column tracks the latest
		// snapshot so dedicated fields never diverge from raw_data.
		for _, col := range cols[2:] {
			assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
		assignments = append(assignments, "updated_at = NOW()")
		conflict = "DO UPDATE SET " + strings.Join(assignments, ", ")
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)
		 ON CONFLICT (account_id, remote_id) %s
		 RETURNING id, created_at, updated_at`,
		desc.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), conflict,
	)

	err := r.pool.QueryRow(ctx, query, args...).Scan(&obj.ID, &obj.CreatedAt, &obj.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Insert-only kind already present; DO NOTHING returns no row.
		// Reload its identity so the caller still gets a populated record.
		existing, getErr := r.GetByRemoteID(ctx, desc, obj.AccountID, obj.RemoteID)
		if getErr != nil {
			return fmt.Errorf("failed to reload %s %s after conflict: %w", desc.Kind, obj.RemoteID, getErr)
		}
		obj.ID = existing.ID
		obj.CreatedAt = existing.CreatedAt
		obj.UpdatedAt = existing.UpdatedAt
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", desc.Kind, obj.RemoteID, err)
	}
	return nil
}

func (r *PostgresObjectRepository) SetRelation(ctx context.Context, desc *registry.Descriptor, accountID, remoteID, column, targetRemoteID string) error {
	if desc.Relation(column) == nil {
		return fmt.Errorf("%s has no relation column %q", desc.Kind, column)
	}

	query := fmt.Sprintf(
		`UPDATE %s SET %s = $1, updated_at = NOW() WHERE account_id = $2 AND remote_id = $3`,
		desc.Table, column,
	)
	result, err := r.pool.Exec(ctx, query, nullableID(targetRemoteID), accountID, remoteID)
	if err != nil {
		return fmt.Errorf("failed to set %s.%s on %s: %w", desc.Kind, column, remoteID, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresObjectRepository) Delete(ctx context.Context, desc *registry.Descriptor, accountID, remoteID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE account_id = $1 AND remote_id = $2`, desc.Table)
	result, err := r.pool.Exec(ctx, query, accountID, remoteID)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", desc.Kind, remoteID, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
