// Package store persists imported datasets in PostgreSQL.
//
// Each dataset is one row in sheetport_datasets holding the whole
// table-to-records mapping as JSONB.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/sheetport/internal/record"
)

// ErrDatasetNotFound is returned when no dataset has the requested ID.
var ErrDatasetNotFound = errors.New("dataset not found")

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 100

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// DatasetInfo describes a stored dataset without its data.
type DatasetInfo struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"createdAt"`
}

// Dataset is a stored dataset with its records.
type Dataset struct {
	DatasetInfo
	Data record.Dataset `json:"data"`
}

// Store reads and writes datasets.
type Store struct {
	db DBTX
}

// New returns a Store backed by db.
func New(db DBTX) *Store {
	return &Store{db: db}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sheetport_datasets (
	id         uuid PRIMARY KEY,
	name       text NOT NULL,
	data       jsonb NOT NULL,
	row_count  integer NOT NULL DEFAULT 0,
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS sheetport_datasets_created_at_idx
	ON sheetport_datasets (created_at DESC);
`

// Migrate creates the datasets table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate datasets: %w", err)
	}
	return nil
}

// Save stores ds under a new ID.
func (s *Store) Save(ctx context.Context, name string, ds record.Dataset) (DatasetInfo, error) {
	data, err := json.Marshal(ds)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("encode dataset: %w", err)
	}

	info := DatasetInfo{
		ID:   uuid.New(),
		Name: name,
		Rows: ds.RowCount(),
	}

	const q = `INSERT INTO sheetport_datasets (id, name, data, row_count)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	if err := s.db.QueryRow(ctx, q, toPgUUID(info.ID), name, data, info.Rows).Scan(&info.CreatedAt); err != nil {
		return DatasetInfo{}, fmt.Errorf("insert dataset: %w", err)
	}
	return info, nil
}

// Get loads a dataset with its records.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Dataset, error) {
	const q = `SELECT id, name, row_count, created_at, data
		FROM sheetport_datasets WHERE id = $1`

	var (
		pgID pgtype.UUID
		out  Dataset
		raw  []byte
	)
	err := s.db.QueryRow(ctx, q, toPgUUID(id)).Scan(&pgID, &out.Name, &out.Rows, &out.CreatedAt, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Dataset{}, fmt.Errorf("dataset %s: %w", id, ErrDatasetNotFound)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("get dataset %s: %w", id, err)
	}

	out.ID = fromPgUUID(pgID)
	if err := json.Unmarshal(raw, &out.Data); err != nil {
		return Dataset{}, fmt.Errorf("decode dataset %s: %w", id, err)
	}
	return out, nil
}

// List returns the most recent datasets first.
func (s *Store) List(ctx context.Context, limit int) ([]DatasetInfo, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	const q = `SELECT id, name, row_count, created_at
		FROM sheetport_datasets
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := s.db.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	out := make([]DatasetInfo, 0)
	for rows.Next() {
		var (
			pgID pgtype.UUID
			info DatasetInfo
		)
		if err := rows.Scan(&pgID, &info.Name, &info.Rows, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		info.ID = fromPgUUID(pgID)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return out, nil
}

// Delete removes a dataset.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM sheetport_datasets WHERE id = $1`, toPgUUID(id))
	if err != nil {
		return fmt.Errorf("delete dataset %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dataset %s: %w", id, ErrDatasetNotFound)
	}
	return nil
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func fromPgUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return uuid.UUID(id.Bytes)
}
