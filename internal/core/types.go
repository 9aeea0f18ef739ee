package core

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetport/internal/filter"
	"github.com/JonMunkholm/sheetport/internal/record"
	"github.com/JonMunkholm/sheetport/internal/schema"
	"github.com/JonMunkholm/sheetport/internal/store"
)

var (
	// ErrNoFile is returned when an import request carries no workbook.
	ErrNoFile = errors.New("no file provided")

	// ErrUnsupportedFile is returned for uploads that are not .xlsx.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrTableNotFound is returned when a table is neither declared in the
	// catalog nor present in the dataset.
	ErrTableNotFound = errors.New("table not found")

	// ErrInvalidFilter is returned when a filter request cannot be decoded.
	ErrInvalidFilter = errors.New("invalid filter request")
)

// DatasetStore persists imported datasets.
// Satisfied by *store.Store and *store.Memory.
type DatasetStore interface {
	Save(ctx context.Context, name string, ds record.Dataset) (store.DatasetInfo, error)
	Get(ctx context.Context, id uuid.UUID) (store.Dataset, error)
	List(ctx context.Context, limit int) ([]store.DatasetInfo, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TableInfo is a catalog table resolved for one locale.
type TableInfo struct {
	Name    string           `json:"name"`
	Title   string           `json:"title"`
	Type    schema.TableType `json:"type"`
	Visible bool             `json:"visible"`
	Fields  []FieldInfo      `json:"fields"`
}

// FieldInfo is a catalog field resolved for one locale.
type FieldInfo struct {
	Name     string           `json:"name"`
	Title    string           `json:"title"`
	Type     schema.FieldType `json:"type"`
	Visible  bool             `json:"visible"`
	Required bool             `json:"required"`
}

// ImportResult is the outcome of a stored import.
type ImportResult struct {
	store.DatasetInfo
	Data record.Dataset `json:"data"`
}

// FilterRequest selects records by free-text query and field descriptors.
type FilterRequest struct {
	Query         string      `json:"query"`
	Filters       filter.Spec `json:"filters"`
	IgnoredFields []string    `json:"ignoredFields"`
}

// ColumnRef is a column in both spellings.
type ColumnRef struct {
	Number  int    `json:"number"`
	Letters string `json:"letters"`
}
