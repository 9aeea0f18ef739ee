package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetport/internal/config"
	"github.com/JonMunkholm/sheetport/internal/filter"
	"github.com/JonMunkholm/sheetport/internal/logging"
	"github.com/JonMunkholm/sheetport/internal/record"
	"github.com/JonMunkholm/sheetport/internal/schema"
	"github.com/JonMunkholm/sheetport/internal/sheet"
	"github.com/JonMunkholm/sheetport/internal/store"
	"github.com/JonMunkholm/sheetport/internal/tabular"
	"github.com/JonMunkholm/sheetport/internal/xlsx"
)

// Service provides the core business logic for workbook import, filtering
// and export.
type Service struct {
	catalog     schema.Catalog
	datasets    DatasetStore
	limiter     *ExportLimiter
	newWorkbook func() tabular.Workbook
	readWB      func(context.Context, io.Reader) (tabular.RawWorkbook, error)

	importTimeout time.Duration
	exportTimeout time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithWorkbookFactory replaces the .xlsx container used by exports.
func WithWorkbookFactory(fn func() tabular.Workbook) Option {
	return func(s *Service) { s.newWorkbook = fn }
}

// WithWorkbookReader replaces the .xlsx reader used by imports.
func WithWorkbookReader(fn func(context.Context, io.Reader) (tabular.RawWorkbook, error)) Option {
	return func(s *Service) { s.readWB = fn }
}

// NewService creates a Service over catalog and datasets, applying the
// import and export limits from cfg.
func NewService(catalog schema.Catalog, datasets DatasetStore, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		catalog:       catalog,
		datasets:      datasets,
		limiter:       NewExportLimiter(cfg.Export.MaxConcurrent, cfg.Export.MaxWaitTime),
		newWorkbook:   func() tabular.Workbook { return xlsx.NewWorkbook() },
		readWB:        xlsx.ReadWorkbook,
		importTimeout: cfg.Import.Timeout,
		exportTimeout: cfg.Export.Timeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the table catalog.
func (s *Service) Catalog() schema.Catalog {
	return s.catalog
}

// ----------------------------------------------------------------------------
// Catalog
// ----------------------------------------------------------------------------

// localeMatcher is implemented by catalogs that can negotiate locales.
type localeMatcher interface {
	MatchLocale(accept string) string
}

// ResolveLocale picks the locale for a request: an explicit locale wins,
// then the Accept-Language header, then the catalog default.
func (s *Service) ResolveLocale(explicit, acceptLanguage string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if m, ok := s.catalog.(localeMatcher); ok && acceptLanguage != "" {
		return m.MatchLocale(acceptLanguage)
	}
	return s.catalog.DefaultLocale()
}

// Tables describes every catalog table with titles in locale.
func (s *Service) Tables(locale string) []TableInfo {
	names := s.catalog.Tables()
	out := make([]TableInfo, 0, len(names))
	for _, name := range names {
		out = append(out, s.tableInfo(name, locale))
	}
	return out
}

func (s *Service) tableInfo(name, locale string) TableInfo {
	required := make(map[string]bool)
	for _, f := range s.catalog.RequiredFields(name) {
		required[f] = true
	}

	info := TableInfo{
		Name:    name,
		Title:   s.catalog.TableTitle(name, locale),
		Type:    s.catalog.TableType(name),
		Visible: s.catalog.TableVisible(name),
	}

	for _, f := range s.catalog.FieldNames(name) {
		info.Fields = append(info.Fields, FieldInfo{
			Name:     f,
			Title:    s.catalog.FieldTitle(name, f, locale),
			Type:     s.catalog.FieldType(name, f),
			Visible:  s.catalog.FieldVisible(name, f),
			Required: required[f],
		})
	}
	return info
}

// ----------------------------------------------------------------------------
// Import
// ----------------------------------------------------------------------------

// ReadWorkbook converts an .xlsx document into records without storing
// them. Object-table title keys are resolved using locale.
func (s *Service) ReadWorkbook(ctx context.Context, r io.Reader, locale string) (record.Dataset, error) {
	raw, err := s.readWB(ctx, r)
	if err != nil {
		return nil, err
	}
	return tabular.ImportWorkbook(raw, s.catalog, tabular.WithLocale(locale)), nil
}

// Import reads an .xlsx upload and stores the resulting dataset.
// fileName is used for the dataset name when name is empty.
func (s *Service) Import(ctx context.Context, name, fileName string, r io.Reader, locale string) (ImportResult, error) {
	if r == nil {
		return ImportResult{}, ErrNoFile
	}
	if fileName != "" && !strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		return ImportResult{}, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(fileName))
	}
	if name = strings.TrimSpace(name); name == "" {
		name = strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	}
	if name == "" || name == "." {
		name = "Untitled"
	}

	if s.importTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.importTimeout)
		defer cancel()
	}

	log := logging.WithFields(ctx, "file", fileName, "name", name)
	start := time.Now()

	cr := &countingReader{r: r}
	ds, err := s.ReadWorkbook(ctx, cr, locale)
	if err != nil {
		return ImportResult{}, err
	}

	info, err := s.datasets.Save(ctx, name, ds)
	if err != nil {
		return ImportResult{}, fmt.Errorf("save dataset: %w", err)
	}

	log.Info("workbook imported",
		"dataset_id", info.ID,
		"tables", len(ds),
		"rows", info.Rows,
		"bytes", cr.n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ImportResult{DatasetInfo: info, Data: ds}, nil
}

// countingReader tracks how many bytes of an upload were consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// ----------------------------------------------------------------------------
// Datasets
// ----------------------------------------------------------------------------

// ListDatasets returns stored datasets, newest first.
func (s *Service) ListDatasets(ctx context.Context, limit int) ([]store.DatasetInfo, error) {
	return s.datasets.List(ctx, limit)
}

// GetDataset loads a stored dataset.
func (s *Service) GetDataset(ctx context.Context, id uuid.UUID) (store.Dataset, error) {
	return s.datasets.Get(ctx, id)
}

// DeleteDataset removes a stored dataset.
func (s *Service) DeleteDataset(ctx context.Context, id uuid.UUID) error {
	if err := s.datasets.Delete(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("dataset deleted", "dataset_id", id)
	return nil
}

// ----------------------------------------------------------------------------
// Filter
// ----------------------------------------------------------------------------

// Filter applies req to records.
func (s *Service) Filter(records []record.Record, req FilterRequest) []record.Record {
	return filter.Filter(records, req.Query, req.Filters, req.IgnoredFields...)
}

// FilterDataset applies req to one table of a stored dataset.
func (s *Service) FilterDataset(ctx context.Context, id uuid.UUID, table string, req FilterRequest) ([]record.Record, error) {
	ds, err := s.datasets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	records, ok := ds.Data[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	out := s.Filter(records, req)
	logging.WithFields(ctx, "dataset_id", id, "table", table).Debug("dataset filtered",
		"records", len(records),
		"kept", len(out),
	)
	return out, nil
}

// ----------------------------------------------------------------------------
// Export
// ----------------------------------------------------------------------------

// Export builds an .xlsx workbook from data. Concurrent exports are bounded
// by the export limiter; ErrTooManyExports is returned when no slot frees up
// in time.
func (s *Service) Export(ctx context.Context, data map[string]record.TableData, locale string) ([]byte, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.exportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.exportTimeout)
		defer cancel()
	}

	wb := s.newWorkbook()
	if c, ok := wb.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				slog.Debug("export: close workbook", "error", err)
			}
		}()
	}

	start := time.Now()
	out, err := tabular.ExportWorkbook(ctx, wb, data, s.catalog, tabular.WithExportLocale(locale))
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("workbook exported",
		"tables", len(data),
		"bytes", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// ExportDataset builds an .xlsx workbook from a stored dataset and returns
// it with the dataset's name.
func (s *Service) ExportDataset(ctx context.Context, id uuid.UUID, locale string) ([]byte, string, error) {
	ds, err := s.datasets.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	ctx = logging.With(ctx, "dataset_id", id)
	out, err := s.Export(ctx, record.FromDataset(ds.Data), locale)
	if err != nil {
		return nil, "", err
	}
	return out, ds.Name, nil
}

// ExportLimiterStatus returns the export limiter state for monitoring.
func (s *Service) ExportLimiterStatus() ExportLimiterStatus {
	return s.limiter.Status()
}

// WaitForExports blocks until in-flight exports finish or ctx is done.
func (s *Service) WaitForExports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ----------------------------------------------------------------------------
// Columns
// ----------------------------------------------------------------------------

// Column converts a column reference in either spelling. Digits are read
// as a 1-based column number; letters as a column name.
func (s *Service) Column(ref string) (ColumnRef, error) {
	return ResolveColumn(ref)
}

// ResolveColumn is Column without a Service. ref is a 1-based column
// number, column letters, or a cell address such as "C7" whose column is
// taken.
func ResolveColumn(ref string) (ColumnRef, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		letters, err := sheet.ColumnName(n)
		if err != nil {
			return ColumnRef{}, err
		}
		return ColumnRef{Number: n, Letters: letters}, nil
	}

	if n, err := sheet.ColumnNumber(ref); err == nil {
		return ColumnRef{Number: n, Letters: strings.ToUpper(ref)}, nil
	}

	col, _, err := sheet.SplitCellName(ref)
	if err != nil {
		return ColumnRef{}, err
	}
	letters, err := sheet.ColumnName(col)
	if err != nil {
		return ColumnRef{}, err
	}
	return ColumnRef{Number: col, Letters: letters}, nil
}
