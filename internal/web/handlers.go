package web

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sheetport/internal/core"
	"github.com/JonMunkholm/sheetport/internal/filter"
	"github.com/JonMunkholm/sheetport/internal/record"
	"github.com/JonMunkholm/sheetport/internal/store"
	"github.com/JonMunkholm/sheetport/internal/xlsx"
)

// filterBody is the POST /api/filter request.
type filterBody struct {
	Records       []record.Record `json:"records"`
	Query         string          `json:"query"`
	Filters       filter.Spec     `json:"filters"`
	IgnoredFields []string        `json:"ignoredFields"`
}

// exportBody is the POST /api/export request.
type exportBody struct {
	Data     map[string]record.TableData `json:"data"`
	FileName string                      `json:"fileName"`
}

// recordsResponse wraps filtered records.
type recordsResponse struct {
	Count   int             `json:"count"`
	Records []record.Record `json:"records"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "ok",
		"exports": s.service.ExportLimiterStatus(),
	})
}

// handleListTables describes the catalog in the request locale.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	locale := s.requestLocale(r)
	writeJSON(w, r, http.StatusOK, map[string]any{
		"locale": locale,
		"tables": s.service.Tables(locale),
	})
}

// handleColumn converts a column number to letters or letters to a number.
func (s *Server) handleColumn(w http.ResponseWriter, r *http.Request) {
	ref, err := s.service.Column(chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, r, http.StatusOK, ref)
}

// handleImport reads a multipart .xlsx upload and stores it as a dataset.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			respondError(w, r, fmt.Errorf("file too large: %w", err), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, badRequest(fmt.Errorf("parse form: %w", err)), http.StatusBadRequest)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, core.ErrNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	res, err := s.service.Import(r.Context(), r.FormValue("name"), header.Filename, file, s.requestLocale(r))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, r, http.StatusCreated, res)
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	infos, err := s.service.ListDatasets(r.Context(), parseIntParam(r, "limit", store.DefaultListLimit))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if infos == nil {
		infos = []store.DatasetInfo{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"datasets": infos})
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	id, err := datasetID(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	ds, err := s.service.GetDataset(r.Context(), id)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, ds)
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	id, err := datasetID(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteDataset(r.Context(), id); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFilterDataset filters one table of a stored dataset.
func (s *Server) handleFilterDataset(w http.ResponseWriter, r *http.Request) {
	id, err := datasetID(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	var req core.FilterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		err = fmt.Errorf("%w: %w", core.ErrInvalidFilter, err)
		respondError(w, r, err, statusFor(err))
		return
	}

	out, err := s.service.FilterDataset(r.Context(), id, chi.URLParam(r, "table"), req)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, recordsResponse{Count: len(out), Records: nonNil(out)})
}

// handleFilter filters records sent in the request body.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var body filterBody
	if err := decodeJSON(w, r, &body); err != nil {
		err = fmt.Errorf("%w: %w", core.ErrInvalidFilter, err)
		respondError(w, r, err, statusFor(err))
		return
	}

	out := s.service.Filter(body.Records, core.FilterRequest{
		Query:         body.Query,
		Filters:       body.Filters,
		IgnoredFields: body.IgnoredFields,
	})
	writeJSON(w, r, http.StatusOK, recordsResponse{Count: len(out), Records: nonNil(out)})
}

// handleExportDataset downloads a stored dataset as .xlsx.
func (s *Server) handleExportDataset(w http.ResponseWriter, r *http.Request) {
	id, err := datasetID(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	out, name, err := s.service.ExportDataset(r.Context(), id, s.requestLocale(r))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeWorkbook(w, downloadName(name, s.cfg.Export.FileName), out)
}

// handleExport builds an .xlsx workbook from data in the request body.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var body exportBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	out, err := s.service.Export(r.Context(), body.Data, s.requestLocale(r))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeWorkbook(w, downloadName(body.FileName, s.cfg.Export.FileName), out)
}

func writeWorkbook(w http.ResponseWriter, fileName string, data []byte) {
	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// downloadName turns a dataset name into an .xlsx file name, falling back
// to def.
func downloadName(name, def string) string {
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return def
	}
	if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
		name += ".xlsx"
	}
	return name
}

func nonNil(rs []record.Record) []record.Record {
	if rs == nil {
		return []record.Record{}
	}
	return rs
}
