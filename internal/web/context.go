package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxJSONBody caps JSON request bodies that are not workbook uploads.
const maxJSONBody = 16 << 20

// requestLocale resolves the display locale from ?locale= or Accept-Language.
func (s *Server) requestLocale(r *http.Request) string {
	return s.service.ResolveLocale(r.URL.Query().Get("locale"), r.Header.Get("Accept-Language"))
}

// datasetID parses the {id} route parameter.
func datasetID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, badRequest(err)
	}
	return id, nil
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// decodeJSON reads a size-capped JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return badRequest(fmt.Errorf("empty request body"))
		}
		return badRequest(fmt.Errorf("decode request: %w", err))
	}
	return nil
}
