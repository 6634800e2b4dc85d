// Package httpapi serves the catalog over HTTP: NEO lookups, filtered
// approach queries in JSON or CSV, and asynchronous export jobs.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"neocore/internal/core"
	"neocore/internal/export"
	"neocore/pkg/domain"
)

// ExportScheduler queues export requests and exposes their status.
type ExportScheduler interface {
	Enqueue(ctx context.Context, input export.Input) (export.Record, error)
	Get(id string) (export.Record, bool)
}

// Handler provides HTTP access to the catalog service.
type Handler struct {
	Service *core.Service
	Exports ExportScheduler
}

// NewHandler constructs a catalog HTTP handler.
func NewHandler(svc *core.Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "catalog service not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/api/v1/neos":
		h.handleNEOByName(w, r)
	case strings.HasPrefix(path, "/api/v1/neos/"):
		h.handleNEOByDesignation(w, r, strings.TrimPrefix(path, "/api/v1/neos/"))
	case path == "/api/v1/approaches":
		h.handleApproaches(w, r)
	case strings.HasPrefix(path, "/api/v1/exports"):
		if h.Exports == nil {
			http.NotFound(w, r)
			return
		}
		h.handleExports(w, r, path)
	default:
		http.NotFound(w, r)
	}
}

type neoPayload struct {
	Designation string          `json:"designation"`
	Name        *string         `json:"name"`
	Fullname    string          `json:"fullname"`
	DiameterKM  domain.Diameter `json:"diameter_km"`
	Hazardous   bool            `json:"potentially_hazardous"`
	Approaches  int             `json:"approach_count"`
}

func payloadFor(neo *domain.NearEarthObject) neoPayload {
	return neoPayload{
		Designation: neo.Designation,
		Name:        neo.Name,
		Fullname:    neo.Fullname(),
		DiameterKM:  neo.Diameter,
		Hazardous:   neo.Hazardous,
		Approaches:  len(neo.Approaches),
	}
}

func (h *Handler) handleNEOByDesignation(w http.ResponseWriter, r *http.Request, designation string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if designation == "" {
		http.NotFound(w, r)
		return
	}
	neo, err := h.Service.LookupDesignation(r.Context(), designation)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"neo": payloadFor(neo)})
}

func (h *Handler) handleNEOByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name query parameter required")
		return
	}
	neo, err := h.Service.LookupName(r.Context(), name)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"neo": payloadFor(neo)})
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	var notFound core.ErrNotFound
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, notFound.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (h *Handler) handleApproaches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	filters, limit, err := parseFilters(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format := export.FormatJSON
	if name := r.URL.Query().Get("format"); name != "" {
		format, err = export.ParseFormat(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	matches := h.Service.Query(r.Context(), filters, limit)

	buf := &bytes.Buffer{}
	if err := export.Write(buf, format, matches); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type exportRequest struct {
	Filters     filterParams    `json:"filters"`
	Limit       int             `json:"limit,omitempty"`
	Formats     []export.Format `json:"formats,omitempty"`
	RequestedBy string          `json:"requested_by,omitempty"`
	Reason      string          `json:"reason,omitempty"`
}

func (h *Handler) handleExports(w http.ResponseWriter, r *http.Request, path string) {
	if path == "/api/v1/exports" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req exportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
			return
		}
		filters, err := req.Filters.toFilters()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		record, err := h.Exports.Enqueue(r.Context(), export.Input{
			Filters:     filters,
			Limit:       req.Limit,
			Formats:     req.Formats,
			RequestedBy: req.RequestedBy,
			Reason:      req.Reason,
		})
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(path, "/api/v1/exports/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	record, ok := h.Exports.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

// filterParams is the JSON form of a filter set accepted by the export
// endpoint. All fields are optional.
type filterParams struct {
	Date        string   `json:"date,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	DistanceMin *float64 `json:"min_distance,omitempty"`
	DistanceMax *float64 `json:"max_distance,omitempty"`
	VelocityMin *float64 `json:"min_velocity,omitempty"`
	VelocityMax *float64 `json:"max_velocity,omitempty"`
	DiameterMin *float64 `json:"min_diameter,omitempty"`
	DiameterMax *float64 `json:"max_diameter,omitempty"`
	Hazardous   *bool    `json:"hazardous,omitempty"`
}

func (p filterParams) toFilters() (domain.Filters, error) {
	var f domain.Filters
	var err error
	if f.Date, err = parseDateParam("date", p.Date); err != nil {
		return f, err
	}
	if f.StartDate, err = parseDateParam("start_date", p.StartDate); err != nil {
		return f, err
	}
	if f.EndDate, err = parseDateParam("end_date", p.EndDate); err != nil {
		return f, err
	}
	f.DistanceMin = p.DistanceMin
	f.DistanceMax = p.DistanceMax
	f.VelocityMin = p.VelocityMin
	f.VelocityMax = p.VelocityMax
	f.DiameterMin = p.DiameterMin
	f.DiameterMax = p.DiameterMax
	f.Hazardous = p.Hazardous
	return f, nil
}

func parseDateParam(name, value string) (*domain.Date, error) {
	if value == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", name, err)
	}
	return &d, nil
}

// parseFilters builds a filter set from query parameters. Unknown parameters
// are ignored; malformed values are rejected.
func parseFilters(values map[string][]string) (domain.Filters, int, error) {
	get := func(key string) string {
		if vs, ok := values[key]; ok && len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	params := filterParams{
		Date:      get("date"),
		StartDate: get("start_date"),
		EndDate:   get("end_date"),
	}
	for key, target := range map[string]**float64{
		"min_distance": &params.DistanceMin,
		"max_distance": &params.DistanceMax,
		"min_velocity": &params.VelocityMin,
		"max_velocity": &params.VelocityMax,
		"min_diameter": &params.DiameterMin,
		"max_diameter": &params.DiameterMax,
	} {
		raw := get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.Filters{}, 0, fmt.Errorf("invalid %s: %v", key, err)
		}
		*target = &v
	}
	if raw := get("hazardous"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.Filters{}, 0, fmt.Errorf("invalid hazardous: %v", err)
		}
		params.Hazardous = &v
	}

	limit := 0
	if raw := get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return domain.Filters{}, 0, fmt.Errorf("invalid limit %q", raw)
		}
		limit = v
	}

	filters, err := params.toFilters()
	return filters, limit, err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
