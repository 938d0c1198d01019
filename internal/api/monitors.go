package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/tally/pkg/progress"
)

const (
	defaultMonitorLimit = 50
	maxMonitorLimit     = 500
)

// MonitorHandler exposes read-only monitor progress endpoints.
type MonitorHandler struct {
	registry *progress.Registry
	logger   *zap.Logger
}

// NewMonitorHandler wires the registry and logger.
func NewMonitorHandler(registry *progress.Registry, logger *zap.Logger) *MonitorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitorHandler{registry: registry, logger: logger}
}

// ListMonitors handles GET /v1/monitors?status=&limit=&offset=. It returns
// {"monitors": [...]} ordered by start time, 400 for invalid filters, or 503
// when no registry is attached.
func (h *MonitorHandler) ListMonitors(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeError(w, http.StatusServiceUnavailable, "monitor registry unavailable")
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultMonitorLimit, maxMonitorLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := parseStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snaps := h.registry.Snapshots()
	out := make([]monitorDTO, 0, len(snaps))
	for _, s := range snaps {
		if filter != nil && s.Closed != *filter {
			continue
		}
		out = append(out, toMonitorDTO(s))
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"monitors": out})
}

// GetMonitor handles GET /v1/monitors/{monitor_id}. It returns
// {"monitor": {...}}, 404 for unknown IDs, or 503 when no registry is attached.
func (h *MonitorHandler) GetMonitor(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeError(w, http.StatusServiceUnavailable, "monitor registry unavailable")
		return
	}
	id := chi.URLParam(r, "monitor_id")
	snap, ok := h.registry.Get(id)
	if !ok {
		h.logger.Debug("monitor not found", zap.String("monitor_id", id))
		writeError(w, http.StatusNotFound, "monitor not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"monitor": toMonitorDTO(snap)})
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if val > maxLimit {
			val = maxLimit
		}
		limit = val
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

// parseStatus maps the status filter to the wanted Closed value; nil means
// no filtering.
func parseStatus(input string) (*bool, error) {
	var closed bool
	switch strings.ToLower(input) {
	case "", "all":
		return nil, nil
	case "running", "open":
		closed = false
	case "closed", "done", "finished":
		closed = true
	default:
		return nil, errors.New("invalid status")
	}
	return &closed, nil
}

func toMonitorDTO(s progress.Snapshot) monitorDTO {
	dto := monitorDTO{
		ID:          s.ID,
		Description: s.Description,
		Value:       s.Value,
		Rendered:    s.Rendered,
		Mode:        string(s.Mode),
		Memory:      string(s.Memory),
		Status:      "running",
		StartedAt:   s.StartedAt,
		ElapsedMs:   s.Elapsed.Milliseconds(),
	}
	if s.Closed {
		dto.Status = "closed"
	}
	if s.Total > 0 {
		total := s.Total
		pct := float64(s.Value) / float64(total) * 100
		dto.Total = &total
		dto.Percent = &pct
	}
	return dto
}

type monitorDTO struct {
	ID          string    `json:"id"`
	Description string    `json:"description,omitempty"`
	Value       uint64    `json:"value"`
	Rendered    uint64    `json:"rendered"`
	Total       *int64    `json:"total,omitempty"`
	Percent     *float64  `json:"percent,omitempty"`
	Mode        string    `json:"mode"`
	Memory      string    `json:"memory"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	ElapsedMs   int64     `json:"elapsed_ms"`
}
