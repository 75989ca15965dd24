package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/apiwatch/apiwatch/internal/domain/alert"
	"github.com/apiwatch/apiwatch/internal/domain/endpoint"
	"github.com/apiwatch/apiwatch/internal/domain/result"
	"github.com/apiwatch/apiwatch/internal/monitor"
	"github.com/apiwatch/apiwatch/internal/repository/postgres"
)

// Monitor is the slice of the engine the API is allowed to call.
type Monitor interface {
	RunCycleOnce(ctx context.Context) error
	ProbeNow(ctx context.Context, endpointID int64) (*result.CheckResult, error)
}

type StatsProvider interface {
	Stats(ctx context.Context, endpointID int64, window time.Duration) (*monitor.Stats, error)
}

type Handlers struct {
	log            *zap.Logger
	endpoints      endpoint.Repo
	results        result.Repo
	alerts         alert.Repo
	mon            Monitor
	stats          StatsProvider
	defaultTimeout time.Duration
}

func NewHandlers(
	log *zap.Logger,
	endpoints endpoint.Repo,
	results result.Repo,
	alerts alert.Repo,
	mon Monitor,
	stats StatsProvider,
	defaultTimeout time.Duration,
) *Handlers {
	return &Handlers{
		log:            log.With(zap.String("component", "api")),
		endpoints:      endpoints,
		results:        results,
		alerts:         alerts,
		mon:            mon,
		stats:          stats,
		defaultTimeout: defaultTimeout,
	}
}

type endpointRequest struct {
	Name    string            `json:"name"`
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Timeout *int              `json:"timeout"` // seconds
	Active  *bool             `json:"active"`
}

type endpointResponse struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Timeout   int               `json:"timeout"`
	Active    bool              `json:"active"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func toEndpointResponse(e *endpoint.Endpoint) endpointResponse {
	return endpointResponse{
		ID:        e.ID,
		Name:      e.Name,
		URL:       e.URL,
		Method:    e.Method,
		Headers:   e.Headers,
		Timeout:   int(e.Timeout / time.Second),
		Active:    e.Active,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (h *Handlers) ListEndpoints(w http.ResponseWriter, r *http.Request) {
	list, err := h.endpoints.List(r.Context())
	if err != nil {
		h.internalError(w, "list endpoints", err)
		return
	}
	out := make([]endpointResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toEndpointResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) CreateEndpoint(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e := &endpoint.Endpoint{
		Name:    req.Name,
		URL:     req.URL,
		Method:  req.Method,
		Headers: req.Headers,
		Active:  true,
	}
	if req.Timeout != nil {
		e.Timeout = time.Duration(*req.Timeout) * time.Second
	}
	if req.Active != nil {
		e.Active = *req.Active
	}
	if err := e.Normalize(h.defaultTimeout); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.endpoints.Create(r.Context(), e); err != nil {
		h.internalError(w, "create endpoint", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEndpointResponse(e))
}

func (h *Handlers) GetEndpoint(w http.ResponseWriter, r *http.Request) {
	e, ok := h.loadEndpoint(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toEndpointResponse(e))
}

func (h *Handlers) UpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	e, ok := h.loadEndpoint(w, r)
	if !ok {
		return
	}

	var req endpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != "" {
		e.Name = req.Name
	}
	if req.URL != "" {
		e.URL = req.URL
	}
	if req.Method != "" {
		e.Method = req.Method
	}
	if req.Headers != nil {
		e.Headers = req.Headers
	}
	if req.Timeout != nil {
		e.Timeout = time.Duration(*req.Timeout) * time.Second
	}
	if req.Active != nil {
		e.Active = *req.Active
	}
	if err := e.Normalize(h.defaultTimeout); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.endpoints.Update(r.Context(), e); err != nil {
		h.internalError(w, "update endpoint", err)
		return
	}
	writeJSON(w, http.StatusOK, toEndpointResponse(e))
}

func (h *Handlers) DeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.endpoints.Delete(r.Context(), id); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			writeError(w, http.StatusNotFound, "endpoint not found")
			return
		}
		h.internalError(w, "delete endpoint", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "endpoint deleted"})
}

func (h *Handlers) EndpointStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid hours")
			return
		}
		hours = n
	}

	st, err := h.stats.Stats(r.Context(), id, time.Duration(hours)*time.Hour)
	if err != nil {
		h.internalError(w, "stats", err)
		return
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	rows, err := h.results.ListSince(r.Context(), id, since)
	if err != nil {
		h.internalError(w, "list results", err)
		return
	}

	type point struct {
		Timestamp    time.Time `json:"timestamp"`
		ResponseTime int64     `json:"response_time"`
		StatusCode   int       `json:"status_code"`
		Success      bool      `json:"success"`
	}
	chart := make([]point, 0, len(rows))
	for _, cr := range rows {
		chart = append(chart, point{
			Timestamp:    cr.Timestamp,
			ResponseTime: cr.ResponseTime,
			StatusCode:   cr.StatusCode,
			Success:      cr.Success,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats":      st,
		"chart_data": chart,
	})
}

// TestEndpoint probes one endpoint immediately, outside the scheduled
// cycle.
func (h *Handlers) TestEndpoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.mon.ProbeNow(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			writeError(w, http.StatusNotFound, "endpoint not found")
			return
		}
		h.internalError(w, "probe", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	resolved := r.URL.Query().Get("resolved") == "true"
	alerts, err := h.alerts.List(r.Context(), resolved)
	if err != nil {
		h.internalError(w, "list alerts", err)
		return
	}

	names := map[int64]string{}
	if eps, err := h.endpoints.List(r.Context()); err == nil {
		for _, e := range eps {
			names[e.ID] = e.Name
		}
	}

	type alertResponse struct {
		ID           int64      `json:"id"`
		EndpointID   int64      `json:"endpoint_id"`
		EndpointName string     `json:"endpoint_name"`
		Kind         alert.Kind `json:"kind"`
		Message      string     `json:"message"`
		CreatedAt    time.Time  `json:"created_at"`
		Resolved     bool       `json:"resolved"`
		ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	}
	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertResponse{
			ID:           a.ID,
			EndpointID:   a.EndpointID,
			EndpointName: names[a.EndpointID],
			Kind:         a.Kind,
			Message:      a.Message,
			CreatedAt:    a.CreatedAt,
			Resolved:     a.Resolved,
			ResolvedAt:   a.ResolvedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ResolveAlert force-resolves an alert from the dashboard.
func (h *Handlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.alerts.Resolve(r.Context(), id, time.Now().UTC()); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		h.internalError(w, "resolve alert", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "alert resolved"})
}

func (h *Handlers) DashboardStats(w http.ResponseWriter, r *http.Request) {
	eps, err := h.endpoints.List(r.Context())
	if err != nil {
		h.internalError(w, "list endpoints", err)
		return
	}
	open, err := h.alerts.List(r.Context(), false)
	if err != nil {
		h.internalError(w, "list alerts", err)
		return
	}

	active := 0
	since := time.Now().UTC().Add(-24 * time.Hour)
	var (
		totalChecks int
		successes   int
		sumLatency  int64
		measured    int
	)
	for _, e := range eps {
		if e.Active {
			active++
		}
		rows, err := h.results.ListSince(r.Context(), e.ID, since)
		if err != nil {
			h.internalError(w, "list results", err)
			return
		}
		totalChecks += len(rows)
		for _, cr := range rows {
			if cr.Success {
				successes++
			}
			if cr.ResponseTime > 0 {
				sumLatency += cr.ResponseTime
				measured++
			}
		}
	}

	successRate := 0.0
	if totalChecks > 0 {
		successRate = float64(successes) / float64(totalChecks) * 100
	}
	avgLatency := 0.0
	if measured > 0 {
		avgLatency = float64(sumLatency) / float64(measured)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_endpoints":       len(eps),
		"active_endpoints":      active,
		"active_alerts":         len(open),
		"total_checks_24h":      totalChecks,
		"success_rate_24h":      successRate,
		"avg_response_time_24h": avgLatency,
	})
}

// RunMonitor triggers one monitoring cycle. A cycle already in flight is
// reported, not queued.
func (h *Handlers) RunMonitor(w http.ResponseWriter, r *http.Request) {
	if err := h.mon.RunCycleOnce(r.Context()); err != nil {
		if errors.Is(err, monitor.ErrCycleRunning) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.internalError(w, "run cycle", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "monitoring cycle completed"})
}

func (h *Handlers) loadEndpoint(w http.ResponseWriter, r *http.Request) (*endpoint.Endpoint, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	e, err := h.endpoints.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			writeError(w, http.StatusNotFound, "endpoint not found")
			return nil, false
		}
		h.internalError(w, "get endpoint", err)
		return nil, false
	}
	return e, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handlers) internalError(w http.ResponseWriter, op string, err error) {
	h.log.Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
