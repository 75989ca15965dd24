package api

import "net/http"

func NewRouter(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/endpoints", h.ListEndpoints)
	mux.HandleFunc("POST /api/endpoints", h.CreateEndpoint)
	mux.HandleFunc("GET /api/endpoints/{id}", h.GetEndpoint)
	mux.HandleFunc("PUT /api/endpoints/{id}", h.UpdateEndpoint)
	mux.HandleFunc("DELETE /api/endpoints/{id}", h.DeleteEndpoint)
	mux.HandleFunc("GET /api/endpoints/{id}/stats", h.EndpointStats)
	mux.HandleFunc("POST /api/endpoints/{id}/test", h.TestEndpoint)

	mux.HandleFunc("GET /api/alerts", h.ListAlerts)
	mux.HandleFunc("POST /api/alerts/{id}/resolve", h.ResolveAlert)

	mux.HandleFunc("GET /api/dashboard/stats", h.DashboardStats)
	mux.HandleFunc("POST /api/monitor/run", h.RunMonitor)

	return mux
}
