package web

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRouter creates and configures the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(LoggingMiddleware)

	r.HandleFunc("/", h.Index).Methods("GET")
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/servers/{address}/check", h.CheckServer).Methods("POST")
	r.HandleFunc("/error/clear", h.ClearError).Methods("POST")
	r.Handle("/ws", h.hub).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/servers", h.GetServers).Methods("GET")
	api.HandleFunc("/servers/{address}", h.GetServer).Methods("GET")
	api.HandleFunc("/servers/{address}/check", h.CheckServerAPI).Methods("POST")
	api.HandleFunc("/error", h.ClearErrorAPI).Methods("DELETE")

	r.NotFoundHandler = http.HandlerFunc(NotFoundHandler)
	return r
}

// NotFoundHandler handles 404 errors
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}
