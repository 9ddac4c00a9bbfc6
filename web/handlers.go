// Package web renders the server listing and exposes the status controller
// over HTTP and websocket.
package web

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/skyezerfox/moss/registry"
	"github.com/skyezerfox/moss/status"
)

type Handler struct {
	registry   *registry.Registry
	controller *status.Controller
	hub        *Hub
	limiters   *limiterSet
	trustProxy bool
}

// Options tunes the check endpoint throttle. With TrustProxy set, clients
// are identified by X-Forwarded-For / X-Real-IP instead of the peer address.
type Options struct {
	CheckRate  float64
	CheckBurst int
	TrustProxy bool
}

// New creates the handler and subscribes its hub to controller changes.
func New(reg *registry.Registry, c *status.Controller, opts Options) *Handler {
	h := &Handler{
		registry:   reg,
		controller: c,
		limiters:   newLimiterSet(opts.CheckRate, opts.CheckBurst),
		trustProxy: opts.TrustProxy,
	}
	h.hub = NewHub(h.Listing)
	c.Subscribe(h.hub.Broadcast)
	return h
}

// Hub returns the websocket hub.
func (h *Handler) Hub() *Hub {
	return h.hub
}

// Listing returns the current page state.
func (h *Handler) Listing() Listing {
	return buildListing(h.registry, h.controller)
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}

// getClientIP returns the peer IP. Forwarding headers are client supplied,
// so they are only honored behind a trusted proxy.
func getClientIP(r *http.Request, trustProxy bool) string {
	if !trustProxy {
		return remoteIP(r)
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	return remoteIP(r)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Index handles GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, h.Listing()); err != nil {
		log.Err(err).Msg("Failed to render listing")
	}
}

// GetServers handles GET /api/servers
func (h *Handler) GetServers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Listing())
}

// GetServer handles GET /api/servers/{address}
func (h *Handler) GetServer(w http.ResponseWriter, r *http.Request) {
	srv, ok := h.registry.Lookup(mux.Vars(r)["address"])
	if !ok {
		respondError(w, http.StatusNotFound, "SERVER_NOT_FOUND", "Unknown server address")
		return
	}
	respondJSON(w, http.StatusOK, buildCard(h.controller, srv))
}

// startCheck validates and throttles a check request. It writes the error
// response itself and reports whether the check was started.
func (h *Handler) startCheck(w http.ResponseWriter, r *http.Request) bool {
	address := mux.Vars(r)["address"]
	if _, ok := h.registry.Lookup(address); !ok {
		respondError(w, http.StatusNotFound, "SERVER_NOT_FOUND", "Unknown server address")
		return false
	}

	ip := getClientIP(r, h.trustProxy)
	if !h.limiters.allow(ip) {
		log.Warn().Str("ip", ip).Str("addr", address).Msg("Rate limit exceeded")
		respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many status checks")
		return false
	}

	h.controller.RequestStatus(address)
	return true
}

// CheckServer handles POST /servers/{address}/check from the HTML form.
func (h *Handler) CheckServer(w http.ResponseWriter, r *http.Request) {
	if h.startCheck(w, r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// CheckServerAPI handles POST /api/servers/{address}/check
func (h *Handler) CheckServerAPI(w http.ResponseWriter, r *http.Request) {
	if h.startCheck(w, r) {
		srv, _ := h.registry.Lookup(mux.Vars(r)["address"])
		respondJSON(w, http.StatusAccepted, buildCard(h.controller, srv))
	}
}

// ClearError handles POST /error/clear from the HTML error panel.
func (h *Handler) ClearError(w http.ResponseWriter, r *http.Request) {
	h.controller.ClearError()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ClearErrorAPI handles DELETE /api/error
func (h *Handler) ClearErrorAPI(w http.ResponseWriter, r *http.Request) {
	h.controller.ClearError()
	respondJSON(w, http.StatusOK, h.Listing())
}
