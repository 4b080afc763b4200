package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/clusterdash/internal/cluster"
	"github.com/koustreak/clusterdash/internal/errs"
	"github.com/koustreak/clusterdash/internal/logger"
	"github.com/koustreak/clusterdash/internal/version"
)

// Handler handles API requests.
type Handler struct {
	session *cluster.Session
	actions *cluster.Actions
	log     *logger.Logger
}

// NewHandler creates a new Handler.
func NewHandler(session *cluster.Session, actions *cluster.Actions, log *logger.Logger) *Handler {
	return &Handler{
		session: session,
		actions: actions,
		log:     log,
	}
}

// StatusResponse is the body of GET /api/status and POST /api/connect.
type StatusResponse struct {
	Connected bool   `json:"connected"`
	APIKey    string `json:"api_key,omitempty"`
	LastError string `json:"last_error,omitempty"`
	*cluster.Published
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": version.Version,
	})
}

// Status returns the published connection state. ?refresh=true re-probes
// the open connection first.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		h.session.Refresh(r.Context())
	}
	h.jsonResponse(w, http.StatusOK, h.statusResponse())
}

// Connect drops any open connection and connects with the posted credentials.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var creds cluster.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	logger.FromContext(r.Context()).InfoWith("connect requested", map[string]interface{}{
		"endpoint":  creds.Endpoint,
		"use_local": creds.UseLocal,
	})

	if !h.session.Reconnect(r.Context(), creds) {
		h.jsonResponse(w, http.StatusBadGateway, h.statusResponse())
		return
	}
	h.jsonResponse(w, http.StatusOK, h.statusResponse())
}

// Disconnect closes the connection and clears the published state.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Disconnect(); err != nil {
		logger.FromContext(r.Context()).WarnWith("disconnect failed", err, nil)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListActions returns the available actions.
func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"actions": h.actions.List(),
	})
}

// RunAction runs the named action against the open connection.
func (h *Handler) RunAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := h.actions.Lookup(name); !ok {
		h.jsonError(w, "unknown action: "+name, http.StatusNotFound)
		return
	}
	if !h.session.Manager().IsOpen() {
		h.jsonError(w, "not connected", http.StatusConflict)
		return
	}

	out, err := h.actions.Run(r.Context(), name)
	if err != nil {
		logger.FromContext(r.Context()).WarnWith("action failed", err, map[string]interface{}{"action": name})
		h.jsonError(w, err.Error(), statusFor(err))
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"action": name,
		"result": out,
	})
}

func (h *Handler) statusResponse() StatusResponse {
	resp := StatusResponse{LastError: h.session.LastError()}
	if pub, ok := h.session.Snapshot(); ok {
		resp.Connected = true
		resp.APIKey = maskKey(pub.APIKey)
		resp.Published = &pub
	}
	return resp
}

// statusFor maps a backend failure to a response code.
func statusFor(err error) int {
	switch {
	case errs.IsTimeout(err):
		return http.StatusGatewayTimeout
	case errs.IsInvalidInput(err):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// maskKey keeps the last four characters of key.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 4) + key[len(key)-4:]
}

// jsonResponse writes a JSON response.
func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.WarnWith("failed to encode response", err, nil)
	}
}

// jsonError writes a JSON error response.
func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	h.jsonResponse(w, status, map[string]string{
		"error": message,
	})
}
