package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tapline-dev/tapline/internal/intercept"
)

// interceptorJSON is a serializable snapshot of one registration. Handlers
// are reported by direction only; the functions themselves are opaque.
type interceptorJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority"`
	Enabled     bool   `json:"enabled"`
	HasInput    bool   `json:"has_input"`
	HasOutput   bool   `json:"has_output"`
}

func toJSON(reg intercept.Registration) interceptorJSON {
	return interceptorJSON{
		ID:          reg.ID,
		Name:        reg.Name,
		Description: reg.Description,
		Priority:    reg.Priority,
		Enabled:     reg.Enabled == nil || *reg.Enabled,
		HasInput:    reg.OnInput != nil,
		HasOutput:   reg.OnOutput != nil,
	}
}

// handleListInterceptors returns every registration in registration order.
func (g *Gateway) handleListInterceptors() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		list := []interceptorJSON{}
		for _, reg := range g.registry.All() {
			list = append(list, toJSON(reg))
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// patchRequest is the body for PATCH /api/interceptors/{id}.
type patchRequest struct {
	Enabled *bool `json:"enabled"`
}

// handlePatchInterceptor toggles an interceptor. The change is applied by
// re-registering the entry: in-flight pipeline runs keep the snapshot they
// already selected.
func (g *Gateway) handlePatchInterceptor() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		reg, ok := g.registry.Get(id)
		if !ok {
			http.Error(w, "interceptor not found", http.StatusNotFound)
			return
		}

		var req patchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Enabled == nil {
			http.Error(w, "enabled field is required", http.StatusBadRequest)
			return
		}

		reg.Enabled = req.Enabled
		g.registry.Register(reg)
		g.logger.Info("interceptor toggled", "id", id, "enabled", *req.Enabled)
		writeJSON(w, http.StatusOK, toJSON(reg))
	}
}

// handleDeleteInterceptor unregisters an interceptor.
func (g *Gateway) handleDeleteInterceptor() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !g.registry.Unregister(id) {
			http.Error(w, "interceptor not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// statusJSON is the GET /status response.
type statusJSON struct {
	Status       string `json:"status"`
	SessionID    string `json:"session_id"`
	Interceptors int    `json:"interceptors"`
	UptimeSec    int64  `json:"uptime_seconds"`
}

func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, statusJSON{
			Status:       "ok",
			SessionID:    g.registry.SessionID(),
			Interceptors: len(g.registry.All()),
			UptimeSec:    int64(time.Since(g.startedAt).Seconds()),
		})
	}
}

func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
