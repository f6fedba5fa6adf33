// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"simplane/internal/registry"
	"simplane/internal/store"
	"simplane/pkg/api"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers and their dependencies. All scheduling
// decisions live in the registry and runners; handlers only translate.
type Handlers struct {
	registry *registry.Registry
	store    store.JobStore
	pinger   Pinger // nil for stores without a connection to check
}

// New creates a new Handlers instance.
func New(reg *registry.Registry, st store.JobStore, pinger Pinger) *Handlers {
	return &Handlers{registry: reg, store: st, pinger: pinger}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
