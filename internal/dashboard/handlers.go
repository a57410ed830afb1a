package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// Handlers exposes the latest dashboard snapshot over HTTP
type Handlers struct {
	poller *Poller
}

// NewHandlers creates dashboard HTTP handlers
func NewHandlers(poller *Poller) *Handlers {
	return &Handlers{poller: poller}
}

// RegisterRoutes attaches dashboard routes to the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/dashboard", h.latest).Methods(http.MethodGet)
}

func (h *Handlers) latest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.poller.Latest())
}
