package billing

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Handlers exposes invoice computation over HTTP
type Handlers struct {
	service *Service
}

// NewHandlers creates billing HTTP handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes attaches billing routes to the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/groups/{groupID}/invoice", h.invoice).Methods(http.MethodGet)
}

func (h *Handlers) invoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.service.InvoiceForGroup(r.Context(), mux.Vars(r)["groupID"])
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(types.HTTPStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(invoice)
}
