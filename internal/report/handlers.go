package report

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Handlers exposes assembled reports over HTTP
type Handlers struct {
	service *Service
}

// NewHandlers creates report HTTP handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes attaches report routes to the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/orders/{id:[0-9]+}/report", h.forOrder).Methods(http.MethodGet)
	router.HandleFunc("/groups/{groupID}/report", h.forGroup).Methods(http.MethodGet)
}

func (h *Handlers) forOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, types.NewValidationError(types.ErrCodeInvalidInput, "invalid id", nil))
		return
	}

	report, err := h.service.ForOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) forGroup(w http.ResponseWriter, r *http.Request) {
	sections, err := h.service.ForGroup(r.Context(), mux.Vars(r)["groupID"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, types.HTTPStatus(err), map[string]string{"error": err.Error()})
}
