package archive

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Anandhalagan/LIMS/internal/identity"
	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Handlers exposes the archive over HTTP
type Handlers struct {
	service *Service
	logger  *logger.Logger
}

// NewHandlers creates archive HTTP handlers
func NewHandlers(service *Service, log *logger.Logger) *Handlers {
	return &Handlers{service: service, logger: log}
}

// RegisterRoutes attaches archive routes to the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/archive", h.list).Methods(http.MethodGet)
	router.HandleFunc("/archive/{id:[0-9]+}/restore", h.restore).Methods(http.MethodPost)
	router.HandleFunc("/archive/{id:[0-9]+}", h.purge).Methods(http.MethodDelete)
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handlers) restore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	restored, err := h.service.RestorePatient(r.Context(), id, identity.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, restored)
}

func (h *Handlers) purge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Purge(r.Context(), id, identity.UserFromContext(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, types.NewValidationError(types.ErrCodeInvalidInput, "invalid id", nil)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, types.HTTPStatus(err), map[string]string{"error": err.Error()})
}
