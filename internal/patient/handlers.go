package patient

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Anandhalagan/LIMS/internal/identity"
	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Handlers exposes the patient registry over HTTP
type Handlers struct {
	service *Service
	logger  *logger.Logger
}

// NewHandlers creates patient HTTP handlers
func NewHandlers(service *Service, log *logger.Logger) *Handlers {
	return &Handlers{service: service, logger: log}
}

// RegisterRoutes attaches patient routes to the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/patients", h.register).Methods(http.MethodPost)
	router.HandleFunc("/patients", h.search).Methods(http.MethodGet)
	router.HandleFunc("/patients/{id:[0-9]+}", h.get).Methods(http.MethodGet)
	router.HandleFunc("/patients/{id:[0-9]+}", h.update).Methods(http.MethodPut)
	router.HandleFunc("/patients/{id:[0-9]+}", h.delete).Methods(http.MethodDelete)
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, types.NewValidationError(types.ErrCodeInvalidInput, "invalid request body", nil))
		return
	}

	view, err := h.service.Register(r.Context(), &input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if actor := identity.UserFromContext(r.Context()); actor != nil {
		h.logger.PIIAccess(actor.ID, id, "patient.view", true)
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, types.NewValidationError(types.ErrCodeInvalidInput, "invalid request body", nil))
		return
	}

	view, err := h.service.Update(r.Context(), id, &input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	actor := identity.UserFromContext(r.Context())
	if err := h.service.Delete(r.Context(), id, actor); err != nil {
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
