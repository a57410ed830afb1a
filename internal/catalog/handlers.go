package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Handlers exposes the catalog over HTTP
type Handlers struct {
	service *Service
	logger  *logger.Logger
}

// NewHandlers creates catalog HTTP handlers
func NewHandlers(service *Service, log *logger.Logger) *Handlers {
	return &Handlers{service: service, logger: log}
}

// RegisterRoutes attaches catalog routes to the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/tests", h.createTest).Methods(http.MethodPost)
	router.HandleFunc("/tests", h.listTests).Methods(http.MethodGet)
	router.HandleFunc("/tests/{id:[0-9]+}", h.getTest).Methods(http.MethodGet)
	router.HandleFunc("/tests/{id:[0-9]+}", h.updateTest).Methods(http.MethodPut)
	router.HandleFunc("/tests/{id:[0-9]+}", h.deleteTest).Methods(http.MethodDelete)
	router.HandleFunc("/tests/code/{code}", h.getTestByCode).Methods(http.MethodGet)
}

func (h *Handlers) createTest(w http.ResponseWriter, r *http.Request) {
	var test types.LabTest
	if err := json.NewDecoder(r.Body).Decode(&test); err != nil {
		writeError(w, types.NewValidationError(types.ErrCodeInvalidInput, "invalid request body", nil))
		return
	}

	created, err := h.service.CreateTest(r.Context(), &test)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) listTests(w http.ResponseWriter, r *http.Request) {
	tests, err := h.service.ListTests(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, err)
		return
	}
	if tests == nil {
		tests = []*types.LabTest{}
	}
	writeJSON(w, http.StatusOK, tests)
}

func (h *Handlers) getTest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	test, err := h.service.GetTest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

func (h *Handlers) getTestByCode(w http.ResponseWriter, r *http.Request) {
	test, err := h.service.GetTestByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

func (h *Handlers) updateTest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var test types.LabTest
	if err := json.NewDecoder(r.Body).Decode(&test); err != nil {
		writeError(w, types.NewValidationError(types.ErrCodeInvalidInput, "invalid request body", nil))
		return
	}
	test.ID = id

	if err := h.service.UpdateTest(r.Context(), &test); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

func (h *Handlers) deleteTest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.DeleteTest(r.Context(), id); err != nil {
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
