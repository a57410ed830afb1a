package order

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Handlers exposes orders, results and comments over HTTP
type Handlers struct {
	service *Service
	logger  *logger.Logger
}

// NewHandlers creates order HTTP handlers
func NewHandlers(service *Service, log *logger.Logger) *Handlers {
	return &Handlers{service: service, logger: log}
}

// RegisterRoutes attaches order routes to the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/orders", h.placeOrders).Methods(http.MethodPost)
	router.HandleFunc("/orders/{id:[0-9]+}", h.getOrder).Methods(http.MethodGet)
	router.HandleFunc("/patients/{id:[0-9]+}/orders", h.listForPatient).Methods(http.MethodGet)
	router.HandleFunc("/orders/{id:[0-9]+}/result", h.saveResult).Methods(http.MethodPost)
	router.HandleFunc("/orders/{id:[0-9]+}/result", h.getResult).Methods(http.MethodGet)
	router.HandleFunc("/orders/{id:[0-9]+}/result", h.editResult).Methods(http.MethodPut)
	router.HandleFunc("/orders/{id:[0-9]+}/result", h.deleteResult).Methods(http.MethodDelete)
	router.HandleFunc("/orders/{id:[0-9]+}/comments", h.addComment).Methods(http.MethodPost)
	router.HandleFunc("/orders/{id:[0-9]+}/comments", h.listComments).Methods(http.MethodGet)
}

type resultRequest struct {
	Values map[string]interface{} `json:"results"`
	Notes  string                 `json:"notes"`
}

func (h *Handlers) placeOrders(w http.ResponseWriter, r *http.Request) {
	var input PlaceOrdersInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, types.NewValidationError(types.ErrCodeInvalidInput, "invalid request body", nil))
		return
	}

	orders, err := h.service.PlaceOrders(r.Context(), &input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orders)
}

func (h *Handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	o, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handlers) listForPatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	orders, err := h.service.ListOrdersForPatient(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []*types.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handlers) saveResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req resultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewValidationError(types.ErrCodeInvalidInput, "invalid request body", nil))
		return
	}

	res, err := h.service.SaveResult(r.Context(), id, req.Values, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handlers) getResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.service.GetResult(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) editResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req resultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewValidationError(types.ErrCodeInvalidInput, "invalid request body", nil))
		return
	}

	res, err := h.service.EditResult(r.Context(), id, req.Values, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) deleteResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.DeleteResult(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) addComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewValidationError(types.ErrCodeInvalidInput, "invalid request body", nil))
		return
	}

	c, err := h.service.AddComment(r.Context(), id, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) listComments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	comments, err := h.service.ListComments(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if comments == nil {
		comments = []*types.OrderComment{}
	}
	writeJSON(w, http.StatusOK, comments)
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
