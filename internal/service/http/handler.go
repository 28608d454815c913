// Package httpsvc реализует REST API заказов на chi.
package httpsvc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/api"
	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
)

// Сообщения успешных ответов.
const (
	MsgOrderCreated     = "Order created successfully"
	MsgOrdersRetrieved  = "Orders retrieved successfully"
	MsgOrderRetrieved   = "Order retrieved successfully"
	MsgSpendingRetrieve = "Customer spending data retrieved successfully"
	MsgOrderDeleted     = "Order deleted successfully"
)

const maxRequestBody = 1 << 20

// Handler обслуживает маршруты заказов для одного варианта API.
type Handler struct {
	svc      orders.Operations
	basePath string
	logger   *log.Entry
}

// NewHandler создаёт обработчик. basePath используется в заголовке Location.
func NewHandler(svc orders.Operations, basePath string, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	return &Handler{
		svc:      svc,
		basePath: strings.TrimRight(basePath, "/"),
		logger:   logger,
	}
}

// Routes возвращает под-роутер для монтирования в basePath.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.CreateOrder)
	r.Get("/", h.ListOrders)
	r.Get("/customers/spending", h.ListSpendingPerCustomer)
	r.Get("/customers/{customerName}", h.ListOrdersByCustomer)
	r.Get("/{id}", h.GetOrder)
	r.Delete("/{id}", h.DeleteOrder)
	return r
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req api.OrderRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.BadRequest("Invalid request body: "+err.Error()))
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), req.ToNewOrderInput())
	if err != nil {
		h.writeError(w, r, err, orders.ActionCreateOrder)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/%d", h.basePath, order.ID))
	writeJSON(w, http.StatusCreated, api.Created(MsgOrderCreated, api.FromOrder(order)))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, size, ok := parsePaging(w, query.Get("page"), query.Get("size"))
	if !ok {
		return
	}

	q := orders.ListOrdersQuery{
		Page:         page,
		Size:         size,
		Sort:         query.Get("sort"),
		Direction:    query.Get("order"),
		CustomerName: query.Get("customerName"),
	}
	var err error
	if q.From, err = parseOptionalDate(query.Get("from")); err != nil {
		writeJSON(w, http.StatusBadRequest, api.BadRequest("Invalid 'from' parameter: "+err.Error()))
		return
	}
	if q.To, err = parseOptionalDate(query.Get("to")); err != nil {
		writeJSON(w, http.StatusBadRequest, api.BadRequest("Invalid 'to' parameter: "+err.Error()))
		return
	}

	result, err := h.svc.ListOrders(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err, orders.ActionListOrders)
		return
	}
	writeJSON(w, http.StatusOK, api.Paginated(MsgOrdersRetrieved, api.FromOrders(result.Items), api.PageInfo(result)))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, orders.ActionGetOrder)
		return
	}
	writeJSON(w, http.StatusOK, api.Success(MsgOrderRetrieved, api.FromOrder(order)))
}

func (h *Handler) ListSpendingPerCustomer(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, size, ok := parsePaging(w, query.Get("page"), query.Get("size"))
	if !ok {
		return
	}

	result, err := h.svc.ListSpendingPerCustomer(r.Context(), page, size)
	if err != nil {
		h.writeError(w, r, err, orders.ActionListSpending)
		return
	}
	writeJSON(w, http.StatusOK, api.Paginated(MsgSpendingRetrieve, api.FromSpending(result.Items), api.PageInfo(result)))
}

func (h *Handler) ListOrdersByCustomer(w http.ResponseWriter, r *http.Request) {
	customerName := chi.URLParam(r, "customerName")
	query := r.URL.Query()
	page, size, ok := parsePaging(w, query.Get("page"), query.Get("size"))
	if !ok {
		return
	}

	result, err := h.svc.ListOrdersByCustomer(r.Context(), customerName, page, size)
	if err != nil {
		h.writeError(w, r, err, orders.ActionListCustomer)
		return
	}
	message := fmt.Sprintf("Orders for customer '%s' retrieved successfully", customerName)
	writeJSON(w, http.StatusOK, api.Paginated(message, api.FromOrders(result.Items), api.PageInfo(result)))
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), id); err != nil {
		h.writeError(w, r, err, orders.ActionDeleteOrder)
		return
	}
	writeJSON(w, http.StatusOK, api.Success(MsgOrderDeleted, nil))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, action string) {
	code, body := api.ErrorResponse(err, action)
	if code >= http.StatusInternalServerError {
		h.logger.WithError(err).WithFields(log.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"action":     action,
		}).Error("request failed")
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.BadRequest(fmt.Sprintf("Invalid order id '%s'", raw)))
		return 0, false
	}
	return id, true
}

// parsePaging разбирает page/size. Отсутствующий page означает первую страницу,
// отсутствующий size: domain.DefaultPageSize. Явные значения уходят в сервис как есть.
func parsePaging(w http.ResponseWriter, rawPage, rawSize string) (int, int, bool) {
	page, err := parseOptionalInt(rawPage, 1)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.BadRequest("Invalid 'page' parameter: must be an integer"))
		return 0, 0, false
	}
	size, err := parseOptionalInt(rawSize, domain.DefaultPageSize)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.BadRequest("Invalid 'size' parameter: must be an integer"))
		return 0, 0, false
	}
	return page, size, true
}

func parseOptionalInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func parseOptionalDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := api.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return d.Time, nil
}
