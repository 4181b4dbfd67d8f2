package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderflow/orderflow/internal/order/application"
	"github.com/orderflow/orderflow/internal/order/domain"
)

type Handler struct {
	log    *slog.Logger
	coord  *application.Coordinator
	tracer trace.Tracer
}

func NewHandler(log *slog.Logger, coord *application.Coordinator) *Handler {
	return &Handler{
		log:    log,
		coord:  coord,
		tracer: otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", h.health)
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.placeOrder)
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}/status", h.updateStatus)
		r.Put("/{id}/payment", h.updatePayment)
		r.Delete("/{id}", h.cancelOrder)
	})
	return r
}

type placeOrderReq struct {
	CustomerID      string               `json:"customerId"`
	Items           []domain.ItemRequest `json:"items"`
	ShippingAddress domain.Address       `json:"shippingAddress"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod"`
	Notes           string               `json:"notes"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PlaceOrder")
	defer span.End()

	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &domain.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}

	o, err := h.coord.PlaceOrder(ctx, application.PlaceOrderInput{
		CustomerID:      req.CustomerID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	orders, err := h.coord.ListOrders(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.coord.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	var req struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeError(w, &domain.ValidationError{Field: "status", Reason: "required"})
		return
	}

	o, err := h.coord.UpdateOrderStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdatePaymentStatus")
	defer span.End()

	var req struct {
		PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentStatus == "" {
		writeError(w, &domain.ValidationError{Field: "paymentStatus", Reason: "required"})
		return
	}

	o, err := h.coord.UpdatePaymentStatus(ctx, chi.URLParam(r, "id"), req.PaymentStatus)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()

	id := chi.URLParam(r, "id")
	if _, err := h.coord.CancelOrder(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(domain.StatusCancelled)})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Order Service API is running"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain taxonomy onto HTTP statuses. A missing order
// is 404; every other rejection (validation, stock shortage, illegal
// transition, dependency failure) is a 400.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, domain.ErrOrderNotFound) {
		status = http.StatusNotFound
	}

	body := map[string]any{"message": err.Error()}
	var stock *domain.InsufficientStockError
	if errors.As(err, &stock) {
		body["productId"] = stock.ProductID
		body["name"] = stock.ProductName
		body["requested"] = stock.Requested
		body["available"] = stock.Available
	}
	var illegal *domain.IllegalTransitionError
	if errors.As(err, &illegal) {
		body["from"] = string(illegal.From)
		body["to"] = string(illegal.To)
	}
	writeJSON(w, status, body)
}
