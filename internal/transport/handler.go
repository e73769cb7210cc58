// Package transport exposes the order workflow over JSON/HTTP.
package transport

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"arasta-be/internal/inventory"
	"arasta-be/internal/logger"
	"arasta-be/internal/middleware"
	"arasta-be/internal/order"
	"arasta-be/internal/payment"
	"arasta-be/internal/utils"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handler struct {
	orders order.Service
	db     *sql.DB
}

func NewHandler(orders order.Service, db *sql.DB) *Handler {
	return &Handler{orders: orders, db: db}
}

// Routes wires every endpoint onto a fresh mux with the shared middleware
// chain applied. The payment callback stays public: the gateway redirects
// the buyer's browser there without our cookies.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /orders", middleware.RequireAuth(http.HandlerFunc(h.createOrder)))
	mux.HandleFunc("GET /orders/payment/verify", h.verifyPayment)
	mux.Handle("GET /orders", middleware.RequireAuth(http.HandlerFunc(h.listOrders)))
	mux.Handle("GET /orders/{id}", middleware.RequireAuth(http.HandlerFunc(h.getOrder)))
	mux.Handle("POST /orders/{id}/cancel", middleware.RequireAuth(http.HandlerFunc(h.cancelOrder)))
	mux.Handle("PATCH /orders/{id}/tracking", middleware.RequireAdmin(http.HandlerFunc(h.setTracking)))
	mux.Handle("PATCH /orders/{id}/status", middleware.RequireAdmin(http.HandlerFunc(h.updateStatus)))

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", h.healthz)

	var handler http.Handler = mux
	handler = middleware.AuthMiddleware(handler)
	handler = middleware.RateLimitMiddleware(handler)
	handler = logger.LoggingMiddleware(handler)
	handler = logger.RequestIDMiddleware(handler)
	return handler
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var input order.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	res, err := h.orders.Create(r.Context(), userID, input)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, res)
}

type verifyResponse struct {
	Status string `json:"status"`
	RefID  string `json:"refId,omitempty"`
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	authority := r.URL.Query().Get("Authority")
	status := r.URL.Query().Get("Status")
	if authority == "" {
		utils.WriteJSONError(w, "missing Authority parameter", http.StatusBadRequest)
		return
	}

	out, err := h.orders.VerifyPayment(r.Context(), authority, status)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	resp := verifyResponse{Status: "success", RefID: out.RefID}
	if out.AlreadyVerified {
		resp.Status = "already_verified"
		if out.Order.RefID != nil {
			resp.RefID = *out.Order.RefID
		}
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	orders, err := h.orders.ListUserOrders(r.Context(), userID)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	isAdmin := utils.GetUserRoleFromContext(r.Context()) == utils.RoleAdmin

	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return
	}

	o, err := h.orders.GetOrder(r.Context(), userID, orderID, isAdmin)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return
	}

	if err := h.orders.Cancel(r.Context(), userID, orderID); err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) setTracking(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return
	}

	var body struct {
		TrackingCode string `json:"trackingCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if err := h.orders.UpdateTrackingCode(r.Context(), orderID, body.TrackingCode); err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"trackingCode": body.TrackingCode})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return
	}

	var body struct {
		OrderStatus order.OrderStatus `json:"orderStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), orderID, body.OrderStatus); err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"orderStatus": string(body.OrderStatus)})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		utils.WriteJSONError(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeOrderError maps service errors to HTTP statuses.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound), errors.Is(err, inventory.ErrProductNotFound):
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, order.ErrUnauthorized):
		utils.WriteJSONError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, order.ErrPendingOrderExists),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrPaymentCancelled),
		errors.Is(err, order.ErrPaymentVerificationFailed):
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrOrderNotShipped):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)
	case payment.IsGatewayError(err), errors.Is(err, payment.ErrAlreadyVerified):
		utils.WriteJSONError(w, "payment gateway error", http.StatusBadGateway)
	default:
		logger.FromCtx(r.Context()).Error("unhandled request error", zap.Error(err))
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
