package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mealcourt/go-food-orders/internal/auth"
	"github.com/mealcourt/go-food-orders/internal/orders"
	"github.com/mealcourt/go-food-orders/internal/payments"
	"github.com/mealcourt/go-food-orders/internal/restaurants"
	"github.com/mealcourt/go-food-orders/internal/validation"
)

type OrdersHandler struct {
	Service *orders.Service
}

func (h *OrdersHandler) Register(r chi.Router, requireUser func(http.Handler) http.Handler) {
	r.Group(func(g chi.Router) {
		g.Use(requireUser)
		g.Post("/order/checkout/session", h.createCheckoutSession)
		g.Get("/order", h.listMyOrders)
		g.Get("/restaurant/order", h.listRestaurantOrders)
		g.Patch("/restaurant/order/{orderID}/status", h.updateOrderStatus)
	})

	// No auth and no body-touching middleware here: the signature is
	// computed over the exact bytes the provider sent.
	r.Post("/order/checkout/webhook", h.handleWebhook)
}

func (h *OrdersHandler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req validation.CheckoutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.ValidateCheckoutRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cart := make([]orders.CartItem, 0, len(req.CartItems))
	for _, it := range req.CartItems {
		cart = append(cart, orders.CartItem{MenuItemID: it.MenuItemID, Quantity: int(it.Quantity)})
	}

	url, err := h.Service.CreateCheckoutSession(r.Context(), userID, orders.CheckoutRequest{
		RestaurantID: req.RestaurantID,
		CartItems:    cart,
		DeliveryDetails: orders.DeliveryDetails{
			Email:        req.DeliveryDetails.Email,
			Name:         req.DeliveryDetails.Name,
			AddressLine1: req.DeliveryDetails.AddressLine1,
			City:         req.DeliveryDetails.City,
		},
	})
	if err != nil {
		var provErr *payments.ProviderError
		switch {
		case errors.Is(err, restaurants.ErrNotFound):
			writeError(w, http.StatusNotFound, "restaurant not found")
		case errors.As(err, &provErr):
			writeError(w, http.StatusInternalServerError, provErr.Message)
		default:
			var unknownItem orders.UnknownMenuItemError
			if errors.As(err, &unknownItem) {
				writeError(w, http.StatusInternalServerError, unknownItem.Error())
				return
			}
			internalError(w, "create checkout session", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *OrdersHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	err = h.Service.HandleWebhookEvent(r.Context(), payload, r.Header.Get(payments.SignatureHeader))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, payments.ErrSignatureInvalid):
		writeError(w, http.StatusBadRequest, "webhook signature verification failed")
	case errors.Is(err, orders.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	default:
		internalError(w, "handle webhook", err)
	}
}

func (h *OrdersHandler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	list, err := h.Service.ListForUser(r.Context(), userID)
	if err != nil {
		internalError(w, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) listRestaurantOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	list, err := h.Service.ListForRestaurantOwner(r.Context(), userID)
	if err != nil {
		if errors.Is(err, restaurants.ErrNotFound) {
			writeError(w, http.StatusNotFound, "restaurant not found")
			return
		}
		internalError(w, "list restaurant orders", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	order, err := h.Service.UpdateStatus(r.Context(),
		chi.URLParam(r, "orderID"), orders.Status(req.Status), userID)
	if err != nil {
		var invalid orders.InvalidStatusError
		switch {
		case errors.As(err, &invalid):
			writeError(w, http.StatusBadRequest, invalid.Error())
		case errors.Is(err, orders.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, orders.ErrForbidden):
			writeError(w, http.StatusForbidden, "not your restaurant's order")
		default:
			internalError(w, "update order status", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// internalError logs the real cause and leaks nothing to the client.
func internalError(w http.ResponseWriter, action string, err error) {
	slog.Error(action, "err", err)
	writeError(w, http.StatusInternalServerError, "something went wrong")
}
