package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
	"go-storefront/services"
	"go-storefront/utils"
)

// RoleChecker answers whether a user holds a role.
type RoleChecker interface {
	HasRole(ctx context.Context, userID primitive.ObjectID, role models.Role) (bool, error)
}

// OrderController handles order-related requests
type OrderController struct {
	base
	orders *services.OrderService
	roles  RoleChecker
	feed   http.Handler
}

// NewOrderController wires the order endpoints. feed serves the admin
// websocket stream of order events.
func NewOrderController(orders *services.OrderService, roles RoleChecker, feed http.Handler, logger *slog.Logger, timeout time.Duration) *OrderController {
	return &OrderController{base: base{logger: logger, timeout: timeout}, orders: orders, roles: roles, feed: feed}
}

// CreateOrder turns the caller's cart into an order
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		oc.fail(w, r, err)
		return
	}
	var in services.PlaceOrderInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		oc.fail(w, r, err)
		return
	}

	ctx, cancel := oc.ctx(r)
	defer cancel()
	order, err := oc.orders.PlaceOrder(ctx, userID, in)
	if err != nil {
		oc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, "order placed successfully", map[string]any{"order": order})
}

// GetMyOrders lists the caller's orders, newest first
func (oc *OrderController) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		oc.fail(w, r, err)
		return
	}

	ctx, cancel := oc.ctx(r)
	defer cancel()
	orders, err := oc.orders.GetUserOrders(ctx, userID)
	if err != nil {
		oc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "", map[string]any{"orders": orders, "count": len(orders)})
}

// GetOrders lists every order (Admin only)
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := oc.ctx(r)
	defer cancel()
	orders, err := oc.orders.GetAllOrders(ctx)
	if err != nil {
		oc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "", map[string]any{"orders": orders, "count": len(orders)})
}

// GetOrderByID returns one order to its owner or an admin
func (oc *OrderController) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		oc.fail(w, r, err)
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		oc.fail(w, r, err)
		return
	}

	ctx, cancel := oc.ctx(r)
	defer cancel()
	isAdmin, err := oc.roles.HasRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		oc.fail(w, r, err)
		return
	}
	order, err := oc.orders.GetOrder(ctx, orderID, userID, isAdmin)
	if err != nil {
		oc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "", map[string]any{"order": order})
}

// UpdateOrderStatus changes order or payment status (Admin only)
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		oc.fail(w, r, err)
		return
	}
	var in services.StatusUpdate
	if err := decodeJSON(w, r, &in, false); err != nil {
		oc.fail(w, r, err)
		return
	}

	ctx, cancel := oc.ctx(r)
	defer cancel()
	order, err := oc.orders.UpdateOrderStatus(ctx, orderID, in)
	if err != nil {
		oc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "order status updated", map[string]any{"order": order})
}

// Feed upgrades to a websocket that streams order events (Admin only)
func (oc *OrderController) Feed(w http.ResponseWriter, r *http.Request) {
	oc.feed.ServeHTTP(w, r)
}
