package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"go-storefront/services"
	"go-storefront/utils"
)

// CartController handles cart-related requests
type CartController struct {
	base
	carts *services.CartService
}

func NewCartController(carts *services.CartService, logger *slog.Logger, timeout time.Duration) *CartController {
	return &CartController{base: base{logger: logger, timeout: timeout}, carts: carts}
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// GetCart returns the caller's cart with every line resolved
func (cc *CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		cc.fail(w, r, err)
		return
	}

	ctx, cancel := cc.ctx(r)
	defer cancel()
	cart, err := cc.carts.GetCart(ctx, userID)
	if err != nil {
		cc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "", map[string]any{"cart": cart})
}

// AddToCart adds a product to the user's cart
func (cc *CartController) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		cc.fail(w, r, err)
		return
	}
	var req cartItemRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		cc.fail(w, r, err)
		return
	}
	productID, err := objectID("productId", req.ProductID)
	if err != nil {
		cc.fail(w, r, err)
		return
	}

	ctx, cancel := cc.ctx(r)
	defer cancel()
	cart, err := cc.carts.AddItem(ctx, userID, productID, req.Quantity)
	if err != nil {
		cc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "item added to cart", map[string]any{"cart": cart})
}

// UpdateCartItem sets the quantity of a line already in the cart
func (cc *CartController) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		cc.fail(w, r, err)
		return
	}
	var req cartItemRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		cc.fail(w, r, err)
		return
	}
	productID, err := objectID("productId", req.ProductID)
	if err != nil {
		cc.fail(w, r, err)
		return
	}

	ctx, cancel := cc.ctx(r)
	defer cancel()
	cart, err := cc.carts.UpdateQuantity(ctx, userID, productID, req.Quantity)
	if err != nil {
		cc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "cart updated", map[string]any{"cart": cart})
}

// RemoveFromCart removes a product from the user's cart
func (cc *CartController) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		cc.fail(w, r, err)
		return
	}
	var req cartItemRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		cc.fail(w, r, err)
		return
	}
	productID, err := objectID("productId", req.ProductID)
	if err != nil {
		cc.fail(w, r, err)
		return
	}

	ctx, cancel := cc.ctx(r)
	defer cancel()
	cart, err := cc.carts.RemoveItem(ctx, userID, productID)
	if err != nil {
		cc.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, "item removed from cart", map[string]any{"cart": cart})
}
