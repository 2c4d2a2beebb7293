package routes

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"go-storefront/controllers"
	"go-storefront/middleware"
	"go-storefront/utils"
)

const objectID = "{id:[0-9a-fA-F]{24}}"

// Controllers groups every handler set the router serves.
type Controllers struct {
	Users      *controllers.UserController
	Products   *controllers.ProductController
	Categories *controllers.CategoryController
	Carts      *controllers.CartController
	Orders     *controllers.OrderController
	Reviews    *controllers.ReviewController
	Health     *controllers.HealthController
}

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, c Controllers, authn middleware.Authenticator, logger *slog.Logger) {
	authed := middleware.AuthMiddleware(authn, logger)
	adminOnly := middleware.AdminMiddleware(authn, logger)

	protected := func(h http.HandlerFunc) http.Handler { return authed(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authed(adminOnly(h)) }

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusNotFound, "route not found", nil)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	router.HandleFunc("/healthz", c.Health.Healthz).Methods(http.MethodGet)

	// Auth routes
	router.HandleFunc("/auth/register", c.Users.Register).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", c.Users.Login).Methods(http.MethodPost)
	router.HandleFunc("/auth/forgot-password", c.Users.ForgotPassword).Methods(http.MethodPost)
	router.HandleFunc("/auth/reset-password/{token}", c.Users.ResetPassword).Methods(http.MethodPost)
	router.Handle("/auth/profile", protected(c.Users.GetProfile)).Methods(http.MethodGet)

	// Product routes
	router.HandleFunc("/products", c.Products.GetProducts).Methods(http.MethodGet)
	router.Handle("/products", admin(c.Products.CreateProduct)).Methods(http.MethodPost)
	router.Handle("/products/export", admin(c.Products.ExportProducts)).Methods(http.MethodGet)
	router.Handle("/products/import", admin(c.Products.ImportProducts)).Methods(http.MethodPost)
	router.HandleFunc("/products/"+objectID, c.Products.GetProductByID).Methods(http.MethodGet)
	router.Handle("/products/"+objectID, admin(c.Products.UpdateProduct)).Methods(http.MethodPut)
	router.Handle("/products/"+objectID, admin(c.Products.DeleteProduct)).Methods(http.MethodDelete)

	// Category routes
	router.HandleFunc("/categories", c.Categories.GetCategories).Methods(http.MethodGet)
	router.Handle("/categories", admin(c.Categories.CreateCategory)).Methods(http.MethodPost)
	router.Handle("/categories/"+objectID, admin(c.Categories.UpdateCategory)).Methods(http.MethodPut)
	router.Handle("/categories/"+objectID, admin(c.Categories.DeleteCategory)).Methods(http.MethodDelete)
	router.HandleFunc("/categories/{slug}", c.Categories.GetCategoryBySlug).Methods(http.MethodGet)

	// Cart routes
	router.Handle("/cart", protected(c.Carts.GetCart)).Methods(http.MethodGet)
	router.Handle("/cart/add", protected(c.Carts.AddToCart)).Methods(http.MethodPost)
	router.Handle("/cart/remove", protected(c.Carts.RemoveFromCart)).Methods(http.MethodPost)
	router.Handle("/cart/update", protected(c.Carts.UpdateCartItem)).Methods(http.MethodPut)

	// Order routes
	router.Handle("/orders", protected(c.Orders.CreateOrder)).Methods(http.MethodPost)
	router.Handle("/orders", admin(c.Orders.GetOrders)).Methods(http.MethodGet)
	router.Handle("/orders/my", protected(c.Orders.GetMyOrders)).Methods(http.MethodGet)
	router.Handle("/orders/feed", admin(c.Orders.Feed)).Methods(http.MethodGet)
	router.Handle("/orders/"+objectID, protected(c.Orders.GetOrderByID)).Methods(http.MethodGet)
	router.Handle("/orders/"+objectID+"/status", admin(c.Orders.UpdateOrderStatus)).Methods(http.MethodPut)

	// Review routes
	router.Handle("/reviews", protected(c.Reviews.CreateReview)).Methods(http.MethodPost)
	router.HandleFunc("/reviews/product/{productId:[0-9a-fA-F]{24}}", c.Reviews.GetProductReviews).Methods(http.MethodGet)
}
