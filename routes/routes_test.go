package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-storefront/config"
	"go-storefront/controllers"
	"go-storefront/events"
	"go-storefront/middleware"
	"go-storefront/routes"
	"go-storefront/services"
	"go-storefront/store/memstore"
	"go-storefront/utils"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type captureMailer struct {
	mu   sync.Mutex
	sent []utils.Message
}

func (m *captureMailer) Send(_ context.Context, msg utils.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) last() utils.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type app struct {
	router *mux.Router
	hub    *events.Hub
	mailer *captureMailer
}

func newApp(t *testing.T) *app {
	t.Helper()
	s := memstore.New()
	mailer := &captureMailer{}
	hub := events.NewHub(discard, nil)

	authCfg := config.AuthConfig{
		JWTSecret:     "route-secret",
		TokenTTL:      time.Hour,
		ResetTokenTTL: 15 * time.Minute,
		AdminEmails:   []string{"admin@shop.test"},
	}
	auth := services.NewAuthService(s.Users(), s.TokenLedger(), utils.NewTokenIssuer(authCfg.JWTSecret, authCfg.TokenTTL), mailer, discard, authCfg, "http://shop.test")
	catalog := services.NewCatalogService(s, s.Products(), s.Categories())
	orders := services.NewOrderService(s, s.Carts(), s.Products(), s.Orders(), hub, discard)

	timeout := 5 * time.Second
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(discard), middleware.Recoverer(discard))
	routes.RegisterRoutes(router, routes.Controllers{
		Users:      controllers.NewUserController(auth, discard, timeout),
		Products:   controllers.NewProductController(catalog, discard, timeout),
		Categories: controllers.NewCategoryController(catalog, discard, timeout),
		Carts:      controllers.NewCartController(services.NewCartService(s.Carts(), s.Products()), discard, timeout),
		Orders:     controllers.NewOrderController(orders, auth, http.HandlerFunc(hub.ServeWS), discard, timeout),
		Reviews:    controllers.NewReviewController(services.NewReviewService(s, s.Reviews(), s.Products(), s.Orders()), discard, timeout),
		Health:     controllers.NewHealthController(map[string]controllers.Pinger{"database": s}, discard, timeout),
	}, auth, discard)

	return &app{router: router, hub: hub, mailer: mailer}
}

type response struct {
	status int
	body   map[string]any
}

func (a *app) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.serve(t, req)
}

func (a *app) serve(t *testing.T, req *http.Request) response {
	t.Helper()
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	out := response{status: rec.Code, body: map[string]any{}}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out.body), rec.Body.String())
	}
	return out
}

func (a *app) signup(t *testing.T, email string) string {
	t.Helper()
	res := a.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Shopper", "email": email, "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, res.status, res.body)
	res = a.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, res.status, res.body)
	return res.body["token"].(string)
}

func field(t *testing.T, body map[string]any, path ...string) any {
	t.Helper()
	var cur any = body
	for _, key := range path {
		m, ok := cur.(map[string]any)
		require.True(t, ok, "no %q in %v", key, cur)
		cur = m[key]
	}
	return cur
}

// seed creates a category and one product and returns their ids.
func (a *app) seed(t *testing.T, admin string, stock int) (categoryID, productID string) {
	t.Helper()
	res := a.do(t, http.MethodPost, "/categories", admin, map[string]any{"name": "Kitchen Tools"})
	require.Equal(t, http.StatusCreated, res.status, res.body)
	categoryID = field(t, res.body, "category", "id").(string)

	res = a.do(t, http.MethodPost, "/products", admin, map[string]any{
		"name": "Whisk", "price": "12.50", "stock": stock, "categoryId": categoryID,
	})
	require.Equal(t, http.StatusCreated, res.status, res.body)
	return categoryID, field(t, res.body, "product", "id").(string)
}

func validOrder() map[string]any {
	return map[string]any{
		"shippingAddress": map[string]any{
			"street": "1 Main St", "city": "Springfield", "state": "IL", "postalCode": "62701", "country": "US",
		},
		"paymentMethod": "paypal",
	}
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)
	token := a.signup(t, "buyer@shop.test")

	res := a.do(t, http.MethodGet, "/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "buyer@shop.test", field(t, res.body, "user", "email"))
	assert.Equal(t, "customer", field(t, res.body, "user", "role"))
	assert.Nil(t, field(t, res.body, "user", "password"))

	res = a.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Again", "email": "BUYER@shop.test", "password": "secret1", "role": "admin",
	})
	assert.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, false, res.body["success"])

	res = a.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "buyer@shop.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, res.status)

	res = a.do(t, http.MethodGet, "/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)

	res = a.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]any{"email": "buyer@shop.test"})
	require.Equal(t, http.StatusOK, res.status, res.body)
	text := a.mailer.last().Text
	reset := strings.Fields(text[strings.Index(text, "/reset-password/")+len("/reset-password/"):])[0]

	body := map[string]any{"password": "newpass1", "confirmPassword": "newpass1"}
	res = a.do(t, http.MethodPost, "/auth/reset-password/"+reset, "", body)
	require.Equal(t, http.StatusOK, res.status, res.body)
	res = a.do(t, http.MethodPost, "/auth/reset-password/"+reset, "", body)
	assert.Equal(t, http.StatusUnauthorized, res.status)

	res = a.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "buyer@shop.test", "password": "newpass1"})
	assert.Equal(t, http.StatusOK, res.status)
}

func TestCatalogAccessControl(t *testing.T) {
	a := newApp(t)
	admin := a.signup(t, "admin@shop.test")
	customer := a.signup(t, "buyer@shop.test")

	body := map[string]any{"name": "Nope"}
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodPost, "/categories", "", body).status)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPost, "/categories", customer, body).status)

	categoryID, productID := a.seed(t, admin, 3)

	res := a.do(t, http.MethodGet, "/categories/kitchen-tools", "", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, categoryID, field(t, res.body, "category", "id"))

	res = a.do(t, http.MethodPost, "/categories", admin, map[string]any{"name": "kitchen tools"})
	assert.Equal(t, http.StatusConflict, res.status, "slug collides")

	res = a.do(t, http.MethodGet, "/products/"+productID, "", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "12.5", field(t, res.body, "product", "price"))

	res = a.do(t, http.MethodPut, "/products/"+productID, admin, map[string]any{"stock": -1})
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = a.do(t, http.MethodDelete, "/categories/"+categoryID, admin, nil)
	assert.Equal(t, http.StatusConflict, res.status)

	res = a.do(t, http.MethodGet, "/products?category=kitchen-tools&page=1&page_size=500", "", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, float64(100), res.body["pageSize"])
	assert.Len(t, res.body["products"], 1)

	res = a.do(t, http.MethodGet, "/products?page=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.status)
	res = a.do(t, http.MethodGet, "/products?page=184467440737095516", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = a.do(t, http.MethodGet, "/products/not-an-id", "", nil)
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "route not found", res.body["message"])
}

func TestOrderLifecycle(t *testing.T) {
	a := newApp(t)
	admin := a.signup(t, "admin@shop.test")
	buyer := a.signup(t, "buyer@shop.test")
	other := a.signup(t, "other@shop.test")
	_, productID := a.seed(t, admin, 3)

	res := a.do(t, http.MethodPost, "/orders", buyer, validOrder())
	assert.Equal(t, http.StatusBadRequest, res.status, "empty cart")

	res = a.do(t, http.MethodPost, "/cart/add", buyer, map[string]any{"productId": productID, "quantity": 5})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, float64(3), res.body["available"])

	res = a.do(t, http.MethodPost, "/cart/add", buyer, map[string]any{"productId": productID, "quantity": 2})
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.Equal(t, "25", field(t, res.body, "cart", "totalPrice"))

	res = a.do(t, http.MethodGet, "/orders/my", buyer, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, float64(0), res.body["count"])

	res = a.do(t, http.MethodPost, "/orders", buyer, validOrder())
	require.Equal(t, http.StatusCreated, res.status, res.body)
	orderID := field(t, res.body, "order", "id").(string)
	assert.Equal(t, "25", field(t, res.body, "order", "totalAmount"))
	assert.Equal(t, "processing", field(t, res.body, "order", "orderStatus"))

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/cart", buyer, nil).status)

	res = a.do(t, http.MethodGet, "/products/"+productID, "", nil)
	assert.Equal(t, float64(1), field(t, res.body, "product", "stock"))

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/orders/"+orderID, buyer, nil).status)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/orders/"+orderID, admin, nil).status)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/orders/"+orderID, other, nil).status)

	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/orders", buyer, nil).status)
	res = a.do(t, http.MethodGet, "/orders", admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, float64(1), res.body["count"])

	status := "/orders/" + orderID + "/status"
	res = a.do(t, http.MethodPut, status, admin, map[string]any{"orderStatus": "lost"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	res = a.do(t, http.MethodPut, status, admin, map[string]any{"orderStatus": "delivered"})
	assert.Equal(t, http.StatusConflict, res.status)
	res = a.do(t, http.MethodPut, status, admin, map[string]any{"orderStatus": "shipped", "paymentStatus": "paid"})
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.Equal(t, "shipped", field(t, res.body, "order", "orderStatus"))
	assert.Equal(t, "paid", field(t, res.body, "order", "paymentStatus"))

	review := map[string]any{"productId": productID, "rating": 4, "comment": "sturdy"}
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPost, "/reviews", other, review).status)
	assert.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/reviews", buyer, review).status)
	assert.Equal(t, http.StatusConflict, a.do(t, http.MethodPost, "/reviews", buyer, review).status)

	res = a.do(t, http.MethodGet, "/reviews/product/"+productID, "", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, float64(1), res.body["count"])
	assert.Equal(t, float64(4), res.body["averageRating"])
}

func TestExportImportRoundTrip(t *testing.T) {
	a := newApp(t)
	admin := a.signup(t, "admin@shop.test")
	a.seed(t, admin, 7)

	req := httptest.NewRequest(http.MethodGet, "/products/export", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "products.xlsx")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "products.xlsx")
	require.NoError(t, err)
	_, err = part.Write(rec.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req = httptest.NewRequest(http.MethodPost, "/products/import", &buf)
	req.Header.Set("Authorization", "Bearer "+admin)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res := a.serve(t, req)
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.Equal(t, float64(1), res.body["created"])
	assert.Empty(t, res.body["skipped"])

	res = a.do(t, http.MethodGet, "/products", "", nil)
	assert.Equal(t, float64(2), res.body["total"])

	req = httptest.NewRequest(http.MethodPost, "/products/import", strings.NewReader("x"))
	req.Header.Set("Authorization", "Bearer "+admin)
	assert.Equal(t, http.StatusBadRequest, a.serve(t, req).status)
}

func TestOrderFeed(t *testing.T) {
	a := newApp(t)
	admin := a.signup(t, "admin@shop.test")
	buyer := a.signup(t, "buyer@shop.test")
	_, productID := a.seed(t, admin, 3)

	srv := httptest.NewServer(a.router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/orders/feed"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token="+buyer, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+admin, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return a.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/cart/add", buyer, map[string]any{"productId": productID, "quantity": 1}).status)
	res := a.do(t, http.MethodPost, "/orders", buyer, validOrder())
	require.Equal(t, http.StatusCreated, res.status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event events.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, events.OrderPlaced, event.Type)
	assert.Equal(t, field(t, res.body, "order", "id"), event.Order.ID.Hex())
}

func TestHealthz(t *testing.T) {
	a := newApp(t)
	res := a.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "up", field(t, res.body, "checks", "database"))
}
