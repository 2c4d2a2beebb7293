package services_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/config"
	"go-storefront/events"
	"go-storefront/models"
	"go-storefront/services"
	"go-storefront/store/memstore"
	"go-storefront/utils"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Type
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

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

type testEnv struct {
	store     *memstore.Store
	auth      *services.AuthService
	catalog   *services.CatalogService
	carts     *services.CartService
	orders    *services.OrderService
	reviews   *services.ReviewService
	publisher *recordingPublisher
	mailer    *captureMailer
	category  *models.Category
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := memstore.New()
	pub := &recordingPublisher{}
	mailer := &captureMailer{}

	authCfg := config.AuthConfig{
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
		ResetTokenTTL: 15 * time.Minute,
		AdminEmails:   []string{"Boss@Example.com"},
	}
	env := &testEnv{
		store:     s,
		auth:      services.NewAuthService(s.Users(), s.TokenLedger(), utils.NewTokenIssuer(authCfg.JWTSecret, authCfg.TokenTTL), mailer, discard, authCfg, "http://shop.test"),
		catalog:   services.NewCatalogService(s, s.Products(), s.Categories()),
		carts:     services.NewCartService(s.Carts(), s.Products()),
		orders:    services.NewOrderService(s, s.Carts(), s.Products(), s.Orders(), pub, discard),
		reviews:   services.NewReviewService(s, s.Reviews(), s.Products(), s.Orders()),
		publisher: pub,
		mailer:    mailer,
	}

	category, err := env.catalog.CreateCategory(context.Background(), "Home Goods", "")
	require.NoError(t, err)
	env.category = category
	return env
}

func (e *testEnv) product(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p, err := e.catalog.CreateProduct(context.Background(), services.ProductInput{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		CategoryID: e.category.ID,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) stock(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := e.store.Products().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (e *testEnv) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), services.RegisterInput{
		Name:     "Test " + strings.Split(email, "@")[0],
		Email:    email,
		Password: "secret1",
	})
	require.NoError(t, err)
	return u
}

func validOrder() services.PlaceOrderInput {
	return services.PlaceOrderInput{
		ShippingAddress: models.Address{
			Street:     "1 Main St",
			City:       "Springfield",
			State:      "IL",
			PostalCode: "62701",
			Country:    "US",
		},
		PaymentMethod: models.PaymentCreditCard,
	}
}
