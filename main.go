package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"go-storefront/config"
	"go-storefront/controllers"
	"go-storefront/events"
	"go-storefront/middleware"
	"go-storefront/routes"
	"go-storefront/services"
	"go-storefront/store"
	"go-storefront/store/memstore"
	"go-storefront/utils"
)

const publishTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// backend is the store plus what main needs beyond services.Store.
type backend struct {
	services.Store
	ledger services.TokenLedger
	ping   controllers.Pinger
	close  func(ctx context.Context) error
}

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		s := memstore.New()
		return &backend{Store: s, ledger: s.TokenLedger(), ping: s, close: func(context.Context) error { return nil }}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Database.OperationTimeout)
	defer cancel()
	m, err := store.Connect(connectCtx, cfg.Database.URI, cfg.Database.Name, store.TxOptions{MaxRetries: cfg.Database.TxMaxRetries})
	if err != nil {
		return nil, err
	}
	if err := m.EnsureIndexes(connectCtx); err != nil {
		_ = m.Close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info("connected to MongoDB", "database", cfg.Database.Name)
	return &backend{Store: m, ledger: m.TokenLedger(), ping: m, close: m.Close}, nil
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := db.close(context.Background()); err != nil {
			logger.Error("close store", "err", err)
		}
	}()

	checks := map[string]controllers.Pinger{"database": db.ping}

	ledger := db.ledger
	if cfg.Redis.URL != "" {
		redisLedger, err := store.NewRedisTokenLedger(cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisLedger.Close()
		ledger = redisLedger
		checks["redis"] = redisLedger
		logger.Info("reset tokens tracked in redis")
	}

	mailer, err := utils.NewMailer(cfg.Email, logger)
	if err != nil {
		return err
	}

	// Order events always reach the admin websocket feed. With Kafka they are
	// also written to the topic and the notifier consumes them from there;
	// without it the notifier is called directly in the background.
	hub := events.NewHub(logger, sameOrigin(cfg.Email.ClientURL))
	notifier := events.NewNotifier(db.Users(), mailer)
	var sink events.Publisher = notifier
	if len(cfg.Events.KafkaBrokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.OrderTopic)
		defer kafka.Close()
		sink = kafka

		reader := events.NewKafkaReader(cfg.Events.KafkaBrokers, cfg.Events.OrderTopic, cfg.Events.NotifyGroup)
		defer reader.Close()
		go events.Consume(ctx, reader, logger.With("component", "notifier"), notifier)
		logger.Info("publishing order events to kafka", "topic", cfg.Events.OrderTopic)
	}
	async := events.NewAsync(sink, logger, publishTimeout)
	defer async.Wait()
	publisher := events.Multi{hub, async}

	tokens := utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := services.NewAuthService(db.Users(), ledger, tokens, mailer, logger, cfg.Auth, cfg.Email.ClientURL)
	catalog := services.NewCatalogService(db, db.Products(), db.Categories())
	carts := services.NewCartService(db.Carts(), db.Products())
	orders := services.NewOrderService(db, db.Carts(), db.Products(), db.Orders(), publisher, logger)
	reviews := services.NewReviewService(db, db.Reviews(), db.Products(), db.Orders())

	timeout := cfg.Database.OperationTimeout
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(logger), middleware.Recoverer(logger))
	routes.RegisterRoutes(router, routes.Controllers{
		Users:      controllers.NewUserController(authService, logger, timeout),
		Products:   controllers.NewProductController(catalog, logger, timeout),
		Categories: controllers.NewCategoryController(catalog, logger, timeout),
		Carts:      controllers.NewCartController(carts, logger, timeout),
		Orders:     controllers.NewOrderController(orders, authService, http.HandlerFunc(hub.ServeWS), logger, timeout),
		Reviews:    controllers.NewReviewController(reviews, logger, timeout),
		Health:     controllers.NewHealthController(checks, logger, timeout),
	}, authService, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      middleware.CORS(cfg.Email.ClientURL)(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * cfg.Server.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server is running", "port", cfg.Server.Port, "driver", cfg.Database.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// sameOrigin accepts websocket handshakes from the storefront client and
// from clients that send no Origin header.
func sameOrigin(clientURL string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == clientURL || origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
