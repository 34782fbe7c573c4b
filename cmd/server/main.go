package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/beletteringbestellen/plakletters/internal/apiclient"
	"github.com/beletteringbestellen/plakletters/internal/cart"
	"github.com/beletteringbestellen/plakletters/internal/checkout"
	"github.com/beletteringbestellen/plakletters/internal/config"
	"github.com/beletteringbestellen/plakletters/internal/db"
	"github.com/beletteringbestellen/plakletters/internal/logger"
	"github.com/beletteringbestellen/plakletters/internal/mail"
	"github.com/beletteringbestellen/plakletters/internal/migrations"
	"github.com/beletteringbestellen/plakletters/internal/notify"
	"github.com/beletteringbestellen/plakletters/internal/orders"
	"github.com/beletteringbestellen/plakletters/internal/payment"
	"github.com/beletteringbestellen/plakletters/internal/preview"
	"github.com/beletteringbestellen/plakletters/internal/pricing"
	"github.com/beletteringbestellen/plakletters/internal/seed"
)

const devSessionSecret = "development-only-secret"

type checkoutService interface {
	Start(ctx context.Context, items []cart.Item, details checkout.CustomerDetails) (checkout.Result, error)
	HandleWebhook(ctx context.Context, paymentID string) error
	Ship(ctx context.Context, orderID, trackingCode string) (orders.Order, error)
}

type server struct {
	auth        *authService
	db          *sqlx.DB
	catalog     pricing.Catalog
	calc        *pricing.Calculator
	estimator   *preview.Estimator
	carts       cart.Store
	orders      *orders.Repository
	checkout    checkoutService
	logger      *zap.Logger
	templateDir string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	database, err := db.Open(ctx, cfg.DBDriver, cfg.DBDSN, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := migrations.Up(ctx, database.DB, db.GooseDialect(cfg.DBDriver), cfg.MigrationsDir, logger); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	stats, err := seed.Run(ctx, database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}
	logger.Info("seed finished", zap.Int("inserts", stats.Inserts), zap.Int("updates", stats.Updates))

	minimum, err := cfg.MinimumOrder()
	if err != nil {
		return err
	}
	rates := pricing.DefaultRates()
	rates.MinimumOrder = minimum
	calc := pricing.NewCalculator(rates)

	catalog := pricing.DefaultCatalog()
	measurer, err := preview.NewFontMeasurer(catalog)
	if err != nil {
		return fmt.Errorf("failed to load preview fonts: %w", err)
	}
	estimator := preview.NewEstimator(measurer)

	carts, closeCarts, err := newCartStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCarts()

	payments := payment.NewClient(apiclient.New(cfg.MollieBaseURL, cfg.MollieAPIKey, cfg.HTTPTimeout, logger), logger)
	mailer, err := mail.NewMailer(
		mail.NewClient(apiclient.New(cfg.ResendBaseURL, cfg.ResendAPIKey, cfg.HTTPTimeout, logger), logger),
		cfg.MailFrom, cfg.ShopOwnerEmail, logger)
	if err != nil {
		return err
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramToken, "", cfg.TelegramChatID, &http.Client{Timeout: cfg.HTTPTimeout}, logger)
		if err != nil {
			logger.Error("telegram notifications disabled", zap.Error(err))
		} else {
			notifier = tg
		}
	}

	repo := orders.NewRepository(database)
	secret := cfg.SessionSecret
	if secret == "" {
		secret = devSessionSecret
	}

	srv := &server{
		auth:      newAuthService(database, secret, !cfg.IsDev()),
		db:        database,
		catalog:   catalog,
		calc:      calc,
		estimator: estimator,
		carts:     carts,
		orders:    repo,
		checkout: checkout.NewService(repo, payments, mailer, notifier, checkout.Options{
			PublicBaseURL: cfg.PublicBaseURL,
			Width:         textWidth(estimator),
		}, logger),
		logger:      logger,
		templateDir: "web/templates",
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newCartStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (cart.Store, func(), error) {
	if cfg.CartStore != "redis" {
		return cart.NewMemoryStore(cfg.CartTTL), func() {}, nil
	}

	store := cart.NewRedisStore(cart.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.CartTTL,
	})
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("cart store ready", zap.String("store", "redis"), zap.String("addr", cfg.RedisAddr))
	return store, func() { _ = store.Close() }, nil
}

// textWidth estimates the printed width of a text line for the production notes.
func textWidth(estimator *preview.Estimator) func(cart.Item) float64 {
	return func(item cart.Item) float64 {
		dims, ok := estimator.Dimensions(item.Text, item.Font.ID, item.HeightCm)
		if !ok {
			return 0
		}
		return dims.WidthCm
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Post("/quote", s.handleQuote)
		r.Post("/logo/quote", s.handleLogoQuote)
		r.Get("/preview", s.handlePreview)
		r.Get("/preview.svg", s.handlePreviewSVG)

		r.Get("/cart", s.handleCartGet)
		r.Delete("/cart", s.handleCartClear)
		r.Post("/cart/items", s.handleCartAddText)
		r.Post("/cart/logo", s.handleCartAddLogo)
		r.Patch("/cart/items/{id}", s.handleCartUpdateQuantity)
		r.Delete("/cart/items/{id}", s.handleCartRemove)

		r.Post("/checkout", s.handleCheckout)
		r.Post("/payments/webhook", s.handlePaymentWebhook)
		r.Get("/orders/{id}", s.handleOrderStatus)
	})

	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.adminOnly)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/admin/orders", http.StatusSeeOther)
		})
		r.Get("/orders", s.handleAdminOrders)
		r.Get("/orders/export.xlsx", s.handleAdminExport)
		r.Get("/orders/{id}", s.handleAdminOrderDetail)
		r.Get("/orders/{id}/text", s.handleAdminOrderText)
		r.Post("/orders/{id}/ship", s.handleAdminOrderShip)
		r.Post("/orders/{id}/status", s.handleAdminOrderStatus)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
