package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/beletteringbestellen/plakletters/internal/cart"
	"github.com/beletteringbestellen/plakletters/internal/checkout"
	"github.com/beletteringbestellen/plakletters/internal/db"
	"github.com/beletteringbestellen/plakletters/internal/migrations"
	"github.com/beletteringbestellen/plakletters/internal/orders"
	"github.com/beletteringbestellen/plakletters/internal/preview"
	"github.com/beletteringbestellen/plakletters/internal/pricing"
	"github.com/beletteringbestellen/plakletters/internal/seed"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "plakletters-test"
)

type fakeCheckout struct {
	started    [][]cart.Item
	details    []checkout.CustomerDetails
	startErr   error
	webhooks   []string
	webhookErr error
	shipped    []string
	shipErr    error
	ship       func(ctx context.Context, orderID, trackingCode string) (orders.Order, error)
}

func (f *fakeCheckout) Start(_ context.Context, items []cart.Item, details checkout.CustomerDetails) (checkout.Result, error) {
	if f.startErr != nil {
		return checkout.Result{}, f.startErr
	}
	f.started = append(f.started, items)
	f.details = append(f.details, details)
	return checkout.Result{
		OrderID:     "order-1",
		OrderNumber: "BB-240501-0001",
		CheckoutURL: "https://pay.example/tr_1",
	}, nil
}

func (f *fakeCheckout) HandleWebhook(_ context.Context, paymentID string) error {
	f.webhooks = append(f.webhooks, paymentID)
	return f.webhookErr
}

func (f *fakeCheckout) Ship(ctx context.Context, orderID, trackingCode string) (orders.Order, error) {
	f.shipped = append(f.shipped, orderID)
	if f.ship != nil {
		return f.ship(ctx, orderID, trackingCode)
	}
	return orders.Order{ID: orderID}, f.shipErr
}

func newTestServer(t *testing.T) (*server, *fakeCheckout) {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, db.DriverSQLite, ":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	if err := migrations.Up(ctx, database.DB, db.GooseDialect(db.DriverSQLite), "../../migrations", zap.NewNop()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	if _, err := seed.Run(ctx, database, seed.Config{AdminEmail: testAdminEmail, AdminPassword: testAdminPassword}); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	catalog := pricing.DefaultCatalog()
	measurer, err := preview.NewFontMeasurer(catalog)
	if err != nil {
		t.Fatalf("failed to load fonts: %v", err)
	}

	fake := &fakeCheckout{}
	srv := &server{
		auth:        newAuthService(database, "test-secret", false),
		db:          database,
		catalog:     catalog,
		calc:        pricing.NewCalculator(pricing.DefaultRates()),
		estimator:   preview.NewEstimator(measurer),
		carts:       cart.NewMemoryStore(time.Hour),
		orders:      orders.NewRepository(database),
		checkout:    fake,
		logger:      zap.NewNop(),
		templateDir: "../../web/templates",
	}
	return srv, fake
}

// seedOrder stores a paid order with one lettering line and one logo line.
func seedOrder(t *testing.T, srv *server) orders.Order {
	t.Helper()

	black, _ := srv.catalog.ColorByID("black")
	arial, _ := srv.catalog.FontByID("arial")
	text := cart.NewTextItem(srv.calc, "WELKOM", arial, black, 10, 3)
	logo := cart.NewLogoItem(srv.calc, cart.Logo{
		Name:        "logo.png",
		DataURL:     "data:image/png;base64,AAAA",
		AspectRatio: 2,
		Size:        preview.LogoSizeFor(20, 2),
	}, 1)

	rates, err := srv.orders.ShippingRates(context.Background())
	if err != nil || len(rates) == 0 {
		t.Fatalf("failed to load shipping rates: %v", err)
	}

	order, err := orders.BuildOrder(orders.BuildInput{
		Items:    []cart.Item{text, logo},
		Customer: orders.Customer{Name: "Jan Jansen", Email: "jan@example.com", Phone: "0612345678"},
		Address:  orders.Address{Street: "Dorpsstraat", HouseNumber: "1", PostalCode: "1234 AB", City: "Utrecht", Country: "NL"},
		Notes:    "Graag voor vrijdag",
		Shipping: rates[0],
		Width:    func(cart.Item) float64 { return 48.26 },
	}, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("failed to build order: %v", err)
	}
	if err := srv.orders.Create(context.Background(), &order); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	if _, err := srv.db.Exec(`UPDATE orders SET status = 'paid' WHERE id = ?`, order.ID); err != nil {
		t.Fatalf("failed to mark order paid: %v", err)
	}
	order.Status = orders.StatusPaid
	return order
}

func serve(srv *server, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	srv.routes().ServeHTTP(rr, req)
	return rr
}

func serveForm(srv *server, target, form string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	srv.routes().ServeHTTP(rr, req)
	return rr
}

func findCookie(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("expected response to set cookie %q", name)
	return nil
}
