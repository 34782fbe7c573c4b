package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/beletteringbestellen/plakletters/internal/checkout"
	"github.com/beletteringbestellen/plakletters/internal/orders"
	"github.com/beletteringbestellen/plakletters/internal/preview"
)

type testCartResponse struct {
	Items []struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		Quantity int    `json:"quantity"`
		Price    struct {
			Total decimal.Decimal `json:"total"`
		} `json:"priceCalculation"`
	} `json:"items"`
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

func decodeCart(t *testing.T, body string) testCartResponse {
	t.Helper()

	var resp testCartResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("failed to decode cart response: %v: %s", err, body)
	}
	return resp
}

func TestQuoteReturnsPriceAndDimensions(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := serve(srv, http.MethodPost, "/api/quote", `{"text":"OPEN","fontId":"arial","colorId":"black","heightCm":10,"quantity":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Price struct {
			LetterCount    int             `json:"letterCount"`
			Total          decimal.Decimal `json:"total"`
			MinimumApplied bool            `json:"minimumApplied"`
		} `json:"priceCalculation"`
		Dimensions *preview.Dimensions `json:"dimensions"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode quote: %v", err)
	}

	if resp.Price.LetterCount != 4 {
		t.Fatalf("expected 4 letters, got %d", resp.Price.LetterCount)
	}
	if !resp.Price.Total.Equal(decimal.RequireFromString("9.95")) || !resp.Price.MinimumApplied {
		t.Fatalf("expected minimum order of 9.95 to apply, got %+v", resp.Price)
	}
	if resp.Dimensions == nil || resp.Dimensions.WidthCm <= 0 {
		t.Fatalf("expected estimated dimensions, got %+v", resp.Dimensions)
	}
}

func TestQuoteOfEmptyTextIsFree(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := serve(srv, http.MethodPost, "/api/quote", `{"text":"   ","fontId":"arial","colorId":"black","heightCm":10}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"dimensions":null`) {
		t.Fatalf("expected no dimensions for blank text, got %s", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"minimumApplied":false`) {
		t.Fatalf("expected no minimum on an empty line, got %s", rr.Body.String())
	}
}

func TestQuoteRejectsInvalidInput(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := map[string]string{
		"height too small": `{"text":"A","fontId":"arial","colorId":"black","heightCm":1}`,
		"height too large": `{"text":"A","fontId":"arial","colorId":"black","heightCm":31}`,
		"negative qty":     `{"text":"A","fontId":"arial","colorId":"black","heightCm":10,"quantity":-1}`,
		"unknown color":    `{"text":"A","fontId":"arial","colorId":"plaid","heightCm":10}`,
		"unknown font":     `{"text":"A","fontId":"wingdings","colorId":"black","heightCm":10}`,
		"unknown field":    `{"text":"A","fontId":"arial","colorId":"black","heightCm":10,"price":1}`,
		"malformed":        `{"text":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := serve(srv, http.MethodPost, "/api/quote", body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestLogoQuoteUsesTieredArea(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := serve(srv, http.MethodPost, "/api/logo/quote", `{"name":"logo.png","widthCm":20,"aspectRatio":2,"quantity":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Size struct {
			HeightCm float64 `json:"heightCm"`
			AreaCm2  float64 `json:"areaCm2"`
		} `json:"size"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode logo quote: %v", err)
	}
	if resp.Size.HeightCm != 10 || resp.Size.AreaCm2 != 200 {
		t.Fatalf("expected 20x10 cm logo, got %+v", resp.Size)
	}

	rr = serve(srv, http.MethodPost, "/api/logo/quote", `{"name":"logo.png","widthCm":0,"aspectRatio":2}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for zero width, got %d", rr.Code)
	}
}

func TestCartKeepsLinesAcrossRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := serve(srv, http.MethodPost, "/api/cart/items", `{"text":"WELKOM","fontId":"arial","colorId":"black","heightCm":10,"quantity":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	session := findCookie(t, rr, cartCookieName)
	if !session.HttpOnly {
		t.Fatalf("expected cart cookie to be http only")
	}

	added := decodeCart(t, rr.Body.String())
	if len(added.Items) != 1 || !added.TotalPrice.Equal(decimal.RequireFromString("13.2")) {
		t.Fatalf("unexpected cart after add: %+v", added)
	}
	itemID := added.Items[0].ID

	rr = serve(srv, http.MethodGet, "/api/cart", "", session)
	got := decodeCart(t, rr.Body.String())
	if len(got.Items) != 1 || got.Items[0].Text != "WELKOM" {
		t.Fatalf("expected stored line, got %+v", got)
	}

	rr = serve(srv, http.MethodPatch, "/api/cart/items/"+itemID, `{"quantity":3}`, session)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	updated := decodeCart(t, rr.Body.String())
	if updated.TotalItems != 3 || !updated.TotalPrice.Equal(decimal.RequireFromString("37.62")) {
		t.Fatalf("expected 3 items at 37.62 after discount, got %+v", updated)
	}

	rr = serve(srv, http.MethodPatch, "/api/cart/items/"+itemID, `{"quantity":0}`, session)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for zero quantity, got %d", rr.Code)
	}

	rr = serve(srv, http.MethodDelete, "/api/cart/items/missing", "", session)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown line, got %d", rr.Code)
	}

	rr = serve(srv, http.MethodDelete, "/api/cart/items/"+itemID, "", session)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if emptied := decodeCart(t, rr.Body.String()); len(emptied.Items) != 0 || !emptied.TotalPrice.IsZero() {
		t.Fatalf("expected empty cart, got %+v", emptied)
	}
}

func TestCartRejectsBlankText(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := serve(srv, http.MethodPost, "/api/cart/items", `{"text":"  ","fontId":"arial","colorId":"black","heightCm":10,"quantity":1}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCartIgnoresTamperedCookie(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := serve(srv, http.MethodPost, "/api/cart/items", `{"text":"OPEN","fontId":"arial","colorId":"black","heightCm":10,"quantity":1}`)
	session := findCookie(t, rr, cartCookieName)

	forged := &http.Cookie{Name: cartCookieName, Value: session.Value + "00"}
	rr = serve(srv, http.MethodGet, "/api/cart", "", forged)
	if got := decodeCart(t, rr.Body.String()); len(got.Items) != 0 {
		t.Fatalf("expected a fresh cart for a forged cookie, got %+v", got)
	}
	if fresh := findCookie(t, rr, cartCookieName); fresh.Value == session.Value {
		t.Fatalf("expected a new cart session to be issued")
	}
}

func TestCheckoutStartsPaymentAndClearsCart(t *testing.T) {
	srv, fake := newTestServer(t)

	rr := serve(srv, http.MethodPost, "/api/cart/items", `{"text":"OPEN","fontId":"arial","colorId":"black","heightCm":10,"quantity":1}`)
	session := findCookie(t, rr, cartCookieName)

	details := `{"email":"jan@example.com","firstName":"Jan","lastName":"Jansen","street":"Dorpsstraat","houseNumber":"1","postalCode":"1234ab","city":"Utrecht","paymentMethod":"ideal"}`
	rr = serve(srv, http.MethodPost, "/api/checkout", details, session)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"checkoutUrl":"https://pay.example/tr_1"`) {
		t.Fatalf("expected checkout url in response, got %s", rr.Body.String())
	}
	if len(fake.started) != 1 || len(fake.started[0]) != 1 || fake.started[0][0].Text != "OPEN" {
		t.Fatalf("expected checkout to receive the cart line, got %+v", fake.started)
	}
	if fake.details[0].Email != "jan@example.com" {
		t.Fatalf("expected customer details to be passed on, got %+v", fake.details[0])
	}

	rr = serve(srv, http.MethodGet, "/api/cart", "", session)
	if got := decodeCart(t, rr.Body.String()); len(got.Items) != 0 {
		t.Fatalf("expected cart to be cleared after checkout, got %+v", got)
	}
}

func TestCheckoutMapsErrorsToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: email", checkout.ErrInvalidDetails), http.StatusBadRequest},
		{orders.ErrEmptyCart, http.StatusBadRequest},
		{orders.ErrNoShippingRate, http.StatusBadRequest},
		{fmt.Errorf("%w: timeout", checkout.ErrPaymentFailed), http.StatusBadGateway},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			srv, fake := newTestServer(t)
			fake.startErr = tc.err

			rr := serve(srv, http.MethodPost, "/api/checkout", `{"email":"jan@example.com"}`)
			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			if tc.status == http.StatusInternalServerError && strings.Contains(rr.Body.String(), "disk full") {
				t.Fatalf("expected internal errors to stay internal, got %s", rr.Body.String())
			}
		})
	}
}

func TestPaymentWebhookAlwaysAnswersOK(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.webhookErr = errors.New("provider down")

	rr := serveForm(srv, "/api/payments/webhook", "id=tr_abc")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(fake.webhooks) != 1 || fake.webhooks[0] != "tr_abc" {
		t.Fatalf("expected webhook for tr_abc, got %v", fake.webhooks)
	}
}

func TestOrderStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	order := seedOrder(t, srv)

	rr := serve(srv, http.MethodGet, "/api/orders/"+order.ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	for _, expected := range []string{`"orderNumber":"` + order.Number + `"`, `"status":"paid"`, `"statusLabel":"Betaald"`} {
		if !strings.Contains(rr.Body.String(), expected) {
			t.Fatalf("expected body to contain %s, got %s", expected, rr.Body.String())
		}
	}

	rr = serve(srv, http.MethodGet, "/api/orders/unknown", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestPreviewSVG(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := serve(srv, http.MethodGet, "/api/preview.svg?text=Hallo&heightCm=10&fontId=arial&colorId=red&background=%23ffffff", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("expected svg content type, got %q", rr.Header().Get("Content-Type"))
	}
	if body := rr.Body.String(); !strings.Contains(body, "<svg") || !strings.Contains(body, "Hallo") {
		t.Fatalf("expected rendered preview, got %s", body)
	}

	rr = serve(srv, http.MethodGet, "/api/preview.svg?text=Hallo", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without height, got %d", rr.Code)
	}
}

func TestCatalogListsOptionsAndRates(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := serve(srv, http.MethodGet, "/api/catalog", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	for _, expected := range []string{`"fonts"`, `"colors"`, `"baseRate":"0.22"`, `"minimumOrder":"9.95"`, `"country":"NL"`} {
		if !strings.Contains(rr.Body.String(), expected) {
			t.Fatalf("expected catalog to contain %s, got %s", expected, rr.Body.String())
		}
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := serve(srv, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}
