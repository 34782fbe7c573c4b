package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/beletteringbestellen/plakletters/internal/cart"
	"github.com/beletteringbestellen/plakletters/internal/checkout"
	"github.com/beletteringbestellen/plakletters/internal/orders"
	"github.com/beletteringbestellen/plakletters/internal/preview"
	"github.com/beletteringbestellen/plakletters/internal/pricing"
)

const (
	maxJSONBody = 64 << 10
	maxLogoBody = 5 << 20
)

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, pricing.ErrInvalidHeight),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, preview.ErrUnsupportedLogo),
		errors.Is(err, checkout.ErrInvalidDetails),
		errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, orders.ErrNoShippingRate):
		return http.StatusBadRequest
	case errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, orders.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrNotShippable):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrPaymentFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, status, http.StatusText(status))
		return
	}
	writeError(w, status, err.Error())
}

type catalogResponse struct {
	pricing.Catalog
	BaseRate      decimal.Decimal          `json:"baseRate"`
	MinimumOrder  decimal.Decimal          `json:"minimumOrder"`
	Discounts     []pricing.VolumeDiscount `json:"volumeDiscounts"`
	ShippingRates []orders.ShippingRate    `json:"shippingRates"`
	MinHeightCm   float64                  `json:"minHeightCm"`
	MaxHeightCm   float64                  `json:"maxHeightCm"`
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	shipping, err := s.orders.ShippingRates(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rates := s.calc.Rates()
	writeJSON(w, http.StatusOK, catalogResponse{
		Catalog:       s.catalog,
		BaseRate:      rates.BaseRate,
		MinimumOrder:  rates.MinimumOrder,
		Discounts:     rates.Discounts,
		ShippingRates: shipping,
		MinHeightCm:   pricing.MinHeightCm,
		MaxHeightCm:   pricing.MaxHeightCm,
	})
}

type textRequest struct {
	Text     string  `json:"text"`
	FontID   string  `json:"fontId"`
	ColorID  string  `json:"colorId"`
	HeightCm float64 `json:"heightCm"`
	Quantity int     `json:"quantity"`
}

func (s *server) resolveText(req textRequest) (pricing.FontOption, pricing.ColorOption, error) {
	if err := pricing.ValidateTextRequest(req.HeightCm, req.Quantity); err != nil {
		return pricing.FontOption{}, pricing.ColorOption{}, err
	}
	color, ok := s.catalog.ColorByID(req.ColorID)
	if !ok {
		return pricing.FontOption{}, pricing.ColorOption{}, fmt.Errorf("%w: unknown color %q", errBadRequest, req.ColorID)
	}
	font, ok := s.catalog.FontByID(req.FontID)
	if !ok {
		return pricing.FontOption{}, pricing.ColorOption{}, fmt.Errorf("%w: unknown font %q", errBadRequest, req.FontID)
	}
	return font, color, nil
}

type quoteResponse struct {
	Price      pricing.Calculation `json:"priceCalculation"`
	Dimensions *preview.Dimensions `json:"dimensions"`
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	font, color, err := s.resolveText(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := quoteResponse{Price: s.calc.Calculate(req.Text, req.HeightCm, color, req.Quantity)}
	if dims, ok := s.estimator.Dimensions(req.Text, font.ID, req.HeightCm); ok {
		rounded := dims.Rounded()
		resp.Dimensions = &rounded
	}
	writeJSON(w, http.StatusOK, resp)
}

type logoQuoteRequest struct {
	Name        string  `json:"name"`
	WidthCm     float64 `json:"widthCm"`
	AspectRatio float64 `json:"aspectRatio"`
	Quantity    int     `json:"quantity"`
}

type logoQuoteResponse struct {
	Size  pricing.LogoSize    `json:"size"`
	Price pricing.Calculation `json:"priceCalculation"`
}

func (s *server) handleLogoQuote(w http.ResponseWriter, r *http.Request) {
	var req logoQuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 {
		s.fail(w, r, pricing.ErrInvalidQuantity)
		return
	}
	size := preview.LogoSizeFor(req.WidthCm, req.AspectRatio)
	if size.AreaCm2 == 0 {
		s.fail(w, r, fmt.Errorf("%w: width and aspect ratio must be positive", errBadRequest))
		return
	}
	writeJSON(w, http.StatusOK, logoQuoteResponse{Size: size, Price: s.calc.CalculateLogo(req.Name, size, req.Quantity)})
}

type previewResponse struct {
	Box        preview.BoundingBox `json:"boundingBox"`
	Dimensions preview.Dimensions  `json:"dimensions"`
	Available  bool                `json:"available"`
}

func parseHeight(raw string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: heightCm is required", errBadRequest)
	}
	h, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: heightCm %q", errBadRequest, raw)
	}
	return h, nil
}

func (s *server) handlePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	height, err := parseHeight(q.Get("heightCm"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var resp previewResponse
	if box, ok := s.estimator.Measure(q.Get("text"), q.Get("fontId")); ok {
		if dims, ok := preview.Estimate(box, height); ok {
			resp = previewResponse{Box: box, Dimensions: dims.Rounded(), Available: true}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handlePreviewSVG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	height, err := parseHeight(q.Get("heightCm"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	font, ok := s.catalog.FontByID(q.Get("fontId"))
	if !ok {
		font = s.catalog.Fonts[0]
	}
	color, ok := s.catalog.ColorByID(q.Get("colorId"))
	if !ok {
		color = s.catalog.Colors[0]
	}

	opts := preview.SVGOptions{Text: q.Get("text"), Font: font, Color: color, Background: q.Get("background")}
	if box, ok := s.estimator.Measure(opts.Text, font.ID); ok {
		if dims, ok := preview.Estimate(box, height); ok {
			opts.Box = box
			opts.Dimensions = dims
		}
	}
	if opts.Background != "" && !validHexColor(opts.Background) {
		opts.Background = ""
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=300")
	preview.RenderSVG(w, opts)
}

func validHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	_, err := strconv.ParseUint(s[1:], 16, 32)
	return err == nil
}

type cartResponse struct {
	Items      []cart.Item     `json:"items"`
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

func newCartResponse(c *cart.Cart) cartResponse {
	return cartResponse{Items: c.Items(), TotalItems: c.TotalItems(), TotalPrice: c.TotalPrice()}
}

// loadCart returns the session's cart. Stored lines keep their price snapshots.
func (s *server) loadCart(w http.ResponseWriter, r *http.Request) (*cart.Cart, string, error) {
	sessionID := s.auth.cartSession(w, r)
	items, err := s.carts.Load(r.Context(), sessionID)
	if err != nil {
		return nil, "", fmt.Errorf("load cart: %w", err)
	}
	return cart.Restore(s.calc, items), sessionID, nil
}

func (s *server) saveCart(w http.ResponseWriter, r *http.Request, sessionID string, c *cart.Cart) {
	if err := s.carts.Save(r.Context(), sessionID, c.Items()); err != nil {
		s.fail(w, r, fmt.Errorf("save cart: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(c))
}

func (s *server) handleCartGet(w http.ResponseWriter, r *http.Request) {
	c, _, err := s.loadCart(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(c))
}

func (s *server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	sessionID := s.auth.cartSession(w, r)
	if err := s.carts.Delete(r.Context(), sessionID); err != nil {
		s.fail(w, r, fmt.Errorf("clear cart: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cart.New(s.calc)))
}

func (s *server) handleCartAddText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.fail(w, r, fmt.Errorf("%w: text is empty", errBadRequest))
		return
	}
	font, color, err := s.resolveText(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	c, sessionID, err := s.loadCart(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c.Add(cart.NewTextItem(s.calc, req.Text, font, color, req.HeightCm, req.Quantity))
	s.saveCart(w, r, sessionID, c)
}

func (s *server) handleCartAddLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLogoBody)
	if err := r.ParseMultipartForm(maxLogoBody); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	widthCm, err := strconv.ParseFloat(r.FormValue("widthCm"), 64)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: widthCm", errBadRequest))
		return
	}
	quantity := 1
	if raw := r.FormValue("quantity"); raw != "" {
		if quantity, err = strconv.Atoi(raw); err != nil || quantity < 1 {
			s.fail(w, r, pricing.ErrInvalidQuantity)
			return
		}
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: logo file is required", errBadRequest))
		return
	}
	defer file.Close()

	decoded, err := preview.DecodeLogo(io.LimitReader(file, maxLogoBody))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	size := preview.LogoSizeFor(widthCm, decoded.AspectRatio)
	if size.AreaCm2 == 0 {
		s.fail(w, r, fmt.Errorf("%w: widthCm must be positive", errBadRequest))
		return
	}

	c, sessionID, err := s.loadCart(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c.Add(cart.NewLogoItem(s.calc, cart.Logo{
		Name:        header.Filename,
		DataURL:     decoded.DataURL,
		AspectRatio: decoded.AspectRatio,
		Size:        size,
	}, quantity))
	s.saveCart(w, r, sessionID, c)
}

func (s *server) handleCartUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	c, sessionID, err := s.loadCart(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := c.UpdateQuantity(chi.URLParam(r, "id"), req.Quantity); err != nil {
		s.fail(w, r, err)
		return
	}
	s.saveCart(w, r, sessionID, c)
}

func (s *server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	c, sessionID, err := s.loadCart(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := c.Remove(chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.saveCart(w, r, sessionID, c)
}

func (s *server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var details checkout.CustomerDetails
	if err := decodeJSON(w, r, &details); err != nil {
		s.fail(w, r, err)
		return
	}

	c, sessionID, err := s.loadCart(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.checkout.Start(r.Context(), c.Items(), details)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.carts.Delete(r.Context(), sessionID); err != nil {
		s.logger.Warn("cart not cleared after checkout", zap.String("order_id", result.OrderID), zap.Error(err))
	}
	writeJSON(w, http.StatusCreated, result)
}

// handlePaymentWebhook always answers 200; the provider only retries on
// other statuses and the payment is re-read on every call anyway.
func (s *server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.logger.Warn("unreadable payment webhook", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	paymentID := r.PostForm.Get("id")
	if err := s.checkout.HandleWebhook(r.Context(), paymentID); err != nil {
		s.logger.Error("payment webhook failed", zap.String("payment_id", paymentID), zap.Error(err))
	}
	w.WriteHeader(http.StatusOK)
}

type orderStatusResponse struct {
	OrderNumber string          `json:"orderNumber"`
	Status      orders.Status   `json:"status"`
	StatusLabel string          `json:"statusLabel"`
	Total       decimal.Decimal `json:"total"`
}

func (s *server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderStatusResponse{
		OrderNumber: order.Number,
		Status:      order.Status,
		StatusLabel: order.Status.Label(),
		Total:       order.Total(),
	})
}
