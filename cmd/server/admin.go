package main

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/beletteringbestellen/plakletters/internal/checkout"
	"github.com/beletteringbestellen/plakletters/internal/orders"
	"github.com/beletteringbestellen/plakletters/internal/pricing"
)

type baseViewData struct {
	ErrorMessage   string
	SuccessMessage string
}

type loginViewData struct {
	baseViewData
}

type statusOption struct {
	Value    orders.Status
	Label    string
	Selected bool
}

var adminStatuses = []orders.Status{
	orders.StatusPending,
	orders.StatusPaid,
	orders.StatusPaymentFailed,
	orders.StatusProcessing,
	orders.StatusShipped,
	orders.StatusDelivered,
	orders.StatusCancelled,
}

func statusOptions(selected orders.Status) []statusOption {
	options := make([]statusOption, 0, len(adminStatuses))
	for _, s := range adminStatuses {
		options = append(options, statusOption{Value: s, Label: s.Label(), Selected: s == selected})
	}
	return options
}

type ordersViewData struct {
	baseViewData
	Query    string
	Status   orders.Status
	Statuses []statusOption
	Orders   []orders.Order
}

type orderLine struct {
	orders.Item
	Snapshot    pricing.Calculation
	HasSnapshot bool
}

type orderDetailViewData struct {
	baseViewData
	Order    orders.Order
	Lines    []orderLine
	Statuses []statusOption
}

var flashMessages = map[string]string{
	"shipped":        "Bestelling gemarkeerd als verzonden. De klant heeft een e-mail ontvangen.",
	"shipped-nomail": "Bestelling gemarkeerd als verzonden, maar de verzendmail kon niet worden verstuurd.",
	"status":         "Status bijgewerkt.",
}

var errorMessages = map[string]string{
	"not-shippable": "Alleen betaalde bestellingen kunnen worden verzonden.",
}

func (s *server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if s.auth.isAuthenticated(r) {
		http.Redirect(w, r, "/admin/orders", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, "login.html", loginViewData{})
}

func (s *server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	valid, err := s.auth.validateCredentials(r.Context(), email, password)
	if err != nil {
		s.logger.Error("login failed", zap.Error(err))
		http.Error(w, "authentication error", http.StatusInternalServerError)
		return
	}
	if !valid {
		s.logger.Warn("invalid admin login", zap.String("email", email))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		s.renderTemplate(w, "login.html", loginViewData{baseViewData: baseViewData{ErrorMessage: "Ongeldige inloggegevens. Probeer het opnieuw."}})
		return
	}

	s.auth.setSessionCookie(w, email)
	http.Redirect(w, r, "/admin/orders", http.StatusSeeOther)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *server) handleAdminOrders(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	status := orders.Status(r.URL.Query().Get("status"))

	list, err := s.orders.List(r.Context(), orders.ListQuery{Search: query, Status: status})
	if err != nil {
		s.logger.Error("failed to list orders", zap.Error(err))
		http.Error(w, "failed to load orders", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, "orders.html", ordersViewData{
		Query:    query,
		Status:   status,
		Statuses: statusOptions(status),
		Orders:   list,
	})
}

// orderDetail loads an order and decodes the price snapshot of every line.
// Prices are shown as stored; nothing is recalculated.
func (s *server) orderDetail(r *http.Request) (orderDetailViewData, error) {
	order, err := s.orders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return orderDetailViewData{}, err
	}

	lines := make([]orderLine, 0, len(order.Items))
	for _, item := range order.Items {
		line := orderLine{Item: item}
		if snapshot, err := item.Price(); err == nil {
			line.Snapshot = snapshot
			line.HasSnapshot = true
		} else {
			s.logger.Warn("unreadable price snapshot", zap.String("item_id", item.ID), zap.Error(err))
		}
		lines = append(lines, line)
	}

	return orderDetailViewData{Order: order, Lines: lines, Statuses: statusOptions(order.Status)}, nil
}

func (s *server) handleAdminOrderDetail(w http.ResponseWriter, r *http.Request) {
	data, err := s.orderDetail(r)
	if errors.Is(err, orders.ErrOrderNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("failed to load order", zap.Error(err))
		http.Error(w, "failed to load order", http.StatusInternalServerError)
		return
	}

	data.SuccessMessage = flashMessages[r.URL.Query().Get("flash")]
	data.ErrorMessage = errorMessages[r.URL.Query().Get("error")]
	s.renderTemplate(w, "order_detail.html", data)
}

func (s *server) handleAdminOrderText(w http.ResponseWriter, r *http.Request) {
	data, err := s.orderDetail(r)
	if errors.Is(err, orders.ErrOrderNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("failed to load order", zap.Error(err))
		http.Error(w, "failed to load order", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(orderText(data)))
}

// orderText is the production sheet of an order as plain text.
func orderText(data orderDetailViewData) string {
	o := data.Order
	var b strings.Builder

	fmt.Fprintf(&b, "Bestelling %s\n", o.Number)
	fmt.Fprintf(&b, "Datum: %s\n", formatDate(o.CreatedAt))
	fmt.Fprintf(&b, "Status: %s\n\n", o.Status.Label())

	b.WriteString("Klant:\n")
	fmt.Fprintf(&b, "- Naam: %s\n", o.Customer.Name)
	fmt.Fprintf(&b, "- E-mail: %s\n", o.Email)
	if o.Phone != "" {
		fmt.Fprintf(&b, "- Telefoon: %s\n", o.Phone)
	}
	if o.Company != "" {
		fmt.Fprintf(&b, "- Bedrijf: %s\n", o.Company)
	}
	fmt.Fprintf(&b, "- Adres: %s, %s\n\n", strings.Join(o.Address.Lines(), ", "), o.Country)

	b.WriteString("Regels:\n")
	for i, line := range data.Lines {
		if line.Kind == "logo" {
			fmt.Fprintf(&b, "%d. %s, %s x %s cm, %dx\n", i+1, line.Text, formatCm(line.WidthCm), formatCm(line.HeightCm), line.Quantity)
		} else {
			fmt.Fprintf(&b, "%d. %q, %s, %s (%s), %s cm hoog", i+1, line.Text, line.FontName, line.ColorName, line.ColorHex, formatCm(line.HeightCm))
			if line.WidthCm > 0 {
				fmt.Fprintf(&b, ", ca. %s cm breed", formatCm(line.WidthCm))
			}
			fmt.Fprintf(&b, ", %dx\n", line.Quantity)
		}
		if !line.HasSnapshot {
			fmt.Fprintf(&b, "   Totaal: %s\n", pricing.FormatEUR(line.Total()))
			continue
		}
		p := line.Snapshot
		if p.LetterCount > 0 {
			fmt.Fprintf(&b, "   Letters: %d\n", p.LetterCount)
		}
		fmt.Fprintf(&b, "   Subtotaal: %s\n", pricing.FormatEUR(p.Subtotal))
		if p.VolumeDiscount != nil {
			fmt.Fprintf(&b, "   %s: -%s\n", p.VolumeDiscount.Label, pricing.FormatEUR(p.DiscountAmount))
		}
		if p.MinimumApplied {
			b.WriteString("   Minimumbedrag toegepast\n")
		}
		fmt.Fprintf(&b, "   Totaal: %s\n", pricing.FormatEUR(p.Total))
	}

	fmt.Fprintf(&b, "\nSubtotaal: %s\n", pricing.FormatEUR(o.Subtotal()))
	fmt.Fprintf(&b, "Verzending: %s\n", pricing.FormatEUR(o.Shipping()))
	fmt.Fprintf(&b, "Totaal: %s\n", pricing.FormatEUR(o.Total()))
	if o.TrackingCode != "" {
		fmt.Fprintf(&b, "Track & trace: %s\n", o.TrackingCode)
	}
	if o.Notes != "" {
		fmt.Fprintf(&b, "\nOpmerkingen:\n%s\n", o.Notes)
	}
	return b.String()
}

func (s *server) handleAdminOrderShip(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	target := "/admin/orders/" + id
	_, err := s.checkout.Ship(r.Context(), id, r.FormValue("tracking_code"))
	switch {
	case err == nil:
		http.Redirect(w, r, target+"?flash=shipped", http.StatusSeeOther)
	case errors.Is(err, checkout.ErrShippingMail):
		http.Redirect(w, r, target+"?flash=shipped-nomail", http.StatusSeeOther)
	case errors.Is(err, orders.ErrOrderNotFound):
		http.NotFound(w, r)
	case errors.Is(err, orders.ErrNotShippable):
		http.Redirect(w, r, target+"?error=not-shippable", http.StatusSeeOther)
	default:
		s.logger.Error("failed to ship order", zap.String("order_id", id), zap.Error(err))
		http.Error(w, "failed to ship order", http.StatusInternalServerError)
	}
}

func (s *server) handleAdminOrderStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	status := orders.Status(r.FormValue("status"))
	known := false
	for _, candidate := range adminStatuses {
		known = known || candidate == status
	}
	if !known {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	err := s.orders.UpdateStatus(r.Context(), id, status)
	if errors.Is(err, orders.ErrOrderNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("failed to update order status", zap.String("order_id", id), zap.Error(err))
		http.Error(w, "failed to update status", http.StatusInternalServerError)
		return
	}
	s.logger.Info("order status changed", zap.String("order_id", id), zap.String("status", string(status)))
	http.Redirect(w, r, "/admin/orders/"+id+"?flash=status", http.StatusSeeOther)
}

func (s *server) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	status := orders.Status(r.URL.Query().Get("status"))

	list, err := s.orders.List(r.Context(), orders.ListQuery{Search: query, Status: status, Limit: 10000})
	if err != nil {
		s.logger.Error("failed to list orders for export", zap.Error(err))
		http.Error(w, "failed to load orders", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("bestellingen-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := orders.ExportXLSX(w, list); err != nil {
		s.logger.Error("failed to write export", zap.Error(err))
	}
}

func formatDate(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func formatCm(v float64) string {
	return decimal.NewFromFloat(v).Round(1).String()
}

var templateFuncs = template.FuncMap{
	"eur":   pricing.FormatEUR,
	"cents": func(c int64) string { return pricing.FormatEUR(pricing.FromCents(c)) },
	"date":  formatDate,
	"cm":    formatCm,
	"inc":   func(i int) int { return i + 1 },
}

func (s *server) renderTemplate(w http.ResponseWriter, page string, data any) {
	templates, err := template.New("layout.html").Funcs(templateFuncs).ParseFiles(
		filepath.Join(s.templateDir, "layout.html"),
		filepath.Join(s.templateDir, page),
	)
	if err != nil {
		s.logger.Error("failed to parse template", zap.String("page", page), zap.Error(err))
		http.Error(w, "failed to parse template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.logger.Error("failed to render template", zap.String("page", page), zap.Error(err))
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}
}
