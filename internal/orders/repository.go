package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const orderColumns = `
	id, order_number, customer_name, customer_email, customer_phone, company_name,
	street, house_number, postal_code, city, country, notes, payment_method,
	subtotal_cents, shipping_cents, discount_cents, total_cents,
	payment_id, payment_status, status, tracking_code,
	created_at, updated_at, paid_at, shipped_at`

const itemColumns = `
	id, order_id, position, item_type, text, font_id, font_name,
	color_id, color_name, color_hex, logo_url, width_cm, height_cm,
	quantity, unit_price_cents, total_price_cents, price_json`

// Repository stores orders in SQLite or Postgres. Queries are written with
// "?" placeholders and rebound for the driver.
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts the order and its items in one transaction.
func (r *Repository) Create(ctx context.Context, order *Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (
			:id, :order_number, :customer_name, :customer_email, :customer_phone, :company_name,
			:street, :house_number, :postal_code, :city, :country, :notes, :payment_method,
			:subtotal_cents, :shipping_cents, :discount_cents, :total_cents,
			:payment_id, :payment_status, :status, :tracking_code,
			:created_at, :updated_at, :paid_at, :shipped_at
		)
	`, order); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO order_items (`+itemColumns+`)
			VALUES (
				:id, :order_id, :position, :item_type, :text, :font_id, :font_name,
				:color_id, :color_name, :color_hex, :logo_url, :width_cm, :height_cm,
				:quantity, :unit_price_cents, :total_price_cents, :price_json
			)
		`, item); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	return nil
}

// GetByID returns the order with its items.
func (r *Repository) GetByID(ctx context.Context, id string) (Order, error) {
	return r.getBy(ctx, "id", id)
}

func (r *Repository) GetByNumber(ctx context.Context, number string) (Order, error) {
	return r.getBy(ctx, "order_number", strings.TrimSpace(number))
}

func (r *Repository) GetByPaymentID(ctx context.Context, paymentID string) (Order, error) {
	if paymentID == "" {
		return Order{}, ErrOrderNotFound
	}
	return r.getBy(ctx, "payment_id", paymentID)
}

func (r *Repository) getBy(ctx context.Context, column, value string) (Order, error) {
	var order Order
	err := r.db.GetContext(ctx, &order, r.db.Rebind(`SELECT `+orderColumns+` FROM orders WHERE `+column+` = ?`), value)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("query order by %s: %w", column, err)
	}

	if order.Items, err = r.Items(ctx, order.ID); err != nil {
		return Order{}, err
	}
	return order, nil
}

// Items returns the lines of an order in cart order.
func (r *Repository) Items(ctx context.Context, orderID string) ([]Item, error) {
	items := make([]Item, 0)
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(`
		SELECT `+itemColumns+`
		FROM order_items
		WHERE order_id = ?
		ORDER BY position
	`), orderID); err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	return items, nil
}

// ListQuery filters List. Search matches order number, name and email.
type ListQuery struct {
	Search string
	Status Status
	Limit  int
}

// List returns orders newest first, without items.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]Order, error) {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	like := "%" + search + "%"
	limit := q.Limit
	if limit <= 0 {
		limit = 200
	}

	orders := make([]Order, 0)
	if err := r.db.SelectContext(ctx, &orders, r.db.Rebind(`
		SELECT `+orderColumns+`
		FROM orders
		WHERE (? = '' OR LOWER(order_number) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(customer_email) LIKE ?)
		  AND (? = '' OR status = ?)
		ORDER BY created_at DESC, order_number DESC
		LIMIT ?
	`), search, like, like, like, string(q.Status), string(q.Status), limit); err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	return orders, nil
}

// SetPayment records the provider payment created for an order.
func (r *Repository) SetPayment(ctx context.Context, id, paymentID string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE orders SET payment_id = ?, updated_at = ? WHERE id = ?
	`), paymentID, r.now(), id)
	if err != nil {
		return fmt.Errorf("set order payment: %w", err)
	}
	return expectOneRow(res)
}

// ApplyPayment stores a provider payment status and moves the order to the
// matching status. Orders already in fulfilment keep their status. It returns
// the status before and after the update.
func (r *Repository) ApplyPayment(ctx context.Context, id, paymentStatus string) (before, after Status, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("begin apply payment: %w", err)
	}
	defer tx.Rollback()

	var current struct {
		Status Status     `db:"status"`
		PaidAt *time.Time `db:"paid_at"`
	}
	err = tx.GetContext(ctx, &current, tx.Rebind(`SELECT status, paid_at FROM orders WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrOrderNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("query order status: %w", err)
	}

	now := r.now()
	after = current.Status
	switch current.Status {
	case StatusPending, StatusPaid, StatusPaymentFailed:
		after = StatusFromPayment(paymentStatus)
	}
	paidAt := current.PaidAt
	if after == StatusPaid && paidAt == nil {
		paidAt = &now
	}

	won, err := storePaymentStatus(ctx, tx, id, current.Status, after, paymentStatus, paidAt, now)
	if err != nil {
		return "", "", err
	}
	if err := tx.Commit(); err != nil {
		return "", "", fmt.Errorf("commit apply payment: %w", err)
	}
	if !won {
		// A concurrent delivery changed the status first and owns the transition.
		return after, after, nil
	}
	return current.Status, after, nil
}

// storePaymentStatus writes the payment result only while the order still has
// status from. It reports false when another writer got there first.
func storePaymentStatus(ctx context.Context, tx *sqlx.Tx, id string, from, to Status, paymentStatus string, paidAt *time.Time, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE orders
		SET status = ?, payment_status = ?, paid_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`), to, paymentStatus, paidAt, now, id, from)
	if err != nil {
		return false, fmt.Errorf("update order payment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// UpdateStatus sets the status of an order.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status Status) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE orders SET status = ?, updated_at = ? WHERE id = ?
	`), status, r.now(), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return expectOneRow(res)
}

// MarkShipped moves a paid order to shipped and returns it.
func (r *Repository) MarkShipped(ctx context.Context, id, trackingCode string) (Order, error) {
	order, err := r.GetByID(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !order.Status.Shippable() {
		return Order{}, fmt.Errorf("%w: %s", ErrNotShippable, order.Status)
	}

	now := r.now()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE orders
		SET status = ?, tracking_code = ?, shipped_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`), StatusShipped, strings.TrimSpace(trackingCode), now, now, id, order.Status)
	if err != nil {
		return Order{}, fmt.Errorf("mark order shipped: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return Order{}, fmt.Errorf("%w: status changed concurrently", ErrNotShippable)
	}

	order.Status = StatusShipped
	order.TrackingCode = strings.TrimSpace(trackingCode)
	order.ShippedAt = &now
	order.UpdatedAt = now
	return order, nil
}

// ShippingRate returns the active rate for country.
func (r *Repository) ShippingRate(ctx context.Context, country string) (ShippingRate, error) {
	var rate ShippingRate
	err := r.db.GetContext(ctx, &rate, r.db.Rebind(`
		SELECT country, label, flat_cost_cents, free_from_cents, active
		FROM shipping_rates
		WHERE country = ? AND active = ?
	`), strings.ToUpper(strings.TrimSpace(country)), true)
	if errors.Is(err, sql.ErrNoRows) {
		return ShippingRate{}, ErrNoShippingRate
	}
	if err != nil {
		return ShippingRate{}, fmt.Errorf("query shipping rate: %w", err)
	}
	return rate, nil
}

// ShippingRates returns all rates by country code.
func (r *Repository) ShippingRates(ctx context.Context) ([]ShippingRate, error) {
	rates := make([]ShippingRate, 0)
	if err := r.db.SelectContext(ctx, &rates, `
		SELECT country, label, flat_cost_cents, free_from_cents, active
		FROM shipping_rates
		ORDER BY country
	`); err != nil {
		return nil, fmt.Errorf("query shipping rates: %w", err)
	}
	return rates, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}
