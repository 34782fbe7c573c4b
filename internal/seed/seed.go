package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/beletteringbestellen/plakletters/internal/orders"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
	// ShippingRates defaults to orders.DefaultShippingRates.
	ShippingRates []orders.ShippingRate
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, db *sqlx.DB, cfg Config) (Stats, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	stats := Stats{}

	if err := seedAdmin(ctx, tx, cfg.AdminEmail, cfg.AdminPassword, &stats); err != nil {
		return Stats{}, err
	}

	rates := cfg.ShippingRates
	if rates == nil {
		rates = orders.DefaultShippingRates()
	}
	for _, rate := range rates {
		if err := ensureShippingRate(ctx, tx, rate, &stats); err != nil {
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

// seedAdmin creates the admin user, or rehashes its password when the
// configured one no longer matches.
func seedAdmin(ctx context.Context, tx *sqlx.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var hashes []string
	if err := tx.SelectContext(ctx, &hashes, tx.Rebind(`SELECT password_hash FROM users WHERE email = ?`), email); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if len(hashes) > 0 {
		err := bcrypt.CompareHashAndPassword([]byte(hashes[0]), []byte(password))
		if err == nil {
			return nil
		}
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("compare admin password: %w", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if len(hashes) > 0 {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET password_hash = ? WHERE email = ?`), string(hash), email); err != nil {
			return fmt.Errorf("update admin password: %w", err)
		}
		stats.Updates++
		return nil
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO users (email, password_hash) VALUES (?, ?)`), email, string(hash)); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

// ensureShippingRate inserts a missing rate. Existing rows are left alone so
// edits made in the database survive restarts.
func ensureShippingRate(ctx context.Context, tx *sqlx.Tx, rate orders.ShippingRate, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowxContext(ctx, tx.Rebind(`SELECT EXISTS(SELECT 1 FROM shipping_rates WHERE country = ?)`), rate.Country).Scan(&exists); err != nil {
		return fmt.Errorf("check shipping rate %s existence: %w", rate.Country, err)
	}
	if exists {
		return nil
	}

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO shipping_rates (country, label, flat_cost_cents, free_from_cents, active)
		VALUES (:country, :label, :flat_cost_cents, :free_from_cents, :active)
	`, rate); err != nil {
		return fmt.Errorf("insert shipping rate %s: %w", rate.Country, err)
	}
	stats.Inserts++
	return nil
}
