package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionCookieName = "bb_session"
	cartCookieName    = "bb_cart"
)

type authService struct {
	db            *sqlx.DB
	sessionSecret []byte
	secureCookies bool
}

func newAuthService(db *sqlx.DB, sessionSecret string, secureCookies bool) *authService {
	return &authService{db: db, sessionSecret: []byte(sessionSecret), secureCookies: secureCookies}
}

func (a *authService) validateCredentials(ctx context.Context, email, password string) (bool, error) {
	var passwordHash string
	err := a.db.GetContext(ctx, &passwordHash, a.db.Rebind(`SELECT password_hash FROM users WHERE email = ?`), strings.TrimSpace(email))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query user credentials: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password hash: %w", err)
	}
	return true, nil
}

// sign returns value with an HMAC so it can round-trip through a cookie.
func (a *authService) sign(value string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(value))
	mac := hmac.New(sha256.New, a.sessionSecret)
	_, _ = mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return payload + "." + signature
}

func (a *authService) verify(signed string) (string, bool) {
	parts := strings.Split(signed, ".")
	if len(parts) != 2 {
		return "", false
	}

	payload := parts[0]
	signature := parts[1]

	mac := hmac.New(sha256.New, a.sessionSecret)
	_, _ = mac.Write([]byte(payload))
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(provided, expected) {
		return "", false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	if len(decoded) == 0 {
		return "", false
	}

	return string(decoded), true
}

func (a *authService) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *authService) setSessionCookie(w http.ResponseWriter, email string) {
	http.SetCookie(w, a.cookie(sessionCookieName, a.sign("admin:"+email), 0))
}

func (a *authService) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, a.cookie(sessionCookieName, "", -1))
}

// sessionEmail returns the admin signed in on r.
func (a *authService) sessionEmail(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", false
	}
	value, ok := a.verify(cookie.Value)
	if !ok {
		return "", false
	}
	return strings.CutPrefix(value, "admin:")
}

func (a *authService) isAuthenticated(r *http.Request) bool {
	_, ok := a.sessionEmail(r)
	return ok
}

// cartSession returns the cart id of r, issuing a new signed cookie when the
// request has none or a tampered one.
func (a *authService) cartSession(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(cartCookieName); err == nil {
		if value, ok := a.verify(cookie.Value); ok {
			if id, ok := strings.CutPrefix(value, "cart:"); ok {
				return id
			}
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, a.cookie(cartCookieName, a.sign("cart:"+id), 60*60*24*30))
	return id
}
