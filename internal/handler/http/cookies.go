package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/griebenowschalk/manga-tracker/internal/domain"
)

// Cookie names. The refresh cookie is scoped to the auth routes so it is
// only ever transmitted on refresh and logout.
const (
	AccessCookieName  = "mt_access"
	RefreshCookieName = "mt_refresh"
	CSRFCookieName    = "XSRF-TOKEN"

	refreshCookiePath = "/api/v1/auth"
)

// CookieConfig controls how session cookies are written.
type CookieConfig struct {
	Secure     bool
	SameSite   http.SameSite
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// setSessionCookies writes the token pair plus a fresh CSRF token. The token
// cookies are httpOnly; the CSRF cookie is deliberately readable so the
// frontend can echo it back in the X-CSRF-Token header.
func setSessionCookies(w http.ResponseWriter, tokens *domain.TokenPair, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    tokens.AccessToken,
		Path:     "/",
		MaxAge:   int(cfg.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    tokens.RefreshToken,
		Path:     refreshCookiePath,
		MaxAge:   int(cfg.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    uuid.New().String(),
		Path:     "/",
		MaxAge:   int(cfg.RefreshTTL.Seconds()),
		HttpOnly: false,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// clearSessionCookies expires every session cookie.
func clearSessionCookies(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}
