package auth

import (
	"net/http"
	"time"
)

const (
	AccessCookie  = "jwt"
	RefreshCookie = "refresh_token"
)

func tokenCookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetAccessCookie sets the access token cookie.
func SetAccessCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, tokenCookie(AccessCookie, token, ttl))
}

// SetTokenCookies sets both token cookies for a grant.
func SetTokenCookies(w http.ResponseWriter, g Grant, cfg Config) {
	SetAccessCookie(w, g.AccessToken, cfg.AccessTokenTTL)
	http.SetCookie(w, tokenCookie(RefreshCookie, g.RefreshToken, cfg.RefreshTokenTTL))
}

// ClearTokenCookies expires both token cookies.
func ClearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c := tokenCookie(name, "", 0)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

// TokensFromRequest returns the access and refresh token cookie values.
func TokensFromRequest(r *http.Request) (access, refresh string) {
	if c, err := r.Cookie(AccessCookie); err == nil {
		access = c.Value
	}
	if c, err := r.Cookie(RefreshCookie); err == nil {
		refresh = c.Value
	}
	return access, refresh
}
