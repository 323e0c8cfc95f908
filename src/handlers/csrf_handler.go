package handlers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/username/directreg/src/logger"
	"github.com/username/directreg/src/utils"
)

const (
	CSRFCookieName = "directreg_csrf"
	CSRFHeaderName = "X-CSRF-Token"
	CSRFFormField  = "csrf_token"
)

// EnsureCSRFToken returns the caller's CSRF token, issuing a cookie when
// there is none yet.
func EnsureCSRFToken(w http.ResponseWriter, r *http.Request, secure bool) string {
	if c, err := r.Cookie(CSRFCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	token := generateRandomToken()
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   secure,
	})
	return token
}

// Generate a random token for CSRF protection
func generateRandomToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logger.L.Error("Error generating random bytes for CSRF token", "error", err)
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// CSRFMiddleware checks state-changing requests with the double-submit
// pattern: the token from the header or the form must equal the cookie.
// It bounds the body to maxBytes and parses the form, so handlers behind it
// read an already parsed request.
func CSRFMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			log := logger.FromContext(r.Context())

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			if err := r.ParseMultipartForm(maxBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					log.Warn("Request body too large", "path", r.URL.Path, "limit", maxBytes)
					utils.SendJSONError(w, fmt.Sprintf("File too large, max %s", humanize.IBytes(uint64(maxBytes))), http.StatusRequestEntityTooLarge)
					return
				}
				log.Warn("Failed to parse form", "path", r.URL.Path, "error", err)
				utils.SendJSONError(w, "Failed to parse form", http.StatusBadRequest)
				return
			}

			token := r.Header.Get(CSRFHeaderName)
			if token == "" {
				token = r.FormValue(CSRFFormField)
			}
			cookie, err := r.Cookie(CSRFCookieName)
			if token != "" && err == nil && subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			log.Warn("CSRF validation failed",
				"method", r.Method,
				"path", r.URL.Path,
				"hasToken", token != "",
				"hasCookie", err == nil,
				"referer", r.Header.Get("Referer"))
			utils.SendJSONError(w, "CSRF token validation failed", http.StatusForbidden)
		})
	}
}
