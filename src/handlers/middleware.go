package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/username/directreg/src/logger"
	"github.com/username/directreg/src/shell"
	"github.com/username/directreg/src/utils"
)

type contextKey string

const shellContextKey contextKey = "shell"

// SessionCookieName carries the opaque session id.
const SessionCookieName = "directreg_session"

// SessionMiddleware attaches the caller's Shell to the request context,
// starting a new session when the cookie is missing or expired.
type SessionMiddleware struct {
	sessions *shell.Sessions
	secure   bool
}

func NewSessionMiddleware(sessions *shell.Sessions, secureCookies bool) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, secure: secureCookies}
}

func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(SessionCookieName); err == nil {
			id = c.Value
		}

		sh, created := m.sessions.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    sh.ID(),
				Path:     "/",
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			})
			logger.L.Debug("Session started", "session", sh.ID(), "path", r.URL.Path)
		}

		ctx := context.WithValue(r.Context(), shellContextKey, sh)
		ctx = logger.WithContext(ctx, logger.L.With("session", sh.ID()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetShellFromContext returns the session shell set by SessionMiddleware.
func GetShellFromContext(ctx context.Context) (*shell.Shell, bool) {
	sh, ok := ctx.Value(shellContextKey).(*shell.Shell)
	return sh, ok
}

type wrapResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *wrapResponseWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *wrapResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *wrapResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// RequestLogger logs one line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &wrapResponseWriter{ResponseWriter: w}
		next.ServeHTTP(ww, r)
		if ww.status == 0 {
			ww.status = http.StatusOK
		}
		logger.FromContext(r.Context()).Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"bytes", ww.bytes,
			"duration", time.Since(start).String(),
			"remoteAddr", r.RemoteAddr)
	})
}

// UploadLimiter bounds how often one session may upload.
type UploadLimiter struct {
	limiters *cache.Cache
	every    time.Duration
	burst    int
}

// NewUploadLimiter allows perMinute uploads per session. Limiters of idle
// sessions are dropped after idle.
func NewUploadLimiter(perMinute int, idle time.Duration) *UploadLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &UploadLimiter{
		limiters: cache.New(idle, idle),
		every:    time.Minute / time.Duration(perMinute),
		burst:    perMinute,
	}
}

func (l *UploadLimiter) limiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Get(key); ok {
		l.limiters.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rate.Every(l.every), l.burst)
	if err := l.limiters.Add(key, lim, cache.DefaultExpiration); err != nil {
		// Lost the race; use the stored one.
		if v, ok := l.limiters.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

// Middleware rejects requests over the limit with 429. It keys on the
// session when one is in the context and on the remote address otherwise.
func (l *UploadLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if sh, ok := GetShellFromContext(r.Context()); ok {
			key = sh.ID()
		}
		if !l.limiter(key).Allow() {
			logger.FromContext(r.Context()).Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			utils.SendJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
