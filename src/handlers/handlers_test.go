package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsReload(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, isReload(r))

	r.Header.Set("Cache-Control", "max-age=0")
	assert.True(t, isReload(r))

	r.Header.Set("Cache-Control", "private, no-cache")
	assert.True(t, isReload(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Pragma", "no-cache")
	assert.True(t, isReload(r))
}

func TestLocalPath(t *testing.T) {
	for raw, want := range map[string]string{
		"/":                             "/",
		"/transactions?cusip=037833100": "/transactions?cusip=037833100",
	} {
		got, ok := localPath(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got)
	}
	for _, raw := range []string{"", "transactions", "//evil.example", "/\\evil.example", "https://evil.example/"} {
		_, ok := localPath(raw)
		assert.False(t, ok, raw)
	}
}

func TestReturnLocation_FallsBackToReferer(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://front.test/upload", nil)
	r.Header.Set("Referer", "http://front.test/transactions?cusip=X")
	assert.Equal(t, "/transactions?cusip=X", returnLocation(r))

	r = httptest.NewRequest(http.MethodPost, "http://front.test/upload", nil)
	r.Header.Set("Referer", "http://other.test/transactions")
	assert.Equal(t, "/", returnLocation(r))
}

func TestUploadLimiter(t *testing.T) {
	l := NewUploadLimiter(2, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var seen *wrapResponseWriter
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.(*wrapResponseWriter)
		http.NotFound(w, r)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, seen.status)
	assert.Positive(t, seen.bytes)
}
