package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/username/directreg/src/logger"
	"github.com/username/directreg/src/web"
)

type PageHandler struct {
	templates      *template.Template
	maxUploadBytes int64
	secureCookies  bool
	toastDelay     string
}

// NewPageHandler renders pages whose toasts hide after toastTTL.
func NewPageHandler(templates *template.Template, maxUploadBytes int64, secureCookies bool, toastTTL time.Duration) *PageHandler {
	return &PageHandler{
		templates:      templates,
		maxUploadBytes: maxUploadBytes,
		secureCookies:  secureCookies,
		toastDelay:     cssSeconds(toastTTL),
	}
}

// cssSeconds formats d as a CSS time, empty when d is not positive.
func cssSeconds(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}

// HandlePage renders the root view, plus the transactions view on
// /transactions. Every other path renders the root view too.
func (h *PageHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	sh, ok := GetShellFromContext(r.Context())
	if !ok {
		http.Error(w, "session not found in context", http.StatusInternalServerError)
		return
	}
	log := logger.FromContext(r.Context())

	if isReload(r) {
		log.Debug("Browser reload, remounting views", "path", r.URL.Path)
		sh.Reload()
	}

	page, err := sh.Page(r.Context(), r.URL)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug("Client went away while page was loading", "path", r.URL.Path)
			return
		}
		log.Error("Failed to build page", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	page.CSRFToken = EnsureCSRFToken(w, r, h.secureCookies)
	page.MaxUploadBytes = h.maxUploadBytes
	page.ToastDelay = h.toastDelay

	var buf bytes.Buffer
	if err := web.Render(&buf, h.templates, page); err != nil {
		log.Error("Failed to render page", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := buf.WriteTo(w); err != nil {
		log.Debug("Error writing page", "error", err)
	}
}

// isReload reports whether the browser asked to revalidate, which is what a
// manual page reload sends.
func isReload(r *http.Request) bool {
	for _, v := range r.Header.Values("Cache-Control") {
		for _, d := range strings.Split(v, ",") {
			d = strings.ToLower(strings.TrimSpace(d))
			if d == "no-cache" || d == "max-age=0" {
				return true
			}
		}
	}
	return strings.EqualFold(r.Header.Get("Pragma"), "no-cache")
}
