// Package shell composes the per-session page: it owns the refresh token,
// the two data views, the upload form and the toast queue.
package shell

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/username/directreg/src/logger"
	"github.com/username/directreg/src/models"
	"github.com/username/directreg/src/services"
	"github.com/username/directreg/src/views"
)

// MsgUploadInFlight is shown when an upload arrives while another one is
// still being processed.
const MsgUploadInFlight = "An upload is already being processed"

// UploadModel is the state of the upload form.
type UploadModel struct {
	InputKey      int64
	SubmitEnabled bool
	Submitting    bool
	FileName      string
}

// PageModel is everything the layout template renders.
type PageModel struct {
	Token            string
	Path             string
	Location         string
	Totals           views.TotalsModel
	ShowTransactions bool
	Transactions     views.TransactionsModel
	Upload           UploadModel
	Notifications    []models.Notification
	CSRFToken        string
	MaxUploadBytes   int64
	// ToastDelay is how long a toast stays on screen, as a CSS time.
	ToastDelay       string
}

// Shell is the top-level composer of one browser session.
type Shell struct {
	id     string
	tokens *TokenSource
	toasts *Toasts

	totals       *views.TotalsView
	transactions *views.TransactionsView
	upload       *services.UploadCoordinator

	mu    sync.Mutex
	token models.RefreshToken
}

// New wires a session shell. The views start mounted with the zero token.
func New(id string, client services.RegistryClient, tokens *TokenSource, toasts *Toasts, validate services.DocumentValidator) *Shell {
	s := &Shell{
		id:           id,
		tokens:       tokens,
		toasts:       toasts,
		totals:       views.NewTotalsView(client),
		transactions: views.NewTransactionsView(client),
	}
	s.upload = services.NewUploadCoordinator(client, toasts.Notifier(id), s.Refresh, validate)
	return s
}

// ID is the session id.
func (s *Shell) ID() string { return s.id }

// Token returns the current refresh token.
func (s *Shell) Token() models.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Refresh issues a new token and remounts both views with it.
func (s *Shell) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = s.tokens.Next()
	s.remountLocked()
}

// Reload remounts both views with the current token, as a browser reload
// of the page would.
func (s *Shell) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remountLocked()
}

func (s *Shell) remountLocked() {
	s.totals.Reset(s.token)
	s.transactions.Reset(s.token, s.transactions.CUSIP())
}

// Page applies the navigation location to the views, loads them
// concurrently and returns the page model. Fetch failures never fail the
// page; only ctx ending does.
func (s *Shell) Page(ctx context.Context, loc *url.URL) (PageModel, error) {
	s.mu.Lock()
	token := s.token
	onTransactions := loc.Path == views.TransactionsRoute
	cusip := ""
	if onTransactions {
		cusip = loc.Query().Get("cusip")
	}
	if !s.transactions.Navigate(cusip) && s.transactions.Failed() {
		s.transactions.Reset(token, cusip)
	}
	if s.totals.Failed() {
		s.totals.Reset(token)
	}
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.totals.Load(gctx) })
	g.Go(func() error { return s.transactions.Load(gctx) })
	if err := g.Wait(); err != nil {
		return PageModel{}, fmt.Errorf("loading page %s: %w", loc.Path, err)
	}

	page := PageModel{
		Token:            token.String(),
		Path:             loc.Path,
		Location:         loc.RequestURI(),
		Totals:           s.totals.Render(),
		ShowTransactions: onTransactions,
		Transactions:     s.transactions.Render(),
		Upload:           s.uploadModel(),
		Notifications:    s.toasts.Drain(s.id),
	}
	return page, nil
}

func (s *Shell) uploadModel() UploadModel {
	m := UploadModel{
		InputKey:      s.upload.InputKey(),
		SubmitEnabled: s.upload.SubmitEnabled(),
		Submitting:    s.upload.State() == services.UploadSubmitting,
	}
	if doc, ok := s.upload.Selected(); ok {
		m.FileName = doc.Name
	}
	return m
}

// Upload selects doc and submits it. A nil doc submits whatever is
// selected, which without a selection does nothing. Non-PDF documents are
// refused before any request, and they and uploads arriving while another is
// in flight are reported with a toast.
func (s *Shell) Upload(ctx context.Context, doc *models.Document) error {
	if doc != nil {
		if err := s.upload.Select(*doc); err != nil {
			if errors.Is(err, services.ErrNotPDF) {
				logger.FromContext(ctx).Warn("rejected non-PDF document", "name", doc.Name, "contentType", doc.ContentType, "error", err)
				s.toasts.Add(s.id, models.NotificationError, fmt.Sprintf("Failed upload %v", err))
			}
			s.toastInFlight(ctx, err)
			return err
		}
	}
	err := s.upload.Submit(ctx)
	s.toastInFlight(ctx, err)
	return err
}

func (s *Shell) toastInFlight(ctx context.Context, err error) {
	if errors.Is(err, services.ErrUploadInFlight) {
		logger.FromContext(ctx).Warn("upload refused while another is in flight")
		s.toasts.Add(s.id, models.NotificationError, MsgUploadInFlight)
	}
}

// UploadState exposes the coordinator state.
func (s *Shell) UploadState() services.UploadState {
	return s.upload.State()
}

// Close tears down both views.
func (s *Shell) Close() {
	s.totals.Teardown()
	s.transactions.Teardown()
}
