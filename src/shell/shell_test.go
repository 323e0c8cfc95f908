package shell

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/directreg/src/models"
	"github.com/username/directreg/src/services"
	"github.com/username/directreg/src/views"
)

type fakeRegistry struct {
	mu           sync.Mutex
	totals       models.Totals
	transactions []models.TransactionRecord
	totalsErr    error
	uploadErr    error

	totalsCalls int
	txCalls     int
	uploads     int

	// When set, UploadTransaction signals entered and waits on release.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeRegistry) GetTotals(ctx context.Context) (models.Totals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totalsCalls++
	return f.totals, f.totalsErr
}

func (f *fakeRegistry) GetTransactions(ctx context.Context, cusip string) ([]models.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCalls++
	return f.transactions, nil
}

func (f *fakeRegistry) UploadTransaction(ctx context.Context, doc models.Document) error {
	if f.release != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	return f.uploadErr
}

func (f *fakeRegistry) counts() (totals, txs int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totalsCalls, f.txCalls
}

func (f *fakeRegistry) setTotalsErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totalsErr = err
}

func newRegistry(t *testing.T) *fakeRegistry {
	t.Helper()
	reg := &fakeRegistry{}
	require.NoError(t, json.Unmarshal([]byte(`{"037833100": {"accounts": 2, "shares": 150.5}}`), &reg.totals))
	var list models.TransactionList
	require.NoError(t, json.Unmarshal([]byte(`{"transactions": [{"id_hash":"abc123","date":"2023-04-01T00:00:00Z","account_id_hash":"deadbeef1234","description":"Buy","price_per_share":12.34,"total_shares":10}]}`), &list))
	reg.transactions = list.Transactions
	return reg
}

func newShell(reg services.RegistryClient) *Shell {
	return New("session-1", reg, NewTokenSource(), NewToasts(time.Minute), nil)
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func pdf() *models.Document {
	return &models.Document{Name: "statement.pdf", ContentType: models.PDFContentType, Data: []byte("%PDF-1.4\n")}
}

func TestShell_RootPageShowsTotalsOnly(t *testing.T) {
	reg := newRegistry(t)
	sh := newShell(reg)

	page, err := sh.Page(context.Background(), mustURL(t, "/"))
	require.NoError(t, err)

	assert.Equal(t, "0", page.Token)
	assert.True(t, page.Totals.Visible())
	assert.False(t, page.ShowTransactions)
	assert.False(t, page.Transactions.Visible())
	totals, txs := reg.counts()
	assert.Equal(t, 1, totals)
	assert.Zero(t, txs)
}

func TestShell_TransactionsRoute(t *testing.T) {
	reg := newRegistry(t)
	sh := newShell(reg)

	page, err := sh.Page(context.Background(), mustURL(t, "/transactions?cusip=037833100"))
	require.NoError(t, err)
	assert.True(t, page.ShowTransactions)
	assert.Equal(t, "037833100 Transactions", page.Transactions.Heading)

	// Same location again reuses both mounts.
	_, err = sh.Page(context.Background(), mustURL(t, "/transactions?cusip=037833100"))
	require.NoError(t, err)
	totals, txs := reg.counts()
	assert.Equal(t, 1, totals)
	assert.Equal(t, 1, txs)

	// Leaving the route tears the detail down; coming back fetches again.
	_, err = sh.Page(context.Background(), mustURL(t, "/"))
	require.NoError(t, err)
	_, err = sh.Page(context.Background(), mustURL(t, "/transactions?cusip=037833100"))
	require.NoError(t, err)
	_, txs = reg.counts()
	assert.Equal(t, 2, txs)
}

func TestShell_SuccessfulUploadRefreshesBothViewsOnce(t *testing.T) {
	reg := newRegistry(t)
	sh := newShell(reg)
	loc := mustURL(t, "/transactions?cusip=037833100")

	_, err := sh.Page(context.Background(), loc)
	require.NoError(t, err)
	before := sh.Token()

	require.NoError(t, sh.Upload(context.Background(), pdf()))
	assert.True(t, sh.Token().After(before))

	page, err := sh.Page(context.Background(), loc)
	require.NoError(t, err)
	_, err = sh.Page(context.Background(), loc)
	require.NoError(t, err)

	totals, txs := reg.counts()
	assert.Equal(t, 2, totals)
	assert.Equal(t, 2, txs)
	assert.Equal(t, sh.Token().String(), page.Token)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, "Successfully uploaded", page.Notifications[0].Message)
	assert.False(t, page.Upload.SubmitEnabled)
}

func TestShell_FailedUploadKeepsToken(t *testing.T) {
	reg := newRegistry(t)
	reg.uploadErr = &services.UploadError{StatusCode: 422, Detail: "failed parse"}
	sh := newShell(reg)
	loc := mustURL(t, "/")

	first, err := sh.Page(context.Background(), loc)
	require.NoError(t, err)
	before := sh.Token()

	err = sh.Upload(context.Background(), pdf())
	require.Error(t, err)
	assert.Equal(t, before, sh.Token())

	page, err := sh.Page(context.Background(), loc)
	require.NoError(t, err)
	totals, _ := reg.counts()
	assert.Equal(t, 1, totals, "views are not remounted")
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, models.NotificationError, page.Notifications[0].Kind)
	assert.Contains(t, page.Notifications[0].Message, "failed parse")
	assert.NotEqual(t, first.Upload.InputKey, page.Upload.InputKey)
	assert.Empty(t, page.Upload.FileName)
}

func TestShell_NonPDFIsRejectedBeforeUpload(t *testing.T) {
	reg := newRegistry(t)
	sh := newShell(reg)

	uploadErr := sh.Upload(context.Background(), &models.Document{Name: "x.csv", ContentType: "text/csv", Data: []byte("a,b")})
	require.ErrorIs(t, uploadErr, services.ErrNotPDF)
	assert.Zero(t, reg.uploads)

	page, err := sh.Page(context.Background(), mustURL(t, "/"))
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	msg := page.Notifications[0].Message
	assert.Equal(t, "Failed upload "+uploadErr.Error(), msg)
	assert.Contains(t, msg, "x.csv", "toast carries the validation detail")
}

func TestShell_UploadWhileInFlightIsToasted(t *testing.T) {
	reg := newRegistry(t)
	reg.entered = make(chan struct{})
	reg.release = make(chan struct{})
	sh := newShell(reg)

	done := make(chan error, 1)
	go func() { done <- sh.Upload(context.Background(), pdf()) }()
	<-reg.entered

	assert.ErrorIs(t, sh.Upload(context.Background(), pdf()), services.ErrUploadInFlight, "new selection while submitting")
	assert.ErrorIs(t, sh.Upload(context.Background(), nil), services.ErrUploadInFlight, "resubmit while submitting")

	close(reg.release)
	require.NoError(t, <-done)

	page, err := sh.Page(context.Background(), mustURL(t, "/"))
	require.NoError(t, err)
	var inFlight int
	for _, n := range page.Notifications {
		if n.Message == MsgUploadInFlight {
			assert.Equal(t, models.NotificationError, n.Kind)
			inFlight++
		}
	}
	assert.Equal(t, 2, inFlight)
	assert.Equal(t, 1, reg.uploads)
}

func TestShell_SubmitWithoutFileDoesNothing(t *testing.T) {
	reg := newRegistry(t)
	sh := newShell(reg)

	assert.ErrorIs(t, sh.Upload(context.Background(), nil), services.ErrNoFile)
	assert.Zero(t, reg.uploads)
	assert.True(t, sh.Token().IsZero())
}

func TestShell_FailedFetchRetriedOnNextNavigation(t *testing.T) {
	reg := newRegistry(t)
	reg.totalsErr = &services.FetchError{URL: "/api/totals", StatusCode: 503}
	sh := newShell(reg)

	page, err := sh.Page(context.Background(), mustURL(t, "/"))
	require.NoError(t, err)
	assert.False(t, page.Totals.Visible())

	reg.setTotalsErr(nil)
	page, err = sh.Page(context.Background(), mustURL(t, "/"))
	require.NoError(t, err)
	assert.True(t, page.Totals.Visible())
	totals, _ := reg.counts()
	assert.Equal(t, 2, totals)
}

func TestShell_ReloadRemountsWithSameToken(t *testing.T) {
	reg := newRegistry(t)
	sh := newShell(reg)
	_, err := sh.Page(context.Background(), mustURL(t, "/"))
	require.NoError(t, err)

	sh.Reload()
	_, err = sh.Page(context.Background(), mustURL(t, "/"))
	require.NoError(t, err)
	totals, _ := reg.counts()
	assert.Equal(t, 2, totals)
	assert.True(t, sh.Token().IsZero())
}

func TestTokenSource_StrictlyIncreasing(t *testing.T) {
	src := NewTokenSource()
	frozen := time.Now()
	src.now = func() time.Time { return frozen }

	prev := src.Next()
	for i := 0; i < 1000; i++ {
		next := src.Next()
		require.True(t, next.After(prev))
		prev = next
	}

	src.now = func() time.Time { return frozen.Add(-time.Hour) }
	assert.True(t, src.Next().After(prev), "clock going back must not reorder tokens")
}

func TestToasts_DrainOnceInOrder(t *testing.T) {
	toasts := NewToasts(time.Minute)
	toasts.Add("a", models.NotificationInfo, "first")
	toasts.Notifier("a").Notify(models.NotificationError, "second")
	toasts.Add("b", models.NotificationInfo, "other")

	got := toasts.Drain("a")
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Message)
	assert.Equal(t, "second", got[1].Message)
	assert.NotEmpty(t, got[0].ID)
	assert.Empty(t, toasts.Drain("a"))
	assert.Len(t, toasts.Drain("b"), 1)
}

func TestToasts_Expire(t *testing.T) {
	toasts := NewToasts(20 * time.Millisecond)
	toasts.Add("a", models.NotificationInfo, "gone soon")
	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, toasts.Drain("a"))
}

func TestSessions_GetOrCreate(t *testing.T) {
	reg := newRegistry(t)
	tokens, toasts := NewTokenSource(), NewToasts(time.Minute)
	sessions := NewSessions(time.Minute, func(id string) *Shell {
		return New(id, reg, tokens, toasts, nil)
	})

	sh, created := sessions.GetOrCreate("")
	require.True(t, created)
	require.NotEmpty(t, sh.ID())

	again, created := sessions.GetOrCreate(sh.ID())
	assert.False(t, created)
	assert.Same(t, sh, again)

	_, created = sessions.GetOrCreate("unknown")
	assert.True(t, created)
	assert.Equal(t, 2, sessions.Len())

	sessions.Delete(sh.ID())
	_, ok := sessions.Get(sh.ID())
	assert.False(t, ok)
}

func TestPageModel_TransactionsLinkMatchesRoute(t *testing.T) {
	assert.Equal(t, "/transactions?cusip=037833100", views.TransactionsLink("037833100"))
	assert.Equal(t, "/transactions?cusip=a+b%26c", views.TransactionsLink("a b&c"))
}
