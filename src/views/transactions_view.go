package views

import (
	"context"
	"fmt"
	"sync"

	"github.com/username/directreg/src/logger"
	"github.com/username/directreg/src/metrics"
	"github.com/username/directreg/src/models"
	"github.com/username/directreg/src/services"
	"github.com/username/directreg/src/utils"
)

// TransactionsState is the display state of the transactions detail.
type TransactionsState int

const (
	TransactionsIdle TransactionsState = iota
	TransactionsLoading
	TransactionsPopulated
)

func (s TransactionsState) String() string {
	switch s {
	case TransactionsIdle:
		return "idle"
	case TransactionsLoading:
		return "loading"
	case TransactionsPopulated:
		return "populated"
	}
	return fmt.Sprintf("TransactionsState(%d)", int(s))
}

// TransactionRow is one rendered transaction. Key is the id hash.
type TransactionRow struct {
	Key           string
	Date          string
	Account       string
	AccountTitle  string
	Description   string
	PricePerShare string
	TotalShares   string
}

// TransactionsModel is what the page template needs for the detail table.
type TransactionsModel struct {
	CUSIP   string
	Heading string
	Rows    []TransactionRow
}

// Visible reports whether anything is drawn.
func (m TransactionsModel) Visible() bool { return len(m.Rows) > 0 }

// TransactionsView lists the transactions of the CUSIP in the current
// location. A change of filter or of refresh token is a new mount.
type TransactionsView struct {
	client services.RegistryClient

	mu      sync.Mutex
	mount   *mount[[]models.TransactionRecord]
	cusip   string
	state   TransactionsState
	records []models.TransactionRecord
	failed  bool
}

// NewTransactionsView returns an idle view mounted with the starting token.
func NewTransactionsView(client services.RegistryClient) *TransactionsView {
	return &TransactionsView{
		client: client,
		mount:  newMount[[]models.TransactionRecord](models.RefreshToken{}),
	}
}

// Key returns the token of the current mount.
func (v *TransactionsView) Key() models.RefreshToken {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mount.lifetime.Key()
}

// CUSIP returns the active filter.
func (v *TransactionsView) CUSIP() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cusip
}

// Reset tears down the current mount and starts a new one for key and
// cusip. An empty cusip leaves the view idle.
func (v *TransactionsView) Reset(key models.RefreshToken, cusip string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resetLocked(key, cusip)
}

func (v *TransactionsView) resetLocked(key models.RefreshToken, cusip string) {
	v.mount.teardown()
	v.mount = newMount[[]models.TransactionRecord](key)
	v.cusip = cusip
	v.state = TransactionsIdle
	v.records = nil
	v.failed = false
	metrics.ViewRemounts.WithLabelValues("transactions").Inc()
}

// Navigate applies the filter read from the location. It remounts only
// when the filter changed and reports whether it did.
func (v *TransactionsView) Navigate(cusip string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if cusip == v.cusip {
		return false
	}
	v.resetLocked(v.mount.lifetime.Key(), cusip)
	return true
}

// Teardown ends the current mount without starting a new one.
func (v *TransactionsView) Teardown() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mount.teardown()
}

// Load fetches the transactions of the active filter once per mount and
// waits for the result. Without a filter it does nothing.
func (v *TransactionsView) Load(ctx context.Context) error {
	v.mu.Lock()
	m, cusip := v.mount, v.cusip
	if cusip == "" {
		v.mu.Unlock()
		return nil
	}
	if !m.finished() && v.state == TransactionsIdle {
		v.state = TransactionsLoading
	}
	v.mu.Unlock()

	m.start(ctx, func(fctx context.Context) ([]models.TransactionRecord, error) {
		return v.client.GetTransactions(fctx, cusip)
	}, func(records []models.TransactionRecord, err error) {
		v.apply(ctx, m, cusip, records, err)
	})
	return m.wait(ctx)
}

func (v *TransactionsView) apply(ctx context.Context, m *mount[[]models.TransactionRecord], cusip string, records []models.TransactionRecord, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mount != m {
		return
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to load transactions", "cusip", cusip, "key", m.lifetime.Key().String(), "error", err)
		v.failed = true
		v.state = TransactionsIdle
		v.records = nil
		return
	}
	if len(records) == 0 {
		v.state = TransactionsIdle
		v.records = nil
		return
	}
	v.records = records
	v.state = TransactionsPopulated
}

// State returns the current display state.
func (v *TransactionsView) State() TransactionsState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Failed reports whether the current mount's fetch failed.
func (v *TransactionsView) Failed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.failed
}

// Render builds the detail model in response order.
func (v *TransactionsView) Render() TransactionsModel {
	v.mu.Lock()
	defer v.mu.Unlock()
	model := TransactionsModel{CUSIP: v.cusip}
	if v.state != TransactionsPopulated {
		return model
	}
	model.Heading = v.cusip + " Transactions"
	model.Rows = make([]TransactionRow, 0, len(v.records))
	for _, tx := range v.records {
		model.Rows = append(model.Rows, TransactionRow{
			Key:           tx.IDHash,
			Date:          utils.DatePrefix(tx.Date),
			Account:       utils.TruncateHash(tx.AccountIDHash),
			AccountTitle:  tx.AccountIDHash,
			Description:   tx.Description,
			PricePerShare: tx.PricePerShare.String(),
			TotalShares:   tx.TotalShares.String(),
		})
	}
	return model
}
