package views

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/username/directreg/src/logger"
	"github.com/username/directreg/src/metrics"
	"github.com/username/directreg/src/models"
	"github.com/username/directreg/src/services"
)

// TransactionsRoute is the navigation target of a totals row.
const TransactionsRoute = "/transactions"

// TotalsState is the display state of the totals table.
type TotalsState int

const (
	TotalsEmpty TotalsState = iota
	TotalsPopulated
)

func (s TotalsState) String() string {
	switch s {
	case TotalsEmpty:
		return "empty"
	case TotalsPopulated:
		return "populated"
	}
	return fmt.Sprintf("TotalsState(%d)", int(s))
}

// TotalsRow is one rendered line of the totals table.
type TotalsRow struct {
	CUSIP    string
	Accounts int
	Shares   string
	Link     string
}

// TotalsModel is what the page template needs to draw the totals table.
// No table is drawn when Rows is empty.
type TotalsModel struct {
	Key  string
	Rows []TotalsRow
}

// Visible reports whether the table is drawn at all.
func (m TotalsModel) Visible() bool { return len(m.Rows) > 0 }

// TotalsView shows aggregate holdings per CUSIP. Each mount issues exactly
// one GET of the totals resource.
type TotalsView struct {
	client services.RegistryClient

	mu     sync.Mutex
	mount  *mount[models.Totals]
	state  TotalsState
	totals models.Totals
	failed bool
}

// NewTotalsView returns a view mounted with the starting token.
func NewTotalsView(client services.RegistryClient) *TotalsView {
	return &TotalsView{
		client: client,
		mount:  newMount[models.Totals](models.RefreshToken{}),
	}
}

// Key returns the token of the current mount.
func (v *TotalsView) Key() models.RefreshToken {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mount.lifetime.Key()
}

// Reset tears the current mount down and starts a new one for key. All
// fetched state is discarded; an in-flight fetch of the old mount can no
// longer change the view.
func (v *TotalsView) Reset(key models.RefreshToken) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mount.teardown()
	v.mount = newMount[models.Totals](key)
	v.state = TotalsEmpty
	v.totals = nil
	v.failed = false
	metrics.ViewRemounts.WithLabelValues("totals").Inc()
}

// Teardown ends the current mount without starting a new one.
func (v *TotalsView) Teardown() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mount.teardown()
}

// Load issues the mount's fetch if it has not been issued yet and waits for
// it. The fetch keeps running if ctx ends first. Fetch failures are logged
// and leave the view empty; the returned error is only ctx's.
func (v *TotalsView) Load(ctx context.Context) error {
	v.mu.Lock()
	m := v.mount
	v.mu.Unlock()

	m.start(ctx, v.client.GetTotals, func(totals models.Totals, err error) {
		v.apply(ctx, m, totals, err)
	})
	return m.wait(ctx)
}

func (v *TotalsView) apply(ctx context.Context, m *mount[models.Totals], totals models.Totals, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mount != m {
		return
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to load totals", "key", m.lifetime.Key().String(), "error", err)
		v.failed = true
		v.state = TotalsEmpty
		v.totals = nil
		return
	}
	v.totals = totals
	if totals.Len() == 0 {
		v.state = TotalsEmpty
		return
	}
	v.state = TotalsPopulated
}

// State returns the current display state.
func (v *TotalsView) State() TotalsState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Failed reports whether the current mount's fetch failed.
func (v *TotalsView) Failed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.failed
}

// Render builds the table model, in server order.
func (v *TotalsView) Render() TotalsModel {
	v.mu.Lock()
	defer v.mu.Unlock()
	model := TotalsModel{Key: v.mount.lifetime.Key().String()}
	if v.state != TotalsPopulated {
		return model
	}
	model.Rows = make([]TotalsRow, 0, len(v.totals))
	for _, e := range v.totals {
		model.Rows = append(model.Rows, TotalsRow{
			CUSIP:    e.CUSIP,
			Accounts: e.Accounts,
			Shares:   e.Shares.String(),
			Link:     TransactionsLink(e.CUSIP),
		})
	}
	return model
}

// TransactionsLink is the route of the transactions view for cusip.
func TransactionsLink(cusip string) string {
	return TransactionsRoute + "?" + url.Values{"cusip": []string{cusip}}.Encode()
}
