package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// TotalRecord is the aggregate holding of one security.
type TotalRecord struct {
	Accounts int             `json:"accounts"`
	Shares   decimal.Decimal `json:"shares"`
}

// TotalEntry pairs a CUSIP with its aggregate.
type TotalEntry struct {
	CUSIP string
	TotalRecord
}

// Totals is the /api/totals mapping. Entries keep the order in which the
// server wrote the object keys.
type Totals []TotalEntry

// Len reports the number of securities.
func (t Totals) Len() int { return len(t) }

// UnmarshalJSON walks the object token by token so that key order survives.
func (t *Totals) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading totals: %w", err)
	}
	if tok == nil {
		*t = Totals{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("totals: expected object, got %v", tok)
	}

	out := Totals{}
	seen := make(map[string]struct{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading totals key: %w", err)
		}
		cusip, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("totals: expected string key, got %v", keyTok)
		}
		if cusip == "" {
			return fmt.Errorf("totals: empty security identifier")
		}

		var raw totalWire
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("totals[%s]: %w", cusip, err)
		}
		rec, err := raw.validate()
		if err != nil {
			return fmt.Errorf("totals[%s]: %w", cusip, err)
		}

		// Later duplicates win, like a plain JSON object would.
		if _, dup := seen[cusip]; dup {
			for i := range out {
				if out[i].CUSIP == cusip {
					out[i].TotalRecord = rec
				}
			}
			continue
		}
		seen[cusip] = struct{}{}
		out = append(out, TotalEntry{CUSIP: cusip, TotalRecord: rec})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading totals end: %w", err)
	}
	*t = out
	return nil
}

type totalWire struct {
	Accounts *json.Number        `json:"accounts"`
	Shares   decimal.NullDecimal `json:"shares"`
}

func (w totalWire) validate() (TotalRecord, error) {
	if w.Accounts == nil {
		return TotalRecord{}, fmt.Errorf("missing accounts")
	}
	accounts, err := w.Accounts.Int64()
	if err != nil {
		return TotalRecord{}, fmt.Errorf("accounts is not an integer: %w", err)
	}
	if accounts < 0 {
		return TotalRecord{}, fmt.Errorf("negative accounts %d", accounts)
	}
	if !w.Shares.Valid {
		return TotalRecord{}, fmt.Errorf("missing shares")
	}
	return TotalRecord{Accounts: int(accounts), Shares: w.Shares.Decimal}, nil
}
