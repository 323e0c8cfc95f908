package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// TransactionRecord is one self-reported transaction as listed by
// GET /api/transactions?cusip=<id>.
type TransactionRecord struct {
	IDHash        string          `json:"id_hash"`
	Date          string          `json:"date"` // ISO-8601, shown as its date part
	AccountIDHash string          `json:"account_id_hash"`
	Description   string          `json:"description"`
	PricePerShare decimal.Decimal `json:"price_per_share"`
	TotalShares   decimal.Decimal `json:"total_shares"`
}

// TransactionList is the envelope returned by the transactions resource.
type TransactionList struct {
	Transactions []TransactionRecord `json:"transactions"`
}

type transactionWire struct {
	IDHash        *string             `json:"id_hash"`
	Date          *string             `json:"date"`
	AccountIDHash *string             `json:"account_id_hash"`
	Description   string              `json:"description"`
	PricePerShare decimal.NullDecimal `json:"price_per_share"`
	TotalShares   decimal.NullDecimal `json:"total_shares"`
}

// UnmarshalJSON rejects records missing the fields the views key and
// display on.
func (r *TransactionRecord) UnmarshalJSON(data []byte) error {
	var w transactionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.IDHash == nil || *w.IDHash == "":
		return fmt.Errorf("transaction: missing id_hash")
	case w.Date == nil:
		return fmt.Errorf("transaction %s: missing date", *w.IDHash)
	case w.AccountIDHash == nil:
		return fmt.Errorf("transaction %s: missing account_id_hash", *w.IDHash)
	case !w.PricePerShare.Valid:
		return fmt.Errorf("transaction %s: missing price_per_share", *w.IDHash)
	case !w.TotalShares.Valid:
		return fmt.Errorf("transaction %s: missing total_shares", *w.IDHash)
	}
	*r = TransactionRecord{
		IDHash:        *w.IDHash,
		Date:          *w.Date,
		AccountIDHash: *w.AccountIDHash,
		Description:   w.Description,
		PricePerShare: w.PricePerShare.Decimal,
		TotalShares:   w.TotalShares.Decimal,
	}
	return nil
}

// UnmarshalJSON requires the transactions key to be present.
func (l *TransactionList) UnmarshalJSON(data []byte) error {
	var w struct {
		Transactions *[]TransactionRecord `json:"transactions"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Transactions == nil {
		return fmt.Errorf("transaction list: missing transactions")
	}
	l.Transactions = *w.Transactions
	return nil
}
