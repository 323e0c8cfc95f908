package services

import (
	"context"

	"github.com/username/directreg/src/models"
)

// RegistryClient is the HTTP contract of the transaction registry.
type RegistryClient interface {
	GetTotals(ctx context.Context) (models.Totals, error)
	GetTransactions(ctx context.Context, cusip string) ([]models.TransactionRecord, error)
	UploadTransaction(ctx context.Context, doc models.Document) error
}

// Notifier queues a transient message for the user.
type Notifier interface {
	Notify(kind models.NotificationKind, message string)
}
