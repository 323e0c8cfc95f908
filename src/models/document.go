package models

import "time"

// PDFContentType is the only document type the registry ingests.
const PDFContentType = "application/pdf"

// Document is a transaction document chosen for upload.
type Document struct {
	Name        string
	ContentType string // as declared by the browser
	Data        []byte
}

// Size returns the document length in bytes.
func (d Document) Size() int64 { return int64(len(d.Data)) }

// NotificationKind selects how a toast is styled.
type NotificationKind string

const (
	NotificationInfo  NotificationKind = "info"
	NotificationError NotificationKind = "error"
)

// Notification is a transient toast shown once and dismissed automatically.
type Notification struct {
	ID        string
	Kind      NotificationKind
	Message   string
	CreatedAt time.Time
}
