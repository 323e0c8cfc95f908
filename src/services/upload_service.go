package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/username/directreg/src/logger"
	"github.com/username/directreg/src/metrics"
	"github.com/username/directreg/src/models"
	"github.com/username/directreg/src/security/validation"
)

// UploadState is the lifecycle of the upload form.
type UploadState int

const (
	UploadIdle UploadState = iota
	UploadReady
	UploadSubmitting
)

func (s UploadState) String() string {
	switch s {
	case UploadIdle:
		return "idle"
	case UploadReady:
		return "ready"
	case UploadSubmitting:
		return "submitting"
	}
	return fmt.Sprintf("UploadState(%d)", int(s))
}

const (
	msgUploadSucceeded = "Successfully uploaded"
	msgUploadFailed    = "Failed upload"
)

// DocumentValidator decides whether a document may be selected.
type DocumentValidator func(doc models.Document) error

// PDFValidator accepts PDF documents only; structural adds a full parse.
func PDFValidator(structural bool) DocumentValidator {
	return func(doc models.Document) error {
		return validation.ValidatePDF(doc.Name, doc.ContentType, doc.Data, structural)
	}
}

// UploadCoordinator owns the upload form state: the selected document, the
// in-flight guard and the key of the file input control.
type UploadCoordinator struct {
	client   RegistryClient
	notifier Notifier
	refresh  func()
	validate DocumentValidator

	mu       sync.Mutex
	state    UploadState
	file     *models.Document
	inputKey int64
}

// NewUploadCoordinator wires the coordinator to the registry, the toast host
// and the refresh callback invoked after each accepted document.
func NewUploadCoordinator(client RegistryClient, notifier Notifier, refresh func(), validate DocumentValidator) *UploadCoordinator {
	if refresh == nil {
		refresh = func() {}
	}
	if validate == nil {
		validate = PDFValidator(false)
	}
	return &UploadCoordinator{
		client:   client,
		notifier: notifier,
		refresh:  refresh,
		validate: validate,
		inputKey: 1,
	}
}

// State returns the current lifecycle state.
func (c *UploadCoordinator) State() UploadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SubmitEnabled is true exactly when a file is selected and nothing is in flight.
func (c *UploadCoordinator) SubmitEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file != nil && c.state != UploadSubmitting
}

// InputKey identifies the current file input instance. It changes after
// every submit cycle so the page renders a fresh, empty control.
func (c *UploadCoordinator) InputKey() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputKey
}

// Selected returns the chosen document, if any.
func (c *UploadCoordinator) Selected() (models.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return models.Document{}, false
	}
	return *c.file, true
}

// Select stores doc as the chosen file. Non-PDF documents are refused.
func (c *UploadCoordinator) Select(doc models.Document) error {
	if err := c.validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == UploadSubmitting {
		return ErrUploadInFlight
	}
	c.file = &doc
	c.state = UploadReady
	return nil
}

// Submit sends the selected document. Without a selection it does nothing
// and returns ErrNoFile; while another submit is running it returns
// ErrUploadInFlight. Registry failures are returned as *UploadError after
// being reported through the notifier.
func (c *UploadCoordinator) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state == UploadSubmitting {
		c.mu.Unlock()
		return ErrUploadInFlight
	}
	if c.file == nil {
		c.mu.Unlock()
		return ErrNoFile
	}
	doc := *c.file
	c.state = UploadSubmitting
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.file == nil {
			c.state = UploadIdle
		} else {
			c.state = UploadReady
		}
		c.mu.Unlock()
	}()

	log := logger.FromContext(ctx)
	err := c.client.UploadTransaction(ctx, doc)

	// The selection is dropped either way; a failed document has to be
	// chosen again.
	c.mu.Lock()
	c.inputKey = nextInputKey(c.inputKey)
	c.file = nil
	c.mu.Unlock()

	if err != nil {
		var uploadErr *UploadError
		if !errors.As(err, &uploadErr) {
			uploadErr = &UploadError{Err: err, Detail: err.Error()}
		}
		log.Error("failed import", "name", doc.Name, "size", doc.Size(), "status", uploadErr.StatusCode, "error", uploadErr)
		metrics.Uploads.WithLabelValues(metrics.OutcomeError).Inc()
		c.notify(models.NotificationError, fmt.Sprintf("%s %s", msgUploadFailed, uploadErr.Error()))
		return uploadErr
	}

	log.Info("successfully imported", "name", doc.Name, "size", doc.Size())
	metrics.Uploads.WithLabelValues(metrics.OutcomeOK).Inc()
	c.refresh()
	c.notify(models.NotificationInfo, msgUploadSucceeded)
	return nil
}

func (c *UploadCoordinator) notify(kind models.NotificationKind, msg string) {
	if c.notifier != nil {
		c.notifier.Notify(kind, msg)
	}
}

// nextInputKey is time based like the browser original but never repeats.
func nextInputKey(prev int64) int64 {
	now := time.Now().UnixNano()
	if now <= prev {
		return prev + 1
	}
	return now
}
