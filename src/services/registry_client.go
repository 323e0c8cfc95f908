package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/username/directreg/src/logger"
	"github.com/username/directreg/src/metrics"
	"github.com/username/directreg/src/models"
)

const (
	totalsPath       = "/api/totals"
	transactionsPath = "/api/transactions"

	// Upper bound on error bodies copied into an UploadError.
	maxErrorDetail = 512
)

// registryClientImpl implements RegistryClient over HTTP.
type registryClientImpl struct {
	httpClient *http.Client
	baseURL    string
}

// NewRegistryClient returns a client for the registry at baseURL. An empty
// baseURL keeps request paths relative, which only works with a transport
// that resolves them itself. timeout <= 0 leaves the client without one.
func NewRegistryClient(baseURL string, timeout time.Duration) RegistryClient {
	client := &http.Client{}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return NewRegistryClientWithHTTP(baseURL, client)
}

// NewRegistryClientWithHTTP is NewRegistryClient with a caller-supplied
// http.Client.
func NewRegistryClientWithHTTP(baseURL string, client *http.Client) RegistryClient {
	return &registryClientImpl{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *registryClientImpl) GetTotals(ctx context.Context) (models.Totals, error) {
	var totals models.Totals
	if err := c.getJSON(ctx, "totals", totalsPath, nil, &totals); err != nil {
		return nil, err
	}
	return totals, nil
}

func (c *registryClientImpl) GetTransactions(ctx context.Context, cusip string) ([]models.TransactionRecord, error) {
	var list models.TransactionList
	query := url.Values{"cusip": []string{cusip}}
	if err := c.getJSON(ctx, "transactions", transactionsPath, query, &list); err != nil {
		return nil, err
	}
	return list.Transactions, nil
}

// UploadTransaction posts the raw document bytes. Any 2xx answer is success.
func (c *registryClientImpl) UploadTransaction(ctx context.Context, doc models.Document) error {
	start := time.Now()
	defer func() {
		metrics.RegistryLatency.WithLabelValues("upload").Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transactionsPath, bytes.NewReader(doc.Data))
	if err != nil {
		return &UploadError{Err: err, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", models.PDFContentType)
	req.ContentLength = doc.Size()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RegistryRequests.WithLabelValues("upload", metrics.OutcomeError).Inc()
		return &UploadError{Err: err, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorDetail))
		metrics.RegistryRequests.WithLabelValues("upload", metrics.OutcomeRejected).Inc()
		return &UploadError{
			StatusCode: resp.StatusCode,
			Detail:     strings.TrimSpace(string(body)),
			Err:        fmt.Errorf("registry rejected document: %s", resp.Status),
		}
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	metrics.RegistryRequests.WithLabelValues("upload", metrics.OutcomeOK).Inc()
	logger.FromContext(ctx).Debug("Registry accepted document", "name", doc.Name, "status", resp.StatusCode)
	return nil
}

// getJSON performs one GET and decodes a 2xx JSON body into out. It does not
// retry.
func (c *registryClientImpl) getJSON(ctx context.Context, resource, path string, query url.Values, out any) error {
	start := time.Now()
	defer func() {
		metrics.RegistryLatency.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	}()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &FetchError{URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RegistryRequests.WithLabelValues(resource, metrics.OutcomeError).Inc()
		return &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorDetail))
		metrics.RegistryRequests.WithLabelValues(resource, metrics.OutcomeError).Inc()
		return &FetchError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
			metrics.RegistryRequests.WithLabelValues(resource, metrics.OutcomeError).Inc()
			return &FetchError{URL: target, StatusCode: resp.StatusCode, Err: err}
		}
		metrics.RegistryRequests.WithLabelValues(resource, metrics.OutcomeDecode).Inc()
		return &DecodeError{Resource: resource, Err: err}
	}

	metrics.RegistryRequests.WithLabelValues(resource, metrics.OutcomeOK).Inc()
	return nil
}
