package services

import (
	"errors"
	"fmt"
)

var (
	ErrNoFile         = errors.New("no transaction document selected")
	ErrNotPDF         = errors.New("only PDF documents can be uploaded")
	ErrUploadInFlight = errors.New("an upload is already in progress")
)

// FetchError is a failed read from the registry: the request could not be
// made or the server answered with a non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError is a registry response whose body does not match the
// expected schema.
type DecodeError struct {
	Resource string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Resource, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UploadError is a failed document submission. Detail carries the response
// body (or transport error text) shown to the user.
type UploadError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *UploadError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Detail != "":
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Detail)
	case e.StatusCode != 0:
		return fmt.Sprintf("status %d", e.StatusCode)
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Detail
}

func (e *UploadError) Unwrap() error { return e.Err }
