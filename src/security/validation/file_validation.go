package validation

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/username/directreg/src/logger"
)

// ErrValidationFailed marks documents rejected before they reach the registry.
var ErrValidationFailed = errors.New("document validation failed")

// AllowedClientContentTypes is a map for quick lookup of allowed client-declared MIME types.
var AllowedClientContentTypes = map[string]bool{
	"application/pdf":          true,
	"application/x-pdf":        true,
	"application/octet-stream": true, // some browsers send this for picked files
	"":                         true, // no declared type, rely on magic bytes
}

var pdfMagic = []byte("%PDF-")

// pdfHeaderWindow is how far into the file the %PDF- header may start.
// Readers tolerate leading junk before it.
const pdfHeaderWindow = 1024

func init() {
	// pdfcpu would otherwise create a config directory under the user's home.
	api.DisableConfigDir()
}

// ValidateClientContentType checks the Content-Type the browser declared for the part.
func ValidateClientContentType(contentType string) error {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !AllowedClientContentTypes[ct] {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("%w: client-declared file type '%s' is not a PDF", ErrValidationFailed, contentType)
	}
	return nil
}

// ValidateFileName mirrors the picker's accept=".pdf" restriction.
func ValidateFileName(name string) error {
	if name == "" {
		return nil
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return fmt.Errorf("%w: file '%s' does not have a .pdf extension", ErrValidationFailed, name)
	}
	return nil
}

// ValidateFileContentByMagicBytes checks the actual file content signature:
// the %PDF- header must start within the first pdfHeaderWindow bytes.
// It returns the detected content type and an error if validation fails.
func ValidateFileContentByMagicBytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: file is empty", ErrValidationFailed)
	}

	head := data
	if len(head) > pdfHeaderWindow {
		head = head[:pdfHeaderWindow]
	}
	if off := bytes.Index(head, pdfMagic); off >= 0 {
		logger.L.Debug("File content type (magic bytes) validated", "detectedContentType", "application/pdf", "headerOffset", off)
		return "application/pdf", nil
	}

	detected := strings.ToLower(strings.Split(http.DetectContentType(head), ";")[0])
	logger.L.Warn("Disallowed detected file content type (magic bytes)", "detectedContentType", detected)
	return detected, fmt.Errorf("%w: detected file content type '%s' is not consistent with a PDF file", ErrValidationFailed, detected)
}

// ValidatePDFStructure parses the document and returns its page count.
func ValidatePDFStructure(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("%w: unreadable PDF: %v", ErrValidationFailed, err)
	}
	if pages < 1 {
		return 0, fmt.Errorf("%w: PDF has no pages", ErrValidationFailed)
	}
	return pages, nil
}

// ValidatePDF runs the name, declared type and magic byte checks and, when
// structural is set, the pdfcpu parse.
func ValidatePDF(name, contentType string, data []byte, structural bool) error {
	if err := ValidateFileName(name); err != nil {
		return err
	}
	if err := ValidateClientContentType(contentType); err != nil {
		return err
	}
	if _, err := ValidateFileContentByMagicBytes(data); err != nil {
		return err
	}
	if structural {
		pages, err := ValidatePDFStructure(data)
		if err != nil {
			logger.L.Warn("PDF structure validation failed", "name", name, "error", err)
			return err
		}
		logger.L.Debug("PDF structure validated", "name", name, "pages", pages)
	}
	return nil
}
