package validation

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateClientContentType(t *testing.T) {
	for _, ct := range []string{"application/pdf", "APPLICATION/PDF", "application/octet-stream", "", "application/pdf; name=x.pdf"} {
		assert.NoError(t, ValidateClientContentType(ct), ct)
	}
	for _, ct := range []string{"text/csv", "image/png", "application/vnd.ms-excel"} {
		err := ValidateClientContentType(ct)
		require.Error(t, err, ct)
		assert.True(t, errors.Is(err, ErrValidationFailed))
	}
}

func TestValidateFileName(t *testing.T) {
	assert.NoError(t, ValidateFileName("statement.pdf"))
	assert.NoError(t, ValidateFileName("STATEMENT.PDF"))
	assert.NoError(t, ValidateFileName(""))
	assert.Error(t, ValidateFileName("statement.csv"))
	assert.Error(t, ValidateFileName("statement.pdf.exe"))
}

func TestValidateFileContentByMagicBytes(t *testing.T) {
	detected, err := ValidateFileContentByMagicBytes([]byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", detected)

	_, err = ValidateFileContentByMagicBytes([]byte("date,isin,amount\n"))
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = ValidateFileContentByMagicBytes(nil)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateFileContentByMagicBytes_HeaderAfterLeadingBytes(t *testing.T) {
	for name, data := range map[string][]byte{
		"newline":   []byte("\n%PDF-1.4\n"),
		"crlf":      []byte("\r\n\r\n%PDF-1.7\n"),
		"bom":       []byte("\xef\xbb\xbf%PDF-1.5\n"),
		"near edge": append(bytes.Repeat([]byte(" "), pdfHeaderWindow-len(pdfMagic)), []byte("%PDF-1.4\n")...),
	} {
		detected, err := ValidateFileContentByMagicBytes(data)
		require.NoError(t, err, name)
		assert.Equal(t, "application/pdf", detected, name)
	}

	late := append(bytes.Repeat([]byte(" "), pdfHeaderWindow), []byte("%PDF-1.4\n")...)
	_, err := ValidateFileContentByMagicBytes(late)
	assert.ErrorIs(t, err, ErrValidationFailed, "header past the window")

	assert.NoError(t, ValidatePDF("a.pdf", "application/pdf", []byte("\n%PDF-1.4\n"), false))
}

func TestValidatePDFStructure_RejectsGarbage(t *testing.T) {
	_, err := ValidatePDFStructure([]byte("%PDF-1.4\nthis is not really a pdf\n"))
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidatePDF(t *testing.T) {
	pdf := []byte("%PDF-1.7\n")
	assert.NoError(t, ValidatePDF("a.pdf", "application/pdf", pdf, false))
	assert.Error(t, ValidatePDF("a.txt", "application/pdf", pdf, false))
	assert.Error(t, ValidatePDF("a.pdf", "text/plain", pdf, false))
	assert.Error(t, ValidatePDF("a.pdf", "application/pdf", []byte("hello"), false))
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "statement.pdf", SanitizeFileName(`C:\Users\me\statement.pdf`))
	assert.Equal(t, "statement.pdf", SanitizeFileName("../../statement.pdf"))
	assert.Equal(t, "bad name.pdf", SanitizeFileName("bad\x00\nname.pdf"))
	assert.Equal(t, "", SanitizeFileName(""))
}
