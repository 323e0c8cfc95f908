package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/username/directreg/src/logger"
	"github.com/username/directreg/src/models"
	"github.com/username/directreg/src/security/validation"
	"github.com/username/directreg/src/services"
	"github.com/username/directreg/src/shell"
	"github.com/username/directreg/src/utils"
)

type UploadHandler struct {
	maxUploadBytes int64
}

func NewUploadHandler(maxUploadBytes int64) *UploadHandler {
	return &UploadHandler{maxUploadBytes: maxUploadBytes}
}

// HandleUpload takes the multipart field "file", hands it to the session's
// upload coordinator and sends the browser back to the page it came from.
// Clients asking for JSON get a status body instead.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	sh, ok := GetShellFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "session not found in context", http.StatusInternalServerError)
		return
	}
	log := logger.FromContext(r.Context())

	doc, err := h.readDocument(r)
	if err != nil {
		log.Warn("Failed to read uploaded file", "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if doc != nil {
		log.Info("Processing upload request", "filename", doc.Name, "size", humanize.IBytes(uint64(doc.Size())))
	}

	// The registry call and the state it settles must not be cut short by
	// the browser going away.
	err = sh.Upload(context.WithoutCancel(r.Context()), doc)

	status := http.StatusOK
	message := "Successfully uploaded"
	var uploadErr *services.UploadError
	switch {
	case err == nil:
	case errors.Is(err, services.ErrNoFile):
		status, message = http.StatusBadRequest, "No file selected"
	case errors.Is(err, services.ErrNotPDF):
		status, message = http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, services.ErrUploadInFlight):
		status, message = http.StatusConflict, shell.MsgUploadInFlight
	case errors.As(err, &uploadErr):
		status, message = http.StatusBadGateway, uploadErr.Error()
	default:
		log.Error("Internal error processing upload", "error", err)
		status, message = http.StatusInternalServerError, "An internal error occurred while processing the file."
	}

	if wantsJSON(r) {
		if status != http.StatusOK {
			utils.SendJSONError(w, message, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"message": message, "token": sh.Token().String()}); err != nil {
			log.Error("Error encoding JSON response for upload", "error", err)
		}
		return
	}

	http.Redirect(w, r, returnLocation(r), http.StatusSeeOther)
}

// readDocument returns nil without error when no file was sent.
func (h *UploadHandler) readDocument(r *http.Request) (*models.Document, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve file from request, ensure 'file' field is used: %w", err)
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		return nil, fmt.Errorf("file too large, max %s", humanize.IBytes(uint64(h.maxUploadBytes)))
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading uploaded file: %w", err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, fmt.Errorf("file too large, max %s", humanize.IBytes(uint64(h.maxUploadBytes)))
	}
	if len(data) == 0 {
		return nil, nil
	}

	return &models.Document{
		Name:        validation.SanitizeFileName(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// returnLocation picks the local page to go back to: the form's return_to,
// then the Referer when it points at this host, then the root.
func returnLocation(r *http.Request) string {
	if loc, ok := localPath(r.FormValue("return_to")); ok {
		return loc
	}
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Host == r.Host {
		if loc, ok := localPath(ref.RequestURI()); ok {
			return loc
		}
	}
	return "/"
}

func localPath(raw string) (string, bool) {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "", false
	}
	return u.RequestURI(), true
}
