// Package web holds the embedded page templates and static assets.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var funcs = template.FuncMap{
	"bytes": func(n int64) string { return humanize.IBytes(uint64(n)) },
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	t, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return t, nil
}

// Render executes the layout template with data.
func Render(w io.Writer, t *template.Template, data any) error {
	return t.ExecuteTemplate(w, "layout.html", data)
}

// AssetHandler serves files under /static/ from the binary.
func AssetHandler(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if err := asset(staticFS, name, w); err != nil {
		http.NotFound(w, r)
	}
}

func asset(fsys fs.FS, requestedPath string, w http.ResponseWriter) error {
	f, err := fsys.Open(path.Join(".", requestedPath))
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}
	if stat.IsDir() {
		return errors.New("unexpected dir read")
	}

	if ct := mime.TypeByExtension(path.Ext(requestedPath)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, err = io.Copy(w, f)
	return err
}
