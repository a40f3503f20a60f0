package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/notepad/internal/errors"
	"github.com/hpungsan/notepad/internal/logging"
	"github.com/hpungsan/notepad/internal/ops"
	"github.com/hpungsan/notepad/internal/update"
)

// internalMessage replaces INTERNAL error messages on the wire.
const internalMessage = "an internal error occurred"

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item
}

// ListPageData is the template data for the update history page.
type ListPageData struct {
	PageData
	Items      []ops.UpdateSummary
	Pagination ops.Pagination
	Status     string
	Type       string
}

// DetailPageData is the template data for the update detail page.
type DetailPageData struct {
	PageData
	Update   *update.Update
	PlanHTML template.HTML
	Progress string
	Current  bool
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"add":        func(a, b int) int { return a + b },
		"sub":        func(a, b int) int { return a - b },
		"formatTime": formatTime,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"list":   "list.html",
		"detail": "detail.html",
		"error":  "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	log := logging.Component("web")

	t, ok := r.templates[name]
	if !ok {
		log.Error().Str("template", name).Msg("template not found")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	nErr := errors.As(err)
	message := nErr.Message
	if nErr.Code == errors.ErrInternal {
		log := logging.Component("web")
		log.Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
		message = internalMessage
	}

	// JSON request
	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		renderAPIError(w, err)
		return
	}

	// Full error page
	r.renderPageStatus(w, req, nErr.Status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", nErr.Status),
			Version: r.version,
		},
		StatusCode: nErr.Status,
		Message:    message,
	})
}

// renderAPIError writes {"error": {code, message, status[, details]}}.
func renderAPIError(w http.ResponseWriter, err error) {
	nErr := errors.As(err)
	errObj := map[string]any{
		"code":    string(nErr.Code),
		"message": nErr.Message,
		"status":  nErr.Status,
	}
	if nErr.Code == errors.ErrInternal {
		errObj["message"] = internalMessage
	} else if nErr.Details != nil {
		errObj["details"] = nErr.Details
	}
	renderJSON(w, nErr.Status, map[string]any{"error": errObj})
}

// renderProxyError writes the flat {"error": message, "code": code} body of
// the model proxy endpoints. Upstream failures are reported as 500.
func renderProxyError(w http.ResponseWriter, err error) {
	nErr := errors.As(err)
	message := nErr.Message
	if nErr.Code == errors.ErrInternal {
		message = internalMessage
	}
	status := nErr.Status
	if nErr.Code == errors.ErrCancelled {
		status = http.StatusInternalServerError
	}
	renderJSON(w, status, map[string]string{
		"error": message,
		"code":  string(nErr.Code),
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the source is omitted by goldmark's default renderer.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a timestamp as "2006-01-02 15:04" UTC.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
