package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/hpungsan/fishfacts/internal/catalog"
	"github.com/hpungsan/fishfacts/internal/errors"
	"github.com/hpungsan/fishfacts/internal/species"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Refresh bool // reload the page shortly (set while a request is in flight)
}

// Row is one rendered catalog line.
type Row struct {
	Species     string `json:"species"`
	Calories    string `json:"calories"`
	Fat         string `json:"fat"`
	ServingSize string `json:"serving_size"`
}

// CatalogPageData is the template data for the catalog page.
type CatalogPageData struct {
	PageData
	About    template.HTML
	Query    string
	Sort     species.SortKey
	SortKeys []species.SortKey
	Message  string // lifecycle message shown instead of rows, "" when rows are shown
	Rows     []Row
	Footer   string
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// catalogJSON is the JSON rendering of a view state.
type catalogJSON struct {
	Loading bool            `json:"loading"`
	Error   bool            `json:"error"`
	Query   string          `json:"query"`
	Sort    species.SortKey `json:"sort"`
	Message string          `json:"message"`
	Footer  string          `json:"footer"`
	Count   int             `json:"count"`
	Rows    []Row           `json:"rows"`
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	about     template.HTML
	logger    *zap.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
// aboutMarkdown is converted once and shown on the catalog page.
func NewRenderer(templateFS fs.FS, version, aboutMarkdown string, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}

	layoutTmpl := template.Must(template.New("layout").ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"catalog": "catalog.html",
		"error":   "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	var about template.HTML
	if strings.TrimSpace(aboutMarkdown) != "" {
		about = renderMarkdown(aboutMarkdown)
	}

	return &Renderer{
		templates: templates,
		version:   version,
		about:     about,
		logger:    logger,
	}
}

// catalogPage builds the template data for a view state.
func (r *Renderer) catalogPage(state catalog.ViewState) CatalogPageData {
	data := CatalogPageData{
		PageData: PageData{
			Title:   "Fish Nutrition Search",
			Version: r.version,
			Refresh: state.Loading,
		},
		About:    r.about,
		Query:    state.Query,
		Sort:     state.Sort,
		SortKeys: species.SortKeys,
		Message:  state.Message(),
		Footer:   state.Footer(),
	}
	if state.ShowRows() {
		data.Rows = rowsFor(state.Records)
	}
	return data
}

// catalogJSONFor renders a view state for API clients.
func catalogJSONFor(state catalog.ViewState) catalogJSON {
	rows := []Row{}
	if state.ShowRows() {
		rows = rowsFor(state.Records)
	}
	return catalogJSON{
		Loading: state.Loading,
		Error:   state.Error,
		Query:   state.Query,
		Sort:    state.Sort,
		Message: state.Message(),
		Footer:  state.Footer(),
		Count:   len(state.Records),
		Rows:    rows,
	}
}

func rowsFor(records []species.Record) []Row {
	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = Row{
			Species:     rec.Name(),
			Calories:    rec.Calories(),
			Fat:         rec.FatTotal(),
			ServingSize: rec.ServingWeight(),
		}
	}
	return rows
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}
	r.renderBlock(w, status, name, block, data)
}

// renderBlock renders a specific named block from a page template.
// Used for partial swaps that target a sub-section of the page.
func (r *Renderer) renderBlock(w http.ResponseWriter, status int, page, block string, data any) {
	t, ok := r.templates[page]
	if !ok {
		r.logger.Error("template not found", zap.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.logger.Error("template execution error", zap.String("page", page), zap.String("block", block), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	cErr := errors.As(err)

	status := cErr.Status
	message := cErr.Message
	if cErr.Code == errors.ErrInternal {
		r.logger.Error("internal error", zap.Error(err))
		message = "an internal error occurred"
	}

	// HTMX request: return HTML fragment
	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(cErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the source is dropped by goldmark's default renderer.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
