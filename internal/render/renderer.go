package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page wraps a View with per-response data.
type Page struct {
	View
	AppName string
	// SubmissionID tags the upload forms of this render so a double submit
	// is recognised.
	SubmissionID string
	// IdleSeconds is the inactivity window; the page reloads after it
	// elapses so an expired session is shown without further input.
	IdleSeconds int
}

// Renderer executes the portal templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("portal").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the full page.
func (r *Renderer) Render(w io.Writer, p Page) error {
	return r.tmpl.ExecuteTemplate(w, "page", p)
}
