// Package render builds the small HTML pages the proxy returns itself, such
// as the restart acknowledgement.
package render

import (
	"bytes"
	_ "embed"
	"html/template"
)

//go:embed templates/base.html
var baseTemplate string

// DefaultServerName is shown in the page footer.
const DefaultServerName = "yapas"

// page is the data passed to the base template.
type page struct {
	Title   string
	Message string
	Server  string
}

// Renderer renders the base page. It is safe for concurrent use.
type Renderer struct {
	tmpl   *template.Template
	server string
}

// New parses the embedded base template.
func New() *Renderer {
	return &Renderer{
		tmpl:   template.Must(template.New("base").Parse(baseTemplate)),
		server: DefaultServerName,
	}
}

// Render returns the base page showing msg. msg is HTML-escaped.
func (r *Renderer) Render(msg string) []byte {
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, page{Title: msg, Message: msg, Server: r.server})
	if err != nil {
		// Execution can only fail on a template bug; fall back to plain text.
		return []byte(template.HTMLEscapeString(msg))
	}
	return buf.Bytes()
}
