// Package render turns named templates into HTML fragments. Templates and
// admin assets are embedded in the binary.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed assets
var assetFiles embed.FS

// Assets exposes the embedded admin scripts and styles rooted at "assets".
func Assets() fs.FS {
	sub, err := fs.Sub(assetFiles, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// Renderer holds the parsed template set.
type Renderer struct {
	tmpl *template.Template
}

// New parses every embedded template. Each file defines a template named
// after the file without its extension.
func New() (*Renderer, error) {
	funcs := template.FuncMap{
		"contains": func(set map[uint64]bool, id uint64) bool { return set[id] },
		"eq_or_default": func(value, want, def string) bool {
			if value == "" {
				value = def
			}
			return value == want
		},
		"or_default": func(value, def string) string {
			if strings.TrimSpace(value) == "" {
				return def
			}
			return value
		},
	}
	tmpl, err := template.New("root").Funcs(funcs).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the template name with vars and returns the markup.
func (r *Renderer) Render(name string, vars any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, vars); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
