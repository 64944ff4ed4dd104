// Package web holds the HTML templates rendered by the gallery server.
package web

import (
	// Standard library
	"embed"
	"html/template"
	"math"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses every page template together with the shared header partial.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"percent": func(f float64) int {
			return int(math.Round(f * 100))
		},
	}).ParseFS(templateFS, "templates/*.html")
}
