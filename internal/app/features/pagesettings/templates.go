// internal/app/features/pagesettings/templates.go
package pagesettings

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "pagesettings",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
