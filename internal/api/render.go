package api

import (
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates renders the embedded page templates for echo.
type Templates struct {
	t *template.Template
}

func NewTemplates() (*Templates, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"optionLabel": func(v string) string {
			if v == "" {
				return "All provinces"
			}
			return v
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Templates{t: t}, nil
}

func (t *Templates) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return t.t.ExecuteTemplate(w, name, data)
}
