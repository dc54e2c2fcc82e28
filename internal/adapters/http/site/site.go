// Package site renders the HTML prediction form and result pages.
package site

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.html
var templateFS embed.FS

// Field is one form input or echoed value.
type Field struct {
	Name  string
	Label string
	Value string
	Error string
}

// FormView is the data for the prediction form.
type FormView struct {
	Fields []Field
	Notice string
	Scale  string
}

// ResultView is the data for a successful prediction.
type ResultView struct {
	Score  string
	Grade  string
	Inputs []Field
}

// Renderer executes the embedded page templates. Output is HTML-escaped.
type Renderer struct {
	form   *pongo2.Template
	result *pongo2.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	set := pongo2.NewSet("site", pongo2.NewFSLoader(sub))

	form, err := set.FromFile("index.html")
	if err != nil {
		return nil, fmt.Errorf("%w: index.html: %w", ErrTemplate, err)
	}
	result, err := set.FromFile("result.html")
	if err != nil {
		return nil, fmt.Errorf("%w: result.html: %w", ErrTemplate, err)
	}
	return &Renderer{form: form, result: result}, nil
}

// MustRenderer is NewRenderer for package-level setup; the templates are
// embedded, so a failure is a build defect.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Form writes the prediction form.
func (r *Renderer) Form(w io.Writer, v FormView) error {
	err := r.form.ExecuteWriter(pongo2.Context{
		"fields": v.Fields,
		"notice": v.Notice,
		"scale":  v.Scale,
	}, w)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

// Result writes the prediction result page.
func (r *Renderer) Result(w io.Writer, v ResultView) error {
	err := r.result.ExecuteWriter(pongo2.Context{
		"score":  v.Score,
		"grade":  v.Grade,
		"inputs": v.Inputs,
	}, w)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

// FormFields builds one field per feature, in order, carrying submitted
// values and per-field errors.
func FormFields(features []string, values, errs map[string]string) []Field {
	out := make([]Field, len(features))
	for i, name := range features {
		out[i] = Field{
			Name:  name,
			Label: Label(name),
			Value: values[name],
			Error: errs[name],
		}
	}
	return out
}

// Label turns a feature name such as "hours_studied" into "Hours studied".
func Label(name string) string {
	s := strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if s == "" {
		return name
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
