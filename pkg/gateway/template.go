package gateway

import (
	"errors"
	"os"
	"strings"
)

// DefaultPlaceholder marks where user input is injected into the master
// prompt template.
const DefaultPlaceholder = "[FEATURES_PLACEHOLDER]"

var ErrEmptyTemplate = errors.New("prompt template is empty")

// Template wraps screened user input into the master prompt before it is
// sent to the generation provider. Immutable after construction.
type Template struct {
	text        string
	placeholder string
}

// NewTemplate creates a template from literal text.
func NewTemplate(text string) (*Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyTemplate
	}
	return &Template{text: text, placeholder: DefaultPlaceholder}, nil
}

// LoadTemplate reads a template from a file.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewTemplate(string(data))
}

// WithPlaceholder returns a copy using a custom placeholder token.
func (t *Template) WithPlaceholder(placeholder string) *Template {
	if placeholder == "" {
		return t
	}
	return &Template{text: t.text, placeholder: placeholder}
}

// Render substitutes the user input into the template. Input is injected
// verbatim; screening happens before rendering, in the enforcement order.
func (t *Template) Render(input string) string {
	return strings.ReplaceAll(t.text, t.placeholder, input)
}
