package messages

import (
	"embed"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

//go:embed templates
var TemplatesFS embed.FS

// Catalog holds the bot's reply templates, loaded from an embedded yaml
// file so wording changes never touch code.
type Catalog struct {
	templates map[string]string
}

func NewCatalog(fsys fs.FS) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, "templates/replies.yaml")
	if err != nil {
		return nil, fmt.Errorf("read reply templates: %w", err)
	}
	return newCatalogFromBytes(data)
}

func newCatalogFromBytes(data []byte) (*Catalog, error) {
	var templates map[string]string
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("parse reply templates: %w", err)
	}
	return &Catalog{templates: templates}, nil
}

// T renders the template for key. Unknown keys come back verbatim so a
// missing template is visible in the chat instead of silently empty.
func (c *Catalog) T(key string, args ...interface{}) string {
	format, ok := c.templates[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
