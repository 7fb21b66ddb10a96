// Package prompts serves the prompt templates shipped with the server.
package prompts

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var rawTemplates []byte

// Argument describes one prompt argument for registration.
type Argument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// Template is one prompt definition: metadata for registration plus the
// text/template body rendered at get-prompt time.
type Template struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Arguments   []Argument `yaml:"arguments"`
	Body        string     `yaml:"body"`
}

// Catalog holds the parsed prompt templates.
type Catalog struct {
	templates map[string]*template.Template
	defs      []Template
	focus     map[string]string
}

// DefaultFocusArea is used when analyze_project_structure receives no
// focus_area argument or an unknown one.
const DefaultFocusArea = "architecture"

// Load parses the embedded template file.
func Load() (*Catalog, error) {
	var doc struct {
		Prompts           []Template        `yaml:"prompts"`
		FocusInstructions map[string]string `yaml:"focus_instructions"`
	}
	if err := yaml.Unmarshal(rawTemplates, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}

	c := &Catalog{
		templates: make(map[string]*template.Template, len(doc.Prompts)),
		defs:      doc.Prompts,
		focus:     doc.FocusInstructions,
	}
	for _, def := range doc.Prompts {
		tmpl, err := template.New(def.Name).Parse(def.Body)
		if err != nil {
			return nil, fmt.Errorf("invalid prompt template %s: %w", def.Name, err)
		}
		c.templates[def.Name] = tmpl
	}

	sort.Slice(c.defs, func(i, j int) bool { return c.defs[i].Name < c.defs[j].Name })
	return c, nil
}

// Templates returns the prompt definitions, sorted by name.
func (c *Catalog) Templates() []Template {
	out := make([]Template, len(c.defs))
	copy(out, c.defs)
	return out
}

// FocusInstruction returns the instruction text for a focus area,
// falling back to the default area for unknown names.
func (c *Catalog) FocusInstruction(area string) (string, string) {
	key := strings.ToLower(strings.TrimSpace(area))
	if instruction, ok := c.focus[key]; ok {
		return key, instruction
	}
	return DefaultFocusArea, c.focus[DefaultFocusArea]
}

// Render executes the named template with the given data.
func (c *Catalog) Render(name string, data any) (string, error) {
	tmpl, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt: %s", name)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return sb.String(), nil
}
