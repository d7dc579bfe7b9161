// Package prompts holds the sales prompt templates. Every template is the
// shared sales role followed by one instruction with a single placeholder.
package prompts

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tmc/langchaingo/prompts"

	"sales-support/internal/models"
)

const (
	TrainingServices       = "training_services"
	OracleTrainingServices = "oracle_training_services"
)

// Template is a preamble plus an instruction mentioning Placeholder once, as {placeholder}
type Template struct {
	Name        string
	Preamble    string
	Instruction string
	Placeholder string
}

// Text is the unrendered template
func (t Template) Text() string {
	return t.Preamble + "\n" + t.Instruction
}

// Render substitutes the placeholder value. Nothing is escaped.
func (t Template) Render(values map[string]any) (string, error) {
	v, ok := values[t.Placeholder]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %s", models.ErrMissingPlaceholderValue, t.Placeholder)
	}

	pt := prompts.PromptTemplate{
		Template:       t.Text(),
		InputVariables: []string{t.Placeholder},
		TemplateFormat: prompts.TemplateFormatFString,
	}
	out, err := pt.Format(map[string]any{t.Placeholder: v})
	if err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", t.Name, err)
	}
	return out, nil
}

// Format renders the template with a single concept; an empty concept counts as absent
func (t Template) Format(concept string) (string, error) {
	if concept == "" {
		return "", fmt.Errorf("%w: %s", models.ErrMissingPlaceholderValue, t.Placeholder)
	}
	return t.Render(map[string]any{t.Placeholder: concept})
}

// Library is the registry of named templates
type Library struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewLibrary returns a library holding the built-in sales templates
func NewLibrary() *Library {
	l := &Library{templates: make(map[string]Template)}
	for _, t := range []Template{
		newSalesTemplate(TrainingServices, models.TrainingServicesInstruction),
		newSalesTemplate(OracleTrainingServices, models.OracleTrainingServicesInstruction),
	} {
		l.templates[t.Name] = t
	}
	return l
}

func newSalesTemplate(name, instruction string) Template {
	return Template{
		Name:        name,
		Preamble:    models.SalesRole,
		Instruction: instruction,
		Placeholder: models.ConceptPlaceholder,
	}
}

func (l *Library) TrainingServices() Template {
	t, _ := l.Get(TrainingServices)
	return t
}

func (l *Library) OracleTrainingServices() Template {
	t, _ := l.Get(OracleTrainingServices)
	return t
}

func (l *Library) Get(name string) (Template, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[name]
	return t, ok
}

// Names returns the registered template names, sorted
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds a template. Names are unique.
func (l *Library) Register(t Template) error {
	if t.Name == "" || t.Placeholder == "" {
		return fmt.Errorf("template name and placeholder are required")
	}
	err := prompts.CheckValidTemplate(t.Text(), prompts.TemplateFormatFString, []string{t.Placeholder})
	if err != nil {
		return fmt.Errorf("invalid template %s: %w", t.Name, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.templates[t.Name]; exists {
		return fmt.Errorf("template %s already registered", t.Name)
	}
	l.templates[t.Name] = t
	return nil
}
