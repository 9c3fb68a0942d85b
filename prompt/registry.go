// Package prompt manages named prompt templates with placeholder substitution.
//
// Information Hiding:
// - Template storage and lookup implementation hidden
// - Placeholder syntax and substitution mechanics hidden
//
// Templates are addressed by (category, name) and use {variable} placeholders.
// Substitution is purely textual; sanitization of variable values is the
// caller's concern.
package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// placeholderRe matches {name}-style placeholders. Names are word characters
// only, so literal JSON braces in template bodies pass through untouched.
var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// Registry manages prompt templates with dynamic registration.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewRegistry creates a new empty template registry.
func NewRegistry() *Registry {
	return &Registry{
		templates: make(map[string]string),
	}
}

func key(category, name string) string {
	return category + "/" + name
}

// Register adds a template under (category, name).
// Returns error if the same template is already registered.
func (r *Registry) Register(category, name, template string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(category, name)
	if _, exists := r.templates[k]; exists {
		return fmt.Errorf("template '%s' already registered", k)
	}
	r.templates[k] = template
	return nil
}

// Render looks up a template and substitutes every {name} placeholder with
// the matching variable value. Placeholders with no matching variable are
// replaced with the empty string, never left in the output.
func (r *Registry) Render(category, name string, variables map[string]string) (string, error) {
	r.mu.RLock()
	template, exists := r.templates[key(category, name)]
	r.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("template '%s/%s' not found", category, name)
	}

	out := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		varName := m[1 : len(m)-1]
		return variables[varName]
	})
	return out, nil
}

// Has checks whether a template exists.
func (r *Registry) Has(category, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.templates[key(category, name)]
	return exists
}

// Names returns all registered template keys ("category/name") sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for k := range r.templates {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SynopsisHeader is the heading line of the optional reference-synopsis
// block shared by the generation templates. Callers that elide the block
// match on this exact text.
const SynopsisHeader = "Reference synopsis:"

// builtin templates mirror the generation prompts of the authoring app.
// The synopsis block is optional; rendering with an empty synopsis is the
// caller's elision concern.
var builtins = map[string]string{
	"generation/character": "Create a detailed character profile for a story.\n\n" +
		"Story context: {context}\n\n" +
		SynopsisHeader + "\n{synopsis}\n\n" +
		"Describe the character's name, role, personality, background, and goals.",
	"generation/plot": "Outline a plot for the story described below.\n\n" +
		"Story context: {context}\n\n" +
		SynopsisHeader + "\n{synopsis}\n\n" +
		"Produce a three-act structure with key turning points.",
	"generation/synopsis": "Write a one-page synopsis for the following story idea.\n\n" +
		"Idea: {context}",
	"generation/chapter": "Write chapter {chapter_number}, titled \"{title}\".\n\n" +
		"Chapter summary: {summary}\n\n" +
		SynopsisHeader + "\n{synopsis}\n\n" +
		"Setting: {setting}\nMood: {mood}\nCharacters present: {characters}\n\n" +
		"Write the full chapter prose.",
	"refine/critique": "You are a rigorous fiction editor. Critique the chapter below.\n\n" +
		"Return JSON: {\"summary\": string, \"weaknesses\": [{\"aspect\": string, " +
		"\"score\": number, \"problem\": string, \"solutions\": [string]}]}.\n\n" +
		"Chapter:\n{draft}",
	"refine/revision": "Revise the chapter below, addressing this editorial guidance.\n\n" +
		"Guidance:\n{guidance}\n\n" +
		"Return JSON: {\"revisedText\": string, \"improvementSummary\": string, " +
		"\"changes\": [string]}.\n\n" +
		"Chapter:\n{draft}",
}

// WithDefaults creates a registry preloaded with the built-in templates.
func WithDefaults() (*Registry, error) {
	registry := NewRegistry()
	for k, template := range builtins {
		category, name, _ := strings.Cut(k, "/")
		if err := registry.Register(category, name, template); err != nil {
			return nil, fmt.Errorf("failed to register default templates: %w", err)
		}
	}
	return registry, nil
}
