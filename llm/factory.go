// Provider factory - closed provider set with compile-checked dispatch.
//
// The provider id is a tagged enum rather than a raw string so that adding a
// vendor is an exhaustiveness requirement, not a silent fallthrough.

package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ProviderID identifies a supported LLM vendor.
type ProviderID int

const (
	// OpenAI is the OpenAI chat-completions API.
	OpenAI ProviderID = iota
	// Claude is the Anthropic messages API.
	Claude
	// Gemini is the Google generative-language API.
	Gemini
	// Grok is the xAI API (OpenAI-compatible).
	Grok
	// Local is a self-hosted OpenAI-compatible server (LM Studio, Ollama).
	Local
)

// String returns the canonical lowercase name.
func (p ProviderID) String() string {
	switch p {
	case OpenAI:
		return "openai"
	case Claude:
		return "claude"
	case Gemini:
		return "gemini"
	case Grok:
		return "grok"
	case Local:
		return "local"
	default:
		return "unknown"
	}
}

// EnvVar returns the environment variable holding this provider's API key.
func (p ProviderID) EnvVar() string {
	switch p {
	case OpenAI:
		return "OPENAI_API_KEY"
	case Claude:
		return "ANTHROPIC_API_KEY"
	case Gemini:
		return "GEMINI_API_KEY"
	case Grok:
		return "XAI_API_KEY"
	case Local:
		return "" // local servers are unauthenticated
	default:
		return ""
	}
}

// DefaultModel returns the default model for this provider.
func (p ProviderID) DefaultModel() string {
	switch p {
	case OpenAI:
		return "gpt-4o"
	case Claude:
		return "claude-sonnet-4-20250514"
	case Gemini:
		return "gemini-2.5-flash"
	case Grok:
		return "grok-3"
	case Local:
		return "local-model"
	default:
		return ""
	}
}

// NeedsAPIKey reports whether the provider requires a configured key.
func (p ProviderID) NeedsAPIKey() bool { return p != Local }

// ParseProviderID parses a provider from string (case-insensitive).
func ParseProviderID(s string) (ProviderID, error) {
	switch strings.ToLower(s) {
	case "openai", "gpt":
		return OpenAI, nil
	case "claude", "anthropic":
		return Claude, nil
	case "gemini", "google":
		return Gemini, nil
	case "grok", "xai":
		return Grok, nil
	case "local":
		return Local, nil
	default:
		return 0, fmt.Errorf("unknown provider: %q", s)
	}
}

// AllProviders lists every supported provider id.
func AllProviders() []ProviderID {
	return []ProviderID{OpenAI, Claude, Gemini, Grok, Local}
}

// Options carries optional adapter configuration.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
	// LocalEndpoint is the base URL of the local server; required for Local.
	LocalEndpoint string
	Transport     *Transport
	Logger        *zap.Logger
}

func (o *Options) applyDefaults(id ProviderID) {
	if o.Model == "" {
		o.Model = id.DefaultModel()
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = 4096
	}
	if o.Temperature == 0 {
		o.Temperature = 0.7
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Transport == nil {
		o.Transport = NewTransport(o.Logger)
	}
}

// New constructs the adapter for the given provider id.
func New(id ProviderID, apiKey string, opts Options) (Provider, error) {
	opts.applyDefaults(id)

	if id.NeedsAPIKey() && apiKey == "" {
		return nil, NewError(CategoryAPIKeyMissing,
			fmt.Sprintf("no API key configured for %s", id), nil)
	}

	switch id {
	case OpenAI:
		return NewOpenAIProvider(apiKey, opts), nil
	case Claude:
		return NewClaudeProvider(apiKey, opts), nil
	case Gemini:
		return NewGeminiProvider(apiKey, opts), nil
	case Grok:
		return NewGrokProvider(apiKey, opts), nil
	case Local:
		return NewLocalProvider(opts)
	default:
		return nil, fmt.Errorf("unknown provider id: %v", id)
	}
}
