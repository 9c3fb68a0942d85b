// Grok (xAI) adapter.
//
// xAI exposes an OpenAI-compatible API, so this adapter is the shared
// OpenAI-compatible core pointed at the xAI endpoint.

package llm

import (
	openai "github.com/sashabaranov/go-openai"
)

const grokBaseURL = "https://api.x.ai/v1"

// GrokProvider implements Provider for xAI Grok.
type GrokProvider struct {
	openAICore
}

// NewGrokProvider creates a new Grok provider.
func NewGrokProvider(apiKey string, opts Options) *GrokProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = grokBaseURL
	cfg.HTTPClient = opts.Transport.Client
	return &GrokProvider{openAICore{
		client:      openai.NewClientWithConfig(cfg),
		name:        "grok",
		model:       opts.Model,
		endpoint:    grokBaseURL + "/chat/completions",
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		transport:   opts.Transport,
		log:         opts.Logger,
	}}
}

// Verify GrokProvider implements Provider
var _ Provider = (*GrokProvider)(nil)
