// Local LLM adapter for self-hosted OpenAI-compatible servers
// (LM Studio, Ollama, llama.cpp server).
//
// Local servers get extra guard rails:
// - the endpoint must resolve to a loopback or private-network address,
//   rejected before any request is issued
// - prompts are truncated and token limits clamped to what small local
//   models can realistically handle

package llm

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// localMaxPromptChars caps prompt length sent to local models.
	localMaxPromptChars = 3000
	// localMaxTokens caps the requested completion size.
	localMaxTokens = 8192
)

// LocalProvider implements Provider for a local OpenAI-compatible server.
type LocalProvider struct {
	openAICore
	endpoint string
}

// NewLocalProvider creates a local provider after validating the endpoint.
// Validation happens here so a misconfigured endpoint fails fast, before
// any network call.
func NewLocalProvider(opts Options) (*LocalProvider, error) {
	if err := ValidateLocalEndpoint(opts.LocalEndpoint); err != nil {
		return nil, err
	}
	if !opts.Transport.SupportsLoopback {
		return nil, NewError(CategoryInvalidReq,
			"this environment cannot reach loopback network services", nil)
	}

	cfg := openai.DefaultConfig("") // local servers are unauthenticated
	cfg.BaseURL = strings.TrimSuffix(opts.LocalEndpoint, "/") + "/v1"
	cfg.HTTPClient = opts.Transport.Client
	return &LocalProvider{
		openAICore: openAICore{
			client:      openai.NewClientWithConfig(cfg),
			name:        "local",
			model:       opts.Model,
			endpoint:    cfg.BaseURL + "/chat/completions",
			maxTokens:   opts.MaxTokens,
			temperature: opts.Temperature,
			transport:   opts.Transport,
			log:         opts.Logger,
		},
		endpoint: opts.LocalEndpoint,
	}, nil
}

// Generate applies local limits before delegating to the shared core.
func (p *LocalProvider) Generate(ctx context.Context, req Request) (Response, error) {
	req.Prompt = truncatePrompt(req.Prompt, localMaxPromptChars)
	if req.MaxTokens == 0 || req.MaxTokens > localMaxTokens {
		req.MaxTokens = min(p.maxTokens, localMaxTokens)
	}
	return p.openAICore.Generate(ctx, req)
}

// ValidateLocalEndpoint checks that a local-server URL is well formed and
// points at a loopback or private-network host. Anything else is rejected
// as a misconfiguration: a "local" provider must never reach out to the
// public internet.
func ValidateLocalEndpoint(endpoint string) error {
	if endpoint == "" {
		return NewError(CategoryInvalidReq, "local endpoint is not configured", nil)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return NewError(CategoryInvalidReq,
			fmt.Sprintf("invalid local endpoint %q", endpoint), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewError(CategoryInvalidReq,
			fmt.Sprintf("local endpoint must use http or https, got %q", u.Scheme), nil)
	}
	if port := u.Port(); port != "" {
		if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
			return NewError(CategoryInvalidReq,
				fmt.Sprintf("invalid local endpoint port %q", port), nil)
		}
	}

	host := u.Hostname()
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return NewError(CategoryInvalidReq,
			fmt.Sprintf("local endpoint host %q is not a loopback or private address", host), nil)
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
		return nil
	}
	return NewError(CategoryInvalidReq,
		fmt.Sprintf("local endpoint host %q is not a loopback or private address", host), nil)
}

// truncatePrompt caps a prompt at limit characters. Counting runes rather
// than bytes keeps the cap meaningful for multibyte text.
func truncatePrompt(s string, limit int) string {
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

// Verify LocalProvider implements Provider
var _ Provider = (*LocalProvider)(nil)
