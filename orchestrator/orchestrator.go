// Package orchestrator is the single entry point for AI generation: it
// sanitizes prompts, resolves credentials, dispatches to the configured
// provider through the retry engine, and recovers structured output.
//
// Information Hiding:
// - Provider selection and credential resolution hidden behind the facade
// - Retry policy choice and streaming/no-retry rule encapsulated
// - All failures converted to a uniform non-throwing Result
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storyforge/config"
	"storyforge/internal/extract"
	"storyforge/internal/retry"
	"storyforge/llm"
	"storyforge/prompt"
	"storyforge/storage"
)

// Result is the uniform outcome of GenerateContent. Exactly one of the
// following holds: Content is non-empty and Err is nil (success, or silent
// cancellation with partial streamed text), or Err is non-nil and Content
// is empty (failure). Callers never receive a Go error.
type Result struct {
	Content string
	Usage   *llm.TokenUsage
	Err     *llm.Error
}

// Failed reports whether the call produced an error.
func (r Result) Failed() bool { return r.Err != nil }

// ErrorMessage returns the user-presentable failure text: the vendor
// message plus the category's remediation hint.
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	if r.Err.Message == "" {
		return r.Err.Category.Hint()
	}
	return r.Err.Message + " " + r.Err.Category.Hint()
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Settings     config.Settings
	Keystore     *config.Keystore
	Transport    *llm.Transport
	Logger       *zap.Logger
	Templates    *prompt.Registry
	History      *storage.HistoryStore
	Improvements *storage.ImprovementLog
}

// Orchestrator dispatches AI generation requests for the configured
// provider. Safe for concurrent use; each call owns its own context and
// stream accumulator.
type Orchestrator struct {
	settings     config.Settings
	keystore     *config.Keystore
	transport    *llm.Transport
	log          *zap.Logger
	templates    *prompt.Registry
	history      *storage.HistoryStore
	improvements *storage.ImprovementLog

	// newProvider builds the adapter for a call; replaced in tests.
	newProvider func(id llm.ProviderID, apiKey string, opts llm.Options) (llm.Provider, error)

	cloudPolicy retry.Policy
	localPolicy retry.Policy
}

// New creates an orchestrator from its collaborators. Logger and Templates
// fall back to sane defaults when nil.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Transport == nil {
		cfg.Transport = llm.NewTransport(cfg.Logger)
	}
	if cfg.Templates == nil {
		templates, err := prompt.WithDefaults()
		if err != nil {
			return nil, err
		}
		cfg.Templates = templates
	}
	return &Orchestrator{
		settings:     cfg.Settings,
		keystore:     cfg.Keystore,
		transport:    cfg.Transport,
		log:          cfg.Logger,
		templates:    cfg.Templates,
		history:      cfg.History,
		improvements: cfg.Improvements,
		newProvider:  llm.New,
		cloudPolicy:  retry.DefaultCloudPolicy(),
		localPolicy:  retry.LocalPolicy(),
	}, nil
}

// AvailableProviders lists the providers usable in this environment. Local
// is excluded when the platform cannot reach loopback services.
func (o *Orchestrator) AvailableProviders() []llm.ProviderID {
	ids := make([]llm.ProviderID, 0, len(llm.AllProviders()))
	for _, id := range llm.AllProviders() {
		if id == llm.Local && !o.transport.SupportsLoopback {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// GenerateContent runs one generation request end to end. It never returns
// a Go error; failures land in Result.Err with a remediation hint, and
// cancellation is silent (partial streamed content is preserved).
func (o *Orchestrator) GenerateContent(ctx context.Context, req llm.Request) Result {
	cleaned, stripped := SanitizePrompt(req.Prompt)
	if stripped {
		o.log.Warn("prompt-injection lines stripped from input")
	}
	if cleaned == "" {
		return Result{Err: llm.NewError(llm.CategoryInvalidReq,
			"prompt is empty after sanitization", nil)}
	}
	req.Prompt = cleaned

	id, err := o.settings.ProviderID()
	if err != nil {
		return Result{Err: llm.NewError(llm.CategoryInvalidReq, err.Error(), err)}
	}

	apiKey, err := config.APIKeyFor(id, o.keystore)
	if err != nil {
		return Result{Err: llm.NewError(llm.CategoryAPIKeyMissing, err.Error(), err)}
	}

	provider, err := o.newProvider(id, apiKey, llm.Options{
		Model:         o.settings.Model,
		MaxTokens:     o.settings.MaxTokens,
		Temperature:   o.settings.Temperature,
		LocalEndpoint: o.settings.LocalEndpoint,
		Transport:     o.transport,
		Logger:        o.log,
	})
	if err != nil {
		return Result{Err: asClassified(err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.settings.TimeoutFor(id, req.Type))
	defer cancel()

	resp, err := retry.Do(callCtx, o.policyFor(id, req), func(ctx context.Context) (llm.Response, error) {
		return provider.Generate(ctx, req)
	})
	if err != nil {
		// Cancellation is a terminal, silent, non-error outcome; the
		// partial streamed content belongs to the caller.
		if errors.Is(err, context.Canceled) {
			return Result{Content: resp.Content, Usage: resp.Usage}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Err: llm.NewError(llm.CategoryTimeout, "request timed out", err)}
		}
		return Result{Err: asClassified(err)}
	}

	return Result{
		Content: o.recoverContent(req.Type, resp.Content),
		Usage:   resp.Usage,
	}
}

// recoverContent applies best-effort structured extraction for request
// types that expect JSON. Parsing failure never suppresses content; the
// raw text always survives as the fallback.
func (o *Orchestrator) recoverContent(reqType llm.RequestType, raw string) string {
	switch reqType {
	case llm.TypeDraft, llm.TypeChapter:
		// Long-form prose is returned verbatim.
		return raw
	}
	if candidate, ok := extract.JSONCandidate(raw); ok {
		return candidate
	}
	return raw
}

// policyFor picks the retry policy for a call. Streaming requests are
// never retried; the caller owns partial-content semantics.
func (o *Orchestrator) policyFor(id llm.ProviderID, req llm.Request) retry.Policy {
	policy := o.cloudPolicy
	if id == llm.Local {
		policy = o.localPolicy
	}
	if req.OnChunk != nil {
		policy.ShouldRetry = func(error) bool { return false }
	} else {
		policy.ShouldRetry = llm.IsRetryable
	}
	policy.OnRetry = func(attempt int, err error) {
		o.log.Warn("generation attempt failed",
			zap.Int("attempt", attempt),
			zap.String("provider", id.String()),
			zap.Error(err))
	}
	return policy
}

// BuildPrompt renders a named template with sanitized variables. The
// optional reference-synopsis block is elided entirely, header included,
// when the synopsis variable is empty.
func (o *Orchestrator) BuildPrompt(category, name string, vars map[string]string) (string, error) {
	clean := make(map[string]string, len(vars))
	for k, v := range vars {
		clean[k], _ = SanitizePrompt(v)
	}

	rendered, err := o.templates.Render(category, name, clean)
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}

	if strings.TrimSpace(clean["synopsis"]) == "" {
		rendered = elideSynopsisBlock(rendered)
	}
	return rendered, nil
}

// elideSynopsisBlock removes the reference-synopsis header and the blank
// lines left behind by an empty substitution.
func elideSynopsisBlock(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for i := 0; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == prompt.SynopsisHeader {
			for i+1 < len(lines) && strings.TrimSpace(lines[i+1]) == "" {
				i++
			}
			continue
		}
		out = append(out, lines[i])
	}
	return strings.Join(out, "\n")
}

// asClassified coerces any error into a classified one.
func asClassified(err error) *llm.Error {
	var cerr *llm.Error
	if errors.As(err, &cerr) {
		return cerr
	}
	return llm.NewError(llm.CategoryUnknown, err.Error(), err)
}
