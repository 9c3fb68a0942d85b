// Gemini adapter using the official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - System instruction handling via config
// - JSON-fragment streaming via the SDK iterator
// - Safety-filter blocks surfaced as classified errors, never as
//   silent empty content

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/"

// GeminiProvider implements Provider for Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	endpoint    string
	maxTokens   int32
	temperature float32
	transport   *Transport
	log         *zap.Logger
	initErr     error // client initialization error, reported on first use
}

// NewGeminiProvider creates a new Gemini provider. If client initialization
// fails the error is stored and returned on first use, preserving the
// constructor signature shared by the cloud adapters.
func NewGeminiProvider(apiKey string, opts Options) *GeminiProvider {
	p := &GeminiProvider{
		model:       opts.Model,
		endpoint:    geminiBaseURL + opts.Model + ":generateContent",
		maxTokens:   int32(opts.MaxTokens),
		temperature: opts.Temperature,
		transport:   opts.Transport,
		log:         opts.Logger,
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.Transport.Client,
	})
	if err != nil {
		p.initErr = fmt.Errorf("failed to initialize Gemini client: %w", err)
		return p
	}
	p.client = client
	return p
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string { return "gemini" }

// Model returns the current model.
func (p *GeminiProvider) Model() string { return p.model }

// Generate executes one completion, streaming when req.OnChunk is set.
func (p *GeminiProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if p.initErr != nil {
		return Response{}, p.initErr
	}

	contents, config := p.buildRequest(req)

	if req.OnChunk != nil {
		return p.generateStream(ctx, req, contents, config)
	}

	response, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return Response{}, p.fail(err)
	}

	// A 200 with no candidates means the safety filter blocked the
	// request; treating it as empty content would silently lose work.
	if len(response.Candidates) == 0 {
		return Response{}, NewError(CategoryInvalidReq,
			"response blocked by safety filters; rephrase the prompt", nil)
	}

	return Response{
		Content: response.Text(),
		Usage:   geminiUsage(response.UsageMetadata),
	}, nil
}

func (p *GeminiProvider) generateStream(ctx context.Context, req Request, contents []*genai.Content, config *genai.GenerateContentConfig) (Response, error) {
	var sb strings.Builder
	var usage *TokenUsage
	sawCandidates := false

	for response, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, config) {
		if cerr := ctx.Err(); cerr != nil {
			return Response{Content: sb.String(), Usage: usage}, cerr
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return Response{Content: sb.String(), Usage: usage}, context.Canceled
			}
			return Response{Content: sb.String(), Usage: usage}, p.fail(err)
		}
		if len(response.Candidates) > 0 {
			sawCandidates = true
		}
		if response.UsageMetadata != nil {
			usage = geminiUsage(response.UsageMetadata)
		}
		if text := response.Text(); text != "" {
			sb.WriteString(text)
			req.OnChunk(text)
		}
	}

	if !sawCandidates && sb.Len() == 0 {
		return Response{}, NewError(CategoryInvalidReq,
			"response blocked by safety filters; rephrase the prompt", nil)
	}
	return Response{Content: sb.String(), Usage: usage}, nil
}

func (p *GeminiProvider) buildRequest(req Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int32(req.MaxTokens)
	}
	temperature := p.temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: maxTokens,
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	parts := []*genai.Part{{Text: req.Prompt}}
	if len(req.Image) > 0 {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{
			MIMEType: http.DetectContentType(req.Image),
			Data:     req.Image,
		}})
	}
	if len(req.Audio) > 0 {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{
			MIMEType: http.DetectContentType(req.Audio),
			Data:     req.Audio,
		}})
	}

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
	return contents, config
}

func geminiUsage(meta *genai.GenerateContentResponseUsageMetadata) *TokenUsage {
	if meta == nil {
		return nil
	}
	return &TokenUsage{
		PromptTokens:     uint32(meta.PromptTokenCount),
		CompletionTokens: uint32(meta.CandidatesTokenCount),
		TotalTokens:      uint32(meta.TotalTokenCount),
	}
}

func (p *GeminiProvider) fail(err error) error {
	norm := normalizeError(err)
	var cerr *Error
	if errors.As(norm, &cerr) {
		status := 0
		fmt.Sscanf(cerr.Code, "%d", &status)
		p.transport.logFailure("gemini", p.model, status, p.endpoint, norm)
	}
	return norm
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
