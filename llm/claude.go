// Claude adapter using the official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Messages API request shaping, system prompt extraction
// - content_block_delta streaming via the official SDK

package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const claudeEndpoint = "https://api.anthropic.com/v1/messages"

// ClaudeProvider implements Provider for Anthropic Claude.
type ClaudeProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	transport   *Transport
	log         *zap.Logger
}

// NewClaudeProvider creates a new Claude provider.
func NewClaudeProvider(apiKey string, opts Options) *ClaudeProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(opts.Transport.Client),
	)
	return &ClaudeProvider{
		client:      client,
		model:       opts.Model,
		maxTokens:   int64(opts.MaxTokens),
		temperature: float64(opts.Temperature),
		transport:   opts.Transport,
		log:         opts.Logger,
	}
}

// Name returns the provider name.
func (p *ClaudeProvider) Name() string { return "claude" }

// Model returns the current model.
func (p *ClaudeProvider) Model() string { return p.model }

// Generate executes one completion, streaming when req.OnChunk is set.
func (p *ClaudeProvider) Generate(ctx context.Context, req Request) (Response, error) {
	params := p.buildParams(req)

	if req.OnChunk != nil {
		return p.generateStream(ctx, req, params)
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, p.fail(err)
	}

	content := ""
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += variant.Text
		}
	}

	var usage *TokenUsage
	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		usage = &TokenUsage{
			PromptTokens:     uint32(message.Usage.InputTokens),
			CompletionTokens: uint32(message.Usage.OutputTokens),
			TotalTokens:      uint32(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
	}
	return Response{Content: content, Usage: usage}, nil
}

func (p *ClaudeProvider) generateStream(ctx context.Context, req Request, params anthropic.MessageNewParams) (Response, error) {
	stream := p.client.Messages.NewStreaming(ctx, params)

	var sb strings.Builder
	var usage *TokenUsage
	for stream.Next() {
		if err := ctx.Err(); err != nil {
			return Response{Content: sb.String(), Usage: usage}, err
		}
		event := stream.Current()
		switch eventVariant := event.AsAny().(type) {
		case anthropic.MessageStartEvent:
			if eventVariant.Message.Usage.InputTokens > 0 {
				usage = &TokenUsage{PromptTokens: uint32(eventVariant.Message.Usage.InputTokens)}
			}
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if deltaVariant.Text != "" {
					sb.WriteString(deltaVariant.Text)
					req.OnChunk(deltaVariant.Text)
				}
			}
		case anthropic.MessageDeltaEvent:
			if eventVariant.Usage.OutputTokens > 0 {
				if usage == nil {
					usage = &TokenUsage{}
				}
				usage.CompletionTokens = uint32(eventVariant.Usage.OutputTokens)
				usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
			}
		}
	}
	if err := stream.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return Response{Content: sb.String(), Usage: usage}, context.Canceled
		}
		return Response{Content: sb.String(), Usage: usage}, p.fail(err)
	}
	return Response{Content: sb.String(), Usage: usage}, nil
}

func (p *ClaudeProvider) buildParams(req Request) anthropic.MessageNewParams {
	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}
	temperature := p.temperature
	if req.Temperature > 0 {
		temperature = float64(req.Temperature)
	}

	var userBlocks []anthropic.ContentBlockParamUnion
	if len(req.Image) > 0 {
		mime := http.DetectContentType(req.Image)
		userBlocks = append(userBlocks, anthropic.NewImageBlockBase64(
			mime, base64.StdEncoding.EncodeToString(req.Image)))
	}
	userBlocks = append(userBlocks, anthropic.NewTextBlock(req.Prompt))

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(userBlocks...),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	return params
}

func (p *ClaudeProvider) fail(err error) error {
	norm := normalizeError(err)
	var cerr *Error
	if errors.As(norm, &cerr) {
		status := 0
		fmt.Sscanf(cerr.Code, "%d", &status)
		p.transport.logFailure("claude", p.model, status, claudeEndpoint, norm)
	}
	return norm
}

// Verify ClaudeProvider implements Provider
var _ Provider = (*ClaudeProvider)(nil)
