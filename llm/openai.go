// OpenAI adapter using the go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Chat-completions request shaping, including the max_tokens vs
//   max_completion_tokens split across model families
// - SSE streaming via go-openai

package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openAICore is the shared implementation behind every OpenAI-compatible
// adapter (OpenAI itself, Grok, and local servers).
type openAICore struct {
	client      *openai.Client
	name        string
	model       string
	endpoint    string
	maxTokens   int
	temperature float32
	transport   *Transport
	log         *zap.Logger
}

// OpenAIProvider implements Provider for OpenAI.
type OpenAIProvider struct {
	openAICore
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey string, opts Options) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = opts.Transport.Client
	return &OpenAIProvider{openAICore{
		client:      openai.NewClientWithConfig(cfg),
		name:        "openai",
		model:       opts.Model,
		endpoint:    cfg.BaseURL + "/chat/completions",
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		transport:   opts.Transport,
		log:         opts.Logger,
	}}
}

// Name returns the provider name.
func (c *openAICore) Name() string { return c.name }

// Model returns the current model.
func (c *openAICore) Model() string { return c.model }

// Generate executes one completion, streaming when req.OnChunk is set.
func (c *openAICore) Generate(ctx context.Context, req Request) (Response, error) {
	if req.OnChunk != nil {
		return c.generateStream(ctx, req)
	}

	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req, false))
	if err != nil {
		return Response{}, c.fail(err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	return Response{
		Content: content,
		Usage: &TokenUsage{
			PromptTokens:     uint32(resp.Usage.PromptTokens),
			CompletionTokens: uint32(resp.Usage.CompletionTokens),
			TotalTokens:      uint32(resp.Usage.TotalTokens),
		},
	}, nil
}

func (c *openAICore) generateStream(ctx context.Context, req Request) (Response, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(req, true))
	if err != nil {
		return Response{}, c.fail(err)
	}
	defer stream.Close()

	var sb strings.Builder
	var usage *TokenUsage
	for {
		if err := ctx.Err(); err != nil {
			return Response{Content: sb.String(), Usage: usage}, err
		}
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return Response{Content: sb.String(), Usage: usage}, nil
		}
		if err != nil {
			// Partial content is preserved; the caller decides.
			return Response{Content: sb.String(), Usage: usage}, c.fail(err)
		}
		if chunk.Usage != nil {
			usage = &TokenUsage{
				PromptTokens:     uint32(chunk.Usage.PromptTokens),
				CompletionTokens: uint32(chunk.Usage.CompletionTokens),
				TotalTokens:      uint32(chunk.Usage.TotalTokens),
			}
		}
		if len(chunk.Choices) > 0 {
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				sb.WriteString(delta)
				req.OnChunk(delta)
			}
		}
	}
}

func (c *openAICore) buildRequest(req Request, stream bool) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    c.buildMessages(req),
		Temperature: c.temperature,
		Stream:      stream,
	}
	if req.Temperature > 0 {
		out.Temperature = req.Temperature
	}

	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	// Reasoning-family models reject max_tokens in favor of the newer
	// completion-tokens field.
	if usesCompletionTokensField(c.model) {
		out.MaxCompletionTokens = maxTokens
	} else {
		out.MaxTokens = maxTokens
	}

	if stream {
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return out
}

func (c *openAICore) buildMessages(req Request) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(req.Image) > 0 {
		user.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: inlineDataURL(req.Image),
				},
			},
		}
	} else {
		user.Content = req.Prompt
	}
	return append(messages, user)
}

func (c *openAICore) fail(err error) error {
	norm := normalizeError(err)
	var cerr *Error
	if errors.As(norm, &cerr) {
		status := 0
		fmt.Sscanf(cerr.Code, "%d", &status)
		c.transport.logFailure(c.name, c.model, status, c.endpoint, norm)
	}
	return norm
}

// usesCompletionTokensField reports whether the model family requires
// max_completion_tokens instead of max_tokens.
func usesCompletionTokensField(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// inlineDataURL encodes media bytes as a data: URL with a sniffed MIME type.
func inlineDataURL(data []byte) string {
	mime := http.DetectContentType(data)
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
