// Package llm provides shared data models for LLM providers.
package llm

// RequestType identifies what kind of content a request is generating.
// The facade uses it to pick timeouts and to decide whether structured
// parsing of the response is expected.
type RequestType string

const (
	TypeCharacter RequestType = "character"
	TypePlot      RequestType = "plot"
	TypeSynopsis  RequestType = "synopsis"
	TypeChapter   RequestType = "chapter"
	TypeDraft     RequestType = "draft"
	TypeCritique  RequestType = "critique"
	TypeRevision  RequestType = "revision"
)

// Request is the canonical, provider-agnostic request shape.
// Construct a fresh value per call; it is never mutated after dispatch.
type Request struct {
	Prompt string
	System string
	Type   RequestType

	// Image and Audio are optional inline media payloads, forwarded
	// base64-encoded by adapters whose wire format supports them.
	Image []byte
	Audio []byte

	// OnChunk, when non-nil, requests streaming. It is invoked
	// synchronously with each text chunk in arrival order. The full
	// text is still accumulated into the final Response.
	OnChunk func(chunk string)

	// MaxTokens and Temperature override the provider defaults when
	// non-zero.
	MaxTokens   int
	Temperature float32
}

// Response is the canonical response from an adapter. On a mid-stream
// failure Content holds the partial text received so far; the caller
// decides whether to keep it.
type Response struct {
	Content string
	Usage   *TokenUsage
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}
