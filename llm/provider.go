// Provider interface - the abstract interface for LLM vendors.
// Each adapter hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Vendor-specific error normalization
// - Streaming event framing

package llm

import "context"

// Provider is the per-vendor adapter interface. Implementations translate
// the canonical Request into the vendor wire format and normalize failures
// into *Error values before returning.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Generate executes one completion. When req.OnChunk is set the
	// adapter streams, forwarding chunks in order while accumulating the
	// full text for the returned Response. On a mid-stream error the
	// partial content accumulated so far is returned alongside the error.
	Generate(ctx context.Context, req Request) (Response, error)
}
