// Error classification for LLM calls.
//
// Every transport or vendor failure is normalized into an *Error carrying a
// closed Category, a retryable bit, and a user-facing remediation hint
// before it crosses the adapter boundary. Classification is pure: the same
// status and message always yield the same category.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Category is the closed error taxonomy.
type Category string

const (
	CategoryAPIKeyMissing Category = "api_key_missing"
	CategoryAPIKeyInvalid Category = "api_key_invalid"
	CategoryRateLimit     Category = "rate_limit"
	CategoryTimeout       Category = "timeout"
	CategoryNetwork       Category = "network"
	CategoryQuotaExceeded Category = "quota_exceeded"
	CategoryModelNotFound Category = "model_not_found"
	CategoryInvalidReq    Category = "invalid_request"
	CategoryServerError   Category = "server_error"
	CategoryUnknown       Category = "unknown"
)

// Retryable reports whether a failure in this category is worth retrying.
// This bit is the sole retry input when no explicit predicate is supplied.
func (c Category) Retryable() bool {
	switch c {
	case CategoryRateLimit, CategoryTimeout, CategoryNetwork, CategoryServerError:
		return true
	}
	return false
}

// hints maps each category to its user-facing remediation text.
var hints = map[Category]string{
	CategoryAPIKeyMissing: "No API key is configured for this provider. Add one in settings.",
	CategoryAPIKeyInvalid: "The API key was rejected. Check the key in settings and reconfigure it.",
	CategoryRateLimit:     "The provider is rate-limiting requests. Wait a moment and retry.",
	CategoryTimeout:       "The request timed out. Retry, or increase the timeout for long generations.",
	CategoryNetwork:       "Could not reach the provider. Check your network connection.",
	CategoryQuotaExceeded: "The account quota or billing limit has been reached. Check your provider billing.",
	CategoryModelNotFound: "The configured model was not found. Pick a different model in settings.",
	CategoryInvalidReq:    "The provider rejected the request as invalid.",
	CategoryServerError:   "The provider had an internal error. Retry shortly.",
	CategoryUnknown:       "An unexpected error occurred.",
}

// Hint returns the remediation text for the category.
func (c Category) Hint() string {
	return hints[c]
}

// Error is a classified LLM failure. Immutable after creation.
type Error struct {
	Category Category
	Message  string
	Code     string // vendor error code or HTTP status, when known
	cause    error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Category, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether the error's category is retryable.
func (e *Error) Retryable() bool { return e.Category.Retryable() }

// NewError creates a classified error with an explicit category.
func NewError(category Category, message string, cause error) *Error {
	return &Error{Category: category, Message: message, cause: cause}
}

// IsRetryable reports whether err is a classified retryable failure.
// Unclassified errors are not retryable.
func IsRetryable(err error) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Retryable()
	}
	return false
}

// Classify maps an HTTP status plus the vendor error message to a category.
// The message is inspected only to disambiguate auth failures from quota
// exhaustion by keyword.
func Classify(status int, vendorMessage string) Category {
	msg := strings.ToLower(vendorMessage)
	switch {
	case status == 401 || status == 403 || status == 402:
		if strings.Contains(msg, "quota") || strings.Contains(msg, "billing") {
			return CategoryQuotaExceeded
		}
		return CategoryAPIKeyInvalid
	case status == 429:
		return CategoryRateLimit
	case status == 404:
		return CategoryModelNotFound
	case status == 400:
		return CategoryInvalidReq
	case status >= 500:
		return CategoryServerError
	}
	return CategoryUnknown
}

// classifyHTTP builds a classified error from an HTTP failure.
func classifyHTTP(status int, vendorMessage string, cause error) *Error {
	return &Error{
		Category: Classify(status, vendorMessage),
		Message:  vendorMessage,
		Code:     fmt.Sprintf("%d", status),
		cause:    cause,
	}
}

// normalizeError converts any adapter-level failure into a classified error.
// Context cancellation is deliberately passed through unclassified:
// cancellation is a terminal, non-error outcome and is handled above the
// adapter layer.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Category: CategoryTimeout, Message: "request timed out", cause: err}
	}

	// Vendor SDK error shapes.
	var oaiAPIErr *openai.APIError
	if errors.As(err, &oaiAPIErr) {
		return classifyHTTP(oaiAPIErr.HTTPStatusCode, oaiAPIErr.Message, err)
	}
	var oaiReqErr *openai.RequestError
	if errors.As(err, &oaiReqErr) {
		return classifyHTTP(oaiReqErr.HTTPStatusCode, oaiReqErr.Error(), err)
	}
	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return classifyHTTP(antErr.StatusCode, antErr.Error(), err)
	}
	var genErr genai.APIError
	if errors.As(err, &genErr) {
		return classifyHTTP(genErr.Code, genErr.Message, err)
	}

	// Transport-level failures.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Category: CategoryTimeout, Message: "request timed out", cause: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &Error{Category: CategoryNetwork, Message: urlErr.Error(), cause: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &Error{Category: CategoryNetwork, Message: opErr.Error(), cause: err}
	}

	return &Error{Category: CategoryUnknown, Message: err.Error(), cause: err}
}
