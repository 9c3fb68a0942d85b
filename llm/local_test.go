package llm

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
)

func TestValidateLocalEndpoint(t *testing.T) {
	valid := []string{
		"http://localhost:1234",
		"http://127.0.0.1:8080",
		"http://[::1]:8080",
		"https://10.0.0.5:5000",
		"http://192.168.1.20:1234",
		"http://172.16.0.1:9999",
		"http://studio.localhost:1234",
		"http://localhost", // no port is fine
	}
	for _, ep := range valid {
		if err := ValidateLocalEndpoint(ep); err != nil {
			t.Errorf("ValidateLocalEndpoint(%q) = %v, want nil", ep, err)
		}
	}

	invalid := []string{
		"",
		"http://203.0.113.5:1234", // public IP
		"http://8.8.8.8:80",
		"http://api.example.com:1234", // public hostname
		"ftp://localhost:1234",        // bad scheme
		"localhost:1234",              // missing scheme
		"http://127.0.0.1:99999",      // bad port
	}
	for _, ep := range invalid {
		err := ValidateLocalEndpoint(ep)
		if err == nil {
			t.Errorf("ValidateLocalEndpoint(%q) = nil, want error", ep)
			continue
		}
		var cerr *Error
		if !errors.As(err, &cerr) || cerr.Category != CategoryInvalidReq {
			t.Errorf("ValidateLocalEndpoint(%q) category = %v, want invalid_request", ep, err)
		}
	}
}

func TestNewLocalProviderRejectsPublicEndpointBeforeAnyCall(t *testing.T) {
	opts := Options{
		Model:         "local-model",
		LocalEndpoint: "http://203.0.113.5:1234",
		Transport:     NewTransport(zap.NewNop()),
		Logger:        zap.NewNop(),
	}

	_, err := NewLocalProvider(opts)
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("got %v", err)
	}
	if cerr.Category != CategoryInvalidReq {
		t.Errorf("category = %v, want invalid_request", cerr.Category)
	}
}

func TestNewLocalProviderNeedsLoopbackCapability(t *testing.T) {
	transport := NewTransport(zap.NewNop())
	transport.SupportsLoopback = false

	_, err := NewLocalProvider(Options{
		Model:         "local-model",
		LocalEndpoint: "http://localhost:1234",
		Transport:     transport,
		Logger:        zap.NewNop(),
	})
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Category != CategoryInvalidReq {
		t.Fatalf("got %v, want invalid_request", err)
	}
}

func TestTruncatePromptCountsRunes(t *testing.T) {
	short := "unchanged"
	if got := truncatePrompt(short, localMaxPromptChars); got != short {
		t.Errorf("short prompt modified: %q", got)
	}

	// The cap is characters, not bytes: multibyte text keeps the full
	// character budget and is never cut mid-sequence.
	prompt := strings.Repeat("物語", localMaxPromptChars) // 3 bytes per rune
	truncated := truncatePrompt(prompt, localMaxPromptChars)
	if got := utf8.RuneCountInString(truncated); got != localMaxPromptChars {
		t.Fatalf("truncated to %d runes, want %d", got, localMaxPromptChars)
	}
	if !utf8.ValidString(truncated) {
		t.Fatal("truncation produced invalid UTF-8")
	}
}
