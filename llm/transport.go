// Shared HTTP transport for all provider adapters.
//
// The transport is resolved once at process startup and injected into every
// adapter, so backend capabilities are explicit values rather than hidden
// global state. Tests inject their own.

package llm

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	defaultDialTimeout  = 10 * time.Second
	defaultIdleTimeout  = 90 * time.Second
	defaultTLSHandshake = 10 * time.Second
)

// Transport bundles the HTTP client shared by all adapters with the
// capabilities of the environment it was resolved in.
type Transport struct {
	Client *http.Client

	// SupportsLoopback reports whether this process can reach loopback
	// network services. Sandboxed environments cannot, which excludes
	// the local provider from the available set.
	SupportsLoopback bool

	log *zap.Logger
}

// NewTransport builds a transport with a pooled HTTP client. The client has
// no global timeout; per-request deadlines come from the caller's context.
func NewTransport(log *zap.Logger) *Transport {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{
		Client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: defaultDialTimeout,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     defaultIdleTimeout,
				TLSHandshakeTimeout: defaultTLSHandshake,
			},
		},
		SupportsLoopback: probeLoopbackSupport(),
		log:              log,
	}
}

// probeLoopbackSupport checks once whether loopback sockets are usable.
// A listener on 127.0.0.1:0 is enough; no traffic is sent.
func probeLoopbackSupport() bool {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

// logFailure records a failed call with any credential material redacted.
// Some vendors carry the API key in the URL query string, so the URL is
// always logged through RedactURL.
func (t *Transport) logFailure(provider, model string, status int, rawURL string, err error) {
	t.log.Warn("llm request failed",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Int("status", status),
		zap.String("url", RedactURL(rawURL)),
		zap.Error(err),
	)
}

// RedactURL strips query parameters and userinfo from a URL for logging.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparseable url)"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
