// Package http builds the transport clients handed to the provider SDKs.
//
// Clients are constructed fresh for every logical storage operation rather
// than pooled. This is a documented policy of the transfer layer: client
// construction is cheap relative to bulk transfers, and it keeps ephemeral
// stage credentials from outliving the operation they were issued for. The
// cost is that connections are not reused across calls.
package http

import (
	"crypto/tls"
	nethttp "net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"

	"github.com/stagelink/stagelink/internal/config"
	"github.com/stagelink/stagelink/internal/constants"
)

// retryLogger adapts zerolog to the retryablehttp.LeveledLogger interface.
// Only warnings and errors are surfaced; per-request debug noise is dropped.
type retryLogger struct{}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	log.Error().Msgf("transport retry: %s %v", msg, keysAndValues)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	log.Warn().Msgf("transport retry: %s %v", msg, keysAndValues)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

// NewTransportClient builds the HTTP client used by the S3 and Azure SDK
// clients. It layers a bounded retry policy over a proxy-aware base client:
//
//   - proxy configuration from cfg (no-proxy / system / basic / ntlm)
//   - connection limit derived from the configured parallelism
//   - fixed dial timeout, HTTP/2 where the transport allows it
//   - retryablehttp with a bounded retry count and its default backoff
//
// SDK-level retries are disabled by the client factories, so this layer is
// the single transport retry policy.
func NewTransportClient(cfg *config.Config, maxConns int) (*nethttp.Client, error) {
	baseClient, err := ConfigureHTTPClient(cfg, maxConns)
	if err != nil {
		return nil, err
	}

	// HTTP/2 multiplexing helps when many partitions share one endpoint.
	// The NTLM negotiator wraps the transport in a RoundTripper, in which
	// case the transport settings cannot be touched and the base client is
	// used as-is.
	if tr, ok := baseClient.Transport.(*nethttp.Transport); ok {
		tr.ForceAttemptHTTP2 = true
		_ = http2.ConfigureTransport(tr)

		// HTTP/2 through an authenticating proxy causes mid-transfer stream
		// resets with some proxy implementations.
		if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
			tr.ForceAttemptHTTP2 = false
			tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
		}
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = baseClient
	retryClient.RetryMax = constants.TransportRetryMax
	retryClient.RetryWaitMin = constants.TransportRetryWaitMin
	retryClient.RetryWaitMax = constants.TransportRetryWaitMax
	retryClient.Logger = &retryLogger{}

	return retryClient.StandardClient(), nil
}
