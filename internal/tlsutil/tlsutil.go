// Package tlsutil builds the hardened HTTP clients used to talk to the
// Snowflake execution backend. TLS 1.2+, AEAD-only cipher suites.
package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// BaseTLSConfig is the TLS floor for every outbound backend connection.
func BaseTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

func newTransport() *http.Transport {
	return &http.Transport{
		TLSClientConfig: BaseTLSConfig(),
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2: true,
		// The runner talks to a single backend host; a small per-host
		// idle pool is enough.
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// BackendClient returns the client for request/response backend calls
// (run submission, catalog probes), bounded by timeout.
func BackendClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(),
	}
}

// StreamClient returns the client for SSE event streams. No overall
// timeout: a run stream legitimately outlives any fixed budget, and
// cancellation comes from the request context. Compression is off so
// event frames are not buffered by a gzip reader.
func StreamClient() *http.Client {
	transport := newTransport()
	transport.DisableCompression = true
	return &http.Client{Transport: transport}
}
