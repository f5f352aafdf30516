package tlsutil

import (
	"crypto/tls"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseTLSConfig_FloorIsTLS12(t *testing.T) {
	cfg := BaseTLSConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.False(t, cfg.InsecureSkipVerify)
}

func TestBaseTLSConfig_OnlyAEADSuites(t *testing.T) {
	cfg := BaseTLSConfig()
	require.NotEmpty(t, cfg.CipherSuites)

	// 不允许出现 CBC 套件
	forbidden := map[uint16]bool{
		tls.TLS_RSA_WITH_AES_128_CBC_SHA:         true,
		tls.TLS_RSA_WITH_AES_256_CBC_SHA:         true,
		tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA:   true,
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA: true,
	}
	for _, suite := range cfg.CipherSuites {
		assert.False(t, forbidden[suite], "CBC suite %x in client config", suite)
	}
}

func TestBackendClient_CarriesTimeoutAndTLS(t *testing.T) {
	client := BackendClient(15 * time.Second)
	assert.Equal(t, 15*time.Second, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, uint16(tls.VersionTLS12), transport.TLSClientConfig.MinVersion)
	assert.False(t, transport.DisableCompression)
}

func TestStreamClient_NoTimeoutNoCompression(t *testing.T) {
	client := StreamClient()

	// SSE 流的生命周期由调用方 context 控制，客户端不设总超时
	assert.Zero(t, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, transport.DisableCompression)
	assert.Equal(t, uint16(tls.VersionTLS12), transport.TLSClientConfig.MinVersion)
}
