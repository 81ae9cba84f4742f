package http_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkghttp "github.com/Diego-Toledo1/secure-smart-locker/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T, proxies ...string) *pkghttp.ClientIPResolver {
	t.Helper()
	r, err := pkghttp.NewClientIPResolver(proxies)
	require.NoError(t, err)
	return r
}

func TestClientIP_DirectConnection_IgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.Header.Set("X-Real-IP", "192.168.1.1")

	ip := newResolver(t, "10.0.0.0/8", "127.0.0.1").ClientIP(req)

	assert.Equal(t, "203.0.113.10", ip)
}

func TestClientIP_TrustedProxy_UsesXForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "garbage, 203.0.113.42, 10.0.0.5")

	assert.Equal(t, "203.0.113.42", newResolver(t, "10.0.0.0/8").ClientIP(req))
}

func TestClientIP_TrustedProxy_FallsBackToXRealIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Real-IP", "198.51.100.7")

	assert.Equal(t, "198.51.100.7", newResolver(t, "10.0.0.5").ClientIP(req))
}

func TestClientIP_IPv6TrustedProxy(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "[::1]:54321"
	req.Header.Set("X-Forwarded-For", "2001:db8::1")

	assert.Equal(t, "2001:db8::1", newResolver(t, "::1/128").ClientIP(req))
}

func TestClientIP_NilResolver(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	var r *pkghttp.ClientIPResolver
	assert.Equal(t, "192.0.2.1", r.ClientIP(req))
}

func TestNewClientIPResolver_Invalid(t *testing.T) {
	_, err := pkghttp.NewClientIPResolver([]string{"10.0.0.0/33"})
	assert.Error(t, err)

	_, err = pkghttp.NewClientIPResolver([]string{"not-an-ip"})
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		OTP string `json:"otp"`
	}

	t.Run("valid with unknown fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"otp":"123456","extra":true}`))
		var p payload
		require.NoError(t, pkghttp.DecodeJSON(httptest.NewRecorder(), req, &p))
		assert.Equal(t, "123456", p.OTP)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var p payload
		assert.ErrorIs(t, pkghttp.DecodeJSON(httptest.NewRecorder(), req, &p), pkghttp.ErrEmptyBody)
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"otp":`))
		var p payload
		err := pkghttp.DecodeJSON(httptest.NewRecorder(), req, &p)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, pkghttp.ErrEmptyBody)
	})
}
