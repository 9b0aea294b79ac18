package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/inspectauth/pkg/clientip"
)

func TestGetIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "remote addr", remoteAddr: "203.0.113.7:5555", want: "203.0.113.7"},
		{name: "remote addr without port", remoteAddr: "203.0.113.7", want: "203.0.113.7"},
		{name: "cloudflare wins", headers: map[string]string{"CF-Connecting-IP": "198.51.100.1", "X-Forwarded-For": "198.51.100.2"}, remoteAddr: "10.0.0.1:1", want: "198.51.100.1"},
		{name: "first valid forwarded entry", headers: map[string]string{"X-Forwarded-For": "garbage, 198.51.100.9, 10.0.0.2"}, remoteAddr: "10.0.0.1:1", want: "198.51.100.9"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 198.51.100.3 "}, remoteAddr: "10.0.0.1:1", want: "198.51.100.3"},
		{name: "invalid header falls through", headers: map[string]string{"CF-Connecting-IP": "999.1.1.1"}, remoteAddr: "10.0.0.1:1", want: "10.0.0.1"},
		{name: "ipv6 normalized", remoteAddr: "[2001:db8:0::1]:443", want: "2001:db8::1"},
		{name: "nothing valid", remoteAddr: "nope", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientip.GetIP(r))
		})
	}
}

func TestFromHeaders_NoHeadersUsesRemoteAddr(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:80"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, "192.0.2.10", clientip.FromHeaders(r))
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var got string
	h := clientip.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = clientip.GetIPFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.44:1234"
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "192.0.2.44", got)
}
