package http_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
)

// Forwarding headers must only be trusted from configured proxies, otherwise a
// client could rotate its throttle key at will.
func TestExtractClientIP(t *testing.T) {
	proxies := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8", "2001:db8::/32", "not-a-cidr"}}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		config     *pkghttp.IPConfig
		expected   string
	}{
		{"direct client ignores headers", "203.0.113.10:54321", "1.2.3.4", "192.168.1.1", proxies, "203.0.113.10"},
		{"trusted proxy uses forwarded for", "10.0.0.5:54321", "203.0.113.42, 10.0.0.5", "", proxies, "203.0.113.42"},
		{"skips invalid forwarded entries", "10.0.0.5:1", "garbage, 203.0.113.7", "", proxies, "203.0.113.7"},
		{"falls back to real ip", "10.0.0.5:1", "", "203.0.113.8", proxies, "203.0.113.8"},
		{"invalid headers fall back to peer", "10.0.0.5:1", "nope", "nope", proxies, "10.0.0.5"},
		{"ipv6 trusted proxy", "[2001:db8::1]:443", "2001:db8:ffff::9", "", proxies, "2001:db8:ffff::9"},
		{"nil config is secure", "203.0.113.10:1", "1.2.3.4", "", nil, "203.0.113.10"},
		{"empty config is secure", "10.0.0.5:1", "1.2.3.4", "", &pkghttp.IPConfig{}, "10.0.0.5"},
		{"remote addr without port", "203.0.113.11", "", "", proxies, "203.0.113.11"},
		{"localhost is not implicitly trusted", "127.0.0.1:80", "1.2.3.4", "", proxies, "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/login", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			assert.Equal(t, tt.expected, pkghttp.ExtractClientIP(req, tt.config))
		})
	}
}
