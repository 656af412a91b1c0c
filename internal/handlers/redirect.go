package handlers

import (
	"net/url"
	"strings"
)

// safeRedirect reports whether target may be used as a redirect or link.
// Relative paths are allowed, protocol-relative ones are not; absolute URLs
// must be http(s) and point at an allowed host.
func safeRedirect(target string, allowedHosts []string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	if strings.HasPrefix(target, "/") {
		return !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\")
	}

	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	for _, allowed := range allowedHosts {
		if strings.EqualFold(host, strings.TrimSpace(allowed)) {
			return true
		}
	}
	return false
}
