package util

import (
	"net/url"
	"strings"
)

// IsRedirectSafe validates that a post-login redirect target is safe to use.
// It only allows relative paths starting with "/" (but not "//"), and
// absolute URLs whose host matches baseURL.
func IsRedirectSafe(redirectURL, baseURL string) bool {
	// Empty redirect is safe (will use default)
	if redirectURL == "" {
		return true
	}

	// Must not contain newlines or carriage returns (header injection)
	if strings.ContainsAny(redirectURL, "\r\n") {
		return false
	}

	if strings.HasPrefix(redirectURL, "/") {
		// Reject protocol-relative URLs like "//evil.com" and backslash
		// variations like "/\evil.com"
		if strings.HasPrefix(redirectURL, "//") || strings.Contains(redirectURL, "\\") {
			return false
		}
		return true
	}

	parsedRedirect, err := url.Parse(redirectURL)
	if err != nil {
		return false
	}

	// Reject javascript:, data:, and other non-http(s) schemes
	if parsedRedirect.Scheme != "" && parsedRedirect.Scheme != "http" &&
		parsedRedirect.Scheme != "https" {
		return false
	}

	// If there's a host specified, it must match baseURL exactly
	if parsedRedirect.Host != "" {
		parsedBase, err := url.Parse(baseURL)
		if err != nil {
			return false
		}
		if parsedRedirect.Host != parsedBase.Host {
			return false
		}
	}

	return true
}
