package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRedirectSafe(t *testing.T) {
	base := "http://localhost:8080"

	tests := []struct {
		name     string
		redirect string
		want     bool
	}{
		{"empty", "", true},
		{"relative path", "/account/sessions", true},
		{"relative with query", "/account?tab=tokens", true},
		{"protocol relative", "//evil.com", false},
		{"backslash trick", "/\\evil.com", false},
		{"same host absolute", "http://localhost:8080/account", true},
		{"other host", "http://evil.com/phish", false},
		{"javascript scheme", "javascript:alert(1)", false},
		{"data scheme", "data:text/html,x", false},
		{"header injection", "/ok\r\nSet-Cookie: x=y", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRedirectSafe(tt.redirect, base))
		})
	}
}
