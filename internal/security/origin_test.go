package security

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginChecker(t *testing.T) {
	check := OriginChecker([]string{"https://app.petbuddy.in", "https://*.vercel.app"})

	cases := map[string]bool{
		"":                         true,
		"https://app.petbuddy.in":  true,
		"HTTPS://APP.PETBUDDY.IN":  true,
		"https://pr-12.vercel.app": true,
		"https://evil.example":     false,
		"http://app.petbuddy.in":   false,
		"https://vercel.app":       false,
	}
	for origin, want := range cases {
		r := httptest.NewRequest("GET", "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		assert.Equal(t, want, check(r), origin)
	}
}

func TestOriginChecker_AllowAll(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://anywhere.example")

	assert.True(t, OriginChecker(nil)(r))
	assert.True(t, OriginChecker([]string{" "})(r))
	assert.True(t, OriginChecker([]string{"https://app.petbuddy.in", "*"})(r))
}
