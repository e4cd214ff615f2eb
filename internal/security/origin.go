package security

import (
	"log"
	"net/http"
	"strings"
)

// OriginChecker builds a websocket CheckOrigin from the same allow list the
// HTTP CORS layer uses. "*" (or an empty list) allows any origin, and one
// "*" inside an entry matches any run of characters, so
// "https://*.petbuddy.in" admits every subdomain. Requests without an
// Origin header come from non-browser clients and are allowed.
func OriginChecker(allowed []string) func(r *http.Request) bool {
	exact := make(map[string]bool, len(allowed))
	var patterns [][2]string
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimSpace(o))
		switch {
		case o == "":
		case o == "*":
			return func(*http.Request) bool { return true }
		case strings.Contains(o, "*"):
			prefix, suffix, _ := strings.Cut(o, "*")
			patterns = append(patterns, [2]string{prefix, suffix})
		default:
			exact[o] = true
		}
	}
	if len(exact) == 0 && len(patterns) == 0 {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := strings.ToLower(r.Header.Get("Origin"))
		if origin == "" || exact[origin] {
			return true
		}
		for _, p := range patterns {
			if len(origin) >= len(p[0])+len(p[1]) && strings.HasPrefix(origin, p[0]) && strings.HasSuffix(origin, p[1]) {
				return true
			}
		}
		log.Printf("🚫 Rejected websocket origin %q", origin)
		return false
	}
}
