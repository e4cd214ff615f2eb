package security

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"petbuddy-realtime/internal/config"
)

// MaxDisplayNameLength caps sender display names.
const MaxDisplayNameLength = 100

// ticket, booking and call ids: ObjectIDs, uuids and slugs
var validRoomKey = regexp.MustCompile(`^[A-Za-z0-9_\-.:]+$`)

// InputValidator handles input validation and sanitization
type InputValidator struct {
	maxRoomKeyLength int
}

// NewInputValidator creates a new input validator
func NewInputValidator(cfg *config.ServerConfig) *InputValidator {
	return &InputValidator{
		maxRoomKeyLength: cfg.MaxRoomKeyLength,
	}
}

// ValidateRoomKey checks a chat ticket or call room id.
func (v *InputValidator) ValidateRoomKey(key string) error {
	if key == "" {
		return fmt.Errorf("room key cannot be empty")
	}
	if v.maxRoomKeyLength > 0 && utf8.RuneCountInString(key) > v.maxRoomKeyLength {
		return fmt.Errorf("room key too long (max %d characters)", v.maxRoomKeyLength)
	}
	if !validRoomKey.MatchString(key) {
		return fmt.Errorf("room key contains invalid characters (only letters, numbers, _, -, ., : allowed)")
	}
	return nil
}

// SanitizeDisplayName trims, truncates and HTML-escapes a sender name.
// The message body is never touched; it may be an opaque encrypted payload.
func (v *InputValidator) SanitizeDisplayName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		name = string([]rune(name)[:MaxDisplayNameLength])
	}
	return html.EscapeString(name)
}
