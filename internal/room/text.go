package room

import (
	"regexp"
	"strings"
)

const (
	maxUsernameLen  = 32
	maxChatLen      = 512
	defaultUsername = "Guest"
)

// Allowed characters for usernames and chat lines: word characters,
// whitespace, and common punctuation. Everything else is stripped.
var textSanitize = regexp.MustCompile(`[^\w\s!@#$%^&*()\-_=+\[\]{};:'",.<>/?\\|` + "`" + `~]`)

// SanitizeUsername normalizes a client-supplied name; empty results fall
// back to "Guest".
func SanitizeUsername(raw string) string {
	name := strings.ReplaceAll(raw, "\x00", "")
	name = strings.TrimSpace(name)
	// The cap counts characters, so truncation must not split a rune.
	if runes := []rune(name); len(runes) > maxUsernameLen {
		name = string(runes[:maxUsernameLen])
	}
	name = textSanitize.ReplaceAllString(name, "")
	if name == "" {
		return defaultUsername
	}
	return name
}

// sanitizeChat trims, caps, and strips a chat line. Empty means drop.
func sanitizeChat(raw string) string {
	text := strings.ReplaceAll(raw, "\x00", "")
	if len(text) > maxChatLen {
		text = text[:maxChatLen]
	}
	text = textSanitize.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
