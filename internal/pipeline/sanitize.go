package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxErrorLen bounds error strings before they reach run records, logs or UI
const maxErrorLen = 200

var (
	// Things that look like credentials: key=..., api_key: ..., Bearer ...
	secretPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|token|secret|bearer|authorization)[=:\s]+[A-Za-z0-9._\-]{6,}`)
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// SanitizeError prepares a provider error for surfacing: bounded length, no
// control characters, credential-shaped tokens and email addresses redacted.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeMessage(err.Error())
}

// SanitizeMessage sanitizes an arbitrary error string
func SanitizeMessage(msg string) string {
	msg = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return ' '
		}
		return r
	}, msg)

	msg = secretPattern.ReplaceAllString(msg, "$1=[redacted]")
	msg = emailPattern.ReplaceAllString(msg, "[email redacted]")

	msg = strings.TrimSpace(msg)
	if len(msg) > maxErrorLen {
		// Back off to a rune boundary so the cut never splits a multi-byte
		// character.
		cut := maxErrorLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	return msg
}
