package messaging

import "strings"

// DefaultThanks is appended to every caption unless configured otherwise.
const DefaultThanks = "Thank you for visiting our photobooth ❤️"

// MaxCaptionLength bounds the caption in runes after composing.
const MaxCaptionLength = 1024

// SanitizeCaption removes control characters except newline and carriage return.
func SanitizeCaption(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, text)
}

// ComposeCaption appends thanks to the user's caption and sanitises the result.
// An empty caption yields just the thanks line.
func ComposeCaption(caption, thanks string) string {
	combined := caption + thanks
	if caption == "" {
		combined = thanks
	}
	out := SanitizeCaption(combined)
	if r := []rune(out); len(r) > MaxCaptionLength {
		out = string(r[:MaxCaptionLength])
	}
	return out
}
