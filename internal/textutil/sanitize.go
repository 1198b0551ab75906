package textutil

import "strings"

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, runs of
// anything else collapse to one underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

// SourceSlug turns a render source label such as "preset:self-love" or
// "file:Morning Voice.mp3" into a short token for output file names.
func SourceSlug(source string) string {
	_, value, found := strings.Cut(source, ":")
	if !found {
		value = source
	}
	if dot := strings.LastIndexByte(value, '.'); dot > 0 {
		value = value[:dot]
	}
	return SanitizeToken(value)
}
