package vault

import "strings"

// MaxSlugLength caps generated filenames (before the .md extension and any
// collision suffix).
const MaxSlugLength = 100

// Slugify derives a filesystem-safe slug from a human-supplied title.
// The mapping is lossy: ASCII letters and digits are lowercased and kept,
// every other run of characters collapses to a single hyphen. Two distinct
// titles may share a slug; Save resolves collisions with a deterministic
// numeric suffix.
func Slugify(title string) string {
	var b strings.Builder
	pendingHyphen := false

	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r + ('a' - 'A'))
		default:
			pendingHyphen = true
		}
	}

	s := b.String()
	if len(s) > MaxSlugLength {
		s = strings.TrimRight(s[:MaxSlugLength], "-")
	}
	if s == "" {
		return "untitled"
	}
	return s
}
