package boundaries

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSlugLen is the hard ceiling on slug length.
const maxSlugLen = 256

// truncateBase is how much of the base slug survives when a numeric suffix
// would push the slug past the ceiling.
const truncateBase = 200

// Sluggable is the capability an entity must implement to receive a slug.
// There is deliberately no fallback to generic string conversion: every
// slugged entity names its slug source explicitly.
type Sluggable interface {
	SlugText() string
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify normalizes text into a URL-safe lowercase slug: diacritics
// stripped, runs of non-alphanumerics collapsed to single hyphens.
func Slugify(text string) string {
	if flat, _, err := transform.String(deaccent, text); err == nil {
		text = flat
	}

	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		default:
			if b.Len() > 0 && !hyphen {
				b.WriteByte('-')
				hyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// ResolveSlug turns candidate text into a slug that is unused according to
// exists, a predicate scoped to the entity's table. If the normalized base
// is taken it appends -2, -3, ... until a free value is found, truncating
// the base when the suffix would exceed the length ceiling.
//
// Uniqueness here is check-then-insert: concurrent creators must run inside
// a transaction or lean on the table's unique index to catch the race. The
// single-writer import pipeline makes that a soft requirement in practice.
func ResolveSlug(text string, exists func(slug string) (bool, error)) (string, error) {
	base := Slugify(text)
	if base == "" {
		return "", fmt.Errorf("%w: %q produces an empty slug", ErrInvalidInput, text)
	}
	if len(base) > maxSlugLen {
		base = strings.TrimRight(base[:maxSlugLen], "-")
	}

	taken, err := exists(base)
	if err != nil {
		return "", fmt.Errorf("slug lookup: %w", err)
	}
	if !taken {
		return base, nil
	}

	for next := 2; ; next++ {
		suffix := fmt.Sprintf("-%d", next)
		slug := base
		if len(slug)+len(suffix) > maxSlugLen {
			cut := truncateBase - len(suffix)
			if cut < 0 {
				cut = 0
			}
			slug = strings.TrimRight(slug[:cut], "-")
		}
		slug += suffix

		taken, err := exists(slug)
		if err != nil {
			return "", fmt.Errorf("slug lookup: %w", err)
		}
		if !taken {
			return slug, nil
		}
	}
}
