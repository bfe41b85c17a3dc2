package monitoring

import (
	"strings"

	"github.com/google/uuid"
)

const (
	uuidPlaceholder = "{uuid}"
	idPlaceholder   = "{id}"
)

// NormalizePath collapses identifier-like path segments so the endpoint label
// stays low-cardinality. The query string is dropped, canonical UUID segments
// become {uuid} and all-digit segments become {id}.
func NormalizePath(raw string) string {
	path, _, _ := strings.Cut(raw, "?")
	if path == "" {
		return "/"
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		switch {
		case isCanonicalUUID(seg):
			segments[i] = uuidPlaceholder
		case isDigits(seg):
			segments[i] = idPlaceholder
		}
	}
	return strings.Join(segments, "/")
}

// isCanonicalUUID accepts only the hyphenated 8-4-4-4-12 form. uuid.Validate
// alone also takes urn: and braced variants.
func isCanonicalUUID(seg string) bool {
	return len(seg) == 36 && uuid.Validate(seg) == nil
}

func isDigits(seg string) bool {
	if seg == "" {
		return false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return false
		}
	}
	return true
}
