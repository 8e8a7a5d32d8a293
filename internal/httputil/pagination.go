package httputil

import "strconv"

const (
	// DefaultLimit is the page size used when no limit is given, and the
	// ceiling limits are clamped to.
	DefaultLimit = 100
)

// ParsePagination parses skip/limit query parameters, clamping them
// server-side: negative skips clamp to 0, limits outside (0, 100] clamp
// to 100. Unparseable values fall back to the defaults.
func ParsePagination(skipStr, limitStr string) (skip, limit int) {
	skip = 0
	limit = DefaultLimit

	if skipStr != "" {
		if s, err := strconv.Atoi(skipStr); err == nil && s > 0 {
			skip = s
		}
	}

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= DefaultLimit {
			limit = l
		}
	}

	return skip, limit
}
