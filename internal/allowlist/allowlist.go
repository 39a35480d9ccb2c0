package allowlist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker reports whether an author bypasses classification
type Checker struct {
	authors map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new allowlist checker. Author names are matched
// case-insensitively and a leading @ is ignored.
func NewChecker(authors []string, logger *zap.Logger) *Checker {
	normalized := make(map[string]struct{}, len(authors))
	for _, author := range authors {
		if a := normalize(author); a != "" {
			normalized[a] = struct{}{}
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized author allowlist", zap.Int("authors", len(normalized)))
	}

	return &Checker{
		authors: normalized,
		logger:  logger,
	}
}

func normalize(author string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(author), "@"))
}

// IsAllowed checks if author is on the allowlist
func (c *Checker) IsAllowed(author string) bool {
	if len(c.authors) == 0 {
		return false
	}

	_, ok := c.authors[normalize(author)]
	if ok && c.logger != nil {
		c.logger.Debug("Author is allowlisted", zap.String("author", author))
	}
	return ok
}
