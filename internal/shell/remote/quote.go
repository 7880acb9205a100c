package remote

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// =============================================================================
// Command Quoting
// =============================================================================

// Quote returns word quoted for a POSIX shell. Words that need no quoting
// are returned unchanged.
func Quote(word string) (string, error) {
	q, err := syntax.Quote(word, syntax.LangPOSIX)
	if err != nil {
		return "", fmt.Errorf("quote %q: %w", word, err)
	}
	return q, nil
}

// QuotePath quotes a remote path while keeping a leading ~ expandable.
func QuotePath(p string) (string, error) {
	switch {
	case p == "~":
		return p, nil
	case strings.HasPrefix(p, "~/"):
		q, err := Quote(p[2:])
		if err != nil {
			return "", err
		}
		return "~/" + q, nil
	default:
		return Quote(p)
	}
}

// Command joins name and args into a command line, quoting every argument.
func Command(name string, args ...string) (string, error) {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, a := range args {
		q, err := Quote(a)
		if err != nil {
			return "", err
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, " "), nil
}
