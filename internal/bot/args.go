package bot

import (
	"strings"

	"github.com/go-andiamo/splitter"
)

var commaSplitter = splitter.MustCreateSplitter(',', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)

// splitArgs splits a comma-separated list. Quoted items may contain commas.
func splitArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts, err := commaSplitter.Split(s)
	if err != nil {
		// unbalanced quotes; fall back to a plain split
		parts = strings.Split(s, ",")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, "\"“”")
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseCommand strips the prefix and splits off the lowercased command word.
func parseCommand(prefix, msg string) (cmd, arg string, ok bool) {
	msg = strings.TrimSpace(msg)
	if prefix == "" || !strings.HasPrefix(msg, prefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(msg[len(prefix):])
	if rest == "" {
		return "", "", false
	}
	cmd, arg, _ = strings.Cut(rest, " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg), true
}
