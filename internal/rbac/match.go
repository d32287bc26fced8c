package rbac

import "strings"

// MatchPattern reports whether name matches pattern. Matching is
// case-sensitive and anchored at both ends; `*` matches any run of
// characters (including none) and is the only metacharacter.
func MatchPattern(pattern, name string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == name
	}

	segments := strings.Split(pattern, "*")

	first := segments[0]
	if !strings.HasPrefix(name, first) {
		return false
	}
	name = name[len(first):]

	last := segments[len(segments)-1]
	middle := segments[1 : len(segments)-1]

	for _, seg := range middle {
		if seg == "" {
			continue
		}
		idx := strings.Index(name, seg)
		if idx < 0 {
			return false
		}
		name = name[idx+len(seg):]
	}

	return strings.HasSuffix(name, last)
}
