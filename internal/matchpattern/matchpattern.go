// Package matchpattern implements the anchor/subsequence/case-insensitive
// name filter shared by every pattern-search query in the symbol and
// file-path indexes: foreachCanonicalSymbolOccurrenceContainingPattern and
// foreachFilenameContainingPattern both filter candidate rows through it.
package matchpattern

import "strings"

// Matches reports whether pattern matches name under the given anchor and
// match-mode flags. subsequence, when true, takes precedence: pattern's
// characters must appear in name in order, not necessarily contiguous;
// anchoring then applies to the first/last matched character's position.
func Matches(name, pattern string, anchorStart, anchorEnd, subsequence, ignoreCase bool) bool {
	n, p := name, pattern
	if ignoreCase {
		n = strings.ToLower(n)
		p = strings.ToLower(p)
	}
	if subsequence {
		return matchesSubsequence(n, p, anchorStart, anchorEnd)
	}
	idxOf := strings.Index(n, p)
	if idxOf < 0 {
		return false
	}
	if anchorStart && idxOf != 0 {
		return false
	}
	if anchorEnd && idxOf+len(p) != len(n) {
		return false
	}
	return true
}

func matchesSubsequence(name, pattern string, anchorStart, anchorEnd bool) bool {
	if pattern == "" {
		return true
	}
	firstMatch, lastMatch := -1, -1
	pi := 0
	for ni, ch := range name {
		if pi >= len(pattern) {
			break
		}
		if rune(pattern[pi]) == ch {
			if firstMatch < 0 {
				firstMatch = ni
			}
			lastMatch = ni
			pi++
		}
	}
	if pi != len(pattern) {
		return false
	}
	if anchorStart && firstMatch != 0 {
		return false
	}
	if anchorEnd && lastMatch != len(name)-1 {
		return false
	}
	return true
}
