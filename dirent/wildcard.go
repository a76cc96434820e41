package dirent

import "strings"

// MatchWildcard reports whether name (a reconstructed 8.3 name) matches
// pattern: matching is case-insensitive, `?` matches any single character,
// `*` matches any run including empty, and when pattern contains a `.` the
// stem and extension are matched independently so a `*` never crosses the
// separator.
func MatchWildcard(pattern, name string) bool {
	pattern = strings.ToUpper(pattern)
	name = strings.ToUpper(name)

	if !strings.Contains(pattern, ".") {
		return matchComponent(pattern, name)
	}

	patStem, patExt := splitName(pattern)
	nameStem, nameExt := splitName(name)

	// "*.*" only matches names that actually contain a dot.
	if patStem == "*" && patExt == "*" && !strings.Contains(name, ".") {
		return false
	}

	return matchComponent(patStem, nameStem) && matchComponent(patExt, nameExt)
}

// matchComponent matches a single name component (stem or extension) against
// a pattern component made of literal characters, `?`, and `*`.
func matchComponent(pattern, value string) bool {
	return matchRunes([]rune(pattern), []rune(value))
}

func matchRunes(pattern, value []rune) bool {
	if len(pattern) == 0 {
		return len(value) == 0
	}

	switch pattern[0] {
	case '*':
		// A '*' consumes the rest of this component, so once encountered
		// the remainder of the pattern must be a literal/`?` run with no
		// further '*'. If one does appear anyway, zero-or-more matching
		// still falls out of this recursion correctly.
		if len(pattern) == 1 {
			return true
		}
		for i := 0; i <= len(value); i++ {
			if matchRunes(pattern[1:], value[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(value) == 0 {
			return false
		}
		return matchRunes(pattern[1:], value[1:])
	default:
		if len(value) == 0 || value[0] != pattern[0] {
			return false
		}
		return matchRunes(pattern[1:], value[1:])
	}
}
