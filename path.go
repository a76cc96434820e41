package v9kfs

import "strings"

// PathExpression is the parsed form of a path expression:
//
//	path     = image [":" partition] [":\" components]
//	image    = <host filesystem path>
//	partition= 1*DIGIT
//	components = component *("\" component)
type PathExpression struct {
	// ImagePath is the host filesystem path to the backing image file.
	ImagePath string
	// HasPartition reports whether a partition index was given.
	HasPartition bool
	// Partition is the zero-based partition index, valid only if
	// HasPartition is true.
	Partition int
	// Components is the path split on '\', with empty components removed.
	// A request for the root directory has zero components.
	Components []string
}

// ParsePathExpression parses a path string of the form
// "image.img", "image.img:\DIR\FILE.TXT", or "image.img:2:\DIR".
func ParsePathExpression(path string) (PathExpression, *Error) {
	// Find the in-image component separator, ":\", if present. We can't just
	// split on ':' because Windows-style drive letters ("C:\foo.img") would
	// be misparsed; a leading drive-letter colon is skipped, and the next
	// colon is the separator, which must be followed by a partition index or
	// a backslash-rooted component list.
	imagePath := path
	rest := ""
	hasRest := false

	if idx := findComponentSeparator(path); idx >= 0 {
		imagePath = path[:idx]
		rest = path[idx+1:]
		hasRest = true
	}

	expr := PathExpression{ImagePath: imagePath}
	if !hasRest {
		return expr, nil
	}

	// rest is either "N:\..." or "\...".
	if strings.HasPrefix(rest, "\\") {
		expr.Components = splitComponents(rest)
		return expr, nil
	}

	colonIdx := strings.IndexByte(rest, ':')
	var partStr string
	if colonIdx < 0 {
		partStr = rest
		rest = ""
	} else {
		partStr = rest[:colonIdx]
		rest = rest[colonIdx+1:]
	}

	partition, err := parseNonNegativeInt(partStr)
	if err != nil {
		return PathExpression{}, ErrInvalidName.WithMessage("invalid partition index %q", partStr)
	}
	expr.HasPartition = true
	expr.Partition = partition

	if strings.HasPrefix(rest, "\\") {
		expr.Components = splitComponents(rest)
	}

	return expr, nil
}

// findComponentSeparator locates the ':' that begins the in-image portion of
// a path expression, skipping a leading Windows drive-letter colon such as
// in "C:\images\foo.img".
func findComponentSeparator(path string) int {
	start := 0
	// Skip a drive letter prefix like "C:" at the very beginning.
	if len(path) >= 2 && path[1] == ':' && isDriveLetter(path[0]) {
		start = 2
	}

	idx := strings.IndexByte(path[start:], ':')
	if idx < 0 {
		return -1
	}
	return start + idx
}

func isDriveLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func splitComponents(rest string) []string {
	trimmed := strings.TrimPrefix(rest, "\\")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "\\")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseNonNegativeInt(s string) (int, error) {
	if s == "" {
		return 0, ErrInvalidName
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, ErrInvalidName
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
