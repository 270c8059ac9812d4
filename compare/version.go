package compare

import (
	"strconv"
	"strings"
)

// ParseVersion splits a dotted version string into its numeric segments.
// Non-numeric segments are dropped, so "1.a.2" parses to [1 2] and
// "1.2.0-beta" parses to [1 2] since "0-beta" is not purely numeric. A
// string with no numeric segments at all parses to [0]; this function
// never fails.
func ParseVersion(version string) []int {
	var parts []int
	for _, segment := range strings.Split(version, ".") {
		if !isDigits(segment) {
			continue
		}
		n, err := strconv.Atoi(segment)
		if err != nil {
			continue
		}
		parts = append(parts, n)
	}
	if len(parts) == 0 {
		return []int{0}
	}
	return parts
}

// CompareVersions returns -1, 0 or 1 ordering a before, equal to, or after b.
// The shorter version is zero-padded on the right before the lexicographic
// comparison, so "1.0" and "1.0.0" compare equal.
func CompareVersions(a, b string) int {
	av := ParseVersion(a)
	bv := ParseVersion(b)

	maxLen := len(av)
	if len(bv) > maxLen {
		maxLen = len(bv)
	}
	for i := 0; i < maxLen; i++ {
		var x, y int
		if i < len(av) {
			x = av[i]
		}
		if i < len(bv) {
			y = bv[i]
		}
		if x < y {
			return -1
		}
		if x > y {
			return 1
		}
	}
	return 0
}

// IsNewer reports whether available is strictly newer than current.
func IsNewer(current, available string) bool {
	return CompareVersions(current, available) < 0
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
