package mcws

import (
	"strconv"
	"strings"
)

// minBrowseRulesVersion is the first server release that exposes its
// library browsing rules over MCWS.
var minBrowseRulesVersion = []int{32, 0, 6}

// CanRefreshPaths reports whether a server with the given version
// string supports fetching browse rules. Servers that do not report a
// usable version ("Unknown" or empty) are assumed not to.
func CanRefreshPaths(version string) bool {
	if version == "" || version == "Unknown" {
		return false
	}
	parts, ok := parseVersion(version)
	if !ok {
		return false
	}
	return compareVersions(parts, minBrowseRulesVersion) >= 0
}

func parseVersion(version string) ([]int, bool) {
	tokens := strings.Split(version, ".")
	parts := make([]int, 0, len(tokens))
	for _, t := range tokens {
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil, false
		}
		parts = append(parts, i)
	}
	return parts, true
}

// compareVersions orders dotted versions numerically, treating missing
// trailing components as zero.
func compareVersions(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}
