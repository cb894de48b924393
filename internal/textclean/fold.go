package textclean

import (
	"strings"

	"golang.org/x/text/cases"
)

// ContainsFold reports whether substr occurs in s under Unicode case folding.
// An empty substr is contained in every string.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	// Casers keep state, so each call gets its own.
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(substr))
}
