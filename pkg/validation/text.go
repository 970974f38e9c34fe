package validation

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Truncate shortens s to at most max user-perceived characters, so emoji
// and combined sequences are never split. An ellipsis marks the cut.
func Truncate(s string, max int) string {
	if max <= 0 || uniseg.GraphemeClusterCount(s) <= max {
		return s
	}

	var b strings.Builder
	g := uniseg.NewGraphemes(s)
	for n := 0; n < max-1 && g.Next(); n++ {
		b.WriteString(g.Str())
	}
	b.WriteString("…")
	return b.String()
}
