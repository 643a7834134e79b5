package reconcile

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldName reduces a column name to its comparison form: trimmed,
// lower-cased, accents removed, inner whitespace runs replaced by "_".
// "Autorité de délibération" and "autorite_de_deliberation" fold equal.
func FoldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), "_")
}

// findColumn returns the first table column, in alias order, whose folded
// name equals a folded alias, plus every other matching column.
func findColumn(columns []string, aliases []string) (string, []string) {
	folded := make(map[string][]string, len(columns))
	for _, c := range columns {
		k := FoldName(c)
		folded[k] = append(folded[k], c)
	}

	var matches []string
	seen := make(map[string]bool)
	for _, a := range aliases {
		for _, c := range folded[FoldName(a)] {
			if !seen[c] {
				seen[c] = true
				matches = append(matches, c)
			}
		}
	}
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], matches
}
