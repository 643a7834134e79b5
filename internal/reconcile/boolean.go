package reconcile

import "strings"

var (
	truthy = map[string]bool{
		"oui": true, "yes": true, "y": true, "o": true, "true": true, "vrai": true,
		"1": true, "x": true, "avec nicad": true, "deliberee": true,
	}
	falsy = map[string]bool{
		"non": true, "no": true, "n": true, "false": true, "faux": true,
		"0": true, "sans nicad": true, "non deliberee": true,
	}
)

// ParseYesNo converts a yes/no style cell to a boolean. The second result
// is false when the text is neither a known truthy nor falsy token.
// Matching ignores case, surrounding space and accents.
func ParseYesNo(raw string) (bool, bool) {
	k := strings.ReplaceAll(FoldName(raw), "_", " ")
	if truthy[k] {
		return true, true
	}
	if falsy[k] {
		return false, true
	}
	return false, false
}
