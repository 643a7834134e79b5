package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/table"
)

// Harmonize maps a source table onto the canonical schema. It returns a
// copy where column names are trimmed, the first matching alias of every
// canonical column is renamed to it, numeric columns are coerced (failures
// become missing, never zero), and absent required columns are added with
// their default.
//
// When several source columns could supply the same canonical column, or
// several identifier columns are present, the choice is reported.
func Harmonize(src *table.Table, source string, s *Schema) (*table.Table, []model.Warning) {
	out := src.Clone()
	var warnings []model.Warning

	for _, c := range out.Columns() {
		if trimmed := strings.TrimSpace(c); trimmed != c && trimmed != "" && !out.Has(trimmed) {
			_ = out.RenameColumn(c, trimmed)
		}
	}

	canon := make([]string, 0, len(s.Columns))
	for c := range s.Columns {
		canon = append(canon, c)
	}
	sort.Strings(canon)

	for _, c := range canon {
		aliases := append([]string{c}, s.Columns[c]...)
		first, matches := findColumn(out.Columns(), aliases)
		if first == "" {
			continue
		}
		if out.Has(c) {
			first = c
		}
		if len(matches) > 1 {
			warnings = append(warnings, model.Warning{
				Kind:    model.WarnMultipleCandidates,
				Source:  source,
				Stage:   "harmonize",
				Message: fmt.Sprintf("%s: %d columns could supply %q, using %q", src.Name, len(matches), c, first),
				Samples: matches,
			})
		}
		if first != c {
			_ = out.RenameColumn(first, c)
		}
	}

	if _, ids := findColumn(out.Columns(), s.ID); len(ids) > 1 {
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnMultipleCandidates,
			Source:  source,
			Stage:   "harmonize",
			Message: fmt.Sprintf("%s: %d identifier columns present, precedence picks %q first", src.Name, len(ids), ids[0]),
			Samples: ids,
		})
	}

	for _, c := range s.Numeric {
		if !out.Has(c) {
			continue
		}
		vals := out.Column(c)
		for i, v := range vals {
			if f, ok := v.Float(); ok {
				vals[i] = table.Float(f)
			} else {
				vals[i] = table.Missing
			}
		}
		out.SetColumn(c, vals)
	}

	req := make([]string, 0, len(s.Required))
	for c := range s.Required {
		req = append(req, c)
	}
	sort.Strings(req)
	for _, c := range req {
		out.AddColumn(c, table.Str(s.Required[c]))
	}

	return out, warnings
}

// LocateColumns finds a column for a canonical name: an alias match first,
// then a case- and accent-insensitive substring search for tokens. All
// candidates are returned so ambiguity can be reported.
func LocateColumns(columns []string, aliases, tokens []string) (string, []string) {
	if first, matches := findColumn(columns, aliases); first != "" {
		return first, matches
	}
	var matches []string
	for _, c := range columns {
		fc := FoldName(c)
		for _, tok := range tokens {
			if strings.Contains(fc, FoldName(tok)) {
				matches = append(matches, c)
				break
			}
		}
	}
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], matches
}
