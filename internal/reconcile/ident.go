package reconcile

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/table"
)

// ErrNoIdentifier is returned when a source carries none of the
// identifier columns. It is fatal for that source.
var ErrNoIdentifier = eris.New("no identifier column")

const maxSamples = 20

// integral float renderings such as "1204.0" leak from numeric cells.
var integralFloatRe = regexp.MustCompile(`^(-?\d+)\.0+$`)

// NormalizeID returns the canonical string form of a raw identifier.
func NormalizeID(raw string) string {
	s := strings.TrimSpace(raw)
	if m := integralFloatRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// AssignIDs derives the canonical id for every row of src from the first
// present, non-blank column of precedence. The returned table is a copy with
// "id" as its first column.
//
// A source with none of the precedence columns fails with ErrNoIdentifier.
// Rows where every candidate is blank are dropped and reported, never given
// a placeholder. Duplicate ids are kept and reported.
func AssignIDs(src *table.Table, source string, precedence []string) (*table.Table, []model.Warning, error) {
	var present []string
	for _, p := range precedence {
		if col, _ := findColumn(src.Columns(), []string{p}); col != "" {
			present = append(present, col)
		}
	}
	if len(present) == 0 {
		return nil, nil, eris.Wrapf(ErrNoIdentifier, "source %s (table %s): none of %v in columns %v",
			source, src.Name, precedence, src.Columns())
	}

	out := src.Clone()
	if out.Has(model.ColID) && !containsString(present, model.ColID) {
		if err := out.RenameColumn(model.ColID, model.ColID+"_raw"); err != nil {
			return nil, nil, eris.Wrapf(err, "reconcile: source %s", source)
		}
	}

	ids := make([]table.Value, out.Len())
	var missing []string
	for i := range ids {
		for _, col := range present {
			v := src.Get(i, col)
			if !v.Valid() {
				continue
			}
			if id := NormalizeID(v.String()); id != "" {
				ids[i] = table.Str(id)
				break
			}
		}
		if !ids[i].Valid() {
			missing = append(missing, fmt.Sprintf("row %d", i+2))
		}
	}
	out.SetColumn(model.ColID, ids)
	out.MoveFirst(model.ColID)

	var warnings []model.Warning
	if len(missing) > 0 {
		out = out.Filter(func(r table.Row) bool { return r.Get(model.ColID).Valid() })
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnMissingIDs,
			Source:  source,
			Stage:   "identifier",
			Message: fmt.Sprintf("%s: %d rows without any identifier value were excluded", src.Name, len(missing)),
			Samples: sample(missing),
		})
	}
	if dups := DuplicateIDs(out); len(dups) > 0 {
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnDuplicateIDs,
			Source:  source,
			Stage:   "identifier",
			Message: fmt.Sprintf("%s: %d identifiers occur more than once", src.Name, len(dups)),
			Samples: sample(dups),
		})
	}
	return out, warnings, nil
}

// DuplicateIDs returns the sorted ids that occur more than once in t.
func DuplicateIDs(t *table.Table) []string {
	counts := make(map[string]int)
	for _, v := range t.Column(model.ColID) {
		if v.Valid() {
			counts[v.String()]++
		}
	}
	var dups []string
	for id, n := range counts {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	return dups
}

func sample(list []string) []string {
	if len(list) > maxSamples {
		return list[:maxSamples]
	}
	return list
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
