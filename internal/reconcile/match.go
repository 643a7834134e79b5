package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/table"
)

// MatchValidation flags every record with has_validation_code (its id
// exists in the validation reference) and attaches validation_code from the
// reference's code column. Null-like codes ("nan", "N/A", ...) are not
// transferred. Records without a code mapping keep a missing
// validation_code, never an empty string.
//
// Both tables must already carry the canonical "id" column.
func MatchValidation(records, reference *table.Table, source string, cat model.Category) (*table.Table, model.MatchStats, []model.Warning) {
	log := zap.L().With(zap.String("component", "validation_matcher"), zap.String("source", source), zap.String("category", string(cat)))

	refIDs := make(map[string]bool, reference.Len())
	codes := make(map[string]table.Value)
	conflicts := make(map[string]bool)
	hasCode := reference.Has(model.ColCode)

	for _, r := range reference.Rows() {
		id := r.Get(model.ColID)
		if !id.Valid() {
			continue
		}
		refIDs[id.String()] = true

		code := r.Get(model.ColCode)
		if !NormalizeCode(code).Valid() {
			continue
		}
		code = table.Str(strings.TrimSpace(code.String()))
		prev, seen := codes[id.String()]
		if !seen {
			codes[id.String()] = code
		} else if NormalizeCode(prev) != NormalizeCode(code) {
			conflicts[id.String()] = true
		}
	}

	out := records.Clone()
	has := make([]table.Value, out.Len())
	vals := make([]table.Value, out.Len())
	stats := model.MatchStats{Category: cat, Records: out.Len(), ReferenceRecords: reference.Len()}
	distinct := make(map[string]bool)

	for i := range has {
		id := out.Get(i, model.ColID).String()
		matched := refIDs[id]
		has[i] = table.Bool(matched)
		if matched {
			stats.Matched++
		}
		if code, ok := codes[id]; ok {
			vals[i] = code
			distinct[code.String()] = true
		}
	}
	out.SetColumn(model.ColHasValidationCode, has)
	out.SetColumn(model.ColValidationCode, vals)
	stats.DistinctCodes = len(distinct)

	var warnings []model.Warning
	if !hasCode {
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnMissingCodeColumn,
			Source:  source,
			Stage:   "validation",
			Message: fmt.Sprintf("%s: validation reference has no %q column, no codes transferred", reference.Name, model.ColCode),
		})
	}
	if len(conflicts) > 0 {
		ids := make([]string, 0, len(conflicts))
		for id := range conflicts {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnConflictingCodes,
			Source:  source,
			Stage:   "validation",
			Message: fmt.Sprintf("%s: %d identifiers carry conflicting codes, first occurrence kept", reference.Name, len(ids)),
			Samples: sample(ids),
		})
	}
	if stats.Records > 0 && stats.Matched == 0 {
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnZeroMatches,
			Source:  source,
			Stage:   "validation",
			Message: fmt.Sprintf("%s: none of %d records matched the validation reference; check the identifier columns", records.Name, stats.Records),
		})
	} else if stats.Records > 0 && stats.Matched == stats.Records {
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnTotalMatches,
			Source:  source,
			Stage:   "validation",
			Message: fmt.Sprintf("%s: all %d records matched the validation reference; verify the join key", records.Name, stats.Records),
		})
	}

	log.Info("validation match complete",
		zap.Int("records", stats.Records),
		zap.Int("reference", stats.ReferenceRecords),
		zap.Int("matched", stats.Matched),
		zap.Int("distinct_codes", stats.DistinctCodes),
	)
	return out, stats, warnings
}
