package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/table"
)

// nullCodes are the upper-cased tokens treated as a missing code.
var nullCodes = map[string]bool{
	"NAN": true, "NONE": true, "NA": true, "N/A": true,
	"<NA>": true, "NULL": true, "": true, ".": true,
}

// NormalizeCode returns the join form of a code: trimmed and upper-cased,
// with null-like tokens collapsed to Missing. It is applied identically to
// record and reference codes.
func NormalizeCode(v table.Value) table.Value {
	if !v.Valid() {
		return table.Missing
	}
	s := strings.ToUpper(strings.TrimSpace(v.String()))
	if nullCodes[s] {
		return table.Missing
	}
	return table.Str(s)
}

// PrepareDeliberation projects each deliberation reference onto
// (code, authority) and concatenates them in order. Columns are located by
// alias, then by substring tokens; ambiguous or absent columns are reported.
// Codes are normalized and rows without a code are dropped.
func PrepareDeliberation(refs []*table.Table, s *Schema, source string) (*table.Table, []model.Warning) {
	var parts []*table.Table
	var warnings []model.Warning

	for _, ref := range refs {
		cols := ref.Columns()
		codeCol, codeCands := LocateColumns(cols, append([]string{model.ColCode}, s.Columns[model.ColCode]...), s.CodeTokens)
		authCol, authCands := LocateColumns(cols, append([]string{model.ColAuthority}, s.Columns[model.ColAuthority]...), s.AuthorityTokens)

		if codeCol == "" {
			warnings = append(warnings, model.Warning{
				Kind:    model.WarnMissingCodeColumn,
				Source:  source,
				Stage:   "deliberation",
				Message: fmt.Sprintf("%s: no code column found (tokens %v), table ignored", ref.Name, s.CodeTokens),
				Samples: cols,
			})
			continue
		}
		if len(codeCands) > 1 {
			warnings = append(warnings, candidateWarning(source, ref.Name, "code", codeCol, codeCands))
		}
		if authCol == "" {
			warnings = append(warnings, model.Warning{
				Kind:    model.WarnMissingAuthorityCol,
				Source:  source,
				Stage:   "deliberation",
				Message: fmt.Sprintf("%s: no authority column found (tokens %v), authority left %q", ref.Name, s.AuthorityTokens, model.Unspecified),
				Samples: cols,
			})
		} else if len(authCands) > 1 {
			warnings = append(warnings, candidateWarning(source, ref.Name, "authority", authCol, authCands))
		}

		part := table.New(ref.Name, []string{model.ColCode, model.ColAuthority})
		for _, r := range ref.Rows() {
			code := NormalizeCode(r.Get(codeCol))
			if !code.Valid() {
				continue
			}
			var auth table.Value
			if authCol != "" {
				if a := strings.TrimSpace(r.Get(authCol).String()); a != "" {
					auth = table.Str(a)
				}
			}
			part.Append(code, auth)
		}
		parts = append(parts, part)
	}

	return table.Concat("deliberation", parts...), warnings
}

func candidateWarning(source, name, what, chosen string, cands []string) model.Warning {
	return model.Warning{
		Kind:    model.WarnMultipleCandidates,
		Source:  source,
		Stage:   "deliberation",
		Message: fmt.Sprintf("%s: %d columns could be the %s column, using %q", name, len(cands), what, chosen),
		Samples: cands,
	}
}

// Deliberate derives is_deliberated and deliberating_authority for every
// record. A record is deliberated when its normalized validation_code
// matches a prepared deliberation row (authority taken from the match), or,
// as a second pass over the unmatched records, when has_validation_code is
// true (authority left "Unspecified"). Null-like validation codes are
// cleared to missing.
func Deliberate(records, delib *table.Table, source string) (*table.Table, model.DeliberationStats, []model.Warning) {
	log := zap.L().With(zap.String("component", "deliberation_reconciler"), zap.String("source", source))

	authority := make(map[string]table.Value)
	conflicts := make(map[string]bool)
	refCodes := make(map[string]bool)
	for _, r := range delib.Rows() {
		code := NormalizeCode(r.Get(model.ColCode))
		if !code.Valid() {
			continue
		}
		refCodes[code.String()] = true
		auth := r.Get(model.ColAuthority)
		prev, seen := authority[code.String()]
		switch {
		case !seen || !prev.Valid():
			authority[code.String()] = auth
		case auth.Valid() && auth != prev:
			conflicts[code.String()] = true
		}
	}

	out := records.Clone()
	n := out.Len()
	codes := make([]table.Value, n)
	isDelib := make([]table.Value, n)
	auths := make([]table.Value, n)
	direct := make([]bool, n)
	stats := model.DeliberationStats{Records: n}
	recCodes := make(map[string]bool)

	// Pass 1: direct join on the normalized code.
	for i := 0; i < n; i++ {
		raw := out.Get(i, model.ColValidationCode)
		code := NormalizeCode(raw)
		auths[i] = table.Str(model.Unspecified)
		if !code.Valid() {
			continue
		}
		codes[i] = table.Str(strings.TrimSpace(raw.String()))
		recCodes[code.String()] = true
		if a, ok := authority[code.String()]; ok {
			direct[i] = true
			auths[i] = a.Or(table.Str(model.Unspecified))
			stats.DirectMatches++
		}
	}

	// Pass 2: validated records count as deliberated even without a direct match.
	for i := 0; i < n; i++ {
		validated := out.Get(i, model.ColHasValidationCode).Bool()
		d := direct[i]
		if !d && validated {
			d = true
			stats.SecondaryMatches++
		}
		isDelib[i] = table.Bool(d)
		stats.CrossTab.Add(validated, d)
	}

	out.SetColumn(model.ColValidationCode, codes)
	out.SetColumn(model.ColIsDeliberated, isDelib)
	out.SetColumn(model.ColDeliberatingAuthority, auths)

	stats.Overlap = model.CodeOverlap{ReferenceCodes: len(refCodes), RecordCodes: len(recCodes)}
	for c := range recCodes {
		if refCodes[c] {
			stats.Overlap.Intersection++
		}
	}

	var warnings []model.Warning
	if len(conflicts) > 0 {
		list := make([]string, 0, len(conflicts))
		for c := range conflicts {
			list = append(list, c)
		}
		sort.Strings(list)
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnConflictingCodes,
			Source:  source,
			Stage:   "deliberation",
			Message: fmt.Sprintf("%d deliberation codes list more than one authority, first kept", len(list)),
			Samples: sample(list),
		})
	}
	if c := stats.CrossTab.ValidatedNotDeliberated; c > 0 {
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnValidatedNotDelib,
			Source:  source,
			Stage:   "deliberation",
			Message: fmt.Sprintf("%d records are validated but not deliberated", c),
			Samples: sample(idsWhere(out, true, false)),
		})
	}
	if c := stats.CrossTab.NotValidatedDeliberated; c > 0 {
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnDelibNotValidated,
			Source:  source,
			Stage:   "deliberation",
			Message: fmt.Sprintf("%d records are deliberated but not validated", c),
			Samples: sample(idsWhere(out, false, true)),
		})
	}

	log.Info("deliberation reconciled",
		zap.Int("records", n),
		zap.Int("direct", stats.DirectMatches),
		zap.Int("secondary", stats.SecondaryMatches),
		zap.Int("reference_codes", stats.Overlap.ReferenceCodes),
		zap.Int("record_codes", stats.Overlap.RecordCodes),
		zap.Int("intersection", stats.Overlap.Intersection),
	)
	return out, stats, warnings
}

func idsWhere(t *table.Table, validated, deliberated bool) []string {
	var ids []string
	for _, r := range t.Rows() {
		if r.Get(model.ColHasValidationCode).Bool() == validated && r.Get(model.ColIsDeliberated).Bool() == deliberated {
			ids = append(ids, r.Get(model.ColID).String())
		}
	}
	return ids
}
