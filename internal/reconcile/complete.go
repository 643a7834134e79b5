package reconcile

import (
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/table"
)

// ErrUnknownAttribute is returned when a requested attribute exists neither
// in the records nor in the reference under its mapped name.
var ErrUnknownAttribute = eris.New("attribute not found in records or reference")

// CompletionOptions configures CompleteAttributes.
type CompletionOptions struct {
	// ReferenceNames maps an attribute to its column name in the reference.
	ReferenceNames map[string]string
	// Strict makes an unknown attribute fatal. Otherwise it is filled with
	// the sentinel for every row and reported.
	Strict bool
	// Numeric attributes take reference values only when they parse as numbers.
	Numeric []string
}

// CompleteAttributes fills each requested attribute by coalescing, per
// record: the reference value for the record's id, then the record's own
// value, then "Unspecified". The first reference row wins for duplicate ids.
func CompleteAttributes(records, reference *table.Table, attrs []string, opts CompletionOptions, source string, cat model.Category) (*table.Table, []model.AttributeStats, []model.Warning, error) {
	log := zap.L().With(zap.String("component", "attribute_completion"), zap.String("source", source), zap.String("category", string(cat)))

	refRow := make(map[string]int, reference.Len())
	for i, v := range reference.Column(model.ColID) {
		if !v.Valid() {
			continue
		}
		if _, dup := refRow[v.String()]; !dup {
			refRow[v.String()] = i
		}
	}

	out := records.Clone()
	ids := out.Column(model.ColID)
	sentinel := table.Str(model.Unspecified)
	var stats []model.AttributeStats
	var warnings []model.Warning

	for _, attr := range attrs {
		refCol := attr
		if name, ok := opts.ReferenceNames[attr]; ok && name != "" {
			refCol = name
		}
		inRef := reference.Has(refCol)
		inRec := out.Has(attr)

		if !inRef && !inRec {
			if opts.Strict {
				return nil, nil, nil, eris.Wrapf(ErrUnknownAttribute, "source %s (%s): attribute %q (reference column %q)", source, cat, attr, refCol)
			}
			warnings = append(warnings, model.Warning{
				Kind:    model.WarnUnknownAttribute,
				Source:  source,
				Stage:   "completion",
				Message: fmt.Sprintf("%s: attribute %q not found in records or reference (as %q); every row set to %q", records.Name, attr, refCol, model.Unspecified),
			})
		}

		numeric := containsString(opts.Numeric, attr)
		st := model.AttributeStats{Category: cat, Attribute: attr, ReferenceName: refCol}
		own := out.Column(attr)
		vals := make([]table.Value, out.Len())
		for i := range vals {
			var ref table.Value
			if inRef {
				if j, ok := refRow[ids[i].String()]; ok {
					ref = reference.Get(j, refCol)
				}
				if numeric && ref.Valid() {
					if f, ok := ref.Float(); ok {
						ref = table.Float(f)
					} else {
						ref = table.Missing
					}
				}
			}
			switch {
			case ref.Valid():
				vals[i] = ref
				st.FromReference++
			case own[i].Valid():
				vals[i] = own[i]
				st.FromRecord++
			default:
				vals[i] = sentinel
				st.Defaulted++
			}
		}
		out.SetColumn(attr, vals)
		stats = append(stats, st)

		log.Debug("attribute completed",
			zap.String("attribute", attr),
			zap.Int("from_reference", st.FromReference),
			zap.Int("from_record", st.FromRecord),
			zap.Int("defaulted", st.Defaulted),
		)
	}
	return out, stats, warnings, nil
}
