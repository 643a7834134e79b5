package store

import (
	"strings"

	"github.com/sells-group/parcel-cli/internal/model"
)

// parcelColumns is the archived column order after run_id (and seq in SQLite).
var parcelColumns = []string{
	"source",
	"category",
	"parcel_id",
	"commune",
	"village",
	"has_validation_code",
	"surface_area",
	"usage_type_individual",
	"usage_type_collective",
	"is_deliberated",
	"deliberating_authority",
	"validation_code",
}

var parcelColumnList = strings.Join(parcelColumns, ", ")

func parcelValues(p model.Parcel) []any {
	var area, code any
	if p.SurfaceArea != nil {
		area = *p.SurfaceArea
	}
	if p.ValidationCode != nil {
		code = *p.ValidationCode
	}
	return []any{
		p.Source,
		string(p.Category),
		p.ID,
		p.Commune,
		p.Village,
		p.HasValidationCode,
		area,
		p.UsageTypeIndividual,
		p.UsageTypeCollective,
		p.IsDeliberated,
		p.DeliberatingAuthority,
		code,
	}
}
