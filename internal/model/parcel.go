package model

// Unspecified is the sentinel written wherever no real value is available.
const Unspecified = "Unspecified"

// NotApplicable marks the usage-type field that does not apply to a
// parcel's category.
const NotApplicable = "Not applicable"

// Category distinguishes individual from collective parcel surveys.
type Category string

const (
	CategoryIndividual Category = "individual"
	CategoryCollective Category = "collective"
)

// Canonical column names shared by every stage and the exported tables.
const (
	ColID                    = "id"
	ColCommune               = "commune"
	ColVillage               = "village"
	ColHasValidationCode     = "has_validation_code"
	ColSurfaceArea           = "surface_area"
	ColUsageTypeIndividual   = "usage_type_individual"
	ColUsageTypeCollective   = "usage_type_collective"
	ColIsDeliberated         = "is_deliberated"
	ColDeliberatingAuthority = "deliberating_authority"
	ColValidationCode        = "validation_code"
	ColCode                  = "code"
	ColAuthority             = "authority"
	ColSource                = "source"
	ColCategory              = "category"
)

// FinalColumns is the fixed column order of the global reconciled table.
var FinalColumns = []string{
	ColID,
	ColCommune,
	ColVillage,
	ColHasValidationCode,
	ColSurfaceArea,
	ColUsageTypeIndividual,
	ColUsageTypeCollective,
	ColIsDeliberated,
	ColDeliberatingAuthority,
	ColValidationCode,
}

// SourceColumns is FinalColumns plus provenance, used for per-source tables.
var SourceColumns = append(append([]string(nil), FinalColumns...), ColSource, ColCategory)

// UsageColumn returns the usage-type column that applies to c.
func (c Category) UsageColumn() string {
	if c == CategoryCollective {
		return ColUsageTypeCollective
	}
	return ColUsageTypeIndividual
}

// OtherUsageColumn returns the usage-type column that does not apply to c.
func (c Category) OtherUsageColumn() string {
	if c == CategoryCollective {
		return ColUsageTypeIndividual
	}
	return ColUsageTypeCollective
}

// Parcel is one reconciled land parcel declaration.
type Parcel struct {
	ID                    string   `json:"id"`
	Commune               string   `json:"commune"`
	Village               string   `json:"village"`
	HasValidationCode     bool     `json:"has_validation_code"`
	SurfaceArea           *float64 `json:"surface_area,omitempty"`
	UsageTypeIndividual   string   `json:"usage_type_individual"`
	UsageTypeCollective   string   `json:"usage_type_collective"`
	IsDeliberated         bool     `json:"is_deliberated"`
	DeliberatingAuthority string   `json:"deliberating_authority"`
	ValidationCode        *string  `json:"validation_code,omitempty"`
	Source                string   `json:"source,omitempty"`
	Category              Category `json:"category,omitempty"`
}
