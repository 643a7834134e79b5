package reconcile

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/parcel-cli/internal/model"
)

// Schema declares how raw source columns map onto the canonical schema.
// Alias lists are ordered by precedence and compared with FoldName.
type Schema struct {
	// ID lists identifier-bearing columns, most reliable first.
	ID []string `yaml:"id"`
	// Columns maps a canonical column to its accepted source aliases.
	Columns map[string][]string `yaml:"columns"`
	// Required columns are added with the given default when absent.
	Required map[string]string `yaml:"required"`
	// Numeric columns are coerced; unparseable values become missing.
	Numeric []string `yaml:"numeric"`
	// CodeTokens and AuthorityTokens locate deliberation reference columns
	// by substring when no alias matches.
	CodeTokens      []string `yaml:"code_tokens"`
	AuthorityTokens []string `yaml:"authority_tokens"`
	// Categories configures attribute completion per parcel category.
	Categories map[model.Category]CategorySchema `yaml:"categories"`
}

// CategorySchema lists the attributes completed from the validation
// reference for one category.
type CategorySchema struct {
	Attributes []string `yaml:"attributes"`
	// ReferenceNames maps a canonical attribute to the column holding it in
	// the validation reference, when the names differ.
	ReferenceNames map[string]string `yaml:"reference_names"`
}

// DefaultSchema returns the column layout of the field survey exports.
func DefaultSchema() *Schema {
	return &Schema{
		ID: []string{"Num_parcel", "Num_parcel_2", "id_parcelle", "parcel_id", "id"},
		Columns: map[string][]string{
			model.ColCommune:             {"communeSenegal", "commune"},
			model.ColVillage:             {"Village", "localite"},
			model.ColSurfaceArea:         {"superficie", "surface", "area"},
			model.ColUsageTypeIndividual: {"type_usag", "usage_type"},
			model.ColUsageTypeCollective: {"type_usa"},
			model.ColCode:                {"Nicad", "code_nicad"},
			model.ColAuthority:           {"autorite", "authority", "autorite_deliberation"},
		},
		Required: map[string]string{
			model.ColCommune: model.Unspecified,
			model.ColVillage: model.Unspecified,
		},
		Numeric:         []string{model.ColSurfaceArea},
		CodeTokens:      []string{"nicad", "code"},
		AuthorityTokens: []string{"autorit", "authority"},
		Categories: map[model.Category]CategorySchema{
			model.CategoryIndividual: {
				Attributes: []string{model.ColSurfaceArea, model.ColUsageTypeIndividual},
			},
			model.CategoryCollective: {
				Attributes: []string{model.ColSurfaceArea, model.ColUsageTypeCollective},
			},
		},
	}
}

// LoadSchema reads a schema from a YAML file with a top-level "schema" key.
// Sections left empty fall back to DefaultSchema.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reconcile: read schema %s", path)
	}

	var wrapper struct {
		Schema Schema `yaml:"schema"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "reconcile: parse schema")
	}

	s := &wrapper.Schema
	def := DefaultSchema()
	if len(s.ID) == 0 {
		s.ID = def.ID
	}
	if len(s.Columns) == 0 {
		s.Columns = def.Columns
	}
	if s.Required == nil {
		s.Required = def.Required
	}
	if s.Numeric == nil {
		s.Numeric = def.Numeric
	}
	if len(s.CodeTokens) == 0 {
		s.CodeTokens = def.CodeTokens
	}
	if len(s.AuthorityTokens) == 0 {
		s.AuthorityTokens = def.AuthorityTokens
	}
	if len(s.Categories) == 0 {
		s.Categories = def.Categories
	}
	return s, nil
}

// Category returns the completion settings for c.
func (s *Schema) Category(c model.Category) CategorySchema {
	return s.Categories[c]
}
