package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parcel-cli/internal/model"
)

func TestLoadSchema_FromFile(t *testing.T) {
	s, err := LoadSchema(filepath.Join("testdata", "schema.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"numero_parcelle", "Num_parcel"}, s.ID)
	assert.Equal(t, []string{"nom_commune"}, s.Columns[model.ColCommune])
	assert.Equal(t, "usage_label", s.Category(model.CategoryCollective).ReferenceNames[model.ColUsageTypeCollective])

	def := DefaultSchema()
	assert.Equal(t, def.Required, s.Required, "omitted sections use defaults")
	assert.Equal(t, def.CodeTokens, s.CodeTokens)
	assert.Equal(t, def.Numeric, s.Numeric)
}

func TestLoadSchema_EmptyFileIsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema: {}\n"), 0o644))

	s, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSchema(), s)
}

func TestLoadSchema_Errors(t *testing.T) {
	_, err := LoadSchema(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read schema")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema: [unclosed\n"), 0o644))
	_, err = LoadSchema(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse schema")
}

func TestSchema_CategoryUnknown(t *testing.T) {
	assert.Empty(t, DefaultSchema().Category("communal").Attributes)
}
