package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/table"
)

func delibRef(rows ...[]string) *table.Table {
	return mkTable("deliberation", []string{model.ColCode, model.ColAuthority}, rows...)
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in    table.Value
		want  string
		valid bool
	}{
		{table.Str(" ab-12 "), "AB-12", true},
		{table.Str("AB-12"), "AB-12", true},
		{table.Str("nan"), "", false},
		{table.Str("N/A"), "", false},
		{table.Str(" <NA> "), "", false},
		{table.Str("null"), "", false},
		{table.Str("."), "", false},
		{table.Str("   "), "", false},
		{table.Missing, "", false},
	}
	for _, tt := range tests {
		got := NormalizeCode(tt.in)
		assert.Equal(t, tt.valid, got.Valid(), "%q", tt.in.String())
		assert.Equal(t, tt.want, got.String(), "%q", tt.in.String())
		assert.Equal(t, got, NormalizeCode(got), "normalization is idempotent for %q", tt.in.String())
	}
	assert.Equal(t, NormalizeCode(table.Str("ab-12")), NormalizeCode(table.Str(" AB-12\t")))
}

func TestDeliberate_Scenarios(t *testing.T) {
	records := mkTable("kobo", []string{model.ColID, model.ColValidationCode, model.ColHasValidationCode},
		[]string{"P001", " ab-12 ", "true"},
		[]string{"P002", "nan", "true"},
		[]string{"P003", "", "false"},
	)
	delib := delibRef([]string{"AB-12", "Mayor X"})

	out, stats, warnings := Deliberate(records, delib, "kobo")

	p1 := rowByID(t, out, "P001")
	assert.True(t, out.Get(p1, model.ColIsDeliberated).Bool())
	assert.Equal(t, "Mayor X", out.Get(p1, model.ColDeliberatingAuthority).String())
	assert.Equal(t, "ab-12", out.Get(p1, model.ColValidationCode).String())

	p2 := rowByID(t, out, "P002")
	assert.True(t, out.Get(p2, model.ColIsDeliberated).Bool(), "validated records are deliberated without a direct match")
	assert.Equal(t, model.Unspecified, out.Get(p2, model.ColDeliberatingAuthority).String())
	assert.False(t, out.Get(p2, model.ColValidationCode).Valid(), "null-like code is cleared")

	p3 := rowByID(t, out, "P003")
	assert.False(t, out.Get(p3, model.ColIsDeliberated).Bool())
	assert.Equal(t, model.Unspecified, out.Get(p3, model.ColDeliberatingAuthority).String())

	assert.Equal(t, 1, stats.DirectMatches)
	assert.Equal(t, 1, stats.SecondaryMatches)
	assert.Equal(t, model.CrossTab{ValidatedDeliberated: 2, NotValidatedNotDeliberated: 1}, stats.CrossTab)
	assert.Equal(t, model.CodeOverlap{ReferenceCodes: 1, RecordCodes: 1, Intersection: 1}, stats.Overlap)
	assert.Empty(t, warnings)
}

func TestDeliberate_DirectMatchWithoutValidationIsReported(t *testing.T) {
	records := mkTable("kobo", []string{model.ColID, model.ColValidationCode, model.ColHasValidationCode},
		[]string{"P1", "Z-9", "false"},
		[]string{"P2", "", "false"},
	)
	delib := delibRef([]string{"z-9", ""})

	out, stats, warnings := Deliberate(records, delib, "kobo")
	assert.True(t, out.Get(0, model.ColIsDeliberated).Bool())
	assert.Equal(t, model.Unspecified, out.Get(0, model.ColDeliberatingAuthority).String(), "blank authority falls back")
	assert.Equal(t, 1, stats.CrossTab.NotValidatedDeliberated)
	require.True(t, hasWarning(warnings, model.WarnDelibNotValidated))
	for _, w := range warnings {
		if w.Kind == model.WarnDelibNotValidated {
			assert.Equal(t, []string{"P1"}, w.Samples)
		}
	}
}

func TestDeliberate_CrossTabSumsToRecords(t *testing.T) {
	records := mkTable("kobo", []string{model.ColID, model.ColValidationCode, model.ColHasValidationCode},
		[]string{"A", "C1", "true"},
		[]string{"B", "C2", "false"},
		[]string{"C", "", "true"},
		[]string{"D", "", "false"},
		[]string{"E", "none", "false"},
	)
	delib := delibRef([]string{"C1", "Conseil"}, []string{"C2", "Conseil"}, []string{"C9", "Maire"})

	out, stats, _ := Deliberate(records, delib, "kobo")
	assert.Equal(t, out.Len(), stats.CrossTab.Total())
	assert.Equal(t, 5, stats.Records)
	assert.Equal(t, model.CodeOverlap{ReferenceCodes: 3, RecordCodes: 2, Intersection: 2}, stats.Overlap)

	// OR semantics: deliberated = direct match OR has_validation_code.
	for _, r := range out.Rows() {
		code := NormalizeCode(records.Get(r.Index(), model.ColValidationCode))
		direct := code.Valid() && (code.String() == "C1" || code.String() == "C2")
		want := direct || r.Get(model.ColHasValidationCode).Bool()
		assert.Equal(t, want, r.Get(model.ColIsDeliberated).Bool(), r.Get(model.ColID).String())
	}
}

func TestDeliberate_ConflictingAuthoritiesKeepFirst(t *testing.T) {
	records := mkTable("kobo", []string{model.ColID, model.ColValidationCode, model.ColHasValidationCode},
		[]string{"P1", "K-1", "true"},
	)
	delib := delibRef([]string{"K-1", ""}, []string{"k-1", "Conseil rural"}, []string{"K-1", "Sous-préfet"})

	out, _, warnings := Deliberate(records, delib, "kobo")
	assert.Equal(t, "Conseil rural", out.Get(0, model.ColDeliberatingAuthority).String())
	require.True(t, hasWarning(warnings, model.WarnConflictingCodes))
}

func TestDeliberate_EmptyReference(t *testing.T) {
	records := mkTable("kobo", []string{model.ColID, model.ColValidationCode, model.ColHasValidationCode},
		[]string{"P1", "K-1", "false"},
	)
	out, stats, _ := Deliberate(records, table.New("deliberation", nil), "kobo")
	assert.False(t, out.Get(0, model.ColIsDeliberated).Bool())
	assert.Equal(t, 0, stats.Overlap.ReferenceCodes)
}

func TestPrepareDeliberation_LocatesAndConcatenates(t *testing.T) {
	t1 := mkTable("delib_2022", []string{"Numéro", "Code NICAD", "Autorité ayant délibéré"},
		[]string{"1", " ab-12 ", " Maire "},
		[]string{"2", "nan", "Maire"},
	)
	t2 := mkTable("delib_2023", []string{"Nicad", "autorite"},
		[]string{"CD-3", "Conseil"},
	)

	out, warnings := PrepareDeliberation([]*table.Table{t1, t2}, DefaultSchema(), "deliberation")
	assert.Empty(t, warnings)
	assert.Equal(t, []string{model.ColCode, model.ColAuthority}, out.Columns())
	assert.Equal(t, [][]string{
		{model.ColCode, model.ColAuthority},
		{"AB-12", "Maire"},
		{"CD-3", "Conseil"},
	}, out.Strings())
}

func TestPrepareDeliberation_MissingColumns(t *testing.T) {
	noCode := mkTable("bad", []string{"village"}, []string{"Koar"})
	noAuth := mkTable("partial", []string{"nicad"}, []string{"X-1"})

	out, warnings := PrepareDeliberation([]*table.Table{noCode, noAuth}, DefaultSchema(), "deliberation")
	assert.True(t, hasWarning(warnings, model.WarnMissingCodeColumn))
	assert.True(t, hasWarning(warnings, model.WarnMissingAuthorityCol))
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "X-1", out.Get(0, model.ColCode).String())
	assert.False(t, out.Get(0, model.ColAuthority).Valid())
}

func TestPrepareDeliberation_NoTables(t *testing.T) {
	out, warnings := PrepareDeliberation(nil, DefaultSchema(), "deliberation")
	assert.Equal(t, 0, out.Len())
	assert.Empty(t, warnings)
}
