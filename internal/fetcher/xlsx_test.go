package fetcher

import (
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/parcel-cli/internal/table"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	err := f.Save(path)
	require.NoError(t, err)
	return path
}

func TestReadXLSX_Basic(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Num_parcel", "communeSenegal", "superficie"},
			{"P001", "Bala", "120"},
			{"P002", "Koar", "80"},
		},
	})

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Num_parcel", "communeSenegal", "superficie"}, rows[0])
	assert.Equal(t, []string{"P001", "Bala", "120"}, rows[1])
	assert.Equal(t, []string{"P002", "Koar", "80"}, rows[2])
}

func TestReadXLSX_SkipRows(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Export URM 2023"},
			{"Num_parcel", "Nicad"},
			{"P001", "AB-12"},
		},
	})

	rows, err := ReadXLSX(path, XLSXOptions{SkipRows: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Num_parcel", "Nicad"}, rows[0])
}

func TestReadXLSX_SheetName(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Individuel": {{"a", "b"}},
		"Collectif":  {{"x", "y"}, {"1", "2"}},
	})

	rows, err := ReadXLSX(path, XLSXOptions{SheetName: "Collectif"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"x", "y"}, rows[0])
	assert.Equal(t, []string{"1", "2"}, rows[1])
}

func TestReadXLSX_SheetNameNotFound(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"a"}},
	})

	_, err := ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadXLSX_SheetIndexOutOfRange(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {{"a"}},
	})

	_, err := ReadXLSX(path, XLSXOptions{SheetIndex: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadXLSX_FileNotFound(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), XLSXOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx: open file")
}

func TestReadXLSXTable(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Num_parcel", "Village"},
			{"P001", ""},
			{"", ""},
			{"P002", "Koar"},
		},
	})

	tb, err := ReadXLSXTable(path, "kobo_ind", XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, "kobo_ind", tb.Name)
	assert.Equal(t, []string{"Num_parcel", "Village"}, tb.Columns())
	require.Equal(t, 2, tb.Len(), "blank rows are skipped")
	assert.False(t, tb.Get(0, "Village").Valid(), "blank cells are missing")
	assert.Equal(t, "Koar", tb.Get(1, "Village").String())
}

func TestReadXLSXTable_EmptySheet(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {}})

	_, err := ReadXLSXTable(path, "empty", XLSXOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	global := table.New("global", []string{"id", "surface_area", "is_deliberated", "validation_code"})
	global.Append(table.Str("P001"), table.Str("95"), table.Bool(true), table.Str("ab-12"))
	global.Append(table.Str("P002"), table.Str("Unspecified"), table.Bool(false), table.Missing)
	delib := global.Filter(func(r table.Row) bool { return r.Get("is_deliberated").Bool() })
	delib.Name = "deliberated"

	path := filepath.Join(t.TempDir(), "parcels.xlsx")
	err := WriteXLSX(path, ColumnKinds{
		Numeric: []string{"surface_area"},
		Bool:    []string{"is_deliberated"},
	}, global, delib)
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)
	assert.Equal(t, "global", f.Sheets[0].Name)
	assert.Equal(t, "deliberated", f.Sheets[1].Name)

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "surface_area", "is_deliberated", "validation_code"}, rows[0])
	assert.Equal(t, "P001", rows[1][0])

	n, err := strconv.ParseFloat(rows[1][1], 64)
	require.NoError(t, err)
	assert.InDelta(t, 95.0, n, 1e-9)
	assert.Contains(t, []string{"true", "1"}, strings.ToLower(rows[1][2]))
	assert.Equal(t, "ab-12", rows[1][3])

	assert.Equal(t, "Unspecified", rows[2][1], "sentinel stays text in a numeric column")
	assert.Contains(t, []string{"false", "0"}, strings.ToLower(rows[2][2]))

	sheet2, err := ReadXLSX(path, XLSXOptions{SheetName: "deliberated"})
	require.NoError(t, err)
	assert.Len(t, sheet2, 2)
}

func TestWriteXLSX_NoTables(t *testing.T) {
	err := WriteXLSX(filepath.Join(t.TempDir(), "x.xlsx"), ColumnKinds{})
	require.Error(t, err)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Sheet1", sheetName(""))
	assert.Equal(t, "kobo", sheetName("kobo"))
	assert.Len(t, []rune(sheetName(strings.Repeat("é", 40))), maxSheetName)
}
