package fetcher

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/parcel-cli/internal/table"
)

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

// XLSXOptions configures the XLSX parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // rows above the header
}

// ReadXLSX reads an XLSX file and returns all rows as string slices.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open file %s", path)
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for i, row := range sheet.Rows {
		if i < opts.SkipRows || row == nil {
			continue
		}
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}

// ReadXLSXTable reads one sheet as a table named name. The first
// remaining row is the header.
func ReadXLSXTable(path, name string, opts XLSXOptions) (*table.Table, error) {
	rows, err := ReadXLSX(path, opts)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("xlsx: %s has no header row", path)
	}
	return table.FromRows(name, rows), nil
}

// ColumnKinds tells the writers which columns hold numbers or booleans.
// Other columns are written as text.
type ColumnKinds struct {
	Numeric []string
	Bool    []string
}

func (k ColumnKinds) kinds() map[string]byte {
	m := make(map[string]byte, len(k.Numeric)+len(k.Bool))
	for _, c := range k.Numeric {
		m[c] = 'n'
	}
	for _, c := range k.Bool {
		m[c] = 'b'
	}
	return m
}

// WriteXLSX writes each table to its own sheet, named after the table.
// Missing cells are left empty. Numeric and boolean columns get typed cells
// when the value parses; anything else (such as a sentinel) is text.
func WriteXLSX(path string, kinds ColumnKinds, tables ...*table.Table) error {
	if len(tables) == 0 {
		return eris.New("xlsx: no tables to write")
	}
	kind := kinds.kinds()

	f := xlsx.NewFile()
	for _, t := range tables {
		sheet, err := f.AddSheet(sheetName(t.Name))
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %q", t.Name)
		}

		header := sheet.AddRow()
		cols := t.Columns()
		for _, c := range cols {
			header.AddCell().SetString(c)
		}

		for _, r := range t.Rows() {
			row := sheet.AddRow()
			for _, c := range cols {
				cell := row.AddCell()
				v := r.Get(c)
				if !v.Valid() {
					continue
				}
				switch kind[c] {
				case 'n':
					if n, ok := v.Float(); ok {
						cell.SetFloat(n)
						continue
					}
				case 'b':
					if s := v.String(); s == "true" || s == "false" {
						cell.SetBool(v.Bool())
						continue
					}
				}
				cell.SetString(v.String())
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func sheetName(name string) string {
	if name == "" {
		return "Sheet1"
	}
	if r := []rune(name); len(r) > maxSheetName {
		return string(r[:maxSheetName])
	}
	return name
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
