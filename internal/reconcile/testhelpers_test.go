package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/table"
)

// mkTable builds a table from a header and string rows ("" is missing).
func mkTable(name string, header []string, rows ...[]string) *table.Table {
	return table.FromRows(name, append([][]string{header}, rows...))
}

// rowByID returns the index of the row with the given id.
func rowByID(t *testing.T, tb *table.Table, id string) int {
	t.Helper()
	for i, v := range tb.Column(model.ColID) {
		if v.String() == id {
			return i
		}
	}
	require.Failf(t, "row not found", "id %q not in %s", id, tb)
	return -1
}

func hasWarning(ws []model.Warning, kind model.WarningKind) bool {
	for _, w := range ws {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
