package tracker

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/caseload/caseload/core/assignment"
)

func TestExport(t *testing.T) {
	signed := rec("a", "Ava", "2025-11-01", assignment.StatusCompleted, "u1")
	signed.Type = assignment.TypeTriennial
	signed.SchoolSite = "Lincoln"
	signed.APSigned = true
	signed.APDateSigned = assignment.MustParseDate("2025-10-01")
	unsigned := rec("b", "Bo", "2025-11-20", assignment.StatusNotStarted, "u1")
	unsigned.IEPDateSigned = assignment.MustParseDate("2025-10-02")

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, []assignment.Assignment{signed, unsigned}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{ExportSheet}, f.GetSheetList())

	rows, err := f.GetRows(ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Due Date", rows[0][0])
	assert.Equal(t, "Priority", rows[0][9])

	assert.Equal(t, []string{"2025-11-01", "Ava", "Lincoln", "Completed", "Triennial"}, rows[1][:5])
	assert.Equal(t, "2025-10-01", rows[1][6])
	assert.Equal(t, []string{"2025-11-20", "Bo", "", "Not Started", ""}, rows[2][:5])
	if len(rows[2]) > 8 {
		assert.Empty(t, rows[2][8], "unsigned IEP date left blank")
	}
}
