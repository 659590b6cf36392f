package tracker

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/caseload/caseload/core/assignment"
)

const (
	ExportSheet    = "Assignments"
	ExportFilename = "assignments.xlsx"
)

var exportHeader = []interface{}{
	"Due Date", "Name", "School Site", "Status", "Assignment",
	"AP Signed", "AP Date Signed", "IEP Signed", "IEP Date Signed", "Priority",
}

// NewWorkbook builds a workbook with a header row and one row per assignment, in list order.
func NewWorkbook(list []assignment.Assignment) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", ExportSheet)

	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeader); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}
	for i, a := range list {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			a.DueDate.String(), a.Name, a.SchoolSite, string(a.Status), string(a.Type),
			a.APSigned, a.SignedAPDate().String(), a.IEPSigned, a.SignedIEPDate().String(), a.Priority,
		}
		if err = f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return nil, errors.Wrapf(err, "writing row %d", i+2)
		}
	}
	return f, nil
}

// Export writes the list as an .xlsx workbook to w.
func Export(w io.Writer, list []assignment.Assignment) error {
	f, err := NewWorkbook(list)
	if err != nil {
		return err
	}
	return errors.Wrap(f.Write(w), "writing workbook")
}
