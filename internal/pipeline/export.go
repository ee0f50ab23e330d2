package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"wotc/internal"
)

// ExportRowsToXLSX writes one row per page for review.
func ExportRowsToXLSX(rows []internal.ExportRow, outputPath string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)

	headers := []string{
		"attachment_id", "filename", "email_subject", "email_sender", "page_number",
		"form_type", "confidence", "source", "manual_override", "modified_by", "matched_keywords",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.AttachmentID)
		set(2, row.Filename)
		set(3, derefString(row.EmailSubject))
		set(4, derefString(row.EmailSender))
		set(5, row.PageNumber)
		set(6, derefString(row.FormType))
		set(7, derefFloat(row.Confidence))
		set(8, derefString(row.Source))
		set(9, row.ManualOverride)
		set(10, derefString(row.ModifiedBy))
		set(11, derefString(row.MatchedKeywords))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
