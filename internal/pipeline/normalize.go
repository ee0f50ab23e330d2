package pipeline

import (
	"strings"

	"wotc/internal"
	"wotc/internal/util"
)

// pageText joins the extracted text layer with any OCR text stored for the
// page.
func pageText(page internal.PageRow) string {
	parts := []string{page.TextContent}
	if page.OCRText != nil {
		parts = append(parts, *page.OCRText)
	}
	return util.NormalizeSpaces(strings.Join(parts, " "))
}

func PageInput(page internal.PageRow, filename string) internal.ClassificationInput {
	return internal.ClassificationInput{
		Text:       pageText(page),
		Filename:   filename,
		PageNumber: util.IntPtr(page.PageNumber),
	}
}
