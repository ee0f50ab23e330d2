package pipeline

import (
	"os"
	"path/filepath"

	"wotc/internal"
	"wotc/internal/classifier"
	"wotc/internal/util"
)

// PageClassification is one page of an ad-hoc classification. Result is nil
// when no form type cleared the threshold.
type PageClassification struct {
	PageNumber int
	Result     *internal.ClassificationResult
}

// ClassifyFile classifies every page of a PDF on disk without touching
// storage.
func ClassifyFile(path string, preset classifier.Preset, defs []internal.FormTypeDefinition) ([]PageClassification, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pages, err := ExtractPages(blob)
	if err != nil {
		return nil, err
	}

	cls := classifier.NewClassifier(preset, defs)
	filename := filepath.Base(path)
	out := make([]PageClassification, 0, len(pages))
	for _, p := range pages {
		out = append(out, PageClassification{
			PageNumber: p.Number,
			Result: cls.Classify(internal.ClassificationInput{
				Text:       p.Text,
				Filename:   filename,
				PageNumber: util.IntPtr(p.Number),
			}),
		})
	}
	return out, nil
}

func ClassifyText(text, filename string, pageNumber *int, preset classifier.Preset, defs []internal.FormTypeDefinition) *internal.ClassificationResult {
	return classifier.Classify(internal.ClassificationInput{
		Text:       text,
		Filename:   filename,
		PageNumber: pageNumber,
	}, defs, preset)
}
