// Package classifier scores page text against a catalog of form-type
// definitions and picks the best confident match. Everything here is pure:
// no I/O, no logging, no shared mutable state.
package classifier

import (
	"strings"

	"wotc/internal"
)

// scoreEpsilon absorbs float error when components are summed, so a score
// that is 0.40 on paper still clears a 0.40 threshold.
const scoreEpsilon = 1e-9

// Classifier holds a pre-normalized catalog and a preset. It is immutable
// after construction and safe for concurrent use.
type Classifier struct {
	preset  Preset
	catalog []internal.FormTypeDefinition
}

func NewClassifier(preset Preset, catalog []internal.FormTypeDefinition) *Classifier {
	normalized := make([]internal.FormTypeDefinition, 0, len(catalog))
	for _, def := range catalog {
		normalized = append(normalized, lowerDefinition(def))
	}
	return &Classifier{preset: preset, catalog: normalized}
}

// Classify returns the best match for input, or nil when the text is empty,
// the catalog is empty, or no candidate reaches the preset threshold.
func (c *Classifier) Classify(input internal.ClassificationInput) *internal.ClassificationResult {
	if strings.TrimSpace(input.Text) == "" || len(c.catalog) == 0 {
		return nil
	}

	text := strings.ToLower(input.Text)
	filename := strings.ToLower(input.Filename)

	best := -1
	var bestScores internal.ComponentScores
	highest := 0.0
	for i, def := range c.catalog {
		scores := c.score(text, filename, input.PageNumber, def)
		total := scores.Total()
		if total > highest+scoreEpsilon {
			highest = total
			best = i
			bestScores = scores
		}
	}

	if best < 0 || !meetsThreshold(highest, c.preset.Threshold) {
		return nil
	}

	def := c.catalog[best]
	components := bestScores
	return &internal.ClassificationResult{
		FormTypeID:      def.ID,
		FormTypeName:    def.Name,
		ConfidenceScore: clamp01(highest),
		ExtractedData: internal.ExtractedData{
			Source:          internal.SourceRules,
			Preset:          c.preset.Name,
			MatchedKeywords: presentPhrases(text, def.Keywords),
			MatchedFields:   presentPhrases(text, def.RequiredFields),
			Components:      &components,
			PageNumber:      input.PageNumber,
			Filename:        input.Filename,
		},
	}
}

// Score returns the per-component breakdown of input against a single
// definition, without applying the threshold.
func (c *Classifier) Score(input internal.ClassificationInput, def internal.FormTypeDefinition) internal.ComponentScores {
	if strings.TrimSpace(input.Text) == "" {
		return internal.ComponentScores{}
	}
	return c.score(strings.ToLower(input.Text), strings.ToLower(input.Filename), input.PageNumber, lowerDefinition(def))
}

// Classify is a convenience for one-shot calls with a throwaway Classifier.
func Classify(input internal.ClassificationInput, catalog []internal.FormTypeDefinition, preset Preset) *internal.ClassificationResult {
	return NewClassifier(preset, catalog).Classify(input)
}

func (c *Classifier) score(text, filename string, pageNumber *int, def internal.FormTypeDefinition) internal.ComponentScores {
	p := c.preset
	return internal.ComponentScores{
		Keyword:  keywordComponent(text, def.Keywords, p.KeywordMode) * p.KeywordWeight,
		Fields:   fractionPresent(text, def.RequiredFields) * p.FieldWeight,
		Position: positionComponent(pageNumber) * p.PositionWeight,
		Filename: filenameComponent(filename, def.FilenamePatterns) * p.FilenameWeight,
	}
}

func meetsThreshold(score, threshold float64) bool {
	return score+scoreEpsilon >= threshold
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func lowerDefinition(def internal.FormTypeDefinition) internal.FormTypeDefinition {
	def.Keywords = lowerAll(def.Keywords)
	def.RequiredFields = lowerAll(def.RequiredFields)
	def.FilenamePatterns = lowerAll(def.FilenamePatterns)
	return def
}

// lowerAll lowercases phrases and drops blank ones, so they never count
// toward a component's denominator.
func lowerAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, strings.ToLower(v))
	}
	return out
}
