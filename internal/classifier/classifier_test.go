package classifier

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wotc/internal"
)

func intp(v int) *int { return &v }

func def8850() internal.FormTypeDefinition {
	return internal.FormTypeDefinition{
		ID:       "ft-8850",
		Name:     "8850",
		Keywords: []string{"pre-screening notice", "work opportunity credit", "department of the treasury"},
	}
}

func def9061() internal.FormTypeDefinition {
	return internal.FormTypeDefinition{
		ID:   "ft-9061",
		Name: "9061",
		Keywords: []string{
			"9061", "individual characteristics form", "work opportunity tax credit",
			"wotc", "target group", "eligibility information",
		},
		RequiredFields:   []string{"applicant name", "starting wage"},
		FilenamePatterns: []string{"9061", "icf"},
	}
}

const text8850 = "Pre-Screening Notice and Certification Request for the Work Opportunity Credit. Department of the Treasury. Internal Revenue Service."

func TestClassifyEmptyInputs(t *testing.T) {
	catalog := []internal.FormTypeDefinition{def8850(), def9061()}

	for _, preset := range []Preset{Strict, Lenient} {
		assert.Nil(t, Classify(internal.ClassificationInput{Text: ""}, catalog, preset), preset.Name)
		assert.Nil(t, Classify(internal.ClassificationInput{Text: "  \n\t"}, catalog, preset), preset.Name)
		assert.Nil(t, Classify(internal.ClassificationInput{Text: text8850}, nil, preset), preset.Name)
	}
}

func TestClassify8850KeywordsOnly(t *testing.T) {
	res := Classify(internal.ClassificationInput{Text: text8850}, []internal.FormTypeDefinition{def8850()}, Strict)
	require.NotNil(t, res)

	assert.Equal(t, "ft-8850", res.FormTypeID)
	assert.Equal(t, "8850", res.FormTypeName)
	assert.InDelta(t, 0.40, res.ConfidenceScore, 1e-9)
	assert.Equal(t, internal.SourceRules, res.ExtractedData.Source)
	assert.Equal(t, "strict", res.ExtractedData.Preset)
	assert.ElementsMatch(t, def8850().Keywords, res.ExtractedData.MatchedKeywords)
	assert.Empty(t, res.ExtractedData.MatchedFields)
	assert.Nil(t, res.ExtractedData.PageNumber)
	require.NotNil(t, res.ExtractedData.Components)
	assert.InDelta(t, 0.40, res.ExtractedData.Components.Keyword, 1e-9)
	assert.Zero(t, res.ExtractedData.Components.Fields)
	assert.Zero(t, res.ExtractedData.Components.Position)
	assert.Zero(t, res.ExtractedData.Components.Filename)
}

func TestClassifyUnrelatedText(t *testing.T) {
	catalog := []internal.FormTypeDefinition{def8850(), def9061()}
	assert.Nil(t, Classify(internal.ClassificationInput{Text: "random unrelated memo", PageNumber: intp(1)}, catalog, Strict))
	assert.Nil(t, Classify(internal.ClassificationInput{Text: "random unrelated memo"}, catalog, Lenient))
}

func TestClassify9061PartialMatchBothPresets(t *testing.T) {
	catalog := []internal.FormTypeDefinition{def9061()}
	noFields := internal.ClassificationInput{
		Text:       "Individual Characteristics Form. Please answer each target group question.",
		Filename:   "scan_0001.pdf",
		PageNumber: intp(1),
	}

	// strict: 2/6*0.40 + 0.15 = 0.2833
	c := NewClassifier(Strict, catalog)
	assert.InDelta(t, 2.0/6.0*0.40+0.15, c.Score(noFields, def9061()).Total(), 1e-9)
	assert.Nil(t, c.Classify(noFields))

	// lenient: 2/6*0.60 = 0.20, no field matched
	l := NewClassifier(Lenient, catalog)
	assert.InDelta(t, 0.20, l.Score(noFields, def9061()).Total(), 1e-9)
	assert.Nil(t, l.Classify(noFields))

	withField := noFields
	withField.Text += " Applicant name: Jane Doe."

	// lenient: 0.20 + 1/2*0.40 = 0.40
	res := l.Classify(withField)
	require.NotNil(t, res)
	assert.InDelta(t, 0.40, res.ConfidenceScore, 1e-9)
	assert.Equal(t, []string{"applicant name"}, res.ExtractedData.MatchedFields)
	assert.Zero(t, res.ExtractedData.Components.Position)

	// strict: 0.1333 + 0.15 + 0.15 = 0.4333
	res = c.Classify(withField)
	require.NotNil(t, res)
	assert.InDelta(t, 2.0/6.0*0.40+0.15+0.15, res.ConfidenceScore, 1e-9)
	assert.Equal(t, 1, *res.ExtractedData.PageNumber)
	assert.Equal(t, "scan_0001.pdf", res.ExtractedData.Filename)
}

func TestClassifyTieKeepsCatalogOrder(t *testing.T) {
	a := def8850()
	a.ID, a.Name = "a", "A"
	b := def8850()
	b.ID, b.Name = "b", "B"

	res := Classify(internal.ClassificationInput{Text: text8850}, []internal.FormTypeDefinition{a, b}, Strict)
	require.NotNil(t, res)
	assert.Equal(t, "a", res.FormTypeID)

	res = Classify(internal.ClassificationInput{Text: text8850}, []internal.FormTypeDefinition{b, a}, Strict)
	require.NotNil(t, res)
	assert.Equal(t, "b", res.FormTypeID)
}

func TestClassifyPicksHighestScore(t *testing.T) {
	weak := internal.FormTypeDefinition{ID: "weak", Name: "weak", Keywords: []string{"department of the treasury", "nothing here"}}
	strong := def8850()

	input := internal.ClassificationInput{Text: text8850, Filename: "Form-8850.pdf"}
	strong.FilenamePatterns = []string{"8850"}

	res := Classify(input, []internal.FormTypeDefinition{weak, strong}, Strict)
	require.NotNil(t, res)
	assert.Equal(t, "ft-8850", res.FormTypeID)
	assert.InDelta(t, 0.55, res.ConfidenceScore, 1e-9)
}

func TestClassifyIsDeterministic(t *testing.T) {
	catalog := []internal.FormTypeDefinition{def9061(), def8850()}
	input := internal.ClassificationInput{Text: text8850 + " wotc target group", Filename: "icf.pdf", PageNumber: intp(1)}

	c := NewClassifier(Strict, catalog)
	first := c.Classify(input)
	second := c.Classify(input)
	assert.Equal(t, first, second)
	assert.Equal(t, first, Classify(input, catalog, Strict))
}

func TestClassifierSharedAcrossGoroutines(t *testing.T) {
	catalog := []internal.FormTypeDefinition{def9061(), def8850()}
	input := internal.ClassificationInput{Text: text8850 + " wotc target group", Filename: "icf.pdf", PageNumber: intp(1)}
	c := NewClassifier(Strict, catalog)
	want := c.Classify(input)
	require.NotNil(t, want)

	const workers = 8
	results := make([]*internal.ClassificationResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				results[i] = c.Classify(input)
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestBlankPhrasesDoNotDiluteScore(t *testing.T) {
	def := def8850()
	def.Keywords = append([]string{"", "  "}, def.Keywords...)
	def.RequiredFields = []string{"signature", " "}

	scores := NewClassifier(Strict, nil).Score(internal.ClassificationInput{Text: text8850 + " Signature"}, def)
	assert.InDelta(t, 0.40, scores.Keyword, 1e-9)
	assert.InDelta(t, 0.30, scores.Fields, 1e-9)

	res := Classify(internal.ClassificationInput{Text: text8850}, []internal.FormTypeDefinition{def}, Strict)
	require.NotNil(t, res)
	assert.InDelta(t, 0.40, res.ConfidenceScore, 1e-9)
}

func TestKeywordComponentMonotonic(t *testing.T) {
	def := def9061()
	c := NewClassifier(Strict, nil)

	prev := -1.0
	text := "individual characteristics form"
	for i := 0; i < 10; i++ {
		score := c.Score(internal.ClassificationInput{Text: text}, def).Keyword
		assert.GreaterOrEqual(t, score, prev)
		assert.LessOrEqual(t, score, Strict.KeywordWeight+1e-12)
		prev = score
		text += " wotc"
	}
	assert.InDelta(t, Strict.KeywordWeight, prev, 1e-9)
}

func TestKeywordOccurrencesVersusPresence(t *testing.T) {
	text := "wotc wotc wotc"
	kws := []string{"wotc", "target group", "9061"}

	assert.InDelta(t, 1.0, keywordComponent(text, kws, KeywordOccurrences), 1e-9)
	assert.InDelta(t, 1.0/3.0, keywordComponent(text, kws, KeywordPresence), 1e-9)
}

func TestThresholdBoundary(t *testing.T) {
	assert.True(t, meetsThreshold(0.40, Strict.Threshold))
	assert.True(t, meetsThreshold(0.1+0.15+0.15, Strict.Threshold))
	assert.False(t, meetsThreshold(0.399999, Strict.Threshold))
	assert.True(t, meetsThreshold(0.30, Lenient.Threshold))
	assert.False(t, meetsThreshold(0.299999, Lenient.Threshold))
}

func TestClassifyThresholdWithFloatSum(t *testing.T) {
	// 1 of 4 keywords (0.10) + page 1 (0.15) + filename (0.15) sums to 0.40.
	def := internal.FormTypeDefinition{
		ID: "nyyf", Name: "NYYF",
		Keywords:         []string{"youth certification", "we are your dol", "new york youth jobs program", "ny dol"},
		FilenamePatterns: []string{"nyyf"},
	}
	res := Classify(internal.ClassificationInput{Text: "Youth Certification", Filename: "NYYF_jane.pdf", PageNumber: intp(1)}, []internal.FormTypeDefinition{def}, Strict)
	require.NotNil(t, res)
	assert.InDelta(t, 0.40, res.ConfidenceScore, 1e-9)

	res = Classify(internal.ClassificationInput{Text: "Youth Certification", Filename: "NYYF_jane.pdf", PageNumber: intp(2)}, []internal.FormTypeDefinition{def}, Strict)
	assert.Nil(t, res)
}

func TestMalformedDefinitionsScoreZero(t *testing.T) {
	catalog := []internal.FormTypeDefinition{
		{ID: "empty", Name: "empty"},
		{ID: "blank", Name: "blank", Keywords: []string{"", "  "}, RequiredFields: []string{""}, FilenamePatterns: []string{""}},
	}
	input := internal.ClassificationInput{Text: text8850, Filename: "anything.pdf"}

	for _, preset := range []Preset{Strict, Lenient} {
		c := NewClassifier(preset, catalog)
		for _, def := range catalog {
			assert.Zero(t, c.Score(input, def).Total(), def.Name)
		}
		assert.Nil(t, c.Classify(input))
	}
}

func TestEmptyRequiredFieldsContributeNothing(t *testing.T) {
	def := def8850()
	def.RequiredFields = nil
	scores := NewClassifier(Lenient, nil).Score(internal.ClassificationInput{Text: text8850}, def)
	assert.InDelta(t, 0.60, scores.Keyword, 1e-9)
	assert.Zero(t, scores.Fields)
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	def := def8850()
	def.Keywords = []string{"PRE-SCREENING NOTICE", "Work Opportunity Credit", "Department Of The Treasury"}
	def.FilenamePatterns = []string{"F8850"}

	res := Classify(internal.ClassificationInput{Text: strings.ToUpper(text8850), Filename: "scan-f8850.PDF"}, []internal.FormTypeDefinition{def}, Strict)
	require.NotNil(t, res)
	assert.InDelta(t, 0.55, res.ConfidenceScore, 1e-9)
}

func TestPresetByName(t *testing.T) {
	p, err := PresetByName("")
	require.NoError(t, err)
	assert.Equal(t, Strict, p)

	p, err = PresetByName(" Lenient ")
	require.NoError(t, err)
	assert.Equal(t, Lenient, p)

	_, err = PresetByName("fuzzy")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestPresetWeightsSumToOne(t *testing.T) {
	for _, p := range []Preset{Strict, Lenient} {
		assert.InDelta(t, 1.0, p.KeywordWeight+p.FieldWeight+p.PositionWeight+p.FilenameWeight, 1e-9, p.Name)
	}
}
