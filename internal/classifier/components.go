package classifier

import "strings"

// keywordComponent returns the unweighted keyword signal in [0,1]. Callers
// pass keywords with blank entries already removed.
func keywordComponent(text string, keywords []string, mode KeywordMode) float64 {
	if len(keywords) == 0 {
		return 0
	}

	hits := 0
	for _, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			continue
		}
		switch mode {
		case KeywordPresence:
			if strings.Contains(text, kw) {
				hits++
			}
		default:
			hits += strings.Count(text, kw)
		}
	}

	ratio := float64(hits) / float64(len(keywords))
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// fractionPresent is the share of phrases found at least once. An empty set
// contributes nothing.
func fractionPresent(text string, phrases []string) float64 {
	if len(phrases) == 0 {
		return 0
	}
	return float64(len(presentPhrases(text, phrases))) / float64(len(phrases))
}

func positionComponent(pageNumber *int) float64 {
	if pageNumber != nil && *pageNumber == 1 {
		return 1
	}
	return 0
}

func filenameComponent(filename string, patterns []string) float64 {
	if filename == "" {
		return 0
	}
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if strings.Contains(filename, p) {
			return 1
		}
	}
	return 0
}

func presentPhrases(text string, phrases []string) []string {
	out := []string{}
	for _, p := range phrases {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if strings.Contains(text, p) {
			out = append(out, p)
		}
	}
	return out
}
