package classifier

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownPreset = errors.New("unknown classifier preset")

// KeywordMode selects how the keyword component is measured.
type KeywordMode int

const (
	// KeywordOccurrences sums every occurrence of every keyword, capped at one
	// hit per keyword on average.
	KeywordOccurrences KeywordMode = iota
	// KeywordPresence counts each keyword at most once.
	KeywordPresence
)

// Preset is a named weighting scheme. Weights of a preset add up to 1.
type Preset struct {
	Name           string
	KeywordWeight  float64
	FieldWeight    float64
	PositionWeight float64
	FilenameWeight float64
	KeywordMode    KeywordMode
	Threshold      float64
}

// Strict uses all four signals and is meant for per-page classification of
// stored attachments, where filename and page position are known.
var Strict = Preset{
	Name:           "strict",
	KeywordWeight:  0.40,
	FieldWeight:    0.30,
	PositionWeight: 0.15,
	FilenameWeight: 0.15,
	KeywordMode:    KeywordOccurrences,
	Threshold:      0.40,
}

// Lenient only looks at the text and is meant for bulk or interactive
// extraction where filename and position signals are unavailable.
var Lenient = Preset{
	Name:          "lenient",
	KeywordWeight: 0.60,
	FieldWeight:   0.40,
	KeywordMode:   KeywordPresence,
	Threshold:     0.30,
}

func PresetByName(name string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Strict.Name:
		return Strict, nil
	case Lenient.Name:
		return Lenient, nil
	default:
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
}
