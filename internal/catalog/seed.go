package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"wotc/internal"
)

// DefaultDefinitions is the built-in catalog used when no seed file is given.
func DefaultDefinitions() []internal.FormTypeDefinition {
	return []internal.FormTypeDefinition{
		{
			Name:        "8850",
			Description: "Pre-Screening Notice and Certification Request for the Work Opportunity Credit",
			Keywords: []string{
				"8850",
				"pre-screening notice",
				"work opportunity credit",
				"certification request",
				"department of the treasury",
				"internal revenue service",
			},
			RequiredFields:   []string{"job applicant", "social security number", "signature", "date"},
			FilenamePatterns: []string{"8850"},
		},
		{
			Name:        "9061",
			Description: "Individual Characteristics Form Work Opportunity Tax Credit",
			Keywords: []string{
				"9061",
				"individual characteristics form",
				"work opportunity tax credit",
				"wotc",
				"target group",
				"eligibility information",
			},
			RequiredFields:   []string{"employer", "starting wage", "position", "date of birth"},
			FilenamePatterns: []string{"9061", "icf"},
		},
		{
			Name:        "NYYF",
			Description: "New York Youth Jobs Program Youth Certification",
			Keywords: []string{
				"youth certification",
				"new york youth jobs program",
				"department of labor",
				"ny dol",
			},
			RequiredFields:   []string{"date of birth", "address", "signature"},
			FilenamePatterns: []string{"nyyf", "youth"},
		},
	}
}

type seedFile struct {
	FormTypes []internal.FormTypeDefinition `yaml:"form_types"`
}

// LoadFile reads definitions from YAML, either a bare list or a document
// with a top-level form_types list.
func LoadFile(path string) ([]internal.FormTypeDefinition, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var defs []internal.FormTypeDefinition
	if err := yaml.Unmarshal(blob, &defs); err != nil {
		var doc seedFile
		if docErr := yaml.Unmarshal(blob, &doc); docErr != nil {
			return nil, fmt.Errorf("parse %s: %w", path, docErr)
		}
		defs = doc.FormTypes
	}

	out := make([]internal.FormTypeDefinition, 0, len(defs))
	for i, def := range defs {
		def = NormalizeDefinition(def)
		if def.Name == "" {
			return nil, fmt.Errorf("parse %s: form type #%d has no name", path, i+1)
		}
		out = append(out, def)
	}
	return out, nil
}

type SeedResult struct {
	Created int
	Updated int
	Skipped int
}

type SeedService struct {
	store Store
}

func NewSeedService(store Store) *SeedService {
	return &SeedService{store: store}
}

// Seed inserts definitions whose name is not in the catalog yet. With update
// set, existing entries are rewritten in place and keep their ids.
func (s *SeedService) Seed(ctx context.Context, defs []internal.FormTypeDefinition, update bool) (SeedResult, error) {
	var result SeedResult
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		def = NormalizeDefinition(def)
		rules, err := EncodeRules(def)
		if err != nil {
			return result, err
		}

		existing, err := s.store.GetFormTypeByName(def.Name)
		if err != nil {
			return result, err
		}

		switch {
		case existing == nil:
			if _, err := s.store.CreateFormType(def.Name, def.Description, rules); err != nil {
				return result, err
			}
			result.Created++
		case update:
			if _, err := s.store.UpdateFormType(existing.ID, def.Name, def.Description, rules); err != nil {
				return result, err
			}
			result.Updated++
		default:
			result.Skipped++
		}
	}

	log.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Msg("catalog seeded")

	if err := s.store.SetMetadata("catalog.last_seed", time.Now().UTC().Format(time.RFC3339)); err != nil {
		log.Warn().Err(err).Msg("failed to record last seed time")
	}
	return result, nil
}
