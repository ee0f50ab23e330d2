package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"wotc/internal"
	"wotc/internal/util"
)

// Rules is the stored shape of a form type's identification rules.
type Rules struct {
	Keywords         []string `json:"keywords"`
	RequiredFields   []string `json:"required_fields"`
	FilenamePatterns []string `json:"filename_patterns"`
}

// Store is the slice of storage the catalog needs.
type Store interface {
	ListFormTypes() ([]internal.FormTypeRecord, error)
	GetFormTypeByName(name string) (*internal.FormTypeRecord, error)
	CreateFormType(name, description, rulesJSON string) (internal.FormTypeRecord, error)
	UpdateFormType(id, name, description, rulesJSON string) (internal.FormTypeRecord, error)
	SetMetadata(key, value string) error
}

// DecodeRules reads loosely typed rules. Missing keys, non-array values and
// non-string entries are ignored rather than rejected.
func DecodeRules(raw map[string]any) Rules {
	return Rules{
		Keywords:         toStringSlice(raw["keywords"]),
		RequiredFields:   toStringSlice(raw["required_fields"]),
		FilenamePatterns: toStringSlice(raw["filename_patterns"]),
	}
}

func EncodeRules(def internal.FormTypeDefinition) (string, error) {
	blob, err := json.Marshal(Rules{
		Keywords:         nonNil(def.Keywords),
		RequiredFields:   nonNil(def.RequiredFields),
		FilenamePatterns: nonNil(def.FilenamePatterns),
	})
	if err != nil {
		return "", err
	}
	return string(blob), nil
}

// NormalizeDefinition trims, lowercases and dedupes every phrase set,
// keeping first-seen order.
func NormalizeDefinition(def internal.FormTypeDefinition) internal.FormTypeDefinition {
	def.Name = strings.TrimSpace(def.Name)
	def.Description = strings.TrimSpace(def.Description)
	def.Keywords = util.NormalizePhrases(def.Keywords)
	def.RequiredFields = util.NormalizePhrases(def.RequiredFields)
	def.FilenamePatterns = util.NormalizePhrases(def.FilenamePatterns)
	return def
}

func FromRecord(rec internal.FormTypeRecord) (internal.FormTypeDefinition, error) {
	raw := map[string]any{}
	if strings.TrimSpace(rec.RulesJSON) != "" {
		if err := json.Unmarshal([]byte(rec.RulesJSON), &raw); err != nil {
			return internal.FormTypeDefinition{}, fmt.Errorf("form type %s: decode identification rules: %w", rec.Name, err)
		}
	}
	rules := DecodeRules(raw)
	return NormalizeDefinition(internal.FormTypeDefinition{
		ID:               rec.ID,
		Name:             rec.Name,
		Description:      rec.Description,
		Keywords:         rules.Keywords,
		RequiredFields:   rules.RequiredFields,
		FilenamePatterns: rules.FilenamePatterns,
	}), nil
}

// Load reads the whole catalog from storage in classification order.
func Load(store Store) ([]internal.FormTypeDefinition, error) {
	records, err := store.ListFormTypes()
	if err != nil {
		return nil, err
	}
	out := make([]internal.FormTypeDefinition, 0, len(records))
	for _, rec := range records {
		def, err := FromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}

func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
