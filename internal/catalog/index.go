package catalog

import (
	"strings"

	"wotc/internal"
)

type Index struct {
	Definitions []internal.FormTypeDefinition
	byID        map[string]internal.FormTypeDefinition
	byName      map[string]internal.FormTypeDefinition
}

func BuildIndex(defs []internal.FormTypeDefinition) *Index {
	idx := &Index{
		Definitions: defs,
		byID:        map[string]internal.FormTypeDefinition{},
		byName:      map[string]internal.FormTypeDefinition{},
	}
	for _, def := range defs {
		if def.ID != "" {
			idx.byID[def.ID] = def
		}
		key := nameKey(def.Name)
		if _, ok := idx.byName[key]; !ok {
			idx.byName[key] = def
		}
	}
	return idx
}

func (i *Index) ByID(id string) (internal.FormTypeDefinition, bool) {
	def, ok := i.byID[id]
	return def, ok
}

// ByName matches case-insensitively and tolerates a "Form " prefix, so
// "form 8850" finds "8850".
func (i *Index) ByName(name string) (internal.FormTypeDefinition, bool) {
	key := nameKey(name)
	if def, ok := i.byName[key]; ok {
		return def, true
	}
	def, ok := i.byName[strings.TrimSpace(strings.TrimPrefix(key, "form"))]
	return def, ok
}

func (i *Index) Names() []string {
	out := make([]string, 0, len(i.Definitions))
	for _, def := range i.Definitions {
		out = append(out, def.Name)
	}
	return out
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
