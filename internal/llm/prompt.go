package llm

import (
	"fmt"
	"strings"

	"wotc/internal"
)

const maxPromptTextChars = 12000

// BuildPrompt asks for a single JSON object naming one of the catalog's form
// types. Each definition is described by its phrase sets so that the model
// sees the same evidence the rules use.
func BuildPrompt(text string, defs []internal.FormTypeDefinition) string {
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, fmt.Sprintf("%q", def.Name))
	}

	var b strings.Builder
	b.WriteString("You are a form analysis API that only responds with valid JSON. ")
	b.WriteString("Analyze this page of a Work Opportunity Tax Credit document and determine its form type.\n\n")
	b.WriteString("IMPORTANT: Your response must be a valid JSON object with this exact structure:\n")
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"formType\": %s,\n", strings.Join(names, " | "))
	b.WriteString("  \"confidence\": number between 0 and 1,\n")
	b.WriteString("  \"metadata\": {\n")
	b.WriteString("    \"firstName\", \"lastName\", \"dateOfBirth\" (MM/DD/YYYY), \"ssn\", \"address\", \"city\",\n")
	b.WriteString("    \"state\", \"zip\", \"phoneNumber\", \"signature\", \"date\", \"startingWage\" when present\n")
	b.WriteString("  }\n")
	b.WriteString("}\n\n")
	b.WriteString("If a Social Security Number is present, return \"[REDACTED]\" instead of the number.\n\n")

	b.WriteString("Form types:\n")
	for i, def := range defs {
		fmt.Fprintf(&b, "%d. %s", i+1, def.Name)
		if def.Description != "" {
			fmt.Fprintf(&b, " (%s)", def.Description)
		}
		b.WriteString("\n")
		if len(def.Keywords) > 0 {
			fmt.Fprintf(&b, "   Typical phrases: %s\n", strings.Join(def.Keywords, "; "))
		}
		if len(def.RequiredFields) > 0 {
			fmt.Fprintf(&b, "   Expected fields: %s\n", strings.Join(def.RequiredFields, "; "))
		}
	}

	b.WriteString("\nIf the page matches none of these form types, use the closest one with a confidence below 0.3.\n\n")
	b.WriteString("Form text:\n")
	b.WriteString(truncate(text, maxPromptTextChars))
	return b.String()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
