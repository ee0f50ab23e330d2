package llm

import (
	"strings"
	"time"

	"wotc/internal"
)

type requirement struct {
	field string
	label string
}

var commonRequirements = []requirement{
	{"firstName", "First Name"},
	{"lastName", "Last Name"},
	{"dateOfBirth", "Date of Birth"},
	{"ssn", "Social Security Number"},
}

// ValidateMetadata reports which facts a form of the given type is still
// missing. now anchors the NYYF age check.
func ValidateMetadata(formType string, metadata map[string]any, now time.Time) internal.Validation {
	v := internal.Validation{MissingFields: []string{}, Suggestions: []string{}}
	missing := func(label, suggestion string) {
		v.MissingFields = append(v.MissingFields, label)
		v.Suggestions = append(v.Suggestions, suggestion)
	}

	for _, r := range commonRequirements {
		if !isPresent(metadata[r.field]) {
			missing(r.label, "Please provide your "+strings.ToLower(r.label))
		}
	}

	switch strings.ToUpper(strings.TrimSpace(formType)) {
	case "NYYF":
		if dob, ok := metadata["dateOfBirth"].(string); ok {
			if born, ok := parseDate(dob); ok {
				if age := ageAt(born, now); age < 16 || age > 24 {
					missing("Age Eligibility", "Applicant must be between 16 and 24 years old for the New York Youth Jobs Program")
				}
			}
		}
		if state, ok := metadata["state"].(string); ok && state != "" && !strings.EqualFold(state, "NY") {
			missing("State Eligibility", "Applicant must be a New York State resident for the New York Youth Jobs Program")
		}
	case "8850":
		if !isPresent(metadata["signature"]) {
			missing("Signature", "Please sign the form under penalties of perjury statement")
		}
		if !isPresent(metadata["date"]) {
			missing("Signature Date", "Please provide the date you signed the form")
		}
	case "9061":
		if !isPresent(metadata["startingWage"]) {
			missing("Starting Wage", "Please provide the starting wage per hour")
		}
	}

	v.IsComplete = len(v.MissingFields) == 0
	return v
}

func ageAt(born, now time.Time) int {
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	return age
}
