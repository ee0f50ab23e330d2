package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"wotc/internal/util"
)

var ErrMalformedResponse = errors.New("malformed llm response")

var reFencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

type Analysis struct {
	FormType   string         `json:"formType"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata"`
}

// CleanJSON strips a markdown fence around the payload, or anything outside
// the outermost braces.
func CleanJSON(response string) string {
	if m := reFencedJSON.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	trimmed := strings.TrimSpace(response)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}

func ParseAnalysis(response string) (Analysis, error) {
	var out Analysis
	if err := json.Unmarshal([]byte(CleanJSON(response)), &out); err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	out.FormType = strings.TrimSpace(out.FormType)
	if out.FormType == "" {
		return Analysis{}, fmt.Errorf("%w: missing formType", ErrMalformedResponse)
	}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	return out, nil
}

const redacted = "[REDACTED]"

var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"2006-01-02",
	"2006/01/02",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	time.RFC3339,
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatDate(value string) string {
	if t, ok := parseDate(value); ok {
		return t.Format("01/02/2006")
	}
	return value
}

// NormalizeMetadata folds the field aliases models tend to return onto one
// shape and formats names, state, phone and dates. An SSN value never
// survives normalization.
func NormalizeMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}

	if name, ok := out["applicantName"].(map[string]any); ok {
		if first, ok := name["firstName"].(string); ok {
			out["firstName"] = first
		}
		if last, ok := name["lastName"].(string); ok {
			out["lastName"] = last
		}
		delete(out, "applicantName")
	}
	for _, key := range []string{"firstName", "lastName", "county"} {
		if s, ok := out[key].(string); ok && s != "" {
			out[key] = util.CapitalizeWords(s)
		}
	}

	if city, ok := out["city"].(string); ok && city != "" {
		if strings.EqualFold(city, "usa") {
			out["city"] = "USA"
		} else {
			out["city"] = util.CapitalizeWords(city)
		}
	}

	renameString(out, "stateCode", "state")
	if state, ok := out["state"].(string); ok {
		out["state"] = strings.ToUpper(strings.TrimSpace(state))
	}

	renameString(out, "mainPhone", "phoneNumber")
	if phone, ok := out["phoneNumber"].(string); ok && phone != "" {
		out["phoneNumber"] = util.FormatPhone(phone)
	}

	renameString(out, "homeAddress", "address")

	renameString(out, "birthDate", "dateOfBirth")
	if dob, ok := out["dateOfBirth"].(string); ok && dob != "" {
		out["dateOfBirth"] = formatDate(dob)
	}

	for _, key := range []string{"ssn", "socialSecurityNumber"} {
		if isPresent(out[key]) {
			out["ssn"] = redacted
		}
	}
	delete(out, "socialSecurityNumber")

	return out
}

func renameString(m map[string]any, from, to string) {
	v, ok := m[from]
	if !ok {
		return
	}
	delete(m, from)
	if s, ok := v.(string); ok && s != "" {
		m[to] = s
	}
}

func isPresent(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case bool:
		return t
	default:
		return true
	}
}
