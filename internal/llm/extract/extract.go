// Package extract pulls structured data out of free-form model output.
//
// Two policies exist and the difference is deliberate: generative text
// (scenarios, chat) degrades to fixed placeholders so the UI always has
// something to show, while scoring output fails closed because a
// fabricated score set must never be displayed.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/edumap/selserver/internal/model"
)

// Policy controls what happens when a field cannot be extracted.
type Policy int

const (
	// Placeholder substitutes a fixed "Could not generate a <field>."
	// string for every missing field.
	Placeholder Policy = iota
	// Reject turns any extraction failure into an error.
	Reject
)

var jsonSpanRe = regexp.MustCompile(`(?s)\{.*\}`)

// PlaceholderFor returns the fixed fallback text for a field name.
func PlaceholderFor(field string) string {
	return "Could not generate a " + field + "."
}

// FirstJSON returns the first {...} span in raw, if any.
func FirstJSON(raw string) (string, bool) {
	span := jsonSpanRe.FindString(raw)
	return span, span != ""
}

// StringFields extracts named string fields from raw model output.
// It tries, in order: the first JSON object span, a per-field
// `name: "value"` regex, and finally a line scan for lines mentioning
// the field name. Under the Placeholder policy missing fields are
// filled with PlaceholderFor(name); under Reject the first missing
// field is an error.
func StringFields(raw string, names []string, policy Policy) (map[string]string, error) {
	out := make(map[string]string, len(names))

	if span, ok := FirstJSON(raw); ok {
		var obj map[string]any
		if err := json.Unmarshal([]byte(span), &obj); err == nil {
			for _, name := range names {
				if v, ok := obj[name].(string); ok && v != "" {
					out[name] = v
				}
			}
		}
	}

	for _, name := range names {
		if _, ok := out[name]; ok {
			continue
		}
		if v, ok := fieldByRegex(raw, name); ok {
			out[name] = v
			continue
		}
		if v, ok := fieldByLineScan(raw, name); ok {
			out[name] = v
			continue
		}
		if policy == Reject {
			return nil, fmt.Errorf("field %q not found in model output", name)
		}
		out[name] = PlaceholderFor(name)
	}

	return out, nil
}

func fieldByRegex(raw, name string) (string, bool) {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name) + `[:\s]+"([^"]+)"`)
	if m := re.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	return "", false
}

func fieldByLineScan(raw, name string) (string, bool) {
	stripRe := regexp.MustCompile(`(?i).*` + regexp.QuoteMeta(name) + `.*?:`)
	for _, line := range strings.Split(raw, "\n") {
		if !strings.Contains(strings.ToLower(line), strings.ToLower(name)) {
			continue
		}
		if !strings.Contains(line, ":") {
			continue
		}
		v := strings.TrimSpace(stripRe.ReplaceAllString(line, ""))
		v = strings.Trim(v, `",`)
		if v != "" {
			return v, true
		}
	}
	return "", false
}

// Scenario extracts a generated situation and question. It never fails:
// fields that cannot be located come back as fixed placeholders.
func Scenario(raw string) model.Scenario {
	fields, _ := StringFields(raw, []string{"situation", "question"}, Placeholder)
	return model.Scenario{
		Situation: fields["situation"],
		Question:  fields["question"],
	}
}

// Analysis extracts a full AnalysisResult from model output. This path
// fails closed: if no JSON object is present, the JSON does not parse,
// or any score is missing or outside [1,5], the whole analysis is
// rejected and no partial result is returned.
func Analysis(raw string) (*model.AnalysisResult, error) {
	span, ok := FirstJSON(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(span), &result); err != nil {
		return nil, fmt.Errorf("parse analysis JSON: %w", err)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis: %w", err)
	}
	return &result, nil
}
