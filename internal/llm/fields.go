package llm

import (
	"regexp"
	"strings"
)

// Field is one labeled value read back from an extraction answer.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

var reLabeledLine = regexp.MustCompile(`^\s*(?:[-*•]\s*)?(?:\*\*)?([^:*]+?)(?:\*\*)?\s*:\s*(.*?)\s*$`)

// ParseLabeledFields reads "- Label: value" lines for the requested labels.
// The result always has one entry per label, in prompt order; labels missing
// from the answer get an empty value. Matching ignores case and surrounding
// markdown emphasis. Only presentation and export use this; runs keep the raw text.
func ParseLabeledFields(answer string) []Field {
	found := make(map[string]string, len(fieldLabels))
	for _, line := range strings.Split(answer, "\n") {
		m := reLabeledLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		label := canonicalLabel(m[1])
		if label == "" {
			continue
		}
		if _, seen := found[label]; !seen {
			found[label] = strings.Trim(m[2], "* ")
		}
	}

	out := make([]Field, len(fieldLabels))
	for i, label := range fieldLabels {
		out[i] = Field{Label: label, Value: found[label]}
	}
	return out
}

func canonicalLabel(s string) string {
	s = strings.TrimSpace(s)
	for _, label := range fieldLabels {
		if strings.EqualFold(s, label) {
			return label
		}
	}
	return ""
}
