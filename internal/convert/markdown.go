package convert

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/notas-reader/internal/ocr"
)

// RenderMarkdown joins normalized page texts. Multi-page documents get one
// "## Página N" heading per page; empty pages keep their heading so numbering
// matches the source.
func RenderMarkdown(pages []string) string {
	norm := make([]string, len(pages))
	nonEmpty := 0
	for i, p := range pages {
		norm[i] = ocr.Normalize(p)
		if norm[i] != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return ""
	}
	if len(norm) == 1 {
		return norm[0]
	}

	var b strings.Builder
	for i, p := range norm {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("## Página ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("\n\n")
		b.WriteString(p)
	}
	return strings.TrimRight(b.String(), "\n")
}
