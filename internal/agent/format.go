package agent

import (
	"fmt"
	"strings"

	"ragbase/internal/retrieval"
)

// FormatDocuments renders retrieved passages into the context block the
// response model consumes. Order is preserved exactly as accumulated.
func FormatDocuments(docs []retrieval.Document) string {
	if len(docs) == 0 {
		return "<documents></documents>"
	}

	var sb strings.Builder
	sb.WriteString("<documents>\n")
	for _, doc := range docs {
		fmt.Fprintf(&sb, "<document source=%q title=%q>\n%s\n</document>\n", doc.Source, doc.Title, doc.Text)
	}
	sb.WriteString("</documents>")
	return sb.String()
}
