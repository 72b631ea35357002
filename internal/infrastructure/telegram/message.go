package telegram

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	"ReviewAspects/internal/domain"
)

func formatReport(r domain.RunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>ABSA pass %s</b> <code>%s</code>\n", html.EscapeString(string(r.Status)), html.EscapeString(shortRunID(r.RunID)))
	fmt.Fprintf(&b, "source: %d, already labeled: %d, new: %d\n", r.SourceRows, r.AlreadyLabeled, r.DeltaRows)
	fmt.Fprintf(&b, "rated: %d, loaded: %d\n", r.LabeledRows, r.LoadedRows)
	if d := r.Duration(); d > 0 {
		fmt.Fprintf(&b, "took: %s\n", d.Round(time.Millisecond))
	}
	if r.Artifact != "" {
		fmt.Fprintf(&b, "artifact: <code>%s</code>\n", html.EscapeString(filepath.Base(r.Artifact)))
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "error: <pre>%s</pre>\n", html.EscapeString(r.Error))
	}

	return strings.TrimRight(b.String(), "\n")
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
