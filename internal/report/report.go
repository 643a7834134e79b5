// Package report renders the audit report of a reconciliation run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parcel-cli/internal/model"
)

// Format renders r as Markdown.
func Format(r *model.Report) string {
	var b strings.Builder

	b.WriteString("# Reconciliation Report\n\n")

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Sources: %d (%d failed)\n", len(r.Sources), failedSources(r))
	fmt.Fprintf(&b, "- Records: %d\n", r.Records)
	fmt.Fprintf(&b, "- Deliberated: %d\n", r.Deliberated)
	fmt.Fprintf(&b, "- Warnings: %d\n\n", len(r.Warnings))

	b.WriteString("## Validation x Deliberation\n\n")
	writeCrossTab(&b, r.CrossTab)
	if r.CrossTab.Suspicious() {
		b.WriteString("\n**Inconsistent combinations found; review the warnings below.**\n")
	}
	b.WriteString("\n")

	for _, s := range r.Sources {
		writeSource(&b, s)
	}

	b.WriteString("## Suspicious Warnings\n")
	suspicious := r.SuspiciousWarnings()
	if len(suspicious) == 0 {
		b.WriteString("None.\n")
	}
	for _, w := range suspicious {
		writeWarning(&b, w)
	}

	return b.String()
}

func writeSource(b *strings.Builder, s model.SourceReport) {
	fmt.Fprintf(b, "## Source: %s\n", s.Source)
	if s.Failed() {
		fmt.Fprintf(b, "FAILED: %s\n\n", s.Error)
	}

	if len(s.Stages) > 0 {
		b.WriteString("\n| Stage | Category | In | Out |\n")
		b.WriteString("|:------|:---------|---:|----:|\n")
		for _, st := range s.Stages {
			fmt.Fprintf(b, "| %s | %s | %d | %d |\n", st.Stage, orDash(string(st.Category)), st.In, st.Out)
		}
	}

	if len(s.Matches) > 0 {
		b.WriteString("\n| Category | Records | Reference | Matched | Distinct codes |\n")
		b.WriteString("|:---------|--------:|----------:|--------:|---------------:|\n")
		for _, m := range s.Matches {
			fmt.Fprintf(b, "| %s | %d | %d | %d | %d |\n",
				orDash(string(m.Category)), m.Records, m.ReferenceRecords, m.Matched, m.DistinctCodes)
		}
	}

	if len(s.Completion) > 0 {
		b.WriteString("\n| Category | Attribute | Reference | From reference | From record | Defaulted |\n")
		b.WriteString("|:---------|:----------|:----------|---------------:|------------:|----------:|\n")
		for _, a := range s.Completion {
			fmt.Fprintf(b, "| %s | %s | %s | %d | %d | %d |\n",
				orDash(string(a.Category)), a.Attribute, orDash(a.ReferenceName),
				a.FromReference, a.FromRecord, a.Defaulted)
		}
	}

	d := s.Deliberation
	if d.Records > 0 {
		b.WriteString("\n")
		fmt.Fprintf(b, "- Deliberation: %d direct, %d via validation code, of %d records\n",
			d.DirectMatches, d.SecondaryMatches, d.Records)
		fmt.Fprintf(b, "- Code overlap: %d shared of %d record codes and %d deliberation codes\n",
			d.Overlap.Intersection, d.Overlap.RecordCodes, d.Overlap.ReferenceCodes)
		b.WriteString("\n")
		writeCrossTab(b, d.CrossTab)
	}

	if len(s.Warnings) > 0 {
		b.WriteString("\n### Warnings\n")
		for _, w := range s.Warnings {
			writeWarning(b, w)
		}
	}
	b.WriteString("\n")
}

func writeCrossTab(b *strings.Builder, c model.CrossTab) {
	b.WriteString("| | Deliberated | Not deliberated |\n")
	b.WriteString("|:--|--:|--:|\n")
	fmt.Fprintf(b, "| Validated | %d | %d |\n", c.ValidatedDeliberated, c.ValidatedNotDeliberated)
	fmt.Fprintf(b, "| Not validated | %d | %d |\n", c.NotValidatedDeliberated, c.NotValidatedNotDeliberated)
}

func writeWarning(b *strings.Builder, w model.Warning) {
	prefix := w.Stage
	if w.Source != "" {
		prefix = w.Source + "/" + w.Stage
	}
	fmt.Fprintf(b, "- [%s] %s: %s", w.Kind, prefix, w.Message)
	if len(w.Samples) > 0 {
		fmt.Fprintf(b, " (e.g. %s)", strings.Join(w.Samples, ", "))
	}
	b.WriteString("\n")
}

func failedSources(r *model.Report) int {
	n := 0
	for _, s := range r.Sources {
		if s.Failed() {
			n++
		}
	}
	return n
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// WriteJSON encodes r as indented JSON.
func WriteJSON(w io.Writer, r *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(r), "report: encode json")
}

// Save writes r to base+".json" and base+".md".
func Save(base string, r *model.Report) error {
	f, err := os.Create(base + ".json")
	if err != nil {
		return eris.Wrapf(err, "report: create %s.json", base)
	}
	if err := WriteJSON(f, r); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "report: close %s.json", base)
	}

	if err := os.WriteFile(base+".md", []byte(Format(r)), 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s.md", base)
	}
	return nil
}
