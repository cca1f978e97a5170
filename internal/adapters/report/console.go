package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mikey/junk-scan/internal/core"
)

// Writer prints a finished scan as a human-readable report.
type Writer struct {
	out io.Writer
}

// NewWriter creates a report writer targeting out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Write prints the frequency table most-frequent first, then the
// addresses first seen this run.
func (w *Writer) Write(res *core.ScanResult) error {
	type row struct {
		addr string
		n    int
	}
	rows := make([]row, 0, len(res.Counts))
	for addr, n := range res.Counts {
		rows = append(rows, row{addr, n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].n != rows[j].n {
			return rows[i].n > rows[j].n
		}
		return rows[i].addr < rows[j].addr
	})

	line := strings.Repeat("=", 60)
	if _, err := fmt.Fprintf(w.out, "\n%s\nFound %d unique email addresses in junk mail\n%s\n\n", line, len(rows), line); err != nil {
		return err
	}
	fmt.Fprintf(w.out, "%-50s %s\n", "Email Address", "Count")
	fmt.Fprintln(w.out, strings.Repeat("-", 60))
	for _, r := range rows {
		fmt.Fprintf(w.out, "%-50s %d\n", r.addr, r.n)
	}

	if len(res.NewAddresses) > 0 {
		fmt.Fprintf(w.out, "\n%d new email(s) found this run:\n", len(res.NewAddresses))
		for _, addr := range res.NewAddresses {
			fmt.Fprintf(w.out, "  - %s\n", addr)
		}
	}

	if res.Outcome != core.OutcomeCompleted {
		fmt.Fprintf(w.out, "\nScan %s after %d messages; progress saved for resume.\n", res.Outcome, res.Processed)
	} else {
		fmt.Fprintf(w.out, "\nTotal messages processed: %d\n", res.Processed)
	}
	return nil
}
