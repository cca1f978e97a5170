package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/junk-scan/internal/core"
)

func TestWriteSortsMostFrequentFirst(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.Write(&core.ScanResult{
		Counts: map[string]int{
			"rare@example.com":   1,
			"common@example.com": 9,
			"mid@example.com":    4,
		},
		Processed: 14,
		Outcome:   core.OutcomeCompleted,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Found 3 unique email addresses")
	assert.Contains(t, out, "Total messages processed: 14")

	common := strings.Index(out, "common@example.com")
	mid := strings.Index(out, "mid@example.com")
	rare := strings.Index(out, "rare@example.com")
	assert.True(t, common < mid && mid < rare, "rows must be ordered by count descending")
}

func TestWriteListsNewAddresses(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.Write(&core.ScanResult{
		Counts:       map[string]int{"fresh@example.com": 1},
		NewAddresses: []string{"fresh@example.com"},
		Processed:    1,
		Outcome:      core.OutcomeCompleted,
	})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "1 new email(s) found this run:")
	assert.Contains(t, buf.String(), "  - fresh@example.com")
}

func TestWriteMentionsSuspendedRun(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.Write(&core.ScanResult{
		Counts:    map[string]int{"a@example.com": 2},
		Processed: 200,
		Outcome:   core.OutcomeGaveUp,
	})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "progress saved for resume")
}
