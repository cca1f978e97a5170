package core

// PageItem is a single folder entry as returned by a FolderPager. An
// entry the server could not deliver intact carries a SkipReason
// instead of a sender; it still occupies one cursor position.
type PageItem struct {
	Sender     string
	SkipReason string
}

// Skipped reports whether the item should be counted as processed
// without contributing to the tally.
func (it PageItem) Skipped() bool {
	return it.SkipReason != ""
}

// Checkpoint is the durable snapshot of an in-progress scan. Processed
// is the number of folder items already folded into EmailCount, which
// makes it the resume cursor.
type Checkpoint struct {
	EmailCount map[string]int `json:"email_count"`
	Processed  int            `json:"processed"`
	Timestamp  int64          `json:"timestamp"`
}

// Outcome classifies how a scan run ended.
type Outcome int

const (
	// OutcomeCompleted means the folder was drained to its end.
	OutcomeCompleted Outcome = iota
	// OutcomeGaveUp means retries were exhausted; progress is saved.
	OutcomeGaveUp
	// OutcomeStopped means the run was cancelled and drained gracefully.
	OutcomeStopped
	// OutcomeAborted means a fatal error terminated the run.
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeGaveUp:
		return "gave-up"
	case OutcomeStopped:
		return "stopped"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ScanResult is what a run hands back to the caller. Counts holds the
// cumulative per-address tally including the baseline the run was
// seeded with; NewAddresses lists, sorted, the addresses whose count
// went from zero to one during this run.
type ScanResult struct {
	Counts       map[string]int
	NewAddresses []string
	Processed    int
	Outcome      Outcome
}
