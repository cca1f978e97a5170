package core

import (
	"context"
)

// FolderPager enumerates a remote mail folder newest-first in
// fixed-size slices, fetching only the sender identity of each item.
//
// Paging is by integer offset into the newest-first order. Against a
// live folder that order shifts when new mail arrives mid-scan, so
// items near the cursor can be skipped or seen twice; resume across
// runs is best effort. A stable cursor token (last-seen message ID)
// is the upgrade path if stronger guarantees are ever needed.
type FolderPager interface {
	// Total returns the number of items currently in the folder.
	Total(ctx context.Context) (int, error)

	// NextPage returns up to pageSize items starting at cursor. last
	// is true when the returned page is shorter than pageSize or
	// empty. Errors are classified with TransientError / FatalError;
	// malformed individual items come back as skip-tagged PageItems,
	// never as errors.
	NextPage(ctx context.Context, cursor, pageSize int) (items []PageItem, last bool, err error)

	// Close releases the underlying connection.
	Close() error
}

// CheckpointStore persists scan progress between runs. Load returns
// (nil, nil) when no checkpoint exists; Clear is not an error when
// none does.
type CheckpointStore interface {
	Load(ctx context.Context) (*Checkpoint, error)
	Save(ctx context.Context, cp *Checkpoint) error
	Clear(ctx context.Context) error
}

// ResultStore persists the durable artifacts of completed runs.
type ResultStore interface {
	// LoadCounts returns the cumulative counts of all prior completed
	// runs, or an empty map when there are none.
	LoadCounts(ctx context.Context) (map[string]int, error)

	// SaveCounts overwrites the cumulative counts.
	SaveCounts(ctx context.Context, counts map[string]int) error

	// SaveNewAddresses writes a timestamped export of the addresses
	// first seen this run and returns its location.
	SaveNewAddresses(ctx context.Context, addrs []string) (string, error)
}

// Notifier announces newly-seen addresses after a completed run.
type Notifier interface {
	NotifyNewAddresses(ctx context.Context, addrs []string) error
}

// DomainFilter reports whether an address should be left out of the
// tally. The engine still advances the cursor past filtered items.
type DomainFilter interface {
	Ignored(addr string) bool
}
