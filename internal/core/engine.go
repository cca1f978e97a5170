package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultPageSize is how many items are requested per page.
	DefaultPageSize = 100
	// DefaultPageDelay is the pause between successful pages, kept to
	// stay under the server's throttling radar.
	DefaultPageDelay = time.Second
)

// Engine drives the resumable junk-folder scan: strictly sequential
// offset paging, per-item sender accumulation, periodic checkpoints,
// and bounded retry on throttling. One engine owns one account's
// frequency map for the duration of a run; nothing else writes to it.
type Engine struct {
	pager       FolderPager
	checkpoints CheckpointStore
	results     ResultStore
	retry       *RetryPolicy
	extractor   *Extractor
	filter      DomainFilter
	logger      *zap.Logger

	pageSize  int
	pageDelay time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine creates a scan engine. filter may be nil. A non-positive
// pageSize falls back to DefaultPageSize; pageDelay zero disables the
// inter-page pause and negative falls back to DefaultPageDelay.
func NewEngine(
	pager FolderPager,
	checkpoints CheckpointStore,
	results ResultStore,
	retry *RetryPolicy,
	extractor *Extractor,
	filter DomainFilter,
	logger *zap.Logger,
	pageSize int,
	pageDelay time.Duration,
) *Engine {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageDelay < 0 {
		pageDelay = DefaultPageDelay
	}
	return &Engine{
		pager:       pager,
		checkpoints: checkpoints,
		results:     results,
		retry:       retry,
		extractor:   extractor,
		filter:      filter,
		logger:      logger,
		pageSize:    pageSize,
		pageDelay:   pageDelay,
		sleep:       sleepCtx,
	}
}

// Run executes the scan until the folder is drained, retries are
// exhausted, ctx is cancelled, or a fatal error occurs. The returned
// ScanResult is valid in every case; err is non-nil only for fatal
// failures and persistence failures. Whatever the path out, either
// the checkpoint has been cleared (completed) or a resumable one has
// been written.
func (e *Engine) Run(ctx context.Context) (*ScanResult, error) {
	counts, cursor, err := e.loadBaseline(ctx)
	if err != nil {
		return nil, err
	}

	if total, err := e.pager.Total(ctx); err != nil {
		e.logger.Warn("Could not read folder size", zap.Error(err))
	} else {
		e.logger.Info("Scanning junk folder",
			zap.Int("total", total),
			zap.Int("cursor", cursor))
	}

	newAddrs := make(map[string]struct{})
	attempt := 0

	// First periodic checkpoint failure; carried so a run that loses
	// progress data never reports unqualified success.
	var persistErr error

	for {
		if ctx.Err() != nil {
			return e.drain(counts, newAddrs, cursor, OutcomeStopped, persistErr)
		}

		items, last, err := e.pager.NextPage(ctx, cursor, e.pageSize)
		if err != nil {
			if IsTransient(err) {
				attempt++
				delay, ok := e.retry.NextDelay(attempt)
				if !ok {
					e.logger.Warn("Giving up after repeated throttling",
						zap.Int("attempts", attempt-1),
						zap.Int("cursor", cursor))
					return e.drain(counts, newAddrs, cursor, OutcomeGaveUp, persistErr)
				}
				e.logger.Info("Server busy, backing off",
					zap.Int("attempt", attempt),
					zap.Int("max_attempts", e.retry.MaxAttempts),
					zap.Duration("wait", delay),
					zap.Int("cursor", cursor))
				if err := e.sleep(ctx, delay); err != nil {
					return e.drain(counts, newAddrs, cursor, OutcomeStopped, persistErr)
				}
				continue
			}

			// Fatal or unclassified: save what we have, then surface.
			if saveErr := e.saveCheckpoint(context.Background(), counts, cursor); saveErr != nil {
				e.logger.Error("Failed to write checkpoint during abort", zap.Error(saveErr))
			}
			res := e.result(counts, newAddrs, cursor, OutcomeAborted)
			return res, fmt.Errorf("fetching page at cursor %d: %w", cursor, err)
		}

		attempt = 0

		for _, it := range items {
			cursor++
			if it.Skipped() {
				e.logger.Warn("Skipping unreadable item",
					zap.Int("cursor", cursor),
					zap.String("reason", it.SkipReason))
				continue
			}
			addrs := e.extractor.Extract(it.Sender)
			if len(addrs) == 0 {
				continue
			}
			// A message has one sender; the first match is it.
			addr := strings.ToLower(addrs[0])
			if e.filter != nil && e.filter.Ignored(addr) {
				continue
			}
			counts[addr]++
			if counts[addr] == 1 {
				newAddrs[addr] = struct{}{}
			}
		}

		if len(items) > 0 {
			e.logger.Info("Processed page", zap.Int("processed", cursor))
		}

		if len(items) > 0 && cursor%(2*e.pageSize) == 0 {
			if err := e.saveCheckpoint(ctx, counts, cursor); err != nil {
				e.logger.Error("Failed to write checkpoint", zap.Error(err))
				if persistErr == nil {
					persistErr = fmt.Errorf("writing checkpoint at cursor %d: %w", cursor, err)
				}
			}
		}

		if last {
			return e.finish(ctx, counts, newAddrs, cursor, persistErr)
		}

		if err := e.sleep(ctx, e.pageDelay); err != nil {
			return e.drain(counts, newAddrs, cursor, OutcomeStopped, persistErr)
		}
	}
}

// loadBaseline seeds the run's counts and cursor. An existing
// checkpoint wins over the historical results file; the seed is always
// copied so the stored baseline is never mutated in place.
func (e *Engine) loadBaseline(ctx context.Context) (map[string]int, int, error) {
	cp, err := e.checkpoints.Load(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("loading checkpoint: %w", err)
	}
	if cp != nil {
		e.logger.Info("Resuming from checkpoint",
			zap.Int("processed", cp.Processed),
			zap.Time("saved_at", time.Unix(cp.Timestamp, 0)))
		return copyCounts(cp.EmailCount), cp.Processed, nil
	}

	baseline, err := e.results.LoadCounts(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("loading prior results: %w", err)
	}
	if len(baseline) > 0 {
		e.logger.Info("Seeding from prior results",
			zap.Int("unique_addresses", len(baseline)))
	}
	return copyCounts(baseline), 0, nil
}

// finish is the natural end of the folder: persist merged results,
// export new addresses, and remove the checkpoint.
func (e *Engine) finish(ctx context.Context, counts map[string]int, newAddrs map[string]struct{}, cursor int, persistErr error) (*ScanResult, error) {
	res := e.result(counts, newAddrs, cursor, OutcomeCompleted)

	if err := e.results.SaveCounts(ctx, counts); err != nil {
		return res, fmt.Errorf("saving results: %w", err)
	}
	if len(res.NewAddresses) > 0 {
		path, err := e.results.SaveNewAddresses(ctx, res.NewAddresses)
		if err != nil {
			return res, fmt.Errorf("saving new addresses: %w", err)
		}
		e.logger.Info("Exported new addresses",
			zap.Int("count", len(res.NewAddresses)),
			zap.String("path", path))
	}
	if err := e.checkpoints.Clear(ctx); err != nil {
		return res, fmt.Errorf("clearing checkpoint: %w", err)
	}

	e.logger.Info("Scan complete",
		zap.Int("processed", cursor),
		zap.Int("unique_addresses", len(counts)))
	return res, persistErr
}

// drain is the early-exit path for give-up and cancellation: progress
// must survive, so the checkpoint write happens on a fresh context
// (the run context may already be done).
func (e *Engine) drain(counts map[string]int, newAddrs map[string]struct{}, cursor int, outcome Outcome, persistErr error) (*ScanResult, error) {
	res := e.result(counts, newAddrs, cursor, outcome)
	if err := e.saveCheckpoint(context.Background(), counts, cursor); err != nil {
		return res, fmt.Errorf("writing checkpoint at cursor %d: %w", cursor, err)
	}
	e.logger.Info("Scan suspended, progress saved",
		zap.Stringer("outcome", outcome),
		zap.Int("processed", cursor))
	return res, persistErr
}

func (e *Engine) saveCheckpoint(ctx context.Context, counts map[string]int, cursor int) error {
	return e.checkpoints.Save(ctx, &Checkpoint{
		EmailCount: counts,
		Processed:  cursor,
		Timestamp:  time.Now().Unix(),
	})
}

func (e *Engine) result(counts map[string]int, newAddrs map[string]struct{}, cursor int, outcome Outcome) *ScanResult {
	addrs := make([]string, 0, len(newAddrs))
	for a := range newAddrs {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	return &ScanResult{
		Counts:       counts,
		NewAddresses: addrs,
		Processed:    cursor,
		Outcome:      outcome,
	}
}

func copyCounts(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
