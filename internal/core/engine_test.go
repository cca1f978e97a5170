package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePager struct {
	items    []PageItem
	failures map[int][]error
	onPage   func(cursor int)
}

func (p *fakePager) Total(context.Context) (int, error) {
	return len(p.items), nil
}

func (p *fakePager) NextPage(_ context.Context, cursor, pageSize int) ([]PageItem, bool, error) {
	if p.onPage != nil {
		p.onPage(cursor)
	}
	if errs := p.failures[cursor]; len(errs) > 0 {
		p.failures[cursor] = errs[1:]
		return nil, false, errs[0]
	}
	end := cursor + pageSize
	if end > len(p.items) {
		end = len(p.items)
	}
	page := p.items[cursor:end]
	return page, len(page) < pageSize, nil
}

func (p *fakePager) Close() error { return nil }

type memStore struct {
	cp      *Checkpoint
	saves   int
	clears  int
	saveErr error
	counts  map[string]int
	exports [][]string
}

func (s *memStore) Load(context.Context) (*Checkpoint, error) {
	if s.cp == nil {
		return nil, nil
	}
	return &Checkpoint{
		EmailCount: copyCounts(s.cp.EmailCount),
		Processed:  s.cp.Processed,
		Timestamp:  s.cp.Timestamp,
	}, nil
}

func (s *memStore) Save(_ context.Context, cp *Checkpoint) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.cp = &Checkpoint{
		EmailCount: copyCounts(cp.EmailCount),
		Processed:  cp.Processed,
		Timestamp:  cp.Timestamp,
	}
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.clears++
	s.cp = nil
	return nil
}

func (s *memStore) LoadCounts(context.Context) (map[string]int, error) {
	if s.counts == nil {
		return map[string]int{}, nil
	}
	return copyCounts(s.counts), nil
}

func (s *memStore) SaveCounts(_ context.Context, counts map[string]int) error {
	s.counts = copyCounts(counts)
	return nil
}

func (s *memStore) SaveNewAddresses(_ context.Context, addrs []string) (string, error) {
	s.exports = append(s.exports, append([]string(nil), addrs...))
	return "export", nil
}

func newTestEngine(pager FolderPager, st *memStore) *Engine {
	return NewEngine(
		pager,
		st,
		st,
		NewRetryPolicy(5, time.Millisecond),
		NewExtractor(),
		nil,
		zap.NewNop(),
		100,
		0,
	)
}

// fixtureItems builds n items cycling through n/per distinct senders,
// so each address ends up with count per.
func fixtureItems(n, distinct int) []PageItem {
	items := make([]PageItem, n)
	for i := range items {
		items[i] = PageItem{Sender: fmt.Sprintf("Sender %d <sender%03d@example.com>", i%distinct, i%distinct)}
	}
	return items
}

func TestRunEmptyFolder(t *testing.T) {
	st := &memStore{}
	res, err := newTestEngine(&fakePager{}, st).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Empty(t, res.Counts)
	assert.Empty(t, res.NewAddresses)
	assert.Zero(t, res.Processed)
	assert.Zero(t, st.saves, "no checkpoint should be written for an empty folder")
	assert.Equal(t, 1, st.clears)
	assert.Nil(t, st.cp)
}

func TestRunTransientRetryMidScan(t *testing.T) {
	pager := &fakePager{
		items: fixtureItems(250, 50),
		failures: map[int][]error{
			100: {&TransientError{Err: errors.New("server busy")}},
		},
	}
	st := &memStore{}

	res, err := newTestEngine(pager, st).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 250, res.Processed)

	require.Len(t, res.Counts, 50)
	for addr, n := range res.Counts {
		assert.Equal(t, 5, n, "address %s double- or under-counted", addr)
	}

	assert.Equal(t, 1, st.saves, "one periodic checkpoint at cursor 200")
	assert.Nil(t, st.cp, "checkpoint cleared on completion")
	assert.Equal(t, st.counts, res.Counts)
}

func TestRunGivesUpAfterMaxRetries(t *testing.T) {
	busy := func() []error {
		errs := make([]error, 6)
		for i := range errs {
			errs[i] = &TransientError{Err: errors.New("server busy")}
		}
		return errs
	}

	pager := &fakePager{
		items:    fixtureItems(250, 50),
		failures: map[int][]error{100: busy()},
	}
	st := &memStore{}

	res, err := newTestEngine(pager, st).Run(context.Background())

	require.NoError(t, err, "give-up is a reported outcome, not an error")
	assert.Equal(t, OutcomeGaveUp, res.Outcome)
	assert.Equal(t, 100, res.Processed)
	require.NotNil(t, st.cp, "resumable checkpoint must survive a give-up")
	assert.Equal(t, 100, st.cp.Processed)
}

func TestRunSuccessResetsRetryStreak(t *testing.T) {
	// Two separate streaks of 4 transient failures: 8 failures total,
	// but never more than MaxAttempts in a row, so the scan completes.
	streak := func() []error {
		errs := make([]error, 4)
		for i := range errs {
			errs[i] = &TransientError{Err: errors.New("server busy")}
		}
		return errs
	}

	pager := &fakePager{
		items:    fixtureItems(250, 50),
		failures: map[int][]error{0: streak(), 100: streak()},
	}
	st := &memStore{}

	res, err := newTestEngine(pager, st).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 250, res.Processed)
}

func TestRunResumeMatchesUninterrupted(t *testing.T) {
	items := fixtureItems(250, 50)

	// Uninterrupted reference run.
	refStore := &memStore{}
	refRes, err := newTestEngine(&fakePager{items: items}, refStore).Run(context.Background())
	require.NoError(t, err)

	// Interrupted run: give up at cursor 100, then resume to the end.
	busy := make([]error, 6)
	for i := range busy {
		busy[i] = &TransientError{Err: errors.New("server busy")}
	}
	st := &memStore{}
	firstRes, err := newTestEngine(&fakePager{items: items, failures: map[int][]error{100: busy}}, st).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeGaveUp, firstRes.Outcome)
	require.NotNil(t, st.cp)

	secondRes, err := newTestEngine(&fakePager{items: items}, st).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, secondRes.Outcome)

	assert.Equal(t, refRes.Counts, secondRes.Counts,
		"resumed run must neither drop nor double count")
	assert.Equal(t, refRes.Processed, secondRes.Processed)
}

func TestRunSkipsMalformedItem(t *testing.T) {
	items := fixtureItems(50, 50)
	items[36] = PageItem{SkipReason: "truncated envelope"}
	st := &memStore{}

	res, err := newTestEngine(&fakePager{items: items}, st).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 50, res.Processed, "skipped item still advances the cursor")
	assert.Len(t, res.Counts, 49)
	assert.NotContains(t, res.Counts, "sender036@example.com")
}

func TestRunNewAddressesAgainstBaseline(t *testing.T) {
	st := &memStore{counts: map[string]int{"old@example.com": 2}}
	pager := &fakePager{items: []PageItem{
		{Sender: "old@example.com"},
		{Sender: "new@example.com"},
		{Sender: "new@example.com"},
	}}

	res, err := newTestEngine(pager, st).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"new@example.com"}, res.NewAddresses)
	assert.Equal(t, 3, res.Counts["old@example.com"])
	assert.Equal(t, 2, res.Counts["new@example.com"])
	require.Len(t, st.exports, 1)
	assert.Equal(t, []string{"new@example.com"}, st.exports[0])
}

func TestRunCheckpointBeatsHistoricalBaseline(t *testing.T) {
	st := &memStore{
		cp: &Checkpoint{
			EmailCount: map[string]int{"cp@example.com": 1},
			Processed:  100,
			Timestamp:  time.Now().Unix(),
		},
		counts: map[string]int{"hist@example.com": 7},
	}
	pager := &fakePager{items: fixtureItems(250, 50)}

	res, err := newTestEngine(pager, st).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 250, res.Processed)
	assert.Contains(t, res.Counts, "cp@example.com")
	assert.NotContains(t, res.Counts, "hist@example.com",
		"checkpoint seed must win over the historical results file")
}

func TestRunCountsNeverDecrease(t *testing.T) {
	st := &memStore{counts: map[string]int{"sender000@example.com": 3}}
	pager := &fakePager{items: fixtureItems(250, 50)}

	res, err := newTestEngine(pager, st).Run(context.Background())

	require.NoError(t, err)
	for addr, baseline := range map[string]int{"sender000@example.com": 3} {
		assert.GreaterOrEqual(t, res.Counts[addr], baseline)
	}
	for _, n := range res.Counts {
		assert.Positive(t, n)
	}
}

func TestRunCancellationDrainsGracefully(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pager := &fakePager{items: fixtureItems(250, 50)}
	pager.onPage = func(cursor int) {
		if cursor == 100 {
			cancel()
		}
	}
	st := &memStore{}

	res, err := newTestEngine(pager, st).Run(ctx)

	require.NoError(t, err, "graceful stop is not a failure")
	assert.Equal(t, OutcomeStopped, res.Outcome)
	assert.Equal(t, 200, res.Processed, "in-flight page completes before draining")
	require.NotNil(t, st.cp)
	assert.Equal(t, 200, st.cp.Processed)
}

func TestRunFatalAbortsWithCheckpoint(t *testing.T) {
	pager := &fakePager{
		items:    fixtureItems(250, 50),
		failures: map[int][]error{100: {&FatalError{Err: errors.New("AUTHENTICATIONFAILED")}}},
	}
	st := &memStore{}

	res, err := newTestEngine(pager, st).Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cursor 100", "fatal error must carry position context")
	assert.Equal(t, OutcomeAborted, res.Outcome)
	require.NotNil(t, st.cp)
	assert.Equal(t, 100, st.cp.Processed)
}

func TestRunPersistenceFailureIsLoud(t *testing.T) {
	st := &memStore{saveErr: errors.New("disk full")}
	pager := &fakePager{items: fixtureItems(400, 50)}

	res, err := newTestEngine(pager, st).Run(context.Background())

	require.Error(t, err, "a run that lost checkpoint data must not claim clean success")
	assert.Contains(t, err.Error(), "checkpoint")
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 400, res.Processed)
}
