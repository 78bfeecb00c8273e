package teststubs

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

// StubCollector is a test double for collectors.Collector.
type StubCollector struct {
	LeagueID      games.League
	Live          []games.Snapshot
	Schedule      []games.Snapshot
	Err           error
	ScheduleErr   error
	Panic         bool
	LiveCalls     atomic.Int32
	ScheduleCalls atomic.Int32
	Notify        chan struct{}

	mu         sync.Mutex
	dates      []string
	notifyOnce sync.Once
	// Block, when set, holds FetchLive until it is closed or ctx ends.
	Block chan struct{}
}

func (s *StubCollector) League() games.League {
	return s.LeagueID
}

func (s *StubCollector) Provider() string {
	return "stub"
}

// FetchLive returns configured live games and error while tracking calls.
func (s *StubCollector) FetchLive(ctx context.Context, date string) ([]games.Snapshot, error) {
	s.track(date)
	s.LiveCalls.Add(1)
	if s.Panic {
		panic("stub collector panic")
	}
	if s.Block != nil {
		select {
		case <-s.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return copySnapshots(s.Live), s.Err
}

// FetchSchedule returns configured scheduled games.
func (s *StubCollector) FetchSchedule(ctx context.Context, date string) ([]games.Snapshot, error) {
	_ = ctx
	s.track(date)
	s.ScheduleCalls.Add(1)
	return copySnapshots(s.Schedule), s.ScheduleErr
}

// Dates returns every date requested so far.
func (s *StubCollector) Dates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.dates))
	copy(out, s.dates)
	return out
}

func (s *StubCollector) track(date string) {
	s.mu.Lock()
	s.dates = append(s.dates, date)
	s.mu.Unlock()
	if s.Notify != nil {
		s.notifyOnce.Do(func() { close(s.Notify) })
	}
}

func copySnapshots(in []games.Snapshot) []games.Snapshot {
	if in == nil {
		return nil
	}
	out := make([]games.Snapshot, len(in))
	copy(out, in)
	return out
}

// StubPublisher records published snapshots.
type StubPublisher struct {
	mu        sync.Mutex
	Published []games.Snapshot
	Err       error
}

func (p *StubPublisher) Publish(ctx context.Context, snap games.Snapshot) error {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Published = append(p.Published, snap)
	return nil
}

// Count returns how many snapshots were published.
func (p *StubPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Published)
}

// FailingStore wraps upserts and fails for the listed game ids.
type FailingStore struct {
	Inner interface {
		Upsert(ctx context.Context, snap games.Snapshot) error
		QueryActive(ctx context.Context, league games.League, from, to string) ([]games.Snapshot, error)
		QueryAll(ctx context.Context, league games.League) ([]games.Snapshot, error)
	}
	FailIDs  map[string]error
	QueryErr error
}

func (f *FailingStore) Upsert(ctx context.Context, snap games.Snapshot) error {
	if err, ok := f.FailIDs[snap.GameID]; ok {
		return err
	}
	return f.Inner.Upsert(ctx, snap)
}

func (f *FailingStore) QueryActive(ctx context.Context, league games.League, from, to string) ([]games.Snapshot, error) {
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	return f.Inner.QueryActive(ctx, league, from, to)
}

func (f *FailingStore) QueryAll(ctx context.Context, league games.League) ([]games.Snapshot, error) {
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	return f.Inner.QueryAll(ctx, league)
}
