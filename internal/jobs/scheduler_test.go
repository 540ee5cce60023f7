package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStates struct {
	before time.Time
	n      int64
	err    error
}

func (f *fakeStates) PurgeStale(_ context.Context, before time.Time) (int64, error) {
	f.before = before
	return f.n, f.err
}

type fakeLocations struct {
	calls int
}

func (f *fakeLocations) RefreshAllLocations(context.Context) (int64, error) {
	f.calls++
	return 1, nil
}

type purgeCounter struct {
	total int64
}

func (p *purgeCounter) StatesPurged(n int64) { p.total += n }

func TestPurgeStates(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	states := &fakeStates{n: 3}
	obs := &purgeCounter{}

	s := NewScheduler(time.UTC, states, &fakeLocations{}, 24*time.Hour, obs)
	s.now = func() time.Time { return now }

	s.PurgeStates(context.Background())
	assert.Equal(t, now.Add(-24*time.Hour), states.before)
	assert.Equal(t, int64(3), obs.total)

	states.err = errors.New("db down")
	s.PurgeStates(context.Background())
	assert.Equal(t, int64(3), obs.total)
}

func TestPurgeDisabledWithoutTTL(t *testing.T) {
	states := &fakeStates{n: 3}
	s := NewScheduler(nil, states, &fakeLocations{}, 0, nil)

	s.PurgeStates(context.Background())
	assert.True(t, states.before.IsZero())
}

func TestRefreshLocations(t *testing.T) {
	locations := &fakeLocations{}
	s := NewScheduler(time.UTC, &fakeStates{}, locations, time.Hour, nil)

	s.RefreshLocations(context.Background())
	assert.Equal(t, 1, locations.calls)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := NewScheduler(time.UTC, &fakeStates{}, &fakeLocations{}, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("планировщик не остановился")
	}
	assert.Len(t, s.cron.Entries(), 2)
}
