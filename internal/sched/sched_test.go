package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDayCloser struct {
	calls []time.Time
}

func (f *fakeDayCloser) CloseActivityDay(at time.Time) {
	f.calls = append(f.calls, at)
}

type fakePruner struct {
	cutoffs []time.Time
	n       int64
	err     error
}

func (f *fakePruner) Prune(_ context.Context, before time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, before)
	return f.n, f.err
}

func TestNewSchedulesJobs(t *testing.T) {
	s, err := New(&fakeDayCloser{}, &fakePruner{}, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultRetention, s.retention)

	s.Start()
	s.Stop()
}

func TestNewWithoutJournal(t *testing.T) {
	s, err := New(&fakeDayCloser{}, nil, time.Hour)
	require.NoError(t, err)
	s.Start()
	s.Stop()
}

func TestRollDayInvokesCloser(t *testing.T) {
	days := &fakeDayCloser{}
	s, err := New(days, nil, 0)
	require.NoError(t, err)

	s.rollDay()
	require.Len(t, days.calls, 1)
	assert.WithinDuration(t, time.Now(), days.calls[0], time.Second)
}

func TestPruneJournalUsesRetention(t *testing.T) {
	pruner := &fakePruner{n: 3}
	s, err := New(&fakeDayCloser{}, pruner, 48*time.Hour)
	require.NoError(t, err)

	s.pruneJournal()
	require.Len(t, pruner.cutoffs, 1)
	assert.WithinDuration(t, time.Now().Add(-48*time.Hour), pruner.cutoffs[0], time.Second)
}

func TestPruneJournalSurvivesErrors(t *testing.T) {
	pruner := &fakePruner{err: errors.New("database is locked")}
	s, err := New(&fakeDayCloser{}, pruner, time.Hour)
	require.NoError(t, err)

	// Must not panic; the next run will try again.
	s.pruneJournal()
	assert.Len(t, pruner.cutoffs, 1)
}
