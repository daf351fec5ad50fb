package jfuzz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBatchEmitsInSeedOrder(t *testing.T) {
	base := Defaults()
	base.Seed = 100
	var seeds []uint64
	stats, err := GenerateBatch(context.Background(), base, 6, 3, func(p *Program) error {
		seeds = append(seeds, p.Seed)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 6, stats.Generated+stats.Duplicates)
	assert.Len(t, seeds, stats.Generated)
	require.NotEmpty(t, seeds)
	assert.Equal(t, uint64(100), seeds[0])
	for i := 1; i < len(seeds); i++ {
		assert.Less(t, seeds[i-1], seeds[i])
	}
	assert.Positive(t, stats.Bytes)
}

func TestGenerateBatchMatchesGenerate(t *testing.T) {
	base := Defaults()
	base.Seed = 31
	var got []*Program
	_, err := GenerateBatch(context.Background(), base, 2, 0, func(p *Program) error {
		got = append(got, p)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, got)

	single, err := Generate(base)
	require.NoError(t, err)
	assert.Equal(t, single.Source, got[0].Source)
}

func TestGenerateBatchStopsOnEmitError(t *testing.T) {
	boom := errors.New("disk full")
	calls := 0
	_, err := GenerateBatch(context.Background(), Defaults(), 3, 1, func(*Program) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestGenerateBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := GenerateBatch(ctx, Defaults(), 4, 2, func(*Program) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateBatchEmpty(t *testing.T) {
	stats, err := GenerateBatch(context.Background(), Defaults(), 0, 4, func(*Program) error {
		t.Fatal("nothing to emit")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, stats)
}

// eventLog collects generation events and emits in the order they happen.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) Write(b []byte) (int, error) {
	line := string(b)
	if strings.Contains(line, "msg=generate.done") {
		i := strings.Index(line, " seed=")
		seed := strings.Fields(line[i+1:])[0]
		l.add("generated " + strings.TrimPrefix(seed, "seed="))
	}
	return len(b), nil
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func TestGenerateBatchReleasesWindows(t *testing.T) {
	events := &eventLog{}
	base := Defaults()
	base.Seed = 500
	base.Logger = slog.New(slog.NewTextHandler(events, &slog.HandlerOptions{Level: slog.LevelDebug}))

	stats, err := GenerateBatch(context.Background(), base, 6, 1, func(p *Program) error {
		events.add(fmt.Sprintf("emitted %d", p.Seed))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Generated+stats.Duplicates)

	pos := func(e string) int {
		for i, x := range events.events {
			if x == e {
				return i
			}
		}
		return -1
	}
	// one worker: windows of two seeds
	require.NotEqual(t, -1, pos("emitted 500"))
	require.NotEqual(t, -1, pos("generated 502"))
	require.NotEqual(t, -1, pos("generated 505"))
	assert.Less(t, pos("generated 501"), pos("emitted 500"))
	assert.Less(t, pos("emitted 500"), pos("generated 502"))
	assert.Greater(t, pos("generated 505"), pos("generated 503"))
}
