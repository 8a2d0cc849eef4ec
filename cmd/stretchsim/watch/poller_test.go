package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/sdk"
)

type fakeSource struct {
	mu        sync.Mutex
	tick      uint64
	statusErr error
	listErr   error
	journal   []models.Transition
	filters   []sdk.TransitionFilter
}

func (f *fakeSource) Status(context.Context) (*models.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &models.StatusResponse{Snapshot: models.Snapshot{Tick: f.tick}}, nil
}

func (f *fakeSource) Transitions(_ context.Context, filter sdk.TransitionFilter) (*models.TransitionListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Transition
	for _, tr := range f.journal {
		if tr.Tick >= filter.FromTick && tr.Tick <= filter.ToTick {
			out = append(out, tr)
		}
	}
	return &models.TransitionListResponse{Transitions: out, Total: len(f.journal)}, nil
}

func (f *fakeSource) advance(ticks uint64, ts ...models.Transition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tick += ticks
	f.journal = append(f.journal, ts...)
}

type report struct {
	to          uint64
	transitions []models.Transition
}

func newTestPoller(src Source, fromStart bool, logger *zap.Logger) (*Poller, *[]report) {
	var reports []report
	p := NewPoller(PollerConfig{
		Source:    src,
		Logger:    logger,
		Interval:  10 * time.Millisecond,
		FromStart: fromStart,
		OnTransitions: func(to uint64, ts []models.Transition) error {
			reports = append(reports, report{to: to, transitions: ts})
			return nil
		},
	})
	return p, &reports
}

func podTransition(tick uint64, to string) models.Transition {
	return models.Transition{Tick: tick, Kind: models.TransitionPodState, Subject: "pod1/site2fa1", To: to}
}

func TestPoller_FirstPollRecordsCurrentTick(t *testing.T) {
	src := &fakeSource{tick: 5, journal: []models.Transition{podTransition(2, "synced")}}
	p, reports := newTestPoller(src, false, nil)
	ctx := context.Background()

	p.Poll(ctx)
	assert.EqualValues(t, 5, p.LastTick())
	assert.Empty(t, *reports)
	assert.Empty(t, src.filters, "the journal is not queried on the first poll")

	src.advance(2, podTransition(7, "paused"))
	p.Poll(ctx)

	require.Len(t, *reports, 1)
	assert.EqualValues(t, 7, (*reports)[0].to)
	assert.Equal(t, []models.Transition{podTransition(7, "paused")}, (*reports)[0].transitions)
	assert.Equal(t, sdk.TransitionFilter{FromTick: 6, ToTick: 7, Limit: maxBatch}, src.filters[0])
}

func TestPoller_FromStart(t *testing.T) {
	src := &fakeSource{tick: 2, journal: []models.Transition{podTransition(1, "baselining"), podTransition(2, "synced")}}
	p, reports := newTestPoller(src, true, nil)

	p.Poll(context.Background())

	require.Len(t, *reports, 1)
	assert.Len(t, (*reports)[0].transitions, 2)
	assert.EqualValues(t, 2, p.LastTick())
}

func TestPoller_NoNewTicks(t *testing.T) {
	src := &fakeSource{tick: 3}
	p, reports := newTestPoller(src, false, nil)
	ctx := context.Background()

	p.Poll(ctx)
	p.Poll(ctx)
	p.Poll(ctx)

	assert.Empty(t, *reports)
	assert.Empty(t, src.filters)
}

func TestPoller_Reset(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	src := &fakeSource{tick: 10}
	p, reports := newTestPoller(src, false, zap.New(core))
	ctx := context.Background()

	p.Poll(ctx)

	src.mu.Lock()
	src.tick = 1
	src.journal = []models.Transition{podTransition(1, "baselining")}
	src.mu.Unlock()
	p.Poll(ctx)

	require.Len(t, *reports, 1)
	assert.EqualValues(t, 1, p.LastTick())
	assert.Equal(t, 1, logs.FilterMessage("simulation was reset").Len())
}

func TestPoller_JournalErrorKeepsPosition(t *testing.T) {
	src := &fakeSource{tick: 4}
	p, reports := newTestPoller(src, false, nil)
	ctx := context.Background()
	p.Poll(ctx)

	src.listErr = sdk.ErrNotFound
	src.advance(3, podTransition(6, "paused"))
	p.Poll(ctx)
	assert.Empty(t, *reports)
	assert.EqualValues(t, 4, p.LastTick())

	src.listErr = nil
	p.Poll(ctx)
	require.Len(t, *reports, 1)
	assert.EqualValues(t, 7, p.LastTick())
}

func TestPoller_Disconnected(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	src := &fakeSource{statusErr: errors.New("connection refused")}
	p, _ := newTestPoller(src, false, zap.New(core))
	ctx := context.Background()

	p.Poll(ctx)
	p.Poll(ctx)
	assert.True(t, p.Disconnected())
	assert.Equal(t, 1, logs.FilterMessage("server unreachable, will keep polling").Len(),
		"only the change is logged")

	src.statusErr = nil
	p.Poll(ctx)
	assert.False(t, p.Disconnected())
	assert.Equal(t, 1, logs.FilterMessage("server reachable again").Len())
}

func TestPoller_ReportErrorRetries(t *testing.T) {
	src := &fakeSource{tick: 1}
	calls := 0
	p := NewPoller(PollerConfig{
		Source: src,
		OnTransitions: func(uint64, []models.Transition) error {
			calls++
			if calls == 1 {
				return errors.New("stdout closed")
			}
			return nil
		},
	})
	ctx := context.Background()
	p.Poll(ctx)

	src.advance(1)
	p.Poll(ctx)
	assert.EqualValues(t, 1, p.LastTick())

	p.Poll(ctx)
	assert.EqualValues(t, 2, p.LastTick())
	assert.Equal(t, 2, calls)
}

func TestPoller_Run(t *testing.T) {
	src := &fakeSource{tick: 0}
	var mu sync.Mutex
	var seen []uint64
	p := NewPoller(PollerConfig{
		Source:   src,
		Interval: 5 * time.Millisecond,
		OnTransitions: func(to uint64, _ []models.Transition) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, to)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// Wait for the first poll to record tick 0 before advancing.
	require.Eventually(t, func() bool {
		p.mu.RLock()
		defer p.mu.RUnlock()
		return p.primed
	}, time.Second, time.Millisecond)
	src.advance(3)

	assert.Eventually(t, func() bool { return p.LastTick() == 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{3}, seen)
}
