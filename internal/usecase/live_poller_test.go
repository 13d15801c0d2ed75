package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
)

type scriptedSource struct {
	events   chan CurrentMatchEvent
	statuses []match.Status

	mu       sync.Mutex
	calls    map[string]int
	inFlight atomic.Int32
	overlap  atomic.Bool
	refresh  chan string
}

func newScriptedSource(statuses ...match.Status) *scriptedSource {
	return &scriptedSource{
		events:   make(chan CurrentMatchEvent, 4),
		statuses: statuses,
		calls:    make(map[string]int),
		refresh:  make(chan string, 64),
	}
}

func (s *scriptedSource) WatchCurrentMatchID(ctx context.Context) (<-chan CurrentMatchEvent, error) {
	out := make(chan CurrentMatchEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-s.events:
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *scriptedSource) RefreshMatch(_ context.Context, matchID string) (match.Match, error) {
	if s.inFlight.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.inFlight.Add(-1)
	time.Sleep(2 * time.Millisecond)

	s.mu.Lock()
	call := s.calls[matchID]
	s.calls[matchID]++
	s.mu.Unlock()

	select {
	case s.refresh <- matchID:
	default:
	}

	status := match.StatusLive
	if call < len(s.statuses) {
		status = s.statuses[call]
	} else if len(s.statuses) > 0 {
		status = s.statuses[len(s.statuses)-1]
	}
	return match.Match{MatchID: matchID, Status: status}, nil
}

func (s *scriptedSource) callsFor(matchID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[matchID]
}

func waitRefresh(t *testing.T, src *scriptedSource, want string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-src.refresh:
			if got == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for refresh of %s", want)
		}
	}
}

func TestLivePoller_StopsTrackingWhenCompleted(t *testing.T) {
	t.Parallel()

	src := newScriptedSource(match.StatusLive, match.StatusLive, match.StatusCompleted)
	p := NewLivePoller(src, LivePollerConfig{LiveInterval: 5 * time.Millisecond, IdleInterval: time.Hour}, nil)
	p.Start(context.Background())
	defer p.Stop()

	src.events <- CurrentMatchEvent{MatchID: "74648"}
	for i := 0; i < 3; i++ {
		waitRefresh(t, src, "74648")
	}

	deadline := time.Now().Add(time.Second)
	for p.Status().Tracking && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(30 * time.Millisecond)

	status := p.Status()
	if status.Tracking || status.MatchStatus != match.StatusCompleted {
		t.Fatalf("expected tracking to stop on completion, got %+v", status)
	}
	if got := src.callsFor("74648"); got != 3 {
		t.Fatalf("expected exactly 3 refreshes, got %d", got)
	}
	if src.overlap.Load() {
		t.Fatalf("refreshes overlapped")
	}
}

func TestLivePoller_UsesIdleIntervalForUpcoming(t *testing.T) {
	t.Parallel()

	src := newScriptedSource(match.StatusUpcoming)
	p := NewLivePoller(src, LivePollerConfig{LiveInterval: time.Millisecond, IdleInterval: time.Hour}, nil)
	p.Start(context.Background())
	defer p.Stop()

	src.events <- CurrentMatchEvent{MatchID: "1"}
	waitRefresh(t, src, "1")
	time.Sleep(30 * time.Millisecond)

	if got := src.callsFor("1"); got != 1 {
		t.Fatalf("upcoming match should wait the idle interval, got %d refreshes", got)
	}
	status := p.Status()
	if !status.Tracking || status.NextPoll.Sub(status.LastSuccess) < 59*time.Minute {
		t.Fatalf("expected idle schedule, got %+v", status)
	}
}

func TestLivePoller_SwitchesMatchOnPointerChange(t *testing.T) {
	t.Parallel()

	src := newScriptedSource(match.StatusLive)
	p := NewLivePoller(src, LivePollerConfig{LiveInterval: time.Hour, IdleInterval: time.Hour}, nil)
	p.Start(context.Background())
	defer p.Stop()

	src.events <- CurrentMatchEvent{MatchID: "1"}
	waitRefresh(t, src, "1")
	src.events <- CurrentMatchEvent{MatchID: "1"}
	src.events <- CurrentMatchEvent{MatchID: "2"}
	waitRefresh(t, src, "2")

	if got := src.callsFor("1"); got != 1 {
		t.Fatalf("repeated pointer must not restart tracking, got %d refreshes", got)
	}
	if status := p.Status(); status.MatchID != "2" {
		t.Fatalf("expected to track match 2, got %+v", status)
	}
}

func TestLivePoller_MissingPointerStopsTracking(t *testing.T) {
	t.Parallel()

	src := newScriptedSource(match.StatusLive)
	p := NewLivePoller(src, LivePollerConfig{LiveInterval: time.Hour, IdleInterval: time.Hour}, nil)
	p.Start(context.Background())
	defer p.Stop()

	src.events <- CurrentMatchEvent{MatchID: "1"}
	waitRefresh(t, src, "1")
	src.events <- CurrentMatchEvent{Err: ErrPointerMissing}

	deadline := time.Now().Add(time.Second)
	for p.Status().Tracking && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	status := p.Status()
	if status.Tracking || status.MatchID != "" || status.ConsecutiveFailures != 1 {
		t.Fatalf("expected tracking cleared, got %+v", status)
	}
	if !errors.Is(ErrPointerMissing, ErrNotFound) {
		t.Fatalf("pointer errors must map to not found")
	}
}

func TestLivePoller_StopEndsGoroutines(t *testing.T) {
	t.Parallel()

	src := newScriptedSource(match.StatusLive)
	p := NewLivePoller(src, LivePollerConfig{LiveInterval: time.Millisecond, IdleInterval: time.Hour}, nil)
	p.Start(context.Background())

	src.events <- CurrentMatchEvent{MatchID: "1"}
	waitRefresh(t, src, "1")

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("Stop did not return")
	}
	if p.Status().Running {
		t.Fatalf("expected poller to report stopped")
	}
}
