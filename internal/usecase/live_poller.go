package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
	"github.com/riskibarqy/cricket-scoreboard/internal/platform/logging"
)

// LiveMatchSource is what the poller needs from MatchStoreSync.
type LiveMatchSource interface {
	RefreshMatch(ctx context.Context, matchID string) (match.Match, error)
	WatchCurrentMatchID(ctx context.Context) (<-chan CurrentMatchEvent, error)
}

type LivePollerConfig struct {
	LiveInterval time.Duration
	IdleInterval time.Duration
}

// PollerStatus describes what the poller is tracking and how recent refreshes went.
type PollerStatus struct {
	Running             bool         `json:"running"`
	MatchID             string       `json:"matchId,omitempty"`
	Tracking            bool         `json:"tracking"`
	MatchStatus         match.Status `json:"matchStatus,omitempty"`
	Refreshes           int          `json:"refreshes"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	LastError           string       `json:"lastError,omitempty"`
	LastAttempt         time.Time    `json:"lastAttempt"`
	LastSuccess         time.Time    `json:"lastSuccess"`
	NextPoll            time.Time    `json:"nextPoll"`
}

// LivePoller follows the pointer document and keeps the named match fresh.
// Refreshes never overlap: the next one is scheduled only after the previous
// one returns, using the live or idle interval depending on the latest state.
// Tracking ends once the match is completed.
type LivePoller struct {
	source LiveMatchSource
	cfg    LivePollerConfig
	logger *logging.Logger
	now    func() time.Time

	startMu sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	statusMu sync.RWMutex
	status   PollerStatus
}

func NewLivePoller(source LiveMatchSource, cfg LivePollerConfig, logger *logging.Logger) *LivePoller {
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = 30 * time.Second
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LivePoller{
		source: source,
		cfg:    cfg,
		logger: logger.With("component", "live_poller"),
		now:    time.Now,
	}
}

// Start runs the poller in the background until ctx is done or Stop is called.
func (p *LivePoller) Start(ctx context.Context) {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()
}

// Run blocks until ctx is done.
func (p *LivePoller) Run(ctx context.Context) {
	p.Start(ctx)
	<-ctx.Done()
	p.Stop()
}

// Stop cancels the loop and waits for every goroutine it started.
func (p *LivePoller) Stop() {
	p.startMu.Lock()
	cancel := p.cancel
	p.startMu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *LivePoller) Status() PollerStatus {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.status
}

func (p *LivePoller) run(ctx context.Context) {
	p.updateStatus(func(s *PollerStatus) { s.Running = true })
	defer p.updateStatus(func(s *PollerStatus) {
		s.Running = false
		s.Tracking = false
	})
	p.logger.InfoContext(ctx, "live poller started",
		"live_interval", p.cfg.LiveInterval.String(),
		"idle_interval", p.cfg.IdleInterval.String(),
	)

	for {
		events, err := p.source.WatchCurrentMatchID(ctx)
		if err != nil {
			p.logger.WarnContext(ctx, "subscribe to match pointer failed", "error", err)
			p.recordFailure(err)
		} else {
			p.follow(ctx, events)
		}

		if !sleepFor(ctx, p.cfg.IdleInterval) {
			p.logger.InfoContext(ctx, "live poller stopped")
			return
		}
	}
}

// follow switches tracking whenever the pointer names a different match.
func (p *LivePoller) follow(ctx context.Context, events <-chan CurrentMatchEvent) {
	var (
		current   string
		stopTrack context.CancelFunc
		trackDone chan struct{}
	)
	stopTracking := func() {
		if stopTrack == nil {
			return
		}
		stopTrack()
		<-trackDone
		stopTrack, trackDone = nil, nil
	}
	defer stopTracking()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Err != nil {
				p.logger.WarnContext(ctx, "match pointer unavailable", "error", event.Err)
				p.recordFailure(event.Err)
				if errors.Is(event.Err, ErrNotFound) {
					stopTracking()
					current = ""
					p.updateStatus(func(s *PollerStatus) {
						s.MatchID = ""
						s.Tracking = false
						s.MatchStatus = ""
					})
				}
				continue
			}
			if event.MatchID == current {
				continue
			}

			stopTracking()
			current = event.MatchID
			p.logger.InfoContext(ctx, "tracking match", "match_id", current)

			trackCtx, cancel := context.WithCancel(ctx)
			done := make(chan struct{})
			stopTrack, trackDone = cancel, done
			go func(id string) {
				defer close(done)
				p.track(trackCtx, id)
			}(current)
		}
	}
}

func (p *LivePoller) track(ctx context.Context, matchID string) {
	p.updateStatus(func(s *PollerStatus) {
		s.MatchID = matchID
		s.Tracking = true
		s.MatchStatus = ""
	})

	var last match.Status
	for {
		p.updateStatus(func(s *PollerStatus) { s.LastAttempt = p.now() })
		item, err := p.source.RefreshMatch(ctx, matchID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.logger.WarnContext(ctx, "live refresh failed", "match_id", matchID, "error", err)
			p.recordFailure(err)
		} else {
			last = item.Status
			p.recordSuccess(item)
		}

		if last == match.StatusCompleted {
			p.logger.InfoContext(ctx, "match completed, tracking stopped", "match_id", matchID)
			p.updateStatus(func(s *PollerStatus) {
				s.Tracking = false
				s.NextPoll = time.Time{}
			})
			return
		}

		interval := p.intervalFor(last)
		p.updateStatus(func(s *PollerStatus) { s.NextPoll = p.now().Add(interval) })
		if !sleepFor(ctx, interval) {
			return
		}
	}
}

// intervalFor polls fast while live or while the state is still unknown.
func (p *LivePoller) intervalFor(status match.Status) time.Duration {
	if status == match.StatusUpcoming {
		return p.cfg.IdleInterval
	}
	return p.cfg.LiveInterval
}

func (p *LivePoller) recordSuccess(item match.Match) {
	p.updateStatus(func(s *PollerStatus) {
		s.Refreshes++
		s.ConsecutiveFailures = 0
		s.LastError = ""
		s.LastSuccess = p.now()
		s.MatchStatus = item.Status
	})
}

func (p *LivePoller) recordFailure(err error) {
	p.updateStatus(func(s *PollerStatus) {
		s.ConsecutiveFailures++
		s.LastError = err.Error()
	})
}

func (p *LivePoller) updateStatus(fn func(*PollerStatus)) {
	p.statusMu.Lock()
	fn(&p.status)
	p.statusMu.Unlock()
}

func sleepFor(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
