package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
	"github.com/riskibarqy/cricket-scoreboard/internal/platform/cache"
	"github.com/riskibarqy/cricket-scoreboard/internal/platform/logging"
	"github.com/riskibarqy/cricket-scoreboard/internal/platform/resilience"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MatchFeedProvider performs a single upstream request for one match.
type MatchFeedProvider interface {
	FetchMatchPayload(ctx context.Context, matchID string) (match.RawPayload, error)
}

type MatchServiceConfig struct {
	MaxRetries     int
	RetryBackoff   time.Duration
	AttemptTimeout time.Duration
	CacheTTL       time.Duration
}

func DefaultMatchServiceConfig() MatchServiceConfig {
	return MatchServiceConfig{
		MaxRetries:     3,
		RetryBackoff:   time.Second,
		AttemptTimeout: 10 * time.Second,
		CacheTTL:       30 * time.Second,
	}
}

type cachedMatch struct {
	requestedID string
	match       match.Match
}

// MatchService fetches, normalizes and caches match data. Concurrent callers
// for the same id share one fetch; fetches for different ids run one at a time.
// A shared fetch is not tied to any one caller: it stops when its own budget
// runs out or when every caller waiting on it has gone.
type MatchService struct {
	provider   MatchFeedProvider
	normalizer *Normalizer
	cache      *cache.Slot[cachedMatch]
	flight     resilience.Group[match.Match]
	fetchSlot  chan struct{}
	cfg        MatchServiceConfig
	logger     *logging.Logger
	now        func() time.Time
	wait       func(ctx context.Context, d time.Duration) error
}

func NewMatchService(provider MatchFeedProvider, normalizer *Normalizer, cfg MatchServiceConfig, logger *logging.Logger) *MatchService {
	defaults := DefaultMatchServiceConfig()
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = defaults.RetryBackoff
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaults.AttemptTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if normalizer == nil {
		normalizer = NewNormalizer()
	}
	if logger == nil {
		logger = logging.Default()
	}

	s := &MatchService{
		provider:   provider,
		normalizer: normalizer,
		fetchSlot:  make(chan struct{}, 1),
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		wait:       resilience.SleepContext,
	}
	s.cache = cache.NewSlot[cachedMatch](cfg.CacheTTL).WithClock(func() time.Time { return s.now() })
	return s
}

// FetchMatchDetails returns the normalized match, serving from cache while the
// entry for the same id is fresh.
func (s *MatchService) FetchMatchDetails(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.FetchMatchDetails")
	defer span.End()

	id := match.NormalizeID(matchID)
	if id == "" {
		return match.Match{}, invalidMatchID(matchID)
	}
	span.SetAttributes(attribute.String("match.id", id))

	if cached, ok := s.cached(id); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	out, err := s.load(ctx, id, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

// RefreshMatch skips the cache read but still shares in-flight fetches and
// stores the result.
func (s *MatchService) RefreshMatch(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.RefreshMatch")
	defer span.End()

	id := match.NormalizeID(matchID)
	if id == "" {
		return match.Match{}, invalidMatchID(matchID)
	}
	return s.load(ctx, id, false)
}

func (s *MatchService) ClearCache() {
	s.cache.Clear()
}

// CachedAt reports when the cached entry was produced. Zero when empty.
func (s *MatchService) CachedAt() time.Time {
	return s.cache.FetchedAt()
}

func (s *MatchService) cached(id string) (match.Match, bool) {
	entry, ok := s.cache.Get()
	if !ok || entry.requestedID != id {
		return match.Match{}, false
	}
	return entry.match, true
}

func (s *MatchService) load(ctx context.Context, id string, useCache bool) (match.Match, error) {
	out, err, shared := s.flight.DoContext(ctx, id, func(ctx context.Context) (match.Match, error) {
		ctx, cancel := context.WithTimeout(ctx, s.fetchBudget())
		defer cancel()

		select {
		case s.fetchSlot <- struct{}{}:
		case <-ctx.Done():
			return match.Match{}, asUpstreamError(ctx.Err())
		}
		defer func() { <-s.fetchSlot }()

		if useCache {
			if cached, ok := s.cached(id); ok {
				return cached, nil
			}
		}
		return s.fetch(ctx, id)
	})
	if shared {
		s.logger.DebugContext(ctx, "joined in-flight match fetch", "match_id", id)
	}
	if err != nil {
		// DoContext hands back the bare ctx error when this caller stops waiting.
		return match.Match{}, asUpstreamError(err)
	}
	return out, nil
}

// fetchBudget bounds a detached fetch: every attempt timing out plus every
// backoff between them.
func (s *MatchService) fetchBudget() time.Duration {
	n := time.Duration(s.cfg.MaxRetries)
	return n*s.cfg.AttemptTimeout + n*(n-1)/2*s.cfg.RetryBackoff
}

func (s *MatchService) fetch(ctx context.Context, id string) (match.Match, error) {
	policy := resilience.RetryPolicy{
		Attempts: s.cfg.MaxRetries,
		Backoff:  s.cfg.RetryBackoff,
		Wait:     s.wait,
	}

	var out match.Match
	err := resilience.Retry(ctx, policy, func(ctx context.Context, attempt int) error {
		normalized, err := s.attempt(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "match fetch attempt failed",
				"match_id", id,
				"attempt", attempt,
				"max_attempts", policy.Attempts,
				"error", err,
			)
			return err
		}
		out = normalized
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			upstream := asUpstreamError(ctxErr)
			upstream.Err = err
			return match.Match{}, upstream
		}
		upstream := asUpstreamError(err)
		s.logger.ErrorContext(ctx, "match fetch exhausted retries",
			"match_id", id,
			"status", upstream.Status,
			"code", upstream.Code,
			"error", err,
		)
		return match.Match{}, upstream
	}

	points, basis := CalculatePoints(out)
	if basis == PointsUnknownWinner {
		s.logger.WarnContext(ctx, "winner does not match either team, scoring as no result",
			"match_id", id,
			"winning_team_id", out.Result.WinningTeamID,
			"team1_id", out.Teams[0].TeamID,
			"team2_id", out.Teams[1].TeamID,
		)
	}
	out.Points = points
	out.FetchedAt = s.now().UTC()

	s.cache.Set(cachedMatch{requestedID: id, match: out})
	return out, nil
}

func (s *MatchService) attempt(ctx context.Context, id string) (match.Match, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()

	payload, err := s.provider.FetchMatchPayload(attemptCtx, id)
	if err != nil {
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return match.Match{}, &UpstreamError{
				Status:  http.StatusGatewayTimeout,
				Code:    CodeTimeout,
				Message: "upstream request timed out",
				Err:     err,
			}
		}
		return match.Match{}, err
	}

	return s.normalizer.Normalize(payload, id)
}
