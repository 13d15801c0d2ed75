package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
	"github.com/riskibarqy/cricket-scoreboard/internal/platform/logging"
)

// MatchFetcher is the orchestrator surface the store sync depends on.
type MatchFetcher interface {
	FetchMatchDetails(ctx context.Context, matchID string) (match.Match, error)
	RefreshMatch(ctx context.Context, matchID string) (match.Match, error)
}

type MatchStoreSyncConfig struct {
	// StaleAfter marks stored unfinished matches as stale, after which
	// GetMatch refetches them from the feed. The zero value turns staleness
	// off: any stored copy, live or not, is served as is and the feed is only
	// called on a store miss or by RefreshMatch.
	StaleAfter    time.Duration
	LookupWorkers int
}

// StoredMatches is the result of a batch lookup. Missing keeps request order.
type StoredMatches struct {
	Items   []match.Match
	Missing []string
}

// CurrentMatchEvent is one resolved observation of the pointer document.
type CurrentMatchEvent struct {
	MatchID string
	Err     error
}

// MatchStoreSync keeps the document store in step with the orchestrator and
// resolves the pointer document to a match id.
type MatchStoreSync struct {
	fetcher  MatchFetcher
	store    match.Repository
	pointers match.PointerRepository
	cfg      MatchStoreSyncConfig
	logger   *logging.Logger
	now      func() time.Time
}

func NewMatchStoreSync(
	fetcher MatchFetcher,
	store match.Repository,
	pointers match.PointerRepository,
	cfg MatchStoreSyncConfig,
	logger *logging.Logger,
) *MatchStoreSync {
	if cfg.LookupWorkers <= 0 {
		cfg.LookupWorkers = 4
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchStoreSync{
		fetcher:  fetcher,
		store:    store,
		pointers: pointers,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// GetMatch serves a stored match when it is fresh and otherwise fetches and
// writes the result back. A stale stored copy is returned if the fetch fails.
func (s *MatchStoreSync) GetMatch(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchStoreSync.GetMatch")
	defer span.End()

	id := match.NormalizeID(matchID)
	if id == "" {
		return match.Match{}, invalidMatchID(matchID)
	}

	stored, found, err := s.store.GetByID(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "read stored match failed", "match_id", id, "error", err)
		found = false
	}
	if found && !s.isStale(stored) {
		return stored, nil
	}

	fetched, err := s.fetcher.FetchMatchDetails(ctx, id)
	if err != nil {
		if found {
			s.logger.WarnContext(ctx, "serving stale stored match", "match_id", id, "fetched_at", stored.FetchedAt, "error", err)
			return stored, nil
		}
		return match.Match{}, err
	}

	s.writeBack(ctx, fetched, id)
	return fetched, nil
}

// RefreshMatch always goes to the orchestrator and stores the result.
func (s *MatchStoreSync) RefreshMatch(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchStoreSync.RefreshMatch")
	defer span.End()

	fetched, err := s.fetcher.RefreshMatch(ctx, matchID)
	if err != nil {
		return match.Match{}, err
	}
	s.writeBack(ctx, fetched, match.NormalizeID(matchID))
	return fetched, nil
}

// GetStoredMatches reads several stored matches concurrently without touching
// the upstream.
func (s *MatchStoreSync) GetStoredMatches(ctx context.Context, matchIDs []string) (StoredMatches, error) {
	ids := make([]string, 0, len(matchIDs))
	seen := make(map[string]struct{}, len(matchIDs))
	for _, raw := range matchIDs {
		id := match.NormalizeID(raw)
		if id == "" {
			return StoredMatches{}, invalidMatchID(raw)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return StoredMatches{Items: []match.Match{}, Missing: []string{}}, nil
	}

	type lookup struct {
		item  match.Match
		found bool
		err   error
	}
	rows := make([]lookup, len(ids))

	pool, err := ants.NewPool(min(s.cfg.LookupWorkers, len(ids)))
	if err != nil {
		return StoredMatches{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	var submitErr error
	for i, id := range ids {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			item, found, err := s.store.GetByID(ctx, id)
			rows[i] = lookup{item: item, found: found, err: err}
		}); err != nil {
			workers.Done()
			submitErr = fmt.Errorf("submit lookup to worker pool: %w", err)
			break
		}
	}
	workers.Wait()
	if submitErr != nil {
		return StoredMatches{}, submitErr
	}

	out := StoredMatches{Items: make([]match.Match, 0, len(ids)), Missing: []string{}}
	for i, row := range rows {
		if row.err != nil {
			return StoredMatches{}, fmt.Errorf("get stored match %s: %w", ids[i], row.err)
		}
		if !row.found {
			out.Missing = append(out.Missing, ids[i])
			continue
		}
		out.Items = append(out.Items, row.item)
	}
	return out, nil
}

// CurrentMatchID reads the pointer document once.
func (s *MatchStoreSync) CurrentMatchID(ctx context.Context) (string, error) {
	pointer, err := s.pointers.Current(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: read match pointer: %v", ErrDependencyUnavailable, err)
	}
	return resolvePointer(pointer)
}

// CurrentMatch resolves the pointer and returns that match.
func (s *MatchStoreSync) CurrentMatch(ctx context.Context) (match.Match, error) {
	id, err := s.CurrentMatchID(ctx)
	if err != nil {
		return match.Match{}, err
	}
	return s.GetMatch(ctx, id)
}

// WatchCurrentMatchID maps pointer events to match ids. The returned channel is
// closed when ctx is done or the subscription ends.
func (s *MatchStoreSync) WatchCurrentMatchID(ctx context.Context) (<-chan CurrentMatchEvent, error) {
	events, err := s.pointers.Watch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: watch match pointer: %v", ErrDependencyUnavailable, err)
	}

	out := make(chan CurrentMatchEvent)
	go func() {
		defer close(out)
		for event := range events {
			resolved := CurrentMatchEvent{}
			if event.Err != nil {
				resolved.Err = fmt.Errorf("%w: match pointer subscription: %v", ErrDependencyUnavailable, event.Err)
			} else {
				resolved.MatchID, resolved.Err = resolvePointer(event.Pointer)
			}

			select {
			case out <- resolved:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func resolvePointer(pointer match.Pointer) (string, error) {
	if !pointer.Exists {
		return "", ErrPointerMissing
	}
	id := strings.TrimSpace(pointer.MatchID)
	if id == "" {
		return "", ErrPointerEmpty
	}
	return id, nil
}

func (s *MatchStoreSync) isStale(item match.Match) bool {
	if s.cfg.StaleAfter <= 0 || item.IsCompleted() {
		return false
	}
	return s.now().Sub(item.FetchedAt) > s.cfg.StaleAfter
}

// writeBack stores under the requested id. Failures are logged and ignored.
func (s *MatchStoreSync) writeBack(ctx context.Context, item match.Match, requestedID string) {
	if requestedID != "" {
		item.MatchID = requestedID
	}
	if err := s.store.Upsert(ctx, item); err != nil {
		s.logger.WarnContext(ctx, "store match failed", "match_id", item.MatchID, "error", err)
	}
}
