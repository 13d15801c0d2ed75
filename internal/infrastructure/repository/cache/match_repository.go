package cache

import (
	"context"
	"time"

	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
	basecache "github.com/riskibarqy/cricket-scoreboard/internal/platform/cache"
)

const matchKeyPrefix = "match:id:"

type cachedMatchByID struct {
	value  match.Match
	exists bool
}

// MatchRepository is a read-through, write-through cache in front of a
// document store.
type MatchRepository struct {
	next  match.Repository
	cache *basecache.Store[cachedMatchByID]
}

func NewMatchRepository(next match.Repository, ttl time.Duration) *MatchRepository {
	return &MatchRepository{next: next, cache: basecache.NewStore[cachedMatchByID](ttl)}
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (match.Match, bool, error) {
	cached, err := r.cache.GetOrLoad(ctx, matchKeyPrefix+matchID, func(ctx context.Context) (cachedMatchByID, error) {
		item, exists, err := r.next.GetByID(ctx, matchID)
		if err != nil {
			return cachedMatchByID{}, err
		}
		return cachedMatchByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return match.Match{}, false, err
	}
	return cached.value, cached.exists, nil
}

func (r *MatchRepository) Upsert(ctx context.Context, item match.Match) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		r.cache.Delete(ctx, matchKeyPrefix+item.MatchID)
		return err
	}
	r.cache.Set(ctx, matchKeyPrefix+item.MatchID, cachedMatchByID{value: item, exists: true})
	return nil
}

// Invalidate drops every cached document.
func (r *MatchRepository) Invalidate(ctx context.Context) {
	r.cache.DeletePrefix(ctx, matchKeyPrefix)
}
