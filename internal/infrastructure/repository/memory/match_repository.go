package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
)

type MatchRepository struct {
	mu      sync.RWMutex
	matches map[string]match.Match
}

func NewMatchRepository(seed ...match.Match) *MatchRepository {
	matches := make(map[string]match.Match, len(seed))
	for _, item := range seed {
		matches[item.MatchID] = item
	}
	return &MatchRepository{matches: matches}
}

func (r *MatchRepository) GetByID(_ context.Context, matchID string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.matches[matchID]
	return item, ok, nil
}

func (r *MatchRepository) Upsert(_ context.Context, item match.Match) error {
	r.mu.Lock()
	r.matches[item.MatchID] = item
	r.mu.Unlock()
	return nil
}
