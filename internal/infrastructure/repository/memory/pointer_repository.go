package memory

import (
	"context"
	"strings"
	"time"

	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
)

// StaticPointerRepository always points at one configured match. It is used when
// no realtime pointer document is available.
type StaticPointerRepository struct {
	pointer match.Pointer
}

func NewStaticPointerRepository(matchID string) *StaticPointerRepository {
	matchID = strings.TrimSpace(matchID)
	return &StaticPointerRepository{pointer: match.Pointer{
		MatchID:   matchID,
		Exists:    matchID != "",
		UpdatedAt: time.Now().UTC(),
	}}
}

func (r *StaticPointerRepository) Current(_ context.Context) (match.Pointer, error) {
	return r.pointer, nil
}

// Watch emits the configured pointer once and keeps the channel open until ctx ends.
func (r *StaticPointerRepository) Watch(ctx context.Context) (<-chan match.PointerEvent, error) {
	out := make(chan match.PointerEvent, 1)
	out <- match.PointerEvent{Pointer: r.pointer}
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}
