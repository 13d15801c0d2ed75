package match

import (
	"context"
	"time"
)

// Repository stores normalized matches keyed by match id.
type Repository interface {
	GetByID(ctx context.Context, matchID string) (Match, bool, error)
	Upsert(ctx context.Context, item Match) error
}

// Pointer is the realtime document naming the match currently on display.
type Pointer struct {
	MatchID   string
	Exists    bool
	UpdatedAt time.Time
}

// PointerEvent is one observation of the pointer document. Err is set when the
// subscription itself failed.
type PointerEvent struct {
	Pointer Pointer
	Err     error
}

// PointerRepository reads and observes the pointer document.
type PointerRepository interface {
	Current(ctx context.Context) (Pointer, error)
	// Watch emits the current pointer and every change after it. The channel is
	// closed once ctx is done or the subscription ends.
	Watch(ctx context.Context) (<-chan PointerEvent, error)
}
