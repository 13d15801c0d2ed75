package firestore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const pointerField = "matchId"

// PointerRepository reads the single document naming the match on display.
type PointerRepository struct {
	doc *firestore.DocumentRef
}

func NewPointerRepository(client *firestore.Client, collection, document string) *PointerRepository {
	return &PointerRepository{doc: client.Collection(collection).Doc(document)}
}

func (r *PointerRepository) Current(ctx context.Context) (match.Pointer, error) {
	snap, err := r.doc.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return match.Pointer{}, nil
		}
		return match.Pointer{}, fmt.Errorf("get pointer %s: %w", r.doc.Path, err)
	}
	return pointerFromSnapshot(snap), nil
}

// Watch subscribes to realtime updates of the pointer document. A failed
// subscription is reported once as an event and then the channel closes.
func (r *PointerRepository) Watch(ctx context.Context) (<-chan match.PointerEvent, error) {
	iter := r.doc.Snapshots(ctx)
	out := make(chan match.PointerEvent)

	go func() {
		defer close(out)
		defer iter.Stop()

		for {
			snap, err := iter.Next()
			if ctx.Err() != nil {
				return
			}

			var event match.PointerEvent
			if err != nil {
				event.Err = fmt.Errorf("watch pointer %s: %w", r.doc.Path, err)
			} else {
				event.Pointer = pointerFromSnapshot(snap)
			}

			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	return out, nil
}

func pointerFromSnapshot(snap *firestore.DocumentSnapshot) match.Pointer {
	if snap == nil || !snap.Exists() {
		return match.Pointer{}
	}
	pointer := match.Pointer{Exists: true, UpdatedAt: snap.UpdateTime}
	if value, err := snap.DataAt(pointerField); err == nil {
		pointer.MatchID = matchIDFromValue(value)
	}
	return pointer
}

// matchIDFromValue accepts ids stored as text or as numbers.
func matchIDFromValue(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
