package firestore

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MatchRepository keeps one normalized match per document, keyed by match id.
type MatchRepository struct {
	client     *firestore.Client
	collection string
}

func NewMatchRepository(client *firestore.Client, collection string) *MatchRepository {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = "matchCache"
	}
	return &MatchRepository{client: client, collection: collection}
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (match.Match, bool, error) {
	snap, err := r.client.Collection(r.collection).Doc(matchID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get match %s: %w", matchID, err)
	}

	var item match.Match
	if err := snap.DataTo(&item); err != nil {
		return match.Match{}, false, fmt.Errorf("decode match %s: %w", matchID, err)
	}
	return item, true, nil
}

func (r *MatchRepository) Upsert(ctx context.Context, item match.Match) error {
	if _, err := r.client.Collection(r.collection).Doc(item.MatchID).Set(ctx, item); err != nil {
		return fmt.Errorf("save match %s: %w", item.MatchID, err)
	}
	return nil
}
