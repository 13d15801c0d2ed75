package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/cricket-scoreboard/internal/domain/match"
)

const (
	selectMatchDocumentQuery = `SELECT match_id, status, feed, payload, fetched_at
FROM match_documents
WHERE match_id = $1`

	upsertMatchDocumentQuery = `INSERT INTO match_documents (match_id, status, feed, payload, fetched_at)
VALUES (:match_id, :status, :feed, :payload, :fetched_at)
ON CONFLICT (match_id)
DO UPDATE SET
    status = EXCLUDED.status,
    feed = EXCLUDED.feed,
    payload = EXCLUDED.payload,
    fetched_at = EXCLUDED.fetched_at,
    updated_at = NOW()`
)

// MatchRepository stores each normalized match as a JSONB document.
type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (match.Match, bool, error) {
	var row matchDocumentModel
	if err := r.db.GetContext(ctx, &row, selectMatchDocumentQuery, matchID); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get match document %s: %w", matchID, err)
	}

	item, err := decodeMatchDocument(row)
	if err != nil {
		return match.Match{}, false, err
	}
	return item, true, nil
}

func (r *MatchRepository) Upsert(ctx context.Context, item match.Match) error {
	row, err := encodeMatchDocument(item)
	if err != nil {
		return err
	}
	if _, err := r.db.NamedExecContext(ctx, upsertMatchDocumentQuery, row); err != nil {
		return fmt.Errorf("upsert match document %s: %w", item.MatchID, err)
	}
	return nil
}

func encodeMatchDocument(item match.Match) (matchDocumentModel, error) {
	payload, err := sonic.Marshal(item)
	if err != nil {
		return matchDocumentModel{}, fmt.Errorf("encode match document %s: %w", item.MatchID, err)
	}

	fetchedAt := item.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	return matchDocumentModel{
		MatchID:   item.MatchID,
		Status:    string(item.Status),
		Feed:      string(item.Feed),
		Payload:   payload,
		FetchedAt: fetchedAt,
	}, nil
}

func decodeMatchDocument(row matchDocumentModel) (match.Match, error) {
	var item match.Match
	if err := sonic.Unmarshal(row.Payload, &item); err != nil {
		return match.Match{}, fmt.Errorf("decode match document %s: %w", row.MatchID, err)
	}
	item.MatchID = row.MatchID
	if item.FetchedAt.IsZero() {
		item.FetchedAt = row.FetchedAt.UTC()
	}
	return item, nil
}
