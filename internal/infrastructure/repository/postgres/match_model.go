package postgres

import "time"

type matchDocumentModel struct {
	MatchID   string    `db:"match_id"`
	Status    string    `db:"status"`
	Feed      string    `db:"feed"`
	Payload   []byte    `db:"payload"`
	FetchedAt time.Time `db:"fetched_at"`
}
