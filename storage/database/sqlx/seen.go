package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/DailyDoseOfWezs/Schedulink/core/watch"
)

// seenRepository is a durable SeenStore scoped to one viewer, so restarting
// the process does not replay old notifications.
type seenRepository struct {
	db       *sqlx.DB
	viewerID string
}

var _ watch.SeenStore = (*seenRepository)(nil) // interface compliance check

func NewSeenRepository(db *sqlx.DB, viewerID string) *seenRepository {
	return &seenRepository{db: db, viewerID: viewerID}
}

func (repo seenRepository) Contains(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM watch_seen WHERE viewer_id = $1 AND key = $2)`,
		repo.viewerID, key,
	)
	if err != nil {
		return false, errors.Wrap(err, "checking seen key")
	}
	return exists, nil
}

func (repo seenRepository) Add(ctx context.Context, key string) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO watch_seen (viewer_id, key, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (viewer_id, key) DO NOTHING`,
		repo.viewerID, key, time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "adding seen key")
	}
	return nil
}
