package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/inboxkeep/mailclerk/internal/models"
)

// ActivityRepository persists derived audit events (auth outcomes, reaper
// sweeps, fetch runs). Writes are best effort; callers must not fail an
// operation because an audit write failed.
type ActivityRepository interface {
	SaveEvent(ctx context.Context, event *models.ActivityEvent) error
	RecentEvents(ctx context.Context, limit int) ([]*models.ActivityEvent, error)
}

type Repositories struct {
	db *sqlx.DB

	ActivityRepository ActivityRepository
}

// InitRepositories opens (or creates) the SQLite database at dbPath, enables
// WAL mode, and runs any pending schema migrations.
func InitRepositories(dbPath string) (*Repositories, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if err := migrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Repositories{
		db:                 db,
		ActivityRepository: newActivityRepository(db),
	}, nil
}

func (r *Repositories) Close() error {
	return r.db.Close()
}
