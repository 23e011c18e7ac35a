package sqlite

import (
	"context"
	"database/sql"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autoreply/pkg/domain/interfaces"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS actions (
    name            TEXT PRIMARY KEY,
    day_mention     TEXT NOT NULL DEFAULT '',
    night_mention   TEXT NOT NULL DEFAULT '',
    day_start       TEXT NOT NULL DEFAULT '',
    day_end         TEXT NOT NULL DEFAULT '',
    night_start     TEXT NOT NULL DEFAULT '',
    night_end       TEXT NOT NULL DEFAULT '',
    watch_channels  TEXT NOT NULL DEFAULT '[]',
    reply_channels  TEXT NOT NULL DEFAULT '[]',
    message         TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS provisional_actions (
    seq             INTEGER PRIMARY KEY AUTOINCREMENT,
    initiator       TEXT NOT NULL,
    step            TEXT NOT NULL,
    edit_of         TEXT NOT NULL DEFAULT '',
    name            TEXT NOT NULL DEFAULT '',
    day_mention     TEXT NOT NULL DEFAULT '',
    night_mention   TEXT NOT NULL DEFAULT '',
    day_start       TEXT NOT NULL DEFAULT '',
    day_end         TEXT NOT NULL DEFAULT '',
    night_start     TEXT NOT NULL DEFAULT '',
    night_end       TEXT NOT NULL DEFAULT '',
    watch_channels  TEXT NOT NULL DEFAULT '[]',
    reply_channels  TEXT NOT NULL DEFAULT '[]',
    message         TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL DEFAULT 0,
    updated_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_provisional_actions_updated_at ON provisional_actions(updated_at);
`

// SQLite is a single file ActionStore backend
type SQLite struct {
	db     *sql.DB
	action *actionStore
}

var _ interfaces.Repository = &SQLite{}

// New opens (or creates) the database at path and applies the schema
func New(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}

	// One connection serializes every transaction, which is what CommitStep and Finalize rely on
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to apply sqlite schema", goerr.V("path", path))
	}

	return &SQLite{
		db:     db,
		action: newActionStore(db),
	}, nil
}

func (s *SQLite) Action() interfaces.ActionStore {
	return s.action
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
