package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/frameloft/deskhost/internal/history"
)

// Sink appends lifecycle events to a local SQLite file, the default audit
// destination for a single-machine host.
type Sink struct {
	db *sql.DB
}

// New opens (or creates) the database at dsn.
// Accepted forms: "sqlite:///path/to/file.db", "/path/to/file.db", ":memory:".
func New(dsn string) (*Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty SQLite DSN")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &Sink{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS lifecycle_events(
		occurred_at TIMESTAMP NOT NULL DEFAULT (CURRENT_TIMESTAMP),
		event TEXT NOT NULL,
		service TEXT NOT NULL,
		pid INTEGER NOT NULL,
		detail TEXT
	);`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lifecycle_events(occurred_at, event, service, pid, detail)
		VALUES(?, ?, ?, ?, ?);`,
		e.OccurredAt.UTC(), string(e.Type), e.Service, e.PID, e.Detail)
	return err
}

func (s *Sink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
