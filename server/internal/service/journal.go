package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/logging"
	"github.com/yaroslav/stretchsim/server/internal/metrics"
)

// DefaultQueryLimit caps a journal query that does not set a limit.
const DefaultQueryLimit = 500

const journalSchema = `
CREATE TABLE IF NOT EXISTS transitions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tick INTEGER NOT NULL,
	kind TEXT NOT NULL,
	subject TEXT NOT NULL,
	from_state TEXT NOT NULL,
	to_state TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_tick ON transitions(tick);
CREATE INDEX IF NOT EXISTS idx_transitions_kind ON transitions(kind, tick);
`

// TransitionFilter selects journal entries. Zero fields do not filter.
type TransitionFilter struct {
	// FromTick and ToTick bound the tick range, both inclusive.
	FromTick uint64
	ToTick   uint64

	Kind    models.TransitionKind
	Subject string

	// Limit of zero uses DefaultQueryLimit.
	Limit int
}

// Journal stores reported transitions in sqlite.
type Journal struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenJournal opens a journal on db and creates its table. The caller
// keeps ownership of db.
//
// Parameters:
//   - db: Database connection (see OpenMemoryDB)
//   - logger: Zap logger
//
// Returns:
//   - Configured Journal
//   - Error if the schema cannot be created
func OpenJournal(db *sql.DB, logger *zap.Logger) (*Journal, error) {
	if _, err := db.Exec(journalSchema); err != nil {
		return nil, fmt.Errorf("%w: failed to create journal schema: %v", models.ErrDatabaseError, err)
	}
	return &Journal{db: db, logger: logging.Component(logger, "journal")}, nil
}

// OpenMemoryDB opens a private in-memory sqlite database. The pool holds a
// single connection, since every new connection would see a fresh database.
func OpenMemoryDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Observe records one tick's transitions. Failures are logged; a journal
// outage never stops the simulation.
func (j *Journal) Observe(tick uint64, transitions []models.Transition) {
	if len(transitions) == 0 {
		return
	}
	if err := j.Record(context.Background(), transitions); err != nil {
		j.logger.Error("failed to record transitions",
			zap.Uint64(logging.FieldTick, tick),
			zap.Int("count", len(transitions)),
			zap.Error(err),
		)
	}
}

// Record stores transitions in one transaction.
func (j *Journal) Record(ctx context.Context, transitions []models.Transition) (err error) {
	defer observe("record", time.Now(), &err)

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", models.ErrDatabaseError, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transitions (tick, kind, subject, from_state, to_state, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare insert: %v", models.ErrDatabaseError, err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, t := range transitions {
		if _, err := stmt.ExecContext(ctx, int64(t.Tick), string(t.Kind), t.Subject, t.From, t.To, t.Detail, now); err != nil {
			return fmt.Errorf("%w: failed to insert transition: %v", models.ErrDatabaseError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", models.ErrDatabaseError, err)
	}
	metrics.JournalEntries.Add(float64(len(transitions)))
	return nil
}

// Query returns matching transitions in the order they were recorded.
func (j *Journal) Query(ctx context.Context, f TransitionFilter) (out []models.Transition, err error) {
	defer observe("query", time.Now(), &err)

	var (
		where []string
		args  []any
	)
	if f.FromTick > 0 {
		where = append(where, "tick >= ?")
		args = append(args, int64(f.FromTick))
	}
	if f.ToTick > 0 {
		where = append(where, "tick <= ?")
		args = append(args, int64(f.ToTick))
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Subject != "" {
		where = append(where, "subject = ?")
		args = append(args, f.Subject)
	}

	query := "SELECT tick, kind, subject, from_state, to_state, detail FROM transitions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id LIMIT ?"
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query transitions: %v", models.ErrDatabaseError, err)
	}
	defer rows.Close()

	out = []models.Transition{}
	for rows.Next() {
		var (
			t    models.Transition
			tick int64
			kind string
		)
		if err := rows.Scan(&tick, &kind, &t.Subject, &t.From, &t.To, &t.Detail); err != nil {
			return nil, fmt.Errorf("%w: failed to scan transition: %v", models.ErrDatabaseError, err)
		}
		t.Tick = uint64(tick)
		t.Kind = models.TransitionKind(kind)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate transitions: %v", models.ErrDatabaseError, err)
	}
	logging.FromContext(ctx).Debug("journal queried",
		zap.Uint64("from_tick", f.FromTick),
		zap.Uint64("to_tick", f.ToTick),
		zap.String("kind", string(f.Kind)),
		zap.Int("limit", limit),
		zap.Int("rows", len(out)),
	)
	return out, nil
}

// Count returns the number of stored transitions.
func (j *Journal) Count(ctx context.Context) (n int, err error) {
	defer observe("count", time.Now(), &err)
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transitions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count transitions: %v", models.ErrDatabaseError, err)
	}
	return n, nil
}

// Clear removes every stored transition.
func (j *Journal) Clear() (err error) {
	defer observe("clear", time.Now(), &err)
	if _, err := j.db.Exec(`DELETE FROM transitions`); err != nil {
		return fmt.Errorf("%w: failed to clear journal: %v", models.ErrDatabaseError, err)
	}
	metrics.JournalEntries.Set(0)
	return nil
}

// Ping checks the database connection.
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

func observe(op string, start time.Time, err *error) {
	status := "success"
	if *err != nil {
		status = "error"
	}
	metrics.JournalQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.JournalQueriesTotal.WithLabelValues(op, status).Inc()
}
