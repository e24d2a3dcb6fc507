package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "surveybot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendRun(ctx context.Context, r RunRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	var visitMS any
	if !r.VisitAt.IsZero() {
		visitMS = r.VisitAt.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(at_ms, outcome, category, visit_ms, took_ms, steps, err)
		 VALUES(?,?,?,?,?,?,?)`,
		r.At.UnixMilli(), r.Outcome, nullStr(r.Category), visitMS, r.TookMS, r.Steps, nullStr(r.Error),
	)
	return err
}

func (s *sqliteStore) RecentRuns(ctx context.Context, n int) ([]RunRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at_ms, outcome, category, visit_ms, took_ms, steps, err
		 FROM runs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			atMS    int64
			visitMS sql.NullInt64
			cat     sql.NullString
			errStr  sql.NullString
			r       RunRecord
		)
		if err := rows.Scan(&atMS, &r.Outcome, &cat, &visitMS, &r.TookMS, &r.Steps, &errStr); err != nil {
			return nil, err
		}
		r.At = time.UnixMilli(atMS)
		if visitMS.Valid {
			r.VisitAt = time.UnixMilli(visitMS.Int64)
		}
		r.Category = cat.String
		r.Error = errStr.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CountRunsOn(ctx context.Context, day time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrDisabled
	}
	start, end := dayBounds(day)
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM runs WHERE at_ms >= ? AND at_ms < ?`,
		start.UnixMilli(), end.UnixMilli()).Scan(&count)
	return count, err
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
