package persistence

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/MimeLyc/term-injector/internal/termmap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore keeps imported terminology records and the history of
// terminology checks.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(path.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer of a migration file name.
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}


// fingerprint identifies a record by its content so re-importing the same
// file is a no-op.
func fingerprint(rec termmap.Record) (string, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// ImportRecords stores every record of the sequence in one transaction.
// Records already present are counted as duplicates.
func (s *SQLiteStore) ImportRecords(ctx context.Context, records iter.Seq2[termmap.Record, error]) (summary ImportSummary, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for rec, recErr := range records {
		if recErr != nil {
			return summary, recErr
		}
		summary.Read++

		key, err := fingerprint(rec)
		if err != nil {
			return summary, fmt.Errorf("fingerprint record %d: %w", summary.Read, err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO records (fingerprint, created_at) VALUES (?, ?)
			 ON CONFLICT(fingerprint) DO NOTHING`,
			key, now,
		)
		if err != nil {
			return summary, fmt.Errorf("insert record %d: %w", summary.Read, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			summary.Duplicates++
			continue
		}
		recordID, err := res.LastInsertId()
		if err != nil {
			return summary, err
		}

		for pos, entry := range rec.Term {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO entries (record_id, position, word, lang, preferred) VALUES (?, ?, ?, ?, ?)`,
				recordID, pos, entry.Word, entry.Lang, boolToInt(entry.Preferred),
			); err != nil {
				return summary, fmt.Errorf("insert entry %q: %w", entry.Word, err)
			}
		}
		summary.Inserted++
	}

	err = tx.Commit()
	return summary, err
}

// CountRecords returns the number of stored records.
func (s *SQLiteStore) CountRecords(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// Records streams stored records in import order with their entries in
// original order.
func (s *SQLiteStore) Records(ctx context.Context) iter.Seq2[termmap.Record, error] {
	return func(yield func(termmap.Record, error) bool) {
		rows, err := s.db.QueryContext(
			ctx,
			`SELECT record_id, word, lang, preferred
			 FROM entries
			 ORDER BY record_id ASC, position ASC`,
		)
		if err != nil {
			yield(termmap.Record{}, err)
			return
		}
		defer rows.Close()

		var (
			cur       termmap.Record
			curID     int64 = -1
			preferred int
		)
		for rows.Next() {
			var (
				id    int64
				entry termmap.Entry
			)
			if err := rows.Scan(&id, &entry.Word, &entry.Lang, &preferred); err != nil {
				yield(termmap.Record{}, err)
				return
			}
			entry.Preferred = preferred == 1

			if id != curID && curID >= 0 {
				if !yield(cur, nil) {
					return
				}
				cur = termmap.Record{}
			}
			curID = id
			cur.Term = append(cur.Term, entry)
		}
		if err := rows.Err(); err != nil {
			yield(termmap.Record{}, err)
			return
		}
		if curID >= 0 {
			yield(cur, nil)
		}
	}
}

// DeleteAllRecords empties the terminology tables. Check history is kept.
func (s *SQLiteStore) DeleteAllRecords(ctx context.Context) (deleted int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM records`)
	if err != nil {
		return 0, err
	}
	if deleted, err = res.RowsAffected(); err != nil {
		return 0, err
	}
	return deleted, tx.Commit()
}

// RecordCheckRun stores a check result, assigning an id and finish time
// when they are missing.
func (s *SQLiteStore) RecordCheckRun(ctx context.Context, run CheckRun) (CheckRun, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO check_runs (
			id, source_lang, target_lang, input, lines, total, confirmed, language_mismatches, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.SourceLang,
		run.TargetLang,
		run.Input,
		run.Lines,
		run.Total,
		run.Confirmed,
		run.LanguageMismatches,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return CheckRun{}, err
	}
	return run, nil
}

// ListCheckRuns returns the most recent check runs first. A limit of zero
// or less returns all of them.
func (s *SQLiteStore) ListCheckRuns(ctx context.Context, limit int) ([]CheckRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, source_lang, target_lang, input, lines, total, confirmed, language_mismatches, started_at, finished_at
		 FROM check_runs
		 ORDER BY finished_at DESC, id ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]CheckRun, 0)
	for rows.Next() {
		var item CheckRun
		if err := rows.Scan(
			&item.ID,
			&item.SourceLang,
			&item.TargetLang,
			&item.Input,
			&item.Lines,
			&item.Total,
			&item.Confirmed,
			&item.LanguageMismatches,
			&item.StartedAt,
			&item.FinishedAt,
		); err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// GetCheckRun fetches a single run by id.
func (s *SQLiteStore) GetCheckRun(ctx context.Context, id string) (CheckRun, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, source_lang, target_lang, input, lines, total, confirmed, language_mismatches, started_at, finished_at
		 FROM check_runs
		 WHERE id = ?`,
		id,
	)
	var item CheckRun
	if err := row.Scan(
		&item.ID,
		&item.SourceLang,
		&item.TargetLang,
		&item.Input,
		&item.Lines,
		&item.Total,
		&item.Confirmed,
		&item.LanguageMismatches,
		&item.StartedAt,
		&item.FinishedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CheckRun{}, false, nil
		}
		return CheckRun{}, false, err
	}
	return item, true, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
