// Package storage is the SQLite-backed remote store of the ledger. Records
// are kept per user in their JSON wire shape, so what Commit returns is
// exactly what a later Load reads back.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"financehub/internal/core"
	"financehub/internal/ledger"
	"financehub/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, pragma := range []string{`PRAGMA foreign_keys = ON`, `PRAGMA busy_timeout = 5000`} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	logger.Info("SQLite store ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// Commit implements ledger.Persistence. All ops run in one SQL transaction
// and the written rows are read back as the canonical records.
func (r *SQLiteRepository) Commit(ctx context.Context, userID string, ops []ledger.Op) ([]core.Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback()

	now := timestamp(time.Now())
	for _, op := range ops {
		if op.Record == nil {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM records WHERE user_id = ? AND kind = ? AND id = ?`,
				userID, string(op.Kind), op.ID); err != nil {
				return nil, fmt.Errorf("delete %s %s: %w", op.Kind, op.ID, err)
			}
			continue
		}
		data, err := core.EncodeRecord(op.Record)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", op.Kind, op.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO records (user_id, kind, id, data, updated_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id, kind, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			userID, string(op.Kind), op.ID, string(data), now); err != nil {
			return nil, fmt.Errorf("upsert %s %s: %w", op.Kind, op.ID, err)
		}
	}

	canonical := make([]core.Record, 0, len(ops))
	for _, op := range ops {
		if op.Record == nil {
			continue
		}
		var data string
		err := tx.QueryRowContext(ctx,
			`SELECT data FROM records WHERE user_id = ? AND kind = ? AND id = ?`,
			userID, string(op.Kind), op.ID).Scan(&data)
		if err != nil {
			return nil, fmt.Errorf("read back %s %s: %w", op.Kind, op.ID, err)
		}
		rec, err := core.DecodeRecord(op.Kind, []byte(data))
		if err != nil {
			return nil, err
		}
		canonical = append(canonical, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	r.logger.DebugContext(ctx, "Committed ops", log.FieldUserID, userID, log.FieldOps, len(ops))
	return canonical, nil
}

// Load implements ledger.Persistence.
func (r *SQLiteRepository) Load(ctx context.Context, userID string) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, data FROM records WHERE user_id = ? ORDER BY kind, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		var kind, data string
		if err := rows.Scan(&kind, &data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := core.DecodeRecord(core.Kind(kind), []byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// AppendAudit implements ledger.AuditSink.
func (r *SQLiteRepository) AppendAudit(ctx context.Context, userID string, entries []core.AuditEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO audit_log (user_id, id, action, entity, entity_id, details, group_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare audit insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, userID, e.ID, string(e.Action), string(e.Entity),
			e.EntityID, e.Details, e.GroupID, timestamp(e.CreatedAt)); err != nil {
			return fmt.Errorf("insert audit entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// LoadAudit returns the persisted audit trail, oldest first.
func (r *SQLiteRepository) LoadAudit(ctx context.Context, userID string) ([]core.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, entity, entity_id, details, group_id, created_at
		FROM audit_log WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []core.AuditEntry
	for rows.Next() {
		var (
			e                     core.AuditEntry
			action, entity, stamp string
		)
		if err := rows.Scan(&e.ID, &action, &entity, &e.EntityID, &e.Details, &e.GroupID, &stamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = core.AuditAction(action)
		e.Entity = core.Kind(entity)
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
			return nil, fmt.Errorf("parse audit time %q: %w", stamp, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReadMonthOverview sums a month's live receita and despesa transactions
// in SQL, with expenses broken down by category, largest first.
func (r *SQLiteRepository) ReadMonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error) {
	overview := core.MonthOverview{Year: year, Month: month}
	prefix := fmt.Sprintf("%04d-%02d", year, month)

	rows, err := r.db.QueryContext(ctx, `
		SELECT json_extract(data, '$.type') AS type,
		       json_extract(data, '$.category_id') AS category,
		       SUM(json_extract(data, '$.amount')) AS total
		FROM records
		WHERE user_id = ? AND kind = 'transaction'
		  AND substr(json_extract(data, '$.date'), 1, 7) = ?
		  AND json_extract(data, '$.deleted_at') IS NULL
		  AND json_extract(data, '$.type') IN (?, ?)
		GROUP BY type, category
		ORDER BY total ASC, category ASC`,
		userID, prefix, string(core.TypeIncome), string(core.TypeExpense))
	if err != nil {
		return overview, fmt.Errorf("query month overview: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			typ, category string
			total         int64
		)
		if err := rows.Scan(&typ, &category, &total); err != nil {
			return overview, fmt.Errorf("scan month overview: %w", err)
		}
		switch core.TransactionType(typ) {
		case core.TypeIncome:
			overview.Income = overview.Income.Add(core.Cents(total))
		case core.TypeExpense:
			amount := core.Cents(-total)
			overview.Expenses = overview.Expenses.Add(amount)
			overview.ByCategory = append(overview.ByCategory, core.CategoryAmount{CategoryID: category, Amount: amount})
		}
	}
	return overview, rows.Err()
}

// Seed bulk-inserts records for a user outside of the ledger's mutation
// path. Not safe to run while a Coordinator is writing for the same user.
func (r *SQLiteRepository) Seed(ctx context.Context, userID string, records []core.Record) error {
	ops := make([]ledger.Op, 0, len(records))
	for _, rec := range records {
		ops = append(ops, ledger.Op{Action: core.ActionCreate, Kind: rec.RecordKind(), ID: rec.RecordID(), Record: rec})
	}
	if _, err := r.Commit(ctx, userID, ops); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	r.logger.InfoContext(ctx, "Seeded records", log.FieldUserID, userID, "records", len(records))
	return nil
}

// Wipe deletes every record and audit entry of a user.
func (r *SQLiteRepository) Wipe(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin wipe: %w", err)
	}
	defer tx.Rollback()
	for _, q := range []string{
		`DELETE FROM records WHERE user_id = ?`,
		`DELETE FROM audit_log WHERE user_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, userID); err != nil {
			return fmt.Errorf("wipe: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("wipe: %w", err)
	}
	r.logger.WarnContext(ctx, "Wiped user data", log.FieldUserID, userID)
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if r.db == nil {
		return errors.New("database closed")
	}
	return r.db.PingContext(ctx)
}
