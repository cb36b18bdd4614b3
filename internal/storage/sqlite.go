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

	"histobot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const defaultSQLitePath = "./data/histobot.db"

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = defaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	_, _ = db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	log.Info("sqlite store opened", logx.String("path", path))
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

func (s *sqliteStore) UpsertDestination(ctx context.Context, d Destination) error {
	now := d.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}
	created := d.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO destinations(id, display_name, kind, active, created_at, updated_at)
		 VALUES(?,?,?,1,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   display_name = CASE WHEN excluded.display_name <> '' THEN excluded.display_name ELSE destinations.display_name END,
		   kind = excluded.kind,
		   active = 1,
		   updated_at = excluded.updated_at`,
		d.ID, d.DisplayName, d.Kind, created.UnixMilli(), now.UnixMilli(),
	)
	return err
}

func (s *sqliteStore) DeactivateDestination(ctx context.Context, id int64, at time.Time) (bool, error) {
	if at.IsZero() {
		at = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE destinations SET active = 0, updated_at = ? WHERE id = ? AND active = 1`,
		at.UnixMilli(), id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const destinationColumns = `id, display_name, kind, active, last_sent_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDestination(r rowScanner) (Destination, error) {
	var (
		d        Destination
		active   int
		lastSent sql.NullInt64
		created  int64
		updated  int64
	)
	if err := r.Scan(&d.ID, &d.DisplayName, &d.Kind, &active, &lastSent, &created, &updated); err != nil {
		return Destination{}, err
	}
	d.Active = active != 0
	if lastSent.Valid {
		t := time.UnixMilli(lastSent.Int64)
		d.LastSentAt = &t
	}
	d.CreatedAt = time.UnixMilli(created)
	d.UpdatedAt = time.UnixMilli(updated)
	return d, nil
}

func (s *sqliteStore) GetDestination(ctx context.Context, id int64) (Destination, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+destinationColumns+` FROM destinations WHERE id = ?`, id)
	d, err := scanDestination(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Destination{}, false, nil
	}
	if err != nil {
		return Destination{}, false, err
	}
	return d, true, nil
}

func (s *sqliteStore) ListActiveDestinations(ctx context.Context) ([]Destination, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+destinationColumns+` FROM destinations WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Destination
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CountActiveDestinations(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM destinations WHERE active = 1`).Scan(&n)
	return n, err
}

func (s *sqliteStore) PutSendRecord(ctx context.Context, r SendRecord) error {
	if r.SentAt.IsZero() {
		r.SentAt = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO send_records(destination_id, day, post_fingerprint, sent_at)
		 VALUES(?,?,?,?)
		 ON CONFLICT(destination_id, day) DO UPDATE SET
		   post_fingerprint = excluded.post_fingerprint,
		   sent_at = excluded.sent_at`,
		r.DestinationID, r.Day, r.PostFingerprint, r.SentAt.UnixMilli(),
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE destinations SET last_sent_at = ? WHERE id = ?`,
		r.SentAt.UnixMilli(), r.DestinationID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) HasSendRecord(ctx context.Context, destinationID int64, day string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM send_records WHERE destination_id = ? AND day = ?`,
		destinationID, day,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqliteStore) DeleteSendRecordsBefore(ctx context.Context, day string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM send_records WHERE day < ?`, day)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqliteStore) DeleteSendRecordsOn(ctx context.Context, day string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM send_records WHERE day = ?`, day)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqliteStore) AddAnniversary(ctx context.Context, a Anniversary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO anniversaries(month_day, name, created_at) VALUES(?,?,?)`,
		a.MonthDay, a.Name, time.Now().UnixMilli(),
	)
	return err
}

func (s *sqliteStore) ListAnniversaries(ctx context.Context) ([]Anniversary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT month_day, name FROM anniversaries ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Anniversary
	for rows.Next() {
		var a Anniversary
		if err := rows.Scan(&a.MonthDay, &a.Name); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
