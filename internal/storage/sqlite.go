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

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLite is the default Store, backed by a single database file.
type SQLite struct {
	conn *sql.DB
	path string
}

// NewSQLite opens (creating if needed) the database at path. Call Migrate
// before first use.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("DATABASE_PATH is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// single writer
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLite{conn: conn, path: path}, nil
}

// Migrate applies pending schema migrations.
func (s *SQLite) Migrate(ctx context.Context) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.conn, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the last migration.
func (s *SQLite) MigrateDown(ctx context.Context) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, s.conn, "migrations"); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}

// MigrationStatus prints the migration status through goose's logger.
func (s *SQLite) MigrationStatus(ctx context.Context) error {
	if err := setupGoose(); err != nil {
		return err
	}
	return goose.StatusContext(ctx, s.conn, "migrations")
}

func setupGoose() error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

func (s *SQLite) InsertIfAbsent(ctx context.Context, rec Record) (bool, error) {
	res, err := s.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO videos (message_id, file_name, caption) VALUES (?, ?, ?)`,
		rec.MessageID, rec.FileName, nullString(rec.Caption))
	if err != nil {
		return false, unavailable("insert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("insert", err)
	}
	return n == 1, nil
}

func (s *SQLite) FindBySubstring(ctx context.Context, token string) ([]Record, error) {
	pattern := "%" + escapeLike(token) + "%"
	return s.query(ctx, "find",
		`SELECT message_id, file_name, caption FROM videos
		 WHERE file_name LIKE ? ESCAPE '\' OR caption LIKE ? ESCAPE '\'
		 ORDER BY id`, pattern, pattern)
}

func (s *SQLite) FindAll(ctx context.Context) ([]Record, error) {
	return s.query(ctx, "scan", `SELECT message_id, file_name, caption FROM videos ORDER BY id`)
}

func (s *SQLite) FindCaption(ctx context.Context, messageID int) (string, bool, error) {
	var caption sql.NullString
	err := s.conn.QueryRowContext(ctx, `SELECT caption FROM videos WHERE message_id = ?`, messageID).Scan(&caption)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("caption", err)
	}
	return caption.String, true, nil
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&n); err != nil {
		return 0, unavailable("count", err)
	}
	return n, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *SQLite) query(ctx context.Context, op string, q string, args ...any) ([]Record, error) {
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		var (
			rec      Record
			fileName sql.NullString
			caption  sql.NullString
		)
		if err := rows.Scan(&rec.MessageID, &fileName, &caption); err != nil {
			return nil, unavailable(op, err)
		}
		rec.FileName = fileName.String
		rec.Caption = caption.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
