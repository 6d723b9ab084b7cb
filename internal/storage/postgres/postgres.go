package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/princekumarofficial/imgbed/internal/config"
	"github.com/princekumarofficial/imgbed/internal/storage"
	"github.com/princekumarofficial/imgbed/internal/types"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type Postgres struct {
	Db *sql.DB
}

func NewPostgres(cfg *config.Config) (*Postgres, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PGSQL.Host, cfg.PGSQL.Port, cfg.PGSQL.User, cfg.PGSQL.Password, cfg.PGSQL.DBName, cfg.PGSQL.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Connected to Postgres database")

	pg := &Postgres{Db: db}
	if err := pg.CreateTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pg, nil
}

func (p *Postgres) Close() error {
	return p.Db.Close()
}

func (p *Postgres) CreateTables(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS media (
			id SERIAL PRIMARY KEY,
			url TEXT UNIQUE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS short_urls (
			id SERIAL PRIMARY KEY,
			short_id VARCHAR(10) UNIQUE NOT NULL,
			url TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			clicks BIGINT NOT NULL DEFAULT 0 CHECK (clicks >= 0)
		);
		`,
	}

	for _, q := range queries {
		if _, err := p.Db.ExecContext(ctx, q); err != nil {
			return err
		}
	}

	return nil
}

func (p *Postgres) InsertMedia(ctx context.Context, url string) error {
	query := `INSERT INTO media (url) VALUES ($1) ON CONFLICT (url) DO NOTHING`

	if _, err := p.Db.ExecContext(ctx, query, url); err != nil {
		return fmt.Errorf("failed to insert media: %w", err)
	}

	return nil
}

func (p *Postgres) MediaExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM media WHERE url = $1)`

	if err := p.Db.QueryRowContext(ctx, query, url).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up media: %w", err)
	}

	return exists, nil
}

func (p *Postgres) DeleteMedia(ctx context.Context, urls []string) (int64, error) {
	query := `DELETE FROM media WHERE url = ANY($1)`

	res, err := p.Db.ExecContext(ctx, query, pq.Array(urls))
	if err != nil {
		return 0, fmt.Errorf("failed to delete media: %w", err)
	}

	return res.RowsAffected()
}

// ListMedia returns newest uploads first. Storage keys are millisecond
// timestamps, so ordering by url descending is ordering by upload time.
func (p *Postgres) ListMedia(ctx context.Context, limit, offset int) ([]types.MediaRecord, error) {
	query := `
	SELECT id, url, created_at FROM media
	ORDER BY url DESC
	LIMIT $1 OFFSET $2
	`

	rows, err := p.Db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()

	var records []types.MediaRecord
	for rows.Next() {
		var m types.MediaRecord
		if err := rows.Scan(&m.ID, &m.URL, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		records = append(records, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return records, nil
}

func (p *Postgres) CountMedia(ctx context.Context) (int64, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM media`)
}

func (p *Postgres) CreateShortURL(ctx context.Context, s types.ShortURL) error {
	query := `
	INSERT INTO short_urls (short_id, url, created_at, clicks)
	VALUES ($1, $2, $3, 0)
	`

	_, err := p.Db.ExecContext(ctx, query, s.ShortID, s.URL, s.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to create short url: %w", err)
	}

	return nil
}

func (p *Postgres) GetShortURL(ctx context.Context, shortID string) (types.ShortURL, error) {
	var s types.ShortURL
	query := `SELECT id, short_id, url, created_at, clicks FROM short_urls WHERE short_id = $1`

	err := p.Db.QueryRowContext(ctx, query, shortID).Scan(&s.ID, &s.ShortID, &s.URL, &s.CreatedAt, &s.Clicks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, storage.ErrNotFound
		}
		return s, fmt.Errorf("failed to get short url: %w", err)
	}

	return s, nil
}

func (p *Postgres) IncrementClicks(ctx context.Context, shortID string) error {
	query := `UPDATE short_urls SET clicks = clicks + 1 WHERE short_id = $1`

	res, err := p.Db.ExecContext(ctx, query, shortID)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (p *Postgres) ListShortURLs(ctx context.Context, limit, offset int) ([]types.ShortURL, error) {
	query := `
	SELECT id, short_id, url, created_at, clicks FROM short_urls
	ORDER BY id DESC
	LIMIT $1 OFFSET $2
	`

	rows, err := p.Db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list short urls: %w", err)
	}
	defer rows.Close()

	var urls []types.ShortURL
	for rows.Next() {
		var s types.ShortURL
		if err := rows.Scan(&s.ID, &s.ShortID, &s.URL, &s.CreatedAt, &s.Clicks); err != nil {
			return nil, fmt.Errorf("failed to scan short url: %w", err)
		}
		urls = append(urls, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return urls, nil
}

func (p *Postgres) CountShortURLs(ctx context.Context) (int64, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM short_urls`)
}

func (p *Postgres) TotalClicks(ctx context.Context) (int64, error) {
	return p.count(ctx, `SELECT COALESCE(SUM(clicks), 0) FROM short_urls`)
}

func (p *Postgres) count(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := p.Db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
