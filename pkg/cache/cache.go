// Package cache persists transcripts and summaries in a local SQLite
// database so repeated runs against the same video skip the expensive
// download and API calls.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/cruxrec/cruxrec/pkg/config"
	"github.com/cruxrec/cruxrec/pkg/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	url        TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS summaries (
	url         TEXT NOT NULL,
	prompt_hash TEXT NOT NULL,
	text        TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (url, prompt_hash)
);
`

// Cache is a TTL-bounded store for transcripts and summaries. A disabled
// cache is valid and turns every operation into a no-op miss.
type Cache struct {
	db     *sql.DB
	ttl    time.Duration
	logger *zap.Logger
}

// Open opens (or creates) the cache database. Returns a disabled cache when
// cfg.Enabled is false.
func Open(cfg config.CacheConfig) (*Cache, error) {
	logger := logging.GetLogger("services")
	if !cfg.Enabled {
		return &Cache{logger: logger}, nil
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}

	logger.Debug("Cache opened", zap.String("path", cfg.Path), zap.Duration("ttl", cfg.TTL.Std()))
	return &Cache{db: db, ttl: cfg.TTL.Std(), logger: logger}, nil
}

// Enabled reports whether the cache is backed by a database.
func (c *Cache) Enabled() bool {
	return c.db != nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// cutoff returns the oldest creation time still considered fresh. A zero
// TTL keeps entries forever.
func (c *Cache) cutoff() int64 {
	if c.ttl <= 0 {
		return 0
	}
	return time.Now().Add(-c.ttl).Unix()
}

// GetTranscript returns the cached transcript for a URL, if present and
// fresh.
func (c *Cache) GetTranscript(ctx context.Context, url string) (string, bool, error) {
	if c.db == nil {
		return "", false, nil
	}

	var text string
	err := c.db.QueryRowContext(ctx,
		`SELECT text FROM transcripts WHERE url = ? AND created_at >= ?`,
		url, c.cutoff()).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cached transcript: %w", err)
	}

	c.logger.Debug("Transcript cache hit", zap.String("url", url))
	return text, true, nil
}

// PutTranscript stores a transcript, replacing any previous entry.
func (c *Cache) PutTranscript(ctx context.Context, url, text string) error {
	if c.db == nil {
		return nil
	}

	_, err := c.db.ExecContext(ctx,
		`REPLACE INTO transcripts (url, text, created_at) VALUES (?, ?, ?)`,
		url, text, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store transcript: %w", err)
	}
	return nil
}

// GetSummary returns the cached summary for a URL and prompt, if present
// and fresh.
func (c *Cache) GetSummary(ctx context.Context, url, prompt string) (string, bool, error) {
	if c.db == nil {
		return "", false, nil
	}

	var text string
	err := c.db.QueryRowContext(ctx,
		`SELECT text FROM summaries WHERE url = ? AND prompt_hash = ? AND created_at >= ?`,
		url, promptHash(prompt), c.cutoff()).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cached summary: %w", err)
	}

	c.logger.Debug("Summary cache hit", zap.String("url", url))
	return text, true, nil
}

// PutSummary stores a summary keyed by URL and prompt.
func (c *Cache) PutSummary(ctx context.Context, url, prompt, text string) error {
	if c.db == nil {
		return nil
	}

	_, err := c.db.ExecContext(ctx,
		`REPLACE INTO summaries (url, prompt_hash, text, created_at) VALUES (?, ?, ?, ?)`,
		url, promptHash(prompt), text, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store summary: %w", err)
	}
	return nil
}

// Purge removes expired entries from both tables and reports how many rows
// were deleted.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	if c.db == nil || c.ttl <= 0 {
		return 0, nil
	}

	var total int64
	for _, table := range []string{"transcripts", "summaries"} {
		res, err := c.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE created_at < ?`, table), c.cutoff())
		if err != nil {
			return total, fmt.Errorf("purge %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if total > 0 {
		c.logger.Info("Purged expired cache entries", zap.Int64("rows", total))
	}
	return total, nil
}

// promptHash collapses the prompt to a stable key so arbitrary prompt text
// never lands in a primary key column.
func promptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
