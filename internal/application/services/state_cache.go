package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/settlebot/backend/internal/domain/flow"
)

// StateCache is the optional write-through MySQL record of each chain's
// current step, keyed by workflow kind and period. It exists only to make
// lookups cheap: the chat log stays the ground truth, and any
// disagreement is resolved in favor of the log. All cache failures are
// logged and swallowed; they must never block a chain.
type StateCache struct {
	db *sql.DB
}

// CachedState is one approval_state row.
type CachedState struct {
	CacheKey  string
	Step      int
	RootTs    string
	Title     string
	UpdatedAt time.Time
}

// NewStateCache wraps a connection pool; a nil db disables the cache.
func NewStateCache(db *sql.DB) *StateCache {
	return &StateCache{db: db}
}

// Enabled reports whether a backing store is configured.
func (c *StateCache) Enabled() bool {
	return c != nil && c.db != nil
}

// EnsureSchema creates the approval_state table if missing.
func (c *StateCache) EnsureSchema(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	_, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS approval_state (
			cache_key  VARCHAR(64)  NOT NULL PRIMARY KEY,
			step       INT          NOT NULL,
			root_ts    VARCHAR(32)  NOT NULL,
			title      VARCHAR(255) NOT NULL,
			updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`)
	return err
}

// Put records the chain's current step (write-through, after the
// corresponding message has been posted).
func (c *StateCache) Put(ctx context.Context, kind string, period flow.Period, step int, rootTs, title string) {
	if !c.Enabled() {
		return
	}
	key := flow.CacheKey(kind, period)
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO approval_state (cache_key, step, root_ts, title)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE step = VALUES(step), root_ts = VALUES(root_ts), title = VALUES(title)`,
		key, step, rootTs, title)
	if err != nil {
		log.Printf("⚠️  State cache put failed: key=%s err=%v", key, err)
	}
}

// Get returns the cached state for a chain, or nil on miss.
func (c *StateCache) Get(ctx context.Context, kind string, period flow.Period) *CachedState {
	if !c.Enabled() {
		return nil
	}
	key := flow.CacheKey(kind, period)
	row := c.db.QueryRowContext(ctx, `
		SELECT cache_key, step, root_ts, title, updated_at
		FROM approval_state WHERE cache_key = ?`, key)

	var rec CachedState
	if err := row.Scan(&rec.CacheKey, &rec.Step, &rec.RootTs, &rec.Title, &rec.UpdatedAt); err != nil {
		if err != sql.ErrNoRows {
			log.Printf("⚠️  State cache get failed: key=%s err=%v", key, err)
		}
		return nil
	}
	return &rec
}

// Delete removes a chain's record once the chain completes.
func (c *StateCache) Delete(ctx context.Context, kind string, period flow.Period) {
	if !c.Enabled() {
		return
	}
	key := flow.CacheKey(kind, period)
	if _, err := c.db.ExecContext(ctx, `DELETE FROM approval_state WHERE cache_key = ?`, key); err != nil {
		log.Printf("⚠️  State cache delete failed: key=%s err=%v", key, err)
	}
}
