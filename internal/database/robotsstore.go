package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/scoutline/relay/internal/domain"
)

// RobotsStore implements internal/robots.Store against the
// robots_txt_cache table: one row per domain, upserted on conflict.
type RobotsStore struct {
	db *sqlx.DB
}

// NewRobotsStore constructs a RobotsStore backed by db.
func NewRobotsStore(db *sqlx.DB) *RobotsStore {
	return &RobotsStore{db: db}
}

type robotsRow struct {
	ID          int64   `db:"id"`
	Domain      string  `db:"domain"`
	RawContent  string  `db:"raw_content"`
	RulesJSON   string  `db:"rules_json"`
	CrawlDelay  *float64 `db:"crawl_delay"`
	AIBlocked   bool    `db:"ai_blocked"`
	FetchedAt   sql.NullTime `db:"fetched_at"`
	NextCheckAt sql.NullTime `db:"next_check_at"`
}

// Get returns the cache entry for host, or nil if none exists.
func (s *RobotsStore) Get(ctx context.Context, host string) (*domain.RobotsCacheEntry, error) {
	const query = `
		SELECT id, domain, raw_content, rules_json, crawl_delay, ai_blocked, fetched_at, next_check_at
		FROM robots_txt_cache
		WHERE domain = $1`

	var row robotsRow
	if err := s.db.GetContext(ctx, &row, query, host); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("database: get robots cache entry: %w", err)
	}

	var parsed domain.ParsedRobotsTxt
	if err := json.Unmarshal([]byte(row.RulesJSON), &parsed); err != nil {
		return nil, fmt.Errorf("database: unmarshal robots rules: %w", err)
	}

	return &domain.RobotsCacheEntry{
		ID:          row.ID,
		Domain:      row.Domain,
		RawContent:  row.RawContent,
		Parsed:      parsed,
		RulesJSON:   row.RulesJSON,
		CrawlDelay:  row.CrawlDelay,
		AIBlocked:   row.AIBlocked,
		FetchedAt:   row.FetchedAt.Time,
		NextCheckAt: row.NextCheckAt.Time,
	}, nil
}

// Upsert inserts or updates entry's row, keyed on the unique domain
// column.
func (s *RobotsStore) Upsert(ctx context.Context, entry *domain.RobotsCacheEntry) error {
	const query = `
		INSERT INTO robots_txt_cache (domain, raw_content, rules_json, crawl_delay, ai_blocked, fetched_at, next_check_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (domain) DO UPDATE SET
			raw_content   = EXCLUDED.raw_content,
			rules_json    = EXCLUDED.rules_json,
			crawl_delay   = EXCLUDED.crawl_delay,
			ai_blocked    = EXCLUDED.ai_blocked,
			fetched_at    = EXCLUDED.fetched_at,
			next_check_at = EXCLUDED.next_check_at`

	_, err := s.db.ExecContext(ctx, query,
		entry.Domain, entry.RawContent, entry.RulesJSON, entry.CrawlDelay,
		entry.AIBlocked, entry.FetchedAt, entry.NextCheckAt,
	)
	if err != nil {
		return fmt.Errorf("database: upsert robots cache entry: %w", err)
	}

	return nil
}
