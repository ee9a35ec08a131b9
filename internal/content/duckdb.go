// Coinscope - Crypto Content Recommendations and Price Alerts
// Copyright 2026 Coinscope Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coinscope/coinscope

package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"
)

// DuckStore is the persistent Store backed by DuckDB. The analytical column
// layout keeps the trending query cheap even with a large catalog.
type DuckStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

const contentSchema = `
CREATE TABLE IF NOT EXISTS content_features (
	content_id         VARCHAR PRIMARY KEY,
	title              VARCHAR NOT NULL,
	content_type       VARCHAR NOT NULL,
	categories         VARCHAR NOT NULL,
	tags               VARCHAR NOT NULL,
	topics             VARCHAR NOT NULL,
	language           VARCHAR,
	reading_level      VARCHAR,
	length             INTEGER NOT NULL DEFAULT 0,
	complexity         DOUBLE  NOT NULL DEFAULT 0,
	recency_days       DOUBLE  NOT NULL DEFAULT 0,
	popularity         DOUBLE  NOT NULL DEFAULT 0,
	sentiment          VARCHAR,
	trending_score     DOUBLE  NOT NULL DEFAULT 0,
	author_credibility DOUBLE  NOT NULL DEFAULT 0,
	technical_depth    DOUBLE  NOT NULL DEFAULT 0,
	market_relevance   DOUBLE  NOT NULL DEFAULT 0,
	updated_at         TIMESTAMP NOT NULL
);
`

// listSeparator joins string sets into a single column. The unit separator
// cannot appear in category/tag/topic names.
const listSeparator = "\x1f"

// OpenDuckStore opens (or creates) the content feature database at path.
// Use ":memory:" for an ephemeral store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenDuckStore(path string, logger zerolog.Logger) (*DuckStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb at %s: %w", path, err)
	}

	if _, err := db.Exec(contentSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create content_features schema: %w", err)
	}

	logger.Info().Str("path", path).Msg("content feature store opened")
	return &DuckStore{db: db, logger: logger}, nil
}

// Register upserts a feature record by content id.
func (s *DuckStore) Register(ctx context.Context, f *Features) error {
	if f == nil || f.ContentID == "" {
		return fmt.Errorf("register content: missing content id")
	}

	updatedAt := f.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO content_features (
			content_id, title, content_type, categories, tags, topics,
			language, reading_level, length, complexity, recency_days,
			popularity, sentiment, trending_score, author_credibility,
			technical_depth, market_relevance, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ContentID, f.Title, string(f.Type),
		joinList(f.Categories), joinList(f.Tags), joinList(f.Topics),
		f.Language, string(f.ReadingLevel), f.Length, f.Complexity,
		f.RecencyDays, f.Popularity, string(f.Sentiment), f.TrendingScore,
		f.AuthorCredibility, f.TechnicalDepth, f.MarketRelevance, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("register content %s: %w", f.ContentID, err)
	}
	return nil
}

const selectColumns = `
	content_id, title, content_type, categories, tags, topics,
	language, reading_level, length, complexity, recency_days,
	popularity, sentiment, trending_score, author_credibility,
	technical_depth, market_relevance, updated_at`

// Get returns the features for a content id, or ErrNotFound.
func (s *DuckStore) Get(ctx context.Context, contentID string) (*Features, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM content_features WHERE content_id = ?`, contentID)

	f, err := scanFeatures(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contentID)
	}
	if err != nil {
		return nil, fmt.Errorf("get content %s: %w", contentID, err)
	}
	return f, nil
}

// All returns every feature record ordered by content id.
func (s *DuckStore) All(ctx context.Context) ([]*Features, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM content_features ORDER BY content_id`)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	return collectFeatures(rows)
}

// Trending returns up to limit records above minScore, descending.
func (s *DuckStore) Trending(ctx context.Context, minScore float64, limit int) ([]*Features, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+`
		 FROM content_features
		 WHERE trending_score > ?
		 ORDER BY trending_score DESC, content_id
		 LIMIT ?`, minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("trending query: %w", err)
	}
	defer rows.Close()

	return collectFeatures(rows)
}

// Close closes the database.
func (s *DuckStore) Close() error {
	return s.db.Close()
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanFeatures scans one row into a Features record.
func scanFeatures(row rowScanner) (*Features, error) {
	var (
		f                        Features
		ctype, level, sentiment  string
		categories, tags, topics string
	)
	err := row.Scan(
		&f.ContentID, &f.Title, &ctype, &categories, &tags, &topics,
		&f.Language, &level, &f.Length, &f.Complexity, &f.RecencyDays,
		&f.Popularity, &sentiment, &f.TrendingScore, &f.AuthorCredibility,
		&f.TechnicalDepth, &f.MarketRelevance, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.Type = Type(ctype)
	f.ReadingLevel = ReadingLevel(level)
	f.Sentiment = Sentiment(sentiment)
	f.Categories = splitList(categories)
	f.Tags = splitList(tags)
	f.Topics = splitList(topics)
	return &f, nil
}

// collectFeatures drains rows into a slice.
func collectFeatures(rows *sql.Rows) ([]*Features, error) {
	var out []*Features
	for rows.Next() {
		f, err := scanFeatures(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content row: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content rows: %w", err)
	}
	return out, nil
}

func joinList(values []string) string {
	return strings.Join(values, listSeparator)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSeparator)
}

var _ Store = (*DuckStore)(nil)
