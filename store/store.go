// Package store archives planned route summaries in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the goose migration files.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const queryTimeout = 5 * time.Second

// RouteSummary is one archived best-path result.
type RouteSummary struct {
	ID             uuid.UUID `json:"id" yaml:"id"`
	RequestID      string    `json:"request_id" yaml:"request_id"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	SegmentIDs     []string  `json:"segment_ids" yaml:"segment_ids"`
	VisitOrder     []int     `json:"visit_order" yaml:"visit_order"`
	TotalDistance  *float64  `json:"total_distance" yaml:"total_distance"`
	SegmentsLength float64   `json:"segments_length" yaml:"segments_length"`
	PointCount     int       `json:"point_count" yaml:"point_count"`
	ConnectorGaps  int       `json:"connector_gaps" yaml:"connector_gaps"`
}

// querier is the part of pgxpool.Pool used by RouteStore.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type RouteStore struct {
	db   querier
	pool *pgxpool.Pool
	log  logrus.FieldLogger
}

// Open connects to databaseURL and applies pending migrations.
func Open(ctx context.Context, databaseURL string, log logrus.FieldLogger) (*RouteStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := Migrate(ctx, databaseURL, log); err != nil {
		pool.Close()
		return nil, err
	}
	return &RouteStore{db: pool, pool: pool, log: log}, nil
}

// Migrate applies all pending migrations. goose needs a *sql.DB, so a short-lived one is
// opened through the pgx stdlib driver.
func Migrate(ctx context.Context, databaseURL string, log logrus.FieldLogger) error {
	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("opening sql.DB for migrations: %w", err)
	}
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, Migrations())
	if err != nil {
		return fmt.Errorf("creating goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", r.Source.Version, r.Source.Path, r.Error)
		}
		log.WithFields(logrus.Fields{
			"version":  r.Source.Version,
			"file":     r.Source.Path,
			"duration": r.Duration,
		}).Info("migration applied")
	}
	if len(results) == 0 {
		log.Debug("all migrations already applied")
	}
	return nil
}

func (s *RouteStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Save inserts a summary, filling in ID and CreatedAt when they are unset.
func (s *RouteStore) Save(ctx context.Context, summary *RouteSummary) error {
	if summary.ID == uuid.Nil {
		summary.ID = uuid.New()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		INSERT INTO planned_routes
			(id, request_id, created_at, segment_ids, visit_order, total_distance, segments_length, point_count, connector_gaps)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		summary.ID.String(), summary.RequestID, summary.CreatedAt, summary.SegmentIDs, summary.VisitOrder,
		summary.TotalDistance, summary.SegmentsLength, summary.PointCount, summary.ConnectorGaps,
	)
	if err != nil {
		return fmt.Errorf("inserting planned route: %w", err)
	}
	return nil
}

// Recent returns up to limit summaries, newest first.
func (s *RouteStore) Recent(ctx context.Context, limit int) ([]RouteSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id::text, request_id, created_at, segment_ids, visit_order, total_distance,
		       segments_length, point_count, connector_gaps
		FROM planned_routes
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying planned routes: %w", err)
	}
	defer rows.Close()

	summaries := make([]RouteSummary, 0, limit)
	for rows.Next() {
		var (
			r  RouteSummary
			id string
		)
		if err := rows.Scan(&id, &r.RequestID, &r.CreatedAt, &r.SegmentIDs, &r.VisitOrder,
			&r.TotalDistance, &r.SegmentsLength, &r.PointCount, &r.ConnectorGaps); err != nil {
			return nil, fmt.Errorf("scanning planned route: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing planned route id: %w", err)
		}
		summaries = append(summaries, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}
