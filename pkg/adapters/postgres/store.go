package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aretw0/petri/pkg/domain"
)

// Store implements ports.SubjectStore on PostgreSQL.
// Subjects of all experiments share one table keyed by (experiment, id), so
// a single database serves many dishes.
type Store struct {
	pool       *pgxpool.Pool
	experiment string
}

// NewPool opens a pgx pool for the given DSN and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// New creates a store bound to one experiment.
func New(pool *pgxpool.Pool, experiment string) *Store {
	return &Store{pool: pool, experiment: experiment}
}

// Migrate creates the subjects table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS subjects (
			experiment  TEXT        NOT NULL,
			id          TEXT        NOT NULL,
			attributes  JSONB       NOT NULL DEFAULT '{}',
			group_label TEXT        NOT NULL DEFAULT '',
			stage       TEXT        NOT NULL,
			joined      TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (experiment, id)
		)
	`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create subjects table: %w", err)
	}
	return nil
}

// Fetch returns the experiment population ordered by ID.
func (s *Store) Fetch(ctx context.Context) ([]domain.Subject, error) {
	query := `
		SELECT id, attributes, group_label, stage, joined
		FROM subjects
		WHERE experiment = $1
		ORDER BY id
	`
	rows, err := s.pool.Query(ctx, query, s.experiment)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	subjects := []domain.Subject{}
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, *subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return subjects, nil
}

// Write upserts the batch inside one transaction.
func (s *Store) Write(ctx context.Context, subjects []domain.Subject) error {
	if len(subjects) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO subjects (experiment, id, attributes, group_label, stage, joined)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (experiment, id) DO UPDATE SET
			attributes  = EXCLUDED.attributes,
			group_label = EXCLUDED.group_label,
			stage       = EXCLUDED.stage,
			joined      = EXCLUDED.joined,
			updated_at  = now()
	`
	for i := range subjects {
		attrs, err := json.Marshal(subjects[i].Attributes)
		if err != nil {
			return fmt.Errorf("marshal attributes: %w", err)
		}
		_, err = tx.Exec(ctx, query,
			s.experiment,
			subjects[i].ID,
			attrs,
			subjects[i].Group,
			subjects[i].Stage,
			subjects[i].Joined,
		)
		if err != nil {
			return fmt.Errorf("upsert subject %s: %w", subjects[i].ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get retrieves a single subject.
func (s *Store) Get(ctx context.Context, id string) (*domain.Subject, error) {
	query := `
		SELECT id, attributes, group_label, stage, joined
		FROM subjects
		WHERE experiment = $1 AND id = $2
	`
	subject, err := scanSubject(s.pool.QueryRow(ctx, query, s.experiment, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSubjectNotFound
	}
	return subject, err
}

// Delete removes a subject. Deleting an unknown ID is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM subjects WHERE experiment = $1 AND id = $2`
	if _, err := s.pool.Exec(ctx, query, s.experiment, id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (*domain.Subject, error) {
	var (
		subject domain.Subject
		attrs   []byte
	)
	err := row.Scan(&subject.ID, &attrs, &subject.Group, &subject.Stage, &subject.Joined)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan subject: %w", err)
	}
	if err := json.Unmarshal(attrs, &subject.Attributes); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	return &subject, nil
}
