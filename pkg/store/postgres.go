package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TryMightyAI/rampart/pkg/ml"
)

// AuditStore writes every issued verdict to Postgres so operators can review
// classification decisions after the fact. It stores verdicts, not models:
// the fitted model itself is never persisted.
type AuditStore struct {
	pool *pgxpool.Pool
}

// AuditRecord is one persisted verdict row.
type AuditRecord struct {
	ID               string    `json:"id"`
	IsHuman          bool      `json:"is_human"`
	HumanProbability float64   `json:"human_probability"`
	RiskScore        float64   `json:"risk_score"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewAuditStore connects to Postgres and creates the verdicts table if it
// does not exist yet.
func NewAuditStore(ctx context.Context, dsn string) (*AuditStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &AuditStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *AuditStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS verdicts (
	id                TEXT PRIMARY KEY,
	is_human          BOOLEAN NOT NULL,
	human_probability DOUBLE PRECISION NOT NULL,
	bot_probability   DOUBLE PRECISION NOT NULL,
	confidence        DOUBLE PRECISION NOT NULL,
	risk_score        DOUBLE PRECISION NOT NULL,
	features          JSONB NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL
)`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure verdicts table: %w", err)
	}
	return nil
}

// Insert appends one verdict to the audit trail.
func (s *AuditStore) Insert(ctx context.Context, v *ml.Verdict) error {
	const q = `
INSERT INTO verdicts (id, is_human, human_probability, bot_probability, confidence, risk_score, features, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`
	_, err := s.pool.Exec(ctx, q,
		v.ID, v.IsHuman, v.HumanProbability, v.BotProbability,
		v.Confidence, v.RiskScore, v.Features, v.Timestamp)
	if err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

// Recent returns the newest audit rows, newest first.
func (s *AuditStore) Recent(ctx context.Context, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, is_human, human_probability, risk_score, created_at
FROM verdicts ORDER BY created_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var r AuditRecord
		if err := rows.Scan(&r.ID, &r.IsHuman, &r.HumanProbability, &r.RiskScore, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan verdict row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close releases the connection pool.
func (s *AuditStore) Close() {
	s.pool.Close()
}
