package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PostgresStore implements Store on a PostgreSQL connection pool.
// It creates the audit table and its indexes on startup.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and runs the audit migration.
func NewPostgresStore(ctx context.Context, connURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("audit connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit migrate: %w", err)
	}

	log.Info().Msg("Audit store initialized")
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS pii_audit (
			id              TEXT PRIMARY KEY,
			request_id      TEXT NOT NULL,
			kind            TEXT NOT NULL,
			token           TEXT NOT NULL,
			original_length INT  NOT NULL,
			action          TEXT NOT NULL DEFAULT 'REDACTED',
			position_start  INT,
			position_end    INT,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_pii_audit_request ON pii_audit (request_id);
		CREATE INDEX IF NOT EXISTS idx_pii_audit_kind ON pii_audit (kind);
		CREATE INDEX IF NOT EXISTS idx_pii_audit_created ON pii_audit (created_at);
	`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

func (s *PostgresStore) SaveBatch(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	// One multi-row insert per request batch.
	var sb strings.Builder
	sb.WriteString(`INSERT INTO pii_audit
		(id, request_id, kind, token, original_length, action, position_start, position_end, created_at)
		VALUES `)

	args := make([]interface{}, 0, len(records)*9)
	for i, r := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i*9 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base, base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))

		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		created := r.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		action := r.Action
		if action == "" {
			action = ActionRedacted
		}
		args = append(args, id, r.RequestID, r.Kind, r.Token, r.OriginalLength, action, r.PositionStart, r.PositionEnd, created)
	}

	_, err := s.pool.Exec(ctx, sb.String(), args...)
	return err
}

func (s *PostgresStore) ListByRequest(ctx context.Context, requestID string) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, request_id, kind, token, original_length, action, position_start, position_end, created_at
		FROM pii_audit
		WHERE request_id = $1
		ORDER BY created_at`, requestID)
	if err != nil {
		return nil, fmt.Errorf("audit list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Kind, &r.Token, &r.OriginalLength,
			&r.Action, &r.PositionStart, &r.PositionEnd, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByKind(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT kind, COUNT(*) FROM pii_audit GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("audit count by kind: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("audit scan: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pii_audit WHERE created_at >= $1`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("audit count: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := s.pool.Exec(ctx, `DELETE FROM pii_audit WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit delete: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
