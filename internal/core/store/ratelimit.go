package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/namelens/handlescan/internal/core"
)

// RateLimitEntry is one host's persisted rate state.
type RateLimitEntry struct {
	Host  string              `json:"host"`
	State core.RateLimitState `json:"state"`
}

// RateLimitQuery selects hosts for listing or reset.
type RateLimitQuery struct {
	All bool
	// Host matches one host exactly.
	Host string
	// Domain matches the domain and all of its subdomains.
	Domain string
	// BackoffOnly restricts results to hosts with a backoff window set.
	BackoffOnly bool
}

// Validate requires an explicit selector so resets are never accidental.
func (q RateLimitQuery) Validate() error {
	if q.All || strings.TrimSpace(q.Host) != "" || strings.TrimSpace(q.Domain) != "" {
		return nil
	}
	return errors.New("must specify --all, --host, or --domain")
}

func (q RateLimitQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var clauses []string
	var args []any
	switch {
	case q.All:
	case strings.TrimSpace(q.Host) != "":
		clauses = append(clauses, "host = ?")
		args = append(args, normalizeHost(q.Host))
	default:
		domain := normalizeHost(q.Domain)
		clauses = append(clauses, "(host = ? OR host LIKE ?)")
		args = append(args, domain, "%."+domain)
	}
	if q.BackoffOnly {
		clauses = append(clauses, "backoff_until IS NOT NULL")
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}

// GetRateLimit returns stored rate limit state for a host.
func (s *Store) GetRateLimit(ctx context.Context, host string) (*core.RateLimitState, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	host = normalizeHost(host)
	if host == "" {
		return nil, errors.New("host is required")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT host, request_count, window_start, backoff_until, last_429_at
		FROM rate_limits
		WHERE host = ?
	`, host)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch rate limit: %w", err)
	}
	return &entry.State, nil
}

// UpdateRateLimit persists rate limit state for a host.
func (s *Store) UpdateRateLimit(ctx context.Context, host string, state *core.RateLimitState) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	host = normalizeHost(host)
	if host == "" {
		return errors.New("host is required")
	}
	if state == nil {
		return errors.New("rate limit state is required")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO rate_limits (host, request_count, window_start, backoff_until, last_429_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(host) DO UPDATE SET
			request_count = excluded.request_count,
			window_start = excluded.window_start,
			backoff_until = excluded.backoff_until,
			last_429_at = excluded.last_429_at
	`, host, state.RequestCount, state.WindowStart.UTC().Unix(), nullableUnix(state.BackoffUntil), nullableUnix(state.Last429At))
	if err != nil {
		return fmt.Errorf("store rate limit: %w", err)
	}
	return nil
}

// ListRateLimits returns the selected entries ordered by host.
func (s *Store) ListRateLimits(ctx context.Context, q RateLimitQuery) ([]RateLimitEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT host, request_count, window_start, backoff_until, last_429_at
		FROM rate_limits
		%s
		ORDER BY host
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []RateLimitEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rate limits: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}

	return entries, nil
}

// ResetRateLimits deletes the selected entries and returns how many were removed.
func (s *Store) ResetRateLimits(ctx context.Context, q RateLimitQuery) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM rate_limits %s`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}
	return affected, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (RateLimitEntry, error) {
	var (
		host         string
		requestCount int
		windowStart  int64
		backoffUntil sql.NullInt64
		last429At    sql.NullInt64
	)
	if err := row.Scan(&host, &requestCount, &windowStart, &backoffUntil, &last429At); err != nil {
		return RateLimitEntry{}, err
	}

	return RateLimitEntry{
		Host: host,
		State: core.RateLimitState{
			RequestCount: requestCount,
			WindowStart:  time.Unix(windowStart, 0).UTC(),
			BackoffUntil: timeFromNullable(backoffUntil),
			Last429At:    timeFromNullable(last429At),
		},
	}, nil
}

func nullableUnix(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: value.UTC().Unix(), Valid: true}
}

func timeFromNullable(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := time.Unix(value.Int64, 0).UTC()
	return &t
}

func normalizeHost(host string) string {
	return strings.ToLower(strings.TrimSpace(host))
}
