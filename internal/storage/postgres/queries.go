package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/strategist/internal/domain"
)

var ErrNotFound = errors.New("strategy not found")

const selectColumns = "id, user_id, brand_name, industry, target_audience, goals, strategy_output, created_at"

type StatsTotals struct {
	Count int64 `json:"count"`
}

type StatsBucket struct {
	BucketStart int64 `json:"bucket_start"`
	Count       int64 `json:"count"`
}

type Stats struct {
	From    int64         `json:"from"`
	To      int64         `json:"to"`
	Totals  StatsTotals   `json:"totals"`
	Buckets []StatsBucket `json:"buckets"`
}

func scanRecord(row pgx.Row) (domain.StrategyRecord, error) {
	var (
		rec domain.StrategyRecord
		raw []byte
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.BrandName, &rec.Industry, &rec.TargetAudience, &rec.Goals, &raw, &rec.CreatedAt)
	if err != nil {
		return rec, err
	}
	out, err := domain.DecodeStrategyOutput(raw)
	if err != nil {
		return rec, fmt.Errorf("decode strategy %s: %w", rec.ID, err)
	}
	rec.StrategyOutput = out
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// GetStrategy returns the record with id owned by userID. Records owned by
// someone else are reported as ErrNotFound.
func (db *DB) GetStrategy(ctx context.Context, userID, id string) (domain.StrategyRecord, error) {
	row := db.Pool.QueryRow(ctx,
		"SELECT "+selectColumns+" FROM strategies WHERE id=$1 AND user_id=$2", id, userID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StrategyRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.StrategyRecord{}, fmt.Errorf("get strategy: %w", err)
	}
	return rec, nil
}

// ListStrategies returns userID's newest records first.
func (db *DB) ListStrategies(ctx context.Context, userID string, limit int) ([]domain.StrategyRecord, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT "+selectColumns+" FROM strategies WHERE user_id=$1 ORDER BY created_at DESC, id LIMIT $2",
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	defer rows.Close()

	out := make([]domain.StrategyRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// QueryStats counts userID's records created in [from, to] in total and per UTC day.
func (db *DB) QueryStats(ctx context.Context, userID string, from, to time.Time) (Stats, error) {
	res := Stats{From: from.Unix(), To: to.Unix(), Buckets: []StatsBucket{}}
	cond := "WHERE user_id=$1 AND created_at >= $2 AND created_at <= $3"
	args := []any{userID, from, to}

	row := db.Pool.QueryRow(ctx, "SELECT COUNT(*)::bigint FROM strategies "+cond, args...)
	if err := row.Scan(&res.Totals.Count); err != nil {
		return res, fmt.Errorf("scan totals: %w", err)
	}

	sql := fmt.Sprintf(`
SELECT
  EXTRACT(EPOCH FROM date_trunc('day', created_at AT TIME ZONE 'UTC'))::bigint AS bucket_start,
  COUNT(*)::bigint AS cnt
FROM strategies
%s
GROUP BY 1
ORDER BY 1 ASC`, cond)

	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return res, err
	}
	defer rows.Close()

	for rows.Next() {
		var b StatsBucket
		if err := rows.Scan(&b.BucketStart, &b.Count); err != nil {
			return res, fmt.Errorf("scan bucket: %w", err)
		}
		res.Buckets = append(res.Buckets, b)
	}
	return res, rows.Err()
}
