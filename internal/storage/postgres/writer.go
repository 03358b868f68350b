package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"example.com/strategist/internal/domain"
)

var insertColumns = []string{
	"id", "user_id", "brand_name", "industry", "target_audience", "goals", "strategy_output", "created_at",
}

type Writer struct {
	db *DB
}

func NewWriter(db *DB) *Writer { return &Writer{db: db} }

// InsertBatch inserts records in one statement. Rows whose id already exists
// are skipped.
func (w *Writer) InsertBatch(ctx context.Context, items []domain.StrategyRecord) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	sql, args, err := buildInsert(items)
	if err != nil {
		return 0, err
	}
	ct, err := w.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func buildInsert(items []domain.StrategyRecord) (string, []any, error) {
	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*len(insertColumns))

	argi := 1
	for _, rec := range items {
		out, err := json.Marshal(rec.StrategyOutput)
		if err != nil {
			return "", nil, fmt.Errorf("encode strategy %s: %w", rec.ID, err)
		}
		args = append(args,
			rec.ID, rec.UserID, rec.BrandName, rec.Industry, rec.TargetAudience, rec.Goals,
			string(out), rec.CreatedAt,
		)
		ph := make([]string, 0, len(insertColumns))
		for _, col := range insertColumns {
			p := fmt.Sprintf("$%d", argi)
			if col == "strategy_output" {
				p += "::jsonb"
			}
			ph = append(ph, p)
			argi++
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ",")+")")
	}

	sql := "INSERT INTO strategies (" + strings.Join(insertColumns, ",") + ") VALUES " +
		strings.Join(placeholders, ",") +
		" ON CONFLICT (id) DO NOTHING"
	return sql, args, nil
}
