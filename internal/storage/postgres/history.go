package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/azdice/internal/dice"
)

// MaxHistoryLimit caps how many rows one history query returns.
const MaxHistoryLimit = 1000

// ErrInvalidLimit is returned when a query limit is outside [1, MaxHistoryLimit].
var ErrInvalidLimit = errors.New("limit must be between 1 and 1000")

// ErrNoHistory is returned by Stats when an expression has never been recorded.
var ErrNoHistory = errors.New("no history for expression")

// RollRecord is one persisted roll.
type RollRecord struct {
	ID         uuid.UUID
	Expression string
	Source     string
	Groups     []int64
	Bonus      int64
	Total      int64
	RolledAt   time.Time
}

// HistoryStats aggregates the recorded totals of one expression.
type HistoryStats struct {
	Expression string
	Count      int64
	Mean       float64
	Min        int64
	Max        int64
}

// NewRollRecord builds an unsaved record from a roll summary.
//
// Postcondition: ID is a fresh random UUID and RolledAt is zero until saved.
func NewRollRecord(expr, source string, s dice.Summary) RollRecord {
	groups := s.Groups
	if groups == nil {
		groups = []int64{}
	}
	return RollRecord{
		ID:         uuid.New(),
		Expression: expr,
		Source:     source,
		Groups:     groups,
		Bonus:      s.Bonus,
		Total:      s.Total,
	}
}

// HistoryRepository provides roll history persistence operations.
type HistoryRepository struct {
	db *pgxpool.Pool
}

// NewHistoryRepository creates a HistoryRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewHistoryRepository(db *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record inserts one roll.
//
// Precondition: expr must be the canonical text of the rolled bag.
// Postcondition: Returns the stored record with ID and RolledAt set.
func (r *HistoryRepository) Record(ctx context.Context, expr, source string, s dice.Summary) (RollRecord, error) {
	rec := NewRollRecord(expr, source, s)
	err := r.db.QueryRow(ctx,
		`INSERT INTO roll_history (id, expression, source, groups, bonus, total)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING rolled_at`,
		rec.ID, rec.Expression, rec.Source, rec.Groups, rec.Bonus, rec.Total,
	).Scan(&rec.RolledAt)
	if err != nil {
		return RollRecord{}, fmt.Errorf("inserting roll: %w", err)
	}
	return rec, nil
}

// RecordMany bulk-inserts rolls of one expression with COPY.
//
// Postcondition: Returns the number of rows written.
func (r *HistoryRepository) RecordMany(ctx context.Context, expr, source string, rolls []dice.Summary) (int64, error) {
	if len(rolls) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"roll_history"},
		[]string{"id", "expression", "source", "groups", "bonus", "total", "rolled_at"},
		pgx.CopyFromSlice(len(rolls), func(i int) ([]any, error) {
			rec := NewRollRecord(expr, source, rolls[i])
			return []any{rec.ID, rec.Expression, rec.Source, rec.Groups, rec.Bonus, rec.Total, now}, nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("copying rolls: %w", err)
	}
	return n, nil
}

// Recent returns the most recent rolls, newest first.
//
// Precondition: 1 <= limit <= MaxHistoryLimit.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]RollRecord, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, expression, source, groups, bonus, total, rolled_at
		 FROM roll_history ORDER BY rolled_at DESC, id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent rolls: %w", err)
	}
	return collectRecords(rows)
}

// ByExpression returns the most recent rolls of expr, newest first.
//
// Precondition: 1 <= limit <= MaxHistoryLimit.
func (r *HistoryRepository) ByExpression(ctx context.Context, expr string, limit int) ([]RollRecord, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, expression, source, groups, bonus, total, rolled_at
		 FROM roll_history WHERE expression = $1
		 ORDER BY rolled_at DESC, id LIMIT $2`,
		expr, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying rolls of %q: %w", expr, err)
	}
	return collectRecords(rows)
}

// Stats aggregates every recorded total of expr.
//
// Postcondition: Returns ErrNoHistory if expr was never recorded.
func (r *HistoryRepository) Stats(ctx context.Context, expr string) (HistoryStats, error) {
	st := HistoryStats{Expression: expr}
	var mean *float64
	var lo, hi *int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), AVG(total)::float8, MIN(total), MAX(total)
		 FROM roll_history WHERE expression = $1`,
		expr,
	).Scan(&st.Count, &mean, &lo, &hi)
	if err != nil {
		return HistoryStats{}, fmt.Errorf("aggregating rolls of %q: %w", expr, err)
	}
	if st.Count == 0 {
		return HistoryStats{}, ErrNoHistory
	}
	st.Mean, st.Min, st.Max = *mean, *lo, *hi
	return st, nil
}

// Purge deletes rolls older than before and returns how many were removed.
func (r *HistoryRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM roll_history WHERE rolled_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purging rolls: %w", err)
	}
	return tag.RowsAffected(), nil
}

func checkLimit(limit int) error {
	if limit < 1 || limit > MaxHistoryLimit {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	return nil
}

func collectRecords(rows pgx.Rows) ([]RollRecord, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RollRecord, error) {
		var rec RollRecord
		err := row.Scan(&rec.ID, &rec.Expression, &rec.Source, &rec.Groups, &rec.Bonus, &rec.Total, &rec.RolledAt)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning rolls: %w", err)
	}
	return out, nil
}
