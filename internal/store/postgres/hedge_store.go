package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

// DB is the part of *pgxpool.Pool the stores use.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// HedgeStore implements domain.HedgeStore over hedge_results and hedge_legs.
// Decimals are written and read as text so no precision passes through
// float64.
type HedgeStore struct {
	pool DB
}

// NewHedgeStore creates a HedgeStore backed by the given pool.
func NewHedgeStore(pool DB) *HedgeStore {
	return &HedgeStore{pool: pool}
}

const hedgeColumns = `id, coin, size::text, closing, success, outcome,
	COALESCE(leg_a_side, ''), COALESCE(leg_b_side, ''),
	COALESCE(fill_status_a, ''), COALESCE(fill_status_b, ''),
	execution_time_ms, message, error, created_at`

// Save inserts a result and its legs in one transaction. Saving the same id
// twice is a no-op.
func (s *HedgeStore) Save(ctx context.Context, r domain.HedgeResult) error {
	var sideA, sideB, fillA, fillB *string
	if r.Direction != nil {
		a, b := string(r.Direction.LegA), string(r.Direction.LegB)
		sideA, sideB = &a, &b
	}
	if r.FillStatus != nil {
		a, b := string(r.FillStatus.LegA), string(r.FillStatus.LegB)
		fillA, fillB = &a, &b
	}
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO hedge_results (id, coin, size, closing, success, outcome, leg_a_side, leg_b_side,
			fill_status_a, fill_status_b, execution_time_ms, message, error, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.Coin, r.Size.String(), r.Closing, r.Success, string(r.Outcome), sideA, sideB,
		fillA, fillB, r.ExecutionTimeMs, r.Message, r.Error, ts,
	)
	if err != nil {
		return fmt.Errorf("postgres: save hedge %s: insert hedge_result: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	for _, leg := range []struct {
		name string
		res  *domain.LegResult
	}{{"A", r.LegA}, {"B", r.LegB}} {
		if leg.res == nil {
			continue
		}
		l := leg.res
		_, err = tx.Exec(ctx, `
			INSERT INTO hedge_legs (hedge_id, leg, venue, side, price, size, accepted, order_id, status, error)
			VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10)`,
			r.ID, leg.name, string(l.Venue), string(l.Side), l.Price.String(), l.Size.String(),
			l.Accepted, l.OrderID, string(l.Status), l.Error,
		)
		if err != nil {
			return fmt.Errorf("postgres: save hedge %s: insert hedge_leg %s: %w", r.ID, leg.name, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: save hedge %s: commit: %w", r.ID, err)
	}
	return nil
}

// GetByID returns a result with its legs, or domain.ErrNotFound.
func (s *HedgeStore) GetByID(ctx context.Context, id string) (domain.HedgeResult, error) {
	r, err := scanHedge(s.pool.QueryRow(ctx, `SELECT `+hedgeColumns+` FROM hedge_results WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.HedgeResult{}, domain.ErrNotFound
		}
		return domain.HedgeResult{}, fmt.Errorf("postgres: get hedge %s: %w", id, err)
	}
	if err := s.loadLegs(ctx, &r); err != nil {
		return domain.HedgeResult{}, err
	}
	return r, nil
}

// ListRecent returns the newest results without legs.
func (s *HedgeStore) ListRecent(ctx context.Context, limit int) ([]domain.HedgeResult, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.list(ctx, `SELECT `+hedgeColumns+` FROM hedge_results ORDER BY created_at DESC LIMIT $1`, limit)
}

// ListPartial returns partially accepted hedges, newest first, with legs so
// the accepted order ids are available for unwinding.
func (s *HedgeStore) ListPartial(ctx context.Context, opts domain.ListOpts) ([]domain.HedgeResult, error) {
	query := `SELECT ` + hedgeColumns + ` FROM hedge_results WHERE outcome = $1`
	args := []any{string(domain.OutcomePartiallyAccepted)}

	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	list, err := s.list(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if err := s.loadLegs(ctx, &list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (s *HedgeStore) list(ctx context.Context, query string, args ...any) ([]domain.HedgeResult, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list hedges: %w", err)
	}
	defer rows.Close()

	var out []domain.HedgeResult
	for rows.Next() {
		r, err := scanHedge(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan hedge: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list hedges rows: %w", err)
	}
	return out, nil
}

func (s *HedgeStore) loadLegs(ctx context.Context, r *domain.HedgeResult) error {
	rows, err := s.pool.Query(ctx, `
		SELECT leg, venue, side, price::text, size::text, accepted, order_id, status, error
		FROM hedge_legs WHERE hedge_id = $1 ORDER BY leg`, r.ID)
	if err != nil {
		return fmt.Errorf("postgres: get hedge_legs %s: %w", r.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			leg, venue, side, status string
			price, size              string
			l                        domain.LegResult
		)
		if err := rows.Scan(&leg, &venue, &side, &price, &size, &l.Accepted, &l.OrderID, &status, &l.Error); err != nil {
			return fmt.Errorf("postgres: scan hedge_leg: %w", err)
		}
		l.Venue, l.Side, l.Status = domain.Venue(venue), domain.OrderSide(side), domain.OrderStatus(status)
		if l.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("postgres: hedge_leg price %q: %w", price, err)
		}
		if l.Size, err = decimal.NewFromString(size); err != nil {
			return fmt.Errorf("postgres: hedge_leg size %q: %w", size, err)
		}
		switch leg {
		case "A":
			r.LegA = &l
		case "B":
			r.LegB = &l
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if r.LegA != nil && r.LegB != nil {
		r.Prices = &domain.HedgeLegPrice{LegA: r.LegA.Price, LegB: r.LegB.Price}
	}
	return nil
}

func scanHedge(row pgx.Row) (domain.HedgeResult, error) {
	var (
		r                          domain.HedgeResult
		size, outcome              string
		sideA, sideB, fillA, fillB string
	)
	err := row.Scan(&r.ID, &r.Coin, &size, &r.Closing, &r.Success, &outcome, &sideA, &sideB,
		&fillA, &fillB, &r.ExecutionTimeMs, &r.Message, &r.Error, &r.Timestamp)
	if err != nil {
		return domain.HedgeResult{}, err
	}
	if r.Size, err = decimal.NewFromString(size); err != nil {
		return domain.HedgeResult{}, fmt.Errorf("size %q: %w", size, err)
	}
	r.Outcome = domain.HedgeOutcome(outcome)
	if sideA != "" {
		r.Direction = &domain.HedgeDirection{LegA: domain.OrderSide(sideA), LegB: domain.OrderSide(sideB)}
	}
	if fillA != "" {
		r.FillStatus = &domain.FillStatus{LegA: domain.OrderStatus(fillA), LegB: domain.OrderStatus(fillB)}
	}
	return r, nil
}

var _ domain.HedgeStore = (*HedgeStore)(nil)
