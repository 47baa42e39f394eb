// Package postgres is the postgres backend of the swap registry.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/types"
)

const (
	opTimeout = 10 * time.Second

	uniqueViolation = "23505"
)

const schema = `
CREATE TABLE IF NOT EXISTS swaps (
    order_id         TEXT PRIMARY KEY,
    status           TEXT NOT NULL,
    user_deadline    BIGINT NOT NULL,
    cancel_after     BIGINT NOT NULL,
    secret_shared_at BIGINT NOT NULL DEFAULT 0,
    record           JSONB NOT NULL,
    created_at       BIGINT NOT NULL,
    updated_at       BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS swaps_status_user_deadline ON swaps (status, user_deadline);
CREATE INDEX IF NOT EXISTS swaps_status_cancel_after ON swaps (status, cancel_after);
CREATE INDEX IF NOT EXISTS swaps_status_secret_shared_at ON swaps (status, secret_shared_at);
CREATE TABLE IF NOT EXISTS chain_cursors (
    chain     TEXT PRIMARY KEY,
    height    BIGINT NOT NULL,
    timestamp BIGINT NOT NULL
);
`

var _ registry.Registry = (*Registry)(nil)

// Registry swap registry on postgres
type Registry struct {
	db *sql.DB
}

// NewRegistry open database and ensure schema
func NewRegistry(dsn string) (*Registry, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	ctx, cancel := opContext()
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres init schema: %w", err)
	}
	log.Info("[postgres] registry initialized")
	return &Registry{db: db}, nil
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// CreateSwap add new swap record
func (r *Registry) CreateSwap(rec *types.SwapRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ctx, cancel := opContext()
	defer cancel()
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO swaps (
            order_id, status, user_deadline, cancel_after, secret_shared_at,
            record, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.OrderID,
		rec.Status,
		rec.UserDeadline,
		rec.CancelAfter,
		rec.SecretSharedAt,
		data,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return registry.ErrItemIsDup
		}
		return fmt.Errorf("postgres insert swap: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getSwap(ctx context.Context, q queryer, orderID string, forUpdate bool) (*types.SwapRecord, error) {
	query := `SELECT record FROM swaps WHERE order_id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var data []byte
	err := q.QueryRowContext(ctx, query, orderID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, registry.ErrSwapNotFound
		}
		return nil, fmt.Errorf("postgres get swap: %w", err)
	}
	rec := &types.SwapRecord{}
	if err = json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("postgres decode swap %v: %w", orderID, err)
	}
	return rec, nil
}

// GetSwap get swap record
func (r *Registry) GetSwap(orderID string) (*types.SwapRecord, error) {
	ctx, cancel := opContext()
	defer cancel()
	return getSwap(ctx, r.db, orderID, false)
}

func (r *Registry) modifySwap(orderID string, modify func(rec *types.SwapRecord) error) error {
	ctx, cancel := opContext()
	defer cancel()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := getSwap(ctx, tx, orderID, true)
	if err != nil {
		return err
	}
	if err = modify(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
        UPDATE swaps
            SET status = $2,
                secret_shared_at = $3,
                record = $4,
                updated_at = $5
        WHERE order_id = $1`,
		rec.OrderID,
		rec.Status,
		rec.SecretSharedAt,
		data,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres update swap: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("postgres commit: %w", err)
	}
	return nil
}

// UpdateSwap status guarded update
func (r *Registry) UpdateSwap(orderID string, from types.SwapStatus, update *registry.SwapUpdate) error {
	return r.modifySwap(orderID, func(rec *types.SwapRecord) error {
		if rec.Status != from {
			return fmt.Errorf("%w: expect %v, current %v", registry.ErrStatusMismatch, from, rec.Status)
		}
		update.Apply(rec)
		return nil
	})
}

// SetEscrow set escrow address of leg
func (r *Registry) SetEscrow(orderID string, leg types.SwapLeg, escrow string, timestamp int64) error {
	return r.modifySwap(orderID, func(rec *types.SwapRecord) error {
		if leg == types.LegSource {
			rec.SrcEscrow = escrow
		} else {
			rec.DstEscrow = escrow
		}
		rec.UpdatedAt = timestamp
		return nil
	})
}

func (r *Registry) findSwaps(where string, args ...interface{}) ([]*types.SwapRecord, error) {
	ctx, cancel := opContext()
	defer cancel()
	rows, err := r.db.QueryContext(ctx, "SELECT record FROM swaps WHERE "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query swaps: %w", err)
	}
	defer rows.Close()

	var result []*types.SwapRecord
	for rows.Next() {
		var data []byte
		if err = rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres scan swap: %w", err)
		}
		rec := &types.SwapRecord{}
		if err = json.Unmarshal(data, rec); err != nil {
			return nil, fmt.Errorf("postgres decode swap: %w", err)
		}
		result = append(result, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres iterate swaps: %w", err)
	}
	return result, nil
}

func activeStatuses() []string {
	statuses := make([]string, len(types.ActiveStatuses))
	for i, status := range types.ActiveStatuses {
		statuses[i] = string(status)
	}
	return statuses
}

// FindSwapsByStatus find swaps with status
func (r *Registry) FindSwapsByStatus(status types.SwapStatus) ([]*types.SwapRecord, error) {
	return r.findSwaps("status = $1 ORDER BY created_at", string(status))
}

// FindActiveSwaps find non terminal swaps
func (r *Registry) FindActiveSwaps() ([]*types.SwapRecord, error) {
	return r.findSwaps("status = ANY($1) ORDER BY created_at", pq.Array(activeStatuses()))
}

func (r *Registry) findActiveByColumn(column string, from, to int64) ([]*types.SwapRecord, error) {
	where := strings.Join([]string{
		"status = ANY($1)",
		column + " >= $2",
		column + " < $3",
	}, " AND ") + " ORDER BY " + column
	return r.findSwaps(where, pq.Array(activeStatuses()), from, to)
}

// FindByUserDeadline active swaps with userDeadline in [from, to)
func (r *Registry) FindByUserDeadline(from, to int64) ([]*types.SwapRecord, error) {
	return r.findActiveByColumn("user_deadline", from, to)
}

// FindByCancelAfter active swaps with cancelAfter in [from, to)
func (r *Registry) FindByCancelAfter(from, to int64) ([]*types.SwapRecord, error) {
	return r.findActiveByColumn("cancel_after", from, to)
}

// FindBySecretSharedAt secret_shared swaps with secretSharedAt in [from, to)
func (r *Registry) FindBySecretSharedAt(from, to int64) ([]*types.SwapRecord, error) {
	return r.findSwaps(
		"status = $1 AND secret_shared_at >= $2 AND secret_shared_at < $3 ORDER BY secret_shared_at",
		string(types.StatusSecretShared), from, to)
}

// GetCursor get chain cursor, nil if not exist
func (r *Registry) GetCursor(chain string) (*types.ChainCursor, error) {
	ctx, cancel := opContext()
	defer cancel()
	cursor := &types.ChainCursor{Chain: chain}
	err := r.db.QueryRowContext(ctx,
		`SELECT height, timestamp FROM chain_cursors WHERE chain = $1`, chain,
	).Scan(&cursor.Height, &cursor.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres get cursor: %w", err)
	}
	return cursor, nil
}

// SetCursor save chain cursor
func (r *Registry) SetCursor(cursor *types.ChainCursor) error {
	ctx, cancel := opContext()
	defer cancel()
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO chain_cursors (chain, height, timestamp) VALUES ($1, $2, $3)
        ON CONFLICT (chain) DO UPDATE SET height = $2, timestamp = $3`,
		cursor.Chain, cursor.Height, cursor.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres set cursor: %w", err)
	}
	return nil
}

// Close close database
func (r *Registry) Close() error {
	return r.db.Close()
}
