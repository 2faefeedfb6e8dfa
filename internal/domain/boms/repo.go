package boms

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Get loads a BOM with its items in order. It returns nil when the BOM is unknown.
func (r *Repo) Get(ctx context.Context, id string) (*BOM, error) {
	b := BOM{ID: id}
	err := r.pool.QueryRow(ctx, `SELECT item_code, quantity, active FROM boms WHERE id = $1`, id).
		Scan(&b.ItemCode, &b.Quantity, &b.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT item_code, qty, source_location
		FROM bom_items WHERE bom_id = $1
		ORDER BY idx
	`, id)
	if err != nil {
		return nil, fmt.Errorf("bom items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ItemCode, &it.Qty, &it.SourceLocation); err != nil {
			return nil, err
		}
		b.Items = append(b.Items, it)
	}
	return &b, rows.Err()
}

// Save inserts or replaces a BOM and its items.
func (r *Repo) Save(ctx context.Context, b *BOM) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO boms (id, item_code, quantity, active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET item_code = EXCLUDED.item_code,
			quantity = EXCLUDED.quantity, active = EXCLUDED.active
	`, b.ID, b.ItemCode, b.Quantity, b.Active); err != nil {
		return fmt.Errorf("upsert bom: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM bom_items WHERE bom_id = $1`, b.ID); err != nil {
		return err
	}
	for i, it := range b.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO bom_items (bom_id, idx, item_code, qty, source_location)
			VALUES ($1, $2, $3, $4, $5)
		`, b.ID, i+1, it.ItemCode, it.Qty, it.SourceLocation); err != nil {
			return fmt.Errorf("insert bom item %d: %w", i+1, err)
		}
	}
	return tx.Commit(ctx)
}
