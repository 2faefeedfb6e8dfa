package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

/* Locations */

// EnsureLocation creates the location if missing and returns it.
func (r *Repo) EnsureLocation(ctx context.Context, name string) (*Location, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO locations (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING name, active, created_at
	`, name)
	var l Location
	err := row.Scan(&l.Name, &l.Active, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetLocation(ctx, name)
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) GetLocation(ctx context.Context, name string) (*Location, error) {
	row := r.pool.QueryRow(ctx, `SELECT name, active, created_at FROM locations WHERE name = $1`, name)
	var l Location
	if err := row.Scan(&l.Name, &l.Active, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

/* Items */

func (r *Repo) GetItem(ctx context.Context, code string) (*Item, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT code, name, COALESCE(item_group, ''), stock_uom, lead_time_days, is_stock_item, disabled
		FROM items WHERE code = $1
	`, code)
	var it Item
	if err := row.Scan(&it.Code, &it.Name, &it.Group, &it.StockUOM, &it.LeadTimeDays, &it.IsStockItem, &it.Disabled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &it, nil
}

// ItemGroup returns the group of an item ("" if the item is unknown).
func (r *Repo) ItemGroup(ctx context.Context, code string) (string, error) {
	it, err := r.GetItem(ctx, code)
	if err != nil || it == nil {
		return "", err
	}
	return it.Group, nil
}

// BatchPrefix returns the lot naming prefix of the item's group.
func (r *Repo) BatchPrefix(ctx context.Context, code string) (string, error) {
	var p string
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(g.batch_prefix, '')
		FROM items i
		LEFT JOIN item_groups g ON g.name = i.item_group
		WHERE i.code = $1
	`, code).Scan(&p)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return p, err
}
