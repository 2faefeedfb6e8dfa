package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Spok95/labstock/internal/infra/db"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

// apply posts one ledger movement. delta > 0 is stock in, delta < 0 is stock out.
func apply(ctx context.Context, q db.Querier, m Movement, delta decimal.Decimal) error {
	if _, err := q.Exec(ctx, `
		INSERT INTO bins (item_code, location, actual_qty)
		VALUES ($1,$2,$3)
		ON CONFLICT (item_code, location)
		DO UPDATE SET actual_qty = bins.actual_qty + EXCLUDED.actual_qty
	`, m.ItemCode, m.Location, delta); err != nil {
		return err
	}

	_, err := q.Exec(ctx, `
		INSERT INTO movements (item_code, location, lot_id, qty, type, voucher_type, voucher_id, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, m.ItemCode, m.Location, m.LotID, delta, string(m.Type), m.VoucherType, m.VoucherID, m.Note)
	return err
}

// Receive books incoming stock for a voucher (goods receipt). Movements that
// fulfil a request line add to its received quantity, which takes them out
// of the incoming projection.
func (r *Repo) Receive(ctx context.Context, moves []Movement) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.Q(ctx, r.pool)
		for _, m := range moves {
			if !m.Qty.IsPositive() {
				return fmt.Errorf("item %s: qty must be > 0", m.ItemCode)
			}
			m.Type = MoveIn
			if err := apply(ctx, q, m, m.Qty); err != nil {
				return err
			}
			if m.RequestItemID == 0 {
				continue
			}
			if _, err := q.Exec(ctx, `
				UPDATE material_request_items SET received_qty = received_qty + $2 WHERE id = $1
			`, m.RequestItemID, m.Qty); err != nil {
				return fmt.Errorf("request line %d: %w", m.RequestItemID, err)
			}
		}
		return nil
	})
}

// Snapshot projects stock for (item, location). Incoming is what submitted,
// live purchase requests still expect for that location.
func (r *Repo) Snapshot(ctx context.Context, itemCode, location string) (Snapshot, error) {
	s := Snapshot{ItemCode: itemCode, Location: location}
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT actual_qty FROM bins WHERE item_code = $1 AND location = $2), 0),
			COALESCE((SELECT reserved_qty FROM bins WHERE item_code = $1 AND location = $2), 0),
			COALESCE((
				SELECT SUM(GREATEST(mri.qty - mri.received_qty, 0))
				FROM material_request_items mri
				JOIN material_requests mr ON mr.id = mri.request_id
				WHERE mri.item_code = $1 AND mri.location = $2
				  AND mr.docstatus = 1 AND mr.status <> 'Cancelled' AND mr.category = 'Purchase'
			), 0)
	`, itemCode, location).Scan(&s.OnHand, &s.Reserved, &s.Incoming)
	return s, err
}

// ActiveReorderRules lists purchase reorder rules of enabled stock items.
func (r *Repo) ActiveReorderRules(ctx context.Context) ([]ReorderRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rr.item_code, i.name, rr.location, rr.reorder_level, rr.reorder_qty, i.lead_time_days
		FROM reorder_rules rr
		JOIN items i ON i.code = rr.item_code
		WHERE i.disabled = FALSE
		  AND i.is_stock_item = TRUE
		  AND rr.request_category = 'Purchase'
		ORDER BY rr.item_code, rr.location
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReorderRule
	for rows.Next() {
		var rr ReorderRule
		if err := rows.Scan(&rr.ItemCode, &rr.ItemName, &rr.Location, &rr.Threshold, &rr.ReplenishQty, &rr.LeadTimeDays); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// ReorderLevel returns the threshold configured for (item, location), zero if none.
func (r *Repo) ReorderLevel(ctx context.Context, itemCode, location string) (decimal.Decimal, error) {
	var lvl decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT reorder_level FROM reorder_rules WHERE item_code = $1 AND location = $2
	`, itemCode, location).Scan(&lvl)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	return lvl, err
}

// InsertTransfer stores a draft transfer.
func (r *Repo) InsertTransfer(ctx context.Context, t *Transfer) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.Q(ctx, r.pool)
		if err := q.QueryRow(ctx, `
			INSERT INTO transfers (id, purpose, from_location, to_location, receipt_id, remarks, docstatus)
			VALUES ($1,$2,$3,$4,$5,$6,0)
			RETURNING created_at
		`, t.ID, t.Purpose, t.From, t.To, t.ReceiptID, t.Remarks).Scan(&t.CreatedAt); err != nil {
			return err
		}

		for i, l := range t.Lines {
			if _, err := q.Exec(ctx, `
				INSERT INTO transfer_items (transfer_id, idx, item_code, qty, uom, conversion_factor, lot_id, source, target)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			`, t.ID, i+1, l.ItemCode, l.Qty, l.UOM, l.ConversionFactor, l.LotID, l.Source, l.Target); err != nil {
				return err
			}
		}
		t.DocStatus = DocDraft
		return nil
	})
}

// SubmitTransfer finalizes a draft transfer and posts its movements.
func (r *Repo) SubmitTransfer(ctx context.Context, t *Transfer) error {
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.Q(ctx, r.pool)
		tag, err := q.Exec(ctx, `UPDATE transfers SET docstatus = 1 WHERE id = $1 AND docstatus = 0`, t.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("transfer %s is not a draft", t.ID)
		}

		for _, l := range t.Lines {
			qty := l.StockQty()
			out := Movement{ItemCode: l.ItemCode, Location: l.Source, LotID: l.LotID, Type: MoveOut,
				VoucherType: "transfer", VoucherID: t.ID, Note: t.Remarks}
			if err := apply(ctx, q, out, qty.Neg()); err != nil {
				return err
			}
			in := Movement{ItemCode: l.ItemCode, Location: l.Target, LotID: l.LotID, Type: MoveIn,
				VoucherType: "transfer", VoucherID: t.ID, Note: t.Remarks}
			if err := apply(ctx, q, in, qty); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.DocStatus = DocSubmitted
	return nil
}
