package receipts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/infra/db"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Get(ctx context.Context, id string) (*Receipt, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, supplier, bill_no, bill_date, purchase_type, posting_date, docstatus, workflow_state, created_at, updated_at
		FROM receipts WHERE id = $1
	`, id)
	var (
		rc  Receipt
		doc int
	)
	if err := row.Scan(&rc.ID, &rc.Supplier, &rc.BillNo, &rc.BillDate, &rc.PurchaseType, &rc.PostingDate,
		&doc, &rc.WorkflowState, &rc.CreatedAt, &rc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rc.DocStatus = DocStatus(doc)

	rows, err := r.pool.Query(ctx, `
		SELECT ri.id, ri.idx, ri.item_code, COALESCE(NULLIF(ri.item_group, ''), i.item_group, ''),
		       ri.qty, ri.uom, ri.conversion_factor, ri.location, ri.lot_id,
		       ri.purchase_order, ri.request_id, COALESCE(ri.request_item_id, 0)
		FROM receipt_items ri
		LEFT JOIN items i ON i.code = ri.item_code
		WHERE ri.receipt_id = $1
		ORDER BY ri.idx
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.Idx, &l.ItemCode, &l.ItemGroup, &l.Qty, &l.UOM, &l.ConversionFactor,
			&l.Location, &l.LotID, &l.PurchaseOrder, &l.RequestID, &l.RequestItemID); err != nil {
			return nil, err
		}
		rc.Lines = append(rc.Lines, l)
	}
	return &rc, rows.Err()
}

func (r *Repo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

// Save writes the receipt header and replaces its lines.
func (r *Repo) Save(ctx context.Context, rc *Receipt) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.Q(ctx, r.pool)
		if err := q.QueryRow(ctx, `
			INSERT INTO receipts (id, supplier, bill_no, bill_date, purchase_type, posting_date, docstatus, workflow_state)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (id) DO UPDATE SET
				supplier = EXCLUDED.supplier,
				bill_no = EXCLUDED.bill_no,
				bill_date = EXCLUDED.bill_date,
				purchase_type = EXCLUDED.purchase_type,
				posting_date = EXCLUDED.posting_date,
				docstatus = EXCLUDED.docstatus,
				workflow_state = EXCLUDED.workflow_state,
				updated_at = now()
			RETURNING created_at, updated_at
		`, rc.ID, rc.Supplier, rc.BillNo, rc.BillDate, string(rc.PurchaseType), rc.PostingDate,
			int(rc.DocStatus), string(rc.WorkflowState),
		).Scan(&rc.CreatedAt, &rc.UpdatedAt); err != nil {
			return err
		}

		if _, err := q.Exec(ctx, `DELETE FROM receipt_items WHERE receipt_id = $1`, rc.ID); err != nil {
			return err
		}
		for i := range rc.Lines {
			l := &rc.Lines[i]
			l.Idx = i + 1
			var reqItem *int64
			if l.RequestItemID != 0 {
				reqItem = &l.RequestItemID
			}
			if err := q.QueryRow(ctx, `
				INSERT INTO receipt_items (receipt_id, idx, item_code, item_group, qty, uom, conversion_factor,
				                           location, lot_id, purchase_order, request_id, request_item_id)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
				RETURNING id
			`, rc.ID, l.Idx, l.ItemCode, l.ItemGroup, l.Qty, l.UOM, l.ConversionFactor,
				l.Location, l.LotID, l.PurchaseOrder, l.RequestID, reqItem,
			).Scan(&l.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetWorkflowState moves the receipt from one QA state to another. The row
// is locked and a state other than from is a PreconditionError, so two
// decisions on the same receipt cannot both apply.
func (r *Repo) SetWorkflowState(ctx context.Context, id string, from, to WorkflowState) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.Q(ctx, r.pool)
		var cur WorkflowState
		err := q.QueryRow(ctx, `SELECT workflow_state FROM receipts WHERE id = $1 FOR UPDATE`, id).Scan(&cur)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if cur != from {
			return &domain.PreconditionError{Current: string(cur), Required: string(from),
				Msg: "receipt workflow state changed concurrently"}
		}
		_, err = q.Exec(ctx, `
			UPDATE receipts SET workflow_state = $2, docstatus = $3, updated_at = now() WHERE id = $1
		`, id, string(to), int(DocStatusFor(to)))
		return err
	})
}

// BillExists reports another receipt of supplier carrying billNo.
func (r *Repo) BillExists(ctx context.Context, supplier, billNo, excludeID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM receipts WHERE supplier = $1 AND bill_no = $2 AND id <> $3)
	`, supplier, billNo, excludeID).Scan(&ok)
	return ok, err
}

// LastPurchase is the most recent submitted receipt line for an item.
type LastPurchase struct {
	ReceiptID string
	Supplier  string
	Qty       decimal.Decimal
	Date      time.Time
}

func (r *Repo) LastPurchase(ctx context.Context, itemCode, location string) (*LastPurchase, error) {
	sql := `
		SELECT rc.id, rc.supplier, ri.qty, rc.posting_date
		FROM receipt_items ri
		JOIN receipts rc ON rc.id = ri.receipt_id
		WHERE ri.item_code = $1 AND rc.docstatus = 1`
	args := []any{itemCode}
	if location != "" {
		sql += ` AND ri.location = $2`
		args = append(args, location)
	}
	sql += ` ORDER BY rc.created_at DESC LIMIT 1`

	var lp LastPurchase
	err := r.pool.QueryRow(ctx, sql, args...).Scan(&lp.ReceiptID, &lp.Supplier, &lp.Qty, &lp.Date)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lp, nil
}

// ListByState returns receipt headers in state, oldest first.
func (r *Repo) ListByState(ctx context.Context, state WorkflowState, limit int) ([]Receipt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, supplier, bill_no, bill_date, purchase_type, posting_date, docstatus, workflow_state, created_at, updated_at
		FROM receipts
		WHERE workflow_state = $1
		ORDER BY posting_date, created_at
		LIMIT $2
	`, string(state), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		var (
			rc  Receipt
			doc int
		)
		if err := rows.Scan(&rc.ID, &rc.Supplier, &rc.BillNo, &rc.BillDate, &rc.PurchaseType, &rc.PostingDate,
			&doc, &rc.WorkflowState, &rc.CreatedAt, &rc.UpdatedAt); err != nil {
			return nil, err
		}
		rc.DocStatus = DocStatus(doc)
		out = append(out, rc)
	}
	return out, rows.Err()
}
