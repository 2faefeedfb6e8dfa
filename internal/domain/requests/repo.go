package requests

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/labstock/internal/domain"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, req *Request) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = tx.QueryRow(ctx, `
		INSERT INTO material_requests
			(id, category, title, requested_by, transaction_date, schedule_date,
			 suggested_supplier, supplier_email, status, docstatus, auto_created)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at
	`, req.ID, string(req.Category), req.Title, req.RequestedBy, req.TransactionDate, req.ScheduleDate,
		req.SuggestedSupplier, req.SupplierEmail, string(req.Status), int(req.DocStatus), req.AutoCreated,
	).Scan(&req.CreatedAt, &req.UpdatedAt); err != nil {
		return err
	}

	for i := range req.Items {
		it := &req.Items[i]
		if err = tx.QueryRow(ctx, `
			INSERT INTO material_request_items
				(request_id, idx, item_code, item_name, qty, received_qty, location, schedule_date)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING id
		`, req.ID, i+1, it.ItemCode, it.ItemName, it.Qty, it.ReceivedQty, it.Location, it.ScheduleDate,
		).Scan(&it.ID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Get returns the request with its lines (nil, nil if it does not exist).
func (r *Repo) Get(ctx context.Context, id string) (*Request, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, category, title, requested_by, transaction_date, schedule_date,
		       suggested_supplier, supplier_email, status, docstatus, auto_created, created_at, updated_at
		FROM material_requests WHERE id = $1
	`, id)

	var (
		req Request
		doc int
	)
	if err := row.Scan(
		&req.ID, &req.Category, &req.Title, &req.RequestedBy, &req.TransactionDate, &req.ScheduleDate,
		&req.SuggestedSupplier, &req.SupplierEmail, &req.Status, &doc, &req.AutoCreated,
		&req.CreatedAt, &req.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	req.DocStatus = DocStatus(doc)

	rows, err := r.pool.Query(ctx, `
		SELECT id, item_code, item_name, qty, received_qty, location, schedule_date
		FROM material_request_items
		WHERE request_id = $1
		ORDER BY idx
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ItemCode, &it.ItemName, &it.Qty, &it.ReceivedQty, &it.Location, &it.ScheduleDate); err != nil {
			return nil, err
		}
		req.Items = append(req.Items, it)
	}
	return &req, rows.Err()
}

func (r *Repo) UpdateStatus(ctx context.Context, id string, status Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE material_requests SET status = $2, updated_at = now()
		WHERE id = $1 AND docstatus <> 2
	`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Submit finalizes a draft and stores status in the same statement, so
// nothing between the docstatus flip and the status write can reset it.
func (r *Repo) Submit(ctx context.Context, id string, status Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE material_requests SET docstatus = 1, status = $2, updated_at = now()
		WHERE id = $1 AND docstatus = 0
	`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.PreconditionError{Current: "not draft", Required: DocDraft.String(), Msg: "request was finalized concurrently"}
	}
	return nil
}

func (r *Repo) Cancel(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE material_requests SET docstatus = 2, status = $2, updated_at = now()
		WHERE id = $1
	`, id, string(StatusCancelled))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const similarSelect = `
	SELECT mr.id, mri.item_code, mr.suggested_supplier, mr.transaction_date, mr.status,
	       mr.docstatus, mr.category, mri.qty, mri.location
	FROM material_requests mr
	JOIN material_request_items mri ON mri.request_id = mr.id
	WHERE mr.docstatus < 2
	  AND mr.category = 'Purchase'
	  AND mr.transaction_date >= $1
	  AND mr.transaction_date <= $2
`

// FindSimilar returns purchase request lines matching q, most recent first.
func (r *Repo) FindSimilar(ctx context.Context, q SimilarQuery) ([]Similar, error) {
	sql := similarSelect + ` AND mri.item_code = $3`
	args := []any{q.Since, q.Until, q.ItemCode}
	if q.Supplier != "" {
		sql += ` AND mr.suggested_supplier = $4`
		args = append(args, q.Supplier)
	}
	sql += ` ORDER BY mr.transaction_date DESC, mr.created_at DESC`
	return r.querySimilar(ctx, sql, args...)
}

// RecentLines returns every live purchase line dated within [since, until].
// The replenishment scan reads it once per pass.
func (r *Repo) RecentLines(ctx context.Context, since, until time.Time) ([]Similar, error) {
	return r.querySimilar(ctx, similarSelect+` ORDER BY mr.transaction_date DESC`, since, until)
}

func (r *Repo) querySimilar(ctx context.Context, sql string, args ...any) ([]Similar, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Similar
	for rows.Next() {
		var (
			s   Similar
			doc int
		)
		if err := rows.Scan(&s.RequestID, &s.ItemCode, &s.SuggestedSupplier, &s.TransactionDate, &s.Status,
			&doc, &s.Category, &s.Qty, &s.Location); err != nil {
			return nil, err
		}
		s.DocStatus = DocStatus(doc)
		out = append(out, s)
	}
	return out, rows.Err()
}

// HasOpenForSupplier reports whether a submitted, non-cancelled purchase
// request for supplier contains item.
func (r *Repo) HasOpenForSupplier(ctx context.Context, supplier, itemCode string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM material_requests mr
			JOIN material_request_items mri ON mri.request_id = mr.id
			WHERE mr.docstatus = 1
			  AND mr.status <> 'Cancelled'
			  AND mr.suggested_supplier = $1
			  AND mri.item_code = $2
		)
	`, supplier, itemCode).Scan(&ok)
	return ok, err
}

// GetItem returns a single request line (nil, nil if missing).
func (r *Repo) GetItem(ctx context.Context, itemID int64) (*Item, error) {
	var it Item
	err := r.pool.QueryRow(ctx, `
		SELECT id, item_code, item_name, qty, received_qty, location, schedule_date
		FROM material_request_items WHERE id = $1
	`, itemID).Scan(&it.ID, &it.ItemCode, &it.ItemName, &it.Qty, &it.ReceivedQty, &it.Location, &it.ScheduleDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// LastLine returns the most recent live purchase line for item, optionally at
// location (nil, nil if there is none).
func (r *Repo) LastLine(ctx context.Context, itemCode, location string) (*Similar, error) {
	sql := `
		SELECT mr.id, mri.item_code, mr.suggested_supplier, mr.transaction_date, mr.status,
		       mr.docstatus, mr.category, mri.qty, mri.location
		FROM material_requests mr
		JOIN material_request_items mri ON mri.request_id = mr.id
		WHERE mr.docstatus < 2 AND mr.category = 'Purchase' AND mri.item_code = $1`
	args := []any{itemCode}
	if location != "" {
		sql += ` AND mri.location = $2`
		args = append(args, location)
	}
	sql += ` ORDER BY mr.transaction_date DESC, mr.created_at DESC LIMIT 1`

	out, err := r.querySimilar(ctx, sql, args...)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

// ListOpen returns request headers (without lines) in any of statuses that
// are not cancelled, oldest first.
func (r *Repo) ListOpen(ctx context.Context, statuses []Status, limit int) ([]Request, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, category, title, requested_by, transaction_date, schedule_date,
		       suggested_supplier, supplier_email, status, docstatus, auto_created, created_at, updated_at
		FROM material_requests
		WHERE docstatus < 2 AND status = ANY($1)
		ORDER BY transaction_date, created_at
		LIMIT $2
	`, names, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		var (
			req Request
			doc int
		)
		if err := rows.Scan(
			&req.ID, &req.Category, &req.Title, &req.RequestedBy, &req.TransactionDate, &req.ScheduleDate,
			&req.SuggestedSupplier, &req.SupplierEmail, &req.Status, &doc, &req.AutoCreated,
			&req.CreatedAt, &req.UpdatedAt,
		); err != nil {
			return nil, err
		}
		req.DocStatus = DocStatus(doc)
		out = append(out, req)
	}
	return out, rows.Err()
}
