package lots

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Get(ctx context.Context, id string) (*Lot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, item_code, expiry_date, certificate_status, certificate_attachment, certificate_reference,
		       missing_certificate_reason, missing_certificate_authorized_by, location, created_at, updated_at
		FROM lots WHERE id = $1
	`, id)
	var l Lot
	if err := row.Scan(&l.ID, &l.ItemCode, &l.ExpiryDate, &l.CertificateStatus, &l.CertificateAttachment,
		&l.CertificateReference, &l.MissingCertReason, &l.MissingCertAuthorizedBy, &l.Location,
		&l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// Save inserts or updates a lot. Lots are superseded, never deleted.
func (r *Repo) Save(ctx context.Context, l *Lot) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO lots (id, item_code, expiry_date, certificate_status, certificate_attachment,
		                  certificate_reference, missing_certificate_reason, missing_certificate_authorized_by, location)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			item_code = EXCLUDED.item_code,
			expiry_date = EXCLUDED.expiry_date,
			certificate_status = EXCLUDED.certificate_status,
			certificate_attachment = EXCLUDED.certificate_attachment,
			certificate_reference = EXCLUDED.certificate_reference,
			missing_certificate_reason = EXCLUDED.missing_certificate_reason,
			missing_certificate_authorized_by = EXCLUDED.missing_certificate_authorized_by,
			location = EXCLUDED.location,
			updated_at = now()
		RETURNING created_at, updated_at
	`, l.ID, l.ItemCode, l.ExpiryDate, string(l.CertificateStatus), l.CertificateAttachment,
		l.CertificateReference, l.MissingCertReason, l.MissingCertAuthorizedBy, l.Location,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
}

// CertificateStatus returns the lot's certificate status ("" if the lot is unknown).
func (r *Repo) CertificateStatus(ctx context.Context, id string) (CertificateStatus, error) {
	var s CertificateStatus
	err := r.pool.QueryRow(ctx, `SELECT certificate_status FROM lots WHERE id = $1`, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return s, err
}
