package lots

import (
	"time"

	"github.com/Spok95/labstock/internal/domain"
)

type CertificateStatus string

const (
	CertificateAttached CertificateStatus = "attached"
	CertificatePending  CertificateStatus = "pending"
)

// Lot is a traceable batch of received stock.
type Lot struct {
	ID                      string
	ItemCode                string
	ExpiryDate              *time.Time
	CertificateStatus       CertificateStatus
	CertificateAttachment   string
	CertificateReference    string
	MissingCertReason       string
	MissingCertAuthorizedBy string
	Location                string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Normalize applies the default certificate status.
func (l *Lot) Normalize() {
	if l.CertificateStatus == "" {
		l.CertificateStatus = CertificateAttached
	}
}

// Validate enforces the certificate and expiry rules for a save on day today.
func Validate(l *Lot, today time.Time) error {
	if l.ID == "" {
		return domain.Validation("id", "lot id is required")
	}
	if l.ItemCode == "" {
		return domain.Validation("item_code", "item is required")
	}

	switch l.CertificateStatus {
	case CertificateAttached:
		if l.CertificateAttachment == "" && l.CertificateReference == "" {
			return domain.Validation("certificate", "either certificate attachment or reference number is mandatory when status is attached")
		}
	case CertificatePending:
		if l.MissingCertReason == "" {
			return domain.Validation("missing_certificate_reason", "reason is mandatory when the certificate is pending")
		}
		if l.MissingCertAuthorizedBy == "" {
			return domain.Validation("missing_certificate_authorized_by", "authorizing user is mandatory when the certificate is pending")
		}
	default:
		return domain.Validation("certificate_status", "unknown certificate status %q", l.CertificateStatus)
	}

	if l.ExpiryDate != nil && !l.ExpiryDate.After(today) {
		return domain.Validation("expiry_date", "expiry date must be greater than today")
	}
	return nil
}

// BecamePending reports a transition into pending between two saves.
// prev is nil for a new lot.
func BecamePending(prev, cur *Lot) bool {
	if cur.CertificateStatus != CertificatePending {
		return false
	}
	return prev == nil || prev.CertificateStatus != CertificatePending
}
