package quality

import (
	"context"
	"errors"
	"testing"

	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/lots"
)

func TestSaveLot_Naming(t *testing.T) {
	t.Parallel()

	f := newFixture(locations())
	for _, want := range []string{"GLY-2025-04-0001", "GLY-2025-04-0002"} {
		out, err := f.svc.SaveLot(context.Background(), &lots.Lot{ItemCode: "GLY-01", CertificateReference: "COA-1"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Lot.ID != want {
			t.Fatalf("expected %s, got %s", want, out.Lot.ID)
		}
		if out.Lot.CertificateStatus != lots.CertificateAttached {
			t.Fatalf("expected default status attached, got %q", out.Lot.CertificateStatus)
		}
	}

	out, err := f.svc.SaveLot(context.Background(), &lots.Lot{ItemCode: "NOPREFIX", CertificateReference: "COA-1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Lot.ID == "" {
		t.Fatalf("expected a generated id")
	}
}

func TestSaveLot_Validation(t *testing.T) {
	t.Parallel()

	expired := now.AddDate(0, 0, -1)
	tests := []struct {
		name  string
		lot   *lots.Lot
		field string
	}{
		{
			name:  "attached without certificate",
			lot:   &lots.Lot{ItemCode: "GLY-01"},
			field: "certificate",
		},
		{
			name:  "pending without reason",
			lot:   &lots.Lot{ItemCode: "GLY-01", CertificateStatus: lots.CertificatePending, MissingCertAuthorizedBy: "qa"},
			field: "missing_certificate_reason",
		},
		{
			name:  "pending with unknown authorizer",
			lot:   &lots.Lot{ItemCode: "GLY-01", CertificateStatus: lots.CertificatePending, MissingCertReason: "late", MissingCertAuthorizedBy: "ghost"},
			field: "missing_certificate_authorized_by",
		},
		{
			name:  "pending with disabled authorizer",
			lot:   &lots.Lot{ItemCode: "GLY-01", CertificateStatus: lots.CertificatePending, MissingCertReason: "late", MissingCertAuthorizedBy: "old"},
			field: "missing_certificate_authorized_by",
		},
		{
			name:  "expired",
			lot:   &lots.Lot{ItemCode: "GLY-01", CertificateReference: "COA-1", ExpiryDate: &expired},
			field: "expiry_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(locations())
			_, err := f.svc.SaveLot(context.Background(), tt.lot)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("expected %s ValidationError, got %v", tt.field, err)
			}
			if len(f.lots.byID) != 0 {
				t.Fatalf("invalid lot must not be stored")
			}
		})
	}
}

func TestSaveLot_PendingCertificateNotifiesOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(locations())
	l := &lots.Lot{ItemCode: "GLY-01", CertificateStatus: lots.CertificatePending, MissingCertReason: "supplier delay", MissingCertAuthorizedBy: "qa"}

	out, err := f.svc.SaveLot(context.Background(), l)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(f.notifier.pending) != 1 || f.notifier.pending[0] != out.Lot.ID {
		t.Fatalf("expected one notification for %s, got %v", out.Lot.ID, f.notifier.pending)
	}

	again := *out.Lot
	again.MissingCertReason = "still waiting"
	if _, err := f.svc.SaveLot(context.Background(), &again); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(f.notifier.pending) != 1 {
		t.Fatalf("expected no second notification, got %v", f.notifier.pending)
	}
}

func TestSaveLot_NotificationFailureIsReported(t *testing.T) {
	t.Parallel()

	f := newFixture(locations())
	f.notifier.err = &domain.NotificationFailure{Channel: "mail", Err: errors.New("timeout")}

	out, err := f.svc.SaveLot(context.Background(), &lots.Lot{
		ItemCode: "GLY-01", CertificateStatus: lots.CertificatePending, MissingCertReason: "late", MissingCertAuthorizedBy: "qa",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(out.Messages) != 1 {
		t.Fatalf("expected failure message, got %v", out.Messages)
	}
	if _, ok := f.lots.byID[out.Lot.ID]; !ok {
		t.Fatalf("lot must be stored despite notification failure")
	}
}
