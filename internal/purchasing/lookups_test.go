package purchasing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/inventory"
	"github.com/Spok95/labstock/internal/domain/receipts"
	"github.com/Spok95/labstock/internal/domain/requests"
)

type stubStock struct {
	snap  inventory.Snapshot
	level decimal.Decimal
}

func (s stubStock) Snapshot(_ context.Context, item, loc string) (inventory.Snapshot, error) {
	snap := s.snap
	snap.ItemCode, snap.Location = item, loc
	return snap, nil
}

func (s stubStock) ReorderLevel(context.Context, string, string) (decimal.Decimal, error) {
	return s.level, nil
}

type stubReceipts struct{ last *receipts.LastPurchase }

func (s stubReceipts) LastPurchase(context.Context, string, string) (*receipts.LastPurchase, error) {
	return s.last, nil
}

type stubRequests struct{ last *requests.Similar }

func (s stubRequests) LastLine(context.Context, string, string) (*requests.Similar, error) {
	return s.last, nil
}

func TestLookups_StockProjection(t *testing.T) {
	t.Parallel()

	l := NewLookups(stubStock{
		snap:  inventory.Snapshot{OnHand: decimal.NewFromInt(4), Incoming: decimal.NewFromInt(2), Reserved: decimal.NewFromInt(3)},
		level: decimal.NewFromInt(10),
	}, stubReceipts{}, stubRequests{})

	p, err := l.StockProjection(context.Background(), "GLY-01", "Main")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !p.Projected.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected projected 3, got %s", p.Projected)
	}
	if !p.ReorderLevel.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected reorder level 10, got %s", p.ReorderLevel)
	}

	if _, err := l.StockProjection(context.Background(), "GLY-01", ""); err == nil {
		t.Fatalf("expected error for missing location")
	}
}

func TestLookups_LastPurchase(t *testing.T) {
	t.Parallel()

	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	fromReceipt := &receipts.LastPurchase{ReceiptID: "PR-9", Supplier: "ACME", Qty: decimal.NewFromInt(5), Date: day}
	fromRequest := &requests.Similar{RequestID: "MR-3", SuggestedSupplier: "Lab Co", Qty: decimal.NewFromInt(2), TransactionDate: day}

	tests := []struct {
		name    string
		rc      *receipts.LastPurchase
		rq      *requests.Similar
		wantSrc string
		wantDoc string
		wantErr error
	}{
		{name: "receipt wins", rc: fromReceipt, rq: fromRequest, wantSrc: "receipt", wantDoc: "PR-9"},
		{name: "falls back to request", rq: fromRequest, wantSrc: "request", wantDoc: "MR-3"},
		{name: "nothing known", wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := NewLookups(stubStock{}, stubReceipts{last: tt.rc}, stubRequests{last: tt.rq})
			p, err := l.LastPurchase(context.Background(), "GLY-01", "")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if p.Source != tt.wantSrc || p.DocID != tt.wantDoc {
				t.Fatalf("expected %s/%s, got %s/%s", tt.wantSrc, tt.wantDoc, p.Source, p.DocID)
			}
		})
	}
}
