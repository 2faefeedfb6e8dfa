package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestReorderRule_Required(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		rule      ReorderRule
		projected decimal.Decimal
		want      decimal.Decimal
		wantOK    bool
	}{
		{name: "deficiency below replenish qty", rule: ReorderRule{Threshold: d(10), ReplenishQty: d(5)}, projected: d(3), want: d(7), wantOK: true},
		{name: "replenish qty wins", rule: ReorderRule{Threshold: d(10), ReplenishQty: d(50)}, projected: d(8), want: d(50), wantOK: true},
		{name: "at threshold orders replenish qty", rule: ReorderRule{Threshold: d(10), ReplenishQty: d(5)}, projected: d(10), want: d(5), wantOK: true},
		{name: "above threshold", rule: ReorderRule{Threshold: d(10), ReplenishQty: d(5)}, projected: d(11)},
		{name: "negative projection", rule: ReorderRule{Threshold: d(10)}, projected: d(-4), want: d(14), wantOK: true},
		{name: "nothing required", rule: ReorderRule{Threshold: d(0), ReplenishQty: d(0)}, projected: d(0)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tt.rule.Required(tt.projected)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSnapshot_Projected(t *testing.T) {
	t.Parallel()

	s := Snapshot{OnHand: d(4), Incoming: d(6), Reserved: d(3)}
	if !s.Projected().Equal(d(7)) {
		t.Fatalf("expected 7, got %s", s.Projected())
	}
}

func TestTransferLine_StockQty(t *testing.T) {
	t.Parallel()

	if got := (TransferLine{Qty: d(3)}).StockQty(); !got.Equal(d(3)) {
		t.Fatalf("expected 3, got %s", got)
	}
	if got := (TransferLine{Qty: d(3), ConversionFactor: d(12)}).StockQty(); !got.Equal(d(36)) {
		t.Fatalf("expected 36, got %s", got)
	}
}

func TestLocations_Target(t *testing.T) {
	t.Parallel()

	l := Locations{Quarantine: "Q", Approved: "OK", Rejected: "NO"}
	if l.Target(true) != "OK" || l.Target(false) != "NO" {
		t.Fatalf("unexpected targets")
	}
}
