package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

type MoveType string

const (
	MoveIn  MoveType = "in"
	MoveOut MoveType = "out"
)

type Movement struct {
	ID          int64
	CreatedAt   time.Time
	ItemCode    string
	Location    string
	LotID       string
	Qty         decimal.Decimal
	Type        MoveType
	VoucherType string
	VoucherID   string
	Note        string

	RequestItemID int64 // request line this movement fulfils, 0 if none
}

// Locations names the quarantine flow's stock locations.
type Locations struct {
	Quarantine string
	Approved   string
	Rejected   string
}

// Target returns the disposition location for a QA decision ("" if unset).
func (l Locations) Target(approved bool) string {
	if approved {
		return l.Approved
	}
	return l.Rejected
}

// Snapshot is the read-only stock projection for one (item, location).
type Snapshot struct {
	ItemCode string
	Location string
	OnHand   decimal.Decimal
	Incoming decimal.Decimal
	Reserved decimal.Decimal
}

func (s Snapshot) Projected() decimal.Decimal {
	return s.OnHand.Add(s.Incoming).Sub(s.Reserved)
}

type ReorderRule struct {
	ItemCode     string
	ItemName     string
	Location     string
	Threshold    decimal.Decimal
	ReplenishQty decimal.Decimal
	LeadTimeDays int
}

// Required computes the quantity to request for a projection, and whether a
// request is due at all.
func (r ReorderRule) Required(projected decimal.Decimal) (decimal.Decimal, bool) {
	if projected.GreaterThan(r.Threshold) {
		return decimal.Zero, false
	}
	deficiency := r.Threshold.Sub(projected)
	required := decimal.Max(deficiency, r.ReplenishQty)
	if !required.IsPositive() {
		return decimal.Zero, false
	}
	return required, true
}

const PurposeMaterialTransfer = "Material Transfer"

type DocStatus int

const (
	DocDraft     DocStatus = 0
	DocSubmitted DocStatus = 1
)

// Transfer is a location-transfer record (stock entry).
type Transfer struct {
	ID        string
	Purpose   string
	From      string
	To        string
	ReceiptID string
	Remarks   string
	DocStatus DocStatus
	Lines     []TransferLine
	CreatedAt time.Time
}

type TransferLine struct {
	ItemCode         string
	Qty              decimal.Decimal
	UOM              string
	ConversionFactor decimal.Decimal
	LotID            string
	Source           string
	Target           string
}

// StockQty is the line quantity in the item's stock unit.
func (l TransferLine) StockQty() decimal.Decimal {
	if l.ConversionFactor.IsZero() {
		return l.Qty
	}
	return l.Qty.Mul(l.ConversionFactor)
}
