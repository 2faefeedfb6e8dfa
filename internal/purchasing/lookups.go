package purchasing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/inventory"
	"github.com/Spok95/labstock/internal/domain/receipts"
	"github.com/Spok95/labstock/internal/domain/requests"
)

type StockReader interface {
	Snapshot(ctx context.Context, itemCode, location string) (inventory.Snapshot, error)
	ReorderLevel(ctx context.Context, itemCode, location string) (decimal.Decimal, error)
}

type ReceiptHistory interface {
	LastPurchase(ctx context.Context, itemCode, location string) (*receipts.LastPurchase, error)
}

type RequestHistory interface {
	LastLine(ctx context.Context, itemCode, location string) (*requests.Similar, error)
}

type Lookups struct {
	stock    StockReader
	receipts ReceiptHistory
	requests RequestHistory
}

func NewLookups(stock StockReader, rc ReceiptHistory, rq RequestHistory) *Lookups {
	return &Lookups{stock: stock, receipts: rc, requests: rq}
}

type Projection struct {
	ItemCode     string          `json:"item_code"`
	Location     string          `json:"location"`
	OnHand       decimal.Decimal `json:"on_hand"`
	Incoming     decimal.Decimal `json:"incoming"`
	Reserved     decimal.Decimal `json:"reserved"`
	Projected    decimal.Decimal `json:"projected"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
}

func (l *Lookups) StockProjection(ctx context.Context, itemCode, location string) (*Projection, error) {
	if itemCode == "" {
		return nil, domain.Validation("item_code", "item code is required")
	}
	if location == "" {
		return nil, domain.Validation("location", "location is required")
	}
	snap, err := l.stock.Snapshot(ctx, itemCode, location)
	if err != nil {
		return nil, err
	}
	lvl, err := l.stock.ReorderLevel(ctx, itemCode, location)
	if err != nil {
		return nil, err
	}
	return &Projection{
		ItemCode:     itemCode,
		Location:     location,
		OnHand:       snap.OnHand,
		Incoming:     snap.Incoming,
		Reserved:     snap.Reserved,
		Projected:    snap.Projected(),
		ReorderLevel: lvl,
	}, nil
}

// Purchase is the latest known purchase of an item. Source is "receipt" or
// "request" depending on where it was found.
type Purchase struct {
	Source   string          `json:"source"`
	DocID    string          `json:"doc_id"`
	Supplier string          `json:"supplier"`
	Qty      decimal.Decimal `json:"qty"`
	Date     time.Time       `json:"date"`
}

// LastPurchase prefers submitted receipts and falls back to request lines.
func (l *Lookups) LastPurchase(ctx context.Context, itemCode, location string) (*Purchase, error) {
	if itemCode == "" {
		return nil, domain.Validation("item_code", "item code is required")
	}
	lp, err := l.receipts.LastPurchase(ctx, itemCode, location)
	if err != nil {
		return nil, err
	}
	if lp != nil {
		return &Purchase{Source: "receipt", DocID: lp.ReceiptID, Supplier: lp.Supplier, Qty: lp.Qty, Date: lp.Date}, nil
	}

	line, err := l.requests.LastLine(ctx, itemCode, location)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, domain.ErrNotFound
	}
	return &Purchase{Source: "request", DocID: line.RequestID, Supplier: line.SuggestedSupplier, Qty: line.Qty, Date: line.TransactionDate}, nil
}
