package replenish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/labstock/internal/clock"
	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/boms"
	"github.com/Spok95/labstock/internal/domain/catalog"
	"github.com/Spok95/labstock/internal/domain/inventory"
	"github.com/Spok95/labstock/internal/domain/requests"
)

type BOMs interface {
	Get(ctx context.Context, id string) (*boms.BOM, error)
}

type Stock interface {
	Snapshot(ctx context.Context, itemCode, location string) (inventory.Snapshot, error)
}

type Catalog interface {
	GetItem(ctx context.Context, code string) (*catalog.Item, error)
	GetLocation(ctx context.Context, name string) (*catalog.Location, error)
}

// WorkOrder is a planned production run. SourceLocation applies to BOM
// items that do not name their own.
type WorkOrder struct {
	BOM            string          `json:"bom"`
	Qty            decimal.Decimal `json:"qty"`
	SourceLocation string          `json:"source_location"`
}

type Shortage struct {
	ItemCode  string          `json:"item_code"`
	Location  string          `json:"location"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
	Shortage  decimal.Decimal `json:"shortage"`
	RequestID string          `json:"request_id,omitempty"`
	Skipped   string          `json:"skipped,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type ProductionReport struct {
	BOM       string     `json:"bom"`
	Checked   int        `json:"checked"`
	Shortages []Shortage `json:"shortages"`
	Created   []string   `json:"created"`
}

// ProductionCheck compares a work order's component needs with projected
// stock and raises purchase requests for what is short.
type ProductionCheck struct {
	boms     BOMs
	stock    Stock
	catalog  Catalog
	history  History
	creator  Creator
	clock    clock.Clock
	log      *slog.Logger
	settings Settings
}

func NewProductionCheck(b BOMs, st Stock, cat Catalog, h History, c Creator, clk clock.Clock, log *slog.Logger, s Settings) *ProductionCheck {
	if s.DuplicateWindowDays < 0 {
		s.DuplicateWindowDays = requests.DefaultSimilarWindowDays
	}
	if s.DefaultLeadDays <= 0 {
		s.DefaultLeadDays = 7
	}
	return &ProductionCheck{boms: b, stock: st, catalog: cat, history: h, creator: c, clock: clk, log: log, settings: s}
}

type component struct {
	item     boms.Item
	location string
	required decimal.Decimal
}

func (p *ProductionCheck) Run(ctx context.Context, wo WorkOrder) (*ProductionReport, error) {
	wo.BOM = strings.TrimSpace(wo.BOM)
	wo.SourceLocation = strings.TrimSpace(wo.SourceLocation)
	if wo.BOM == "" {
		return nil, domain.Validation("bom", "bom is required")
	}
	if !wo.Qty.IsPositive() {
		return nil, domain.Validation("qty", "production qty must be positive")
	}

	b, err := p.boms.Get(ctx, wo.BOM)
	if err != nil {
		return nil, fmt.Errorf("load bom %s: %w", wo.BOM, err)
	}
	if b == nil {
		return nil, fmt.Errorf("bom %s: %w", wo.BOM, domain.ErrNotFound)
	}
	if !b.Active {
		return nil, domain.Validation("bom", "bom %s is not active", wo.BOM)
	}

	// components without any location are not stock-checked
	var comps []component
	seen := map[string]bool{}
	for _, it := range b.Items {
		loc := it.SourceLocation
		if loc == "" {
			loc = wo.SourceLocation
		}
		if loc == "" {
			continue
		}
		if !seen[loc] {
			if err := p.checkLocation(ctx, loc); err != nil {
				return nil, err
			}
			seen[loc] = true
		}
		comps = append(comps, component{item: it, location: loc, required: b.Required(it, wo.Qty)})
	}

	rep := &ProductionReport{BOM: b.ID, Checked: len(comps)}

	today := clock.Today(p.clock)
	existing, err := p.history.RecentLines(ctx, clock.AddDays(today, -p.settings.DuplicateWindowDays), today)
	if err != nil {
		return nil, fmt.Errorf("load recent requests: %w", err)
	}

	for _, c := range comps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		snap, err := p.stock.Snapshot(ctx, c.item.ItemCode, c.location)
		if err != nil {
			return nil, fmt.Errorf("stock projection %s: %w", c.item.ItemCode, err)
		}
		available := snap.Projected()
		if !available.LessThan(c.required) {
			continue
		}
		sh := Shortage{
			ItemCode:  c.item.ItemCode,
			Location:  c.location,
			Required:  c.required,
			Available: available,
			Shortage:  c.required.Sub(available),
		}

		q := requests.Window(c.item.ItemCode, "", today, p.settings.DuplicateWindowDays)
		if dup := requests.FilterSimilar(existing, q); len(dup) > 0 {
			sh.Skipped = SkipDuplicate
			p.log.Info("shortage skipped, similar request exists", "item", sh.ItemCode, "request", dup[0].RequestID)
			rep.Shortages = append(rep.Shortages, sh)
			continue
		}

		created, err := p.request(ctx, sh, today)
		if err != nil {
			p.log.Error("shortage request failed", "bom", b.ID, "item", sh.ItemCode, "err", err)
			sh.Error = err.Error()
			rep.Shortages = append(rep.Shortages, sh)
			continue
		}
		sh.RequestID = created.ID
		rep.Created = append(rep.Created, created.ID)
		existing = append(existing, requests.SimilarFromRequest(created)...)
		rep.Shortages = append(rep.Shortages, sh)
	}

	p.log.Info("production check finished",
		"bom", b.ID, "qty", wo.Qty.String(), "shortages", len(rep.Shortages), "created", len(rep.Created))
	return rep, nil
}

func (p *ProductionCheck) checkLocation(ctx context.Context, name string) error {
	l, err := p.catalog.GetLocation(ctx, name)
	if err != nil {
		return fmt.Errorf("location %s: %w", name, err)
	}
	if l == nil {
		return domain.Validation("source_location", "location %s does not exist", name)
	}
	if !l.Active {
		return domain.Validation("source_location", "location %s is inactive", name)
	}
	return nil
}

func (p *ProductionCheck) request(ctx context.Context, sh Shortage, today time.Time) (*requests.Request, error) {
	name, lead := sh.ItemCode, p.settings.DefaultLeadDays
	it, err := p.catalog.GetItem(ctx, sh.ItemCode)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", sh.ItemCode, err)
	}
	if it != nil {
		name = it.Name
		if it.LeadTimeDays > 0 {
			lead = it.LeadTimeDays
		}
	}
	needBy := clock.AddDays(today, lead)

	out, err := p.creator.CreateAutomatic(ctx, &requests.Request{
		Category:        requests.CategoryPurchase,
		TransactionDate: today,
		ScheduleDate:    needBy,
		RequestedBy:     "production",
		Items: []requests.Item{{
			ItemCode:     sh.ItemCode,
			ItemName:     name,
			Qty:          sh.Shortage,
			Location:     sh.Location,
			ScheduleDate: needBy,
		}},
	})
	if err != nil {
		return nil, err
	}
	for _, w := range out.Warnings {
		p.log.Warn("auto request warning", "request", out.Request.ID, "warning", w)
	}
	return out.Request, nil
}
