package replenish

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Spok95/labstock/internal/clock"
	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/boms"
	"github.com/Spok95/labstock/internal/domain/catalog"
	"github.com/Spok95/labstock/internal/domain/inventory"
	"github.com/Spok95/labstock/internal/domain/requests"
)

type stubBOMs map[string]*boms.BOM

func (s stubBOMs) Get(_ context.Context, id string) (*boms.BOM, error) { return s[id], nil }

type stubCatalog struct {
	items     map[string]*catalog.Item
	locations map[string]*catalog.Location
}

func (c stubCatalog) GetItem(_ context.Context, code string) (*catalog.Item, error) {
	return c.items[code], nil
}

func (c stubCatalog) GetLocation(_ context.Context, name string) (*catalog.Location, error) {
	return c.locations[name], nil
}

func creamBOM() stubBOMs {
	return stubBOMs{"BOM-CRM": {
		ID: "BOM-CRM", ItemCode: "CRM-50", Quantity: dec(10), Active: true,
		Items: []boms.Item{
			{ItemCode: "GLY-01", Qty: dec(2), SourceLocation: "Raw Store"},
			{ItemCode: "BOT-50", Qty: dec(10)},
			{ItemCode: "LBL-50", Qty: dec(10)},
		},
	}}
}

func newCheck(b stubBOMs, rules *stubRules, st *store, cat stubCatalog) *ProductionCheck {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProductionCheck(b, rules, cat, st, st, clock.NewFixed(now), log, Settings{DuplicateWindowDays: 3})
}

func activeLocations(names ...string) map[string]*catalog.Location {
	out := map[string]*catalog.Location{}
	for _, n := range names {
		out[n] = &catalog.Location{Name: n, Active: true}
	}
	return out
}

func TestProductionCheck_CreatesRequestsForShortages(t *testing.T) {
	t.Parallel()

	rules := &stubRules{snaps: map[string]inventory.Snapshot{
		"GLY-01|Raw Store":  {OnHand: dec(4)},
		"BOT-50|Pack Store": {OnHand: dec(30), Incoming: dec(10)},
		"LBL-50|Pack Store": {OnHand: dec(100)},
	}}
	st := &store{}
	cat := stubCatalog{
		items:     map[string]*catalog.Item{"GLY-01": {Code: "GLY-01", Name: "Glycerin", LeadTimeDays: 5}},
		locations: activeLocations("Raw Store", "Pack Store"),
	}

	rep, err := newCheck(creamBOM(), rules, st, cat).Run(context.Background(),
		WorkOrder{BOM: "BOM-CRM", Qty: dec(50), SourceLocation: "Pack Store"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rep.Checked != 3 {
		t.Fatalf("expected 3 components checked, got %d", rep.Checked)
	}
	if len(rep.Shortages) != 2 || len(rep.Created) != 2 {
		t.Fatalf("expected 2 shortages with requests, got %+v", rep)
	}

	gly := rep.Shortages[0]
	if gly.ItemCode != "GLY-01" || !gly.Required.Equal(dec(10)) || !gly.Shortage.Equal(dec(6)) {
		t.Fatalf("unexpected glycerin shortage %+v", gly)
	}
	r := st.reqs[0]
	if r.Items[0].ItemName != "Glycerin" || !r.Items[0].Qty.Equal(dec(6)) || r.Items[0].Location != "Raw Store" {
		t.Fatalf("unexpected request line %+v", r.Items[0])
	}
	if !r.ScheduleDate.Equal(clock.AddDays(today(), 5)) {
		t.Fatalf("expected need-by from item lead time, got %v", r.ScheduleDate)
	}

	bot := rep.Shortages[1]
	if bot.Location != "Pack Store" || !bot.Available.Equal(dec(40)) || !bot.Shortage.Equal(dec(10)) {
		t.Fatalf("unexpected bottle shortage %+v", bot)
	}
	if !st.reqs[1].ScheduleDate.Equal(clock.AddDays(today(), 7)) {
		t.Fatalf("expected default lead time, got %v", st.reqs[1].ScheduleDate)
	}
}

func TestProductionCheck_DuplicateAndFailureAreReported(t *testing.T) {
	t.Parallel()

	rules := &stubRules{snaps: map[string]inventory.Snapshot{}}
	st := &store{
		failFor: "BOT-50",
		lines: []requests.Similar{{
			RequestID: "MR-OLD", ItemCode: "GLY-01", TransactionDate: clock.AddDays(today(), -1),
			Category: requests.CategoryPurchase,
		}},
	}
	cat := stubCatalog{locations: activeLocations("Raw Store", "Pack Store")}

	rep, err := newCheck(creamBOM(), rules, st, cat).Run(context.Background(),
		WorkOrder{BOM: "BOM-CRM", Qty: dec(10), SourceLocation: "Pack Store"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rep.Shortages) != 3 {
		t.Fatalf("expected 3 shortages, got %+v", rep.Shortages)
	}
	if rep.Shortages[0].Skipped != SkipDuplicate {
		t.Fatalf("expected glycerin skipped as duplicate, got %+v", rep.Shortages[0])
	}
	if rep.Shortages[1].Error == "" {
		t.Fatalf("expected bottle failure, got %+v", rep.Shortages[1])
	}
	if len(rep.Created) != 1 || rep.Shortages[2].RequestID != rep.Created[0] {
		t.Fatalf("expected label request, got %+v", rep)
	}
}

func TestProductionCheck_Validation(t *testing.T) {
	t.Parallel()

	inactive := activeLocations("Raw Store")
	inactive["Pack Store"] = &catalog.Location{Name: "Pack Store"}

	tests := []struct {
		name     string
		wo       WorkOrder
		locs     map[string]*catalog.Location
		notFound bool
		field    string
	}{
		{name: "bom required", wo: WorkOrder{Qty: dec(1)}, field: "bom"},
		{name: "qty positive", wo: WorkOrder{BOM: "BOM-CRM"}, field: "qty"},
		{name: "unknown bom", wo: WorkOrder{BOM: "nope", Qty: dec(1)}, notFound: true},
		{name: "unknown location", wo: WorkOrder{BOM: "BOM-CRM", Qty: dec(1), SourceLocation: "Pack Store"},
			locs: activeLocations("Raw Store"), field: "source_location"},
		{name: "inactive location", wo: WorkOrder{BOM: "BOM-CRM", Qty: dec(1), SourceLocation: "Pack Store"},
			locs: inactive, field: "source_location"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			st := &store{}
			_, err := newCheck(creamBOM(), &stubRules{}, st, stubCatalog{locations: tc.locs}).Run(context.Background(), tc.wo)
			if tc.notFound {
				if !errors.Is(err, domain.ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", err)
				}
				return
			}
			var ve *domain.ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected ValidationError on %s, got %v", tc.field, err)
			}
			if len(st.reqs) != 0 {
				t.Fatalf("expected no requests, got %d", len(st.reqs))
			}
		})
	}
}

func TestProductionCheck_SkipsComponentsWithoutLocation(t *testing.T) {
	t.Parallel()

	st := &store{}
	cat := stubCatalog{locations: activeLocations("Raw Store")}
	rules := &stubRules{snaps: map[string]inventory.Snapshot{"GLY-01|Raw Store": {OnHand: dec(100)}}}

	rep, err := newCheck(creamBOM(), rules, st, cat).Run(context.Background(), WorkOrder{BOM: "BOM-CRM", Qty: dec(10)})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rep.Checked != 1 || len(rep.Shortages) != 0 || len(st.reqs) != 0 {
		t.Fatalf("expected only glycerin checked and in stock, got %+v", rep)
	}
}
