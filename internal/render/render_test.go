package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/labstock/internal/domain/requests"
)

func sample() *requests.Request {
	day := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	return &requests.Request{
		ID:                "MR-0042",
		Title:             "Purchase Request for Glycerin",
		SuggestedSupplier: "ACME <Labs>",
		TransactionDate:   day,
		ScheduleDate:      day.AddDate(0, 0, 7),
		Items: []requests.Item{
			{ItemCode: "GLY-01", ItemName: "Glycerin", Qty: decimal.NewFromInt(7), Location: "Main"},
			{ItemCode: "BOT-50", ItemName: "Bottle 50ml", Qty: decimal.RequireFromString("2.5"), ScheduleDate: day.AddDate(0, 0, 3)},
		},
	}
}

func TestRenderer_SupplierEmail(t *testing.T) {
	t.Parallel()

	r, err := New()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	body, err := r.SupplierEmail(sample())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, want := range []string{"MR-0042", "2025-04-15", "GLY-01", "2.5", "2025-04-18", "ACME &lt;Labs&gt;"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body:\n%s", want, body)
		}
	}
}

func TestRenderer_RequestSheet(t *testing.T) {
	t.Parallel()

	r, err := New()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	att, err := r.RequestSheet(sample())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if att.Name != "MR-0042.xlsx" || att.ContentType != xlsxType {
		t.Fatalf("unexpected attachment %s (%s)", att.Name, att.ContentType)
	}

	f, err := excelize.OpenReader(bytes.NewReader(att.Data))
	if err != nil {
		t.Fatalf("expected a valid workbook, got %v", err)
	}
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	cells := map[string]string{
		"B1": "MR-0042",
		"B3": "ACME <Labs>",
		"A7": "#",
		"B7": "item_code",
		"B8": "GLY-01",
		"D8": "7",
		"F8": "2025-04-22",
		"B9": "BOT-50",
		"F9": "2025-04-18",
	}
	for cell, want := range cells {
		got, err := f.GetCellValue(sheet, cell)
		if err != nil {
			t.Fatalf("%s: %v", cell, err)
		}
		if got != want {
			t.Fatalf("%s: expected %q, got %q", cell, want, got)
		}
	}
}
