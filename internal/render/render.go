// Package render turns requests into the documents sent to suppliers.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/labstock/internal/domain/requests"
	"github.com/Spok95/labstock/internal/notify"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	dateLayout = "2006-01-02"
	xlsxType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Renderer struct {
	email *template.Template
}

func New() (*Renderer, error) {
	t, err := template.ParseFS(templatesFS, "templates/supplier_email.html")
	if err != nil {
		return nil, fmt.Errorf("parse supplier email template: %w", err)
	}
	return &Renderer{email: t}, nil
}

type emailLine struct {
	Idx    int
	Code   string
	Name   string
	Qty    string
	NeedBy string
}

type emailData struct {
	ID          string
	Supplier    string
	RequestedBy string
	Date        string
	Lines       []emailLine
}

func (r *Renderer) SupplierEmail(req *requests.Request) (string, error) {
	d := emailData{
		ID:          req.ID,
		Supplier:    req.SuggestedSupplier,
		RequestedBy: req.RequestedBy,
		Date:        req.TransactionDate.Format(dateLayout),
	}
	for i, it := range req.Items {
		d.Lines = append(d.Lines, emailLine{
			Idx:    i + 1,
			Code:   it.ItemCode,
			Name:   it.ItemName,
			Qty:    it.Qty.String(),
			NeedBy: needBy(req, it).Format(dateLayout),
		})
	}

	var buf bytes.Buffer
	if err := r.email.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render supplier email: %w", err)
	}
	return buf.String(), nil
}

// RequestSheet renders the request as an .xlsx workbook.
func (r *Renderer) RequestSheet(req *requests.Request) (notify.Attachment, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	meta := [][]interface{}{
		{"Material Request", req.ID},
		{"Title", req.Title},
		{"Supplier", req.SuggestedSupplier},
		{"Date", req.TransactionDate.Format(dateLayout)},
		{"Required by", req.ScheduleDate.Format(dateLayout)},
	}
	row := 1
	for _, m := range meta {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return notify.Attachment{}, err
		}
		if err := f.SetSheetRow(sheet, cell, &m); err != nil {
			return notify.Attachment{}, fmt.Errorf("sheet header: %w", err)
		}
		row++
	}
	row++

	header := []interface{}{"#", "item_code", "item_name", "qty", "location", "required_by"}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return notify.Attachment{}, err
	}
	if err := f.SetSheetRow(sheet, cell, &header); err != nil {
		return notify.Attachment{}, fmt.Errorf("sheet columns: %w", err)
	}
	row++

	for i, it := range req.Items {
		qty, _ := it.Qty.Float64()
		line := []interface{}{
			i + 1,
			it.ItemCode,
			it.ItemName,
			qty,
			it.Location,
			needBy(req, it).Format(dateLayout),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return notify.Attachment{}, err
		}
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			return notify.Attachment{}, fmt.Errorf("sheet row %d: %w", i+1, err)
		}
		row++
	}
	_ = f.SetColWidth(sheet, "B", "C", 28)

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return notify.Attachment{}, fmt.Errorf("write sheet: %w", err)
	}

	return notify.Attachment{
		Name:        fmt.Sprintf("%s.xlsx", req.ID),
		ContentType: xlsxType,
		Data:        buf.Bytes(),
	}, nil
}

func needBy(req *requests.Request, it requests.Item) time.Time {
	if !it.ScheduleDate.IsZero() {
		return it.ScheduleDate
	}
	return req.ScheduleDate
}
