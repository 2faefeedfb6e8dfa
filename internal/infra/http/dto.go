package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/inventory"
	"github.com/Spok95/labstock/internal/domain/lots"
	"github.com/Spok95/labstock/internal/domain/receipts"
	"github.com/Spok95/labstock/internal/domain/requests"
)

const dateLayout = "2006-01-02"

func parseDate(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, domain.Validation(field, "date must be YYYY-MM-DD")
	}
	return t, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

/* Requests */

type requestItemDTO struct {
	ID           int64           `json:"id,omitempty"`
	ItemCode     string          `json:"item_code"`
	ItemName     string          `json:"item_name,omitempty"`
	Qty          decimal.Decimal `json:"qty"`
	ReceivedQty  decimal.Decimal `json:"received_qty"`
	Location     string          `json:"location,omitempty"`
	ScheduleDate string          `json:"schedule_date,omitempty"`
}

type requestDTO struct {
	ID                string           `json:"id,omitempty"`
	Category          string           `json:"category,omitempty"`
	Title             string           `json:"title,omitempty"`
	RequestedBy       string           `json:"requested_by,omitempty"`
	TransactionDate   string           `json:"transaction_date,omitempty"`
	ScheduleDate      string           `json:"schedule_date,omitempty"`
	SuggestedSupplier string           `json:"suggested_supplier,omitempty"`
	SupplierEmail     string           `json:"supplier_email,omitempty"`
	Status            string           `json:"status,omitempty"`
	DocStatus         int              `json:"docstatus"`
	AutoCreated       bool             `json:"auto_created"`
	Items             []requestItemDTO `json:"items"`
}

func (d requestDTO) toDomain() (*requests.Request, error) {
	tx, err := parseDate("transaction_date", d.TransactionDate)
	if err != nil {
		return nil, err
	}
	sched, err := parseDate("schedule_date", d.ScheduleDate)
	if err != nil {
		return nil, err
	}
	r := &requests.Request{
		ID:                d.ID,
		Category:          requests.Category(d.Category),
		Title:             d.Title,
		RequestedBy:       d.RequestedBy,
		TransactionDate:   tx,
		ScheduleDate:      sched,
		SuggestedSupplier: d.SuggestedSupplier,
		SupplierEmail:     d.SupplierEmail,
		Status:            requests.Status(d.Status),
	}
	for _, it := range d.Items {
		sd, err := parseDate("items.schedule_date", it.ScheduleDate)
		if err != nil {
			return nil, err
		}
		r.Items = append(r.Items, requests.Item{
			ItemCode:     it.ItemCode,
			ItemName:     it.ItemName,
			Qty:          it.Qty,
			Location:     it.Location,
			ScheduleDate: sd,
		})
	}
	return r, nil
}

func requestFromDomain(r *requests.Request) requestDTO {
	d := requestDTO{
		ID:                r.ID,
		Category:          string(r.Category),
		Title:             r.Title,
		RequestedBy:       r.RequestedBy,
		TransactionDate:   formatDate(r.TransactionDate),
		ScheduleDate:      formatDate(r.ScheduleDate),
		SuggestedSupplier: r.SuggestedSupplier,
		SupplierEmail:     r.SupplierEmail,
		Status:            string(r.Status),
		DocStatus:         int(r.DocStatus),
		AutoCreated:       r.AutoCreated,
		Items:             []requestItemDTO{},
	}
	for _, it := range r.Items {
		d.Items = append(d.Items, requestItemDTO{
			ID:           it.ID,
			ItemCode:     it.ItemCode,
			ItemName:     it.ItemName,
			Qty:          it.Qty,
			ReceivedQty:  it.ReceivedQty,
			Location:     it.Location,
			ScheduleDate: formatDate(it.ScheduleDate),
		})
	}
	return d
}

type similarDTO struct {
	RequestID         string          `json:"request_id"`
	ItemCode          string          `json:"item_code"`
	SuggestedSupplier string          `json:"suggested_supplier,omitempty"`
	TransactionDate   string          `json:"transaction_date"`
	Status            string          `json:"status"`
	DocStatus         int             `json:"docstatus"`
	Qty               decimal.Decimal `json:"qty"`
	Location          string          `json:"location,omitempty"`
}

func similarFromDomain(in []requests.Similar) []similarDTO {
	out := make([]similarDTO, 0, len(in))
	for _, s := range in {
		out = append(out, similarDTO{
			RequestID:         s.RequestID,
			ItemCode:          s.ItemCode,
			SuggestedSupplier: s.SuggestedSupplier,
			TransactionDate:   formatDate(s.TransactionDate),
			Status:            string(s.Status),
			DocStatus:         int(s.DocStatus),
			Qty:               s.Qty,
			Location:          s.Location,
		})
	}
	return out
}

/* Receipts */

type receiptLineDTO struct {
	ItemCode         string          `json:"item_code"`
	ItemGroup        string          `json:"item_group,omitempty"`
	Qty              decimal.Decimal `json:"qty"`
	UOM              string          `json:"uom,omitempty"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	Location         string          `json:"location,omitempty"`
	LotID            string          `json:"lot_id,omitempty"`
	PurchaseOrder    string          `json:"purchase_order,omitempty"`
	RequestID        string          `json:"request_id,omitempty"`
	RequestItemID    int64           `json:"request_item_id,omitempty"`
}

type receiptDTO struct {
	ID            string           `json:"id,omitempty"`
	Supplier      string           `json:"supplier"`
	BillNo        string           `json:"bill_no"`
	BillDate      string           `json:"bill_date,omitempty"`
	PurchaseType  string           `json:"purchase_type,omitempty"`
	PostingDate   string           `json:"posting_date,omitempty"`
	DocStatus     int              `json:"docstatus"`
	WorkflowState string           `json:"workflow_state,omitempty"`
	Lines         []receiptLineDTO `json:"lines"`
}

func (d receiptDTO) toDomain() (*receipts.Receipt, error) {
	posting, err := parseDate("posting_date", d.PostingDate)
	if err != nil {
		return nil, err
	}
	rc := &receipts.Receipt{
		ID:           d.ID,
		Supplier:     d.Supplier,
		BillNo:       d.BillNo,
		PurchaseType: receipts.PurchaseType(d.PurchaseType),
		PostingDate:  posting,
	}
	if d.BillDate != "" {
		bd, err := parseDate("bill_date", d.BillDate)
		if err != nil {
			return nil, err
		}
		rc.BillDate = &bd
	}
	for _, l := range d.Lines {
		rc.Lines = append(rc.Lines, receipts.Line{
			ItemCode:         l.ItemCode,
			ItemGroup:        l.ItemGroup,
			Qty:              l.Qty,
			UOM:              l.UOM,
			ConversionFactor: l.ConversionFactor,
			Location:         l.Location,
			LotID:            l.LotID,
			PurchaseOrder:    l.PurchaseOrder,
			RequestID:        l.RequestID,
			RequestItemID:    l.RequestItemID,
		})
	}
	return rc, nil
}

func receiptFromDomain(rc *receipts.Receipt) receiptDTO {
	d := receiptDTO{
		ID:            rc.ID,
		Supplier:      rc.Supplier,
		BillNo:        rc.BillNo,
		PurchaseType:  string(rc.PurchaseType),
		PostingDate:   formatDate(rc.PostingDate),
		DocStatus:     int(rc.DocStatus),
		WorkflowState: string(rc.WorkflowState),
		Lines:         []receiptLineDTO{},
	}
	if rc.BillDate != nil {
		d.BillDate = formatDate(*rc.BillDate)
	}
	for _, l := range rc.Lines {
		d.Lines = append(d.Lines, receiptLineDTO{
			ItemCode:         l.ItemCode,
			ItemGroup:        l.ItemGroup,
			Qty:              l.Qty,
			UOM:              l.UOM,
			ConversionFactor: l.ConversionFactor,
			Location:         l.Location,
			LotID:            l.LotID,
			PurchaseOrder:    l.PurchaseOrder,
			RequestID:        l.RequestID,
			RequestItemID:    l.RequestItemID,
		})
	}
	return d
}

/* Stock entries */

type transferLineDTO struct {
	ItemCode         string          `json:"item_code"`
	Qty              decimal.Decimal `json:"qty"`
	UOM              string          `json:"uom,omitempty"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	LotID            string          `json:"lot_id,omitempty"`
	Source           string          `json:"source,omitempty"`
	Target           string          `json:"target,omitempty"`
}

type transferDTO struct {
	From  string            `json:"from,omitempty"`
	To    string            `json:"to,omitempty"`
	Lines []transferLineDTO `json:"lines"`
}

func (d transferDTO) toDomain() *inventory.Transfer {
	t := &inventory.Transfer{Purpose: inventory.PurposeMaterialTransfer, From: d.From, To: d.To}
	for _, l := range d.Lines {
		t.Lines = append(t.Lines, inventory.TransferLine{
			ItemCode:         l.ItemCode,
			Qty:              l.Qty,
			UOM:              l.UOM,
			ConversionFactor: l.ConversionFactor,
			LotID:            l.LotID,
			Source:           l.Source,
			Target:           l.Target,
		})
	}
	return t
}

/* Lots */

type lotDTO struct {
	ID                      string `json:"id,omitempty"`
	ItemCode                string `json:"item_code"`
	ExpiryDate              string `json:"expiry_date,omitempty"`
	CertificateStatus       string `json:"certificate_status,omitempty"`
	CertificateAttachment   string `json:"certificate_attachment,omitempty"`
	CertificateReference    string `json:"certificate_reference,omitempty"`
	MissingCertReason       string `json:"missing_certificate_reason,omitempty"`
	MissingCertAuthorizedBy string `json:"missing_certificate_authorized_by,omitempty"`
	Location                string `json:"location,omitempty"`
}

func (d lotDTO) toDomain() (*lots.Lot, error) {
	l := &lots.Lot{
		ID:                      d.ID,
		ItemCode:                d.ItemCode,
		CertificateStatus:       lots.CertificateStatus(d.CertificateStatus),
		CertificateAttachment:   d.CertificateAttachment,
		CertificateReference:    d.CertificateReference,
		MissingCertReason:       d.MissingCertReason,
		MissingCertAuthorizedBy: d.MissingCertAuthorizedBy,
		Location:                d.Location,
	}
	if d.ExpiryDate != "" {
		exp, err := parseDate("expiry_date", d.ExpiryDate)
		if err != nil {
			return nil, err
		}
		l.ExpiryDate = &exp
	}
	return l, nil
}

func lotFromDomain(l *lots.Lot) lotDTO {
	d := lotDTO{
		ID:                      l.ID,
		ItemCode:                l.ItemCode,
		CertificateStatus:       string(l.CertificateStatus),
		CertificateAttachment:   l.CertificateAttachment,
		CertificateReference:    l.CertificateReference,
		MissingCertReason:       l.MissingCertReason,
		MissingCertAuthorizedBy: l.MissingCertAuthorizedBy,
		Location:                l.Location,
	}
	if l.ExpiryDate != nil {
		d.ExpiryDate = formatDate(*l.ExpiryDate)
	}
	return d
}
