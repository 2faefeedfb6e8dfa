package events

import (
	"context"
	"time"
)

const (
	KeyRequestStatus    = "request.status_changed"
	KeyRequestSubmitted = "request.submitted"
	KeyRequestCancelled = "request.cancelled"
	KeyTransferCreated  = "stock.transfer_created"
	KeyScanFinished     = "replenishment.scan_finished"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, v any) error
}

type RequestEvent struct {
	RequestID   string    `json:"request_id"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to"`
	DocStatus   int       `json:"docstatus"`
	AutoCreated bool      `json:"auto_created"`
	At          time.Time `json:"at"`
}

type TransferEvent struct {
	TransferID string    `json:"transfer_id"`
	ReceiptID  string    `json:"receipt_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Lines      int       `json:"lines"`
	At         time.Time `json:"at"`
}

type ScanEvent struct {
	Created  []string       `json:"created"`
	Skipped  map[string]int `json:"skipped"`
	Failures int            `json:"failures"`
	At       time.Time      `json:"at"`
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
