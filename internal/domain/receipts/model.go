package receipts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/labstock/internal/domain"
)

// WorkflowState is the QA state of a goods receipt.
type WorkflowState string

const (
	StateDraft             WorkflowState = "Draft"
	StateReceivedPendingQA WorkflowState = "Received Pending QA"
	StateApproved          WorkflowState = "Approved"
	StateRejected          WorkflowState = "Rejected"
)

type Action string

const (
	ActionSubmit  Action = "Submit"
	ActionApprove Action = "Approve"
	ActionReject  Action = "Reject"
)

type transitionKey struct {
	from WorkflowState
	act  Action
}

var transitions = map[transitionKey]WorkflowState{
	{StateDraft, ActionSubmit}:              StateReceivedPendingQA,
	{StateReceivedPendingQA, ActionApprove}: StateApproved,
	{StateReceivedPendingQA, ActionReject}:  StateRejected,
}

// NextState resolves a workflow action; unknown pairs are precondition errors.
func NextState(cur WorkflowState, act Action) (WorkflowState, error) {
	if cur == "" {
		cur = StateDraft
	}
	next, ok := transitions[transitionKey{cur, act}]
	if !ok {
		return cur, &domain.PreconditionError{Current: string(cur), Msg: "workflow action " + string(act) + " is not allowed"}
	}
	return next, nil
}

// IsDecision reports whether s is a final quality decision.
func (s WorkflowState) IsDecision() bool {
	return s == StateApproved || s == StateRejected
}

type PurchaseType string

const (
	PurchaseLocal  PurchaseType = "Local"
	PurchaseImport PurchaseType = "Import"
)

type DocStatus int

const (
	DocDraft     DocStatus = 0
	DocSubmitted DocStatus = 1
	DocCancelled DocStatus = 2
)

// DocStatusFor is the docstatus each workflow state implies.
func DocStatusFor(s WorkflowState) DocStatus {
	if s == StateDraft || s == "" {
		return DocDraft
	}
	return DocSubmitted
}

type Line struct {
	ID               int64
	Idx              int
	ItemCode         string
	ItemGroup        string
	Qty              decimal.Decimal
	UOM              string
	ConversionFactor decimal.Decimal
	Location         string
	LotID            string
	PurchaseOrder    string
	RequestID        string
	RequestItemID    int64
}

type Receipt struct {
	ID            string
	Supplier      string
	BillNo        string
	BillDate      *time.Time
	PurchaseType  PurchaseType
	PostingDate   time.Time
	DocStatus     DocStatus
	WorkflowState WorkflowState
	Lines         []Line
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
