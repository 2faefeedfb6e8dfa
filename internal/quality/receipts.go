package quality

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/labstock/internal/clock"
	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/inventory"
	"github.com/Spok95/labstock/internal/domain/receipts"
	"github.com/Spok95/labstock/internal/hooks"
)

// ReceiptChange is the document passed through the receipt hooks.
type ReceiptChange struct {
	Prev     *receipts.Receipt
	Cur      *receipts.Receipt
	Messages []string
	Release  *Release
}

func (c *ReceiptChange) note(format string, args ...any) {
	c.Messages = append(c.Messages, fmt.Sprintf(format, args...))
}

type ReceiptOutcome struct {
	Receipt  *receipts.Receipt
	Release  *Release
	Messages []string
}

// SaveReceipt validates and stores a draft receipt.
func (s *Service) SaveReceipt(ctx context.Context, rc *receipts.Receipt) (*ReceiptOutcome, error) {
	var prev *receipts.Receipt
	if rc.ID != "" {
		p, err := s.receipts.Get(ctx, rc.ID)
		if err != nil {
			return nil, err
		}
		prev = p
	}
	if prev != nil && prev.DocStatus != receipts.DocDraft {
		return nil, &domain.PreconditionError{Current: string(prev.WorkflowState), Required: string(receipts.StateDraft),
			Msg: "only draft receipts can be edited"}
	}
	if prev != nil {
		rc.WorkflowState = prev.WorkflowState
		rc.DocStatus = prev.DocStatus
	}

	ch := &ReceiptChange{Prev: prev, Cur: rc}
	if prev == nil {
		if err := s.receiptHooks.Fire(ctx, hooks.BeforeInsert, ch); err != nil {
			return nil, err
		}
	}
	if err := s.receiptHooks.Fire(ctx, hooks.Validate, ch); err != nil {
		return nil, err
	}
	if err := s.receipts.Save(ctx, rc); err != nil {
		return nil, fmt.Errorf("save receipt: %w", err)
	}
	return &ReceiptOutcome{Receipt: rc, Messages: ch.Messages}, nil
}

// Workflow applies a QA workflow action to a stored receipt. Submit books the
// stock into its (quarantine) locations; a decision releases the quarantine.
func (s *Service) Workflow(ctx context.Context, id string, act receipts.Action) (*ReceiptOutcome, error) {
	rc, err := s.receipts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, fmt.Errorf("receipt %s: %w", id, domain.ErrNotFound)
	}

	next, err := receipts.NextState(rc.WorkflowState, act)
	if err != nil {
		return nil, err
	}

	if rc.WorkflowState == "" {
		rc.WorkflowState = receipts.StateDraft
	}
	before := *rc
	ch := &ReceiptChange{Prev: &before, Cur: rc}

	// the state flip and, on submit, the stock booking commit together
	err = s.receipts.WithTx(ctx, func(ctx context.Context) error {
		if act == receipts.ActionSubmit {
			if err := s.receiptHooks.Fire(ctx, hooks.Validate, ch); err != nil {
				return err
			}
			if err := s.receipts.Save(ctx, rc); err != nil {
				return fmt.Errorf("save receipt: %w", err)
			}
		}
		if err := s.receipts.SetWorkflowState(ctx, id, before.WorkflowState, next); err != nil {
			return err
		}
		if act == receipts.ActionSubmit {
			if err := s.stock.Receive(ctx, receiveMoves(rc)); err != nil {
				return fmt.Errorf("receive stock for %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	rc.WorkflowState = next
	rc.DocStatus = receipts.DocStatusFor(next)
	s.log.Info("receipt workflow", "receipt", id, "action", act, "from", before.WorkflowState, "to", next)

	if err := s.receiptHooks.Fire(ctx, hooks.OnUpdate, ch); err != nil {
		return nil, err
	}
	return &ReceiptOutcome{Receipt: rc, Release: ch.Release, Messages: ch.Messages}, nil
}

func receiveMoves(rc *receipts.Receipt) []inventory.Movement {
	moves := make([]inventory.Movement, 0, len(rc.Lines))
	for _, l := range rc.Lines {
		moves = append(moves, inventory.Movement{
			ItemCode:    l.ItemCode,
			Location:    l.Location,
			LotID:       l.LotID,
			Qty:         stockQty(l.Qty, l.ConversionFactor),
			VoucherType: "receipt",
			VoucherID:   rc.ID,

			RequestItemID: l.RequestItemID,
		})
	}
	return moves
}

// ValidateReceipt checks a receipt before save and applies the quarantine
// location override. It returns informational messages and warnings.
func (s *Service) ValidateReceipt(ctx context.Context, rc *receipts.Receipt) ([]string, error) {
	var msgs []string

	rc.BillNo = strings.TrimSpace(rc.BillNo)
	if rc.BillNo == "" {
		return nil, domain.Validation("bill_no", "bill no is mandatory for receiving")
	}
	if rc.Supplier != "" {
		dup, err := s.receipts.BillExists(ctx, rc.Supplier, rc.BillNo, rc.ID)
		if err != nil {
			return nil, err
		}
		if dup {
			return nil, domain.Validation("bill_no", "bill no %s already exists for supplier %s", rc.BillNo, rc.Supplier)
		}
	}
	if len(rc.Lines) == 0 {
		return nil, domain.Validation("lines", "at least one line is required")
	}

	for i := range rc.Lines {
		l := &rc.Lines[i]
		l.Idx = i + 1
		if !l.Qty.IsPositive() {
			return nil, domain.Validation("lines", "row %d: quantity for %s must be greater than 0", l.Idx, l.ItemCode)
		}
		if l.PurchaseOrder != "" {
			continue
		}
		open, err := s.requests.HasOpenForSupplier(ctx, rc.Supplier, l.ItemCode)
		if err != nil {
			return nil, err
		}
		if !open {
			return nil, domain.Validation("lines", "row %d: %s has not been requested", l.Idx, l.ItemCode)
		}
	}

	for _, l := range rc.Lines {
		if l.RequestItemID == 0 {
			continue
		}
		it, err := s.requests.GetItem(ctx, l.RequestItemID)
		if err != nil {
			return nil, err
		}
		if it == nil {
			continue
		}
		if m := variance(l, it.Pending()); m != "" {
			msgs = append(msgs, m)
		}
	}

	if q := s.locs.Quarantine; q != "" {
		for i := range rc.Lines {
			l := &rc.Lines[i]
			if l.Location == q {
				continue
			}
			l.Location = q
			msgs = append(msgs, fmt.Sprintf("row %d: item %s automatically moved to QA pending location %q", l.Idx, l.ItemCode, q))
		}
	}
	return msgs, nil
}

func variance(l receipts.Line, pending decimal.Decimal) string {
	if l.Qty.Equal(pending) {
		return ""
	}
	diff := l.Qty.Sub(pending)
	kind := "Shortage"
	if diff.IsPositive() {
		kind = "Excess"
	}
	return fmt.Sprintf("row %d: qty variance for %s. Requested/pending: %s, received: %s (%s: %s)",
		l.Idx, l.ItemCode, pending, l.Qty, kind, diff.Abs())
}

/* Hooks */

func (s *Service) receiptDefaults(ctx context.Context, ch *ReceiptChange) error {
	rc := ch.Cur
	if rc.ID == "" {
		rc.ID = uuid.NewString()
	}
	if rc.PostingDate.IsZero() {
		rc.PostingDate = clock.Today(s.clock)
	}
	if rc.PurchaseType == "" {
		rc.PurchaseType = receipts.PurchaseLocal
	}
	rc.WorkflowState = receipts.StateDraft
	rc.DocStatus = receipts.DocDraft
	for i := range rc.Lines {
		l := &rc.Lines[i]
		if l.ConversionFactor.IsZero() {
			l.ConversionFactor = decimal.NewFromInt(1)
		}
		if l.ItemGroup == "" && l.ItemCode != "" {
			g, err := s.catalog.ItemGroup(ctx, l.ItemCode)
			if err != nil {
				return fmt.Errorf("item group %s: %w", l.ItemCode, err)
			}
			l.ItemGroup = g
		}
	}
	return nil
}

func (s *Service) validateReceipt(ctx context.Context, ch *ReceiptChange) error {
	msgs, err := s.ValidateReceipt(ctx, ch.Cur)
	if err != nil {
		return err
	}
	ch.Messages = append(ch.Messages, msgs...)
	return nil
}

func (s *Service) releaseOnDecision(ctx context.Context, ch *ReceiptChange) error {
	cur := ch.Cur
	if cur.DocStatus != receipts.DocSubmitted || !cur.WorkflowState.IsDecision() {
		return nil
	}
	if ch.Prev == nil || ch.Prev.WorkflowState == cur.WorkflowState {
		return nil
	}

	rel := s.Release(ctx, cur)
	ch.Release = rel
	if rel.Failure != nil {
		ch.note("%v", rel.Failure)
		return nil
	}
	ch.note("%s", rel.Message)
	return nil
}

var errLocationsMissing = errors.New("stock location settings are missing")
