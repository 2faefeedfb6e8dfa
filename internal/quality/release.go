package quality

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/inventory"
	"github.com/Spok95/labstock/internal/domain/lots"
	"github.com/Spok95/labstock/internal/domain/receipts"
	"github.com/Spok95/labstock/internal/hooks"
	"github.com/Spok95/labstock/internal/infra/events"
)

// Release reports what a QA decision did with the quarantined stock.
// Failure is non-nil when the transfer could not be made; the decision itself
// stays committed.
type Release struct {
	TransferID string `json:"transfer_id,omitempty"`
	Target     string `json:"target,omitempty"`
	Moved      int    `json:"moved"`
	Message    string `json:"message"`
	Failure    error  `json:"-"`
}

// Release moves the controlled quarantine lines of a decided receipt to the
// approved or rejected location.
func (s *Service) Release(ctx context.Context, rc *receipts.Receipt) *Release {
	decision := string(rc.WorkflowState)
	approved := rc.WorkflowState == receipts.StateApproved
	target := s.locs.Target(approved)

	if s.locs.Quarantine == "" || target == "" {
		err := &domain.TransferCreationFailure{ReceiptID: rc.ID, Target: target, Err: errLocationsMissing}
		s.log.Error("quarantine release skipped", "receipt", rc.ID, "decision", decision, "err", err)
		s.metrics.Transfer(decision, err)
		return &Release{
			Message: fmt.Sprintf("stock location settings missing, cannot auto-transfer stock for %s", decision),
			Failure: err,
		}
	}

	t := &inventory.Transfer{
		ID:        uuid.NewString(),
		Purpose:   inventory.PurposeMaterialTransfer,
		From:      s.locs.Quarantine,
		To:        target,
		ReceiptID: rc.ID,
		Remarks:   fmt.Sprintf("Auto-transfer triggered by QA %s for %s", decision, rc.ID),
	}
	for _, l := range rc.Lines {
		if !s.isControlled(l.ItemGroup) || l.Location != s.locs.Quarantine {
			continue
		}
		t.Lines = append(t.Lines, inventory.TransferLine{
			ItemCode:         l.ItemCode,
			Qty:              l.Qty,
			UOM:              l.UOM,
			ConversionFactor: l.ConversionFactor,
			LotID:            l.LotID,
			Source:           s.locs.Quarantine,
			Target:           target,
		})
	}

	if len(t.Lines) == 0 {
		s.log.Info("nothing to release", "receipt", rc.ID, "decision", decision)
		return &Release{Target: target, Message: "no relevant items found in the quarantine location to move"}
	}

	if err := s.createTransfer(ctx, t); err != nil {
		fail := &domain.TransferCreationFailure{ReceiptID: rc.ID, Target: target, Err: err}
		s.log.Error("failed to create stock transfer for QA", "receipt", rc.ID, "decision", decision, "err", err)
		s.metrics.Transfer(decision, fail)
		return &Release{Target: target, Message: "failed to create automatic stock transfer", Failure: fail}
	}
	s.metrics.Transfer(decision, nil)
	s.log.Info("quarantine released", "receipt", rc.ID, "transfer", t.ID, "target", target, "lines", len(t.Lines))

	if err := s.events.Publish(ctx, events.KeyTransferCreated, events.TransferEvent{
		TransferID: t.ID,
		ReceiptID:  rc.ID,
		From:       t.From,
		To:         t.To,
		Lines:      len(t.Lines),
		At:         s.clock.Now(),
	}); err != nil {
		s.log.Error("publish event failed", "key", events.KeyTransferCreated, "transfer", t.ID, "err", err)
	}

	return &Release{
		TransferID: t.ID,
		Target:     target,
		Moved:      len(t.Lines),
		Message:    fmt.Sprintf("stock transfer %s created: %d items moved to %s", t.ID, len(t.Lines), target),
	}
}

func (s *Service) createTransfer(ctx context.Context, t *inventory.Transfer) error {
	if err := s.entryHooks.Fire(ctx, hooks.Validate, t); err != nil {
		return err
	}
	if err := s.stock.InsertTransfer(ctx, t); err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	if err := s.stock.SubmitTransfer(ctx, t); err != nil {
		return fmt.Errorf("submit transfer: %w", err)
	}
	return nil
}

// GuardMovement rejects lines taking stock out of quarantine, unless they go
// to the approved/rejected location or their lot certificate is pending.
func (s *Service) GuardMovement(ctx context.Context, lines []inventory.TransferLine) error {
	q := s.locs.Quarantine
	if q == "" {
		return nil
	}

	for i, l := range lines {
		if l.Source != q {
			continue
		}
		if l.Target != "" && (l.Target == s.locs.Approved || l.Target == s.locs.Rejected) {
			continue
		}
		if l.LotID != "" {
			st, err := s.lots.CertificateStatus(ctx, l.LotID)
			if err != nil {
				return err
			}
			if st == lots.CertificatePending {
				continue
			}
		}

		s.metrics.BlockedMovement()
		s.log.Warn("quarantine movement blocked", "row", i+1, "item", l.ItemCode, "lot", l.LotID, "target", l.Target)
		return &domain.BlockedMovementError{Row: i + 1, ItemCode: l.ItemCode, LotID: l.LotID, Quarantine: q}
	}
	return nil
}

// ValidateTransfer runs the stock entry handlers, the quarantine guard
// among them, over t.
func (s *Service) ValidateTransfer(ctx context.Context, t *inventory.Transfer) error {
	if err := s.entryHooks.Fire(ctx, hooks.BeforeInsert, t); err != nil {
		return err
	}
	return s.entryHooks.Fire(ctx, hooks.Validate, t)
}

// entryDefaults fills line locations from the entry header.
func entryDefaults(_ context.Context, t *inventory.Transfer) error {
	for i := range t.Lines {
		if t.Lines[i].Source == "" {
			t.Lines[i].Source = t.From
		}
		if t.Lines[i].Target == "" {
			t.Lines[i].Target = t.To
		}
	}
	return nil
}

func (s *Service) guardEntry(ctx context.Context, t *inventory.Transfer) error {
	return s.GuardMovement(ctx, t.Lines)
}
