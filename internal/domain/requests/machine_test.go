package requests

import (
	"errors"
	"testing"

	"github.com/Spok95/labstock/internal/domain"
)

func TestNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cur       Status
		doc       DocStatus
		act       Action
		target    Status
		wantTo    Status
		wantDoc   DocStatus
		wantPrec  bool
		wantState bool
	}{
		{name: "create sets pending approval", act: ActionCreate, wantTo: StatusPendingApproval},
		{name: "create keeps explicit status", cur: StatusApproved, act: ActionCreate, wantTo: StatusApproved},
		{name: "create rejects unknown status", cur: "Bogus", act: ActionCreate, wantState: true},
		{name: "create rejects cancelled", cur: StatusCancelled, act: ActionCreate, wantPrec: true},
		{name: "set status to member", cur: StatusPendingApproval, act: ActionSetStatus, target: StatusUnderReview, wantTo: StatusUnderReview},
		{name: "set status skipping ahead", cur: StatusPendingApproval, act: ActionSetStatus, target: StatusApproved, wantTo: StatusApproved},
		{name: "set status outside set", cur: StatusPendingApproval, act: ActionSetStatus, target: "Shipped", wantState: true},
		{name: "cancelled cannot reopen", cur: StatusCancelled, doc: DocCancelled, act: ActionSetStatus, target: StatusApproved, wantPrec: true},
		{name: "submitted request can move on", cur: StatusApproved, doc: DocSubmitted, act: ActionSetStatus, target: StatusSentToSupplier, wantTo: StatusSentToSupplier, wantDoc: DocSubmitted},
		{name: "set status cancelled cancels the document", cur: StatusApproved, doc: DocSubmitted, act: ActionSetStatus, target: StatusCancelled, wantTo: StatusCancelled, wantDoc: DocCancelled},
		{name: "submit approved draft", cur: StatusApproved, act: ActionSubmit, wantTo: StatusApproved, wantDoc: DocSubmitted},
		{name: "submit keeps explicit status", cur: StatusApproved, act: ActionSubmit, target: StatusSentToSupplier, wantTo: StatusSentToSupplier, wantDoc: DocSubmitted},
		{name: "submit from pending approval", cur: StatusPendingApproval, act: ActionSubmit, wantPrec: true},
		{name: "submit from under review", cur: StatusUnderReview, act: ActionSubmit, wantPrec: true},
		{name: "submit twice", cur: StatusApproved, doc: DocSubmitted, act: ActionSubmit, wantPrec: true, wantDoc: DocSubmitted},
		{name: "submit into cancelled", cur: StatusApproved, act: ActionSubmit, target: StatusCancelled, wantPrec: true},
		{name: "cancel from anywhere", cur: StatusConfirmed, doc: DocSubmitted, act: ActionCancel, wantTo: StatusCancelled, wantDoc: DocCancelled},
		{name: "unknown action", cur: StatusApproved, act: "archive", wantPrec: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr, err := Next(tt.cur, tt.doc, tt.act, tt.target)

			var pe *domain.PreconditionError
			var ie *domain.InvalidStateError
			switch {
			case tt.wantPrec:
				if !errors.As(err, &pe) {
					t.Fatalf("expected PreconditionError, got %v", err)
				}
				return
			case tt.wantState:
				if !errors.As(err, &ie) {
					t.Fatalf("expected InvalidStateError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tr.To != tt.wantTo {
				t.Fatalf("expected status %q, got %q", tt.wantTo, tr.To)
			}
			if tr.DocStatus != tt.wantDoc {
				t.Fatalf("expected docstatus %s, got %s", tt.wantDoc, tr.DocStatus)
			}
		})
	}
}

func TestNext_SubmitRejectionNamesCurrentStatus(t *testing.T) {
	t.Parallel()

	_, err := Next(StatusUnderReview, DocDraft, ActionSubmit, "")
	var pe *domain.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	if pe.Current != string(StatusUnderReview) {
		t.Fatalf("expected current %q, got %q", StatusUnderReview, pe.Current)
	}
	if pe.Msg != "must be Approved before submit" {
		t.Fatalf("unexpected message %q", pe.Msg)
	}
}

func TestNext_ResultAlwaysInSet(t *testing.T) {
	t.Parallel()

	acts := []Action{ActionCreate, ActionSetStatus, ActionSubmit, ActionCancel}
	for _, cur := range AllStatuses {
		for _, doc := range []DocStatus{DocDraft, DocSubmitted, DocCancelled} {
			for _, act := range acts {
				for _, target := range append([]Status{""}, AllStatuses...) {
					tr, err := Next(cur, doc, act, target)
					if err != nil {
						continue
					}
					if !tr.To.Valid() {
						t.Fatalf("%s/%s/%s/%s produced %q", cur, doc, act, target, tr.To)
					}
					if cur.Terminal() && !tr.To.Terminal() {
						t.Fatalf("%s/%s/%s/%s left the terminal state", cur, doc, act, target)
					}
				}
			}
		}
	}
}
