package requests

import "github.com/Spok95/labstock/internal/domain"

type Action string

const (
	ActionCreate    Action = "create"
	ActionSetStatus Action = "set_status"
	ActionSubmit    Action = "submit"
	ActionCancel    Action = "cancel"
)

// Transition is the result of applying an action to a request.
type Transition struct {
	From      Status
	To        Status
	DocStatus DocStatus
}

func (t Transition) Changed() bool { return t.From != t.To }

// Next is the lifecycle as a total function of (status, docstatus, action).
// target is the requested status for ActionSetStatus and the status to keep
// for ActionSubmit (empty keeps the current one); other actions ignore it.
func Next(cur Status, doc DocStatus, act Action, target Status) (Transition, error) {
	t := Transition{From: cur, To: cur, DocStatus: doc}

	switch act {
	case ActionCreate:
		if cur == "" {
			t.To = StatusPendingApproval
			return t, nil
		}
		if _, err := ParseStatus(string(cur)); err != nil {
			return t, err
		}
		if cur.Terminal() {
			return t, &domain.PreconditionError{Current: string(cur), Msg: "a request cannot be created cancelled"}
		}
		return t, nil

	case ActionSetStatus:
		to, err := ParseStatus(string(target))
		if err != nil {
			return t, err
		}
		if doc == DocCancelled || (cur.Terminal() && !to.Terminal()) {
			return t, &domain.PreconditionError{Current: string(cur), Msg: "cancelled requests cannot change status"}
		}
		t.To = to
		if to.Terminal() {
			t.DocStatus = DocCancelled
		}
		return t, nil

	case ActionSubmit:
		if doc != DocDraft {
			return t, &domain.PreconditionError{Current: doc.String(), Required: DocDraft.String(), Msg: "only draft requests can be submitted"}
		}
		if cur != StatusApproved {
			return t, &domain.PreconditionError{Current: string(cur), Required: string(StatusApproved), Msg: "must be Approved before submit"}
		}
		if target != "" {
			to, err := ParseStatus(string(target))
			if err != nil {
				return t, err
			}
			if to.Terminal() {
				return t, &domain.PreconditionError{Current: string(cur), Msg: "submit cannot end in a cancelled status"}
			}
			t.To = to
		}
		t.DocStatus = DocSubmitted
		return t, nil

	case ActionCancel:
		t.To = StatusCancelled
		t.DocStatus = DocCancelled
		return t, nil
	}

	return t, &domain.PreconditionError{Current: string(cur), Msg: "unknown action " + string(act)}
}
