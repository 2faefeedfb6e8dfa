package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/receipts"
	"github.com/Spok95/labstock/internal/domain/requests"
	"github.com/Spok95/labstock/internal/domain/users"
	"github.com/Spok95/labstock/internal/purchasing"
	"github.com/Spok95/labstock/internal/quality"
)

type RequestService interface {
	SetStatus(ctx context.Context, id, status string) (*purchasing.Outcome, error)
	Submit(ctx context.Context, id, status string) (*purchasing.Outcome, error)
}

type ReceiptService interface {
	Workflow(ctx context.Context, id string, act receipts.Action) (*quality.ReceiptOutcome, error)
}

type RequestQueue interface {
	ListOpen(ctx context.Context, statuses []requests.Status, limit int) ([]requests.Request, error)
}

type ReceiptQueue interface {
	ListByState(ctx context.Context, state receipts.WorkflowState, limit int) ([]receipts.Receipt, error)
}

type Users interface {
	GetByTelegramID(ctx context.Context, tgID int64) (*users.User, error)
}

var (
	purchasingRoles = []users.Role{users.RolePurchasingManager, users.RoleDirector}
	qualityRoles    = []users.Role{users.RoleQualityManager, users.RoleDirector}
	receptionRoles  = []users.Role{users.RoleReceptionManager, users.RolePurchasingManager, users.RoleDirector}

	// production follows requests raised for its shortages without acting on them
	requestViewers = []users.Role{users.RolePurchasingManager, users.RoleProductionManager, users.RoleDirector}
)

const listLimit = 20

var errForbidden = errors.New("you are not allowed to do this")

// Desk carries out the document actions offered as chat buttons.
type Desk struct {
	requests  RequestService
	receipts  ReceiptService
	openReqs  RequestQueue
	pendingQA ReceiptQueue
	log       *slog.Logger
}

func NewDesk(rs RequestService, qs ReceiptService, rq RequestQueue, pq ReceiptQueue, log *slog.Logger) *Desk {
	return &Desk{requests: rs, receipts: qs, openReqs: rq, pendingQA: pq, log: log}
}

// callback data: <doc>:<verb>:<id>, doc is "mr" (request), "qa" (receipt
// decision) or "rc" (receipt reception)
type action struct {
	doc  string
	verb string
	id   string
}

func callbackData(doc, verb, id string) string { return doc + ":" + verb + ":" + id }

func parseCallback(data string) (action, bool) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		return action{}, false
	}
	a := action{doc: parts[0], verb: parts[1], id: parts[2]}
	switch a.doc + ":" + a.verb {
	case "mr:approve", "mr:review", "mr:submit", "mr:send", "qa:approve", "qa:reject", "rc:receive":
		return a, true
	}
	return action{}, false
}

// Do runs a button action on behalf of u and returns the text to show.
func (d *Desk) Do(ctx context.Context, u *users.User, data string) (string, error) {
	a, ok := parseCallback(data)
	if !ok {
		return "", fmt.Errorf("unknown action %q", data)
	}
	switch a.doc {
	case "mr":
		if !u.HasAnyRole(purchasingRoles...) {
			return "", errForbidden
		}
		return d.requestAction(ctx, u, a)
	case "rc":
		if !u.HasAnyRole(receptionRoles...) {
			return "", errForbidden
		}
		return d.receiptAction(ctx, u, a, receipts.ActionSubmit)
	}
	if !u.HasAnyRole(qualityRoles...) {
		return "", errForbidden
	}
	act := receipts.ActionApprove
	if a.verb == "reject" {
		act = receipts.ActionReject
	}
	return d.receiptAction(ctx, u, a, act)
}

func (d *Desk) requestAction(ctx context.Context, u *users.User, a action) (string, error) {
	var (
		out *purchasing.Outcome
		err error
	)
	switch a.verb {
	case "approve":
		out, err = d.requests.SetStatus(ctx, a.id, string(requests.StatusApproved))
	case "review":
		out, err = d.requests.SetStatus(ctx, a.id, string(requests.StatusUnderReview))
	case "send":
		out, err = d.requests.SetStatus(ctx, a.id, string(requests.StatusSentToSupplier))
	case "submit":
		out, err = d.requests.Submit(ctx, a.id, "")
	}
	if err != nil {
		return "", err
	}
	d.log.Info("request action from chat", "request", a.id, "action", a.verb, "user", u.Name)
	return describeRequest(out.Request, out.Warnings), nil
}

func (d *Desk) receiptAction(ctx context.Context, u *users.User, a action, act receipts.Action) (string, error) {
	out, err := d.receipts.Workflow(ctx, a.id, act)
	if err != nil {
		return "", err
	}
	d.log.Info("receipt action from chat", "receipt", a.id, "action", act, "user", u.Name)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Receipt %s: %s", out.Receipt.ID, out.Receipt.WorkflowState)
	for _, m := range out.Messages {
		sb.WriteString("\n" + m)
	}
	return sb.String(), nil
}

func (d *Desk) OpenRequests(ctx context.Context) ([]requests.Request, error) {
	return d.openReqs.ListOpen(ctx, []requests.Status{
		requests.StatusPendingApproval,
		requests.StatusUnderReview,
		requests.StatusApproved,
	}, listLimit)
}

func (d *Desk) PendingReceipts(ctx context.Context) ([]receipts.Receipt, error) {
	return d.pendingQA.ListByState(ctx, receipts.StateReceivedPendingQA, listLimit)
}

// DraftReceipts are receipts entered but not yet booked into stock.
func (d *Desk) DraftReceipts(ctx context.Context) ([]receipts.Receipt, error) {
	return d.pendingQA.ListByState(ctx, receipts.StateDraft, listLimit)
}

func describeRequest(r *requests.Request, warnings []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s (%s)", r.ID, r.Status, r.DocStatus)
	if r.Title != "" {
		sb.WriteString("\n" + r.Title)
	}
	for _, w := range warnings {
		sb.WriteString("\n! " + w)
	}
	return sb.String()
}

func describeReceipt(rc receipts.Receipt) string {
	return fmt.Sprintf("Receipt %s from %s, bill %s (%s)", rc.ID, rc.Supplier, rc.BillNo, rc.PostingDate.Format("2006-01-02"))
}

type button struct {
	Label string
	Data  string
}

// requestButtonsFor hides the request actions from read-only viewers.
func requestButtonsFor(u *users.User, r requests.Request) []button {
	if !u.HasAnyRole(purchasingRoles...) {
		return nil
	}
	return requestButtons(r)
}

// requestButtons are the actions a request accepts in its current state.
func requestButtons(r requests.Request) []button {
	switch {
	case r.Status == requests.StatusPendingApproval:
		return []button{
			{"Approve", callbackData("mr", "approve", r.ID)},
			{"Under review", callbackData("mr", "review", r.ID)},
		}
	case r.Status == requests.StatusUnderReview:
		return []button{{"Approve", callbackData("mr", "approve", r.ID)}}
	case r.Status == requests.StatusApproved && r.DocStatus == requests.DocDraft:
		return []button{{"Submit", callbackData("mr", "submit", r.ID)}}
	case r.Status == requests.StatusApproved && r.DocStatus == requests.DocSubmitted && r.SupplierEmail != "":
		return []button{{"Send to supplier", callbackData("mr", "send", r.ID)}}
	}
	return nil
}

func receiptButtons(rc receipts.Receipt) []button {
	switch rc.WorkflowState {
	case receipts.StateDraft, "":
		return []button{{"Receive", callbackData("rc", "receive", rc.ID)}}
	case receipts.StateReceivedPendingQA:
		return []button{
			{"QA approve", callbackData("qa", "approve", rc.ID)},
			{"QA reject", callbackData("qa", "reject", rc.ID)},
		}
	}
	return nil
}

// userMessage is what a failed action tells the user. Unexpected errors are
// logged and hidden.
func (d *Desk) userMessage(err error) string {
	var (
		ve *domain.ValidationError
		pe *domain.PreconditionError
		ie *domain.InvalidStateError
		be *domain.BlockedMovementError
	)
	switch {
	case errors.Is(err, errForbidden):
		return err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return "document not found"
	case errors.As(err, &ve), errors.As(err, &pe), errors.As(err, &ie), errors.As(err, &be):
		return err.Error()
	}
	d.log.Error("chat action failed", "err", err)
	return "Something went wrong, try again later."
}
