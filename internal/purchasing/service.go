package purchasing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Spok95/labstock/internal/clock"
	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/requests"
	"github.com/Spok95/labstock/internal/hooks"
	"github.com/Spok95/labstock/internal/infra/events"
	"github.com/Spok95/labstock/internal/infra/metrics"
	"github.com/Spok95/labstock/internal/notify"
)

type Store interface {
	Create(ctx context.Context, r *requests.Request) error
	Get(ctx context.Context, id string) (*requests.Request, error)
	UpdateStatus(ctx context.Context, id string, status requests.Status) error
	Submit(ctx context.Context, id string, status requests.Status) error
	Cancel(ctx context.Context, id string) error
	FindSimilar(ctx context.Context, q requests.SimilarQuery) ([]requests.Similar, error)
}

type Notifier interface {
	NewRequest(ctx context.Context, r *requests.Request) error
	SupplierDispatch(ctx context.Context, r *requests.Request) error
}

type Settings struct {
	DuplicateWindowDays int
	DefaultLeadDays     int
}

func DefaultSettings() Settings {
	return Settings{DuplicateWindowDays: requests.DefaultSimilarWindowDays, DefaultLeadDays: 7}
}

// Change is the document passed through the request hooks.
// Prev is nil on insert.
type Change struct {
	Prev     *requests.Request
	Cur      *requests.Request
	Warnings []string
}

func (c *Change) becomes(s requests.Status) bool {
	if c.Cur.Status != s {
		return false
	}
	return c.Prev == nil || c.Prev.Status != s
}

func (c *Change) warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// Outcome is what a lifecycle operation reports back: the stored request,
// advisory duplicates found before creation, and non-blocking warnings.
type Outcome struct {
	Request  *requests.Request
	Similar  []requests.Similar
	Warnings []string
}

type Service struct {
	store    Store
	notifier Notifier
	events   events.Publisher
	clock    clock.Clock
	log      *slog.Logger
	metrics  *metrics.Metrics
	settings Settings
	hooks    *hooks.Registry[*Change]
}

func NewService(store Store, n Notifier, pub events.Publisher, clk clock.Clock, log *slog.Logger, m *metrics.Metrics, st Settings) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if st.DuplicateWindowDays < 0 {
		st.DuplicateWindowDays = requests.DefaultSimilarWindowDays
	}
	s := &Service{
		store:    store,
		notifier: n,
		events:   pub,
		clock:    clk,
		log:      log,
		metrics:  m,
		settings: st,
		hooks:    hooks.NewRegistry[*Change](),
	}

	s.hooks.On(hooks.BeforeInsert, s.defaults)
	s.hooks.On(hooks.Validate, validate)
	s.hooks.On(hooks.OnUpdate, s.sideEffects)
	s.hooks.On(hooks.OnUpdate, s.publishStatus)
	s.hooks.On(hooks.OnSubmit, s.publish(events.KeyRequestSubmitted))
	s.hooks.On(hooks.OnCancel, s.publish(events.KeyRequestCancelled))
	return s
}

// Hooks exposes the request hook registry for additional handlers.
func (s *Service) Hooks() *hooks.Registry[*Change] { return s.hooks }

/* Operations */

// Create stores a new draft request. Similar recent requests do not block
// the creation; they come back in Outcome.Similar with a warning.
func (s *Service) Create(ctx context.Context, r *requests.Request) (*Outcome, error) {
	t, err := requests.Next(r.Status, requests.DocDraft, requests.ActionCreate, "")
	if err != nil {
		return nil, err
	}
	r.Status = t.To
	r.DocStatus = requests.DocDraft

	ch := &Change{Cur: r}
	if err := s.hooks.Fire(ctx, hooks.BeforeInsert, ch); err != nil {
		return nil, err
	}
	if err := s.hooks.Fire(ctx, hooks.Validate, ch); err != nil {
		return nil, err
	}

	out := &Outcome{Request: r}
	if r.IsPurchase() && !r.AutoCreated {
		sim, err := s.similarFor(ctx, r)
		if err != nil {
			return nil, err
		}
		if len(sim) > 0 {
			out.Similar = sim
			ch.warn("%d similar request line(s) found in the last %d days: %s",
				len(sim), s.settings.DuplicateWindowDays, similarIDs(sim))
		}
	}

	if err := s.store.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.metrics.Transition(string(r.Status))
	s.log.Info("request created", "request", r.ID, "status", r.Status, "auto", r.AutoCreated)

	if err := s.hooks.Fire(ctx, hooks.OnUpdate, ch); err != nil {
		return nil, err
	}
	out.Warnings = ch.Warnings
	return out, nil
}

// SetStatus moves a draft or submitted request to status. Cancelled is
// handled as Cancel.
func (s *Service) SetStatus(ctx context.Context, id string, status string) (*Outcome, error) {
	cur, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	t, err := requests.Next(cur.Status, cur.DocStatus, requests.ActionSetStatus, requests.Status(status))
	if err != nil {
		return nil, err
	}
	if t.To.Terminal() {
		return s.Cancel(ctx, id)
	}
	next := *cur
	next.Status = t.To
	ch := &Change{Prev: cur, Cur: &next}

	if err := s.hooks.Fire(ctx, hooks.Validate, ch); err != nil {
		return nil, err
	}
	if !t.Changed() {
		return &Outcome{Request: cur}, nil
	}

	if err := s.store.UpdateStatus(ctx, id, t.To); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	s.metrics.Transition(string(t.To))
	s.log.Info("request status changed", "request", id, "from", t.From, "to", t.To)

	if err := s.hooks.Fire(ctx, hooks.OnUpdate, ch); err != nil {
		return nil, err
	}
	return &Outcome{Request: &next, Warnings: ch.Warnings}, nil
}

// Submit finalizes an Approved draft. status is the status to store with the
// submission; empty keeps Approved.
func (s *Service) Submit(ctx context.Context, id string, status string) (*Outcome, error) {
	cur, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	t, err := requests.Next(cur.Status, cur.DocStatus, requests.ActionSubmit, requests.Status(status))
	if err != nil {
		var pe *domain.PreconditionError
		if errors.As(err, &pe) {
			s.metrics.SubmitRejected()
			s.log.Warn("submit rejected", "request", id, "status", cur.Status, "docstatus", cur.DocStatus.String())
		}
		return nil, err
	}
	next := *cur
	next.Status = t.To
	next.DocStatus = t.DocStatus
	ch := &Change{Prev: cur, Cur: &next}

	if err := s.hooks.Fire(ctx, hooks.Validate, ch); err != nil {
		return nil, err
	}
	if err := s.store.Submit(ctx, id, t.To); err != nil {
		return nil, err
	}
	if t.Changed() {
		s.metrics.Transition(string(t.To))
	}
	s.log.Info("request submitted", "request", id, "status", t.To)

	if err := s.hooks.Fire(ctx, hooks.OnSubmit, ch); err != nil {
		return nil, err
	}
	if err := s.hooks.Fire(ctx, hooks.OnUpdate, ch); err != nil {
		return nil, err
	}
	return &Outcome{Request: &next, Warnings: ch.Warnings}, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (*Outcome, error) {
	cur, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	t, err := requests.Next(cur.Status, cur.DocStatus, requests.ActionCancel, "")
	if err != nil {
		return nil, err
	}
	if err := s.store.Cancel(ctx, id); err != nil {
		return nil, fmt.Errorf("cancel request: %w", err)
	}
	next := *cur
	next.Status = t.To
	next.DocStatus = t.DocStatus
	if t.Changed() {
		s.metrics.Transition(string(t.To))
	}
	s.log.Info("request cancelled", "request", id, "from", t.From)

	ch := &Change{Prev: cur, Cur: &next}
	if err := s.hooks.Fire(ctx, hooks.OnCancel, ch); err != nil {
		return nil, err
	}
	return &Outcome{Request: &next, Warnings: ch.Warnings}, nil
}

// FindSimilar lists recent purchase request lines for itemCode, optionally
// restricted to supplier. A negative windowDays uses the configured window.
func (s *Service) FindSimilar(ctx context.Context, itemCode, supplier string, windowDays int) ([]requests.Similar, error) {
	itemCode = strings.TrimSpace(itemCode)
	if itemCode == "" {
		return nil, domain.Validation("item_code", "item code is required")
	}
	if windowDays < 0 {
		windowDays = s.settings.DuplicateWindowDays
	}
	q := requests.Window(itemCode, strings.TrimSpace(supplier), clock.Today(s.clock), windowDays)
	return s.store.FindSimilar(ctx, q)
}

// CreateAutomatic stores r as an approved, auto-created purchase request,
// submits it and notifies purchasing. Duplicate checks are the caller's job.
func (s *Service) CreateAutomatic(ctx context.Context, r *requests.Request) (*Outcome, error) {
	r.Category = requests.CategoryPurchase
	r.Status = requests.StatusApproved
	r.AutoCreated = true
	if r.RequestedBy == "" {
		r.RequestedBy = "reorder"
	}

	out, err := s.Create(ctx, r)
	if err != nil {
		return nil, err
	}
	sub, err := s.Submit(ctx, r.ID, "")
	if err != nil {
		// a leftover draft would suppress later scans without counting as incoming
		if cerr := s.store.Cancel(ctx, r.ID); cerr != nil {
			s.log.Error("cancel unsubmitted auto request failed", "request", r.ID, "err", cerr)
		}
		return nil, fmt.Errorf("submit auto request %s: %w", r.ID, err)
	}
	out.Request = sub.Request
	out.Warnings = append(out.Warnings, sub.Warnings...)

	if err := s.notifier.NewRequest(ctx, out.Request); err != nil {
		out.Warnings = append(out.Warnings, err.Error())
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, id string) (*requests.Request, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("request %s: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

func (s *Service) similarFor(ctx context.Context, r *requests.Request) ([]requests.Similar, error) {
	today := clock.Today(s.clock)
	var out []requests.Similar
	for _, code := range r.ItemCodes() {
		q := requests.Window(code, r.SuggestedSupplier, today, s.settings.DuplicateWindowDays)
		sim, err := s.store.FindSimilar(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("find similar %s: %w", code, err)
		}
		out = append(out, sim...)
	}
	return out, nil
}

func similarIDs(sim []requests.Similar) string {
	seen := map[string]bool{}
	var ids []string
	for _, s := range sim {
		if seen[s.RequestID] {
			continue
		}
		seen[s.RequestID] = true
		ids = append(ids, s.RequestID)
	}
	return strings.Join(ids, ", ")
}

/* Hooks */

func (s *Service) defaults(_ context.Context, ch *Change) error {
	r := ch.Cur
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Category == "" {
		r.Category = requests.CategoryPurchase
	}
	today := clock.Today(s.clock)
	if r.TransactionDate.IsZero() {
		r.TransactionDate = today
	}
	if r.ScheduleDate.IsZero() {
		r.ScheduleDate = clock.AddDays(r.TransactionDate, s.settings.DefaultLeadDays)
	}
	for i := range r.Items {
		if r.Items[i].ScheduleDate.IsZero() {
			r.Items[i].ScheduleDate = r.ScheduleDate
		}
		if r.Items[i].ItemName == "" {
			r.Items[i].ItemName = r.Items[i].ItemCode
		}
	}
	r.DefaultTitle()
	return nil
}

func validate(_ context.Context, ch *Change) error {
	if err := requests.Validate(ch.Cur); err != nil {
		return err
	}
	if ch.Cur.IsPurchase() && ch.becomes(requests.StatusSentToSupplier) {
		return notify.CheckSupplierContact(ch.Cur)
	}
	return nil
}

// sideEffects runs the notifications a status change implies. Delivery
// failures become warnings.
func (s *Service) sideEffects(ctx context.Context, ch *Change) error {
	r := ch.Cur
	if !r.IsPurchase() {
		return nil
	}

	var err error
	switch {
	case ch.becomes(requests.StatusPendingApproval):
		err = s.notifier.NewRequest(ctx, r)
	case ch.becomes(requests.StatusSentToSupplier):
		err = s.notifier.SupplierDispatch(ctx, r)
	}
	if err == nil {
		return nil
	}
	if domain.IsBlocking(err) {
		return err
	}
	ch.warn("%v", err)
	return nil
}

func (s *Service) publishStatus(ctx context.Context, ch *Change) error {
	if ch.Prev != nil && ch.Prev.Status == ch.Cur.Status {
		return nil
	}
	return s.publish(events.KeyRequestStatus)(ctx, ch)
}

func (s *Service) publish(key string) hooks.Handler[*Change] {
	return func(ctx context.Context, ch *Change) error {
		ev := events.RequestEvent{
			RequestID:   ch.Cur.ID,
			To:          string(ch.Cur.Status),
			DocStatus:   int(ch.Cur.DocStatus),
			AutoCreated: ch.Cur.AutoCreated,
			At:          s.clock.Now(),
		}
		if ch.Prev != nil {
			ev.From = string(ch.Prev.Status)
		}
		if err := s.events.Publish(ctx, key, ev); err != nil {
			s.log.Error("publish event failed", "key", key, "request", ch.Cur.ID, "err", err)
		}
		return nil
	}
}
