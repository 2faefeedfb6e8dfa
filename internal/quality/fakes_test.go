package quality

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Spok95/labstock/internal/clock"
	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/inventory"
	"github.com/Spok95/labstock/internal/domain/lots"
	"github.com/Spok95/labstock/internal/domain/receipts"
	"github.com/Spok95/labstock/internal/domain/requests"
	"github.com/Spok95/labstock/internal/domain/users"
)

const (
	locQC       = "Quality Control"
	locApproved = "Main Store"
	locRejected = "Rejected"
)

var now = time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC)

func locations() inventory.Locations {
	return inventory.Locations{Quarantine: locQC, Approved: locApproved, Rejected: locRejected}
}

type fakeReceipts struct {
	mu    sync.Mutex
	byID  map[string]*receipts.Receipt
	bills map[string]string            // supplier|bill -> receipt id
	stale map[string]*receipts.Receipt // returned by Get instead of the stored row
}

func newFakeReceipts() *fakeReceipts {
	return &fakeReceipts{byID: map[string]*receipts.Receipt{}, bills: map[string]string{}}
}

func copyReceipt(rc *receipts.Receipt) *receipts.Receipt {
	c := *rc
	c.Lines = append([]receipts.Line(nil), rc.Lines...)
	return &c
}

func (f *fakeReceipts) Get(_ context.Context, id string) (*receipts.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rc, ok := f.stale[id]; ok {
		return copyReceipt(rc), nil
	}
	rc, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return copyReceipt(rc), nil
}

func (f *fakeReceipts) Save(_ context.Context, rc *receipts.Receipt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[rc.ID] = copyReceipt(rc)
	f.bills[rc.Supplier+"|"+rc.BillNo] = rc.ID
	return nil
}

func (f *fakeReceipts) SetWorkflowState(_ context.Context, id string, from, to receipts.WorkflowState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rc, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	cur := rc.WorkflowState
	if cur == "" {
		cur = receipts.StateDraft
	}
	if cur != from {
		return &domain.PreconditionError{Msg: "receipt workflow state changed concurrently"}
	}
	rc.WorkflowState = to
	rc.DocStatus = receipts.DocStatusFor(to)
	return nil
}

// WithTx restores the stored receipts when fn fails.
func (f *fakeReceipts) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	saved := make(map[string]*receipts.Receipt, len(f.byID))
	for id, rc := range f.byID {
		saved[id] = copyReceipt(rc)
	}
	f.mu.Unlock()
	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.byID = saved
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeReceipts) BillExists(_ context.Context, supplier, billNo, excludeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.bills[supplier+"|"+billNo]
	return ok && id != excludeID, nil
}

type fakeStock struct {
	mu         sync.Mutex
	moves      []inventory.Movement
	transfers  []*inventory.Transfer
	submitErr  error
	receiveErr error
}

func (f *fakeStock) Receive(_ context.Context, moves []inventory.Movement) error {
	if f.receiveErr != nil {
		return f.receiveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, moves...)
	return nil
}

func (f *fakeStock) InsertTransfer(_ context.Context, t *inventory.Transfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = append(f.transfers, t)
	return nil
}

func (f *fakeStock) SubmitTransfer(_ context.Context, t *inventory.Transfer) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	t.DocStatus = inventory.DocSubmitted
	return nil
}

type fakeLots struct {
	mu     sync.Mutex
	byID   map[string]*lots.Lot
	series map[string]int64
}

func newFakeLots(ls ...*lots.Lot) *fakeLots {
	f := &fakeLots{byID: map[string]*lots.Lot{}, series: map[string]int64{}}
	for _, l := range ls {
		c := *l
		f.byID[l.ID] = &c
	}
	return f
}

func (f *fakeLots) Get(_ context.Context, id string) (*lots.Lot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	c := *l
	return &c, nil
}

func (f *fakeLots) Save(_ context.Context, l *lots.Lot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *l
	f.byID[l.ID] = &c
	return nil
}

func (f *fakeLots) CertificateStatus(_ context.Context, id string) (lots.CertificateStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return "", fmt.Errorf("lot %s: %w", id, domain.ErrNotFound)
	}
	return l.CertificateStatus, nil
}

func (f *fakeLots) NextName(_ context.Context, series string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.series[series]++
	return lots.FormatName(series, f.series[series]), nil
}

type fakeRequests struct {
	open  map[string]bool // supplier|item
	items map[int64]*requests.Item
}

func (f fakeRequests) HasOpenForSupplier(_ context.Context, supplier, itemCode string) (bool, error) {
	return f.open[supplier+"|"+itemCode], nil
}

func (f fakeRequests) GetItem(_ context.Context, id int64) (*requests.Item, error) {
	return f.items[id], nil
}

type fakeCatalog map[string]string

func (c fakeCatalog) BatchPrefix(_ context.Context, itemCode string) (string, error) {
	return c[itemCode], nil
}

var itemGroups = map[string]string{"GLY-01": "Raw Material", "BOT-50": "Packaging", "GLV-M": "Consumables"}

func (c fakeCatalog) ItemGroup(_ context.Context, itemCode string) (string, error) {
	return itemGroups[itemCode], nil
}

type fakeUsers map[string]*users.User

func (u fakeUsers) GetByName(_ context.Context, name string) (*users.User, error) {
	return u[name], nil
}

type recLotNotifier struct {
	mu      sync.Mutex
	pending []string
	err     error
}

func (n *recLotNotifier) CertificatePending(_ context.Context, l *lots.Lot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, l.ID)
	return n.err
}

type recPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recPublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

type fixture struct {
	svc      *Service
	receipts *fakeReceipts
	stock    *fakeStock
	lots     *fakeLots
	requests *fakeRequests
	notifier *recLotNotifier
	events   *recPublisher
}

func newFixture(locs inventory.Locations, ls ...*lots.Lot) *fixture {
	f := &fixture{
		receipts: newFakeReceipts(),
		stock:    &fakeStock{},
		lots:     newFakeLots(ls...),
		requests: &fakeRequests{
			open:  map[string]bool{"ACME|GLY-01": true},
			items: map[int64]*requests.Item{},
		},
		notifier: &recLotNotifier{},
		events:   &recPublisher{},
	}
	d := Deps{
		Receipts: f.receipts,
		Stock:    f.stock,
		Lots:     f.lots,
		Requests: f.requests,
		Catalog:  fakeCatalog{"GLY-01": "GLY"},
		Users:    fakeUsers{"qa": {Name: "qa", Enabled: true}, "old": {Name: "old", Enabled: false}},
		Notifier: f.notifier,
		Events:   f.events,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(d, clock.NewFixed(now), log, nil, Settings{Locations: locs})
	return f
}
