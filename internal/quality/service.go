package quality

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Spok95/labstock/internal/clock"
	"github.com/Spok95/labstock/internal/domain/inventory"
	"github.com/Spok95/labstock/internal/domain/lots"
	"github.com/Spok95/labstock/internal/domain/receipts"
	"github.com/Spok95/labstock/internal/domain/requests"
	"github.com/Spok95/labstock/internal/domain/users"
	"github.com/Spok95/labstock/internal/hooks"
	"github.com/Spok95/labstock/internal/infra/events"
	"github.com/Spok95/labstock/internal/infra/metrics"
)

type ReceiptStore interface {
	Get(ctx context.Context, id string) (*receipts.Receipt, error)
	Save(ctx context.Context, rc *receipts.Receipt) error
	SetWorkflowState(ctx context.Context, id string, from, to receipts.WorkflowState) error
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	BillExists(ctx context.Context, supplier, billNo, excludeID string) (bool, error)
}

type StockStore interface {
	Receive(ctx context.Context, moves []inventory.Movement) error
	InsertTransfer(ctx context.Context, t *inventory.Transfer) error
	SubmitTransfer(ctx context.Context, t *inventory.Transfer) error
}

type LotStore interface {
	Get(ctx context.Context, id string) (*lots.Lot, error)
	Save(ctx context.Context, l *lots.Lot) error
	CertificateStatus(ctx context.Context, id string) (lots.CertificateStatus, error)
	NextName(ctx context.Context, series string) (string, error)
}

type RequestLookup interface {
	HasOpenForSupplier(ctx context.Context, supplier, itemCode string) (bool, error)
	GetItem(ctx context.Context, itemID int64) (*requests.Item, error)
}

type Catalog interface {
	BatchPrefix(ctx context.Context, itemCode string) (string, error)
	ItemGroup(ctx context.Context, itemCode string) (string, error)
}

type UserLookup interface {
	GetByName(ctx context.Context, name string) (*users.User, error)
}

type LotNotifier interface {
	CertificatePending(ctx context.Context, l *lots.Lot) error
}

// DefaultControlledGroups are the item groups released from quarantine by a QA decision.
var DefaultControlledGroups = []string{"Materia Prima", "Empaque", "Raw Material", "Packaging"}

type Settings struct {
	Locations        inventory.Locations
	ControlledGroups []string
}

type Deps struct {
	Receipts ReceiptStore
	Stock    StockStore
	Lots     LotStore
	Requests RequestLookup
	Catalog  Catalog
	Users    UserLookup
	Notifier LotNotifier
	Events   events.Publisher
}

type Service struct {
	receipts   ReceiptStore
	stock      StockStore
	lots       LotStore
	requests   RequestLookup
	catalog    Catalog
	users      UserLookup
	notifier   LotNotifier
	events     events.Publisher
	clock      clock.Clock
	log        *slog.Logger
	metrics    *metrics.Metrics
	locs       inventory.Locations
	controlled map[string]bool

	receiptHooks *hooks.Registry[*ReceiptChange]
	lotHooks     *hooks.Registry[*LotChange]
	entryHooks   *hooks.Registry[*inventory.Transfer]
}

func NewService(d Deps, clk clock.Clock, log *slog.Logger, m *metrics.Metrics, st Settings) *Service {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	groups := st.ControlledGroups
	if len(groups) == 0 {
		groups = DefaultControlledGroups
	}
	controlled := make(map[string]bool, len(groups))
	for _, g := range groups {
		controlled[g] = true
	}

	s := &Service{
		receipts:   d.Receipts,
		stock:      d.Stock,
		lots:       d.Lots,
		requests:   d.Requests,
		catalog:    d.Catalog,
		users:      d.Users,
		notifier:   d.Notifier,
		events:     d.Events,
		clock:      clk,
		log:        log,
		metrics:    m,
		locs:       st.Locations,
		controlled: controlled,

		receiptHooks: hooks.NewRegistry[*ReceiptChange](),
		lotHooks:     hooks.NewRegistry[*LotChange](),
		entryHooks:   hooks.NewRegistry[*inventory.Transfer](),
	}

	s.receiptHooks.On(hooks.BeforeInsert, s.receiptDefaults)
	s.receiptHooks.On(hooks.Validate, s.validateReceipt)
	s.receiptHooks.On(hooks.OnUpdate, s.releaseOnDecision)

	s.lotHooks.On(hooks.BeforeInsert, s.nameLot)
	s.lotHooks.On(hooks.Validate, s.validateLot)
	s.lotHooks.On(hooks.OnUpdate, s.notifyPendingCertificate)

	s.entryHooks.On(hooks.BeforeInsert, entryDefaults)
	s.entryHooks.On(hooks.Validate, s.guardEntry)
	return s
}

func (s *Service) ReceiptHooks() *hooks.Registry[*ReceiptChange] { return s.receiptHooks }
func (s *Service) LotHooks() *hooks.Registry[*LotChange]         { return s.lotHooks }

// EntryHooks are the stock entry (transfer) handlers.
func (s *Service) EntryHooks() *hooks.Registry[*inventory.Transfer] { return s.entryHooks }

func (s *Service) isControlled(group string) bool { return s.controlled[group] }

func stockQty(qty, factor decimal.Decimal) decimal.Decimal {
	if factor.IsZero() {
		return qty
	}
	return qty.Mul(factor)
}
