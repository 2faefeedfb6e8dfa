// Package replenish creates purchase requests for stock below its reorder level.
package replenish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spok95/labstock/internal/clock"
	"github.com/Spok95/labstock/internal/domain/inventory"
	"github.com/Spok95/labstock/internal/domain/requests"
	"github.com/Spok95/labstock/internal/infra/events"
	"github.com/Spok95/labstock/internal/infra/metrics"
	"github.com/Spok95/labstock/internal/purchasing"
)

type Rules interface {
	ActiveReorderRules(ctx context.Context) ([]inventory.ReorderRule, error)
	Snapshot(ctx context.Context, itemCode, location string) (inventory.Snapshot, error)
}

type History interface {
	RecentLines(ctx context.Context, since, until time.Time) ([]requests.Similar, error)
}

type Creator interface {
	CreateAutomatic(ctx context.Context, r *requests.Request) (*purchasing.Outcome, error)
}

// Skip reasons reported by a scan.
const (
	SkipIncomplete = "incomplete_rule"
	SkipNoLevels   = "no_levels"
	SkipAbove      = "above_threshold"
	SkipNothing    = "nothing_required"
	SkipDuplicate  = "duplicate"
)

type Failure struct {
	ItemCode string `json:"item_code"`
	Location string `json:"location"`
	Error    string `json:"error"`
}

type Report struct {
	Started  time.Time      `json:"started"`
	Rules    int            `json:"rules"`
	Created  []string       `json:"created"`
	Skipped  map[string]int `json:"skipped"`
	Failures []Failure      `json:"failures"`
}

func (r *Report) skip(reason string) { r.Skipped[reason]++ }

type Settings struct {
	DuplicateWindowDays int
	DefaultLeadDays     int
}

type Scanner struct {
	rules    Rules
	history  History
	creator  Creator
	events   events.Publisher
	clock    clock.Clock
	log      *slog.Logger
	metrics  *metrics.Metrics
	settings Settings
}

func NewScanner(rules Rules, h History, c Creator, pub events.Publisher, clk clock.Clock, log *slog.Logger, m *metrics.Metrics, st Settings) *Scanner {
	if pub == nil {
		pub = events.Nop{}
	}
	if st.DuplicateWindowDays < 0 {
		st.DuplicateWindowDays = requests.DefaultSimilarWindowDays
	}
	if st.DefaultLeadDays <= 0 {
		st.DefaultLeadDays = 7
	}
	return &Scanner{rules: rules, history: h, creator: c, events: pub, clock: clk, log: log, metrics: m, settings: st}
}

// Run evaluates every active reorder rule once. Per-rule failures are
// recorded in the report and do not stop the pass.
func (s *Scanner) Run(ctx context.Context) (*Report, error) {
	started := s.clock.Now()
	defer s.metrics.ScanFinished(time.Now())

	rep := &Report{Started: started, Skipped: map[string]int{}}

	rules, err := s.rules.ActiveReorderRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reorder rules: %w", err)
	}
	rep.Rules = len(rules)

	today := clock.Today(s.clock)
	existing, err := s.history.RecentLines(ctx, clock.AddDays(today, -s.settings.DuplicateWindowDays), today)
	if err != nil {
		return nil, fmt.Errorf("load recent requests: %w", err)
	}

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		outcome, created, err := s.evaluate(ctx, rule, today, existing)
		if err != nil {
			s.log.Error("reorder rule failed", "item", rule.ItemCode, "location", rule.Location, "err", err)
			s.metrics.RuleOutcome("failed")
			rep.Failures = append(rep.Failures, Failure{ItemCode: rule.ItemCode, Location: rule.Location, Error: err.Error()})
			continue
		}
		s.metrics.RuleOutcome(outcome)
		if created == nil {
			rep.skip(outcome)
			continue
		}
		rep.Created = append(rep.Created, created.ID)
		existing = append(existing, requests.SimilarFromRequest(created)...)
	}

	s.log.Info("replenishment scan finished",
		"rules", rep.Rules, "created", len(rep.Created), "failures", len(rep.Failures))

	if err := s.events.Publish(ctx, events.KeyScanFinished, events.ScanEvent{
		Created:  rep.Created,
		Skipped:  rep.Skipped,
		Failures: len(rep.Failures),
		At:       s.clock.Now(),
	}); err != nil {
		s.log.Error("publish event failed", "key", events.KeyScanFinished, "err", err)
	}
	return rep, nil
}

// evaluate returns the outcome label and the created request, if any.
func (s *Scanner) evaluate(ctx context.Context, rule inventory.ReorderRule, today time.Time, existing []requests.Similar) (string, *requests.Request, error) {
	if rule.ItemCode == "" || rule.Location == "" {
		return SkipIncomplete, nil, nil
	}
	if rule.Threshold.IsZero() && rule.ReplenishQty.IsZero() {
		return SkipNoLevels, nil, nil
	}

	snap, err := s.rules.Snapshot(ctx, rule.ItemCode, rule.Location)
	if err != nil {
		return "", nil, fmt.Errorf("stock projection: %w", err)
	}
	projected := snap.Projected()
	if projected.GreaterThan(rule.Threshold) {
		return SkipAbove, nil, nil
	}
	required, ok := rule.Required(projected)
	if !ok {
		return SkipNothing, nil, nil
	}

	q := requests.Window(rule.ItemCode, "", today, s.settings.DuplicateWindowDays)
	if dup := requests.FilterSimilar(existing, q); len(dup) > 0 {
		s.log.Debug("reorder skipped, similar request exists", "item", rule.ItemCode, "request", dup[0].RequestID)
		return SkipDuplicate, nil, nil
	}

	lead := rule.LeadTimeDays
	if lead <= 0 {
		lead = s.settings.DefaultLeadDays
	}
	needBy := clock.AddDays(today, lead)

	req := &requests.Request{
		Category:        requests.CategoryPurchase,
		TransactionDate: today,
		ScheduleDate:    needBy,
		Items: []requests.Item{{
			ItemCode:     rule.ItemCode,
			ItemName:     rule.ItemName,
			Qty:          required,
			Location:     rule.Location,
			ScheduleDate: needBy,
		}},
	}
	out, err := s.creator.CreateAutomatic(ctx, req)
	if err != nil {
		return "", nil, err
	}
	for _, w := range out.Warnings {
		s.log.Warn("auto request warning", "request", out.Request.ID, "warning", w)
	}
	s.log.Info("auto request created", "request", out.Request.ID, "item", rule.ItemCode,
		"location", rule.Location, "qty", required.String(), "projected", projected.String())
	return "created", out.Request, nil
}
