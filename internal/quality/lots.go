package quality

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Spok95/labstock/internal/clock"
	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/lots"
	"github.com/Spok95/labstock/internal/hooks"
)

type LotChange struct {
	Prev     *lots.Lot
	Cur      *lots.Lot
	Messages []string
}

type LotOutcome struct {
	Lot      *lots.Lot
	Messages []string
}

// SaveLot names (on insert), validates and stores a lot.
func (s *Service) SaveLot(ctx context.Context, l *lots.Lot) (*LotOutcome, error) {
	var prev *lots.Lot
	if l.ID != "" {
		p, err := s.lots.Get(ctx, l.ID)
		if err != nil {
			return nil, err
		}
		prev = p
	}

	ch := &LotChange{Prev: prev, Cur: l}
	if prev == nil {
		if err := s.lotHooks.Fire(ctx, hooks.BeforeInsert, ch); err != nil {
			return nil, err
		}
	}
	if err := s.lotHooks.Fire(ctx, hooks.Validate, ch); err != nil {
		return nil, err
	}
	if err := s.lots.Save(ctx, l); err != nil {
		return nil, fmt.Errorf("save lot: %w", err)
	}
	if err := s.lotHooks.Fire(ctx, hooks.OnUpdate, ch); err != nil {
		return nil, err
	}
	return &LotOutcome{Lot: l, Messages: ch.Messages}, nil
}

func (s *Service) nameLot(ctx context.Context, ch *LotChange) error {
	l := ch.Cur
	if l.ID != "" || l.ItemCode == "" {
		return nil
	}
	prefix, err := s.catalog.BatchPrefix(ctx, l.ItemCode)
	if err != nil {
		return err
	}
	if prefix == "" {
		l.ID = uuid.NewString()
		return nil
	}
	name, err := s.lots.NextName(ctx, lots.Series(prefix, clock.Today(s.clock)))
	if err != nil {
		return fmt.Errorf("next lot name: %w", err)
	}
	l.ID = name
	return nil
}

func (s *Service) validateLot(ctx context.Context, ch *LotChange) error {
	l := ch.Cur
	l.Normalize()
	if err := lots.Validate(l, clock.Today(s.clock)); err != nil {
		return err
	}
	if l.CertificateStatus != lots.CertificatePending {
		return nil
	}

	name := strings.TrimSpace(l.MissingCertAuthorizedBy)
	u, err := s.users.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if u == nil || !u.Enabled {
		return domain.Validation("missing_certificate_authorized_by", "unknown user %q", name)
	}
	return nil
}

func (s *Service) notifyPendingCertificate(ctx context.Context, ch *LotChange) error {
	if !lots.BecamePending(ch.Prev, ch.Cur) {
		return nil
	}
	if err := s.notifier.CertificatePending(ctx, ch.Cur); err != nil {
		if domain.IsBlocking(err) {
			return err
		}
		ch.Messages = append(ch.Messages, err.Error())
	}
	return nil
}
