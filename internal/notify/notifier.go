package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Spok95/labstock/internal/domain"
	"github.com/Spok95/labstock/internal/domain/lots"
	"github.com/Spok95/labstock/internal/domain/requests"
	"github.com/Spok95/labstock/internal/domain/users"
	"github.com/Spok95/labstock/internal/infra/metrics"
)

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Message struct {
	To          []string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Chat posts to group chats (purchasing, quality).
type Chat interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, file Attachment, caption string) error
}

type Directory interface {
	ListByRoles(ctx context.Context, roles ...users.Role) ([]users.User, error)
}

type Renderer interface {
	RequestSheet(r *requests.Request) (Attachment, error)
	SupplierEmail(r *requests.Request) (string, error)
}

type Config struct {
	PurchasingRoles  []users.Role
	QualityRoles     []users.Role
	SystemUsers      []string
	PurchasingChatID int64
	QualityChatID    int64
}

func DefaultConfig() Config {
	return Config{
		PurchasingRoles: []users.Role{users.RolePurchasingManager},
		QualityRoles:    []users.Role{users.RoleQualityManager, users.RoleDirector},
		SystemUsers:     []string{"Administrator", "Guest"},
	}
}

// Notifier delivers request and lot notifications. Delivery failures come
// back as *domain.NotificationFailure and are already logged.
type Notifier struct {
	mail    Mailer
	chat    Chat
	dir     Directory
	render  Renderer
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New builds a Notifier. chat may be nil when no group chat is configured.
func New(mail Mailer, chat Chat, dir Directory, render Renderer, cfg Config, log *slog.Logger, m *metrics.Metrics) *Notifier {
	return &Notifier{mail: mail, chat: chat, dir: dir, render: render, cfg: cfg, log: log, metrics: m}
}

func subject(r *requests.Request) string {
	return fmt.Sprintf("Material Request - %s", r.ID)
}

// NewRequest tells the purchasing group a request is ready for review.
func (n *Notifier) NewRequest(ctx context.Context, r *requests.Request) error {
	if !r.IsPurchase() {
		return nil
	}

	us, err := n.dir.ListByRoles(ctx, n.cfg.PurchasingRoles...)
	if err != nil {
		return n.failed(ctx, "directory", r.ID, err)
	}

	text := fmt.Sprintf("A new Material Request is ready for review: %s", r.ID)
	if r.AutoCreated {
		text += " (created automatically by reorder level)"
	}

	var firstErr error
	if to := users.Emails(us, n.cfg.SystemUsers...); len(to) > 0 {
		err := n.mail.Send(ctx, Message{To: to, Subject: subject(r), Text: text})
		n.metrics.Notification("mail", err)
		if err != nil {
			firstErr = n.failed(ctx, "mail", r.ID, err)
		}
	} else {
		n.log.Debug("no purchasing recipients", "request", r.ID)
	}

	if n.chat != nil && n.cfg.PurchasingChatID != 0 {
		err := n.chat.SendText(ctx, n.cfg.PurchasingChatID, text+"\n"+r.Title)
		n.metrics.Notification("telegram", err)
		if err != nil && firstErr == nil {
			firstErr = n.failed(ctx, "telegram", r.ID, err)
		}
	}
	return firstErr
}

// CheckSupplierContact is the blocking part of a supplier dispatch.
func CheckSupplierContact(r *requests.Request) error {
	if strings.TrimSpace(r.SupplierEmail) == "" {
		return domain.Validation("supplier_email", "supplier email is required")
	}
	return nil
}

// SupplierDispatch mails the request, with its rendered sheet attached, to the supplier.
func (n *Notifier) SupplierDispatch(ctx context.Context, r *requests.Request) error {
	if err := CheckSupplierContact(r); err != nil {
		return err
	}

	body, err := n.render.SupplierEmail(r)
	if err != nil {
		return n.failed(ctx, "render", r.ID, err)
	}
	if body == "" {
		return nil
	}
	sheet, err := n.render.RequestSheet(r)
	if err != nil {
		return n.failed(ctx, "render", r.ID, err)
	}

	err = n.mail.Send(ctx, Message{
		To:          []string{r.SupplierEmail},
		Subject:     subject(r),
		HTML:        body,
		Attachments: []Attachment{sheet},
	})
	n.metrics.Notification("mail", err)
	if err != nil {
		return n.failed(ctx, "mail", r.ID, err)
	}

	if n.chat != nil && n.cfg.PurchasingChatID != 0 {
		err := n.chat.SendDocument(ctx, n.cfg.PurchasingChatID, sheet,
			fmt.Sprintf("%s sent to %s", r.ID, r.SupplierEmail))
		n.metrics.Notification("telegram", err)
		if err != nil {
			return n.failed(ctx, "telegram", r.ID, err)
		}
	}
	return nil
}

// CertificatePending alerts quality management about a lot received without certificate.
func (n *Notifier) CertificatePending(ctx context.Context, l *lots.Lot) error {
	us, err := n.dir.ListByRoles(ctx, n.cfg.QualityRoles...)
	if err != nil {
		return n.failed(ctx, "directory", l.ID, err)
	}

	subj := fmt.Sprintf("Lot %s: Pending Certificate", l.ID)
	text := fmt.Sprintf(
		"Lot %s for item %s has been received with a pending certificate.\nReason: %s\nAuthorized by: %s\nPlease follow up.",
		l.ID, l.ItemCode, l.MissingCertReason, l.MissingCertAuthorizedBy,
	)

	var firstErr error
	if to := users.Emails(us, n.cfg.SystemUsers...); len(to) > 0 {
		err := n.mail.Send(ctx, Message{To: to, Subject: subj, Text: text})
		n.metrics.Notification("mail", err)
		if err != nil {
			firstErr = n.failed(ctx, "mail", l.ID, err)
		}
	}
	if n.chat != nil && n.cfg.QualityChatID != 0 {
		err := n.chat.SendText(ctx, n.cfg.QualityChatID, subj+"\n"+text)
		n.metrics.Notification("telegram", err)
		if err != nil && firstErr == nil {
			firstErr = n.failed(ctx, "telegram", l.ID, err)
		}
	}
	return firstErr
}

func (n *Notifier) failed(_ context.Context, channel, doc string, err error) error {
	n.log.Error("notification failed", "channel", channel, "doc", doc, "err", err)
	return &domain.NotificationFailure{Channel: channel, Err: err}
}
