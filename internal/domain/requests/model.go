package requests

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/labstock/internal/domain"
)

type Status string

const (
	StatusPendingApproval Status = "Pending Approval"
	StatusUnderReview     Status = "Under Review"
	StatusApproved        Status = "Approved"
	StatusSentToSupplier  Status = "Sent to Supplier"
	StatusConfirmed       Status = "Confirmed"
	StatusPendingDelivery Status = "Pending Delivery"
	StatusCancelled       Status = "Cancelled"
)

// AllStatuses is the closed set a request status may take, in lifecycle order.
var AllStatuses = []Status{
	StatusPendingApproval,
	StatusUnderReview,
	StatusApproved,
	StatusSentToSupplier,
	StatusConfirmed,
	StatusPendingDelivery,
	StatusCancelled,
}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool { return s == StatusCancelled }

func ParseStatus(v string) (Status, error) {
	s := Status(strings.TrimSpace(v))
	if !s.Valid() {
		allowed := make([]string, 0, len(AllStatuses))
		for _, a := range AllStatuses {
			allowed = append(allowed, string(a))
		}
		return "", &domain.InvalidStateError{Value: v, Allowed: allowed}
	}
	return s, nil
}

type Category string

const (
	CategoryPurchase Category = "Purchase"
	CategoryTransfer Category = "Material Transfer"
)

type DocStatus int

const (
	DocDraft     DocStatus = 0
	DocSubmitted DocStatus = 1
	DocCancelled DocStatus = 2
)

func (d DocStatus) String() string {
	switch d {
	case DocDraft:
		return "draft"
	case DocSubmitted:
		return "submitted"
	case DocCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("docstatus(%d)", int(d))
	}
}

type Item struct {
	ID           int64
	ItemCode     string
	ItemName     string
	Qty          decimal.Decimal
	ReceivedQty  decimal.Decimal
	Location     string
	ScheduleDate time.Time
}

// Pending is the quantity still expected against this line.
func (it Item) Pending() decimal.Decimal {
	return it.Qty.Sub(it.ReceivedQty)
}

type Request struct {
	ID                string
	Category          Category
	Title             string
	RequestedBy       string
	TransactionDate   time.Time
	ScheduleDate      time.Time
	SuggestedSupplier string
	SupplierEmail     string
	Status            Status
	DocStatus         DocStatus
	AutoCreated       bool
	Items             []Item
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (r *Request) IsPurchase() bool { return r.Category == CategoryPurchase }

// ItemCodes returns the distinct item codes of the request, sorted.
func (r *Request) ItemCodes() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, it := range r.Items {
		if it.ItemCode == "" {
			continue
		}
		if _, ok := seen[it.ItemCode]; ok {
			continue
		}
		seen[it.ItemCode] = struct{}{}
		out = append(out, it.ItemCode)
	}
	sort.Strings(out)
	return out
}

const maxTitleLen = 100

// DefaultTitle fills Title from the first three item names when it is empty.
func (r *Request) DefaultTitle() {
	if r.Title != "" {
		return
	}
	names := make([]string, 0, 3)
	for _, it := range r.Items {
		if len(names) == 3 {
			break
		}
		n := it.ItemName
		if n == "" {
			n = it.ItemCode
		}
		names = append(names, n)
	}
	kind := "Purchase"
	if r.Category == CategoryTransfer {
		kind = "Material Transfer"
	}
	title := []rune(fmt.Sprintf("%s Request for %s", kind, strings.Join(names, ", ")))
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}
	r.Title = string(title)
}

// Validate checks the fields every save requires.
func Validate(r *Request) error {
	if r.Status != "" && !r.Status.Valid() {
		_, err := ParseStatus(string(r.Status))
		return err
	}
	if r.Category != CategoryPurchase && r.Category != CategoryTransfer {
		return domain.Validation("category", "unknown request category %q", r.Category)
	}
	if len(r.Items) == 0 {
		return domain.Validation("items", "at least one item is required")
	}
	for i, it := range r.Items {
		if it.ItemCode == "" {
			return domain.Validation("items", "row %d: item code is required", i+1)
		}
		if !it.Qty.IsPositive() {
			return domain.Validation("items", "row %d: quantity for %s must be greater than 0", i+1, it.ItemCode)
		}
		if r.Category == CategoryTransfer && it.Location == "" {
			return domain.Validation("items", "row %d: target location is required for transfers", i+1)
		}
	}
	return nil
}
