package requests

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultSimilarWindowDays = 3

// Similar is one request line matched by the duplicate filter.
type Similar struct {
	RequestID         string
	ItemCode          string
	SuggestedSupplier string
	TransactionDate   time.Time
	Status            Status
	DocStatus         DocStatus
	Category          Category
	Qty               decimal.Decimal
	Location          string
}

type SimilarQuery struct {
	ItemCode string
	Supplier string // optional
	Since    time.Time
	Until    time.Time
}

// Window builds the query for [today-windowDays, today].
func Window(itemCode, supplier string, today time.Time, windowDays int) SimilarQuery {
	if windowDays < 0 {
		windowDays = 0
	}
	return SimilarQuery{
		ItemCode: itemCode,
		Supplier: supplier,
		Since:    today.AddDate(0, 0, -windowDays),
		Until:    today,
	}
}

func (q SimilarQuery) Match(s Similar) bool {
	if s.ItemCode != q.ItemCode {
		return false
	}
	if q.Supplier != "" && s.SuggestedSupplier != q.Supplier {
		return false
	}
	if s.Category != CategoryPurchase || s.DocStatus == DocCancelled {
		return false
	}
	d := civil(s.TransactionDate)
	return !d.Before(civil(q.Since)) && !d.After(civil(q.Until))
}

// civil is the calendar date of t in its own location. Stored dates come back
// at UTC midnight while the window is built in the business timezone.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FilterSimilar applies q to an in-memory set of lines, most recent first.
func FilterSimilar(lines []Similar, q SimilarQuery) []Similar {
	var out []Similar
	for _, l := range lines {
		if q.Match(l) {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return civil(out[i].TransactionDate).After(civil(out[j].TransactionDate))
	})
	return out
}

// SimilarFromRequest expands a request into one Similar per line.
func SimilarFromRequest(r *Request) []Similar {
	out := make([]Similar, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, Similar{
			RequestID:         r.ID,
			ItemCode:          it.ItemCode,
			SuggestedSupplier: r.SuggestedSupplier,
			TransactionDate:   r.TransactionDate,
			Status:            r.Status,
			DocStatus:         r.DocStatus,
			Category:          r.Category,
			Qty:               it.Qty,
			Location:          it.Location,
		})
	}
	return out
}
