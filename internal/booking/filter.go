package booking

import (
	"sort"
	"strings"
	"time"
)

// Filter is a conjunction; zero-valued fields do not restrict.
type Filter struct {
	// Query is a case-insensitive substring matched against name, phone
	// and email.
	Query         string
	Origin        Origin
	PaymentStatus PaymentStatus
	Status        Status
	// CheckIn matches an exact check-in date.
	CheckIn time.Time
}

func (f Filter) Matches(r Reservation) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(r.Name), q) &&
			!strings.Contains(strings.ToLower(r.Phone), q) &&
			!strings.Contains(strings.ToLower(r.Email), q) {
			return false
		}
	}
	if f.Origin != "" && r.Origin != f.Origin {
		return false
	}
	if f.PaymentStatus != "" && r.PaymentStatus != f.PaymentStatus {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !f.CheckIn.IsZero() && !r.Range.CheckIn.Equal(Date(f.CheckIn)) {
		return false
	}
	return true
}

// SortNewestFirst orders by creation time descending, then by id for a
// stable result.
func SortNewestFirst(rs []Reservation) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.After(rs[j].CreatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}
