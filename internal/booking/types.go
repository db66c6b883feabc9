// Package booking holds the reservation consistency core: the availability
// index, the reservation ledger and the orchestrator every call site books
// through.
package booking

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return st, nil
	}
	return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
}

// Holds reports whether a reservation in this status occupies inventory.
func (s Status) Holds() bool { return s == StatusPending || s == StatusConfirmed }

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch ps := PaymentStatus(strings.ToLower(strings.TrimSpace(s))); ps {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return ps, nil
	}
	return "", &ValidationError{Field: "payment_status", Reason: fmt.Sprintf("unknown payment status %q", s)}
}

type Origin string

const (
	OriginOnline Origin = "online"
	OriginWalkIn Origin = "walkin"
)

func ParseOrigin(s string) (Origin, error) {
	switch o := Origin(strings.ToLower(strings.TrimSpace(s))); o {
	case OriginOnline, OriginWalkIn:
		return o, nil
	}
	return "", &ValidationError{Field: "origin", Reason: fmt.Sprintf("unknown origin %q", s)}
}

// DateRange is a half-open span of calendar dates: the guest occupies the
// room from CheckIn up to, but not including, CheckOut.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Date truncates t to its calendar date in UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return Date(t), nil
}

func NewDateRange(checkIn, checkOut time.Time) (DateRange, error) {
	r := DateRange{CheckIn: Date(checkIn), CheckOut: Date(checkOut)}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// ParseDateRange parses two YYYY-MM-DD dates into a validated range.
func ParseDateRange(checkIn, checkOut string) (DateRange, error) {
	in, err := ParseDate(checkIn)
	if err != nil {
		return DateRange{}, &ValidationError{Field: "check_in", Reason: "want YYYY-MM-DD"}
	}
	out, err := ParseDate(checkOut)
	if err != nil {
		return DateRange{}, &ValidationError{Field: "check_out", Reason: "want YYYY-MM-DD"}
	}
	return NewDateRange(in, out)
}

func (r DateRange) Validate() error {
	if r.CheckIn.IsZero() {
		return &ValidationError{Field: "check_in", Reason: "required"}
	}
	if r.CheckOut.IsZero() {
		return &ValidationError{Field: "check_out", Reason: "required"}
	}
	if !r.CheckIn.Before(r.CheckOut) {
		return &ValidationError{Field: "check_out", Reason: "must be after check-in"}
	}
	return nil
}

// Overlaps uses half-open semantics, so a checkout on day X does not
// collide with a check-in on day X.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(r.CheckOut)
}

func (r DateRange) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

func (r DateRange) Equal(o DateRange) bool {
	return r.CheckIn.Equal(o.CheckIn) && r.CheckOut.Equal(o.CheckOut)
}

func (r DateRange) String() string {
	return r.CheckIn.Format(DateLayout) + ".." + r.CheckOut.Format(DateLayout)
}

type Reservation struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	RoomType        string
	RoomPrice       string
	Range           DateRange
	Guests          int
	Origin          Origin
	Status          Status
	PaymentStatus   PaymentStatus
	PaymentMethod   string
	AddOns          []string
	SpecialRequests string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HeldAt reports whether r occupies inventory for a lookup whose stale
// cutoff is staleBefore. Pending holds created before the cutoff have
// expired; a zero cutoff disables expiry.
func (r Reservation) HeldAt(staleBefore time.Time) bool {
	switch r.Status {
	case StatusConfirmed:
		return true
	case StatusPending:
		return staleBefore.IsZero() || !r.CreatedAt.Before(staleBefore)
	}
	return false
}

// Expired reports whether r is a pending hold past the stale cutoff.
func (r Reservation) Expired(staleBefore time.Time) bool {
	return r.Status == StatusPending && !r.HeldAt(staleBefore)
}

func (r Reservation) Clone() Reservation {
	r.AddOns = append([]string(nil), r.AddOns...)
	return r
}
