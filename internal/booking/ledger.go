package booking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ledger is the authoritative record of reservations and their lifecycle.
// New records only enter through the availability index.
type Ledger struct {
	store Store
	avail *Availability
	now   func() time.Time
}

func NewLedger(store Store, avail *Availability, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: store, avail: avail, now: now}
}

// Insert stores rec as pending/pending and returns it with its new id.
func (l *Ledger) Insert(ctx context.Context, rec Reservation) (Reservation, error) {
	now := l.now().UTC()
	rec = rec.Clone()
	rec.ID = uuid.NewString()
	rec.Status = StatusPending
	rec.PaymentStatus = PaymentPending
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return l.avail.ReserveTentatively(ctx, rec)
}

func (l *Ledger) Get(ctx context.Context, id string) (Reservation, error) {
	return l.store.Get(ctx, id)
}

func (l *Ledger) List(ctx context.Context, f Filter) ([]Reservation, error) {
	return l.store.List(ctx, f)
}

// ReleaseExpired cancels every pending hold whose TTL has run out.
func (l *Ledger) ReleaseExpired(ctx context.Context) (int, error) {
	return l.store.ReleaseExpired(ctx, l.avail.StaleBefore(), l.now().UTC())
}

// CanTransition reports whether the lifecycle may move from -> to.
// Cancelling an already cancelled reservation is accepted as a no-op.
func CanTransition(from, to Status) bool {
	switch {
	case from == StatusPending && to == StatusConfirmed:
		return true
	case from == StatusPending && to == StatusCancelled:
		return true
	case from == StatusConfirmed && to == StatusCancelled:
		return true
	case from == StatusCancelled && to == StatusCancelled:
		return true
	}
	return false
}

func (l *Ledger) UpdateStatus(ctx context.Context, id string, to Status) (Reservation, error) {
	if _, err := ParseStatus(string(to)); err != nil {
		return Reservation{}, err
	}
	return l.store.Update(ctx, id, l.avail.StaleBefore(), func(r *Reservation) error {
		if !CanTransition(r.Status, to) {
			return &InvalidTransitionError{From: r.Status, To: to}
		}
		if r.Status == to {
			return nil
		}
		r.Status = to
		r.UpdatedAt = l.now().UTC()
		return nil
	})
}

// UpdatePaymentStatus records a payment outcome. Marking a pending
// reservation paid confirms it; cancelled and confirmed reservations keep
// their lifecycle status. An empty method leaves the stored one unchanged.
func (l *Ledger) UpdatePaymentStatus(ctx context.Context, id string, to PaymentStatus, method string) (Reservation, error) {
	if _, err := ParsePaymentStatus(string(to)); err != nil {
		return Reservation{}, err
	}
	method = strings.TrimSpace(method)
	return l.store.Update(ctx, id, l.avail.StaleBefore(), func(r *Reservation) error {
		r.PaymentStatus = to
		if method != "" {
			r.PaymentMethod = method
		}
		if to == PaymentPaid && r.Status == StatusPending {
			r.Status = StatusConfirmed
		}
		r.UpdatedAt = l.now().UTC()
		return nil
	})
}

// SettlePayment records the outcome of a guest's own payment attempt. It
// differs from UpdatePaymentStatus in that the reservation is re-read
// inside the store transaction: a reservation cancelled while the payment
// was processing fails with *InvalidTransitionError, and one already paid
// is returned unchanged.
func (l *Ledger) SettlePayment(ctx context.Context, id string, to PaymentStatus, method string) (Reservation, error) {
	if _, err := ParsePaymentStatus(string(to)); err != nil {
		return Reservation{}, err
	}
	method = strings.TrimSpace(method)
	return l.store.Update(ctx, id, l.avail.StaleBefore(), func(r *Reservation) error {
		if r.PaymentStatus == PaymentPaid {
			return nil
		}
		if r.Status == StatusCancelled {
			return &InvalidTransitionError{From: r.Status, To: StatusConfirmed}
		}
		r.PaymentStatus = to
		if method != "" {
			r.PaymentMethod = method
		}
		if to == PaymentPaid {
			r.Status = StatusConfirmed
		}
		r.UpdatedAt = l.now().UTC()
		return nil
	})
}

// Amendment changes the editable fields of a reservation. Nil fields are
// left alone.
type Amendment struct {
	Name            *string
	Email           *string
	Phone           *string
	RoomType        *string
	RoomPrice       *string
	Range           *DateRange
	Guests          *int
	AddOns          *[]string
	SpecialRequests *string
}

func (a Amendment) apply(r *Reservation) {
	if a.Name != nil {
		r.Name = *a.Name
	}
	if a.Email != nil {
		r.Email = *a.Email
	}
	if a.Phone != nil {
		r.Phone = *a.Phone
	}
	if a.RoomType != nil {
		r.RoomType = *a.RoomType
	}
	if a.RoomPrice != nil {
		r.RoomPrice = *a.RoomPrice
	}
	if a.Range != nil {
		r.Range = *a.Range
	}
	if a.Guests != nil {
		r.Guests = *a.Guests
	}
	if a.AddOns != nil {
		r.AddOns = append([]string(nil), (*a.AddOns)...)
	}
	if a.SpecialRequests != nil {
		r.SpecialRequests = *a.SpecialRequests
	}
}

// Amend applies a to the record. check runs on the amended record inside
// the same transaction and can veto the change. Moving a held reservation
// to other dates or another room goes through the overlap check.
func (l *Ledger) Amend(ctx context.Context, id string, a Amendment, check func(Reservation) error) (Reservation, error) {
	return l.store.Update(ctx, id, l.avail.StaleBefore(), func(r *Reservation) error {
		a.apply(r)
		if err := r.Range.Validate(); err != nil {
			return err
		}
		if check != nil {
			if err := check(*r); err != nil {
				return err
			}
		}
		r.UpdatedAt = l.now().UTC()
		return nil
	})
}

// Delete removes the record outright. It is an administrative correction
// and does not consult availability.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	return l.store.Delete(ctx, id)
}
