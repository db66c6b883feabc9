package booking

import (
	"context"
	"time"
)

// Availability answers whether a room type is free for a range and places
// provisional holds. A pending reservation counts as held inventory until
// it is cancelled or older than the hold TTL.
type Availability struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewAvailability(store Store, holdTTL time.Duration, now func() time.Time) *Availability {
	if now == nil {
		now = time.Now
	}
	return &Availability{store: store, ttl: holdTTL, now: now}
}

// StaleBefore is the creation time before which pending holds have expired.
func (a *Availability) StaleBefore() time.Time {
	if a.ttl <= 0 {
		return time.Time{}
	}
	return a.now().Add(-a.ttl)
}

func (a *Availability) IsFree(ctx context.Context, roomTypeID string, r DateRange) (bool, error) {
	holds, err := a.Holds(ctx, roomTypeID, r)
	if err != nil {
		return false, err
	}
	return len(holds) == 0, nil
}

func (a *Availability) Holds(ctx context.Context, roomTypeID string, r DateRange) ([]Reservation, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return a.store.Holds(ctx, roomTypeID, r, a.StaleBefore())
}

// ReserveTentatively claims rec.Range for rec.RoomType by inserting rec as
// a pending hold. The check and the insert are one store transaction; a
// range that looked free a moment ago can still come back as
// *ConflictError.
func (a *Availability) ReserveTentatively(ctx context.Context, rec Reservation) (Reservation, error) {
	if err := rec.Range.Validate(); err != nil {
		return Reservation{}, err
	}
	rec.Status = StatusPending
	return a.store.InsertHold(ctx, rec, a.StaleBefore())
}
