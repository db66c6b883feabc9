package booking

import (
	"context"
	"time"
)

// Store is the transactional record store behind the ledger. Every method
// touches at most one reservation row for writing, and implementations must
// make InsertHold and Update atomic with respect to each other.
//
// staleBefore is the lazy expiry cutoff: pending holds created before it
// no longer occupy inventory. A zero value disables expiry.
type Store interface {
	// InsertHold inserts rec if no held reservation of the same room type
	// overlaps rec.Range, otherwise it returns *ConflictError. Expired
	// pending holds in the way are cancelled as part of the same write.
	InsertHold(ctx context.Context, rec Reservation, staleBefore time.Time) (Reservation, error)

	// Holds returns the reservations of roomType that still hold inventory
	// and overlap r.
	Holds(ctx context.Context, roomType string, r DateRange, staleBefore time.Time) ([]Reservation, error)

	Get(ctx context.Context, id string) (Reservation, error)

	// Update loads the record, applies fn and writes the result back in a
	// transaction scoped to that record. When fn moves a held record to a
	// different room type or range, the new placement is checked for
	// overlap (excluding the record itself) before the write.
	Update(ctx context.Context, id string, staleBefore time.Time, fn func(*Reservation) error) (Reservation, error)

	Delete(ctx context.Context, id string) error

	// List returns matching reservations, newest first.
	List(ctx context.Context, f Filter) ([]Reservation, error)

	// ReleaseExpired cancels every pending hold created before staleBefore
	// and returns how many it cancelled. A zero cutoff releases nothing.
	ReleaseExpired(ctx context.Context, staleBefore, now time.Time) (int, error)
}

// NeedsRecheck reports whether an update from before to after changes the
// inventory after occupies.
func NeedsRecheck(before, after Reservation) bool {
	if !after.Status.Holds() {
		return false
	}
	if !before.Status.Holds() {
		return true
	}
	return before.RoomType != after.RoomType || !before.Range.Equal(after.Range)
}
