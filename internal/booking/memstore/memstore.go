// Package memstore is an in-process booking.Store for development and
// tests. A single mutex serialises every write, which gives the same
// exactly-one-wins outcome the Postgres store gets from its exclusion
// constraint.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/example/resort-booking/internal/booking"
)

type Store struct {
	mu   sync.RWMutex
	recs map[string]booking.Reservation
}

func New() *Store {
	return &Store{recs: make(map[string]booking.Reservation)}
}

var _ booking.Store = (*Store)(nil)

func (s *Store) InsertHold(ctx context.Context, rec booking.Reservation, staleBefore time.Time) (booking.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return booking.Reservation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.collision(rec, staleBefore); c != nil {
		return booking.Reservation{}, c
	}
	s.releaseExpired(rec, staleBefore)

	rec = rec.Clone()
	s.recs[rec.ID] = rec
	return rec.Clone(), nil
}

// collision returns a conflict naming the first held reservation, other
// than rec itself, that overlaps rec. Callers hold mu.
func (s *Store) collision(rec booking.Reservation, staleBefore time.Time) *booking.ConflictError {
	for id, r := range s.recs {
		if id == rec.ID || r.RoomType != rec.RoomType {
			continue
		}
		if r.HeldAt(staleBefore) && r.Range.Overlaps(rec.Range) {
			return &booking.ConflictError{RoomTypeID: rec.RoomType, Range: r.Range}
		}
	}
	return nil
}

// releaseExpired cancels stale pending holds that overlap rec. Callers hold mu.
func (s *Store) releaseExpired(rec booking.Reservation, staleBefore time.Time) {
	for id, r := range s.recs {
		if id == rec.ID || r.RoomType != rec.RoomType {
			continue
		}
		if r.Expired(staleBefore) && r.Range.Overlaps(rec.Range) {
			r.Status = booking.StatusCancelled
			r.UpdatedAt = rec.UpdatedAt
			s.recs[id] = r
		}
	}
}

func (s *Store) Holds(ctx context.Context, roomType string, rng booking.DateRange, staleBefore time.Time) ([]booking.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []booking.Reservation
	for _, r := range s.recs {
		if r.RoomType == roomType && r.HeldAt(staleBefore) && r.Range.Overlaps(rng) {
			out = append(out, r.Clone())
		}
	}
	booking.SortNewestFirst(out)
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (booking.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return booking.Reservation{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recs[id]
	if !ok {
		return booking.Reservation{}, &booking.NotFoundError{ID: id}
	}
	return r.Clone(), nil
}

func (s *Store) Update(ctx context.Context, id string, staleBefore time.Time, fn func(*booking.Reservation) error) (booking.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return booking.Reservation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before, ok := s.recs[id]
	if !ok {
		return booking.Reservation{}, &booking.NotFoundError{ID: id}
	}
	after := before.Clone()
	if err := fn(&after); err != nil {
		return booking.Reservation{}, err
	}
	after.ID = id
	after.CreatedAt = before.CreatedAt

	if booking.NeedsRecheck(before, after) {
		if c := s.collision(after, staleBefore); c != nil {
			return booking.Reservation{}, c
		}
		s.releaseExpired(after, staleBefore)
	}

	s.recs[id] = after
	return after.Clone(), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recs[id]; !ok {
		return &booking.NotFoundError{ID: id}
	}
	delete(s.recs, id)
	return nil
}

func (s *Store) ReleaseExpired(ctx context.Context, staleBefore, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if staleBefore.IsZero() {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, r := range s.recs {
		if r.Expired(staleBefore) {
			r.Status = booking.StatusCancelled
			r.UpdatedAt = now
			s.recs[id] = r
			n++
		}
	}
	return n, nil
}

func (s *Store) List(ctx context.Context, f booking.Filter) ([]booking.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]booking.Reservation, 0, len(s.recs))
	for _, r := range s.recs {
		if f.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	booking.SortNewestFirst(out)
	return out, nil
}
