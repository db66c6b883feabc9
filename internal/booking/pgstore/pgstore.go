// Package pgstore keeps reservations in the Postgres bookings table.
//
// Writes that claim inventory run in SERIALIZABLE transactions and the
// table's bookings_no_overlap exclusion constraint backs them up, so two
// concurrent claims on overlapping dates can never both commit.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/example/resort-booking/internal/booking"
	"github.com/example/resort-booking/internal/db"
)

const columns = `id::text, name, email, phone, room_type, room_price, check_in, check_out, guests,
	booking_type, status, payment_status, payment_method, add_ons, special_requests, created_at, updated_at`

type Store struct{ db *db.DB }

func New(d *db.DB) *Store { return &Store{db: d} }

var _ booking.Store = (*Store)(nil)

func (s *Store) InsertHold(ctx context.Context, rec booking.Reservation, staleBefore time.Time) (booking.Reservation, error) {
	var out booking.Reservation
	err := s.db.InTx(ctx, pgx.Serializable, func(tx pgx.Tx) error {
		if err := releaseExpired(ctx, tx, rec, staleBefore); err != nil {
			return err
		}
		if err := collision(ctx, tx, rec, staleBefore); err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `
INSERT INTO bookings(id,name,email,phone,room_type,room_price,check_in,check_out,guests,booking_type,status,payment_status,payment_method,add_ons,special_requests,created_at,updated_at)
VALUES ($1::uuid,$2,$3,$4,$5,$6,$7::date,$8::date,$9,$10,$11,$12,$13,$14,$15,$16,$17)
RETURNING `+columns,
			rec.ID, rec.Name, rec.Email, rec.Phone, rec.RoomType, rec.RoomPrice, rec.Range.CheckIn, rec.Range.CheckOut, rec.Guests,
			string(rec.Origin), string(rec.Status), string(rec.PaymentStatus), rec.PaymentMethod, addOns(rec.AddOns), rec.SpecialRequests,
			rec.CreatedAt, rec.UpdatedAt,
		)
		var err error
		out, err = scan(row)
		return err
	})
	if err != nil {
		return booking.Reservation{}, classify(err, rec.RoomType, rec.Range)
	}
	return out, nil
}

// collision fails with *booking.ConflictError when a held reservation other
// than rec overlaps it.
func collision(ctx context.Context, tx pgx.Tx, rec booking.Reservation, staleBefore time.Time) error {
	var in, out time.Time
	err := tx.QueryRow(ctx, `
SELECT check_in, check_out
FROM bookings
WHERE room_type=$1
  AND id <> $2::uuid
  AND (status='confirmed' OR (status='pending' AND ($5::timestamptz IS NULL OR created_at >= $5)))
  AND daterange(check_in, check_out, '[)') && daterange($3::date, $4::date, '[)')
ORDER BY check_in
LIMIT 1`, rec.RoomType, rec.ID, rec.Range.CheckIn, rec.Range.CheckOut, cutoff(staleBefore)).Scan(&in, &out)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return &booking.ConflictError{
		RoomTypeID: rec.RoomType,
		Range:      booking.DateRange{CheckIn: booking.Date(in), CheckOut: booking.Date(out)},
	}
}

// releaseExpired cancels stale pending holds standing in rec's way so the
// exclusion constraint lets the new claim through.
func releaseExpired(ctx context.Context, tx pgx.Tx, rec booking.Reservation, staleBefore time.Time) error {
	if staleBefore.IsZero() {
		return nil
	}
	_, err := tx.Exec(ctx, `
UPDATE bookings
SET status='cancelled', updated_at=now()
WHERE room_type=$1
  AND id <> $2::uuid
  AND status='pending'
  AND created_at < $5
  AND daterange(check_in, check_out, '[)') && daterange($3::date, $4::date, '[)')`,
		rec.RoomType, rec.ID, rec.Range.CheckIn, rec.Range.CheckOut, staleBefore)
	return err
}

func (s *Store) Holds(ctx context.Context, roomType string, rng booking.DateRange, staleBefore time.Time) ([]booking.Reservation, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+columns+`
FROM bookings
WHERE room_type=$1
  AND (status='confirmed' OR (status='pending' AND ($4::timestamptz IS NULL OR created_at >= $4)))
  AND daterange(check_in, check_out, '[)') && daterange($2::date, $3::date, '[)')
ORDER BY created_at DESC, id`, roomType, rng.CheckIn, rng.CheckOut, cutoff(staleBefore))
	if err != nil {
		return nil, classify(err, roomType, rng)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, classify(err, roomType, rng)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (booking.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return booking.Reservation{}, &booking.NotFoundError{ID: id}
	}
	r, err := scan(s.db.QueryRow(ctx, `SELECT `+columns+` FROM bookings WHERE id=$1::uuid`, id))
	if db.IsNotFound(err) {
		return booking.Reservation{}, &booking.NotFoundError{ID: id}
	}
	if err != nil {
		return booking.Reservation{}, unavailable(err)
	}
	return r, nil
}

func (s *Store) Update(ctx context.Context, id string, staleBefore time.Time, fn func(*booking.Reservation) error) (booking.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return booking.Reservation{}, &booking.NotFoundError{ID: id}
	}
	var out, after booking.Reservation
	err := s.db.InTx(ctx, pgx.Serializable, func(tx pgx.Tx) error {
		before, err := scan(tx.QueryRow(ctx, `SELECT `+columns+` FROM bookings WHERE id=$1::uuid FOR UPDATE`, id))
		if db.IsNotFound(err) {
			return &booking.NotFoundError{ID: id}
		}
		if err != nil {
			return err
		}

		after = before.Clone()
		if err := fn(&after); err != nil {
			return err
		}
		after.ID = before.ID
		after.CreatedAt = before.CreatedAt

		if booking.NeedsRecheck(before, after) {
			if err := releaseExpired(ctx, tx, after, staleBefore); err != nil {
				return err
			}
			if err := collision(ctx, tx, after, staleBefore); err != nil {
				return err
			}
		}

		out, err = scan(tx.QueryRow(ctx, `
UPDATE bookings
SET name=$2, email=$3, phone=$4, room_type=$5, room_price=$6, check_in=$7::date, check_out=$8::date, guests=$9,
    booking_type=$10, status=$11, payment_status=$12, payment_method=$13, add_ons=$14, special_requests=$15, updated_at=$16
WHERE id=$1::uuid
RETURNING `+columns,
			id, after.Name, after.Email, after.Phone, after.RoomType, after.RoomPrice, after.Range.CheckIn, after.Range.CheckOut, after.Guests,
			string(after.Origin), string(after.Status), string(after.PaymentStatus), after.PaymentMethod, addOns(after.AddOns), after.SpecialRequests,
			after.UpdatedAt,
		))
		return err
	})
	if err != nil {
		return booking.Reservation{}, classify(err, after.RoomType, after.Range)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &booking.NotFoundError{ID: id}
	}
	n, err := s.db.ExecCount(ctx, `DELETE FROM bookings WHERE id=$1::uuid`, id)
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return &booking.NotFoundError{ID: id}
	}
	return nil
}

func (s *Store) List(ctx context.Context, f booking.Filter) ([]booking.Reservation, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		p := arg("%" + escapeLike(q) + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %[1]s OR phone ILIKE %[1]s OR email ILIKE %[1]s)", p))
	}
	if f.Origin != "" {
		where = append(where, "booking_type="+arg(string(f.Origin)))
	}
	if f.PaymentStatus != "" {
		where = append(where, "payment_status="+arg(string(f.PaymentStatus)))
	}
	if f.Status != "" {
		where = append(where, "status="+arg(string(f.Status)))
	}
	if !f.CheckIn.IsZero() {
		where = append(where, "check_in="+arg(booking.Date(f.CheckIn))+"::date")
	}

	sql := `SELECT ` + columns + ` FROM bookings`
	if len(where) > 0 {
		sql += "\nWHERE " + strings.Join(where, " AND ")
	}
	sql += "\nORDER BY created_at DESC, id"

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, unavailable(err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func collect(rows db.Rows) ([]booking.Reservation, error) {
	defer rows.Close()
	var out []booking.Reservation
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scan(row db.Row) (booking.Reservation, error) {
	var (
		r                         booking.Reservation
		origin, status, payStatus string
	)
	err := row.Scan(
		&r.ID, &r.Name, &r.Email, &r.Phone, &r.RoomType, &r.RoomPrice, &r.Range.CheckIn, &r.Range.CheckOut, &r.Guests,
		&origin, &status, &payStatus, &r.PaymentMethod, &r.AddOns, &r.SpecialRequests, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return booking.Reservation{}, err
	}
	r.Origin = booking.Origin(origin)
	r.Status = booking.Status(status)
	r.PaymentStatus = booking.PaymentStatus(payStatus)
	r.Range.CheckIn = booking.Date(r.Range.CheckIn)
	r.Range.CheckOut = booking.Date(r.Range.CheckOut)
	return r, nil
}

func (s *Store) ReleaseExpired(ctx context.Context, staleBefore, now time.Time) (int, error) {
	if staleBefore.IsZero() {
		return 0, nil
	}
	n, err := s.db.ExecCount(ctx, `
UPDATE bookings
SET status='cancelled', updated_at=$2
WHERE status='pending' AND created_at < $1`, staleBefore, now)
	if err != nil {
		return 0, unavailable(err)
	}
	return int(n), nil
}

// classify turns database failures into the booking error kinds. Domain
// errors raised inside a transaction pass through untouched.
func classify(err error, roomType string, rng booking.DateRange) error {
	var (
		conflict   *booking.ConflictError
		notFound   *booking.NotFoundError
		invalid    *booking.ValidationError
		transition *booking.InvalidTransitionError
	)
	switch {
	case errors.As(err, &conflict), errors.As(err, &notFound), errors.As(err, &invalid), errors.As(err, &transition):
		return err
	case db.IsContention(err):
		return &booking.ConflictError{RoomTypeID: roomType, Range: rng}
	case db.IsRetryable(err):
		return fmt.Errorf("%w: still contended after %d attempts: %v", booking.ErrStoreUnavailable, db.TxAttempts, err)
	}
	return unavailable(err)
}

func unavailable(err error) error {
	if db.IsUnavailable(err) {
		return fmt.Errorf("%w: %v", booking.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("pgstore: %w", err)
}

func cutoff(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func addOns(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
