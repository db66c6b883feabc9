package booking_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/example/resort-booking/internal/booking"
	"github.com/example/resort-booking/internal/booking/memstore"
	"github.com/example/resort-booking/internal/catalog"
	"github.com/example/resort-booking/internal/payment"
)

const coralBay = "Coral Bay Cottage"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newService(t *testing.T, store booking.Store, opts booking.Options) (*booking.Service, *clock) {
	t.Helper()
	c := newClock()
	if opts.Now == nil {
		opts.Now = c.Now
	}
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	if opts.Payments == nil {
		opts.Payments = payment.NewProcessor(opts.Now)
	}
	return booking.NewService(catalog.Default(), store, opts), c
}

func date(s string) time.Time {
	d, err := booking.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func onlineReq(room, in, out string, guests int) booking.Request {
	return booking.Request{
		Name:     "Juan Dela Cruz",
		Email:    "juan@example.com",
		Phone:    "09171234567",
		RoomType: room,
		CheckIn:  date(in),
		CheckOut: date(out),
		Guests:   guests,
		Origin:   booking.OriginOnline,
	}
}

func TestReserveOverlapScenario(t *testing.T) {
	svc, _ := newService(t, memstore.New(), booking.Options{})
	ctx := context.Background()

	first, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, booking.StatusPending, first.Status)
	assert.Equal(t, booking.PaymentPending, first.PaymentStatus)
	assert.Equal(t, "₱16,000/night", first.RoomPrice)

	_, err = svc.Reserve(ctx, onlineReq(coralBay, "2024-07-03", "2024-07-06", 2))
	var ce *booking.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, coralBay, ce.RoomTypeID)
	assert.Equal(t, "2024-07-01..2024-07-05", ce.Range.String())

	_, err = svc.Reserve(ctx, onlineReq(coralBay, "2024-07-05", "2024-07-08", 2))
	require.NoError(t, err, "checkout day is free for the next guest")

	_, err = svc.Reserve(ctx, onlineReq("Tropical Nest", "2024-07-03", "2024-07-06", 2))
	require.NoError(t, err, "other room types are independent")
}

func TestReserveValidatesBeforeTouchingStore(t *testing.T) {
	store := &countingStore{Store: memstore.New()}
	svc, _ := newService(t, store, booking.Options{})
	ctx := context.Background()

	cases := []struct {
		name  string
		edit  func(*booking.Request)
		field string
	}{
		{"over capacity", func(r *booking.Request) { r.Guests = 3 }, "guests"},
		{"zero guests", func(r *booking.Request) { r.Guests = 0 }, "guests"},
		{"missing name", func(r *booking.Request) { r.Name = "  " }, "name"},
		{"missing phone", func(r *booking.Request) { r.Phone = "" }, "phone"},
		{"online needs email", func(r *booking.Request) { r.Email = "" }, "email"},
		{"bad email", func(r *booking.Request) { r.Email = "juan@" }, "email"},
		{"unknown room", func(r *booking.Request) { r.RoomType = "Penthouse" }, "room_type"},
		{"empty range", func(r *booking.Request) { r.CheckOut = r.CheckIn }, "check_out"},
		{"missing check-in", func(r *booking.Request) { r.CheckIn = time.Time{} }, "check_in"},
		{"past check-in", func(r *booking.Request) { r.CheckIn = date("2024-05-01") }, "check_in"},
		{"unknown add-on", func(r *booking.Request) { r.AddOns = []string{"helicopter"} }, "add_ons"},
		{"unknown payment method", func(r *booking.Request) { r.PaymentMethod = "bitcoin" }, "payment_method"},
		{"cash online", func(r *booking.Request) { r.PaymentMethod = "cash" }, "payment_method"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := onlineReq(coralBay, "2024-07-01", "2024-07-05", 2)
			tc.edit(&req)
			_, err := svc.Reserve(ctx, req)
			var ve *booking.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
	assert.Zero(t, store.calls.Load(), "validation failures must not reach the store")
}

func TestReserveAddOnsResolvedToLabels(t *testing.T) {
	svc, _ := newService(t, memstore.New(), booking.Options{})
	req := onlineReq(coralBay, "2024-07-01", "2024-07-02", 1)
	req.AddOns = []string{"massage", "bonfire", "massage"}

	rec, err := svc.Reserve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"In-room massage", "Bonfire setup (night)"}, rec.AddOns)
}

func TestWalkInWithPaymentIsConfirmed(t *testing.T) {
	svc, c := newService(t, memstore.New(), booking.Options{WalkInEmailDomain: "front.desk"})
	req := onlineReq(coralBay, "2024-05-30", "2024-06-02", 2)
	req.Origin = booking.OriginWalkIn
	req.Email = ""
	req.PaymentMethod = "cash"

	rec, err := svc.Reserve(context.Background(), req)
	require.NoError(t, err, "walk-ins may be recorded after arrival")
	assert.Equal(t, booking.OriginWalkIn, rec.Origin)
	assert.Equal(t, booking.PaymentPaid, rec.PaymentStatus)
	assert.Equal(t, booking.StatusConfirmed, rec.Status)
	assert.Equal(t, "cash", rec.PaymentMethod)
	assert.Equal(t, "walkin_"+strconv.FormatInt(c.Now().UnixMilli(), 10)+"@front.desk", rec.Email)
}

func TestWalkInWithoutPaymentStaysPending(t *testing.T) {
	svc, _ := newService(t, memstore.New(), booking.Options{})
	req := onlineReq(coralBay, "2024-07-01", "2024-07-02", 1)
	req.Origin = booking.OriginWalkIn

	rec, err := svc.Reserve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, rec.Status)
	assert.Equal(t, booking.PaymentPending, rec.PaymentStatus)
	assert.Equal(t, "juan@example.com", rec.Email)
}

func TestWalkInPaymentNotRecordedKeepsHold(t *testing.T) {
	store := &updateDownStore{Store: memstore.New()}
	svc, _ := newService(t, store, booking.Options{})
	req := onlineReq(coralBay, "2024-07-01", "2024-07-02", 1)
	req.Origin = booking.OriginWalkIn
	req.PaymentMethod = "cash"

	rec, err := svc.Reserve(context.Background(), req)
	require.ErrorIs(t, err, booking.ErrStoreUnavailable)
	require.NotEmpty(t, rec.ID)
	assert.Contains(t, err.Error(), rec.ID)
	assert.Equal(t, booking.StatusPending, rec.Status)

	got, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.PaymentPending, got.PaymentStatus)
}

func TestConcurrentReserveExactlyOneWins(t *testing.T) {
	svc, _ := newService(t, memstore.New(), booking.Options{})
	ctx := context.Background()

	const n = 32
	var (
		wg        sync.WaitGroup
		wins      atomic.Int32
		conflicts atomic.Int32
		start     = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			// Every request overlaps 2024-07-03.
			in := []string{"2024-07-01", "2024-07-02", "2024-07-03"}[i%3]
			_, err := svc.Reserve(ctx, onlineReq(coralBay, in, "2024-07-04", 2))
			switch {
			case err == nil:
				wins.Add(1)
			case booking.IsConflict(err):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
	assert.EqualValues(t, n-1, conflicts.Load())

	held, err := svc.Availability().Holds(ctx, coralBay, booking.DateRange{CheckIn: date("2024-07-01"), CheckOut: date("2024-07-04")})
	require.NoError(t, err)
	assert.Len(t, held, 1)
}

func TestCancelReleasesRange(t *testing.T) {
	svc, _ := newService(t, memstore.New(), booking.Options{})
	ctx := context.Background()

	rec, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	require.NoError(t, err)

	rng := booking.DateRange{CheckIn: date("2024-07-02"), CheckOut: date("2024-07-03")}
	free, err := svc.IsFree(ctx, coralBay, rng)
	require.NoError(t, err)
	assert.False(t, free)

	cancelled, err := svc.Cancel(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)

	again, err := svc.Cancel(ctx, rec.ID)
	require.NoError(t, err, "cancel is idempotent")
	assert.Equal(t, booking.StatusCancelled, again.Status)

	free, err = svc.IsFree(ctx, coralBay, rng)
	require.NoError(t, err)
	assert.True(t, free)

	_, err = svc.Reserve(ctx, onlineReq(coralBay, "2024-07-02", "2024-07-04", 1))
	assert.NoError(t, err)
}

func TestInvalidTransitions(t *testing.T) {
	svc, _ := newService(t, memstore.New(), booking.Options{})
	ctx := context.Background()

	rec, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, rec.ID, booking.StatusPending)
	assert.True(t, booking.IsInvalidTransition(err))

	_, err = svc.Confirm(ctx, rec.ID)
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, rec.ID, booking.StatusPending)
	assert.True(t, booking.IsInvalidTransition(err))

	_, err = svc.Cancel(ctx, rec.ID)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, rec.ID)
	var it *booking.InvalidTransitionError
	require.ErrorAs(t, err, &it)
	assert.Equal(t, booking.StatusCancelled, it.From)
	assert.Equal(t, booking.StatusConfirmed, it.To)

	_, err = svc.SetStatus(ctx, "missing", booking.StatusCancelled)
	assert.True(t, booking.IsNotFound(err))
}

func TestMarkPaidConfirmsPending(t *testing.T) {
	svc, _ := newService(t, memstore.New(), booking.Options{})
	ctx := context.Background()

	rec, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	require.NoError(t, err)

	paid, err := svc.MarkPaid(ctx, rec.ID, "")
	require.NoError(t, err)
	assert.Equal(t, booking.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, booking.StatusConfirmed, paid.Status)

	// Cancelled reservations keep their status when marked paid.
	other, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-10", "2024-07-12", 2))
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, other.ID)
	require.NoError(t, err)
	paid, err = svc.SetPaymentStatus(ctx, other.ID, booking.PaymentPaid, "gcash")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, paid.Status)
	assert.Equal(t, "gcash", paid.PaymentMethod)
}

func TestPendingHoldExpires(t *testing.T) {
	svc, c := newService(t, memstore.New(), booking.Options{HoldTTL: 30 * time.Minute})
	ctx := context.Background()

	stale, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	require.NoError(t, err)
	paid, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-10", "2024-07-12", 2))
	require.NoError(t, err)
	_, err = svc.SetPaymentStatus(ctx, paid.ID, booking.PaymentPaid, "card")
	require.NoError(t, err)

	c.Advance(29 * time.Minute)
	_, err = svc.Reserve(ctx, onlineReq(coralBay, "2024-07-03", "2024-07-04", 2))
	require.True(t, booking.IsConflict(err), "hold is still live")

	c.Advance(2 * time.Minute)
	_, err = svc.Reserve(ctx, onlineReq(coralBay, "2024-07-03", "2024-07-04", 2))
	require.NoError(t, err)

	got, err := svc.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)

	_, err = svc.Reserve(ctx, onlineReq(coralBay, "2024-07-11", "2024-07-13", 2))
	assert.True(t, booking.IsConflict(err), "confirmed reservations never expire")
}

func TestSweepExpired(t *testing.T) {
	svc, c := newService(t, memstore.New(), booking.Options{HoldTTL: 30 * time.Minute})
	ctx := context.Background()

	stale, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	require.NoError(t, err)

	n, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	c.Advance(31 * time.Minute)
	n, err = svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)

	noTTL, _ := newService(t, memstore.New(), booking.Options{})
	_, err = noTTL.Reserve(ctx, onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	require.NoError(t, err)
	n, err = noTTL.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCompletePayment(t *testing.T) {
	svc, _ := newService(t, memstore.New(), booking.Options{})
	ctx := context.Background()
	card := payment.Submission{Method: payment.Card, CardNumber: "4242424242424242", Expiry: "12/26", CVV: "123", CardName: "Juan"}

	rec, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	require.NoError(t, err)

	bad := card
	bad.CVV = "1"
	_, err = svc.CompletePayment(ctx, rec.ID, bad)
	var ve *booking.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "cvv", ve.Field)

	declined := card
	declined.CardNumber = "4000000000000002"
	failed, err := svc.CompletePayment(ctx, rec.ID, declined)
	assert.True(t, errors.Is(err, payment.ErrDeclined))
	assert.Equal(t, booking.PaymentFailed, failed.PaymentStatus)
	assert.Equal(t, booking.StatusPending, failed.Status)

	paid, err := svc.CompletePayment(ctx, rec.ID, card)
	require.NoError(t, err)
	assert.Equal(t, booking.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, booking.StatusConfirmed, paid.Status)
	assert.Equal(t, "card", paid.PaymentMethod)

	again, err := svc.CompletePayment(ctx, rec.ID, declined)
	require.NoError(t, err, "paying twice is a no-op")
	assert.Equal(t, booking.PaymentPaid, again.PaymentStatus)

	_, err = svc.CompletePayment(ctx, rec.ID+"x", card)
	assert.True(t, booking.IsNotFound(err))
}

func TestCompletePaymentRejectsCancelledAndCash(t *testing.T) {
	svc, _ := newService(t, memstore.New(), booking.Options{})
	ctx := context.Background()

	rec, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	require.NoError(t, err)

	_, err = svc.CompletePayment(ctx, rec.ID, payment.Submission{Method: payment.Cash})
	assert.True(t, booking.IsValidation(err))

	_, err = svc.Cancel(ctx, rec.ID)
	require.NoError(t, err)
	_, err = svc.CompletePayment(ctx, rec.ID, payment.Submission{Method: payment.GCash})
	assert.True(t, booking.IsInvalidTransition(err))
}

type processorFunc func(ctx context.Context, sub payment.Submission) (payment.Result, error)

func (f processorFunc) Process(ctx context.Context, sub payment.Submission) (payment.Result, error) {
	return f(ctx, sub)
}

func TestCompletePaymentLosesRaceWithCancel(t *testing.T) {
	var (
		svc    *booking.Service
		holdID string
	)
	approve := processorFunc(func(ctx context.Context, sub payment.Submission) (payment.Result, error) {
		_, err := svc.Cancel(ctx, holdID)
		require.NoError(t, err)
		return payment.Result{Approved: true, Reference: "PAY-TEST"}, nil
	})
	svc, _ = newService(t, memstore.New(), booking.Options{Payments: approve})
	ctx := context.Background()

	rec, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	require.NoError(t, err)
	holdID = rec.ID

	_, err = svc.CompletePayment(ctx, rec.ID, payment.Submission{Method: payment.GCash})
	var it *booking.InvalidTransitionError
	require.ErrorAs(t, err, &it)
	assert.Equal(t, booking.StatusCancelled, it.From)

	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)
	assert.Equal(t, booking.PaymentPending, got.PaymentStatus)
}

func TestCompletePaymentAfterHoldTakenOver(t *testing.T) {
	var (
		svc   *booking.Service
		clk   *clock
		taken booking.Reservation
	)
	approve := processorFunc(func(ctx context.Context, sub payment.Submission) (payment.Result, error) {
		clk.Advance(31 * time.Minute)
		var err error
		taken, err = svc.Reserve(ctx, onlineReq(coralBay, "2024-07-02", "2024-07-04", 2))
		require.NoError(t, err)
		return payment.Result{Approved: true, Reference: "PAY-TEST"}, nil
	})
	svc, clk = newService(t, memstore.New(), booking.Options{HoldTTL: 30 * time.Minute, Payments: approve})
	ctx := context.Background()

	rec, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	require.NoError(t, err)

	_, err = svc.CompletePayment(ctx, rec.ID, payment.Submission{Method: payment.GCash})
	assert.True(t, booking.IsInvalidTransition(err))

	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)
	assert.NotEqual(t, booking.PaymentPaid, got.PaymentStatus)

	winner, err := svc.Get(ctx, taken.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, winner.Status)
}

func TestAmend(t *testing.T) {
	svc, _ := newService(t, memstore.New(), booking.Options{})
	ctx := context.Background()

	a, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	require.NoError(t, err)
	b, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-10", "2024-07-12", 2))
	require.NoError(t, err)

	onto := booking.DateRange{CheckIn: date("2024-07-04"), CheckOut: date("2024-07-11")}
	_, err = svc.Amend(ctx, b.ID, booking.Amendment{Range: &onto})
	assert.True(t, booking.IsConflict(err))

	// Moving within its own range does not collide with itself.
	own := booking.DateRange{CheckIn: date("2024-07-09"), CheckOut: date("2024-07-12")}
	moved, err := svc.Amend(ctx, b.ID, booking.Amendment{Range: &own})
	require.NoError(t, err)
	assert.Equal(t, own.String(), moved.Range.String())

	three := 3
	_, err = svc.Amend(ctx, a.ID, booking.Amendment{Guests: &three})
	var ve *booking.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "guests", ve.Field)

	family := "Family Staycation Package"
	name := "Maria Santos"
	changed, err := svc.Amend(ctx, a.ID, booking.Amendment{RoomType: &family, Guests: &three, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, family, changed.RoomType)
	assert.Equal(t, 3, changed.Guests)
	assert.Equal(t, "Maria Santos", changed.Name)
	assert.NotEqual(t, a.RoomPrice, changed.RoomPrice)

	free, err := svc.IsFree(ctx, coralBay, a.Range)
	require.NoError(t, err)
	assert.True(t, free, "the old room is released")

	empty := ""
	_, err = svc.Amend(ctx, a.ID, booking.Amendment{Phone: &empty})
	assert.True(t, booking.IsValidation(err))
}

func TestListAndDelete(t *testing.T) {
	svc, c := newService(t, memstore.New(), booking.Options{})
	ctx := context.Background()

	first, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	require.NoError(t, err)
	c.Advance(time.Minute)
	walk := onlineReq("Tropical Nest", "2024-07-01", "2024-07-02", 4)
	walk.Origin = booking.OriginWalkIn
	walk.Name = "Maria Santos"
	walk.PaymentMethod = "cash"
	second, err := svc.Reserve(ctx, walk)
	require.NoError(t, err)

	all, err := svc.List(ctx, booking.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	got, err := svc.List(ctx, booking.Filter{Query: "maria", PaymentStatus: booking.PaymentPaid})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, second.ID, got[0].ID)

	got, err = svc.List(ctx, booking.Filter{Origin: booking.OriginOnline})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, first.ID, got[0].ID)

	require.NoError(t, svc.Delete(ctx, first.ID))
	assert.True(t, booking.IsNotFound(svc.Delete(ctx, first.ID)))
	_, err = svc.Get(ctx, first.ID)
	assert.True(t, booking.IsNotFound(err))
}

func TestIsFreeUnknownRoom(t *testing.T) {
	svc, _ := newService(t, memstore.New(), booking.Options{})
	_, err := svc.IsFree(context.Background(), "Penthouse", booking.DateRange{CheckIn: date("2024-07-01"), CheckOut: date("2024-07-02")})
	assert.True(t, booking.IsValidation(err))
}

func TestStoreUnavailableIsNotRetried(t *testing.T) {
	store := &downStore{}
	svc, _ := newService(t, store, booking.Options{})

	_, err := svc.Reserve(context.Background(), onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	assert.True(t, errors.Is(err, booking.ErrStoreUnavailable))
	assert.EqualValues(t, 1, store.calls.Load())
}

func TestReserveSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	svc, _ := newService(t, memstore.New(), booking.Options{TracerProvider: tp})
	ctx := context.Background()

	_, err := svc.Reserve(ctx, onlineReq(coralBay, "2024-07-01", "2024-07-05", 2))
	require.NoError(t, err)
	_, err = svc.Reserve(ctx, onlineReq(coralBay, "2024-07-02", "2024-07-03", 2))
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "booking.Reserve", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	var state string
	for _, kv := range spans[1].Attributes() {
		if kv.Key == "booking.state" {
			state = kv.Value.AsString()
		}
	}
	assert.Equal(t, string(booking.StateRejected), state)
}

type countingStore struct {
	booking.Store
	calls atomic.Int32
}

func (s *countingStore) InsertHold(ctx context.Context, rec booking.Reservation, staleBefore time.Time) (booking.Reservation, error) {
	s.calls.Add(1)
	return s.Store.InsertHold(ctx, rec, staleBefore)
}

func (s *countingStore) Holds(ctx context.Context, roomType string, r booking.DateRange, staleBefore time.Time) ([]booking.Reservation, error) {
	s.calls.Add(1)
	return s.Store.Holds(ctx, roomType, r, staleBefore)
}

type updateDownStore struct{ booking.Store }

func (s *updateDownStore) Update(context.Context, string, time.Time, func(*booking.Reservation) error) (booking.Reservation, error) {
	return booking.Reservation{}, booking.ErrStoreUnavailable
}

type downStore struct {
	booking.Store
	calls atomic.Int32
}

func (s *downStore) InsertHold(context.Context, booking.Reservation, time.Time) (booking.Reservation, error) {
	s.calls.Add(1)
	return booking.Reservation{}, booking.ErrStoreUnavailable
}
