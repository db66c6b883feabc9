package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/resort-booking/internal/catalog"
	"github.com/example/resort-booking/internal/payment"
)

// AttemptState is where a booking attempt ended up.
type AttemptState string

const (
	StateReceived  AttemptState = "received"
	StateValidated AttemptState = "validated"
	StateHeld      AttemptState = "held"
	StateCommitted AttemptState = "committed"
	StateRejected  AttemptState = "rejected"
)

// PaymentProcessor is satisfied by *payment.Processor.
type PaymentProcessor interface {
	Process(ctx context.Context, sub payment.Submission) (payment.Result, error)
}

type Options struct {
	// HoldTTL is how long an unpaid pending reservation holds inventory.
	// Zero keeps holds until they are cancelled.
	HoldTTL time.Duration
	// WalkInEmailDomain is used for the placeholder address of walk-in
	// guests who give no email.
	WalkInEmailDomain string
	Payments          PaymentProcessor
	Logger            *slog.Logger
	TracerProvider    trace.TracerProvider
	Now               func() time.Time
}

// Service is the single entry point for booking, whichever page or
// command the request came from.
type Service struct {
	catalog  *catalog.Catalog
	avail    *Availability
	ledger   *Ledger
	payments PaymentProcessor
	validate *validator.Validate
	log      *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	walkInDomain string
}

func NewService(cat *catalog.Catalog, store Store, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	payments := opts.Payments
	if payments == nil {
		payments = payment.NewProcessor(now)
	}
	domain := strings.TrimSpace(opts.WalkInEmailDomain)
	if domain == "" {
		domain = "islamare.com"
	}
	avail := NewAvailability(store, opts.HoldTTL, now)
	return &Service{
		catalog:      cat,
		avail:        avail,
		ledger:       NewLedger(store, avail, now),
		payments:     payments,
		validate:     newValidator(),
		log:          logger.With("component", "booking"),
		tracer:       tp.Tracer("github.com/example/resort-booking/internal/booking"),
		now:          now,
		walkInDomain: domain,
	}
}

func (s *Service) Catalog() *catalog.Catalog { return s.catalog }
func (s *Service) Availability() *Availability { return s.avail }
func (s *Service) Ledger() *Ledger { return s.ledger }

// Today is the current calendar date by the service clock.
func (s *Service) Today() time.Time { return Date(s.now()) }

// Reserve validates req, places a hold and returns the stored reservation.
// It returns *ValidationError, *ConflictError or an error wrapping
// ErrStoreUnavailable; none of them are retried here. When a walk-in's
// payment cannot be recorded the hold stays in place, and the pending
// reservation is returned along with the error.
func (s *Service) Reserve(ctx context.Context, req Request) (Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Reserve", trace.WithAttributes(
		attribute.String("booking.room_type", req.RoomType),
		attribute.String("booking.origin", string(req.Origin)),
	))
	defer span.End()

	state := StateReceived
	rec, err := s.validateRequest(req)
	if err != nil {
		return Reservation{}, s.reject(ctx, span, state, req, err)
	}
	state = StateValidated

	held, err := s.ledger.Insert(ctx, rec)
	if err != nil {
		return Reservation{}, s.reject(ctx, span, state, req, err)
	}
	state = StateHeld
	span.SetAttributes(attribute.String("booking.id", held.ID))

	// Front desk takes payment on the spot.
	if held.Origin == OriginWalkIn && req.PaymentMethod != "" {
		paid, err := s.ledger.UpdatePaymentStatus(ctx, held.ID, PaymentPaid, held.PaymentMethod)
		if err != nil {
			s.log.ErrorContext(ctx, "walk-in payment not recorded", "id", held.ID, "state", state, "err", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "payment not recorded")
			return held, fmt.Errorf("reservation %s is held but its payment was not recorded: %w", held.ID, err)
		}
		held = paid
	}

	state = StateCommitted
	span.SetAttributes(attribute.String("booking.state", string(state)))
	s.log.InfoContext(ctx, "reservation held",
		"id", held.ID,
		"room_type", held.RoomType,
		"range", held.Range.String(),
		"origin", held.Origin,
		"status", held.Status,
		"state", state,
	)
	return held, nil
}

func (s *Service) reject(ctx context.Context, span trace.Span, from AttemptState, req Request, err error) error {
	span.SetAttributes(
		attribute.String("booking.state", string(StateRejected)),
		attribute.String("booking.rejected_from", string(from)),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	level := slog.LevelInfo
	if errors.Is(err, ErrStoreUnavailable) {
		level = slog.LevelError
	}
	s.log.Log(ctx, level, "reservation rejected",
		"room_type", req.RoomType,
		"origin", req.Origin,
		"from", from,
		"err", err,
	)
	return err
}

// validateRequest checks everything that can be checked without the store
// and builds the record to hold.
func (s *Service) validateRequest(req Request) (Reservation, error) {
	req = req.normalized()
	if err := s.validate.Struct(req); err != nil {
		return Reservation{}, structErr(err)
	}
	if req.Origin == OriginOnline && req.Email == "" {
		return Reservation{}, &ValidationError{Field: "email", Reason: "required"}
	}

	rng := DateRange{CheckIn: req.CheckIn, CheckOut: req.CheckOut}
	if err := rng.Validate(); err != nil {
		return Reservation{}, err
	}
	if req.Origin == OriginOnline && rng.CheckIn.Before(Date(s.now())) {
		return Reservation{}, &ValidationError{Field: "check_in", Reason: "must not be in the past"}
	}

	room, err := s.catalog.Get(req.RoomType)
	if err != nil {
		return Reservation{}, &ValidationError{Field: "room_type", Reason: "unknown room type"}
	}
	if req.Guests > room.Capacity {
		return Reservation{}, &ValidationError{Field: "guests", Reason: fmt.Sprintf("%s sleeps at most %d", room.ID, room.Capacity)}
	}

	addOns, err := s.addOnLabels(req.AddOns)
	if err != nil {
		return Reservation{}, err
	}

	if req.PaymentMethod != "" {
		info, ok := payment.Lookup(req.PaymentMethod)
		if !ok {
			return Reservation{}, &ValidationError{Field: "payment_method", Reason: "unknown payment method"}
		}
		if info.WalkInOnly && req.Origin != OriginWalkIn {
			return Reservation{}, &ValidationError{Field: "payment_method", Reason: "only accepted at the front desk"}
		}
	}

	email := req.Email
	if email == "" {
		email = fmt.Sprintf("walkin_%d@%s", s.now().UnixMilli(), s.walkInDomain)
	}

	return Reservation{
		Name:            req.Name,
		Email:           email,
		Phone:           req.Phone,
		RoomType:        room.ID,
		RoomPrice:       room.PriceLabel(),
		Range:           rng,
		Guests:          req.Guests,
		Origin:          req.Origin,
		PaymentMethod:   req.PaymentMethod,
		AddOns:          addOns,
		SpecialRequests: req.SpecialRequests,
	}, nil
}

// addOnLabels resolves add-on ids to their labels, keeping the order and
// dropping repeats.
func (s *Service) addOnLabels(ids []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if seen[id] {
			continue
		}
		seen[id] = true
		a, err := s.catalog.AddOn(id)
		if err != nil {
			return nil, &ValidationError{Field: "add_ons", Reason: fmt.Sprintf("unknown add-on %q", id)}
		}
		out = append(out, a.Label)
	}
	return out, nil
}

// CompletePayment is the payment-completion call site. A declined payment
// marks the reservation failed and returns the record together with an
// error wrapping payment.ErrDeclined. Paying twice is a no-op. A
// reservation cancelled before the result is recorded, by an admin or by a
// newer booking taking over an expired hold, fails with
// *InvalidTransitionError even when the charge went through.
func (s *Service) CompletePayment(ctx context.Context, id string, sub payment.Submission) (Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "booking.CompletePayment", trace.WithAttributes(
		attribute.String("booking.id", id),
		attribute.String("payment.method", string(sub.Method)),
	))
	defer span.End()

	rec, err := s.ledger.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return Reservation{}, err
	}
	if rec.PaymentStatus == PaymentPaid {
		return rec, nil
	}
	if rec.Status == StatusCancelled {
		err := &InvalidTransitionError{From: rec.Status, To: StatusConfirmed}
		span.RecordError(err)
		return rec, err
	}
	if info, ok := payment.Lookup(string(sub.Method)); ok && info.WalkInOnly {
		return rec, &ValidationError{Field: "payment_method", Reason: "only accepted at the front desk"}
	}

	res, perr := s.payments.Process(ctx, sub)
	var de *payment.DetailsError
	if errors.As(perr, &de) {
		return rec, &ValidationError{Field: de.Field, Reason: de.Reason}
	}
	if perr != nil && !errors.Is(perr, payment.ErrDeclined) {
		span.RecordError(perr)
		return rec, perr
	}

	if !res.Approved {
		failed, err := s.ledger.SettlePayment(ctx, id, PaymentFailed, string(sub.Method))
		if err != nil {
			span.RecordError(err)
			return rec, err
		}
		s.log.InfoContext(ctx, "payment declined", "id", id, "method", sub.Method, "reason", res.Reason)
		span.SetStatus(codes.Error, "declined")
		return failed, fmt.Errorf("%w: %s", payment.ErrDeclined, res.Reason)
	}

	paid, err := s.ledger.SettlePayment(ctx, id, PaymentPaid, string(sub.Method))
	if err != nil {
		if IsInvalidTransition(err) {
			// The charge went through but the hold is gone.
			s.log.WarnContext(ctx, "payment approved for a cancelled reservation", "id", id, "method", sub.Method, "reference", res.Reference)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment not recorded")
		return rec, err
	}
	s.log.InfoContext(ctx, "payment recorded", "id", id, "method", sub.Method, "reference", res.Reference, "status", paid.Status)
	return paid, nil
}

// SweepExpired marks unpaid holds that have outlived the hold TTL as
// cancelled. Lookups already ignore them; this only tidies the records
// the admin list shows.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.ledger.ReleaseExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.InfoContext(ctx, "expired holds released", "count", n)
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, id string) (Reservation, error) {
	return s.ledger.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Reservation, error) {
	return s.ledger.List(ctx, f)
}

func (s *Service) IsFree(ctx context.Context, roomTypeID string, r DateRange) (bool, error) {
	if _, err := s.catalog.Get(roomTypeID); err != nil {
		return false, &ValidationError{Field: "room_type", Reason: "unknown room type"}
	}
	return s.avail.IsFree(ctx, roomTypeID, r)
}

func (s *Service) SetStatus(ctx context.Context, id string, to Status) (Reservation, error) {
	rec, err := s.ledger.UpdateStatus(ctx, id, to)
	if err != nil {
		return Reservation{}, err
	}
	s.log.InfoContext(ctx, "reservation status changed", "id", id, "status", rec.Status)
	return rec, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (Reservation, error) {
	return s.SetStatus(ctx, id, StatusCancelled)
}

func (s *Service) Confirm(ctx context.Context, id string) (Reservation, error) {
	return s.SetStatus(ctx, id, StatusConfirmed)
}

// SetPaymentStatus is the admin override for the payment column.
func (s *Service) SetPaymentStatus(ctx context.Context, id string, to PaymentStatus, method string) (Reservation, error) {
	rec, err := s.ledger.UpdatePaymentStatus(ctx, id, to, method)
	if err != nil {
		return Reservation{}, err
	}
	s.log.InfoContext(ctx, "payment status changed", "id", id, "payment_status", rec.PaymentStatus, "status", rec.Status)
	return rec, nil
}

// MarkPaid records a payment taken outside the online flow.
func (s *Service) MarkPaid(ctx context.Context, id, method string) (Reservation, error) {
	return s.SetPaymentStatus(ctx, id, PaymentPaid, method)
}

// Amend edits a reservation. Room, guests and dates are validated against
// the catalog, and moved reservations are re-checked for overlap. AddOns
// holds catalog add-on ids here; they are stored as labels.
func (s *Service) Amend(ctx context.Context, id string, a Amendment) (Reservation, error) {
	if a.Name != nil && strings.TrimSpace(*a.Name) == "" {
		return Reservation{}, &ValidationError{Field: "name", Reason: "required"}
	}
	if a.Phone != nil && strings.TrimSpace(*a.Phone) == "" {
		return Reservation{}, &ValidationError{Field: "phone", Reason: "required"}
	}
	if a.Email != nil && *a.Email != "" {
		if err := s.validate.Var(*a.Email, "email"); err != nil {
			return Reservation{}, &ValidationError{Field: "email", Reason: "not a valid email address"}
		}
	}
	if a.RoomType != nil {
		room, err := s.catalog.Get(*a.RoomType)
		if err != nil {
			return Reservation{}, &ValidationError{Field: "room_type", Reason: "unknown room type"}
		}
		label := room.PriceLabel()
		a.RoomPrice = &label
	}
	if a.Guests != nil && *a.Guests < 1 {
		return Reservation{}, &ValidationError{Field: "guests", Reason: "must be at least 1"}
	}
	if a.AddOns != nil {
		labels, err := s.addOnLabels(*a.AddOns)
		if err != nil {
			return Reservation{}, err
		}
		a.AddOns = &labels
	}

	rec, err := s.ledger.Amend(ctx, id, a, func(r Reservation) error {
		room, err := s.catalog.Get(r.RoomType)
		if err != nil {
			return &ValidationError{Field: "room_type", Reason: "unknown room type"}
		}
		if r.Guests > room.Capacity {
			return &ValidationError{Field: "guests", Reason: fmt.Sprintf("%s sleeps at most %d", room.ID, room.Capacity)}
		}
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}
	s.log.InfoContext(ctx, "reservation amended", "id", id, "room_type", rec.RoomType, "range", rec.Range.String())
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.ledger.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WarnContext(ctx, "reservation deleted", "id", id)
	return nil
}
