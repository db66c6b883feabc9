package booking

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func span(from, nights int) DateRange {
	return DateRange{CheckIn: day0.AddDate(0, 0, from), CheckOut: day0.AddDate(0, 0, from+nights)}
}

func TestDateRangeValidate(t *testing.T) {
	var ve *ValidationError

	err := DateRange{CheckOut: day0}.Validate()
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "check_in", ve.Field)

	err = DateRange{CheckIn: day0}.Validate()
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "check_out", ve.Field)

	err = DateRange{CheckIn: day0, CheckOut: day0}.Validate()
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "check_out", ve.Field)

	assert.NoError(t, span(0, 1).Validate())
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2024-07-01", " 2024-07-05")
	require.NoError(t, err)
	assert.Equal(t, 4, r.Nights())
	assert.Equal(t, "2024-07-01..2024-07-05", r.String())

	_, err = ParseDateRange("07/01/2024", "2024-07-05")
	assert.True(t, IsValidation(err))

	_, err = ParseDateRange("2024-07-05", "2024-07-01")
	assert.True(t, IsValidation(err))
}

func TestOverlapIsHalfOpen(t *testing.T) {
	assert.True(t, span(0, 4).Overlaps(span(2, 3)))
	assert.False(t, span(0, 4).Overlaps(span(4, 3)), "checkout day is free for the next check-in")
	assert.False(t, span(4, 3).Overlaps(span(0, 4)))
	assert.True(t, span(0, 10).Overlaps(span(3, 1)), "containment")
}

func TestOverlapProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("overlap is symmetric", prop.ForAll(
		func(a, n, b, m int) bool {
			return span(a, n).Overlaps(span(b, m)) == span(b, m).Overlaps(span(a, n))
		},
		gen.IntRange(0, 60), gen.IntRange(1, 14), gen.IntRange(0, 60), gen.IntRange(1, 14),
	))

	properties.Property("ranges overlap iff they share a night", prop.ForAll(
		func(a, n, b, m int) bool {
			shared := false
			for d := a; d < a+n; d++ {
				if d >= b && d < b+m {
					shared = true
				}
			}
			return span(a, n).Overlaps(span(b, m)) == shared
		},
		gen.IntRange(0, 60), gen.IntRange(1, 14), gen.IntRange(0, 60), gen.IntRange(1, 14),
	))

	properties.Property("back-to-back stays never overlap", prop.ForAll(
		func(a, n, m int) bool {
			return !span(a, n).Overlaps(span(a+n, m))
		},
		gen.IntRange(0, 60), gen.IntRange(1, 14), gen.IntRange(1, 14),
	))

	properties.TestingRun(t)
}

func TestHeldAt(t *testing.T) {
	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	r := Reservation{Status: StatusPending, CreatedAt: created}

	assert.True(t, r.HeldAt(time.Time{}), "zero cutoff disables expiry")
	assert.True(t, r.HeldAt(created))
	assert.False(t, r.HeldAt(created.Add(time.Second)))
	assert.True(t, r.Expired(created.Add(time.Second)))

	r.Status = StatusConfirmed
	assert.True(t, r.HeldAt(created.Add(time.Hour)))
	assert.False(t, r.Expired(created.Add(time.Hour)))

	r.Status = StatusCancelled
	assert.False(t, r.HeldAt(time.Time{}))
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusCancelled, StatusCancelled, true},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
		{StatusConfirmed, StatusPending, false},
		{StatusPending, StatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestNeedsRecheck(t *testing.T) {
	base := Reservation{RoomType: "Coral Bay Cottage", Range: span(0, 3), Status: StatusPending}

	moved := base
	moved.Range = span(1, 3)
	assert.True(t, NeedsRecheck(base, moved))

	renamed := base
	renamed.Name = "x"
	assert.False(t, NeedsRecheck(base, renamed))

	cancelled := base
	cancelled.Status = StatusCancelled
	assert.False(t, NeedsRecheck(base, cancelled))
	assert.True(t, NeedsRecheck(cancelled, base))
}

func TestParseEnums(t *testing.T) {
	s, err := ParseStatus(" Confirmed ")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)
	_, err = ParseStatus("done")
	assert.True(t, IsValidation(err))

	p, err := ParsePaymentStatus("PAID")
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, p)

	o, err := ParseOrigin("walkin")
	require.NoError(t, err)
	assert.Equal(t, OriginWalkIn, o)
	_, err = ParseOrigin("phone")
	assert.True(t, IsValidation(err))
}

func TestFilterMatches(t *testing.T) {
	r := Reservation{
		Name:          "Maria Santos",
		Email:         "maria@example.com",
		Phone:         "+63 917 555 0101",
		Range:         span(0, 2),
		Origin:        OriginWalkIn,
		Status:        StatusConfirmed,
		PaymentStatus: PaymentPaid,
	}

	assert.True(t, Filter{}.Matches(r))
	assert.True(t, Filter{Query: "SANTOS"}.Matches(r))
	assert.True(t, Filter{Query: "0101"}.Matches(r))
	assert.True(t, Filter{Query: "@example"}.Matches(r))
	assert.False(t, Filter{Query: "juan"}.Matches(r))
	assert.False(t, Filter{Origin: OriginOnline}.Matches(r))
	assert.False(t, Filter{PaymentStatus: PaymentPending}.Matches(r))
	assert.True(t, Filter{CheckIn: day0.Add(15 * time.Hour)}.Matches(r))
	assert.False(t, Filter{CheckIn: day0.AddDate(0, 0, 1)}.Matches(r))
	assert.True(t, Filter{Query: "maria", Origin: OriginWalkIn, Status: StatusConfirmed}.Matches(r))
}

func TestSortNewestFirst(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rs := []Reservation{
		{ID: "b", CreatedAt: t0},
		{ID: "c", CreatedAt: t0.Add(time.Hour)},
		{ID: "a", CreatedAt: t0},
	}
	SortNewestFirst(rs)
	assert.Equal(t, []string{"c", "a", "b"}, []string{rs[0].ID, rs[1].ID, rs[2].ID})
}

func TestRequestValidationUsesJSONNames(t *testing.T) {
	v := newValidator()

	err := structErr(v.Struct(Request{Phone: "1", RoomType: "x", Guests: 1, Origin: OriginOnline}.normalized()))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)

	err = structErr(v.Struct(Request{Name: "A", Phone: "1", RoomType: "x", Guests: 0, Origin: OriginOnline}))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "guests", ve.Field)

	err = structErr(v.Struct(Request{Name: "A", Email: "nope", Phone: "1", RoomType: "x", Guests: 1, Origin: OriginOnline}))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)

	err = structErr(v.Struct(Request{Name: "A", Phone: "1", RoomType: "x", Guests: 1, Origin: OriginOnline, AddOns: []string{""}}))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "add_ons", ve.Field)
}
