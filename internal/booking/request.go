package booking

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Request is a booking attempt from any call site: the public booking
// form, the payment step or the front desk.
type Request struct {
	Name            string    `json:"name" validate:"required,max=200"`
	Email           string    `json:"email" validate:"omitempty,email,max=320"`
	Phone           string    `json:"phone" validate:"required,max=40"`
	RoomType        string    `json:"room_type" validate:"required"`
	CheckIn         time.Time `json:"check_in"`
	CheckOut        time.Time `json:"check_out"`
	Guests          int       `json:"guests" validate:"gte=1"`
	Origin          Origin    `json:"origin" validate:"oneof=online walkin"`
	PaymentMethod   string    `json:"payment_method"`
	AddOns          []string  `json:"add_ons" validate:"max=20,dive,required"`
	SpecialRequests string    `json:"special_requests" validate:"max=2000"`
}

func (r Request) normalized() Request {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.RoomType = strings.TrimSpace(r.RoomType)
	r.PaymentMethod = strings.ToLower(strings.TrimSpace(r.PaymentMethod))
	r.SpecialRequests = strings.TrimSpace(r.SpecialRequests)
	if r.Origin == "" {
		r.Origin = OriginOnline
	}
	if !r.CheckIn.IsZero() {
		r.CheckIn = Date(r.CheckIn)
	}
	if !r.CheckOut.IsZero() {
		r.CheckOut = Date(r.CheckOut)
	}
	return r
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// structErr converts the first validator failure into a *ValidationError
// keyed by the field's json name.
func structErr(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Field()
		if i := strings.IndexByte(field, '['); i > 0 {
			field = field[:i]
		}
		return &ValidationError{Field: field, Reason: reason(fe)}
	}
	return &ValidationError{Field: "request", Reason: err.Error()}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "not a valid email address"
	case "gte":
		return "must be at least " + fe.Param()
	case "max":
		return "too long"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "failed " + fe.Tag()
}
