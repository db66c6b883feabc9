// Package payment fake-processes the guest's payment choice. No money moves
// and no gateway is called; it only checks that the submitted details are
// complete and plausible.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Method string

const (
	Card       Method = "card"
	PayPal     Method = "paypal"
	ClickToPay Method = "clicktopay"
	GiftCard   Method = "giftcard"
	GCash      Method = "gcash"
	Maya       Method = "maya"
	GrabPay    Method = "grabpay"
	ShopeePay  Method = "shopeepay"
	Cash       Method = "cash"
)

type MethodInfo struct {
	Method Method
	Label  string
	// WalkInOnly methods are accepted at the front desk but not online.
	WalkInOnly bool
	EWallet    bool
}

var methods = []MethodInfo{
	{Method: Card, Label: "Credit/Debit Card"},
	{Method: PayPal, Label: "PayPal"},
	{Method: ClickToPay, Label: "Click to Pay"},
	{Method: GiftCard, Label: "Gift Card"},
	{Method: GCash, Label: "GCash", EWallet: true},
	{Method: Maya, Label: "Maya", EWallet: true},
	{Method: GrabPay, Label: "GrabPay", EWallet: true},
	{Method: ShopeePay, Label: "ShopeePay", EWallet: true},
	{Method: Cash, Label: "Cash", WalkInOnly: true},
}

func Methods() []MethodInfo { return append([]MethodInfo(nil), methods...) }

func Lookup(s string) (MethodInfo, bool) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	for _, info := range methods {
		if info.Method == m {
			return info, true
		}
	}
	return MethodInfo{}, false
}

// ErrDeclined is returned alongside a declined Result.
var ErrDeclined = errors.New("payment declined")

// DetailsError names a missing or malformed payment detail.
type DetailsError struct {
	Field  string
	Reason string
}

func (e *DetailsError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type Submission struct {
	Method       Method
	CardNumber   string
	Expiry       string // MM/YY
	CVV          string
	CardName     string
	GiftCardCode string
}

type Result struct {
	Approved  bool
	Reference string
	Reason    string
}

// declineCard always declines, for exercising the failure path.
const declineCard = "4000000000000002"

type Processor struct {
	now func() time.Time
}

func NewProcessor(now func() time.Time) *Processor {
	if now == nil {
		now = time.Now
	}
	return &Processor{now: now}
}

// Process returns a *DetailsError when the submission is incomplete, and a
// non-approved Result with ErrDeclined when the fake issuer refuses it.
func (p *Processor) Process(ctx context.Context, sub Submission) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	info, ok := Lookup(string(sub.Method))
	if !ok {
		return Result{}, &DetailsError{Field: "payment_method", Reason: "select a payment method"}
	}

	switch info.Method {
	case Card:
		if err := p.checkCard(sub); err != nil {
			return Result{}, err
		}
		if digits(sub.CardNumber) == declineCard {
			return Result{Reason: "card declined by issuer"}, ErrDeclined
		}
	case GiftCard:
		code := strings.TrimSpace(sub.GiftCardCode)
		if code == "" {
			return Result{}, &DetailsError{Field: "gift_card_code", Reason: "required"}
		}
		if len(code) < 8 {
			return Result{}, &DetailsError{Field: "gift_card_code", Reason: "too short"}
		}
	}

	return Result{Approved: true, Reference: "PAY-" + strings.ToUpper(uuid.NewString()[:8])}, nil
}

func (p *Processor) checkCard(sub Submission) error {
	num := digits(sub.CardNumber)
	if num == "" {
		return &DetailsError{Field: "card_number", Reason: "required"}
	}
	if len(num) < 12 || len(num) > 19 || !luhn(num) {
		return &DetailsError{Field: "card_number", Reason: "not a valid card number"}
	}
	if strings.TrimSpace(sub.Expiry) == "" {
		return &DetailsError{Field: "expiry", Reason: "required"}
	}
	exp, err := time.Parse("01/06", strings.TrimSpace(sub.Expiry))
	if err != nil {
		return &DetailsError{Field: "expiry", Reason: "want MM/YY"}
	}
	// valid through the last day of the expiry month
	if !p.now().Before(exp.AddDate(0, 1, 0)) {
		return &DetailsError{Field: "expiry", Reason: "card has expired"}
	}
	cvv := strings.TrimSpace(sub.CVV)
	if len(cvv) < 3 || len(cvv) > 4 || digits(cvv) != cvv {
		return &DetailsError{Field: "cvv", Reason: "want 3 or 4 digits"}
	}
	if strings.TrimSpace(sub.CardName) == "" {
		return &DetailsError{Field: "card_name", Reason: "required"}
	}
	return nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func luhn(num string) bool {
	sum := 0
	double := false
	for i := len(num) - 1; i >= 0; i-- {
		d, _ := strconv.Atoi(string(num[i]))
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
