package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/bookstore/storefront/internal/model"
	"github.com/bookstore/storefront/internal/validator"
)

// Method identifies a payment method.
type Method string

const (
	MethodMpesa Method = "mpesa"
	MethodTill  Method = "till"
	MethodCard  Method = "card"
	MethodCOD   Method = "cod"
)

// ErrCODUnavailable is returned when cash on delivery is chosen for a cart with digital items.
var ErrCODUnavailable = errors.New("checkout: cash on delivery is not available for ebook purchases")

// ErrUnknownMethod is returned for a method outside the supported set.
var ErrUnknownMethod = errors.New("checkout: unknown payment method")

// PaymentOption describes a method as presented for selection.
type PaymentOption struct {
	Method         Method
	Name           string
	Description    string
	Available      bool
	DisabledReason string
}

// Options lists every payment method with its availability for items.
func Options(items []model.CartItem) []PaymentOption {
	digital := HasDigital(items)
	opts := []PaymentOption{
		{Method: MethodMpesa, Name: "M-Pesa", Description: "Pay via STK Push to your phone", Available: true},
		{Method: MethodTill, Name: "Till Number", Description: "Pay via Till Number", Available: true},
		{Method: MethodCard, Name: "Credit/Debit Card", Description: "Pay securely with your card", Available: true},
		{Method: MethodCOD, Name: "Cash on Delivery", Description: "Pay when your order arrives", Available: !digital},
	}
	if digital {
		opts[3].DisabledReason = "Not available for ebook purchases"
	}
	return opts
}

// AvailableMethods returns the selectable methods for items.
func AvailableMethods(items []model.CartItem) []Method {
	var methods []Method
	for _, opt := range Options(items) {
		if opt.Available {
			methods = append(methods, opt.Method)
		}
	}
	return methods
}

// ValidateMethod checks that m is known and selectable for items.
func ValidateMethod(m Method, items []model.CartItem) error {
	switch m {
	case MethodMpesa, MethodTill, MethodCard:
		return nil
	case MethodCOD:
		if HasDigital(items) {
			return ErrCODUnavailable
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownMethod, m)
}

// Authorization is the outcome of a payment pre-authorization.
type Authorization struct {
	Method    Method
	Reference string
	Message   string
}

// AuthorizationRequest is what a pre-authorization sees.
type AuthorizationRequest struct {
	OrderReference string
	Amount         model.Cents
	Phone          string
}

// Authorizer pre-authorizes payment for one method before the order is created.
type Authorizer interface {
	Authorize(ctx context.Context, req AuthorizationRequest) (Authorization, error)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, req AuthorizationRequest) (Authorization, error)

// Authorize implements Authorizer.
func (f AuthorizerFunc) Authorize(ctx context.Context, req AuthorizationRequest) (Authorization, error) {
	return f(ctx, req)
}

// SimulatedAuthorizers returns pre-authorizers that accept every well-formed request
// after delay. No payment provider is contacted.
func SimulatedAuthorizers(delay time.Duration) map[Method]Authorizer {
	wait := func(ctx context.Context) error {
		if delay <= 0 {
			return ctx.Err()
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
	return map[Method]Authorizer{
		MethodMpesa: AuthorizerFunc(func(ctx context.Context, req AuthorizationRequest) (Authorization, error) {
			if err := ValidateMpesaPhone(req.Phone); err != nil {
				return Authorization{}, err
			}
			if err := wait(ctx); err != nil {
				return Authorization{}, err
			}
			return Authorization{Method: MethodMpesa, Reference: "STK-" + req.OrderReference,
				Message: "Check your phone to complete the M-Pesa payment."}, nil
		}),
		MethodTill: AuthorizerFunc(func(ctx context.Context, req AuthorizationRequest) (Authorization, error) {
			if err := wait(ctx); err != nil {
				return Authorization{}, err
			}
			return Authorization{Method: MethodTill, Reference: "TILL-" + req.OrderReference}, nil
		}),
		MethodCard: AuthorizerFunc(func(ctx context.Context, req AuthorizationRequest) (Authorization, error) {
			if err := wait(ctx); err != nil {
				return Authorization{}, err
			}
			return Authorization{Method: MethodCard, Reference: "CARD-" + req.OrderReference}, nil
		}),
		MethodCOD: AuthorizerFunc(func(ctx context.Context, req AuthorizationRequest) (Authorization, error) {
			return Authorization{Method: MethodCOD, Reference: "COD-" + req.OrderReference,
				Message: "Please have cash ready for delivery."}, ctx.Err()
		}),
	}
}

// ValidateMpesaPhone requires at least 10 digits. Spaces, dashes and a leading plus are allowed.
func ValidateMpesaPhone(phone string) error {
	digits := 0
	valid := true
	for _, r := range strings.TrimSpace(phone) {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == ' ' || r == '-':
		default:
			valid = false
		}
	}
	v := validator.New()
	v.Check(valid && digits >= 10, "phone", "Please enter a valid M-Pesa phone number")
	return v.Err()
}
