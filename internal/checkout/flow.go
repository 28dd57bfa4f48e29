package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bookstore/storefront/internal/model"
	"github.com/bookstore/storefront/internal/validator"
	"github.com/google/uuid"
)

// Step is a stage of the checkout flow.
type Step int

const (
	StepShipping Step = 1
	StepPayment  Step = 2
	StepReview   Step = 3
)

func (s Step) String() string {
	switch s {
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepReview:
		return "review"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

var (
	// ErrEmptyCart is returned when checkout starts or completes with no items.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrNotAtReview is returned when Complete is called before the review step.
	ErrNotAtReview = errors.New("checkout: order can only be placed from the review step")
	// ErrNoAuthorizer is returned when no pre-authorizer is configured for the method.
	ErrNoAuthorizer = errors.New("checkout: no authorizer for payment method")
)

// SubmitFunc places the assembled order. Store.CreateOrder satisfies it.
type SubmitFunc func(ctx context.Context, req model.CreateOrderRequest) (*model.Order, error)

// Flow is a three-step checkout over a fixed set of cart items. Safe for concurrent use.
type Flow struct {
	mu          sync.Mutex
	step        Step
	items       []model.CartItem
	address     model.ShippingAddress
	method      Method
	phone       string
	authorizers map[Method]Authorizer
	auth        *Authorization
}

// NewFlow starts checkout at the shipping step. The address is prefilled from user when given.
func NewFlow(items []model.CartItem, user *model.User, authorizers map[Method]Authorizer) (*Flow, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if authorizers == nil {
		authorizers = SimulatedAuthorizers(0)
	}
	f := &Flow{
		step:        StepShipping,
		items:       append([]model.CartItem(nil), items...),
		authorizers: authorizers,
	}
	if user != nil {
		f.address.FullName = user.FullName()
		f.address.Email = user.Email
		f.address.Phone = user.Phone
	}
	return f, nil
}

// Step returns the current step.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Items returns a copy of the items being checked out.
func (f *Flow) Items() []model.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.CartItem(nil), f.items...)
}

// Summary prices the items being checked out.
func (f *Flow) Summary() Summary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Totals(f.items)
}

// Address returns the shipping address entered so far.
func (f *Flow) Address() model.ShippingAddress {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.address
}

// SetAddress replaces the shipping address.
func (f *Flow) SetAddress(addr model.ShippingAddress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.address = addr
}

// SelectMethod chooses the payment method. COD is refused for carts with digital items.
func (f *Flow) SelectMethod(m Method) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ValidateMethod(m, f.items); err != nil {
		return err
	}
	f.method = m
	return nil
}

// Method returns the selected payment method, empty until one is chosen.
func (f *Flow) Method() Method {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.method
}

// SetPaymentPhone records the phone used for M-Pesa STK push.
func (f *Flow) SetPaymentPhone(phone string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phone = phone
}

// Authorization returns the last successful pre-authorization, if any.
func (f *Flow) Authorization() *Authorization {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.auth == nil {
		return nil
	}
	a := *f.auth
	return &a
}

// Next validates the current step and advances. On failure the step is unchanged.
func (f *Flow) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.step {
	case StepShipping:
		if err := ValidateShipping(f.address); err != nil {
			return err
		}
	case StepPayment:
		if err := f.validatePayment(); err != nil {
			return err
		}
	case StepReview:
		return nil
	}
	f.step++
	return nil
}

// Back returns to the previous step. It never leaves the shipping step.
func (f *Flow) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step > StepShipping {
		f.step--
	}
}

func (f *Flow) validatePayment() error {
	if f.method == "" {
		v := validator.New()
		v.AddError("payment_method", "Please select a payment method")
		return v.Err()
	}
	if err := ValidateMethod(f.method, f.items); err != nil {
		return err
	}
	if f.method == MethodMpesa {
		return ValidateMpesaPhone(f.phone)
	}
	return nil
}

// Request assembles the order payload from the current state.
func (f *Flow) Request() model.CreateOrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.request()
}

func (f *Flow) request() model.CreateOrderRequest {
	sum := Totals(f.items)
	lines := make([]model.OrderItem, 0, len(f.items))
	for _, item := range f.items {
		lines = append(lines, model.OrderItem{
			BookID:    item.BookID,
			Title:     item.Title,
			Format:    item.Format,
			Quantity:  item.Units(),
			UnitPrice: item.CurrentPrice(),
		})
	}
	req := model.CreateOrderRequest{
		Items:           lines,
		ShippingAddress: f.address,
		PaymentMethod:   string(f.method),
		Subtotal:        sum.Subtotal.Float(),
		Tax:             sum.Tax.Float(),
		Shipping:        sum.Shipping.Float(),
		TotalAmount:     sum.Total.Float(),
	}
	if f.method == MethodMpesa {
		req.PaymentPhone = f.phone
	}
	return req
}

// Complete pre-authorizes payment and, on success, hands the order to submit.
// Any failure leaves the flow at the review step.
func (f *Flow) Complete(ctx context.Context, submit SubmitFunc) (*model.Order, error) {
	f.mu.Lock()
	if f.step != StepReview {
		f.mu.Unlock()
		return nil, ErrNotAtReview
	}
	if err := f.validatePayment(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if err := ValidateShipping(f.address); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	authorizer, ok := f.authorizers[f.method]
	if !ok {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNoAuthorizer, f.method)
	}
	req := f.request()
	phone := f.phone
	f.mu.Unlock()

	auth, err := authorizer.Authorize(ctx, AuthorizationRequest{
		OrderReference: uuid.NewString(),
		Amount:         model.ToCents(req.TotalAmount),
		Phone:          phone,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout: payment authorization: %w", err)
	}

	f.mu.Lock()
	f.auth = &auth
	f.mu.Unlock()

	return submit(ctx, req)
}
