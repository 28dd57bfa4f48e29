package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/bookstore/storefront/internal/model"
	"github.com/bookstore/storefront/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v float64) *float64 { return &v }

func physicalCart() []model.CartItem {
	return []model.CartItem{
		{ID: 1, BookID: 10, Title: "Dune", ListPrice: 20.00, SalePrice: price(15.00), Quantity: 2, Format: "paperback"},
		{ID: 2, BookID: 11, Title: "Emma", ListPrice: 10.00, Quantity: 1, Format: "hardcover"},
	}
}

func validAddress() model.ShippingAddress {
	return model.ShippingAddress{
		FullName:   "Ada Lovelace",
		Email:      "ada@example.com",
		Phone:      "0712345678",
		Street:     "1 Analytical Way",
		City:       "London",
		PostalCode: "00100",
		Country:    "UK",
	}
}

func TestTotals(t *testing.T) {
	t.Run("physical cart pays shipping", func(t *testing.T) {
		sum := Totals(physicalCart())
		assert.Equal(t, model.Cents(4000), sum.Subtotal)
		assert.Equal(t, model.Cents(320), sum.Tax)
		assert.Equal(t, model.Cents(599), sum.Shipping)
		assert.Equal(t, model.Cents(4919), sum.Total)
		assert.Equal(t, 3, sum.Units)
		assert.Equal(t, "49.19", sum.Total.String())
	})

	t.Run("digital only ships free", func(t *testing.T) {
		sum := Totals([]model.CartItem{{BookID: 1, ListPrice: 10.00, Quantity: 1, Format: "ebook"}})
		assert.Equal(t, model.Cents(80), sum.Tax)
		assert.Equal(t, model.Cents(0), sum.Shipping)
		assert.Equal(t, model.Cents(1080), sum.Total)
	})

	t.Run("mixed cart still pays shipping", func(t *testing.T) {
		items := append(physicalCart(), model.CartItem{BookID: 12, ListPrice: 5.00, Format: "ebook"})
		sum := Totals(items)
		assert.Equal(t, ShippingFee, sum.Shipping)
		assert.Equal(t, model.Cents(4500), sum.Subtotal)
	})

	t.Run("missing quantity counts once", func(t *testing.T) {
		sum := Totals([]model.CartItem{{BookID: 1, ListPrice: 3.33, Quantity: 0}})
		assert.Equal(t, model.Cents(333), sum.Subtotal)
		assert.Equal(t, 1, sum.Units)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, Summary{}, Totals(nil))
	})
}

func TestRoundBasisPoints(t *testing.T) {
	assert.Equal(t, model.Cents(0), roundBasisPoints(6, TaxRateBasisPoints))
	assert.Equal(t, model.Cents(1), roundBasisPoints(7, TaxRateBasisPoints))
	assert.Equal(t, model.Cents(100), roundBasisPoints(1250, TaxRateBasisPoints))
}

func TestAvailableMethods(t *testing.T) {
	assert.Equal(t, []Method{MethodMpesa, MethodTill, MethodCard, MethodCOD}, AvailableMethods(physicalCart()))

	digital := append(physicalCart(), model.CartItem{BookID: 12, ListPrice: 5, Format: "eBook"})
	assert.NotContains(t, AvailableMethods(digital), MethodCOD)
	assert.ErrorIs(t, ValidateMethod(MethodCOD, digital), ErrCODUnavailable)
	assert.NoError(t, ValidateMethod(MethodCOD, physicalCart()))
	assert.ErrorIs(t, ValidateMethod("bitcoin", physicalCart()), ErrUnknownMethod)

	opts := Options(digital)
	require.Len(t, opts, 4)
	assert.False(t, opts[3].Available)
	assert.NotEmpty(t, opts[3].DisabledReason)
}

func TestValidateMpesaPhone(t *testing.T) {
	tests := []struct {
		phone string
		ok    bool
	}{
		{"0712345678", true},
		{"+254 712 345 678", true},
		{"0712-345-678", true},
		{"071234567", false},
		{"07123abc678", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			err := ValidateMpesaPhone(tt.phone)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, validator.IsValidation(err))
		})
	}
}

func TestValidateShipping(t *testing.T) {
	assert.NoError(t, ValidateShipping(validAddress()))

	err := ValidateShipping(model.ShippingAddress{Email: "not-an-email", City: "Nairobi"})
	var vErr *validator.Error
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Email is invalid", vErr.Fields["email"])
	for _, field := range []string{"full_name", "phone", "street", "postal_code", "country"} {
		assert.Contains(t, vErr.Fields, field)
	}
	assert.NotContains(t, vErr.Fields, "city")
}

func TestValidateRegistration(t *testing.T) {
	valid := model.Registration{FirstName: "Ada", Email: "ada@example.com", Password: "longenough", ConfirmPassword: "longenough"}
	assert.NoError(t, ValidateRegistration(valid))

	tests := []struct {
		name  string
		edit  func(r *model.Registration)
		field string
		msg   string
	}{
		{"first name", func(r *model.Registration) { r.FirstName = " " }, "first_name", "First name is required"},
		{"email missing", func(r *model.Registration) { r.Email = "" }, "email", "Email is required"},
		{"email invalid", func(r *model.Registration) { r.Email = "ada" }, "email", "Email is invalid"},
		{"password short", func(r *model.Registration) { r.Password, r.ConfirmPassword = "short", "short" }, "password", "Password must be at least 8 characters"},
		{"confirm missing", func(r *model.Registration) { r.ConfirmPassword = "" }, "confirm_password", "Please confirm your password"},
		{"mismatch", func(r *model.Registration) { r.ConfirmPassword = "different1" }, "confirm_password", "Passwords do not match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := valid
			tt.edit(&reg)
			var vErr *validator.Error
			require.ErrorAs(t, ValidateRegistration(reg), &vErr)
			assert.Equal(t, tt.msg, vErr.Fields[tt.field])
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	assert.NoError(t, ValidateCredentials(model.Credentials{Email: "a@b.c", Password: "secret"}))
	var vErr *validator.Error
	require.ErrorAs(t, ValidateCredentials(model.Credentials{Password: "abc"}), &vErr)
	assert.Equal(t, "Email is required", vErr.Fields["email"])
	assert.Equal(t, "Password must be at least 6 characters", vErr.Fields["password"])

	require.ErrorAs(t, ValidateCredentials(model.Credentials{Email: "reader@example", Password: "secret"}), &vErr)
	assert.Equal(t, "Email is invalid", vErr.Fields["email"])
	assert.NotContains(t, vErr.Fields, "password")
}

func TestFlowSteps(t *testing.T) {
	_, err := NewFlow(nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyCart)

	flow, err := NewFlow(physicalCart(), &model.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StepShipping, flow.Step())
	assert.Equal(t, "Ada Lovelace", flow.Address().FullName)

	flow.Back()
	assert.Equal(t, StepShipping, flow.Step())

	assert.True(t, validator.IsValidation(flow.Next()))
	assert.Equal(t, StepShipping, flow.Step())

	flow.SetAddress(validAddress())
	require.NoError(t, flow.Next())
	assert.Equal(t, StepPayment, flow.Step())

	assert.True(t, validator.IsValidation(flow.Next()), "no method selected")
	require.NoError(t, flow.SelectMethod(MethodMpesa))
	flow.SetPaymentPhone("12345")
	assert.Error(t, flow.Next())
	assert.Equal(t, StepPayment, flow.Step())

	flow.SetPaymentPhone("0712345678")
	require.NoError(t, flow.Next())
	assert.Equal(t, StepReview, flow.Step())

	flow.Back()
	assert.Equal(t, StepPayment, flow.Step())
}

func TestFlowRejectsCODForDigital(t *testing.T) {
	flow, err := NewFlow([]model.CartItem{{BookID: 1, ListPrice: 9.99, Format: "ebook"}}, nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, flow.SelectMethod(MethodCOD), ErrCODUnavailable)
	assert.Equal(t, Method(""), flow.Method())
}

func reviewFlow(t *testing.T, authorizers map[Method]Authorizer) *Flow {
	t.Helper()
	flow, err := NewFlow(physicalCart(), nil, authorizers)
	require.NoError(t, err)
	flow.SetAddress(validAddress())
	require.NoError(t, flow.Next())
	require.NoError(t, flow.SelectMethod(MethodCard))
	require.NoError(t, flow.Next())
	require.Equal(t, StepReview, flow.Step())
	return flow
}

func TestFlowComplete(t *testing.T) {
	flow := reviewFlow(t, SimulatedAuthorizers(0))

	var got model.CreateOrderRequest
	order, err := flow.Complete(context.Background(), func(_ context.Context, req model.CreateOrderRequest) (*model.Order, error) {
		got = req
		return &model.Order{ID: 1, Status: model.OrderPending, TotalAmount: req.TotalAmount}, nil
	})
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, "card", got.PaymentMethod)
	assert.InDelta(t, 40.00, got.Subtotal, 0.001)
	assert.InDelta(t, 3.20, got.Tax, 0.001)
	assert.InDelta(t, 5.99, got.Shipping, 0.001)
	assert.InDelta(t, 49.19, got.TotalAmount, 0.001)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.InDelta(t, 15.00, got.Items[0].UnitPrice, 0.001)
	assert.Empty(t, got.PaymentPhone)

	require.NotNil(t, flow.Authorization())
	assert.Equal(t, MethodCard, flow.Authorization().Method)
}

func TestFlowCompleteAuthorizationFailure(t *testing.T) {
	declined := errors.New("card declined")
	flow := reviewFlow(t, map[Method]Authorizer{
		MethodCard: AuthorizerFunc(func(context.Context, AuthorizationRequest) (Authorization, error) {
			return Authorization{}, declined
		}),
	})

	submitted := false
	_, err := flow.Complete(context.Background(), func(context.Context, model.CreateOrderRequest) (*model.Order, error) {
		submitted = true
		return nil, nil
	})
	assert.ErrorIs(t, err, declined)
	assert.False(t, submitted)
	assert.Equal(t, StepReview, flow.Step())
	assert.Nil(t, flow.Authorization())
}

func TestFlowCompleteOutsideReview(t *testing.T) {
	flow, err := NewFlow(physicalCart(), nil, nil)
	require.NoError(t, err)
	_, err = flow.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotAtReview)
}

func TestFlowCompleteCancelled(t *testing.T) {
	flow := reviewFlow(t, SimulatedAuthorizers(0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := flow.Complete(ctx, func(context.Context, model.CreateOrderRequest) (*model.Order, error) {
		t.Fatal("submit must not run")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
