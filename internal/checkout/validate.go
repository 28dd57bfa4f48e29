package checkout

import (
	"github.com/bookstore/storefront/internal/model"
	"github.com/bookstore/storefront/internal/validator"
)

const (
	minPasswordLength      = 8
	minLoginPasswordLength = 6
)

// ValidateShipping checks the required shipping fields.
func ValidateShipping(addr model.ShippingAddress) error {
	v := validator.New()
	v.Check(validator.NotBlank(addr.FullName), "full_name", "Full name is required")
	v.Check(validator.NotBlank(addr.Email), "email", "Email is required")
	if validator.NotBlank(addr.Email) {
		v.Check(validator.Matches(addr.Email, validator.EmailRX), "email", "Email is invalid")
	}
	v.Check(validator.NotBlank(addr.Phone), "phone", "Phone is required")
	v.Check(validator.NotBlank(addr.Street), "street", "Street address is required")
	v.Check(validator.NotBlank(addr.City), "city", "City is required")
	v.Check(validator.NotBlank(addr.PostalCode), "postal_code", "Postal code is required")
	v.Check(validator.NotBlank(addr.Country), "country", "Country is required")
	return v.Err()
}

// ValidateRegistration checks the sign-up form, including password confirmation.
func ValidateRegistration(reg model.Registration) error {
	v := validator.New()
	v.Check(validator.NotBlank(reg.FirstName), "first_name", "First name is required")
	v.Check(reg.Email != "", "email", "Email is required")
	if reg.Email != "" {
		v.Check(validator.Matches(reg.Email, validator.EmailRX), "email", "Email is invalid")
	}
	v.Check(reg.Password != "", "password", "Password is required")
	if reg.Password != "" {
		v.Check(len(reg.Password) >= minPasswordLength, "password", "Password must be at least 8 characters")
	}
	v.Check(reg.ConfirmPassword != "", "confirm_password", "Please confirm your password")
	if reg.ConfirmPassword != "" {
		v.Check(reg.Password == reg.ConfirmPassword, "confirm_password", "Passwords do not match")
	}
	return v.Err()
}

// ValidateCredentials checks the login form.
func ValidateCredentials(creds model.Credentials) error {
	v := validator.New()
	v.Check(creds.Email != "", "email", "Email is required")
	if creds.Email != "" {
		v.Check(validator.Matches(creds.Email, validator.EmailRX), "email", "Email is invalid")
	}
	v.Check(creds.Password != "", "password", "Password is required")
	if creds.Password != "" {
		v.Check(len(creds.Password) >= minLoginPasswordLength, "password", "Password must be at least 6 characters")
	}
	return v.Err()
}
