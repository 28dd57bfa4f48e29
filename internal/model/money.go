package model

import (
	"fmt"
	"math"
)

// Cents is an amount in the smallest currency unit.
type Cents int64

// ToCents converts an API float amount to cents, rounding half away from zero.
func ToCents(amount float64) Cents {
	return Cents(math.Round(amount * 100))
}

// Float returns the amount as the API's float representation.
func (c Cents) Float() float64 {
	return float64(c) / 100
}

// String formats the amount with two decimals.
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
