package helpers

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places of every stored amount.
const MoneyPlaces = 2

// MinorUnit is the smallest representable currency amount.
var MinorUnit = decimal.New(1, -MoneyPlaces)

func Money(num float64) decimal.Decimal {
	return decimal.NewFromFloat(num).Round(MoneyPlaces)
}

// RoundMoney rounds half away from zero to two decimals.
func RoundMoney(num float64) float64 {
	return Money(num).InexactFloat64()
}
