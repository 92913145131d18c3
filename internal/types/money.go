package types

import "github.com/shopspring/decimal"

// MoneyPrecision is the number of decimal places amounts are stored with
const MoneyPrecision = 2

// RoundMoney rounds d half away from zero to MoneyPrecision places
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPrecision)
}
