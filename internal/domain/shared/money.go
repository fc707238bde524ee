package shared

import "github.com/shopspring/decimal"

// MoneyPrecision is the number of decimal places kept in storage
const MoneyPrecision = 4

// RoundMoney rounds an amount to storage precision
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPrecision)
}

// LineAmount computes quantity × unit price at storage precision
func LineAmount(quantity int64, unitPrice decimal.Decimal) decimal.Decimal {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(quantity)))
}
