package services

import "github.com/shopspring/decimal"

var (
	teacherShare = decimal.RequireFromString("0.80")
	adminShare   = decimal.RequireFromString("0.20")
	hundred      = decimal.NewFromInt(100)
)

// SplitEarnings divides a paid amount into the teacher share and the platform commission.
// Both sides use banker's rounding to the cent; for any cent amount they add up to the input.
func SplitEarnings(amount decimal.Decimal) (teacher, admin decimal.Decimal) {
	teacher = amount.Mul(teacherShare).RoundBank(2)
	admin = amount.Mul(adminShare).RoundBank(2)
	return teacher, admin
}

// OrderAmount applies a percentage discount to a price, rounded to the cent
func OrderAmount(price decimal.Decimal, discount int) decimal.Decimal {
	off := price.Mul(decimal.NewFromInt(int64(discount))).Div(hundred)
	return price.Sub(off).Round(2)
}

// ToMinorUnits converts rupees to paise for the gateway
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}
