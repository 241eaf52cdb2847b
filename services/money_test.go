package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSplitEarnings(t *testing.T) {
	cases := []struct {
		amount, teacher, admin string
	}{
		{"10.00", "8.00", "2.00"},
		{"10.01", "8.01", "2.00"},
		{"0.01", "0.01", "0.00"},
		{"0.03", "0.02", "0.01"},
		{"499.99", "399.99", "100.00"},
		{"0", "0", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.amount, func(t *testing.T) {
			amount := decimal.RequireFromString(tc.amount)
			teacher, admin := SplitEarnings(amount)

			assert.True(t, teacher.Equal(decimal.RequireFromString(tc.teacher)), "teacher got %s", teacher)
			assert.True(t, admin.Equal(decimal.RequireFromString(tc.admin)), "admin got %s", admin)
			assert.True(t, teacher.Add(admin).Equal(amount))
		})
	}
}

func TestSplitEarningsNeverLosesACent(t *testing.T) {
	for cents := int64(0); cents <= 100000; cents++ {
		amount := decimal.New(cents, -2)
		teacher, admin := SplitEarnings(amount)
		if !teacher.Add(admin).Equal(amount) {
			t.Fatalf("split of %s gave %s + %s", amount, teacher, admin)
		}
	}
}

func TestOrderAmount(t *testing.T) {
	price := decimal.RequireFromString("999.00")

	assert.True(t, OrderAmount(price, 0).Equal(price))
	assert.True(t, OrderAmount(price, 10).Equal(decimal.RequireFromString("899.10")))
	assert.True(t, OrderAmount(price, 99).Equal(decimal.RequireFromString("9.99")))
	assert.True(t, OrderAmount(decimal.RequireFromString("10.01"), 33).Equal(decimal.RequireFromString("6.71")))
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(89910), ToMinorUnits(decimal.RequireFromString("899.10")))
	assert.Equal(t, int64(1), ToMinorUnits(decimal.RequireFromString("0.01")))
	assert.Equal(t, int64(0), ToMinorUnits(decimal.Zero))
}
