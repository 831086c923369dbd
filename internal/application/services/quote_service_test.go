package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierDiscountPct(t *testing.T) {
	cases := []struct {
		quantity int
		want     float64
	}{
		{1, 0},
		{9, 0},
		{10, 5},
		{49, 5},
		{50, 10},
		{99, 10},
		{100, 15},
		{500, 15},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, TierDiscountPct(c.quantity), "quantity %d", c.quantity)
	}
}

func TestRoundMoney(t *testing.T) {
	// 3 * 19.99 accumulates binary dust without rounding
	assert.Equal(t, 59.97, roundMoney(3*19.99))
	assert.Equal(t, 0.1, roundMoney(0.1))
	assert.Equal(t, 100.0, roundMoney(99.999))
}

func TestQuoteTotals(t *testing.T) {
	// 100 units at 10.00 with the large tier: 100*10*0.85 = 850
	lineTotal := roundMoney(100 * 10.00 * (1 - TierDiscountPct(100)/100))
	assert.Equal(t, 850.0, lineTotal)

	// 10% quote-level discount stacks on the line tiers
	total := roundMoney(lineTotal * (1 - 10.0/100))
	assert.Equal(t, 765.0, total)
}
