package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPricingRuleFor(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		want    PricingRule
		price   float64
	}{
		{"no adjustment", Product{Price: 1000}, NoPricing(), 1000},
		{"sale price", Product{Price: 1000, SalePrice: 850}, FixedSale(850), 850},
		{"percent off", Product{Price: 1000, DiscountPercent: 15}, PercentOff(15), 850},
		{"sale price wins over percent", Product{Price: 1000, SalePrice: 700, DiscountPercent: 10}, FixedSale(700), 700},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := PricingRuleFor(&tt.product)
			assert.Equal(t, tt.want, rule)
			assert.Equal(t, tt.price, tt.product.EffectivePrice())
		})
	}
}

func TestEffectivePriceClampsPercent(t *testing.T) {
	assert.Equal(t, 0.0, EffectivePrice(500, PercentOff(150)))
	assert.Equal(t, 500.0, EffectivePrice(500, PercentOff(-5)))
	assert.Equal(t, 899.1, EffectivePrice(999, PercentOff(10)))
}
