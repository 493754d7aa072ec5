package models

import "math"

// PricingKind tags a PricingRule
type PricingKind int

const (
	PricingNone PricingKind = iota
	PricingPercentOff
	PricingFixedSale
)

// PricingRule is how a product's base price is adjusted
type PricingRule struct {
	Kind    PricingKind
	Percent float64 // PricingPercentOff
	Price   float64 // PricingFixedSale
}

func NoPricing() PricingRule {
	return PricingRule{Kind: PricingNone}
}

func PercentOff(percent float64) PricingRule {
	return PricingRule{Kind: PricingPercentOff, Percent: percent}
}

func FixedSale(price float64) PricingRule {
	return PricingRule{Kind: PricingFixedSale, Price: price}
}

// PricingRuleFor derives the rule from a product's optional price fields.
// A sale price wins over a percentage; zero means absent for both.
func PricingRuleFor(p *Product) PricingRule {
	switch {
	case p.SalePrice > 0:
		return FixedSale(p.SalePrice)
	case p.DiscountPercent > 0:
		return PercentOff(p.DiscountPercent)
	default:
		return NoPricing()
	}
}

// EffectivePrice applies rule to base. The result is never negative.
func EffectivePrice(base float64, rule PricingRule) float64 {
	switch rule.Kind {
	case PricingFixedSale:
		return rule.Price
	case PricingPercentOff:
		pct := math.Min(math.Max(rule.Percent, 0), 100)
		return math.Round(base*(100-pct)) / 100
	default:
		return base
	}
}
