package costbasis

import (
	"github.com/shopspring/decimal"

	"github.com/orcatt/crayon-bs/internal/domain"
)

// rate clamp bounds: profit rates are capped to keep pathological
// tiny-cost positions from producing unbounded percentages.
var (
	maxProfitRate = decimal.NewFromInt(9999)
	minProfitRate = decimal.NewFromInt(-9999)
)

// ApplyBuy returns the position after buying shares at netValue for amount.
// Logic:
//  1. Blend the per-share cost: weighted average of the old cost over the
//     old shares and the buy price over the bought shares
//  2. Grow HoldingAmount by the cash paid and recompute TotalCost
//  3. HoldingProfit is untouched: market value tracking is driven by
//     mark-to-market, not by buys
func ApplyBuy(p domain.FundPosition, shares, netValue, amount decimal.Decimal) domain.FundPosition {
	newShares := p.HoldingShares.Add(shares)

	// newShares > 0 always holds for a buy, so the division is safe.
	oldBasis := p.HoldingCost.Mul(p.HoldingShares)
	newCost := oldBasis.Add(netValue.Mul(shares)).Div(newShares)

	p.HoldingShares = newShares
	p.HoldingCost = newCost
	p.HoldingAmount = p.HoldingAmount.Add(amount)
	p.TotalCost = newCost.Mul(newShares)
	p.HoldingProfitRate = ProfitRate(p.HoldingProfit, p.TotalCost)
	p.TotalProfit = p.HoldingProfit.Add(p.SellProfit)

	return p
}

// ApplySell returns the position after selling shares at netValue for amount,
// plus the profit realized by the sale. The realized profit is locked in
// against the pre-sale weighted-average cost; the cost basis per share is
// unaffected by a sell, only shares and market value shrink.
// Returns ErrInsufficientShares when shares exceed the current holding.
func ApplySell(p domain.FundPosition, shares, netValue, amount decimal.Decimal) (domain.FundPosition, decimal.Decimal, error) {
	if shares.GreaterThan(p.HoldingShares) {
		return p, decimal.Zero, domain.ErrInsufficientShares
	}

	realized := netValue.Sub(p.HoldingCost).Mul(shares)
	newShares := p.HoldingShares.Sub(shares)

	p.SellProfit = p.SellProfit.Add(realized)
	p.HoldingShares = newShares
	p.HoldingAmount = p.HoldingAmount.Sub(amount)
	p.TotalCost = p.HoldingCost.Mul(newShares)

	if newShares.LessThanOrEqual(decimal.Zero) {
		// Full exit: reset the open position, keep realized history.
		p.ClearHolding()
	} else {
		p.HoldingProfitRate = ProfitRate(p.HoldingProfit, p.TotalCost)
	}
	p.TotalProfit = p.HoldingProfit.Add(p.SellProfit)

	return p, realized, nil
}

// ReverseBuy returns the position as if the given buy had never occurred.
// The per-share cost is recomputed with the removal formula:
//
//	(oldCost x oldShares - netValue x shares) / (oldShares - shares)
//
// with the cost forced to zero when the divisor is not positive.
func ReverseBuy(p domain.FundPosition, shares, netValue, amount decimal.Decimal) domain.FundPosition {
	newShares := p.HoldingShares.Sub(shares)

	var newCost decimal.Decimal
	if newShares.GreaterThan(decimal.Zero) {
		removed := netValue.Mul(shares)
		newCost = p.HoldingCost.Mul(p.HoldingShares).Sub(removed).Div(newShares)
	}

	p.HoldingShares = newShares
	p.HoldingCost = newCost
	p.HoldingAmount = p.HoldingAmount.Sub(amount)
	p.TotalCost = newCost.Mul(newShares)

	if newShares.LessThanOrEqual(decimal.Zero) {
		p.ClearHolding()
	} else {
		p.HoldingProfitRate = ProfitRate(p.HoldingProfit, p.TotalCost)
	}
	p.TotalProfit = p.HoldingProfit.Add(p.SellProfit)

	return p
}

// ReverseSell returns the position as if the given sell had never occurred:
// shares and market value come back, and the profit the sale realized is
// backed out of SellProfit. The per-share cost is unchanged, mirroring the
// forward sell.
func ReverseSell(p domain.FundPosition, shares, netValue, amount decimal.Decimal) domain.FundPosition {
	realized := netValue.Sub(p.HoldingCost).Mul(shares)

	p.SellProfit = p.SellProfit.Sub(realized)
	p.HoldingShares = p.HoldingShares.Add(shares)
	p.HoldingAmount = p.HoldingAmount.Add(amount)
	p.TotalCost = p.HoldingCost.Mul(p.HoldingShares)
	p.HoldingProfitRate = ProfitRate(p.HoldingProfit, p.TotalCost)
	p.TotalProfit = p.HoldingProfit.Add(p.SellProfit)

	return p
}

// MarkToMarket returns the position revalued at netValue, plus the day's
// incremental profit or loss versus the position's profit before the mark.
// Returns ErrNoPosition when no shares are held.
func MarkToMarket(p domain.FundPosition, netValue decimal.Decimal) (domain.FundPosition, decimal.Decimal, error) {
	if p.HoldingShares.LessThanOrEqual(decimal.Zero) {
		return p, decimal.Zero, domain.ErrNoPosition
	}

	newAmount := netValue.Mul(p.HoldingShares)
	newProfit := newAmount.Sub(p.TotalCost)
	dayProfitLoss := newProfit.Sub(p.HoldingProfit)

	p.HoldingAmount = newAmount
	p.HoldingProfit = newProfit
	p.TotalProfit = newProfit.Add(p.SellProfit)
	p.HoldingProfitRate = ProfitRate(newProfit, p.TotalCost)
	p.CurrentNetValue = netValue

	return p, dayProfitLoss, nil
}

// ProfitRate divides profit by cost, guarding the zero-cost case and
// clamping the result to [-9999, 9999].
func ProfitRate(profit, totalCost decimal.Decimal) decimal.Decimal {
	if totalCost.IsZero() {
		return decimal.Zero
	}
	rate := profit.Div(totalCost)
	if rate.GreaterThan(maxProfitRate) {
		return maxProfitRate
	}
	if rate.LessThan(minProfitRate) {
		return minProfitRate
	}
	return rate
}
