// Package positiondomain holds the pure position math: liquidation price,
// margin, PnL, weighted-average entry, and order-vs-position direction.
// None of these functions touch the store.
package positiondomain

import (
	"github.com/shopspring/decimal"

	"exchangesim/internal/domain"
)

// IsOrderAgainstPosition reports whether an order of orderSide reduces or
// closes a position of positionSide: a BUY is against a SHORT, a SELL is
// against a LONG.
func IsOrderAgainstPosition(orderSide domain.OrderSide, positionSide domain.PositionSide) bool {
	if orderSide == domain.OrderSideBuy {
		return positionSide == domain.PositionSideShort
	}
	return positionSide == domain.PositionSideLong
}

// PositionSideWithOrder maps an order's side to the position side it would
// open: BUY opens LONG, SELL opens SHORT.
func PositionSideWithOrder(orderSide domain.OrderSide) domain.PositionSide {
	if orderSide == domain.OrderSideBuy {
		return domain.PositionSideLong
	}
	return domain.PositionSideShort
}

// LqdPriceCalc computes the liquidation price: entry*(1 - 1/leverage) for
// LONG, entry*(1 + 1/leverage) for SHORT.
func LqdPriceCalc(entryPrice, leverage decimal.Decimal, side domain.PositionSide) decimal.Decimal {
	distance := entryPrice.Div(leverage)
	if side == domain.PositionSideLong {
		return entryPrice.Sub(distance)
	}
	return entryPrice.Add(distance)
}

// MarginCalc computes the USD margin held for a position: (size/leverage)*price.
func MarginCalc(size, leverage, price decimal.Decimal) decimal.Decimal {
	return size.Div(leverage).Mul(price)
}

// WeightedAverageEntryPrice computes the new entry price when merging an
// order into an existing position of the same direction:
//
//	(position.size*position.entry + order.size*order.price) / (position.size + order.size)
func WeightedAverageEntryPrice(positionSize, positionEntry, orderSize, orderPrice decimal.Decimal) decimal.Decimal {
	numerator := positionSize.Mul(positionEntry).Add(orderSize.Mul(orderPrice))
	denominator := positionSize.Add(orderSize)
	return numerator.Div(denominator)
}

// PnLValue computes realized/unrealized PnL for `size` units closed at
// closePrice against entryPrice: LONG gains on price increases, SHORT on
// price decreases.
func PnLValue(entryPrice, closePrice, size decimal.Decimal, side domain.PositionSide) decimal.Decimal {
	if side == domain.PositionSideLong {
		return size.Mul(closePrice.Sub(entryPrice))
	}
	return size.Mul(entryPrice.Sub(closePrice))
}

// LiquidationTriggered reports whether a position with the given side and
// liquidation price must be liquidated against the live last-trade price.
// Inclusive on both sides: LONG triggers at last <= lqdPrice, SHORT
// triggers at last >= lqdPrice.
func LiquidationTriggered(side domain.PositionSide, lqdPrice, last decimal.Decimal) bool {
	if side == domain.PositionSideLong {
		return lqdPrice.GreaterThanOrEqual(last)
	}
	return lqdPrice.LessThanOrEqual(last)
}
