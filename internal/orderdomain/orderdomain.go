// Package orderdomain holds the pure fee, payment-asset, received-asset,
// and payment-total computations parameterised by market kind, side, type,
// and leverage. None of these functions touch the store; they are safe to
// call from either engine or from tests without a transaction.
package orderdomain

import (
	"github.com/shopspring/decimal"

	"exchangesim/internal/domain"
)

// PaymentAsset returns the asset an order of the given side pays with. For
// perpetual markets it is always USD. For spot markets BUY pays the quote
// asset, SELL pays the base asset.
func PaymentAsset(market domain.Market, side domain.OrderSide) domain.Asset {
	if market.IsPerpetual() {
		return domain.AssetUSD
	}
	base, quote := spotAssets(market)
	if side == domain.OrderSideBuy {
		return quote
	}
	return base
}

// ReceivedAsset returns the asset an order of the given side receives. It
// mirrors PaymentAsset: BUY receives the base asset, SELL receives the
// quote asset; perpetual markets always receive/pay USD.
func ReceivedAsset(market domain.Market, side domain.OrderSide) domain.Asset {
	if market.IsPerpetual() {
		return domain.AssetUSD
	}
	base, quote := spotAssets(market)
	if side == domain.OrderSideBuy {
		return base
	}
	return quote
}

func spotAssets(market domain.Market) (base, quote domain.Asset) {
	sym := string(market)
	// symbols never contain the historical "_prep" typo; trimming "_perp"
	// is a no-op for any spot market this module defines.
	for _, suffix := range []string{"_perp"} {
		if len(sym) > len(suffix) && sym[len(sym)-len(suffix):] == suffix {
			sym = sym[:len(sym)-len(suffix)]
		}
	}
	return domain.Asset(upper3(sym[:3])), domain.Asset(upper3(sym[3:6]))
}

func upper3(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// PaymentTotal computes the amount of PaymentAsset an order locks/pays.
//
//	perpetual:  (price*size)/leverage
//	spot BUY:   price*size
//	spot SELL:  size
//
// leverage must be >= 1; callers pass 1 for spot orders.
func PaymentTotal(market domain.Market, price, size decimal.Decimal, side domain.OrderSide, leverage decimal.Decimal) decimal.Decimal {
	orderTotal := price.Mul(size)
	if market.IsPerpetual() {
		if leverage.IsZero() {
			leverage = decimal.NewFromInt(1)
		}
		return orderTotal.Div(leverage)
	}
	if side == domain.OrderSideBuy {
		return orderTotal
	}
	return size
}

// ReceivedTotal computes the amount of ReceivedAsset an order yields on fill.
//
//	perpetual:  price*size
//	spot BUY:   size
//	spot SELL:  price*size
func ReceivedTotal(market domain.Market, price, size decimal.Decimal, side domain.OrderSide) decimal.Decimal {
	orderTotal := price.Mul(size)
	if market.IsPerpetual() {
		return orderTotal
	}
	if side == domain.OrderSideBuy {
		return size
	}
	return orderTotal
}

// Fees bundles the four fee rates a portfolio carries, so FeeCalc does not
// need the full model.Portfolio type (keeping this package free of a
// dependency on internal/model).
type Fees struct {
	SpotMakerFee decimal.Decimal
	SpotTakerFee decimal.Decimal
	PerpMakerFee decimal.Decimal
	PerpTakerFee decimal.Decimal
}

// FeeCalc computes the fee owed for an order.
//
//	perpetual:        order_total * (perp_maker_fee if LIMIT else perp_taker_fee)
//	spot LIMIT BUY:   size * spot_maker_fee
//	spot LIMIT SELL:  order_total * spot_maker_fee
//	spot MARKET BUY:  size * spot_taker_fee
//	spot MARKET SELL: order_total * spot_taker_fee
//
// BUY fees are denominated in the base asset, SELL fees in the quote
// asset — the same assets ReceivedAsset returns for that side.
func FeeCalc(market domain.Market, price, size decimal.Decimal, side domain.OrderSide, orderType domain.OrderType, fees Fees) decimal.Decimal {
	orderTotal := price.Mul(size)
	if market.IsPerpetual() {
		if orderType == domain.OrderTypeLimit {
			return orderTotal.Mul(fees.PerpMakerFee)
		}
		return orderTotal.Mul(fees.PerpTakerFee)
	}
	if orderType == domain.OrderTypeLimit {
		if side == domain.OrderSideBuy {
			return size.Mul(fees.SpotMakerFee)
		}
		return orderTotal.Mul(fees.SpotMakerFee)
	}
	// MARKET
	if side == domain.OrderSideBuy {
		return size.Mul(fees.SpotTakerFee)
	}
	return orderTotal.Mul(fees.SpotTakerFee)
}
