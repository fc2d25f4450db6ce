package orderdomain

import (
	"testing"

	"github.com/shopspring/decimal"

	"exchangesim/internal/domain"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestPaymentAssetSpot(t *testing.T) {
	if got := PaymentAsset(domain.MarketBTCUSD, domain.OrderSideBuy); got != domain.AssetUSD {
		t.Fatalf("BUY payment asset = %s, want USD", got)
	}
	if got := PaymentAsset(domain.MarketBTCUSD, domain.OrderSideSell); got != domain.AssetBTC {
		t.Fatalf("SELL payment asset = %s, want BTC", got)
	}
}

func TestReceivedAssetSpot(t *testing.T) {
	if got := ReceivedAsset(domain.MarketBTCUSD, domain.OrderSideBuy); got != domain.AssetBTC {
		t.Fatalf("BUY received asset = %s, want BTC", got)
	}
	if got := ReceivedAsset(domain.MarketBTCUSD, domain.OrderSideSell); got != domain.AssetUSD {
		t.Fatalf("SELL received asset = %s, want USD", got)
	}
}

func TestPaymentAssetPerp(t *testing.T) {
	for _, side := range []domain.OrderSide{domain.OrderSideBuy, domain.OrderSideSell} {
		if got := PaymentAsset(domain.MarketBTCUSDPerp, side); got != domain.AssetUSD {
			t.Fatalf("perp payment asset = %s, want USD", got)
		}
		if got := ReceivedAsset(domain.MarketBTCUSDPerp, side); got != domain.AssetUSD {
			t.Fatalf("perp received asset = %s, want USD", got)
		}
	}
}

func TestPaymentTotalSpot(t *testing.T) {
	price, size := d("1000"), d("0.25")
	one := d("1")
	if got := PaymentTotal(domain.MarketBTCUSD, price, size, domain.OrderSideBuy, one); !got.Equal(d("250")) {
		t.Fatalf("BUY payment total = %s, want 250", got)
	}
	if got := PaymentTotal(domain.MarketBTCUSD, price, size, domain.OrderSideSell, one); !got.Equal(d("0.25")) {
		t.Fatalf("SELL payment total = %s, want 0.25", got)
	}
}

func TestPaymentTotalPerpLeverage(t *testing.T) {
	price, size, leverage := d("1000"), d("0.5"), d("2")
	got := PaymentTotal(domain.MarketBTCUSDPerp, price, size, domain.OrderSideBuy, leverage)
	if !got.Equal(d("250")) {
		t.Fatalf("perp payment total = %s, want 250", got)
	}
}

func TestReceivedTotal(t *testing.T) {
	price, size := d("1000"), d("0.25")
	if got := ReceivedTotal(domain.MarketBTCUSD, price, size, domain.OrderSideBuy); !got.Equal(size) {
		t.Fatalf("BUY received total = %s, want %s", got, size)
	}
	if got := ReceivedTotal(domain.MarketBTCUSD, price, size, domain.OrderSideSell); !got.Equal(d("250")) {
		t.Fatalf("SELL received total = %s, want 250", got)
	}
	if got := ReceivedTotal(domain.MarketBTCUSDPerp, price, size, domain.OrderSideBuy); !got.Equal(d("250")) {
		t.Fatalf("perp received total = %s, want 250", got)
	}
}

func TestFeeCalcSpotLimit(t *testing.T) {
	fees := Fees{SpotMakerFee: d("0.0018"), SpotTakerFee: d("0.002")}
	price, size := d("1000"), d("0.25")
	buyFee := FeeCalc(domain.MarketBTCUSD, price, size, domain.OrderSideBuy, domain.OrderTypeLimit, fees)
	if !buyFee.Equal(d("0.00045")) {
		t.Fatalf("spot limit buy fee = %s, want 0.00045", buyFee)
	}
	sellFee := FeeCalc(domain.MarketBTCUSD, price, size, domain.OrderSideSell, domain.OrderTypeLimit, fees)
	if !sellFee.Equal(d("0.45")) {
		t.Fatalf("spot limit sell fee = %s, want 0.45", sellFee)
	}
}

func TestFeeCalcPerp(t *testing.T) {
	fees := Fees{PerpMakerFee: d("0.0002"), PerpTakerFee: d("0.0005")}
	price, size := d("1000"), d("0.25")
	limitFee := FeeCalc(domain.MarketBTCUSDPerp, price, size, domain.OrderSideBuy, domain.OrderTypeLimit, fees)
	if !limitFee.Equal(d("0.05")) {
		t.Fatalf("perp limit fee = %s, want 0.05", limitFee)
	}
	marketFee := FeeCalc(domain.MarketBTCUSDPerp, price, size, domain.OrderSideBuy, domain.OrderTypeMarket, fees)
	if !marketFee.Equal(d("0.125")) {
		t.Fatalf("perp market fee = %s, want 0.125", marketFee)
	}
}
