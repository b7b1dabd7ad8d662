package models

import "strings"

// AssetType is the instrument class shown to the user.
type AssetType string

const (
	AssetForex  AssetType = "Forex"
	AssetCrypto AssetType = "Crypto"
	AssetMetals AssetType = "Metals"
)

// Tick is the direction of the last simulated price move.
type Tick string

const (
	TickUp   Tick = "up"
	TickDown Tick = "down"
)

// Asset is a quote snapshot. Price and Change are pre-rendered decimal strings.
type Asset struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Price    string    `json:"price" yaml:"price"`
	Change   string    `json:"change" yaml:"change"`
	Type     AssetType `json:"type" yaml:"type"`
	LastTick Tick      `json:"lastTick,omitempty" yaml:"-"`
}

// Id prefixes carry the instrument class: "f" currency pair, "c" crypto, "m" metal.
const (
	prefixCurrencyPair = "f"
	prefixCrypto       = "c"
)

// IsCurrencyPair reports whether the asset is quoted with 5 decimal places.
func (a Asset) IsCurrencyPair() bool { return strings.HasPrefix(a.ID, prefixCurrencyPair) }

// IsCrypto reports whether the asset uses the high-volatility feed.
func (a Asset) IsCrypto() bool { return strings.HasPrefix(a.ID, prefixCrypto) }

// PricePrecision returns the number of decimal places used to render Price.
func (a Asset) PricePrecision() int32 {
	if a.IsCurrencyPair() {
		return 5
	}
	return 2
}

// DefaultAssets is the tracked instrument set used when config provides none.
func DefaultAssets() []Asset {
	return []Asset{
		{ID: "f-eurusd", Name: "EUR/USD", Price: "1.08450", Change: "+0.12%", Type: AssetForex},
		{ID: "f-gbpusd", Name: "GBP/USD", Price: "1.26710", Change: "-0.08%", Type: AssetForex},
		{ID: "f-usdjpy", Name: "USD/JPY", Price: "151.34200", Change: "+0.21%", Type: AssetForex},
		{ID: "f-audusd", Name: "AUD/USD", Price: "0.65430", Change: "-0.15%", Type: AssetForex},
		{ID: "c-btcusd", Name: "BTC/USD", Price: "64250.00", Change: "+1.45%", Type: AssetCrypto},
		{ID: "c-ethusd", Name: "ETH/USD", Price: "3120.50", Change: "+0.87%", Type: AssetCrypto},
		{ID: "c-solusd", Name: "SOL/USD", Price: "145.20", Change: "-2.10%", Type: AssetCrypto},
		{ID: "m-xauusd", Name: "XAU/USD", Price: "2345.60", Change: "+0.33%", Type: AssetMetals},
		{ID: "m-xagusd", Name: "XAG/USD", Price: "27.45", Change: "-0.41%", Type: AssetMetals},
	}
}
