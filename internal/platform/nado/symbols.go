package nado

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

var coinToSymbol = map[string]string{
	"BTC":   "BTC-PERP",
	"ETH":   "ETH-PERP",
	"SOL":   "SOL-PERP",
	"ARB":   "ARB-PERP",
	"AVAX":  "AVAX-PERP",
	"MATIC": "MATIC-PERP",
	"OP":    "OP-PERP",
	"ATOM":  "ATOM-PERP",
	"DOGE":  "DOGE-PERP",
	"LTC":   "LTC-PERP",
	"BCH":   "BCH-PERP",
	"XRP":   "XRP-PERP",
	"ADA":   "ADA-PERP",
	"DOT":   "DOT-PERP",
	"LINK":  "LINK-PERP",
	"UNI":   "UNI-PERP",
	"AAVE":  "AAVE-PERP",
	"APT":   "APT-PERP",
	"SUI":   "SUI-PERP",
	"INJ":   "INJ-PERP",
}

// CoinToSymbol maps a coin ticker ("btc") to its perp symbol ("BTC-PERP").
func CoinToSymbol(coin string) (string, error) {
	s, ok := coinToSymbol[strings.ToUpper(strings.TrimSpace(coin))]
	if !ok {
		return "", fmt.Errorf("%w: unsupported nado coin %q", domain.ErrConfiguration, coin)
	}
	return s, nil
}

// SymbolToCoin is the inverse of CoinToSymbol; unknown symbols fall back to
// stripping the -PERP suffix.
func SymbolToCoin(symbol string) string {
	for c, s := range coinToSymbol {
		if s == symbol {
			return c
		}
	}
	return strings.ToUpper(strings.TrimSuffix(symbol, "-PERP"))
}

// SupportedCoins lists every coin with a known perp symbol, sorted.
func SupportedCoins() []string {
	out := make([]string, 0, len(coinToSymbol))
	for c := range coinToSymbol {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
