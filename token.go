package cryptotax

import "strings"

// FiatChain is the chain name used for fiat currencies.
const FiatChain = "fiat"

// AssetKey identifies an asset across the whole ledger.
type AssetKey string

// Token describes an asset as it appears in a transaction.
type Token struct {
	Symbol   string `json:"symbol" validate:"required"`
	Name     string `json:"name,omitempty"`
	Address  string `json:"address,omitempty"`
	Decimals int    `json:"decimals,omitempty" validate:"gte=0,lte=36"`
	Chain    string `json:"chain" validate:"required"`
}

// Fiat returns the token for a fiat currency code.
func Fiat(code string) Token {
	code = strings.ToUpper(code)
	return Token{Symbol: code, Name: code, Chain: FiatChain, Decimals: 2}
}

// Key returns the token identity: its contract address on its chain, or its
// symbol on its chain for native assets and fiat.
func (t Token) Key() AssetKey {
	chain := strings.ToLower(t.Chain)
	if t.Address != "" {
		return AssetKey(chain + ":" + t.Address)
	}
	return AssetKey(chain + ":" + strings.ToUpper(t.Symbol))
}

// IsFiat reports whether t is a fiat currency.
func (t Token) IsFiat() bool { return strings.EqualFold(t.Chain, FiatChain) }

func (t Token) String() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return string(t.Key())
}
