package valuation

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/puzpuzpuz/xsync/v4"
)

// Rate is a USD rate per whole token. Priced is false when the rate is a fallback.
type Rate struct {
	Value  float64
	Priced bool
}

// TokenCache memoizes token metadata and rates. It is safe for concurrent use; concurrent
// writers of the same token store equal values.
type TokenCache struct {
	decimals *xsync.Map[common.Address, uint8]
	names    *xsync.Map[common.Address, string]
	rates    *xsync.Map[common.Address, Rate]
}

func NewTokenCache() *TokenCache {
	return &TokenCache{
		decimals: xsync.NewMap[common.Address, uint8](),
		names:    xsync.NewMap[common.Address, string](),
		rates:    xsync.NewMap[common.Address, Rate](),
	}
}

func (c *TokenCache) Decimals(token common.Address) (uint8, bool) {
	return c.decimals.Load(token)
}

func (c *TokenCache) SetDecimals(token common.Address, decimals uint8) {
	c.decimals.Store(token, decimals)
}

func (c *TokenCache) Name(token common.Address) (string, bool) {
	return c.names.Load(token)
}

func (c *TokenCache) SetName(token common.Address, name string) {
	c.names.Store(token, name)
}

func (c *TokenCache) Rate(token common.Address) (Rate, bool) {
	return c.rates.Load(token)
}

func (c *TokenCache) SetRate(token common.Address, rate Rate) {
	c.rates.Store(token, rate)
}

// Len returns the number of tokens with a cached rate.
func (c *TokenCache) Len() int {
	return c.rates.Size()
}
