package model

import "github.com/ethereum/go-ethereum/common"

// TokenMeta is the resolved metadata of a token. A Rate of 0 means it could not be priced.
type TokenMeta struct {
	Address  common.Address
	Decimals uint8
	Name     string
	Rate     float64 // USD per whole token
	Priced   bool    // false when Rate is a fallback
}

// DailyValuation is the USD value received by one validator on one day.
type DailyValuation struct {
	VaultUSD   float64
	BoosterUSD float64
	TotalUSD   float64
}

// Valuations is keyed by date and validator pubkey.
type Valuations map[Day]map[string]DailyValuation

func (v Valuations) Set(d Day, pubkey string, val DailyValuation) {
	day, ok := v[d]
	if !ok {
		day = make(map[string]DailyValuation)
		v[d] = day
	}
	day[pubkey] = val
}

func (v Valuations) Get(d Day, pubkey string) DailyValuation {
	return v[d][pubkey]
}
