package model

import "math/big"

// Snapshot is the stake/boost state of one validator at one day boundary block.
type Snapshot struct {
	Stake    float64 // canonical unit (BERA)
	Boost    float64 // canonical unit (BGT)
	Ratio    float64 // Boost / Stake, 0 when Stake is 0
	StakeRaw *big.Int
	BoostRaw *big.Int
}

func NewSnapshot(stake, boost float64, stakeRaw, boostRaw *big.Int) Snapshot {
	s := Snapshot{
		Stake:    stake,
		Boost:    boost,
		StakeRaw: stakeRaw,
		BoostRaw: boostRaw,
	}
	if stake > 0 {
		s.Ratio = boost / stake
	}
	return s
}

// Snapshots is keyed by date and validator pubkey.
type Snapshots map[Day]map[string]Snapshot

func (s Snapshots) Set(d Day, pubkey string, snap Snapshot) {
	day, ok := s[d]
	if !ok {
		day = make(map[string]Snapshot)
		s[d] = day
	}
	day[pubkey] = snap
}

func (s Snapshots) Get(d Day, pubkey string) Snapshot {
	return s[d][pubkey]
}
