package model

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// LedgerEntry accumulates the raw token totals of one validator on one day.
type LedgerEntry struct {
	VaultEmission *big.Int
	Boosters      map[common.Address]*big.Int
}

func NewLedgerEntry() *LedgerEntry {
	return &LedgerEntry{
		VaultEmission: new(big.Int),
		Boosters:      make(map[common.Address]*big.Int),
	}
}

func (e *LedgerEntry) AddBooster(token common.Address, amount *big.Int) {
	cur, ok := e.Boosters[token]
	if !ok {
		cur = new(big.Int)
		e.Boosters[token] = cur
	}
	cur.Add(cur, amount)
}

// Ledger holds every entry keyed by date and validator pubkey.
type Ledger struct {
	Entries map[Day]map[string]*LedgerEntry
}

func NewLedger() *Ledger {
	return &Ledger{
		Entries: make(map[Day]map[string]*LedgerEntry),
	}
}

func (l *Ledger) entry(d Day, pubkey string) *LedgerEntry {
	day, ok := l.Entries[d]
	if !ok {
		day = make(map[string]*LedgerEntry)
		l.Entries[d] = day
	}
	e, ok := day[pubkey]
	if !ok {
		e = NewLedgerEntry()
		day[pubkey] = e
	}
	return e
}

func (l *Ledger) AddVaultEmission(d Day, pubkey string, amount *big.Int) {
	e := l.entry(d, pubkey)
	e.VaultEmission.Add(e.VaultEmission, amount)
}

func (l *Ledger) AddBooster(d Day, pubkey string, token common.Address, amount *big.Int) {
	l.entry(d, pubkey).AddBooster(token, amount)
}

// Get returns the entry of a validator on a day, nil when nothing was indexed.
func (l *Ledger) Get(d Day, pubkey string) *LedgerEntry {
	return l.Entries[d][pubkey]
}

// Merge folds other into l. other is not modified.
func (l *Ledger) Merge(other *Ledger) {
	for d, day := range other.Entries {
		for pubkey, o := range day {
			e := l.entry(d, pubkey)
			e.VaultEmission.Add(e.VaultEmission, o.VaultEmission)
			for token, amount := range o.Boosters {
				e.AddBooster(token, amount)
			}
		}
	}
}

// BoosterTokens returns every booster token referenced, sorted by address.
func (l *Ledger) BoosterTokens() []common.Address {
	seen := make(map[common.Address]struct{})
	for _, day := range l.Entries {
		for _, e := range day {
			for token := range e.Boosters {
				seen[token] = struct{}{}
			}
		}
	}
	out := make([]common.Address, 0, len(seen))
	for token := range seen {
		out = append(out, token)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Cmp(out[j]) < 0
	})
	return out
}

func (l *Ledger) HasVaultEmissions() bool {
	for _, day := range l.Entries {
		for _, e := range day {
			if e.VaultEmission.Sign() > 0 {
				return true
			}
		}
	}
	return false
}

// Totals sums every day of a validator: vault emission and per token booster amounts.
func (l *Ledger) Totals(pubkey string) *LedgerEntry {
	out := NewLedgerEntry()
	for _, day := range l.Entries {
		e, ok := day[pubkey]
		if !ok {
			continue
		}
		out.VaultEmission.Add(out.VaultEmission, e.VaultEmission)
		for token, amount := range e.Boosters {
			out.AddBooster(token, amount)
		}
	}
	return out
}
