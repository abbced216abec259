// Package clientapitest provides in-memory chain and price fakes for tests.
package clientapitest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/migalabs/valscore/pkg/model"
)

var ErrUnknownBlock = errors.New("unknown block")

// FakeChain is a ChainClient backed by in-memory tables. Blocks run from 0 to Latest.
type FakeChain struct {
	mu sync.Mutex

	Latest     uint64
	TimeOf     func(block uint64) uint64
	Proposers  map[uint64]string
	TxCounts   map[uint64]uint64
	Validators map[uint64][]model.ValidatorPower
	Logs       []types.Log
	Call       func(to common.Address, data []byte, block *big.Int) ([]byte, error)

	FailProposer   map[uint64]error
	FailTxCount    map[uint64]error
	FailValidators map[uint64]error
	FailLogs       func(q ethereum.FilterQuery) error

	TimestampCalls int
	TxCountCalls   map[uint64]int
	LogQueries     []ethereum.FilterQuery
}

// NewFakeChain returns a chain whose block n has timestamp genesis + n*interval.
func NewFakeChain(latest, genesis, interval uint64) *FakeChain {
	return &FakeChain{
		Latest: latest,
		TimeOf: func(block uint64) uint64 {
			return genesis + block*interval
		},
		Proposers:      make(map[uint64]string),
		TxCounts:       make(map[uint64]uint64),
		Validators:     make(map[uint64][]model.ValidatorPower),
		FailProposer:   make(map[uint64]error),
		FailTxCount:    make(map[uint64]error),
		FailValidators: make(map[uint64]error),
		TxCountCalls:   make(map[uint64]int),
	}
}

func (f *FakeChain) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return f.Latest, nil
}

func (f *FakeChain) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TimestampCalls++
	if number > f.Latest {
		return 0, errors.Wrapf(ErrUnknownBlock, "block %d", number)
	}
	return f.TimeOf(number), nil
}

func (f *FakeChain) BlockTxCount(ctx context.Context, number uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TxCountCalls[number]++
	if err, ok := f.FailTxCount[number]; ok {
		return 0, err
	}
	return f.TxCounts[number], nil
}

func (f *FakeChain) BlockProposer(ctx context.Context, number uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.FailProposer[number]; ok {
		return "", err
	}
	p, ok := f.Proposers[number]
	if !ok {
		return "", errors.Wrapf(ErrUnknownBlock, "block %d", number)
	}
	return model.NormalizeProposer(p), nil
}

func (f *FakeChain) ValidatorSet(ctx context.Context, number uint64) ([]model.ValidatorPower, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.FailValidators[number]; ok {
		return nil, err
	}
	return f.Validators[number], nil
}

// FilterLogs applies the block range, address and topic filters of q to Logs.
func (f *FakeChain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LogQueries = append(f.LogQueries, q)
	if f.FailLogs != nil {
		if err := f.FailLogs(q); err != nil {
			return nil, err
		}
	}
	out := make([]types.Log, 0)
	for _, l := range f.Logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddress(q.Addresses, l.Address) {
			continue
		}
		if !matchTopics(q.Topics, l.Topics) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *FakeChain) CallContract(ctx context.Context, to common.Address, data []byte, block *big.Int) ([]byte, error) {
	if f.Call == nil {
		return nil, errors.New("no contract handler")
	}
	return f.Call(to, data, block)
}

// TxCountCalled reports whether the tx count of block was requested.
func (f *FakeChain) TxCountCalled(block uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.TxCountCalls[block] > 0
}

func containsAddress(addrs []common.Address, a common.Address) bool {
	for _, x := range addrs {
		if x == a {
			return true
		}
	}
	return false
}

func matchTopics(filter [][]common.Hash, topics []common.Hash) bool {
	if len(filter) > len(topics) {
		return false
	}
	for i, alts := range filter {
		if len(alts) == 0 {
			continue
		}
		found := false
		for _, h := range alts {
			if h == topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// FakeQuoter returns fixed quotes per input token. Tokens missing from Rates have no route.
type FakeQuoter struct {
	mu sync.Mutex

	// Rates holds the output amount returned for the input amount, keyed by tokenIn.
	Rates map[common.Address]*big.Int
	Fail  map[common.Address]error
	Calls map[common.Address]int
}

func NewFakeQuoter() *FakeQuoter {
	return &FakeQuoter{
		Rates: make(map[common.Address]*big.Int),
		Fail:  make(map[common.Address]error),
		Calls: make(map[common.Address]int),
	}
}

func (q *FakeQuoter) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amount *big.Int) (*big.Int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Calls[tokenIn]++
	if err, ok := q.Fail[tokenIn]; ok {
		return nil, err
	}
	out, ok := q.Rates[tokenIn]
	if !ok {
		return nil, model.ErrNoRoute
	}
	return new(big.Int).Set(out), nil
}

func (q *FakeQuoter) CallsFor(token common.Address) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.Calls[token]
}
