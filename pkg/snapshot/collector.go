package snapshot

import (
	"context"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/migalabs/valscore/pkg/clientapi"
	"github.com/migalabs/valscore/pkg/model"
)

var (
	modName = "Snapshot"
	log     = logrus.WithField(
		"module", modName,
	)
)

// SnapshotSource is the part of the chain client the collector needs.
type SnapshotSource interface {
	clientapi.ContractCaller
	ValidatorSet(ctx context.Context, number uint64) ([]model.ValidatorPower, error)
}

// Collector reads the stake and boost of every validator at each day boundary block.
type Collector struct {
	cli           SnapshotSource
	bgt           common.Address
	stakeDecimals uint8
	boostDecimals uint8

	degraded atomic.Int64
}

func NewCollector(cli SnapshotSource, bgt common.Address, stakeDecimals, boostDecimals uint8) *Collector {
	return &Collector{
		cli:           cli,
		bgt:           bgt,
		stakeDecimals: stakeDecimals,
		boostDecimals: boostDecimals,
	}
}

// Degraded returns the number of cells replaced by a zero snapshot after a failed read.
func (c *Collector) Degraded() int {
	return int(c.degraded.Load())
}

// Collect returns one snapshot per validator and boundary. Failures never abort a day: a missing
// validator set zeroes every cell of that day, a failing boost read zeroes that cell.
func (c *Collector) Collect(ctx context.Context, boundaries []model.DayBoundary, validators []model.Validator) (model.Snapshots, error) {
	snapshots := make(model.Snapshots)
	for _, b := range boundaries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stakes, err := c.stakeTable(ctx, b.Block)
		if err != nil {
			log.Errorf("zero snapshots for %s: unable to read validator set at block %d: %s", b.Date, b.Block, err)
			for _, v := range validators {
				snapshots.Set(b.Date, v.Pubkey, model.NewSnapshot(0, 0, new(big.Int), new(big.Int)))
			}
			c.degraded.Add(int64(len(validators)))
			continue
		}

		for _, v := range validators {
			snapshots.Set(b.Date, v.Pubkey, c.snapshot(ctx, b, v, stakes))
		}
		log.Debugf("collected %d snapshots for %s at block %d", len(validators), b.Date, b.Block)
	}
	return snapshots, nil
}

func (c *Collector) snapshot(ctx context.Context, b model.DayBoundary, v model.Validator, stakes stakeTable) model.Snapshot {
	stakeRaw := big.NewInt(stakes.lookup(v.ConsensusAddress))

	pubkey, err := v.PubkeyBytes()
	if err != nil {
		log.Warnf("zero snapshot for %s on %s: %s", v.Name, b.Date, err)
		c.degraded.Add(1)
		return model.NewSnapshot(0, 0, new(big.Int), new(big.Int))
	}
	boostRaw, err := clientapi.ReadBoost(ctx, c.cli, c.bgt, pubkey, b.Block)
	if err != nil {
		log.Warnf("zero snapshot for %s on %s: unable to read boost at block %d: %s", v.Name, b.Date, b.Block, err)
		c.degraded.Add(1)
		return model.NewSnapshot(0, 0, new(big.Int), new(big.Int))
	}
	return model.NewSnapshot(
		Normalize(stakeRaw, c.stakeDecimals),
		Normalize(boostRaw, c.boostDecimals),
		stakeRaw,
		boostRaw,
	)
}

func (c *Collector) stakeTable(ctx context.Context, block uint64) (stakeTable, error) {
	set, err := c.cli.ValidatorSet(ctx, block)
	if err != nil {
		return stakeTable{}, err
	}
	return newStakeTable(set), nil
}

// Normalize scales a raw amount down by 10^decimals.
func Normalize(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).InexactFloat64()
}

// stakeTable maps consensus addresses to voting power. Address casing differs between sources,
// so lookups fall back to a case-insensitive match.
type stakeTable struct {
	exact map[string]int64
	fold  map[string]int64
}

func newStakeTable(set []model.ValidatorPower) stakeTable {
	t := stakeTable{
		exact: make(map[string]int64, len(set)),
		fold:  make(map[string]int64, len(set)),
	}
	for _, p := range set {
		t.exact[p.Address] = p.VotingPower
		t.fold[model.NormalizeProposer(p.Address)] = p.VotingPower
	}
	return t
}

func (t stakeTable) lookup(addr string) int64 {
	if power, ok := t.exact[addr]; ok {
		return power
	}
	return t.fold[model.NormalizeProposer(addr)]
}
