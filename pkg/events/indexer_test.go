package events

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/migalabs/valscore/pkg/clientapi/clientapitest"
	"github.com/migalabs/valscore/pkg/model"
)

var (
	distributor = common.HexToAddress("0xD2f19a79b026Fb636A7c300bF5947df113940761")
	tokenX      = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenY      = common.HexToAddress("0x2222222222222222222222222222222222222222")

	day0 = model.NewDay(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	day1 = day0.AddDays(1)

	valA = model.Validator{Name: "a", Pubkey: "0xaa01"}
	valB = model.Validator{Name: "b", Pubkey: "0xbb02"}

	testRanges = model.DayRanges{
		{Date: day0, Start: 100, End: 199},
		{Date: day1, Start: 200, End: 299},
	}
)

func pubkeyTopic(t *testing.T, v model.Validator) common.Hash {
	key, err := v.PubkeyBytes()
	require.NoError(t, err)
	return PubkeyTopic(key)
}

func distributedLog(t *testing.T, v model.Validator, block uint64, amount *big.Int) types.Log {
	data, err := RewardEventsABI.Events[DistributedEvent].Inputs.NonIndexed().Pack(amount)
	require.NoError(t, err)
	return types.Log{
		Address:     distributor,
		BlockNumber: block,
		Topics: []common.Hash{
			EventID(DistributedEvent),
			pubkeyTopic(t, v),
			common.BigToHash(big.NewInt(1740787200)),
			common.BytesToHash(common.HexToAddress("0x99").Bytes()),
		},
		Data: data,
	}
}

func boosterLog(t *testing.T, v model.Validator, emitter common.Address, block uint64, token common.Address, amount *big.Int) types.Log {
	data, err := RewardEventsABI.Events[BoosterEvent].Inputs.NonIndexed().Pack(big.NewInt(1), amount)
	require.NoError(t, err)
	return types.Log{
		Address:     emitter,
		BlockNumber: block,
		Topics: []common.Hash{
			EventID(BoosterEvent),
			pubkeyTopic(t, v),
			common.BytesToHash(token.Bytes()),
		},
		Data: data,
	}
}

func testLogs(t *testing.T) []types.Log {
	huge, _ := new(big.Int).SetString("1000000000000000000000000000000", 10)
	untracked := model.Validator{Name: "x", Pubkey: "0xcc03"}
	spoofed := distributedLog(t, valA, 170, big.NewInt(1000))
	spoofed.Address = common.HexToAddress("0xbad")
	return []types.Log{
		distributedLog(t, valA, 150, big.NewInt(5)),
		distributedLog(t, valA, 160, big.NewInt(7)),
		distributedLog(t, valA, 250, big.NewInt(3)),
		distributedLog(t, valB, 199, huge),
		distributedLog(t, valB, 200, huge),
		distributedLog(t, valB, 200, huge),
		distributedLog(t, untracked, 150, big.NewInt(1)),
		spoofed,
		boosterLog(t, valA, common.HexToAddress("0xa1"), 120, tokenX, big.NewInt(10)),
		boosterLog(t, valA, common.HexToAddress("0xa2"), 121, tokenX, big.NewInt(11)),
		boosterLog(t, valB, common.HexToAddress("0xa3"), 260, tokenY, big.NewInt(20)),
		boosterLog(t, valB, common.HexToAddress("0xa3"), 350, tokenY, big.NewInt(99)),
	}
}

func requireLedger(t *testing.T, ledger *model.Ledger, vault, booster bool) {
	t.Helper()
	huge, _ := new(big.Int).SetString("1000000000000000000000000000000", 10)
	if vault {
		require.Equal(t, "12", ledger.Get(day0, valA.Pubkey).VaultEmission.String())
		require.Equal(t, "3", ledger.Get(day1, valA.Pubkey).VaultEmission.String())
		require.Equal(t, huge.String(), ledger.Get(day0, valB.Pubkey).VaultEmission.String())
		require.Equal(t, new(big.Int).Mul(huge, big.NewInt(2)).String(), ledger.Get(day1, valB.Pubkey).VaultEmission.String())
	} else {
		require.False(t, ledger.HasVaultEmissions())
	}
	if booster {
		require.Equal(t, "21", ledger.Get(day0, valA.Pubkey).Boosters[tokenX].String())
		require.Equal(t, "20", ledger.Get(day1, valB.Pubkey).Boosters[tokenY].String())
		require.Equal(t, []common.Address{tokenX, tokenY}, ledger.BoosterTokens())
	} else {
		require.Empty(t, ledger.BoosterTokens())
	}
	require.Len(t, ledger.Entries, 2)
}

func TestIndex(t *testing.T) {
	chain := clientapitest.NewFakeChain(1000, 0, 2)
	chain.Logs = testLogs(t)

	ix := NewIndexer(chain, distributor, 30, 4)
	ledger, err := ix.Index(context.Background(), testRanges, []model.Validator{valA, valB})
	require.NoError(t, err)
	requireLedger(t, ledger, true, true)

	require.LessOrEqual(t, ix.PeakInFlight(), 4)
	// 7 windows of 30 blocks per category
	require.Equal(t, int64(14), ix.Stats().Windows)
	require.Equal(t, int64(9), ix.Stats().Events)
	for _, q := range chain.LogQueries {
		require.GreaterOrEqual(t, q.FromBlock.Uint64(), uint64(100))
		require.LessOrEqual(t, q.ToBlock.Uint64(), uint64(299))
	}
}

func TestIndexSplitsLargeWindows(t *testing.T) {
	chain := clientapitest.NewFakeChain(1000, 0, 2)
	chain.Logs = testLogs(t)
	chain.FailLogs = func(q ethereum.FilterQuery) error {
		if q.ToBlock.Uint64()-q.FromBlock.Uint64()+1 > 25 {
			return errors.New("query returned more than 10000 results")
		}
		return nil
	}

	ix := NewIndexer(chain, distributor, 100, 2)
	ledger, err := ix.Index(context.Background(), testRanges, []model.Validator{valA, valB})
	require.NoError(t, err)
	requireLedger(t, ledger, true, true)
	require.Zero(t, ix.Stats().FailedWindows)
}

func TestIndexCategoryFailureIsIsolated(t *testing.T) {
	chain := clientapitest.NewFakeChain(1000, 0, 2)
	chain.Logs = testLogs(t)
	chain.FailLogs = func(q ethereum.FilterQuery) error {
		if len(q.Addresses) > 0 {
			return errors.New("connection refused")
		}
		return nil
	}

	ix := NewIndexer(chain, distributor, 50, 3)
	ledger, err := ix.Index(context.Background(), testRanges, []model.Validator{valA, valB})
	require.NoError(t, err)
	requireLedger(t, ledger, false, true)
	require.Equal(t, int64(4), ix.Stats().FailedWindows)
}

func TestIndexCancelled(t *testing.T) {
	chain := clientapitest.NewFakeChain(1000, 0, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewIndexer(chain, distributor, 10, 1).Index(ctx, testRanges, []model.Validator{valA})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecodeBooster(t *testing.T) {
	l := boosterLog(t, valA, common.HexToAddress("0xa1"), 120, tokenX, big.NewInt(42))
	token, amount, err := DecodeBooster(l)
	require.NoError(t, err)
	require.Equal(t, tokenX, token)
	require.Equal(t, int64(42), amount.Int64())

	l.Data = l.Data[:10]
	_, _, err = DecodeBooster(l)
	require.Error(t, err)
}
