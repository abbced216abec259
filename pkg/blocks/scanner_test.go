package blocks

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/migalabs/valscore/pkg/clientapi/clientapitest"
	"github.com/migalabs/valscore/pkg/model"
)

var (
	valA = model.Validator{Name: "a", ConsensusAddress: "0xaaaa"}
	valB = model.Validator{Name: "b", ConsensusAddress: "bbbb"}
)

// testChain alternates proposers: A on multiples of 3, B on multiples of 3 plus 1, untracked otherwise.
// Every 5th block carries a single tx, every 7th block carries none.
func testChain(latest uint64) *clientapitest.FakeChain {
	chain := clientapitest.NewFakeChain(latest, 0, 2)
	for b := uint64(0); b <= latest; b++ {
		switch b % 3 {
		case 0:
			chain.Proposers[b] = "AAAA"
		case 1:
			chain.Proposers[b] = "BBBB"
		default:
			chain.Proposers[b] = "CCCC"
		}
		switch {
		case b%7 == 0:
			chain.TxCounts[b] = 0
		case b%5 == 0:
			chain.TxCounts[b] = 1
		default:
			chain.TxCounts[b] = 10
		}
	}
	return chain
}

func expected(chain *clientapitest.FakeChain, start, end, threshold uint64) model.Attribution {
	out := make(model.Attribution)
	for b := start; b <= end; b++ {
		p := chain.Proposers[b]
		if p == "CCCC" {
			continue
		}
		out.Add(p, b, chain.TxCounts[b] <= threshold)
	}
	return out
}

func TestScan(t *testing.T) {
	tests := []struct {
		name      string
		workers   int
		chunk     uint64
		threshold uint64
		start     uint64
		end       uint64
	}{
		{name: "single worker", workers: 1, chunk: 200, threshold: 1, start: 0, end: 999},
		{name: "many workers", workers: 7, chunk: 37, threshold: 1, start: 10, end: 1010},
		{name: "zero threshold", workers: 3, chunk: 50, threshold: 0, start: 5, end: 600},
		{name: "single block", workers: 4, chunk: 200, threshold: 1, start: 42, end: 42},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			chain := testChain(1100)
			s := NewScanner(chain, test.workers, test.chunk, test.threshold)
			got, err := s.Scan(context.Background(), test.start, test.end, []model.Validator{valA, valB})
			require.NoError(t, err)
			require.Equal(t, expected(chain, test.start, test.end, test.threshold), got)
			require.Equal(t, test.end-test.start+1, s.Scanned())
			require.Zero(t, s.Skipped())
		})
	}
}

func TestScanSkipsUntrackedBodies(t *testing.T) {
	chain := testChain(300)
	_, err := NewScanner(chain, 2, 50, 1).Scan(context.Background(), 0, 300, []model.Validator{valA})
	require.NoError(t, err)
	for b := uint64(0); b <= 300; b++ {
		require.Equal(t, b%3 == 0, chain.TxCountCalled(b), "block %d", b)
	}
}

func TestScanSkipsFailingBlocks(t *testing.T) {
	chain := testChain(300)
	chain.FailProposer[3] = errors.New("connection reset")
	chain.FailTxCount[6] = errors.New("connection reset")

	s := NewScanner(chain, 2, 50, 1)
	got, err := s.Scan(context.Background(), 0, 300, []model.Validator{valA, valB})
	require.NoError(t, err)
	require.Equal(t, uint64(2), s.Skipped())

	blocks := got["AAAA"].Blocks
	require.NotContains(t, blocks, uint64(3))
	require.NotContains(t, blocks, uint64(6))
	require.Contains(t, blocks, uint64(9))
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScanner(testChain(100), 2, 10, 1).Scan(ctx, 0, 100, []model.Validator{valA})
	require.ErrorIs(t, err, context.Canceled)
}
