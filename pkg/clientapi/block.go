package clientapi

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

var (
	blockNumTag string = "block="
)

func (s *APIClient) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return callWithRetry(ctx, "latest_block", s.maxRetries, s.retryInterval, s.metrics,
		func() (uint64, error) {
			cctx, cancel := s.callCtx(ctx)
			defer cancel()
			return s.ELApi.BlockNumber(cctx)
		})
}

// BlockTimestamp returns the unix timestamp of the execution block at number.
func (s *APIClient) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	routineKey := fmt.Sprintf("%s%d", blockNumTag, number)
	return callWithRetry(ctx, "block_header", s.maxRetries, s.retryInterval, s.metrics,
		func() (uint64, error) {
			cctx, cancel := s.callCtx(ctx)
			defer cancel()
			header, err := s.ELApi.HeaderByNumber(cctx, new(big.Int).SetUint64(number))
			if err != nil {
				return 0, err
			}
			if header == nil {
				return 0, errors.Errorf("header not found: %s", routineKey)
			}
			return header.Time, nil
		})
}

// BlockTxCount returns the number of transactions of a block without downloading its body.
func (s *APIClient) BlockTxCount(ctx context.Context, number uint64) (uint64, error) {
	return callWithRetry(ctx, "block_tx_count", s.maxRetries, s.retryInterval, s.metrics,
		func() (uint64, error) {
			cctx, cancel := s.callCtx(ctx)
			defer cancel()
			var count *hexutil.Uint
			err := s.rpcApi.CallContext(cctx, &count, "eth_getBlockTransactionCountByNumber", hexutil.EncodeUint64(number))
			if err != nil {
				return 0, err
			}
			if count == nil {
				return 0, errors.Errorf("block %d not found", number)
			}
			return uint64(*count), nil
		})
}

func (s *APIClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return callWithRetry(ctx, "filter_logs", s.maxRetries, s.retryInterval, s.metrics,
		func() ([]types.Log, error) {
			cctx, cancel := s.callCtx(ctx)
			defer cancel()
			return s.ELApi.FilterLogs(cctx, q)
		})
}

// CallContract performs an eth_call against to, at block (nil for latest).
func (s *APIClient) CallContract(ctx context.Context, to common.Address, data []byte, block *big.Int) ([]byte, error) {
	return callWithRetry(ctx, "eth_call", s.maxRetries, s.retryInterval, s.metrics,
		func() ([]byte, error) {
			cctx, cancel := s.callCtx(ctx)
			defer cancel()
			return s.ELApi.CallContract(cctx, ethereum.CallMsg{To: &to, Data: data}, block)
		})
}
