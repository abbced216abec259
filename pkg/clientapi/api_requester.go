package clientapi

import (
	"context"
	"math/big"
	"net/http"
	"time"

	cmtrpc "github.com/cometbft/cometbft/rpc/jsonrpc/client"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/migalabs/valscore/pkg/model"
)

var (
	moduleName = "API-Cli"
	log        = logrus.WithField(
		"module", moduleName)
)

// ChainClient is the read-only view of the chain used by the scoring phases.
type ChainClient interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	BlockTxCount(ctx context.Context, number uint64) (uint64, error)
	BlockProposer(ctx context.Context, number uint64) (string, error)
	ValidatorSet(ctx context.Context, number uint64) ([]model.ValidatorPower, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	CallContract(ctx context.Context, to common.Address, data []byte, block *big.Int) ([]byte, error)
}

// APIClient talks to the execution layer over JSON-RPC and to the consensus layer over the
// CometBFT RPC. Every request is retried on transient failures.
type APIClient struct {
	ctx    context.Context
	ELApi  *ethclient.Client
	rpcApi *rpc.Client
	CLApi  *cmtrpc.Client

	timeout       time.Duration
	maxRetries    uint
	retryInterval time.Duration
	metrics       *requestMetrics
}

type APIClientOption func(*APIClient) error

func WithTimeout(timeout time.Duration) APIClientOption {
	return func(s *APIClient) error {
		s.timeout = timeout
		return nil
	}
}

func WithMaxRetries(retries int) APIClientOption {
	return func(s *APIClient) error {
		if retries <= 0 {
			return errors.Errorf("max retries must be greater than 0, got %d", retries)
		}
		s.maxRetries = uint(retries)
		return nil
	}
}

func WithRetryInterval(interval time.Duration) APIClientOption {
	return func(s *APIClient) error {
		s.retryInterval = interval
		return nil
	}
}

func NewAPIClient(ctx context.Context, elEndpoint, clEndpoint string, options ...APIClientOption) (*APIClient, error) {
	client := &APIClient{
		ctx:           ctx,
		timeout:       30 * time.Second,
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
		metrics:       newRequestMetrics(),
	}
	for _, opt := range options {
		if err := opt(client); err != nil {
			return nil, err
		}
	}

	log.Debugf("generating execution client at %s", elEndpoint)
	rpcCli, err := rpc.DialContext(ctx, elEndpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to dial execution endpoint %s", elEndpoint)
	}
	client.rpcApi = rpcCli
	client.ELApi = ethclient.NewClient(rpcCli)

	log.Debugf("generating consensus client at %s", clEndpoint)
	// plain JSON-RPC: validator keys are BLS12-381, which the cometbft type registry cannot decode
	clCli, err := cmtrpc.NewWithHTTPClient(clEndpoint, &http.Client{Timeout: client.timeout})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create consensus client at %s", clEndpoint)
	}
	client.CLApi = clCli

	return client, nil
}

func (s *APIClient) Close() {
	if s.ELApi != nil {
		s.ELApi.Close()
	}
}

// callCtx bounds a single attempt with the client timeout.
func (s *APIClient) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
