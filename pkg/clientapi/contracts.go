package clientapi

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const erc20MetadataABI = `[
	{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

const bgtBoostABI = `[
	{"inputs":[{"name":"pubkey","type":"bytes"}],"name":"boostees","outputs":[{"name":"","type":"uint128"}],"stateMutability":"view","type":"function"}
]`

var (
	ERC20ABI = mustParseABI(erc20MetadataABI)
	BGTABI   = mustParseABI(bgtBoostABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ContractCaller reads a contract at an optional historical block.
type ContractCaller interface {
	CallContract(ctx context.Context, to common.Address, data []byte, block *big.Int) ([]byte, error)
}

// readField packs method with args, calls it and returns the single decoded output.
func readField(ctx context.Context, c ContractCaller, contract abi.ABI, to common.Address, block *big.Int, method string, args ...interface{}) (interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to pack %s", method)
	}
	raw, err := c.CallContract(ctx, to, data, block)
	if err != nil {
		return nil, err
	}
	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to unpack %s from %s", method, to.Hex())
	}
	if len(out) != 1 {
		return nil, errors.Errorf("unexpected %s output length %d", method, len(out))
	}
	return out[0], nil
}

func ReadDecimals(ctx context.Context, c ContractCaller, token common.Address) (uint8, error) {
	v, err := readField(ctx, c, ERC20ABI, token, nil, "decimals")
	if err != nil {
		return 0, err
	}
	dec, ok := v.(uint8)
	if !ok {
		return 0, errors.Errorf("unexpected decimals type %T", v)
	}
	return dec, nil
}

// ReadName returns the token name, or its symbol when name() is not readable.
func ReadName(ctx context.Context, c ContractCaller, token common.Address) (string, error) {
	var lastErr error
	for _, method := range []string{"name", "symbol"} {
		v, err := readField(ctx, c, ERC20ABI, token, nil, method)
		if err != nil {
			lastErr = err
			continue
		}
		if name, ok := v.(string); ok && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name), nil
		}
	}
	if lastErr == nil {
		lastErr = errors.New("empty name and symbol")
	}
	return "", lastErr
}

// ReadBoost returns the BGT boost allocated to pubkey at block.
func ReadBoost(ctx context.Context, c ContractCaller, bgt common.Address, pubkey []byte, block uint64) (*big.Int, error) {
	v, err := readField(ctx, c, BGTABI, bgt, new(big.Int).SetUint64(block), "boostees", pubkey)
	if err != nil {
		return nil, err
	}
	boost, ok := v.(*big.Int)
	if !ok {
		return nil, errors.Errorf("unexpected boostees type %T", v)
	}
	return boost, nil
}
