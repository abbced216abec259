package events

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const (
	DistributedEvent = "Distributed"
	BoosterEvent     = "BGTBoosterIncentivesProcessed"
)

const rewardEventsABI = `[
	{"anonymous":false,"name":"Distributed","type":"event","inputs":[
		{"indexed":true,"name":"valPubkey","type":"bytes"},
		{"indexed":true,"name":"nextTimestamp","type":"uint64"},
		{"indexed":true,"name":"receiver","type":"address"},
		{"indexed":false,"name":"amount","type":"uint256"}]},
	{"anonymous":false,"name":"BGTBoosterIncentivesProcessed","type":"event","inputs":[
		{"indexed":true,"name":"pubkey","type":"bytes"},
		{"indexed":true,"name":"token","type":"address"},
		{"indexed":false,"name":"bgtEmitted","type":"uint256"},
		{"indexed":false,"name":"amount","type":"uint256"}]}
]`

var RewardEventsABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(rewardEventsABI))
	if err != nil {
		panic(err)
	}
	RewardEventsABI = parsed
}

// EventID returns the topic 0 of an event of RewardEventsABI.
func EventID(name string) common.Hash {
	return RewardEventsABI.Events[name].ID
}

// PubkeyTopic is the topic of an indexed bytes pubkey: its keccak256 hash.
func PubkeyTopic(pubkey []byte) common.Hash {
	return crypto.Keccak256Hash(pubkey)
}

// DecodeDistributed returns the BGT amount distributed to the validator vault.
func DecodeDistributed(l types.Log) (*big.Int, error) {
	if len(l.Topics) < 4 {
		return nil, errors.Errorf("unexpected %s topics length %d", DistributedEvent, len(l.Topics))
	}
	out, err := RewardEventsABI.Unpack(DistributedEvent, l.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to unpack %s", DistributedEvent)
	}
	amount, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("unexpected %s amount type %T", DistributedEvent, out[0])
	}
	return amount, nil
}

// DecodeBooster returns the incentive token and the amount routed through the validator.
func DecodeBooster(l types.Log) (common.Address, *big.Int, error) {
	if len(l.Topics) < 3 {
		return common.Address{}, nil, errors.Errorf("unexpected %s topics length %d", BoosterEvent, len(l.Topics))
	}
	out, err := RewardEventsABI.Unpack(BoosterEvent, l.Data)
	if err != nil {
		return common.Address{}, nil, errors.Wrapf(err, "unable to unpack %s", BoosterEvent)
	}
	amount, ok := out[1].(*big.Int)
	if !ok {
		return common.Address{}, nil, errors.Errorf("unexpected %s amount type %T", BoosterEvent, out[1])
	}
	return common.BytesToAddress(l.Topics[2].Bytes()), amount, nil
}
