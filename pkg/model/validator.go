package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// Validator is one roster entry. It is loaded once and passed by value.
type Validator struct {
	Name             string
	ConsensusAddress string // CometBFT address, the block proposer identity
	Pubkey           string // hex encoded consensus pubkey
	Operator         common.Address
}

// ProposerKey returns the consensus address in the form the CL reports proposers:
// upper case hex without the 0x prefix.
func (v Validator) ProposerKey() string {
	return NormalizeProposer(v.ConsensusAddress)
}

// PubkeyBytes decodes the hex pubkey.
func (v Validator) PubkeyBytes() ([]byte, error) {
	key := v.Pubkey
	if !strings.HasPrefix(key, "0x") && !strings.HasPrefix(key, "0X") {
		key = "0x" + key
	}
	b, err := hexutil.Decode(key)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid pubkey for validator %s", v.Name)
	}
	return b, nil
}

func NormalizeProposer(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	return strings.ToUpper(addr)
}

// ValidatorPower is one entry of the consensus validator set at a given height.
type ValidatorPower struct {
	Address     string
	VotingPower int64
}
