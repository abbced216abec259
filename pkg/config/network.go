package config

import (
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Network holds the chain specific constants of a scoring run.
type Network struct {
	Name string `yaml:"name"`
	// contract emitting the protocol-to-vault Distributed events
	Distributor common.Address `yaml:"distributor"`
	// vault emission token, also the boost source (boostees)
	BGT common.Address `yaml:"bgt"`
	// wrapped native asset, BGT is priced through it
	WrappedNative common.Address `yaml:"wrapped-native"`
	// USD pegged reference token
	ReferenceToken         common.Address `yaml:"reference-token"`
	ReferenceTokenDecimals uint8          `yaml:"reference-token-decimals"`
	// 0 means the timestamp of block 1 is requested
	GenesisTimestamp uint64 `yaml:"genesis-timestamp"`
	BlockInterval    uint64 `yaml:"block-interval-seconds"`
	// decimals of the CL voting power (gwei)
	StakeDecimals uint8 `yaml:"stake-decimals"`
	BoostDecimals uint8 `yaml:"boost-decimals"`
}

var Networks = map[string]Network{
	"mainnet": {
		Name:                   "mainnet",
		Distributor:            common.HexToAddress("0xD2f19a79b026Fb636A7c300bF5947df113940761"),
		BGT:                    common.HexToAddress("0x656b95E550C07a9ffe548bd4085c72418Ceb1dba"),
		WrappedNative:          common.HexToAddress("0x6969696969696969696969696969696969696969"),
		ReferenceToken:         common.HexToAddress("0xFCBD14DC51f0A4d49d5E53C2E0950e0bC26d0Dce"),
		ReferenceTokenDecimals: 18,
		BlockInterval:          2,
		StakeDecimals:          9,
		BoostDecimals:          18,
	},
}

// LoadNetwork returns a built-in profile by name or reads a YAML profile from a file path.
func LoadNetwork(nameOrPath string) (Network, error) {
	if n, ok := Networks[nameOrPath]; ok {
		return n, nil
	}
	raw, err := os.ReadFile(nameOrPath)
	if err != nil {
		return Network{}, errors.Wrapf(err, "unknown network %q and unable to read it as a profile file", nameOrPath)
	}
	return ParseNetwork(raw)
}

func ParseNetwork(raw []byte) (Network, error) {
	// unset fields fall back to mainnet
	n := Networks["mainnet"]
	if err := yaml.Unmarshal(raw, &n); err != nil {
		return Network{}, errors.Wrap(err, "unable to parse network profile")
	}
	if err := n.Validate(); err != nil {
		return Network{}, err
	}
	return n, nil
}

func (n Network) Validate() error {
	empty := common.Address{}
	if n.Distributor == empty || n.BGT == empty || n.WrappedNative == empty || n.ReferenceToken == empty {
		return errors.Errorf("network %s: distributor, bgt, wrapped-native and reference-token are required", n.Name)
	}
	if n.BlockInterval == 0 {
		return errors.Errorf("network %s: block interval cannot be 0", n.Name)
	}
	return nil
}
