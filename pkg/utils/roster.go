package utils

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/migalabs/valscore/pkg/model"
)

const rosterFields = 4

// ReadRosterFile reads the validator roster: consensusAddress,name,pubkey,operatorAddress per line.
// A header line and lines starting with # are skipped.
func ReadRosterFile(path string) ([]model.Validator, error) {
	log.Info("Reading validator roster from: ", path)
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open roster file")
	}
	defer file.Close()

	validators, err := ParseRoster(file)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse roster %s", path)
	}
	log.Infof("Read %d validators", len(validators))
	return validators, nil
}

func ParseRoster(r io.Reader) ([]model.Validator, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	validators := make([]model.Validator, 0)
	seen := make(map[string]struct{})
	line := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		// Skip header
		if line == 1 && isRosterHeader(fields) {
			continue
		}
		if len(fields) != rosterFields {
			return nil, errors.Errorf("line %d: expected %d fields (consensusAddress,name,pubkey,operator), got %d", line, rosterFields, len(fields))
		}

		operator := strings.TrimSpace(fields[3])
		if operator != "" && !common.IsHexAddress(operator) {
			return nil, errors.Errorf("line %d: invalid operator address %q", line, operator)
		}
		val := model.Validator{
			ConsensusAddress: strings.TrimSpace(fields[0]),
			Name:             strings.TrimSpace(fields[1]),
			Pubkey:           normalizePubkey(fields[2]),
			Operator:         common.HexToAddress(operator),
		}
		if val.ConsensusAddress == "" || val.Pubkey == "" {
			return nil, errors.Errorf("line %d: consensus address and pubkey are required", line)
		}
		if _, err := val.PubkeyBytes(); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if _, ok := seen[val.Pubkey]; ok {
			log.Warnf("duplicated pubkey %s in roster, keeping first entry", val.Pubkey)
			continue
		}
		seen[val.Pubkey] = struct{}{}
		validators = append(validators, val)
	}

	if len(validators) == 0 {
		return nil, model.ErrEmptyRoster
	}
	return validators, nil
}

func isRosterHeader(fields []string) bool {
	first := strings.ToLower(strings.TrimSpace(fields[0]))
	return strings.Contains(first, "address") || first == "name"
}

func normalizePubkey(key string) string {
	key = strings.Trim(strings.TrimSpace(key), "\"")
	key = strings.ToLower(key)
	if key != "" && !strings.HasPrefix(key, "0x") {
		key = "0x" + key
	}
	return key
}
