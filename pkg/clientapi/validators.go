package clientapi

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/migalabs/valscore/pkg/model"
)

const validatorsPerPage = 100

// resultHeader is the part of the CometBFT `header` response we read.
type resultHeader struct {
	Header struct {
		Height          string `json:"height"`
		ProposerAddress string `json:"proposer_address"`
	} `json:"header"`
}

// resultValidators mirrors the CometBFT `validators` response. pub_key is kept raw.
type resultValidators struct {
	BlockHeight string `json:"block_height"`
	Validators  []struct {
		Address     string          `json:"address"`
		PubKey      json.RawMessage `json:"pub_key"`
		VotingPower string          `json:"voting_power"`
	} `json:"validators"`
	Count string `json:"count"`
	Total string `json:"total"`
}

// BlockProposer returns the consensus address (upper case hex) that proposed the block at number.
func (s *APIClient) BlockProposer(ctx context.Context, number uint64) (string, error) {
	height := int64(number)
	return callWithRetry(ctx, "cl_header", s.maxRetries, s.retryInterval, s.metrics,
		func() (string, error) {
			cctx, cancel := s.callCtx(ctx)
			defer cancel()
			var res resultHeader
			_, err := s.CLApi.Call(cctx, "header", map[string]interface{}{"height": height}, &res)
			if err != nil {
				return "", err
			}
			if res.Header.ProposerAddress == "" {
				return "", errors.Errorf("empty header at height %d", height)
			}
			return model.NormalizeProposer(res.Header.ProposerAddress), nil
		})
}

type validatorPage struct {
	validators []model.ValidatorPower
	total      int
}

// ValidatorSet returns the full consensus validator set at height number, following pagination
// until the reported total is reached.
func (s *APIClient) ValidatorSet(ctx context.Context, number uint64) ([]model.ValidatorPower, error) {
	height := int64(number)
	result := make([]model.ValidatorPower, 0)

	for page := 1; ; page++ {
		params := map[string]interface{}{
			"height":   height,
			"page":     page,
			"per_page": validatorsPerPage,
		}
		res, err := callWithRetry(ctx, "cl_validators", s.maxRetries, s.retryInterval, s.metrics,
			func() (validatorPage, error) {
				cctx, cancel := s.callCtx(ctx)
				defer cancel()
				var vals resultValidators
				if _, err := s.CLApi.Call(cctx, "validators", params, &vals); err != nil {
					return validatorPage{}, err
				}
				return vals.page()
			})
		if err != nil {
			return nil, errors.Wrapf(err, "unable to fetch validator set page %d at height %d", page, height)
		}
		result = append(result, res.validators...)
		if len(res.validators) == 0 || len(result) >= res.total {
			break
		}
	}
	return result, nil
}

func (r resultValidators) page() (validatorPage, error) {
	total, err := strconv.Atoi(r.Total)
	if err != nil {
		return validatorPage{}, errors.Wrapf(err, "invalid validators total %q", r.Total)
	}
	out := validatorPage{
		validators: make([]model.ValidatorPower, 0, len(r.Validators)),
		total:      total,
	}
	for _, v := range r.Validators {
		power, err := strconv.ParseInt(v.VotingPower, 10, 64)
		if err != nil {
			return validatorPage{}, errors.Wrapf(err, "invalid voting power of %s", v.Address)
		}
		out.validators = append(out.validators, model.ValidatorPower{
			Address:     v.Address,
			VotingPower: power,
		})
	}
	return out, nil
}
