package valuation

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/migalabs/valscore/pkg/clientapi"
	"github.com/migalabs/valscore/pkg/model"
)

var (
	modName = "Valuation"
	log     = logrus.WithField(
		"module", modName,
	)
	defaultDecimals uint8 = 18
	resolveWorkers        = 4
	fallbackRate          = 1.0
)

// Tokens are the addresses the engine prices specially.
type Tokens struct {
	BGT               common.Address // vault emission token
	WrappedNative     common.Address // BGT is quoted through it
	Reference         common.Address // USD pegged quote token
	ReferenceDecimals uint8
}

// Engine resolves token metadata and rates and values the indexed ledger in USD.
type Engine struct {
	caller clientapi.ContractCaller
	quoter clientapi.PriceQuoter
	cache  *TokenCache
	tokens Tokens
}

func NewEngine(caller clientapi.ContractCaller, quoter clientapi.PriceQuoter, cache *TokenCache, tokens Tokens) *Engine {
	if cache == nil {
		cache = NewTokenCache()
	}
	return &Engine{
		caller: caller,
		quoter: quoter,
		cache:  cache,
		tokens: tokens,
	}
}

// Value returns the USD figures of every ledger entry and the metadata of every token involved,
// the vault emission token included.
func (e *Engine) Value(ctx context.Context, ledger *model.Ledger) (model.Valuations, map[common.Address]model.TokenMeta, error) {
	tokens := append([]common.Address{e.tokens.BGT}, ledger.BoosterTokens()...)
	metas, err := e.ResolveAll(ctx, tokens)
	if err != nil {
		return nil, nil, err
	}

	valuations := make(model.Valuations)
	bgtMeta := metas[e.tokens.BGT]
	for d, day := range ledger.Entries {
		for pubkey, entry := range day {
			vault := usdValue(entry.VaultEmission, bgtMeta)
			booster := decimal.Zero
			for token, amount := range entry.Boosters {
				booster = booster.Add(usdValue(amount, metas[token]))
			}
			valuations.Set(d, pubkey, model.DailyValuation{
				VaultUSD:   vault.InexactFloat64(),
				BoosterUSD: booster.InexactFloat64(),
				TotalUSD:   vault.Add(booster).InexactFloat64(),
			})
		}
	}
	return valuations, metas, nil
}

// ResolveAll resolves the metadata of tokens concurrently. Per token failures fall back to
// defaults and never fail the batch.
func (e *Engine) ResolveAll(ctx context.Context, tokens []common.Address) (map[common.Address]model.TokenMeta, error) {
	pool := pond.NewPool(resolveWorkers)
	defer pool.StopAndWait()

	resolved := make([]model.TokenMeta, len(tokens))
	group := pool.NewGroupContext(ctx)
	for i, token := range tokens {
		group.Submit(func() {
			resolved[i] = e.Resolve(ctx, token)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, pond.ErrGroupStopped) {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metas := make(map[common.Address]model.TokenMeta, len(tokens))
	for _, meta := range resolved {
		metas[meta.Address] = meta
	}
	return metas, nil
}

// Resolve returns the cached metadata of token, reading whatever is missing.
func (e *Engine) Resolve(ctx context.Context, token common.Address) model.TokenMeta {
	meta := model.TokenMeta{
		Address:  token,
		Decimals: e.decimals(ctx, token),
		Name:     e.name(ctx, token),
	}
	rate := e.rate(ctx, token, meta.Decimals)
	meta.Rate = rate.Value
	meta.Priced = rate.Priced
	return meta
}

func (e *Engine) decimals(ctx context.Context, token common.Address) uint8 {
	if dec, ok := e.cache.Decimals(token); ok {
		return dec
	}
	dec, err := clientapi.ReadDecimals(ctx, e.caller, token)
	if err != nil {
		log.Warnf("unable to read decimals of %s, using %d: %s", token.Hex(), defaultDecimals, err)
		dec = defaultDecimals
	}
	e.cache.SetDecimals(token, dec)
	return dec
}

func (e *Engine) name(ctx context.Context, token common.Address) string {
	if name, ok := e.cache.Name(token); ok {
		return name
	}
	name, err := clientapi.ReadName(ctx, e.caller, token)
	if err != nil {
		log.Debugf("unable to read name of %s: %s", token.Hex(), err)
		name = ShortAddress(token)
	}
	e.cache.SetName(token, name)
	return name
}

// rate quotes one whole token against the reference token. The reference token is worth
// exactly 1 and BGT is quoted through the wrapped native token it redeems to.
func (e *Engine) rate(ctx context.Context, token common.Address, decimals uint8) Rate {
	if r, ok := e.cache.Rate(token); ok {
		return r
	}
	if token == e.tokens.Reference {
		r := Rate{Value: 1, Priced: true}
		e.cache.SetRate(token, r)
		return r
	}

	quoted := token
	if token == e.tokens.BGT {
		quoted = e.tokens.WrappedNative
	}
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	out, err := e.quoter.Quote(ctx, quoted, e.tokens.Reference, unit)
	if err != nil {
		if ctx.Err() != nil {
			return Rate{Value: fallbackRate}
		}
		if errors.Is(err, model.ErrNoRoute) {
			log.Warnf("no price route for %s, valuing it at %.1f USD", token.Hex(), fallbackRate)
		} else {
			log.Warnf("unable to price %s, valuing it at %.1f USD: %s", token.Hex(), fallbackRate, err)
		}
		r := Rate{Value: fallbackRate}
		e.cache.SetRate(token, r)
		return r
	}

	r := Rate{
		Value:  HumanAmount(out, e.tokens.ReferenceDecimals).InexactFloat64(),
		Priced: true,
	}
	e.cache.SetRate(token, r)
	log.Debugf("%s priced at %f USD", token.Hex(), r.Value)
	return r
}

// ShortAddress renders an address as 0x1234...abcd.
func ShortAddress(a common.Address) string {
	hex := a.Hex()
	return fmt.Sprintf("%s...%s", hex[:6], hex[len(hex)-4:])
}

// Unpriced returns the tokens valued with the fallback rate, sorted by name.
func Unpriced(metas map[common.Address]model.TokenMeta) []model.TokenMeta {
	out := make([]model.TokenMeta, 0)
	for _, meta := range metas {
		if !meta.Priced {
			out = append(out, meta)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
