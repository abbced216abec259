package clientapi

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/migalabs/valscore/pkg/model"
)

const (
	swapQuotePath  = "/v1/swap"
	noRouteStatus  = "noway"
	successStatus  = "success"
	quoteSlippage  = "0.01"
	maxQuoteBodyKB = 512
)

// PriceQuoter simulates swapping amount of tokenIn into tokenOut and returns the expected output
// amount in tokenOut base units. It returns model.ErrNoRoute when the swap cannot be routed.
type PriceQuoter interface {
	Quote(ctx context.Context, tokenIn, tokenOut common.Address, amount *big.Int) (*big.Int, error)
}

// PriceClient queries a swap aggregator quote endpoint.
type PriceClient struct {
	endpoint      string
	apiKey        string
	client        *http.Client
	maxRetries    uint
	retryInterval time.Duration
	metrics       *requestMetrics
}

func NewPriceClient(endpoint, apiKey string, timeout time.Duration, retries int) *PriceClient {
	if retries <= 0 {
		retries = int(defaultMaxRetries)
	}
	return &PriceClient{
		endpoint:      strings.TrimRight(endpoint, "/"),
		apiKey:        apiKey,
		client:        &http.Client{Timeout: timeout},
		maxRetries:    uint(retries),
		retryInterval: defaultRetryInterval,
		metrics:       newRequestMetrics(),
	}
}

type swapQuote struct {
	Status           string `json:"status"`
	AssumedAmountOut string `json:"assumedAmountOut"`
	Message          string `json:"message"`
}

func (p *PriceClient) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amount *big.Int) (*big.Int, error) {
	params := url.Values{}
	params.Set("tokenIn", tokenIn.Hex())
	params.Set("tokenOut", tokenOut.Hex())
	params.Set("amount", amount.String())
	params.Set("slippage", quoteSlippage)
	reqURL := p.endpoint + swapQuotePath + "?" + params.Encode()

	return callWithRetry(ctx, "price_quote", p.maxRetries, p.retryInterval, p.metrics,
		func() (*big.Int, error) {
			return p.doQuote(ctx, reqURL)
		})
}

func (p *PriceClient) doQuote(ctx context.Context, reqURL string) (*big.Int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxQuoteBodyKB*1024))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		if strings.Contains(strings.ToLower(string(body)), "no route") {
			return nil, model.ErrNoRoute
		}
		return nil, errors.Errorf("price service %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var quote swapQuote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, errors.Wrap(err, "unable to decode price quote")
	}
	switch strings.ToLower(quote.Status) {
	case noRouteStatus:
		return nil, model.ErrNoRoute
	case successStatus, "":
	default:
		return nil, errors.Errorf("price quote status %s: %s", quote.Status, quote.Message)
	}

	out, ok := new(big.Int).SetString(quote.AssumedAmountOut, 10)
	if !ok || out.Sign() <= 0 {
		return nil, model.ErrNoRoute
	}
	return out, nil
}
