package events

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/migalabs/valscore/pkg/model"
	"github.com/migalabs/valscore/pkg/utils"
)

var (
	log = logrus.WithField(
		"module", "Events",
	)
	DefaultWindow  uint64 = 1000
	DefaultWorkers        = 16

	// substrings of node errors rejecting a log query for its size
	limitErrors = []string{"more than", "limit exceeded", "too many", "range too large", "block range"}
)

// LogSource is the part of the chain client the indexer needs.
type LogSource interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// category is one of the indexed event kinds and the way its logs are folded into a ledger.
type category struct {
	name      string
	eventID   common.Hash
	addresses []common.Address
	fold      func(ledger *model.Ledger, d model.Day, pubkey string, l types.Log) error
}

type Stats struct {
	Windows       int64
	FailedWindows int64
	Events        int64
	Undecodable   int64
}

// Indexer aggregates the vault emissions and booster incentives of the tracked validators.
type Indexer struct {
	cli         LogSource
	distributor common.Address
	window      uint64
	book        *utils.RoutineBook

	windows     atomic.Int64
	failed      atomic.Int64
	events      atomic.Int64
	undecodable atomic.Int64
}

func NewIndexer(cli LogSource, distributor common.Address, window uint64, workers int) *Indexer {
	if window == 0 {
		window = DefaultWindow
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Indexer{
		cli:         cli,
		distributor: distributor,
		window:      window,
		book:        utils.NewRoutineBook(workers, "log-windows"),
	}
}

func (ix *Indexer) Stats() Stats {
	return Stats{
		Windows:       ix.windows.Load(),
		FailedWindows: ix.failed.Load(),
		Events:        ix.events.Load(),
		Undecodable:   ix.undecodable.Load(),
	}
}

// PeakInFlight returns the highest number of concurrent window queries.
func (ix *Indexer) PeakInFlight() int {
	return ix.book.Peak()
}

// topicLookup maps the hashed pubkey topics back to the roster pubkeys.
type topicLookup struct {
	pubkeys map[common.Hash]string
	topics  []common.Hash
}

func newTopicLookup(validators []model.Validator) (topicLookup, error) {
	lookup := topicLookup{
		pubkeys: make(map[common.Hash]string, len(validators)),
		topics:  make([]common.Hash, 0, len(validators)),
	}
	for _, v := range validators {
		key, err := v.PubkeyBytes()
		if err != nil {
			return topicLookup{}, err
		}
		topic := PubkeyTopic(key)
		if _, ok := lookup.pubkeys[topic]; ok {
			continue
		}
		lookup.pubkeys[topic] = v.Pubkey
		lookup.topics = append(lookup.topics, topic)
	}
	return lookup, nil
}

func (ix *Indexer) categories() []category {
	return []category{
		{
			name:      "vault",
			eventID:   EventID(DistributedEvent),
			addresses: []common.Address{ix.distributor},
			fold: func(ledger *model.Ledger, d model.Day, pubkey string, l types.Log) error {
				amount, err := DecodeDistributed(l)
				if err != nil {
					return err
				}
				ledger.AddVaultEmission(d, pubkey, amount)
				return nil
			},
		},
		{
			name:    "booster",
			eventID: EventID(BoosterEvent),
			fold: func(ledger *model.Ledger, d model.Day, pubkey string, l types.Log) error {
				token, amount, err := DecodeBooster(l)
				if err != nil {
					return err
				}
				ledger.AddBooster(d, pubkey, token, amount)
				return nil
			},
		},
	}
}

// Index scans both event kinds over the whole span of ranges in fixed windows. A category
// failing as a whole is logged and leaves the other one untouched.
func (ix *Indexer) Index(ctx context.Context, ranges model.DayRanges, validators []model.Validator) (*model.Ledger, error) {
	ledger := model.NewLedger()
	if len(ranges) == 0 || len(validators) == 0 {
		return ledger, nil
	}
	lookup, err := newTopicLookup(validators)
	if err != nil {
		return nil, err
	}
	start, end := ranges.Span()
	windows := utils.SplitRange(start, end, ix.window)
	log.Infof("indexing reward events over blocks %d:%d in %d windows", start, end, len(windows))

	for _, cat := range ix.categories() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		initTime := time.Now()
		partial, err := ix.indexCategory(ctx, cat, windows, lookup, ranges)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Errorf("unable to index %s events: %s", cat.name, err)
			continue
		}
		ledger.Merge(partial)
		log.Infof("%s events indexed in %s", cat.name, time.Since(initTime))
	}
	return ledger, nil
}

// indexCategory queries every window with at most book.Size() queries in flight. Each window is
// folded into its own ledger and handed to a single collector, the only writer of the result.
func (ix *Indexer) indexCategory(ctx context.Context, cat category, windows []utils.BlockRange, lookup topicLookup, ranges model.DayRanges) (*model.Ledger, error) {
	result := model.NewLedger()
	partials := make(chan *model.Ledger, ix.book.Size())
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for partial := range partials {
			result.Merge(partial)
		}
	}()

	var wg sync.WaitGroup
	var failed atomic.Int64
	var acquireErr error
	for _, w := range windows {
		key := fmt.Sprintf("%s-%s", cat.name, w)
		if err := ix.book.Acquire(ctx, key); err != nil {
			acquireErr = err
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer ix.book.FreePage(key)
			ix.windows.Add(1)

			logs, err := ix.queryWindow(ctx, cat, w, lookup.topics)
			if err != nil {
				log.Warnf("dropping %s window %s: %s", cat.name, w, err)
				failed.Add(1)
				ix.failed.Add(1)
				return
			}
			partials <- ix.foldWindow(cat, logs, lookup, ranges)
		}()
	}
	wg.Wait()
	close(partials)
	<-collected

	if acquireErr != nil {
		return nil, acquireErr
	}
	if n := failed.Load(); n > 0 && int(n) == len(windows) {
		return nil, errors.Errorf("all %d windows failed", n)
	}
	return result, nil
}

func (ix *Indexer) foldWindow(cat category, logs []types.Log, lookup topicLookup, ranges model.DayRanges) *model.Ledger {
	partial := model.NewLedger()
	for _, l := range logs {
		if l.Removed || len(l.Topics) < 2 || l.Topics[0] != cat.eventID {
			continue
		}
		pubkey, ok := lookup.pubkeys[l.Topics[1]]
		if !ok {
			continue
		}
		d, ok := ranges.DayOf(l.BlockNumber)
		if !ok {
			continue
		}
		if err := cat.fold(partial, d, pubkey, l); err != nil {
			log.Debugf("skipping %s log at block %d tx %s: %s", cat.name, l.BlockNumber, l.TxHash.Hex(), err)
			ix.undecodable.Add(1)
			continue
		}
		ix.events.Add(1)
	}
	return partial
}

// queryWindow fetches the logs of w, halving the window while the node rejects it for its size.
func (ix *Indexer) queryWindow(ctx context.Context, cat category, w utils.BlockRange, topics []common.Hash) ([]types.Log, error) {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(w.Start),
		ToBlock:   new(big.Int).SetUint64(w.End),
		Addresses: cat.addresses,
		Topics:    [][]common.Hash{{cat.eventID}, topics},
	}
	logs, err := ix.cli.FilterLogs(ctx, q)
	if err == nil {
		return logs, nil
	}
	if w.Len() <= 1 || !isLimitError(err) {
		return nil, err
	}
	mid := w.Start + w.Len()/2 - 1
	log.Debugf("splitting %s window %s at %d: %s", cat.name, w, mid, err)
	first, err := ix.queryWindow(ctx, cat, utils.BlockRange{Start: w.Start, End: mid}, topics)
	if err != nil {
		return nil, err
	}
	second, err := ix.queryWindow(ctx, cat, utils.BlockRange{Start: mid + 1, End: w.End}, topics)
	if err != nil {
		return nil, err
	}
	return append(first, second...), nil
}

func isLimitError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range limitErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
