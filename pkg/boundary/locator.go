package boundary

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/migalabs/valscore/pkg/model"
)

var (
	modName = "Boundary"
	log     = logrus.WithField(
		"module", modName,
	)
	DefaultMaxAttempts = 200
)

// BlockTimer is the part of the chain client the locator needs.
type BlockTimer interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// Locator resolves, for each date, the first block whose timestamp is >= the date's midnight UTC.
type Locator struct {
	cli          BlockTimer
	genesisTs    uint64
	interval     uint64
	blocksPerDay uint64
	maxAttempts  int

	// timestamps already fetched during this run
	timestamps map[uint64]uint64
	probes     int
}

type LocatorOption func(*Locator)

func WithMaxAttempts(n int) LocatorOption {
	return func(l *Locator) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// NewLocator builds a locator. A genesisTs of 0 is resolved from block 1 on the first search.
func NewLocator(cli BlockTimer, genesisTs, interval uint64, opts ...LocatorOption) *Locator {
	if interval == 0 {
		interval = 1
	}
	l := &Locator{
		cli:          cli,
		genesisTs:    genesisTs,
		interval:     interval,
		blocksPerDay: uint64(24*time.Hour/time.Second) / interval,
		maxAttempts:  DefaultMaxAttempts,
		timestamps:   make(map[uint64]uint64),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Probes returns the number of timestamps fetched from the chain so far.
func (l *Locator) Probes() int {
	return l.probes
}

func (l *Locator) timestamp(ctx context.Context, block uint64) (uint64, error) {
	if ts, ok := l.timestamps[block]; ok {
		return ts, nil
	}
	ts, err := l.cli.BlockTimestamp(ctx, block)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to read timestamp of block %d", block)
	}
	l.probes++
	l.timestamps[block] = ts
	return ts, nil
}

// Locate resolves the boundary block of every date. dates must be sorted oldest first; the last
// one only closes the range of the previous date. Dates are resolved sequentially since each
// search is seeded with the previous result.
func (l *Locator) Locate(ctx context.Context, dates []model.Day) ([]model.DayBoundary, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	latest, err := l.cli.LatestBlockNumber(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read latest block")
	}
	latestTs, err := l.timestamp(ctx, latest)
	if err != nil {
		return nil, err
	}
	if l.genesisTs == 0 {
		ts, err := l.timestamp(ctx, 1)
		if err != nil {
			return nil, errors.Wrap(err, "unable to resolve genesis timestamp")
		}
		// block 1 is one interval after genesis
		l.genesisTs = ts - min(ts, l.interval)
	}

	boundaries := make([]model.DayBoundary, 0, len(dates))
	for i, d := range dates {
		if i > 0 && !d.After(dates[i-1].Time) {
			return nil, errors.Errorf("dates must be strictly increasing, got %s after %s", d, dates[i-1])
		}
		target := d.Midnight()
		if latestTs < target {
			if i == len(dates)-1 {
				return nil, errors.Wrapf(model.ErrNoNextBoundary,
					"latest block %d (ts %d) is before %s", latest, latestTs, d)
			}
			return nil, errors.Wrapf(model.ErrNoBoundary, "date %s is after the latest block %d", d, latest)
		}

		var seed uint64
		if i == 0 {
			seed = l.estimate(target)
		} else {
			seed = boundaries[i-1].Block + l.blocksPerDay
		}

		block, err := l.search(ctx, d, seed, latest)
		if err != nil {
			return nil, err
		}
		log.Debugf("date %s starts at block %d", d, block)
		boundaries = append(boundaries, model.DayBoundary{Date: d, Block: block})
	}
	return boundaries, nil
}

func (l *Locator) estimate(target uint64) uint64 {
	if target <= l.genesisTs {
		return 1
	}
	return (target - l.genesisTs) / l.interval
}

// search probes candidate blocks until one straddles target. lo and hi keep the tightest known
// bracket (ts(lo) < target <= ts(hi)); a directed jump leaving it falls back to bisection.
func (l *Locator) search(ctx context.Context, d model.Day, seed, latest uint64) (uint64, error) {
	target := d.Midnight()
	lo, hi := uint64(0), latest
	candidate := clamp(seed, 1, latest)

	for attempt := 0; attempt < l.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		ts, err := l.timestamp(ctx, candidate)
		if err != nil {
			return 0, err
		}
		prevTs, err := l.timestamp(ctx, candidate-1)
		if err != nil {
			return 0, err
		}

		if prevTs < target && ts >= target {
			return candidate, nil
		}

		var next uint64
		if ts < target {
			lo = max(lo, candidate)
			next = candidate + ceilDiv(target-ts, l.interval)
		} else {
			if candidate == 1 {
				return 0, errors.Wrapf(model.ErrNoBoundary, "date %s is before genesis", d)
			}
			hi = min(hi, candidate-1)
			next = candidate - min(candidate, ceilDiv(ts-target, l.interval))
		}
		if lo >= hi {
			return 0, errors.Wrapf(model.ErrNoBoundary, "empty search bracket [%d, %d] for date %s", lo, hi, d)
		}
		if next <= lo || next > hi {
			next = lo + (hi-lo+1)/2
		}
		candidate = clamp(next, 1, latest)
	}
	return 0, errors.Wrapf(model.ErrNoBoundary, "date %s after %d attempts", d, l.maxAttempts)
}

func ceilDiv(a, b uint64) uint64 {
	q := (a + b - 1) / b
	if q == 0 {
		return 1
	}
	return q
}

func clamp(v, lo, hi uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
