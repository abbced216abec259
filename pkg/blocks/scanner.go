package blocks

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/migalabs/valscore/pkg/model"
	"github.com/migalabs/valscore/pkg/utils"
)

var (
	modName = "Blocks"
	log     = logrus.WithField(
		"module", modName,
	)
	DefaultChunkSize      uint64 = 200
	DefaultEmptyThreshold uint64 = 1
)

// BlockSource is the part of the chain client the scanner needs.
type BlockSource interface {
	BlockProposer(ctx context.Context, number uint64) (string, error)
	BlockTxCount(ctx context.Context, number uint64) (uint64, error)
}

// Scanner attributes blocks to the tracked proposers and flags the empty ones.
type Scanner struct {
	cli            BlockSource
	chunkSize      uint64
	workers        int
	emptyThreshold uint64

	scanned atomic.Uint64
	skipped atomic.Uint64
}

func NewScanner(cli BlockSource, workers int, chunkSize, emptyThreshold uint64) *Scanner {
	if workers <= 0 {
		workers = 1
	}
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	return &Scanner{
		cli:            cli,
		chunkSize:      chunkSize,
		workers:        workers,
		emptyThreshold: emptyThreshold,
	}
}

// Scanned returns the number of blocks whose proposer was resolved.
func (s *Scanner) Scanned() uint64 {
	return s.scanned.Load()
}

// Skipped returns the number of blocks dropped after a failing request.
func (s *Scanner) Skipped() uint64 {
	return s.skipped.Load()
}

// Scan resolves the proposer of every block in [start, end]. Chunks are processed in waves of
// the worker count; each chunk fills its own partial attribution, merged once the wave is done.
func (s *Scanner) Scan(ctx context.Context, start, end uint64, validators []model.Validator) (model.Attribution, error) {
	tracked := make(map[string]struct{}, len(validators))
	for _, v := range validators {
		tracked[v.ProposerKey()] = struct{}{}
	}

	chunks := utils.SplitRange(start, end, s.chunkSize)
	waves := utils.Waves(chunks, s.workers)
	log.Infof("scanning blocks %d:%d in %d chunks (%d waves)", start, end, len(chunks), len(waves))

	pool := pond.NewPool(s.workers, pond.WithQueueSize(s.workers))
	defer pool.StopAndWait()

	result := make(model.Attribution)
	initTime := time.Now()
	for i, wave := range waves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		partials := make([]model.Attribution, len(wave))
		group := pool.NewGroupContext(ctx)
		for j, chunk := range wave {
			group.Submit(func() {
				partials[j] = s.scanChunk(ctx, chunk, tracked)
			})
		}
		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
			return nil, errors.Wrap(err, "block scan wave failed")
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, partial := range partials {
			result.Merge(partial)
		}
		log.WithFields(logrus.Fields{
			"wave":    i + 1,
			"waves":   len(waves),
			"scanned": s.Scanned(),
			"skipped": s.Skipped(),
		}).Debugf("wave finished in %s", time.Since(initTime))
	}
	return result, nil
}

// scanChunk sequentially resolves each block of the chunk. Only blocks of tracked proposers get
// their transaction count requested.
func (s *Scanner) scanChunk(ctx context.Context, chunk utils.BlockRange, tracked map[string]struct{}) model.Attribution {
	partial := make(model.Attribution)
	for block := chunk.Start; block <= chunk.End; block++ {
		if ctx.Err() != nil {
			return partial
		}
		proposer, err := s.cli.BlockProposer(ctx, block)
		if err != nil {
			log.Warnf("skipping block %d: unable to read proposer: %s", block, err)
			s.skipped.Add(1)
			continue
		}
		s.scanned.Add(1)
		if _, ok := tracked[proposer]; !ok {
			continue
		}
		txCount, err := s.cli.BlockTxCount(ctx, block)
		if err != nil {
			log.Warnf("skipping block %d: unable to read tx count: %s", block, err)
			s.skipped.Add(1)
			continue
		}
		partial.Add(proposer, block, txCount <= s.emptyThreshold)
	}
	return partial
}
