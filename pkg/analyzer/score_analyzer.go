package analyzer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/migalabs/valscore/pkg/blocks"
	"github.com/migalabs/valscore/pkg/boundary"
	"github.com/migalabs/valscore/pkg/clientapi"
	"github.com/migalabs/valscore/pkg/config"
	"github.com/migalabs/valscore/pkg/events"
	prom_metrics "github.com/migalabs/valscore/pkg/metrics"
	"github.com/migalabs/valscore/pkg/model"
	"github.com/migalabs/valscore/pkg/report"
	"github.com/migalabs/valscore/pkg/scoring"
	"github.com/migalabs/valscore/pkg/snapshot"
	"github.com/migalabs/valscore/pkg/utils"
	"github.com/migalabs/valscore/pkg/valuation"
)

var (
	log = logrus.WithField(
		"module", "analyzer",
	)
)

const (
	phaseRoster     = "roster"
	phaseBoundaries = "boundaries"
	phaseScan       = "scan"
	phaseSnapshots  = "snapshots"
	phaseIndexing   = "indexing"
	phaseValuation  = "valuation"
	phaseScoring    = "scoring"
	phaseReport     = "report"
)

// Result is everything a scoring run produced.
type Result struct {
	Dates       []model.Day
	Boundaries  []model.DayBoundary
	Ranges      model.DayRanges
	Attribution map[model.Day]model.Attribution
	Snapshots   model.Snapshots
	Ledger      *model.Ledger
	Valuations  model.Valuations
	Tokens      map[common.Address]model.TokenMeta
	Rankings    []model.ValidatorRanking
	Matrix      report.Matrix
	ScoresPath  string
	MatrixPath  string
}

// ScoreAnalyzer runs the scoring phases in order. Parallelism lives inside each phase.
type ScoreAnalyzer struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg     *config.ScoreConfig
	network config.Network
	now     func() time.Time

	// Connections
	cli    clientapi.ChainClient
	apiCli *clientapi.APIClient // nil when the chain client is injected
	quoter clientapi.PriceQuoter

	// Phases
	scanner   *blocks.Scanner
	collector *snapshot.Collector
	indexer   *events.Indexer
	engine    *valuation.Engine

	validators []model.Validator
	diagOut    io.Writer
	monitor    *prom_metrics.Monitor
	phase      atomic.Value // name of the running phase

	initTime    time.Time
	PromMetrics *prom_metrics.PrometheusMetrics // metrics to be exposed to prometheus
}

func NewScoreAnalyzer(pCtx context.Context, iConfig *config.ScoreConfig) (*ScoreAnalyzer, error) {
	if err := iConfig.Validate(); err != nil {
		return nil, utils.WithCode(utils.ExitInvalidArgs, err)
	}
	network, err := config.LoadNetwork(iConfig.Network)
	if err != nil {
		return nil, utils.WithCode(utils.ExitInvalidArgs, errors.Wrap(err, "unable to load network profile"))
	}

	// generate the API clients
	cli, err := clientapi.NewAPIClient(pCtx,
		iConfig.ElEndpoint,
		iConfig.ClEndpoint,
		clientapi.WithTimeout(iConfig.RequestTimeout),
		clientapi.WithMaxRetries(iConfig.MaxRequestRetries),
		clientapi.WithRetryInterval(iConfig.RetryInterval))
	if err != nil {
		return nil, utils.WithCode(utils.ExitNetworkError, errors.Wrap(err, "unable to generate API Client."))
	}
	quoter := clientapi.NewPriceClient(iConfig.PriceEndpoint, iConfig.PriceAPIKey, iConfig.RequestTimeout, iConfig.MaxRequestRetries)

	analyzer := newScoreAnalyzer(pCtx, iConfig, network, cli, quoter)
	analyzer.apiCli = cli

	analyzer.PromMetrics.AddMetricsModule(analyzer.GetPrometheusMetrics())
	analyzer.PromMetrics.AddMetricsModule(cli.GetPrometheusMetrics())
	analyzer.PromMetrics.AddMetricsModule(quoter.GetPrometheusMetrics())
	return analyzer, nil
}

// newScoreAnalyzer wires the phases on top of already built clients.
func newScoreAnalyzer(
	pCtx context.Context,
	iConfig *config.ScoreConfig,
	network config.Network,
	cli clientapi.ChainClient,
	quoter clientapi.PriceQuoter) *ScoreAnalyzer {

	ctx, cancel := context.WithCancel(pCtx)
	return &ScoreAnalyzer{
		ctx:     ctx,
		cancel:  cancel,
		cfg:     iConfig,
		network: network,
		now:     time.Now,
		cli:     cli,
		quoter:  quoter,
		scanner: blocks.NewScanner(cli, iConfig.WorkerNum, uint64(iConfig.ChunkSize), uint64(iConfig.EmptyThreshold)),
		collector: snapshot.NewCollector(cli, network.BGT,
			network.StakeDecimals, network.BoostDecimals),
		indexer: events.NewIndexer(cli, network.Distributor, uint64(iConfig.LogWindow), iConfig.LogWorkerNum),
		engine: valuation.NewEngine(cli, quoter, valuation.NewTokenCache(), valuation.Tokens{
			BGT:               network.BGT,
			WrappedNative:     network.WrappedNative,
			Reference:         network.ReferenceToken,
			ReferenceDecimals: network.ReferenceTokenDecimals,
		}),
		diagOut:     os.Stderr,
		monitor:     prom_metrics.NewMonitor(),
		PromMetrics: prom_metrics.NewPrometheusMetrics(ctx, "0.0.0.0", iConfig.PrometheusPort),
	}
}

// timed runs one phase and records its duration.
func (s *ScoreAnalyzer) timed(phase string, fn func() error) error {
	s.phase.Store(phase)
	start := time.Now()
	log.Infof("phase %s started", phase)
	err := fn()
	s.monitor.AddPhase(phase, time.Since(start))
	if err != nil {
		return errors.Wrapf(err, "phase %s", phase)
	}
	log.Infof("phase %s finished in %s", phase, time.Since(start))
	return nil
}

// Run executes every phase. Fatal conditions abort the run, per unit failures only degrade it.
func (s *ScoreAnalyzer) Run() (*Result, error) {
	defer s.cancel()
	s.initTime = time.Now()
	log.Info("Score Analyzer initialized at ", s.initTime)

	if err := s.PromMetrics.Start(); err != nil {
		log.Warnf("unable to start prometheus exporter: %s", err)
	}
	defer s.PromMetrics.Close()

	res := &Result{}
	err := s.timed(phaseRoster, func() error {
		validators, err := utils.ReadRosterFile(s.cfg.RosterPath)
		if err != nil {
			return err
		}
		s.validators = validators
		log.Infof("%d validators loaded from %s", len(validators), s.cfg.RosterPath)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Dates = boundary.BuildDates(s.cfg.EndDay(s.now()), s.cfg.Days)
	err = s.timed(phaseBoundaries, func() error {
		locator := boundary.NewLocator(s.cli, s.network.GenesisTimestamp, s.network.BlockInterval,
			boundary.WithMaxAttempts(s.cfg.BoundaryAttempts))
		boundaries, err := locator.Locate(s.ctx, res.Dates)
		if err != nil {
			return err
		}
		ranges, err := boundary.Ranges(boundaries)
		if err != nil {
			return err
		}
		res.Boundaries, res.Ranges = boundaries, ranges
		for _, r := range ranges {
			log.Infof("%s: blocks %d to %d (%d blocks)", r.Date, r.Start, r.End, r.Blocks())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.timed(phaseScan, func() error {
		res.Attribution = make(map[model.Day]model.Attribution, len(res.Ranges))
		for _, r := range res.Ranges {
			attribution, err := s.scanner.Scan(s.ctx, r.Start, r.End, s.validators)
			if err != nil {
				return errors.Wrapf(err, "scan of %s", r.Date)
			}
			res.Attribution[r.Date] = attribution
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// the trailing boundary only closes the last range
	err = s.timed(phaseSnapshots, func() error {
		snapshots, err := s.collector.Collect(s.ctx, res.Boundaries[:len(res.Ranges)], s.validators)
		res.Snapshots = snapshots
		return err
	})
	if err != nil {
		return nil, err
	}

	err = s.timed(phaseIndexing, func() error {
		ledger, err := s.indexer.Index(s.ctx, res.Ranges, s.validators)
		res.Ledger = ledger
		return err
	})
	if err != nil {
		return nil, err
	}

	err = s.timed(phaseValuation, func() error {
		valuations, tokens, err := s.engine.Value(s.ctx, res.Ledger)
		res.Valuations, res.Tokens = valuations, tokens
		return err
	})
	if err != nil {
		return nil, err
	}

	_ = s.timed(phaseScoring, func() error {
		res.Rankings = scoring.Score(scoring.Inputs{
			Ranges:      res.Ranges,
			Attribution: res.Attribution,
			Snapshots:   res.Snapshots,
			Valuations:  res.Valuations,
			Validators:  s.validators,
		})
		return nil
	})

	err = s.timed(phaseReport, func() error {
		return s.writeReports(res)
	})
	if err != nil {
		return nil, err
	}

	slowest, d := s.monitor.Slowest()
	log.Infof("Score Analyzer finished in %s (slowest phase %s: %s)", time.Since(s.initTime), slowest, d)
	return res, nil
}

func (s *ScoreAnalyzer) writeReports(res *Result) error {
	if err := report.RenderTable(s.diagOut, res.Rankings, res.Tokens); err != nil {
		return errors.Wrap(err, "unable to render ranking")
	}
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return errors.Wrapf(err, "unable to create output dir %s", s.cfg.OutputDir)
	}

	first, last := res.Ranges[0].Date, res.Ranges[len(res.Ranges)-1].Date
	suffix := fmt.Sprintf("%s_%s", first, last)
	res.ScoresPath = filepath.Join(s.cfg.OutputDir, fmt.Sprintf("validator_scores_%s.csv", suffix))
	res.MatrixPath = filepath.Join(s.cfg.OutputDir, fmt.Sprintf("incentive_matrix_%s.csv", suffix))

	if err := report.WriteScores(res.ScoresPath, res.Rankings, res.Ranges.Dates(), s.cfg.Verbose); err != nil {
		return err
	}
	res.Matrix = report.BuildMatrix(res.Ledger, res.Tokens, s.validators, s.network.BGT)
	return report.WriteMatrix(res.MatrixPath, res.Matrix)
}

// Stop cancels a running analysis. Run returns with the context error.
func (s *ScoreAnalyzer) Stop() {
	log.Info("Sudden closed detected, closing ScoreAnalyzer")
	s.cancel()
}

// Close releases the clients.
func (s *ScoreAnalyzer) Close() {
	s.cancel()
	if s.apiCli != nil {
		s.apiCli.Close()
	}
}

// Phase returns the name of the running (or last run) phase.
func (s *ScoreAnalyzer) Phase() string {
	phase, _ := s.phase.Load().(string)
	return phase
}
