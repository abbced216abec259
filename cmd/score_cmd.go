package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/migalabs/valscore/pkg/analyzer"
	"github.com/migalabs/valscore/pkg/config"
	"github.com/migalabs/valscore/pkg/utils"
)

var ScoreCommand = &cli.Command{
	Name:   "score",
	Usage:  "score the validators of the roster over the last days",
	Action: LaunchScore,
	Flags: append(chainFlags(),
		&cli.IntFlag{
			Name:        "days",
			Usage:       "Number of days to analyze, ending the day before end-date",
			EnvVars:     []string{"VALSCORE_DAYS"},
			DefaultText: "7",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Usage:   "Add the per day breakdown columns to the score sheet",
			EnvVars: []string{"VALSCORE_VERBOSE"},
		},
		&cli.StringFlag{
			Name:        "price-endpoint",
			Usage:       "Swap quote service used to price tokens in USD",
			EnvVars:     []string{"VALSCORE_PRICE_ENDPOINT"},
			DefaultText: config.DefaultPriceEndpoint,
		},
		&cli.StringFlag{
			Name:    "price-api-key",
			Usage:   "Bearer key of the swap quote service",
			EnvVars: []string{"VALSCORE_PRICE_API_KEY"},
		},
		&cli.StringFlag{
			Name:        "roster",
			Usage:       "CSV file with consensusAddress,name,publicKey,operatorAddress per line",
			EnvVars:     []string{"VALSCORE_ROSTER"},
			DefaultText: config.DefaultRosterPath,
		},
		&cli.StringFlag{
			Name:        "output-dir",
			Usage:       "Folder where the score sheet and the incentive matrix are written",
			EnvVars:     []string{"VALSCORE_OUTPUT_DIR"},
			DefaultText: config.DefaultOutputDir,
		},
		&cli.IntFlag{
			Name:        "workers-num",
			Usage:       "Number of block chunks scanned at the same time",
			EnvVars:     []string{"VALSCORE_WORKERS_NUM"},
			DefaultText: "NumCPU-1",
		},
		&cli.IntFlag{
			Name:        "log-workers",
			Usage:       "Max number of log queries in flight",
			EnvVars:     []string{"VALSCORE_LOG_WORKERS"},
			DefaultText: "16",
		},
		&cli.IntFlag{
			Name:        "chunk-size",
			Usage:       "Blocks per scanned chunk",
			EnvVars:     []string{"VALSCORE_CHUNK_SIZE"},
			DefaultText: "200",
		},
		&cli.IntFlag{
			Name:        "log-window",
			Usage:       "Blocks per log query",
			EnvVars:     []string{"VALSCORE_LOG_WINDOW"},
			DefaultText: "1000",
		},
		&cli.IntFlag{
			Name:        "empty-threshold",
			Usage:       "Blocks with at most this many transactions are empty",
			EnvVars:     []string{"VALSCORE_EMPTY_THRESHOLD"},
			DefaultText: "1",
		},
		&cli.IntFlag{
			Name:        "prometheus-port",
			Usage:       "Port where prometheus metrics are exposed, 0 to disable",
			EnvVars:     []string{"VALSCORE_PROMETHEUS_PORT"},
			DefaultText: "0",
		},
	),
}

// flags shared by every command talking to the chain
func chainFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level: debug, warn, info, error",
			EnvVars:     []string{"VALSCORE_LOG_LEVEL"},
			DefaultText: config.DefaultLogLevel,
		},
		&cli.StringFlag{
			Name:        "el-endpoint",
			Usage:       "Execution node JSON-RPC endpoint",
			EnvVars:     []string{"VALSCORE_EL_ENDPOINT"},
			DefaultText: config.DefaultElEndpoint,
		},
		&cli.StringFlag{
			Name:        "cl-endpoint",
			Usage:       "Consensus node CometBFT RPC endpoint",
			EnvVars:     []string{"VALSCORE_CL_ENDPOINT"},
			DefaultText: config.DefaultClEndpoint,
		},
		&cli.StringFlag{
			Name:        "end-date",
			Usage:       "Day (YYYY-MM-DD, UTC) closing the analyzed window, today by default",
			EnvVars:     []string{"VALSCORE_END_DATE"},
			DefaultText: "today",
		},
		&cli.StringFlag{
			Name:        "network",
			Usage:       "Built-in network name or path to a YAML network profile",
			EnvVars:     []string{"VALSCORE_NETWORK"},
			DefaultText: config.DefaultNetwork,
		},
		&cli.IntFlag{
			Name:        "max-request-retries",
			Usage:       "Number of attempts of a request failing with a transient error",
			EnvVars:     []string{"VALSCORE_MAX_REQUEST_RETRIES"},
			DefaultText: "3",
		},
		&cli.DurationFlag{
			Name:        "retry-interval",
			Usage:       "Base delay between attempts, doubled on each retry",
			EnvVars:     []string{"VALSCORE_RETRY_INTERVAL"},
			DefaultText: config.DefaultRetryInterval.String(),
		},
		&cli.DurationFlag{
			Name:        "request-timeout",
			Usage:       "Timeout of a single request attempt",
			EnvVars:     []string{"VALSCORE_REQUEST_TIMEOUT"},
			DefaultText: config.DefaultRequestTimeout.String(),
		},
		&cli.IntFlag{
			Name:        "boundary-attempts",
			Usage:       "Max probes when searching the first block of a day",
			EnvVars:     []string{"VALSCORE_BOUNDARY_ATTEMPTS"},
			DefaultText: "200",
		},
	}
}

var logCmdChain = logrus.WithField(
	"module", "scoreCommand",
)

// LaunchScore is the function that is called when running `score`.
func LaunchScore(c *cli.Context) error {
	conf := config.NewScoreConfig()
	conf.Apply(c)
	logrus.SetLevel(utils.ParseLogLevel(conf.LogLevel))

	scoreAnalyzer, err := analyzer.NewScoreAnalyzer(c.Context, conf)
	if err != nil {
		return err
	}
	defer scoreAnalyzer.Close()

	procDoneC := make(chan error, 1)
	sigtermC := make(chan os.Signal, 1)
	signal.Notify(sigtermC, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigtermC)

	go func() {
		res, err := scoreAnalyzer.Run()
		if err == nil {
			logCmdChain.Infof("scores written to %s, incentive matrix to %s", res.ScoresPath, res.MatrixPath)
		}
		procDoneC <- err
	}()

	select {
	case <-sigtermC:
		logCmdChain.Info("Sudden shutdown detected, controlled shutdown of the cli triggered")
		scoreAnalyzer.Stop()
		<-procDoneC
		return utils.WithCode(utils.ExitGeneralError, errors.New("score run interrupted"))

	case err := <-procDoneC:
		if err != nil {
			return err
		}
		logCmdChain.Info("Process successfully finish!")
	}
	return nil
}
