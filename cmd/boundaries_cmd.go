package cmd

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/migalabs/valscore/pkg/boundary"
	"github.com/migalabs/valscore/pkg/clientapi"
	"github.com/migalabs/valscore/pkg/config"
	"github.com/migalabs/valscore/pkg/utils"
)

var BoundariesCommand = &cli.Command{
	Name:   "boundaries",
	Usage:  "print the first block of each day of the window, with the block ranges in between",
	Action: LaunchBoundaries,
	Flags: append(chainFlags(),
		&cli.IntFlag{
			Name:        "days",
			Usage:       "Number of days to locate, ending the day before end-date",
			EnvVars:     []string{"VALSCORE_DAYS"},
			DefaultText: "7",
		},
	),
}

var logBoundaries = logrus.WithField(
	"module", "boundariesCommand",
)

// LaunchBoundaries only runs the boundary phase, useful to check a node before a full run.
func LaunchBoundaries(c *cli.Context) error {
	conf := config.NewScoreConfig()
	conf.Apply(c)
	logrus.SetLevel(utils.ParseLogLevel(conf.LogLevel))
	if err := conf.Validate(); err != nil {
		return utils.WithCode(utils.ExitInvalidArgs, err)
	}
	network, err := config.LoadNetwork(conf.Network)
	if err != nil {
		return utils.WithCode(utils.ExitInvalidArgs, err)
	}

	apiCli, err := clientapi.NewAPIClient(c.Context,
		conf.ElEndpoint,
		conf.ClEndpoint,
		clientapi.WithTimeout(conf.RequestTimeout),
		clientapi.WithMaxRetries(conf.MaxRequestRetries),
		clientapi.WithRetryInterval(conf.RetryInterval))
	if err != nil {
		return utils.WithCode(utils.ExitNetworkError, errors.Wrap(err, "unable to generate API Client."))
	}
	defer apiCli.Close()

	dates := boundary.BuildDates(conf.EndDay(time.Now()), conf.Days)
	locator := boundary.NewLocator(apiCli, network.GenesisTimestamp, network.BlockInterval,
		boundary.WithMaxAttempts(conf.BoundaryAttempts))
	start := time.Now()
	bounds, err := locator.Locate(c.Context, dates)
	if err != nil {
		return err
	}
	ranges, err := boundary.Ranges(bounds)
	if err != nil {
		return err
	}
	logBoundaries.Infof("%d boundaries located with %d probes in %s", len(bounds), locator.Probes(), time.Since(start))

	out := c.App.Writer
	for _, b := range bounds {
		fmt.Fprintf(out, "%s\t%d\n", b.Date, b.Block)
	}
	for _, r := range ranges {
		fmt.Fprintf(out, "%s\t%d-%d\t%d blocks\n", r.Date, r.Start, r.End, r.End-r.Start+1)
	}
	return nil
}
