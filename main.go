package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/migalabs/valscore/cmd"
	"github.com/migalabs/valscore/pkg/utils"
)

var (
	log = logrus.WithField(
		"cli", "CliName",
	)
)

func main() {
	fmt.Fprintln(os.Stderr, utils.CliName, utils.Version)

	customFormatter := new(logrus.TextFormatter)
	customFormatter.FullTimestamp = true

	// Set the general log configurations for the entire tool
	// stdout is left to the ranking table
	logrus.SetFormatter(customFormatter)
	logrus.SetOutput(utils.ParseLogOutput("stderr"))
	logrus.SetLevel(utils.ParseLogLevel("info"))

	app := &cli.App{
		Name:      utils.CliName,
		Usage:     "Scores Berachain validators on uptime, block fullness and the incentives they route.",
		UsageText: "valscore [commands] [arguments...]",
		Authors: []*cli.Author{
			{
				Name:  "Cortze",
				Email: "cortze@protonmail.com",
			}, {
				Name:  "Tdahar",
				Email: "tarsuno@gmail.com",
			},
		},
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			cmd.ScoreCommand,
			cmd.BoundariesCommand,
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Errorf("error: %v\n", err)
		os.Exit(utils.CodeForError(err))
	}
}
