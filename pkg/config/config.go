package config

import (
	"time"

	"github.com/pkg/errors"
	cli "github.com/urfave/cli/v2"

	"github.com/migalabs/valscore/pkg/model"
)

type ScoreConfig struct {
	LogLevel          string        `json:"log-level"`
	Days              int           `json:"days"`
	EndDate           string        `json:"end-date"`
	Verbose           bool          `json:"verbose"`
	ElEndpoint        string        `json:"el-endpoint"`
	ClEndpoint        string        `json:"cl-endpoint"`
	PriceEndpoint     string        `json:"price-endpoint"`
	PriceAPIKey       string        `json:"-"`
	RosterPath        string        `json:"roster"`
	OutputDir         string        `json:"output-dir"`
	Network           string        `json:"network"`
	WorkerNum         int           `json:"workers-num"`
	LogWorkerNum      int           `json:"log-workers"`
	ChunkSize         int           `json:"chunk-size"`
	LogWindow         int           `json:"log-window"`
	EmptyThreshold    int           `json:"empty-threshold"`
	MaxRequestRetries int           `json:"max-request-retries"`
	RetryInterval     time.Duration `json:"retry-interval"`
	RequestTimeout    time.Duration `json:"request-timeout"`
	PrometheusPort    int           `json:"prometheus-port"`
	BoundaryAttempts  int           `json:"boundary-attempts"`
}

func NewScoreConfig() *ScoreConfig {
	// Return Default values for the scoring run
	return &ScoreConfig{
		LogLevel:          DefaultLogLevel,
		Days:              DefaultDays,
		EndDate:           DefaultEndDate,
		ElEndpoint:        DefaultElEndpoint,
		ClEndpoint:        DefaultClEndpoint,
		PriceEndpoint:     DefaultPriceEndpoint,
		RosterPath:        DefaultRosterPath,
		OutputDir:         DefaultOutputDir,
		Network:           DefaultNetwork,
		WorkerNum:         DefaultWorkerNum,
		LogWorkerNum:      DefaultLogWorkerNum,
		ChunkSize:         DefaultChunkSize,
		LogWindow:         DefaultLogWindow,
		EmptyThreshold:    DefaultEmptyThreshold,
		MaxRequestRetries: DefaultMaxRequestRetries,
		RetryInterval:     DefaultRetryInterval,
		RequestTimeout:    DefaultRequestTimeout,
		PrometheusPort:    DefaultPrometheusPort,
		BoundaryAttempts:  DefaultBoundaryAttempts,
	}
}

func (c *ScoreConfig) Apply(ctx *cli.Context) {
	// apply to the existing Default configuration the set flags
	// log level
	if ctx.IsSet("log-level") {
		c.LogLevel = ctx.String("log-level")
	}
	// analyzed days
	if ctx.IsSet("days") {
		c.Days = ctx.Int("days")
	}
	// end date
	if ctx.IsSet("end-date") {
		c.EndDate = ctx.String("end-date")
	}
	// per day breakdown
	if ctx.IsSet("verbose") {
		c.Verbose = ctx.Bool("verbose")
	}
	// el url
	if ctx.IsSet("el-endpoint") {
		c.ElEndpoint = ctx.String("el-endpoint")
	}
	// cl url
	if ctx.IsSet("cl-endpoint") {
		c.ClEndpoint = ctx.String("cl-endpoint")
	}
	// price service
	if ctx.IsSet("price-endpoint") {
		c.PriceEndpoint = ctx.String("price-endpoint")
	}
	if ctx.IsSet("price-api-key") {
		c.PriceAPIKey = ctx.String("price-api-key")
	}
	// roster csv
	if ctx.IsSet("roster") {
		c.RosterPath = ctx.String("roster")
	}
	// output folder
	if ctx.IsSet("output-dir") {
		c.OutputDir = ctx.String("output-dir")
	}
	// network profile
	if ctx.IsSet("network") {
		c.Network = ctx.String("network")
	}
	// scanner workers
	if ctx.IsSet("workers-num") {
		c.WorkerNum = ctx.Int("workers-num")
	}
	// log query workers
	if ctx.IsSet("log-workers") {
		c.LogWorkerNum = ctx.Int("log-workers")
	}
	if ctx.IsSet("chunk-size") {
		c.ChunkSize = ctx.Int("chunk-size")
	}
	if ctx.IsSet("log-window") {
		c.LogWindow = ctx.Int("log-window")
	}
	if ctx.IsSet("empty-threshold") {
		c.EmptyThreshold = ctx.Int("empty-threshold")
	}
	// max request retries
	if ctx.IsSet("max-request-retries") {
		c.MaxRequestRetries = ctx.Int("max-request-retries")
	}
	if ctx.IsSet("retry-interval") {
		c.RetryInterval = ctx.Duration("retry-interval")
	}
	if ctx.IsSet("request-timeout") {
		c.RequestTimeout = ctx.Duration("request-timeout")
	}
	if ctx.IsSet("boundary-attempts") {
		c.BoundaryAttempts = ctx.Int("boundary-attempts")
	}
	// prometheus port
	if ctx.IsSet("prometheus-port") {
		c.PrometheusPort = ctx.Int("prometheus-port")
	}
}

func (c *ScoreConfig) Validate() error {
	if c.Days <= 0 {
		return errors.Errorf("days must be greater than 0, got %d", c.Days)
	}
	if c.EndDate != "" {
		if _, err := model.ParseDay(c.EndDate); err != nil {
			return errors.Wrapf(err, "invalid end-date %q, expected YYYY-MM-DD", c.EndDate)
		}
	}
	if c.ElEndpoint == "" {
		return errors.New("el endpoint not provided")
	}
	if c.ClEndpoint == "" {
		return errors.New("cl endpoint not provided")
	}
	if c.RosterPath == "" {
		return errors.New("roster not provided")
	}
	if c.ChunkSize <= 0 || c.LogWindow <= 0 {
		return errors.New("chunk-size and log-window must be greater than 0")
	}
	if c.WorkerNum <= 0 || c.LogWorkerNum <= 0 {
		return errors.New("workers-num and log-workers must be greater than 0")
	}
	if c.EmptyThreshold < 0 {
		return errors.New("empty-threshold cannot be negative")
	}
	if c.MaxRequestRetries <= 0 {
		c.MaxRequestRetries = 1
	}
	if c.BoundaryAttempts <= 0 {
		c.BoundaryAttempts = DefaultBoundaryAttempts
	}
	return nil
}

// EndDay returns the configured end date, today (UTC) by default.
func (c *ScoreConfig) EndDay(now time.Time) model.Day {
	if c.EndDate == "" {
		return model.NewDay(now)
	}
	d, err := model.ParseDay(c.EndDate)
	if err != nil {
		return model.NewDay(now)
	}
	return d
}
