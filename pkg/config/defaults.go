package config

import (
	"runtime"
	"time"
)

var (
	DefaultLogLevel          string        = "info"
	DefaultDays              int           = 7
	DefaultEndDate           string        = "" // today, UTC
	DefaultElEndpoint        string        = "http://localhost:8545"
	DefaultClEndpoint        string        = "http://localhost:26657"
	DefaultPriceEndpoint     string        = "https://mainnet.api.oogabooga.io"
	DefaultRosterPath        string        = "validators.csv"
	DefaultOutputDir         string        = "."
	DefaultNetwork           string        = "mainnet"
	DefaultWorkerNum         int           = defaultWorkerNum()
	DefaultLogWorkerNum      int           = 16
	DefaultChunkSize         int           = 200
	DefaultLogWindow         int           = 1000
	DefaultEmptyThreshold    int           = 1
	DefaultMaxRequestRetries int           = 3
	DefaultRetryInterval     time.Duration = 500 * time.Millisecond
	DefaultRequestTimeout    time.Duration = 30 * time.Second
	DefaultPrometheusPort    int           = 0
	DefaultBoundaryAttempts  int           = 200
)

// one core is left to the main routine and the clients
func defaultWorkerNum() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		return 1
	}
	return n
}
