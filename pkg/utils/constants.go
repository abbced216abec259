package utils

import "time"

const (
	Version                = "v0.1.0"
	CliName                = "ValScore"
	AcquireWaitIntervalLog = 1 * time.Minute
)
