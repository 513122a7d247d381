package config

import "time"

// Application constants
const (
	AppName    = "volscan"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. VOLSCAN_SCAN_WORKERS
	EnvPrefix = "VOLSCAN"

	DefaultPriceColumn    = 2
	DefaultReceiveTimeout = 1 * time.Second
	DefaultLogFile        = "logs/volscan.log"

	DrainModePoll   = "poll"
	DrainModeSignal = "signal"
)
