// Package config provides centralized configuration management for volscan.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Command-line flags (applied by cmd/volscan, highest priority)
//	2. Environment variables
//	3. YAML configuration file
//	4. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern VOLSCAN_<SECTION>_<FIELD>:
//
//	VOLSCAN_SCAN_WORKERS=8
//	VOLSCAN_SCAN_DRAIN_MODE=signal
//	VOLSCAN_LOGGING_LEVEL=debug
//	VOLSCAN_OUTPUT_SQLITE_PATH=data/runs.db
//
// # Configuration File
//
// When no path is given, Load looks for volscan.yaml and configs/volscan.yaml:
//
//	scan:
//	  workers: 4
//	  price_column: 2
//	  receive_timeout: 1s
//	  drain_mode: poll
//	logging:
//	  level: info
//	  output: console
//
// # Validation
//
// Every field carries a validate tag checked by go-playground/validator;
// failures are reported with their YAML names.
package config
