// Package config provides layered configuration loading for the livesearch
// server.
//
// Configuration is resolved in four stages: built-in defaults, JSON file
// layers merged in order, environment variable overrides, and optional
// validation. Later layers only override the fields they mention, so a
// deployment file can set a single value without restating the rest.
//
// # Usage
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/livesearch.json")
//	loader.AddLayer("configs/livesearch.local.json")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Environment Overrides
//
// Environment variables use the LIVESEARCH_ prefix and take precedence over
// file layers:
//
//	LIVESEARCH_SERVER_PORT=9000
//	LIVESEARCH_SEARCH_BATCH_SIZE=25
//	LIVESEARCH_SEARCH_BATCH_TIMEOUT=750ms
//	LIVESEARCH_NATS_ENABLED=true
//	LIVESEARCH_NATS_URLS=nats://a:4222,nats://b:4222
//	LIVESEARCH_LOG_LEVEL=debug
//
// # Durations
//
// Duration fields accept Go duration strings ("500ms", "10s") in JSON files
// and environment variables. Numeric values are interpreted as nanoseconds
// for round-trip compatibility with saved configs.
//
// # File Safety
//
// Config files are read through safeReadFile, which rejects path traversal,
// non-JSON extensions, irregular files, and files over 10MB. JSON nesting
// depth is capped before parsing to prevent resource exhaustion from
// malicious input.
package config
