package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	CorpusPath      string
	LogLevel        string
	LogFormat       string
	Debug           bool
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool

	// setFlags records which flags were given explicitly, so config file
	// values only apply when the user did not override them.
	setFlags map[string]bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("LIVESEARCH_CONFIG", ""),
		"Path to configuration file, empty for defaults (env: LIVESEARCH_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("LIVESEARCH_CONFIG", ""),
		"Path to configuration file, empty for defaults (env: LIVESEARCH_CONFIG)")

	flag.StringVar(&cfg.CorpusPath, "corpus",
		getEnv("LIVESEARCH_CORPUS", ""),
		"Path to a JSON document corpus to index at startup (env: LIVESEARCH_CORPUS)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("LIVESEARCH_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: LIVESEARCH_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("LIVESEARCH_LOG_FORMAT", "json"),
		"Log format: json, text (env: LIVESEARCH_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("LIVESEARCH_DEBUG", false),
		"Enable debug mode (env: LIVESEARCH_DEBUG)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("LIVESEARCH_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: LIVESEARCH_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	// Custom usage
	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	cfg.setFlags = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		cfg.setFlags[f.Name] = true
	})

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
		cfg.setFlags["log-level"] = true
	}

	return cfg
}

// FlagWasSet reports whether the named flag was given on the command line.
func (c *CLIConfig) FlagWasSet(name string) bool {
	return c.setFlags[name]
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	// Validate config file exists when one was named
	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if cfg.CorpusPath != "" {
		if _, err := os.Stat(cfg.CorpusPath); err != nil {
			return fmt.Errorf("corpus file not found: %s", cfg.CorpusPath)
		}
	}

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	// Validate log format
	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Streaming Search Gateway

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with custom config
  %s --config=/path/to/config.json

  # Run with a seeded document corpus and debug logging
  %s --corpus=configs/corpus.json --log-level=debug --log-format=text

  # Run with environment variables
  export LIVESEARCH_CONFIG=/etc/livesearch/config.json
  export LIVESEARCH_LOG_LEVEL=debug
  %s

  # Validate configuration only
  %s --config=/path/to/config.json --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
