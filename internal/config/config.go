package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/ib-77/parchan/pkg/parchan"
)

// Config holds the settings of a parchan run, loaded from a HuJSON file.
type Config struct {
	Concurrency int
	Discard     bool
	KeepGoing   bool
	Shell       string
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// jsonConfig is an intermediate struct for JSON unmarshalling.
// Pointer types distinguish "missing" (nil) from "zero".
type jsonConfig struct {
	Concurrency *int   `json:"concurrency"`
	Discard     *bool  `json:"discard"`
	KeepGoing   *bool  `json:"keep_going"`
	Shell       string `json:"shell"`
	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"`
	MetricsAddr string `json:"metrics_addr"`
}

// readFile is a package-level variable to allow overriding in tests.
var readFile = os.ReadFile

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Concurrency: parchan.Unbounded,
		Shell:       "/bin/sh",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load reads the HuJSON file at path. An empty path yields Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	standardJSON, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(standardJSON, &jc); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	def := Default()
	cfg := &Config{
		Concurrency: intPtrDefault(jc.Concurrency, def.Concurrency),
		Discard:     boolPtrDefault(jc.Discard, def.Discard),
		KeepGoing:   boolPtrDefault(jc.KeepGoing, def.KeepGoing),
		Shell:       stringDefault(jc.Shell, def.Shell),
		LogLevel:    stringDefault(jc.LogLevel, def.LogLevel),
		LogFormat:   stringDefault(jc.LogFormat, def.LogFormat),
		MetricsAddr: jc.MetricsAddr,
	}

	if cfg.Concurrency == 0 {
		return nil, fmt.Errorf("invalid config: concurrency must be positive, or negative for unbounded")
	}

	return cfg, nil
}

// Channel returns the channel settings of the run. The channel is always
// open: commands are pushed while their outputs are being read, and the
// producer closes it once the input is exhausted.
func (c *Config) Channel() parchan.Config {
	return parchan.Config{
		Concurrency: c.Concurrency,
		Open:        true,
		Discard:     c.Discard,
	}
}

func stringDefault(val, def string) string {
	if val != "" {
		return val
	}
	return def
}

func intPtrDefault(val *int, def int) int {
	if val != nil {
		return *val
	}
	return def
}

func boolPtrDefault(val *bool, def bool) bool {
	if val != nil {
		return *val
	}
	return def
}
