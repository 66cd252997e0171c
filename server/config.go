// Package server exposes a fitted pipeline behind a JSON prediction
// endpoint with schema validation and a per-request timeout.
package server

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/mohsenim/carprice/dataset"
	"github.com/mohsenim/carprice/pkg/errors"
)

// Config enumerates the service's resource limits, timeout and input
// schema. It is constructed explicitly and passed to New; nothing in
// the package reads configuration implicitly.
type Config struct {
	// Addr is the listen address.
	Addr string

	// Timeout is the per-request processing budget. Requests exceeding
	// it fail with a timeout error instead of hanging.
	Timeout time.Duration

	// CPU is the number of logical processors the process may use.
	CPU int

	// ArtifactPath is the serialized pipeline loaded at startup.
	ArtifactPath string

	// InputColumns is the exact set of columns a prediction record must
	// carry, in schema order.
	InputColumns []string
}

// DefaultConfig returns the shipped configuration: one CPU, a ten
// second request budget, and the standard artifact path.
func DefaultConfig() Config {
	return Config{
		Addr:         ":3000",
		Timeout:      10 * time.Second,
		CPU:          1,
		ArtifactPath: "artifacts/car_price_model.gob",
		InputColumns: dataset.FeatureColumns(),
	}
}

// fileConfig is the YAML override surface. Only set fields replace
// defaults; the input schema is not overridable from a file.
type fileConfig struct {
	Addr           string `yaml:"addr"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CPU            int    `yaml:"cpu"`
	ArtifactPath   string `yaml:"artifact_path"`
}

// LoadConfig returns DefaultConfig overridden by the YAML file at path.
// An empty path returns defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config file")
	}

	var fc fileConfig
	if err := yaml.UnmarshalStrict(data, &fc); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse config file")
	}

	if fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if fc.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}
	if fc.CPU > 0 {
		cfg.CPU = fc.CPU
	}
	if fc.ArtifactPath != "" {
		cfg.ArtifactPath = fc.ArtifactPath
	}
	return cfg, nil
}
