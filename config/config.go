// Package config loads the oracle settings from a YAML file.
package config

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/bartolsthoorn/vlporacle/lp"
	"github.com/bartolsthoorn/vlporacle/oracle"
	"github.com/bartolsthoorn/vlporacle/vlp"
)

// Config holds all oracle settings.
type Config struct {
	// PolytopeEps is the positivity and degeneracy tolerance.
	PolytopeEps float64 `yaml:"polytope_eps"`

	// RoundFacets snaps facet coefficients to nearby rationals.
	RoundFacets bool `yaml:"round_facets"`

	// ShuffleMatrix permutes rows and columns when the program is built.
	ShuffleMatrix bool `yaml:"shuffle_matrix"`

	// Seed seeds the shuffle; 0 selects a fixed default.
	Seed int64 `yaml:"seed"`

	Oracle  OracleConfig  `yaml:"oracle"`
	Logging LoggingConfig `yaml:"logging"`
}

// OracleConfig configures the solver.
type OracleConfig struct {
	Message        int     `yaml:"message"`         // 0 off, 1 errors, 2 normal, 3 verbose
	Method         string  `yaml:"method"`          // primal, dual
	Pricing        string  `yaml:"pricing"`         // standard, steepest
	RatioTest      string  `yaml:"ratio_test"`      // standard, harris
	IterationLimit int     `yaml:"iteration_limit"` // 0 disables
	TimeLimit      int     `yaml:"time_limit"`      // seconds, 0 disables
	Scale          bool    `yaml:"scale"`
	Tolerance      float64 `yaml:"tolerance"` // 0 keeps the solver default
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Default returns the default configuration.
func Default() *Config {
	p := oracle.DefaultParams()
	return &Config{
		PolytopeEps:   vlp.DefaultEpsilon,
		RoundFacets:   true,
		ShuffleMatrix: true,
		Oracle: OracleConfig{
			Message:        p.Message,
			Method:         "primal",
			Pricing:        "steepest",
			RatioTest:      "harris",
			IterationLimit: p.IterationLimit,
			TimeLimit:      p.TimeLimit,
			Scale:          p.Scale,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !(c.PolytopeEps > 0) || c.PolytopeEps >= 1 {
		return fmt.Errorf("polytope_eps must be in (0, 1), got %g", c.PolytopeEps)
	}
	if c.Oracle.Message < 0 || c.Oracle.Message > 3 {
		return fmt.Errorf("oracle.message must be between 0 and 3, got %d", c.Oracle.Message)
	}
	if c.Oracle.IterationLimit < 0 {
		return fmt.Errorf("oracle.iteration_limit must not be negative, got %d", c.Oracle.IterationLimit)
	}
	if c.Oracle.TimeLimit < 0 {
		return fmt.Errorf("oracle.time_limit must not be negative, got %d", c.Oracle.TimeLimit)
	}
	if c.Oracle.Tolerance < 0 || c.Oracle.Tolerance > 1e-3 {
		return fmt.Errorf("oracle.tolerance must be in [0, 1e-3], got %g", c.Oracle.Tolerance)
	}
	if _, err := c.Params(); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	return nil
}

// Params returns the solver settings.
func (c *Config) Params() (oracle.Params, error) {
	p := oracle.Params{
		Message:        c.Oracle.Message,
		IterationLimit: c.Oracle.IterationLimit,
		TimeLimit:      c.Oracle.TimeLimit,
		Scale:          c.Oracle.Scale,
		Tolerance:      c.Oracle.Tolerance,
	}

	switch strings.ToLower(c.Oracle.Method) {
	case "primal", "":
		p.Method = lp.MethodPrimal
	case "dual", "dualp":
		p.Method = lp.MethodDualPrimal
	default:
		return p, fmt.Errorf("invalid oracle.method: %s (valid: primal, dual)", c.Oracle.Method)
	}

	switch strings.ToLower(c.Oracle.Pricing) {
	case "standard", "std":
		p.Pricing = lp.PricingStandard
	case "steepest", "steepest_edge", "":
		p.Pricing = lp.PricingSteepestEdge
	default:
		return p, fmt.Errorf("invalid oracle.pricing: %s (valid: standard, steepest)", c.Oracle.Pricing)
	}

	switch strings.ToLower(c.Oracle.RatioTest) {
	case "standard", "std":
		p.RatioTest = lp.RatioTestStandard
	case "harris", "":
		p.RatioTest = lp.RatioTestHarris
	default:
		return p, fmt.Errorf("invalid oracle.ratio_test: %s (valid: standard, harris)", c.Oracle.RatioTest)
	}
	return p, nil
}

// OracleOptions maps the configuration onto oracle options. The logger is
// passed through unchanged.
func (c *Config) OracleOptions(logger *zap.Logger) ([]oracle.Option, error) {
	p, err := c.Params()
	if err != nil {
		return nil, err
	}
	return []oracle.Option{
		oracle.WithLogger(logger),
		oracle.WithEpsilon(c.PolytopeEps),
		oracle.WithRounding(c.RoundFacets),
		oracle.WithShuffle(c.ShuffleMatrix),
		oracle.WithSeed(c.Seed),
		oracle.WithParams(p),
	}, nil
}

// Logger builds the process logger. Verbose forces the debug level.
func (c LoggingConfig) Logger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if c.Level != "" {
		level, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid logging.level: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}
