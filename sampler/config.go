package sampler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/linmix/errs"
	"github.com/arloliu/linmix/internal/options"
)

// Default sampling settings.
const (
	DefaultDraws           = 1000
	DefaultTune            = 1000
	DefaultChains          = 4
	DefaultTargetAccept    = 0.9
	DefaultMaxTreeDepth    = 10
	DefaultMaxRHat         = 1.05
	DefaultAcceptTolerance = 0.1
)

// Config controls a sampling run.
type Config struct {
	// Draws is the number of recorded draws per chain.
	Draws int
	// Tune is the number of adaptation iterations per chain; they are discarded.
	Tune   int
	Chains int
	// TargetAccept is the mean acceptance statistic step-size adaptation aims for.
	TargetAccept float64
	MaxTreeDepth int
	// Seed seeds the chains when Seeded is true. Otherwise a random seed is used.
	Seed   uint64
	Seeded bool
	// Jitter perturbs starting coordinates that have no explicit initial value by U(-1, 1).
	Jitter bool
	// MaxRHat is the largest split R-hat accepted without a warning.
	MaxRHat float64
	// AcceptTolerance is how far a chain's mean acceptance may fall below TargetAccept.
	AcceptTolerance float64
	Logger          *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Draws:           DefaultDraws,
		Tune:            DefaultTune,
		Chains:          DefaultChains,
		TargetAccept:    DefaultTargetAccept,
		MaxTreeDepth:    DefaultMaxTreeDepth,
		Jitter:          true,
		MaxRHat:         DefaultMaxRHat,
		AcceptTolerance: DefaultAcceptTolerance,
	}
}

// Option configures a Config.
type Option = options.Option[*Config]

// NewConfig applies opts over the defaults and validates the result.
//
// Returns:
//   - Config: the validated configuration
//   - error: errs.ErrInvalidConfig if a value is out of range
func NewConfig(opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that every setting is in range.
func (c Config) Validate() error {
	switch {
	case c.Draws < 1:
		return fmt.Errorf("%w: draws must be positive, got %d", errs.ErrInvalidConfig, c.Draws)
	case c.Tune < 0:
		return fmt.Errorf("%w: tune must not be negative, got %d", errs.ErrInvalidConfig, c.Tune)
	case c.Chains < 1:
		return fmt.Errorf("%w: chains must be positive, got %d", errs.ErrInvalidConfig, c.Chains)
	case !(c.TargetAccept > 0 && c.TargetAccept < 1):
		return fmt.Errorf("%w: target accept must be in (0, 1), got %g", errs.ErrInvalidConfig, c.TargetAccept)
	case c.MaxTreeDepth < 1 || c.MaxTreeDepth > 30:
		return fmt.Errorf("%w: max tree depth must be in [1, 30], got %d", errs.ErrInvalidConfig, c.MaxTreeDepth)
	case !(c.MaxRHat > 1):
		return fmt.Errorf("%w: max r-hat must exceed 1, got %g", errs.ErrInvalidConfig, c.MaxRHat)
	case !(c.AcceptTolerance >= 0 && c.AcceptTolerance < 1):
		return fmt.Errorf("%w: accept tolerance must be in [0, 1), got %g", errs.ErrInvalidConfig, c.AcceptTolerance)
	}

	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return slog.Default()
}

// WithConfig replaces every setting with cfg. A nil cfg.Logger keeps the logger already
// configured, so a config from ParseConfig does not silence the caller's logger.
func WithConfig(cfg Config) Option {
	return options.NoError(func(c *Config) {
		logger := c.Logger
		*c = cfg
		if c.Logger == nil {
			c.Logger = logger
		}
	})
}

// WithDraws sets the number of recorded draws per chain.
func WithDraws(n int) Option {
	return options.NoError(func(c *Config) {
		c.Draws = n
	})
}

// WithTune sets the number of tuning iterations per chain.
func WithTune(n int) Option {
	return options.NoError(func(c *Config) {
		c.Tune = n
	})
}

// WithChains sets the number of chains.
func WithChains(n int) Option {
	return options.NoError(func(c *Config) {
		c.Chains = n
	})
}

// WithTargetAccept sets the target acceptance statistic.
func WithTargetAccept(p float64) Option {
	return options.NoError(func(c *Config) {
		c.TargetAccept = p
	})
}

// WithMaxTreeDepth caps the NUTS tree depth.
func WithMaxTreeDepth(depth int) Option {
	return options.NoError(func(c *Config) {
		c.MaxTreeDepth = depth
	})
}

// WithSeed makes the run reproducible.
func WithSeed(seed uint64) Option {
	return options.NoError(func(c *Config) {
		c.Seed = seed
		c.Seeded = true
	})
}

// WithJitter enables or disables jittering of starting points.
func WithJitter(enabled bool) Option {
	return options.NoError(func(c *Config) {
		c.Jitter = enabled
	})
}

// WithMaxRHat sets the split R-hat warning threshold.
func WithMaxRHat(v float64) Option {
	return options.NoError(func(c *Config) {
		c.MaxRHat = v
	})
}

// WithAcceptTolerance sets how far mean acceptance may fall below the target.
func WithAcceptTolerance(v float64) Option {
	return options.NoError(func(c *Config) {
		c.AcceptTolerance = v
	})
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(c *Config) {
		c.Logger = logger
	})
}

// configFile is the YAML form of Config. Absent keys keep their defaults.
type configFile struct {
	Draws           *int     `yaml:"draws"`
	Tune            *int     `yaml:"tune"`
	Chains          *int     `yaml:"chains"`
	TargetAccept    *float64 `yaml:"target_accept"`
	MaxTreeDepth    *int     `yaml:"max_tree_depth"`
	Seed            *uint64  `yaml:"seed"`
	Jitter          *bool    `yaml:"jitter"`
	MaxRHat         *float64 `yaml:"max_rhat"`
	AcceptTolerance *float64 `yaml:"accept_tolerance"`
}

// ParseConfig reads a YAML document over the defaults, then applies opts.
// Unknown keys are rejected.
//
// Example document:
//
//	draws: 2000
//	target_accept: 0.95
//	seed: 42
func ParseConfig(data []byte, opts ...Option) (Config, error) {
	var f configFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: parse yaml: %w", errs.ErrInvalidConfig, err)
	}

	cfg := DefaultConfig()
	setIf(&cfg.Draws, f.Draws)
	setIf(&cfg.Tune, f.Tune)
	setIf(&cfg.Chains, f.Chains)
	setIf(&cfg.TargetAccept, f.TargetAccept)
	setIf(&cfg.MaxTreeDepth, f.MaxTreeDepth)
	setIf(&cfg.Jitter, f.Jitter)
	setIf(&cfg.MaxRHat, f.MaxRHat)
	setIf(&cfg.AcceptTolerance, f.AcceptTolerance)
	if f.Seed != nil {
		cfg.Seed = *f.Seed
		cfg.Seeded = true
	}

	if err := options.Apply(&cfg, opts...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
