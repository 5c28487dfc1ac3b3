package regression

import (
	"errors"
	"log/slog"

	"github.com/arloliu/linmix/internal/options"
	"github.com/arloliu/linmix/model"
	"github.com/arloliu/linmix/sampler"
)

// Option configures a Regressor.
type Option = options.Option[*regressorConfig]

type regressorConfig struct {
	logger         *slog.Logger
	samplerOptions []sampler.Option
	compileOptions []model.CompileOption
}

func defaultRegressorConfig() *regressorConfig {
	return &regressorConfig{logger: slog.Default()}
}

// WithLogger sets the logger used for fit progress. It is also handed to the sampler
// unless a sampler option overrides it.
func WithLogger(logger *slog.Logger) Option {
	return options.New(func(c *regressorConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger

		return nil
	})
}

// WithSamplerOptions sets sampler options applied on every fit, before the options
// passed to Fit itself.
//
// Example:
//
//	reg, _ := regression.New(regression.WithSamplerOptions(
//	    sampler.WithChains(2),
//	    sampler.WithSeed(7),
//	))
func WithSamplerOptions(opts ...sampler.Option) Option {
	return options.NoError(func(c *regressorConfig) {
		c.samplerOptions = append(c.samplerOptions, opts...)
	})
}

// WithoutCollapse samples eta directly instead of integrating it out of the likelihood.
// Fits are slower and mix worse when the intrinsic scatter is small.
func WithoutCollapse() Option {
	return options.NoError(func(c *regressorConfig) {
		c.compileOptions = append(c.compileOptions, model.WithoutCollapse())
	})
}
