package han

import (
	"log/slog"
	"math/rand"
)

// Option configures an Experiment.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
	rng    *rand.Rand
}

func defaultSettings() settings {
	return settings{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRand sets the random source (default: seeded from the configured
// seed). Tests use it to pin sampling and initialization.
func WithRand(r *rand.Rand) Option {
	return func(s *settings) {
		if r != nil {
			s.rng = r
		}
	}
}
