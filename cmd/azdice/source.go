package main

import (
	"sync/atomic"

	"github.com/cory-johannsen/azdice/internal/config"
	"github.com/cory-johannsen/azdice/internal/dice"
)

// newSource builds the Source selected by cfg.
//
// Precondition: cfg has been validated.
func newSource(cfg config.RollerConfig) dice.Source {
	switch cfg.Source {
	case "seeded":
		return dice.NewSeededSource(cfg.Seed)
	case "math":
		return dice.NewMathSource()
	default:
		return dice.NewCryptoSource()
	}
}

// workerSources returns a per-worker Source factory for distribution
// sampling. Seeded runs give each worker its own generator derived from the
// seed; nil means the shared concurrent-safe source is used.
func workerSources(cfg config.RollerConfig) func() dice.Source {
	if cfg.Source != "seeded" {
		return nil
	}
	var n atomic.Uint64
	return func() dice.Source {
		return dice.NewSeededSource(cfg.Seed + n.Add(1))
	}
}
