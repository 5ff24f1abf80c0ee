package dice

import (
	"context"

	"go.uber.org/zap"
)

// Roller wraps a Source and logger to provide logged dice rolling.
// Every roll is logged at debug level with expression, dice, bonus and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Source returns the roller's randomness provider.
func (r *Roller) Source() Source { return r.src }

// Roll evaluates b once and logs the result at debug level.
func (r *Roller) Roll(b *Bag) RollResult {
	result := b.Roll(r.src)
	kept := make([][]int64, len(result.Dice))
	for i, d := range result.Dice {
		kept[i] = d.Values
	}
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Any("dice", kept),
		zap.Int64("bonus", result.Bonus.Subtotal),
		zap.Int64("total", result.Total),
	)
	return result
}

// RollExpr parses expr and rolls it, logging the result.
//
// Postcondition: returns a RollResult or the *ParseError from Parse.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	b, err := Parse(expr)
	if err != nil {
		r.logger.Debug("dice parse failed", zap.String("input", expr), zap.Error(err))
		return RollResult{}, err
	}
	return r.Roll(b), nil
}

// Distribution samples b rolls times across workers goroutines and logs a
// summary. Workers draw from r's Source when it is safe for concurrent use,
// otherwise pass a per-worker factory via newSource.
func (r *Roller) Distribution(ctx context.Context, b *Bag, rolls, workers int, newSource func() Source) (Histogram, error) {
	if newSource == nil {
		newSource = func() Source { return r.src }
	}
	counts, err := b.Sample(ctx, rolls, workers, newSource)
	if err != nil {
		r.logger.Warn("dice distribution aborted",
			zap.String("expression", b.String()),
			zap.Int("rolls", rolls),
			zap.Error(err),
		)
		return nil, err
	}
	h := NewHistogram(counts, rolls)
	r.logger.Debug("dice distribution",
		zap.String("expression", b.String()),
		zap.Int("rolls", rolls),
		zap.Int("bins", len(h)),
		zap.Float64("mean", h.Mean()),
	)
	return h, nil
}
