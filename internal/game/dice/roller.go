package dice

import "go.uber.org/zap"

// Roller wraps a Source with the roll shapes the simulation needs and logs
// every roll at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller over src.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Source returns the underlying randomness provider.
func (r *Roller) Source() Source { return r.src }

// Percentile returns a uniform roll in [1, 100].
func (r *Roller) Percentile() int {
	v := r.src.Intn(100) + 1
	r.logger.Debug("percentile roll", zap.Int("roll", v))
	return v
}

// Between returns a uniform roll in [lo, hi]. If hi <= lo it returns lo.
func (r *Roller) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	v := lo + r.src.Intn(hi-lo+1)
	r.logger.Debug("range roll", zap.Int("min", lo), zap.Int("max", hi), zap.Int("roll", v))
	return v
}

// Chance reports whether an event with probability p in [0, 1] happens.
// p <= 0 never happens and p >= 1 always happens without consuming a roll.
func (r *Roller) Chance(p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}
	const resolution = 1_000_000
	v := r.src.Intn(resolution)
	hit := float64(v) < p*resolution
	r.logger.Debug("chance roll", zap.Float64("p", p), zap.Bool("hit", hit))
	return hit
}

// Roll evaluates expr and logs the result.
func (r *Roller) Roll(expr Expression) RollResult {
	result := Roll(expr, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}

// RollExpr parses and rolls expr.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e), nil
}
