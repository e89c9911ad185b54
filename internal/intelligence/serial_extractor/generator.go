package serial_extractor

import (
	"fmt"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// Generator produces prefix + zero_pad(n, padding) + suffix sequences.
type Generator struct {
	maxSize int64
}

// NewGenerator returns a Generator capped at maxSize items; a non-positive
// maxSize selects DefaultMaxRangeSize.
func NewGenerator(maxSize int64) *Generator {
	if maxSize <= 0 {
		maxSize = DefaultMaxRangeSize
	}
	return &Generator{maxSize: maxSize}
}

// Count returns how many serials start..end by step yields, validating the
// arguments and the cap without allocating. A zero step means 1.
func (g *Generator) Count(start, end, step int64) (int64, error) {
	if step < 0 {
		return 0, errors.Validation("step must not be negative").WithDetail(fmt.Sprintf("step=%d", step))
	}
	if step == 0 {
		step = 1
	}
	if start < 0 || end < 0 {
		return 0, errors.Validation("start and end must not be negative")
	}
	if start > end {
		return 0, errors.Validation("start must not exceed end").
			WithDetail(fmt.Sprintf("start=%d end=%d", start, end))
	}
	// span+1 overflows for 0..MaxInt64, so the cap is checked on span.
	span := (end - start) / step
	if span >= g.maxSize {
		return 0, errors.Newf(errors.ErrCodeCapacityExceeded,
			"range exceeds maximum of %d serials", g.maxSize).
			WithDetail(fmt.Sprintf("start=%d end=%d step=%d", start, end, step))
	}
	return span + 1, nil
}

// Generate emits the serials for cfg's prefix, suffix and padding over
// start..end by step. The final step is excluded when it would overshoot end.
func (g *Generator) Generate(cfg serial.PrefixSuffixConfig, start, end, step int64) ([]string, error) {
	size, err := g.Count(start, end, step)
	if err != nil {
		return nil, err
	}
	if step == 0 {
		step = 1
	}
	out := make([]string, 0, size)
	for n := start; n <= end; n += step {
		out = append(out, cfg.Prefix+padNumber(n, cfg.Padding)+cfg.Suffix)
		if end-n < step {
			break
		}
	}
	return out, nil
}

//Personal.AI order the ending
