package engine

import (
	"log/slog"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for GetRegionIndicators() / Execute()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	Logger      *slog.Logger
	Regions     FlattenedOptions // region lookup for descendant resolution
	ColorFunc   ColorFunc        // overrides the indicator's named scale
	Range       *Range           // overrides static/dynamic range derivation
	LegendSteps int
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.Logger = logger
	}
}

// WithRegions sets the flattened region tree used to expand selected regions
// into their descendants. Without it only the selected ids themselves match.
func WithRegions(regions FlattenedOptions) Option {
	return func(c *config) {
		c.Regions = regions
	}
}

// WithColorFunc replaces the indicator's named colour scale.
// InvertScale is still honoured.
func WithColorFunc(fn ColorFunc) Option {
	return func(c *config) {
		c.ColorFunc = fn
	}
}

// WithRange fixes the colour domain instead of deriving it.
func WithRange(rng Range) Option {
	return func(c *config) {
		c.Range = &rng
	}
}

// WithLegendSteps sets how many legend stops Execute builds (minimum 2).
func WithLegendSteps(steps int) Option {
	return func(c *config) {
		c.LegendSteps = steps
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{
		LegendSteps: 6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LegendSteps < 2 {
		cfg.LegendSteps = 2
	}
	return cfg
}

// colorFunc returns the override (inverted when asked) or the indicator's
// scale. Unknown scales fall back to DefaultColour with a warning.
func (c *config) colorFunc(meta IndicatorMetadata) ColorFunc {
	if c.ColorFunc != nil {
		if meta.InvertScale {
			fn := c.ColorFunc
			return func(t float64) string { return fn(1 - t) }
		}
		return c.ColorFunc
	}
	fn, err := indicatorColorFunc(meta)
	if err != nil {
		c.Logger.Warn("falling back to default colour scale",
			"indicator", meta.Indicator, "colour", meta.Colour, "err", err)
		fallback := meta
		fallback.Colour = DefaultColour
		fn, _ = indicatorColorFunc(fallback)
	}
	return fn
}
