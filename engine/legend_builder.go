package engine

// ============================================================================
// LEGEND BUILDER — Evenly spaced colour stops across an indicator range
// ============================================================================

// BuildLegend produces steps stops from rng.Min to rng.Max, coloured the same
// way area values are. A degenerate range yields a single stop.
func BuildLegend(meta IndicatorMetadata, rng Range, steps int, opts ...Option) []LegendStop {
	cfg := applyOptions(append(opts, WithLegendSteps(steps)))
	return buildLegend(meta, rng, cfg)
}

func buildLegend(meta IndicatorMetadata, rng Range, cfg *config) []LegendStop {
	fn := cfg.colorFunc(meta)
	if rng.Max == rng.Min {
		return []LegendStop{{Value: rng.Min, Color: GetColor(rng.Min, rng, fn)}}
	}

	steps := cfg.LegendSteps
	stops := make([]LegendStop, 0, steps)
	width := (rng.Max - rng.Min) / float64(steps-1)
	for i := 0; i < steps; i++ {
		v := rng.Min + width*float64(i)
		if i == steps-1 {
			v = rng.Max
		}
		stops = append(stops, LegendStop{
			Value: RoundTo(v, 4),
			Color: GetColor(v, rng, fn),
		})
	}
	return stops
}
