package engine

import (
	"fmt"
)

// ============================================================================
// SUMMARY BUILDER — Spread of values and a one-line reply
// ============================================================================

// NoDataReply is the reply for a selection that matched no area.
const NoDataReply = "No data available for this selection."

// BuildSummary computes the area count, min, max and mean of a result.
func BuildSummary(values IndicatorValuesDict) *Summary {
	if len(values) == 0 {
		return &Summary{}
	}
	raw := values.Values()
	var total float64
	for _, v := range raw {
		total += v
	}
	return &Summary{
		Areas: len(raw),
		Min:   MinValue(raw),
		Max:   MaxValue(raw),
		Mean:  total / float64(len(raw)),
	}
}

// BuildReply renders a summary as a sentence.
func BuildReply(meta IndicatorMetadata, s *Summary) string {
	if s == nil || s.Areas == 0 {
		return NoDataReply
	}
	noun := "areas"
	if s.Areas == 1 {
		noun = "area"
	}
	return fmt.Sprintf("%s across %d %s ranges from %s to %s (mean %s).",
		LabelForIndicator(meta), s.Areas, noun,
		FormatNumber(s.Min), FormatNumber(s.Max), FormatNumber(RoundTo(s.Mean, 4)))
}
