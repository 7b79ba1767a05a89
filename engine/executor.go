package engine

import (
	"slices"
	"strconv"
	"strings"
)

// ============================================================================
// EXECUTOR — Choropleth pipeline
// ============================================================================
// Entry point: Execute(req, view, opts...)
//
// Pipeline:
//   1. Resolve selected regions → AreaSet
//   2. Filter rows for the data type → SubView
//   3. Extract one value per area (last row wins)
//   4. Derive range, colour values
//   5. Build legend, table and summary
//
// This function never performs I/O. All computation is local.
// ============================================================================

// Request is everything a single choropleth computation depends on.
type Request struct {
	DataType  DataType          `json:"dataType"`
	Indicator IndicatorMetadata `json:"indicator"`
	Selected  SelectedFilters   `json:"selected"`
}

// Key is a stable string identifying the request, suitable for caching.
// Year is left out since no filter rule applies it.
func (r Request) Key() string {
	regions := slices.Clone(r.Selected.Regions)
	slices.Sort(regions)
	return strings.Join([]string{
		r.DataType.String(),
		r.Indicator.Indicator,
		r.Indicator.Name,
		r.Indicator.ValueColumn,
		r.Indicator.IndicatorColumn,
		r.Indicator.IndicatorValue,
		r.Indicator.Colour,
		strconv.FormatBool(r.Indicator.InvertScale),
		boundKey(r.Indicator.Min),
		boundKey(r.Indicator.Max),
		r.Selected.Sex,
		r.Selected.Age,
		r.Selected.Survey,
		r.Selected.Quarter,
		strings.Join(regions, ","),
	}, "|")
}

func boundKey(b *float64) string {
	if b == nil {
		return ""
	}
	return strconv.FormatFloat(*b, 'g', -1, 64)
}

// Execute runs the full pipeline and returns a render-ready Result.
// Missing data yields a Result with empty Values and NoDataReply.
func Execute(req Request, view RowView, opts ...Option) *Result {
	cfg := applyOptions(opts)

	values, rng := regionIndicators(req.DataType, req.Selected, view, req.Indicator, cfg)

	result := &Result{
		DataType:  req.DataType,
		Indicator: req.Indicator,
		Selected:  req.Selected,
		Values:    values,
		Range:     rng,
		Summary:   BuildSummary(values),
	}
	result.Reply = BuildReply(req.Indicator, result.Summary)

	if len(values) == 0 {
		return result
	}

	result.Legend = buildLegend(req.Indicator, rng, cfg)
	result.Table = BuildAreaTable(values, cfg.Regions, req.Indicator)

	cfg.Logger.Info("choropleth computed",
		"data_type", req.DataType.String(),
		"indicator", req.Indicator.Indicator,
		"areas", len(values),
		"min", rng.Min,
		"max", rng.Max)

	return result
}
