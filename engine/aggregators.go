package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ============================================================================
// AGGREGATORS — Area Indicator Values and Range Derivation via RowView
// ============================================================================
// Pipeline: resolve regions → filter → extract value per area → range → colour.
// Later rows for an area overwrite earlier ones, in input order.
// ============================================================================

// areaValue is an extracted value before colouring.
type areaValue struct {
	area  string
	value float64
	ok    bool
}

// GetRegionIndicators builds the area id → value/colour map for an
// indicator. A nil view or DataTypeNone yields an empty map; nothing in here
// returns an error.
func GetRegionIndicators(dt DataType, selected SelectedFilters, view RowView, meta IndicatorMetadata, opts ...Option) IndicatorValuesDict {
	cfg := applyOptions(opts)
	values, _ := regionIndicators(dt, selected, view, meta, cfg)
	return values
}

// regionIndicators also reports the range used for colouring.
func regionIndicators(dt DataType, selected SelectedFilters, view RowView, meta IndicatorMetadata, cfg *config) (IndicatorValuesDict, Range) {
	result := make(IndicatorValuesDict)
	if view == nil || dt == DataTypeNone {
		return result, staticRange(meta)
	}

	areas := ResolveSelectedAreaIDs(selected.Regions, cfg.Regions)
	filtered := ApplyFilters(view, dt, selected, meta, areas)

	extracted := extractValues(filtered, meta)
	if filtered.Len() == 0 && view.Len() > 0 && !hasColumn(view, meta.ValueColumn) {
		cfg.Logger.Warn("value column not present in any row",
			"data_type", dt.String(),
			"indicator", meta.Indicator,
			"value_column", meta.ValueColumn,
			"rows", view.Len())
	}

	// A later matching row without a usable value clears the area.
	latest := make(map[string]float64, len(extracted))
	for _, av := range extracted {
		if !av.ok {
			delete(latest, av.area)
			continue
		}
		latest[av.area] = av.value
	}

	rng := IndicatorRange(meta, latest)
	if cfg.Range != nil {
		rng = *cfg.Range
	}

	fn := cfg.colorFunc(meta)
	for area, v := range latest {
		result[area] = IndicatorValue{Value: v, Color: GetColor(v, rng, fn)}
	}

	cfg.Logger.Debug("region indicators computed",
		"data_type", dt.String(),
		"indicator", meta.Indicator,
		"rows", view.Len(),
		"matched", filtered.Len(),
		"areas", len(result))

	return result, rng
}

// extractValues reads the value column of every row in the view, in order.
// Rows without the column are skipped; a nil or non-numeric value is kept
// with ok unset.
func extractValues(view RowView, meta IndicatorMetadata) []areaValue {
	out := make([]areaValue, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		raw, ok := view.Value(i, meta.ValueColumn)
		if !ok {
			continue
		}
		v, ok := toFloat(raw)
		out = append(out, areaValue{area: stringAt(view, i, ColumnAreaID), value: v, ok: ok})
	}
	return out
}

func hasColumn(view RowView, column string) bool {
	for i := 0; i < view.Len(); i++ {
		if _, ok := view.Value(i, column); ok {
			return true
		}
	}
	return false
}

// ============================================================================
// RANGE DERIVATION
// ============================================================================

// staticRange is the range from metadata alone; unset bounds are 0.
func staticRange(meta IndicatorMetadata) Range {
	var rng Range
	if meta.Min != nil {
		rng.Min = *meta.Min
	}
	if meta.Max != nil {
		rng.Max = *meta.Max
	}
	return rng
}

// IndicatorRange returns the colour domain of an indicator: the static
// min/max from metadata where configured, otherwise the min/max of values.
func IndicatorRange(meta IndicatorMetadata, values map[string]float64) Range {
	rng := staticRange(meta)
	if meta.Min != nil && meta.Max != nil {
		return rng
	}
	lo, hi := MinValue(values), MaxValue(values)
	if meta.Min == nil {
		rng.Min = lo
	}
	if meta.Max == nil {
		rng.Max = hi
	}
	return rng
}

// MaxValue returns the largest value, or 0 for an empty map.
func MaxValue(values map[string]float64) float64 {
	m := math.Inf(-1)
	found := false
	for _, v := range values {
		if !found || v > m {
			m = v
			found = true
		}
	}
	if !found {
		return 0
	}
	return m
}

// MinValue returns the smallest value, or 0 for an empty map.
func MinValue(values map[string]float64) float64 {
	m := math.Inf(1)
	found := false
	for _, v := range values {
		if !found || v < m {
			m = v
			found = true
		}
	}
	if !found {
		return 0
	}
	return m
}

// Values strips colours from a dict.
func (d IndicatorValuesDict) Values() map[string]float64 {
	out := make(map[string]float64, len(d))
	for area, v := range d {
		out[area] = v.Value
	}
	return out
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatNumber prints whole numbers without decimals and everything else
// with up to four significant decimals.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// RoundTo rounds to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// LabelForIndicator returns the display name of an indicator.
func LabelForIndicator(meta IndicatorMetadata) string {
	if meta.Name != "" {
		return meta.Name
	}
	if meta.Indicator != "" {
		return meta.Indicator
	}
	return fmt.Sprintf("Value (%s)", meta.ValueColumn)
}
