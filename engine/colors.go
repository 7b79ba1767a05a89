package engine

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// ============================================================================
// COLOURS — Scale Interpolators and Value → Colour Mapping
// ============================================================================
// Indicators name their colour scale the way the plotting metadata does
// ("interpolateViridis", "interpolateReds", ...). Each scale is a list of
// stops blended piecewise; output is "rgb(r, g, b)".
// ============================================================================

// ColorFunc maps a normalized input, nominally in [0,1], to a CSS colour.
type ColorFunc func(t float64) string

// DefaultColour is used when an indicator does not name a colour scale.
const DefaultColour = "interpolateViridis"

var scaleStops = map[string][]string{
	"interpolateViridis": {"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"},
	"interpolateMagma":   {"#000004", "#1c1044", "#4f127b", "#812581", "#b5367a", "#e55964", "#fb8761", "#fec287", "#fcfdbf"},
	"interpolatePlasma":  {"#0d0887", "#5302a3", "#8b0aa5", "#b83289", "#db5c68", "#f48849", "#febd2a", "#f0f921"},
	"interpolateInferno": {"#000004", "#1b0c41", "#4a0c6b", "#781c6d", "#a52c60", "#cf4446", "#ed6925", "#fb9b06", "#f7d13d", "#fcffa4"},
	"interpolateWarm":    {"#6e40aa", "#bf3caf", "#fe4b83", "#ff7847", "#e2b72f", "#aff05b"},
	"interpolateCool":    {"#6e40aa", "#4c6edb", "#23abd8", "#1ddfa3", "#52f667", "#aff05b"},
	"interpolateGreys":   {"#ffffff", "#d9d9d9", "#969696", "#525252", "#000000"},
	"interpolateReds":    {"#fff5f0", "#fcbba1", "#fb6a4a", "#cb181d", "#67000d"},
	"interpolateBlues":   {"#f7fbff", "#c6dbef", "#6baed6", "#2171b5", "#08306b"},
	"interpolateGreens":  {"#f7fcf5", "#c7e9c0", "#74c476", "#238b45", "#00441b"},
	"interpolateOranges": {"#fff5eb", "#fdd0a2", "#fd8d3c", "#d94801", "#7f2704"},
	"interpolatePurples": {"#fcfbfd", "#dadaeb", "#9e9ac8", "#6a51a3", "#3f007d"},
	"interpolateRdYlGn":  {"#a50026", "#f46d43", "#fee08b", "#d9ef8b", "#66bd63", "#006837"},
}

var (
	registryMu sync.RWMutex
	registry   = map[string]ColorFunc{}
)

func init() {
	for name, stops := range scaleStops {
		registry[name] = newStopInterpolator(stops)
	}
}

// RegisterColorFunc adds or replaces a named colour scale.
func RegisterColorFunc(name string, fn ColorFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// ColorFuncFor looks up a colour scale by name. An empty name selects
// DefaultColour.
func ColorFuncFor(name string) (ColorFunc, error) {
	if name == "" {
		name = DefaultColour
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColour, name)
	}
	return fn, nil
}

// ColorScales returns the registered scale names, sorted.
func ColorScales() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newStopInterpolator(hexStops []string) ColorFunc {
	stops := make([]colorful.Color, len(hexStops))
	for i, h := range hexStops {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(fmt.Sprintf("invalid colour stop %q: %v", h, err))
		}
		stops[i] = c
	}
	return func(t float64) string {
		if math.IsNaN(t) {
			t = 0
		}
		t = math.Max(0, math.Min(1, t))
		segments := len(stops) - 1
		if segments == 0 {
			return formatRGB(stops[0])
		}
		pos := t * float64(segments)
		i := int(math.Floor(pos))
		if i >= segments {
			return formatRGB(stops[segments])
		}
		return formatRGB(stops[i].BlendRgb(stops[i+1], pos-float64(i)))
	}
}

func formatRGB(c colorful.Color) string {
	r, g, b := c.Clamped().RGB255()
	return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
}

// GetColor normalizes value against the range and passes it to fn.
// The span is Max-Min when Max is set and differs from Min, otherwise 1, so
// a degenerate range never divides by zero.
func GetColor(value float64, rng Range, fn ColorFunc) string {
	span := 1.0
	if rng.Max != 0 && rng.Max != rng.Min {
		span = rng.Max - rng.Min
	}
	return fn(value / span)
}

// indicatorColorFunc resolves the indicator's scale, honouring InvertScale.
func indicatorColorFunc(meta IndicatorMetadata) (ColorFunc, error) {
	fn, err := ColorFuncFor(meta.Colour)
	if err != nil {
		return nil, err
	}
	if meta.InvertScale {
		return func(t float64) string { return fn(1 - t) }, nil
	}
	return fn, nil
}

// ColorForIndicator colours a single value of an indicator.
func ColorForIndicator(value float64, meta IndicatorMetadata, rng Range) (string, error) {
	fn, err := indicatorColorFunc(meta)
	if err != nil {
		return "", err
	}
	return GetColor(value, rng, fn), nil
}
