package schema

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/spektr-org/choropleth/engine"
)

// ============================================================================
// AUTO-DISCOVERY — Heuristic metadata from raw rows
// ============================================================================
// Inspects rows of one data type and generates Metadata automatically.
//
// Pipeline:
//   1. Sample values per column → detect numeric vs text
//   2. Filter columns of the data type → FilterOptions (sorted, labelled)
//   3. Long format (indicator column) → one indicator per distinct value
//      Wide format → one indicator per numeric non-reserved column
//   4. parent_area_id / area_name columns → region tree
// ============================================================================

// ErrNoRows is returned when there is nothing to discover from.
var ErrNoRows = errors.New("no data rows")

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	SampleSize int    // Max rows to inspect for column typing (0 = all). Default: 1000
	Name       string // Metadata name
	Colour     string // Colour scale given to discovered indicators
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		SampleSize: 1000,
		Colour:     engine.DefaultColour,
	}
}

// Columns that never hold an indicator value.
var reservedColumns = map[string]bool{
	engine.ColumnAreaID:  true,
	engine.ColumnSex:     true,
	engine.ColumnAge:     true,
	engine.ColumnSurvey:  true,
	engine.ColumnQuarter: true,
	"area_name":          true,
	"area_level":         true,
	"parent_area_id":     true,
	"age_group":          true,
	"age_group_label":    true,
	"calendar_quarter":   true,
	"year":               true,
	"indicator":          true,
	"indicator_id":       true,
	"lower":              true,
	"upper":              true,
	"se":                 true,
	"std_error":          true,
	"n_obs":              true,
	"n_eff":              true,
	"n_clusters":         true,
	"mode":               true,
	"median":             true,
}

// Value columns tried, in order, for long format data.
var longValueColumns = []string{"mean", "value", "est", "estimate"}

// Discover generates Metadata for a single data type from its rows.
func Discover(view engine.RowView, dt engine.DataType, opts ...DiscoverOptions) (*Metadata, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	if dt == engine.DataTypeNone {
		return nil, fmt.Errorf("discover: %w", engine.ErrUnknownDataType)
	}
	if view == nil || view.Len() == 0 {
		return nil, ErrNoRows
	}

	name := opt.Name
	if name == "" {
		name = fmt.Sprintf("Auto-discovered %s metadata", dt)
	}

	filters := DiscoverFilterOptions(view, dt)
	regions := DiscoverRegions(view)

	return &Metadata{
		Name: name,
		Indicators: map[engine.DataType][]engine.IndicatorMetadata{
			dt: DiscoverIndicators(view, opt),
		},
		Filters: map[engine.DataType]engine.FilterOptions{dt: filters},
		Regions: regions,
	}, nil
}

// ============================================================================
// FILTER OPTIONS
// ============================================================================

// DiscoverFilterOptions lists the distinct values of every filter column
// that applies to the data type. Region options are left to DiscoverRegions.
func DiscoverFilterOptions(view engine.RowView, dt engine.DataType) engine.FilterOptions {
	var opts engine.FilterOptions
	if view == nil {
		return opts
	}
	if dt.AppliesSex() {
		opts.Sex = distinctOptions(view, engine.ColumnSex, sexLabel)
	}
	opts.Age = distinctOptions(view, engine.ColumnAge, ageLabel)
	if dt.AppliesSurvey() {
		opts.Survey = distinctOptions(view, engine.ColumnSurvey, nil)
	}
	if dt.AppliesQuarter() {
		opts.Quarter = distinctOptions(view, engine.ColumnQuarter, quarterLabel)
	}
	opts.Year = distinctOptions(view, "year", nil)
	return opts
}

// distinctOptions collects the sorted distinct non-empty values of a column.
func distinctOptions(view engine.RowView, column string, label func(string) string) []engine.FilterOption {
	seen := make(map[string]bool)
	var ids []string
	for i := 0; i < view.Len(); i++ {
		v, ok := view.Value(i, column)
		if !ok {
			continue
		}
		id := engine.FormatValue(v)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)

	out := make([]engine.FilterOption, len(ids))
	for i, id := range ids {
		l := id
		if label != nil {
			l = label(id)
		}
		out[i] = engine.FilterOption{ID: id, Label: l}
	}
	return out
}

func sexLabel(id string) string {
	return toDisplayName(id)
}

var ageGroupRe = regexp.MustCompile(`^Y(\d{3})_(\d{3})$`)

// ageLabel turns "Y015_049" into "15-49" and "Y050_999" into "50+".
func ageLabel(id string) string {
	m := ageGroupRe.FindStringSubmatch(id)
	if m == nil {
		return id
	}
	lo, _ := strconv.Atoi(m[1])
	hi, _ := strconv.Atoi(m[2])
	if hi >= 999 {
		return fmt.Sprintf("%d+", lo)
	}
	return fmt.Sprintf("%d-%d", lo, hi)
}

var quarterRe = regexp.MustCompile(`^CY(\d{4})Q([1-4])$`)

var quarterMonths = []string{"Jan-Mar", "Apr-Jun", "Jul-Sep", "Oct-Dec"}

// quarterLabel turns "CY2019Q4" into "Oct-Dec 2019".
func quarterLabel(id string) string {
	m := quarterRe.FindStringSubmatch(id)
	if m == nil {
		return id
	}
	q, _ := strconv.Atoi(m[2])
	return fmt.Sprintf("%s %s", quarterMonths[q-1], m[1])
}

// ============================================================================
// INDICATORS
// ============================================================================

// DiscoverIndicators infers indicator metadata. Rows with an "indicator" (or
// "indicator_id") column are long format; otherwise every numeric column
// that is not reserved becomes a wide format indicator.
func DiscoverIndicators(view engine.RowView, opts ...DiscoverOptions) []engine.IndicatorMetadata {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	if view == nil || view.Len() == 0 {
		return nil
	}

	columns := analyzeColumns(view, opt.SampleSize)

	if indCol := longFormatColumn(columns); indCol != "" {
		valueCol := ""
		for _, c := range longValueColumns {
			if col, ok := columns[c]; ok && col.numeric {
				valueCol = c
				break
			}
		}
		if valueCol == "" {
			return nil
		}
		var out []engine.IndicatorMetadata
		for _, o := range distinctOptions(view, indCol, nil) {
			out = append(out, engine.IndicatorMetadata{
				Indicator:       o.ID,
				Name:            toDisplayName(o.ID),
				ValueColumn:     valueCol,
				IndicatorColumn: indCol,
				IndicatorValue:  o.ID,
				Colour:          opt.Colour,
			})
		}
		return out
	}

	keys := make([]string, 0, len(columns))
	for key, col := range columns {
		if col.numeric && !reservedColumns[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := make([]engine.IndicatorMetadata, 0, len(keys))
	for _, key := range keys {
		out = append(out, engine.IndicatorMetadata{
			Indicator:   key,
			Name:        toDisplayName(key),
			ValueColumn: key,
			Colour:      opt.Colour,
		})
	}
	return out
}

func longFormatColumn(columns map[string]columnAnalysis) string {
	for _, c := range []string{"indicator", "indicator_id"} {
		if col, ok := columns[c]; ok && !col.numeric {
			return c
		}
	}
	return ""
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

type columnAnalysis struct {
	key        string
	totalCount int
	nullCount  int
	numCount   int
	numeric    bool
}

// analyzeColumns types every column from up to sampleSize rows.
// A column is numeric when 80%+ of its non-null values parse as numbers.
func analyzeColumns(view engine.RowView, sampleSize int) map[string]columnAnalysis {
	limit := view.Len()
	if sampleSize > 0 && sampleSize < limit {
		limit = sampleSize
	}

	columns := make(map[string]columnAnalysis)
	for _, key := range view.Columns() {
		col := columnAnalysis{key: key}
		for i := 0; i < limit; i++ {
			v, ok := view.Value(i, key)
			col.totalCount++
			if !ok || v == nil || isNull(engine.FormatValue(v)) {
				col.nullCount++
				continue
			}
			if isNumeric(v) {
				col.numCount++
			}
		}
		nonNull := col.totalCount - col.nullCount
		col.numeric = nonNull > 0 && col.numCount >= int(float64(nonNull)*0.8)
		columns[key] = col
	}
	return columns
}

func isNull(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "null", "NULL", "NA", "N/A", "n/a":
		return true
	}
	return false
}

func isNumeric(v any) bool {
	switch x := v.(type) {
	case float64, float32, int, int64, int32:
		return true
	case string:
		_, ok := engine.ParseNumber(x)
		return ok
	}
	return false
}

// ============================================================================
// REGIONS
// ============================================================================

// DiscoverRegions builds a region tree from area_id, area_name and
// parent_area_id columns. Without parent_area_id the areas form a flat list.
// Children are ordered by id.
func DiscoverRegions(view engine.RowView) []engine.NestedFilterOption {
	if view == nil {
		return nil
	}

	labels := make(map[string]string)
	parents := make(map[string]string)
	var order []string
	for i := 0; i < view.Len(); i++ {
		raw, ok := view.Value(i, engine.ColumnAreaID)
		if !ok {
			continue
		}
		id := engine.FormatValue(raw)
		if id == "" {
			continue
		}
		if _, seen := labels[id]; !seen {
			order = append(order, id)
			labels[id] = id
		}
		if name, ok := view.Value(i, "area_name"); ok {
			if s := engine.FormatValue(name); s != "" {
				labels[id] = s
			}
		}
		if parent, ok := view.Value(i, "parent_area_id"); ok {
			if s := engine.FormatValue(parent); s != "" && s != id {
				parents[id] = s
			}
		}
	}
	if len(order) == 0 {
		return nil
	}

	children := make(map[string][]string)
	var roots []string
	for _, id := range order {
		p, ok := parents[id]
		if !ok {
			roots = append(roots, id)
			continue
		}
		if _, known := labels[p]; !known {
			// Parent never appears as an area of its own.
			labels[p] = p
			roots = append(roots, p)
		}
		children[p] = append(children[p], id)
	}
	roots = dedupe(roots)
	// Parents added as roots may themselves be children of another area.
	filtered := roots[:0]
	for _, r := range roots {
		if _, hasParent := parents[r]; !hasParent {
			filtered = append(filtered, r)
		}
	}
	roots = filtered

	reached := make(map[string]bool, len(labels))
	var mark func(id string)
	mark = func(id string) {
		if reached[id] {
			return
		}
		reached[id] = true
		for _, c := range children[id] {
			mark(c)
		}
	}
	for _, r := range roots {
		mark(r)
	}
	// Areas whose parent links loop back on themselves hang off no root.
	// The smallest id on each loop is promoted to a root.
	for {
		next := ""
		for id := range labels {
			if !reached[id] && (next == "" || id < next) {
				next = id
			}
		}
		if next == "" {
			break
		}
		r := cycleMember(next, parents)
		roots = append(roots, r)
		mark(r)
	}

	var build func(id string, path map[string]bool) engine.NestedFilterOption
	build = func(id string, path map[string]bool) engine.NestedFilterOption {
		node := engine.NestedFilterOption{ID: id, Label: labels[id]}
		path[id] = true
		kids := dedupe(children[id])
		sort.Strings(kids)
		for _, c := range kids {
			if path[c] {
				continue
			}
			node.Children = append(node.Children, build(c, path))
		}
		delete(path, id)
		return node
	}

	sort.Strings(roots)
	tree := make([]engine.NestedFilterOption, 0, len(roots))
	for _, r := range roots {
		tree = append(tree, build(r, map[string]bool{}))
	}
	return tree
}

// cycleMember follows parent links from id until they repeat and returns
// the smallest id on the loop.
func cycleMember(id string, parents map[string]string) string {
	seen := make(map[string]bool)
	for !seen[id] {
		seen[id] = true
		id = parents[id]
	}
	least := id
	for p := parents[id]; p != id; p = parents[p] {
		if p < least {
			least = p
		}
	}
	return least
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// toDisplayName cleans a column or id for human display.
// "art_coverage" → "Art Coverage", "both" → "Both"
func toDisplayName(s string) string {
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}

	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		for j := 1; j < len(r); j++ {
			r[j] = unicode.ToLower(r[j])
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
