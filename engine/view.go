package engine

import (
	"strconv"
	"strings"
)

// ============================================================================
// ROW VIEW — Zero-Copy Data Access Interface
// ============================================================================
// The engine never owns row data. It reads through this interface.
//
// Implementations:
//   SliceView      wraps []Row (CSV, JSON, store)
//   DomainView[T]  reads typed structs via accessor functions
//   SubView        filtered subset (indices into parent)
// ============================================================================

// Well-known row columns.
const (
	ColumnAreaID    = "area_id"
	ColumnSex       = "sex"
	ColumnAge       = "age_group_id"
	ColumnSurvey    = "survey_id"
	ColumnQuarter   = "quarter_id"
	ColumnIndicator = "indicator"
)

// Row is a single raw data record keyed by column name. Values are strings,
// numbers or nil. A missing key is distinct from a nil value.
type Row map[string]any

// Lookup returns the value stored under column and whether the key exists.
func (r Row) Lookup(column string) (any, bool) {
	v, ok := r[column]
	return v, ok
}

// String returns the canonical string form of a column value.
// Missing and nil values are "".
func (r Row) String(column string) string {
	return FormatValue(r[column])
}

// Number returns the numeric value of a column. Numeric strings are parsed.
func (r Row) Number(column string) (float64, bool) {
	return toFloat(r[column])
}

// RowView provides indexed access to a dataset.
// The engine calls Value in tight loops, so keep implementations fast.
type RowView interface {
	Len() int
	Value(index int, column string) (any, bool)
	Columns() []string
}

// ============================================================================
// SLICE VIEW — wraps []Row
// ============================================================================

// SliceView wraps a []Row slice as a RowView.
type SliceView struct {
	rows    []Row
	columns []string
}

// NewSliceView creates a RowView from a []Row slice.
func NewSliceView(rows []Row) RowView {
	v := &SliceView{rows: rows}
	v.cacheColumns()
	return v
}

func (v *SliceView) cacheColumns() {
	seen := make(map[string]bool)
	for _, r := range v.rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				v.columns = append(v.columns, k)
			}
		}
	}
}

func (v *SliceView) Len() int { return len(v.rows) }

func (v *SliceView) Value(i int, column string) (any, bool) {
	if i < 0 || i >= len(v.rows) {
		return nil, false
	}
	return v.rows[i].Lookup(column)
}

func (v *SliceView) Columns() []string { return v.columns }

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RowView.
type SubView struct {
	parent  RowView
	indices []int
}

func newSubView(parent RowView, indices []int) RowView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Value(i int, column string) (any, bool) {
	if i < 0 || i >= len(v.indices) {
		return nil, false
	}
	return v.parent.Value(v.indices[i], column)
}

func (v *SubView) Columns() []string { return v.parent.Columns() }

// ============================================================================
// DOMAIN ADAPTER — typed struct access
// ============================================================================
//
// Usage:
//
//	adapter := engine.NewDomainAdapter[SurveyEstimate]().
//	    Column("area_id", func(s SurveyEstimate) any { return s.AreaID }).
//	    Column("mean", func(s SurveyEstimate) any { return s.Mean })
//
//	view := adapter.Bind(estimates)
//
// ============================================================================

// DomainAdapter builds a RowView from typed structs.
// Declare once, bind many times.
type DomainAdapter[T any] struct {
	order []string
	cols  map[string]func(T) any
}

// NewDomainAdapter creates a new adapter for type T.
func NewDomainAdapter[T any]() *DomainAdapter[T] {
	return &DomainAdapter[T]{cols: make(map[string]func(T) any)}
}

// Column registers a column accessor.
func (a *DomainAdapter[T]) Column(key string, fn func(T) any) *DomainAdapter[T] {
	if _, exists := a.cols[key]; !exists {
		a.order = append(a.order, key)
	}
	a.cols[key] = fn
	return a
}

// Bind creates a RowView from a data slice. Holds a reference, no copy.
func (a *DomainAdapter[T]) Bind(data []T) RowView {
	return &DomainView[T]{data: data, cols: a.cols, columns: a.order}
}

// DomainView reads typed struct fields via registered accessor functions.
type DomainView[T any] struct {
	data    []T
	cols    map[string]func(T) any
	columns []string
}

func (v *DomainView[T]) Len() int { return len(v.data) }

// Value reports a column as missing when no accessor is registered for it.
func (v *DomainView[T]) Value(i int, column string) (any, bool) {
	if i < 0 || i >= len(v.data) {
		return nil, false
	}
	fn, ok := v.cols[column]
	if !ok {
		return nil, false
	}
	return fn(v.data[i]), true
}

func (v *DomainView[T]) Columns() []string { return v.columns }

// ============================================================================
// VALUE CONVERSION
// ============================================================================

// FormatValue converts a row value to the string form used for filter
// comparisons. Whole numbers print without a decimal point.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case bool:
		return strconv.FormatBool(x)
	case interface{ String() string }:
		return x.String()
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case string:
		return ParseNumber(x)
	}
	return 0, false
}

// ParseNumber parses a numeric cell, ignoring surrounding space and
// thousands separators ("1,234.5").
func ParseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// stringAt is the view equivalent of Row.String.
func stringAt(view RowView, i int, column string) string {
	v, _ := view.Value(i, column)
	return FormatValue(v)
}
