package engine

// ============================================================================
// FILTERS — Per-Data-Type Row Predicate via RowView
// ============================================================================
// Single-pass filter: checks every applicable constraint per row in one loop.
// Returns a SubView (index list into parent) with no data copy.
//
// Which dimensions apply is decided by the ruleSet of the active data type.
// Age and region apply to every data type.
// ============================================================================

// ruleSet lists the optional filter dimensions of a data type.
type ruleSet struct {
	sex     bool
	survey  bool
	quarter bool
}

var rules = map[DataType]ruleSet{
	DataTypeSurvey:  {sex: true, survey: true},
	DataTypeProgram: {sex: true, quarter: true},
	DataTypeANC:     {quarter: true},
	DataTypeOutput:  {sex: true},
}

// AppliesSex reports whether the sex filter applies to the data type.
func (d DataType) AppliesSex() bool { return rules[d].sex }

// AppliesSurvey reports whether the survey filter applies to the data type.
func (d DataType) AppliesSurvey() bool { return rules[d].survey }

// AppliesQuarter reports whether the quarter filter applies to the data type.
func (d DataType) AppliesQuarter() bool { return rules[d].quarter }

// rowPredicate is IncludeRow with its inputs bound once per pass.
type rowPredicate struct {
	rules    ruleSet
	selected SelectedFilters
	meta     IndicatorMetadata
	areas    AreaSet
}

func newRowPredicate(dt DataType, selected SelectedFilters, meta IndicatorMetadata, areas AreaSet) rowPredicate {
	return rowPredicate{rules: rules[dt], selected: selected, meta: meta, areas: areas}
}

func (p rowPredicate) include(view RowView, i int) bool {
	if _, ok := view.Value(i, p.meta.ValueColumn); !ok {
		return false
	}
	if p.rules.sex && !matches(view, i, ColumnSex, p.selected.Sex) {
		return false
	}
	if !matches(view, i, ColumnAge, p.selected.Age) {
		return false
	}
	if p.rules.survey && !matches(view, i, ColumnSurvey, p.selected.Survey) {
		return false
	}
	if p.rules.quarter && !matches(view, i, ColumnQuarter, p.selected.Quarter) {
		return false
	}
	if !p.areas.Contains(stringAt(view, i, ColumnAreaID)) {
		return false
	}
	if p.meta.IsLongFormat() && stringAt(view, i, p.meta.IndicatorColumn) != p.meta.IndicatorValue {
		return false
	}
	return true
}

// matches skips the check when nothing is selected for the dimension.
func matches(view RowView, i int, column, want string) bool {
	if want == "" {
		return true
	}
	return stringAt(view, i, column) == want
}

// IncludeRow decides whether a single row is part of the choropleth for the
// given data type, selection and indicator. areas comes from
// ResolveSelectedAreaIDs; nil means every area.
func IncludeRow(dt DataType, selected SelectedFilters, meta IndicatorMetadata, areas AreaSet, row Row) bool {
	if dt == DataTypeNone {
		return false
	}
	return newRowPredicate(dt, selected, meta, areas).include(NewSliceView([]Row{row}), 0)
}

// ApplyFilters returns a view of the rows that pass IncludeRow.
// With no data type nothing passes.
func ApplyFilters(view RowView, dt DataType, selected SelectedFilters, meta IndicatorMetadata, areas AreaSet) RowView {
	if view == nil || dt == DataTypeNone {
		return newSubView(NewSliceView(nil), nil)
	}

	p := newRowPredicate(dt, selected, meta, areas)
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if p.include(view, i) {
			indices = append(indices, i)
		}
	}
	return newSubView(view, indices)
}
