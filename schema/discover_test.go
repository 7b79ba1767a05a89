package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/choropleth/engine"
)

// ============================================================================
// DISCOVERY TESTS
// ============================================================================

var surveyRows = []engine.Row{
	{"area_id": "MWI_2_1", "area_name": "Chitipa", "parent_area_id": "MWI_1_1", "sex": "female", "age_group_id": "Y015_049", "survey_id": "MWI2016PHIA", "indicator": "prevalence", "mean": 0.1},
	{"area_id": "MWI_2_2", "area_name": "Karonga", "parent_area_id": "MWI_1_1", "sex": "male", "age_group_id": "Y050_999", "survey_id": "MWI2016PHIA", "indicator": "art_coverage", "mean": 0.6},
	{"area_id": "MWI_1_1", "area_name": "Northern", "sex": "both", "age_group_id": "Y015_049", "survey_id": "MWI2010DHS", "indicator": "prevalence", "mean": 0.2},
}

func TestDiscoverFilterOptions(t *testing.T) {
	view := engine.NewSliceView(surveyRows)

	got := DiscoverFilterOptions(view, engine.DataTypeSurvey)

	assert.Equal(t, []engine.FilterOption{
		{ID: "both", Label: "Both"},
		{ID: "female", Label: "Female"},
		{ID: "male", Label: "Male"},
	}, got.Sex)
	assert.Equal(t, []engine.FilterOption{
		{ID: "Y015_049", Label: "15-49"},
		{ID: "Y050_999", Label: "50+"},
	}, got.Age)
	assert.Equal(t, []engine.FilterOption{
		{ID: "MWI2010DHS", Label: "MWI2010DHS"},
		{ID: "MWI2016PHIA", Label: "MWI2016PHIA"},
	}, got.Survey)
	assert.Nil(t, got.Quarter)
	assert.Nil(t, got.Year)
}

func TestDiscoverFilterOptions_ByDataType(t *testing.T) {
	view := engine.NewSliceView([]engine.Row{
		{"area_id": "a", "sex": "both", "age_group_id": "Y015_049", "quarter_id": "CY2019Q4", "survey_id": "s", "art_current": 10.0},
		{"area_id": "b", "sex": "both", "age_group_id": "Y015_049", "quarter_id": "CY2018Q1", "survey_id": "s", "art_current": 12.0},
	})

	anc := DiscoverFilterOptions(view, engine.DataTypeANC)
	assert.Nil(t, anc.Sex)
	assert.Nil(t, anc.Survey)
	assert.Equal(t, []engine.FilterOption{
		{ID: "CY2018Q1", Label: "Jan-Mar 2018"},
		{ID: "CY2019Q4", Label: "Oct-Dec 2019"},
	}, anc.Quarter)

	program := DiscoverFilterOptions(view, engine.DataTypeProgram)
	assert.Len(t, program.Sex, 1)
	assert.Len(t, program.Quarter, 2)
	assert.Nil(t, program.Survey)

	output := DiscoverFilterOptions(view, engine.DataTypeOutput)
	assert.Len(t, output.Sex, 1)
	assert.Nil(t, output.Quarter)

	assert.Empty(t, DiscoverFilterOptions(nil, engine.DataTypeOutput))
}

func TestDiscoverIndicators_LongFormat(t *testing.T) {
	got := DiscoverIndicators(engine.NewSliceView(surveyRows))

	assert.Equal(t, []engine.IndicatorMetadata{
		{Indicator: "art_coverage", Name: "Art Coverage", ValueColumn: "mean", IndicatorColumn: "indicator", IndicatorValue: "art_coverage", Colour: engine.DefaultColour},
		{Indicator: "prevalence", Name: "Prevalence", ValueColumn: "mean", IndicatorColumn: "indicator", IndicatorValue: "prevalence", Colour: engine.DefaultColour},
	}, got)
}

func TestDiscoverIndicators_WideFormat(t *testing.T) {
	view := engine.NewSliceView([]engine.Row{
		{"area_id": "a", "sex": "both", "prevalence": 0.1, "art_coverage": "0.5", "lower": 0.05, "notes": "x"},
		{"area_id": "b", "sex": "both", "prevalence": 0.2, "art_coverage": "0.7", "lower": 0.15, "notes": "y"},
	})

	got := DiscoverIndicators(view, DiscoverOptions{Colour: "interpolateReds"})

	require.Len(t, got, 2)
	assert.Equal(t, "art_coverage", got[0].Indicator)
	assert.Equal(t, "art_coverage", got[0].ValueColumn)
	assert.Equal(t, "prevalence", got[1].Indicator)
	assert.Equal(t, "interpolateReds", got[1].Colour)
	assert.False(t, got[1].IsLongFormat())
}

func TestDiscoverIndicators_NoValueColumn(t *testing.T) {
	view := engine.NewSliceView([]engine.Row{
		{"area_id": "a", "indicator": "prevalence", "lower": 0.1},
	})
	assert.Empty(t, DiscoverIndicators(view))
	assert.Empty(t, DiscoverIndicators(nil))
}

func TestDiscoverRegions(t *testing.T) {
	got := DiscoverRegions(engine.NewSliceView(surveyRows))

	assert.Equal(t, []engine.NestedFilterOption{
		{ID: "MWI_1_1", Label: "Northern", Children: []engine.NestedFilterOption{
			{ID: "MWI_2_1", Label: "Chitipa"},
			{ID: "MWI_2_2", Label: "Karonga"},
		}},
	}, got)
}

func TestDiscoverRegions_FlatAndMissingParent(t *testing.T) {
	flat := DiscoverRegions(engine.NewSliceView([]engine.Row{
		{"area_id": "b"}, {"area_id": "a"}, {"area_id": "b"},
	}))
	assert.Equal(t, []engine.NestedFilterOption{{ID: "a", Label: "a"}, {ID: "b", Label: "b"}}, flat)

	orphan := DiscoverRegions(engine.NewSliceView([]engine.Row{
		{"area_id": "c1", "parent_area_id": "p"},
		{"area_id": "c2", "parent_area_id": "p"},
	}))
	assert.Equal(t, []engine.NestedFilterOption{
		{ID: "p", Label: "p", Children: []engine.NestedFilterOption{{ID: "c1", Label: "c1"}, {ID: "c2", Label: "c2"}}},
	}, orphan)

	assert.Nil(t, DiscoverRegions(engine.NewSliceView(nil)))
}

func TestDiscoverRegions_ParentCycle(t *testing.T) {
	tree := DiscoverRegions(engine.NewSliceView([]engine.Row{
		{"area_id": "x", "parent_area_id": "y"},
		{"area_id": "y", "parent_area_id": "x"},
		{"area_id": "a", "parent_area_id": "x"},
		{"area_id": "r"},
	}))

	assert.Equal(t, []engine.NestedFilterOption{
		{ID: "r", Label: "r"},
		{ID: "x", Label: "x", Children: []engine.NestedFilterOption{
			{ID: "a", Label: "a"},
			{ID: "y", Label: "y"},
		}},
	}, tree)
	assert.Len(t, engine.FlattenOptions(tree), 4)
}

func TestDiscoverIndicators_ThousandsSeparators(t *testing.T) {
	rows := []engine.Row{
		{"area_id": "a1", "plhiv": "1,234"},
		{"area_id": "a2", "plhiv": "56,789"},
	}
	inds := DiscoverIndicators(engine.NewSliceView(rows))
	require.Len(t, inds, 1)
	assert.Equal(t, "plhiv", inds[0].ValueColumn)

	values := engine.GetRegionIndicators(engine.DataTypeOutput, engine.SelectedFilters{},
		engine.NewSliceView(rows), inds[0])
	assert.Equal(t, 1234.0, values["a1"].Value)
	assert.Equal(t, 56789.0, values["a2"].Value)
}

func TestDiscover(t *testing.T) {
	meta, err := Discover(engine.NewSliceView(surveyRows), engine.DataTypeSurvey)
	require.NoError(t, err)

	assert.Equal(t, "Auto-discovered survey metadata", meta.Name)
	assert.Len(t, meta.Indicators[engine.DataTypeSurvey], 2)
	assert.Len(t, meta.Regions, 1)
	assert.NoError(t, meta.Validate())

	ind, err := meta.Indicator(engine.DataTypeSurvey, "prevalence")
	require.NoError(t, err)
	values := engine.GetRegionIndicators(engine.DataTypeSurvey,
		engine.SelectedFilters{Sex: "female", Age: "Y015_049", Survey: "MWI2016PHIA"},
		engine.NewSliceView(surveyRows), ind)
	assert.Equal(t, 0.1, values["MWI_2_1"].Value)

	_, err = Discover(engine.NewSliceView(nil), engine.DataTypeSurvey)
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = Discover(engine.NewSliceView(surveyRows), engine.DataTypeNone)
	assert.ErrorIs(t, err, engine.ErrUnknownDataType)
}

func TestLabels(t *testing.T) {
	tests := []struct {
		fn    func(string) string
		input string
		want  string
	}{
		{ageLabel, "Y015_049", "15-49"},
		{ageLabel, "Y000_004", "0-4"},
		{ageLabel, "Y050_999", "50+"},
		{ageLabel, "adult", "adult"},
		{quarterLabel, "CY2019Q4", "Oct-Dec 2019"},
		{quarterLabel, "CY2020Q2", "Apr-Jun 2020"},
		{quarterLabel, "476", "476"},
		{toDisplayName, "art_coverage", "Art Coverage"},
		{toDisplayName, "HIV prevalence", "HIV prevalence"},
		{toDisplayName, "both", "Both"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.fn(tt.input), tt.input)
	}
}
