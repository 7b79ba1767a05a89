package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	meta := IndicatorMetadata{Indicator: "prevalence", Name: "HIV prevalence", ValueColumn: "mean", Colour: "interpolateGreys"}
	rows := []Row{
		{"area_id": "MWI_2_1", "sex": "both", "age_group_id": "Y015_049", "mean": 0.1},
		{"area_id": "MWI_2_2", "sex": "both", "age_group_id": "Y015_049", "mean": 0.3},
		{"area_id": "MWI_2_3", "sex": "both", "age_group_id": "Y015_049", "mean": 0.2},
		{"area_id": "MWI_2_2", "sex": "male", "age_group_id": "Y015_049", "mean": 0.9},
	}
	req := Request{
		DataType:  DataTypeOutput,
		Indicator: meta,
		Selected:  SelectedFilters{Sex: "both", Age: "Y015_049", Regions: []string{"MWI_1_1"}},
	}

	result := Execute(req, NewSliceView(rows), WithRegions(FlattenOptions(malawiTree)), WithLegendSteps(3))

	require.Len(t, result.Values, 2)
	assert.Equal(t, Range{Min: 0.1, Max: 0.3}, result.Range)
	assert.Len(t, result.Legend, 3)
	require.NotNil(t, result.Table)
	assert.Equal(t, [][]string{
		{"MWI_2_1", "Chitipa", "0.1", result.Values["MWI_2_1"].Color},
		{"MWI_2_2", "Karonga", "0.3", result.Values["MWI_2_2"].Color},
	}, result.Table.Rows)
	assert.Equal(t, 2, result.Summary.Areas)
	assert.InDelta(t, 0.2, result.Summary.Mean, 1e-9)
	assert.Equal(t, "HIV prevalence across 2 areas ranges from 0.1 to 0.3 (mean 0.2).", result.Reply)
}

func TestExecute_NoData(t *testing.T) {
	result := Execute(Request{DataType: DataTypeSurvey, Indicator: prevMeta}, nil)

	assert.Empty(t, result.Values)
	assert.Nil(t, result.Legend)
	assert.Nil(t, result.Table)
	assert.Equal(t, NoDataReply, result.Reply)

	b, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"values":{}`)
	assert.Contains(t, string(b), `"dataType":"survey"`)
}

func TestRequestKey(t *testing.T) {
	a := Request{DataType: DataTypeSurvey, Indicator: prevMeta, Selected: SelectedFilters{Regions: []string{"b", "a"}}}
	b := Request{DataType: DataTypeSurvey, Indicator: prevMeta, Selected: SelectedFilters{Regions: []string{"a", "b"}}}
	c := Request{DataType: DataTypeANC, Indicator: prevMeta, Selected: SelectedFilters{Regions: []string{"a", "b"}}}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.Equal(t, []string{"b", "a"}, a.Selected.Regions)
}

func TestRequestKey_ColourInputsAndYear(t *testing.T) {
	base := Request{DataType: DataTypeSurvey, Indicator: prevMeta, Selected: SelectedFilters{Sex: "both"}}

	withYear := base
	withYear.Selected.Year = "2016"
	assert.Equal(t, base.Key(), withYear.Key())

	recoloured := base
	recoloured.Indicator.Colour = "interpolateReds"
	inverted := base
	inverted.Indicator.InvertScale = true
	bounded := base
	bounded.Indicator.Min = ptr(0.1)
	rebounded := bounded
	rebounded.Indicator.Max = ptr(1)
	unbounded := base
	unbounded.Indicator.Min = nil
	unbounded.Indicator.Max = nil

	keys := []string{base.Key(), recoloured.Key(), inverted.Key(), bounded.Key(), rebounded.Key(), unbounded.Key()}
	for i := range keys {
		for j := i + 1; j < len(keys); j++ {
			assert.NotEqual(t, keys[i], keys[j], "keys %d and %d collide", i, j)
		}
	}
}

func TestParseDataType(t *testing.T) {
	for _, dt := range DataTypes {
		parsed, err := ParseDataType(dt.String())
		require.NoError(t, err)
		assert.Equal(t, dt, parsed)
	}

	parsed, err := ParseDataType("Programme")
	require.NoError(t, err)
	assert.Equal(t, DataTypeProgram, parsed)

	_, err = ParseDataType("census")
	assert.ErrorIs(t, err, ErrUnknownDataType)

	var decoded map[DataType]string
	require.NoError(t, json.Unmarshal([]byte(`{"anc":"x","output":"y"}`), &decoded))
	assert.Equal(t, map[DataType]string{DataTypeANC: "x", DataTypeOutput: "y"}, decoded)
}

func TestBuildAreaTable_Empty(t *testing.T) {
	table := BuildAreaTable(IndicatorValuesDict{}, nil, IndicatorMetadata{ValueColumn: "mean"})
	assert.Equal(t, "Value (mean)", table.Title)
	assert.Empty(t, table.Rows)
}
