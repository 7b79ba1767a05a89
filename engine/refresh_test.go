package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ancOptions = FilterOptions{
	Age:     []FilterOption{{ID: "Y015_049", Label: "15-49"}},
	Quarter: []FilterOption{{ID: "CY2019Q4", Label: "Oct-Dec 2019"}, {ID: "CY2019Q3", Label: "Jul-Sep 2019"}},
}

var surveyOptions = FilterOptions{
	Sex:    []FilterOption{{ID: "both", Label: "Both"}, {ID: "female", Label: "Female"}},
	Age:    []FilterOption{{ID: "Y015_049", Label: "15-49"}, {ID: "Y015_024", Label: "15-24"}},
	Survey: []FilterOption{{ID: "MWI2016PHIA", Label: "MWI 2016 PHIA"}},
}

func TestRefreshSelectedFilters(t *testing.T) {
	t.Run("keeps valid selections", func(t *testing.T) {
		selected := SelectedFilters{Sex: "female", Age: "Y015_024", Survey: "MWI2016PHIA"}
		got, updates := RefreshSelectedFilters(selected, surveyOptions)
		assert.Equal(t, selected, got)
		assert.Empty(t, updates)
	})

	t.Run("replaces invalid selection with first option", func(t *testing.T) {
		selected := SelectedFilters{Sex: "female", Age: "Y000_999", Survey: ""}
		got, updates := RefreshSelectedFilters(selected, surveyOptions)
		assert.Equal(t, "Y015_049", got.Age)
		assert.Equal(t, "MWI2016PHIA", got.Survey)
		assert.Equal(t, "female", got.Sex)
		assert.Equal(t, []FilterUpdate{
			{Dimension: DimensionAge, Value: "Y015_049"},
			{Dimension: DimensionSurvey, Value: "MWI2016PHIA"},
		}, updates)
	})

	t.Run("dimension without options is left alone", func(t *testing.T) {
		selected := SelectedFilters{Sex: "female", Survey: "MWI2016PHIA", Age: "Y015_049", Quarter: "CY2019Q3"}
		got, updates := RefreshSelectedFilters(selected, ancOptions)
		assert.Equal(t, "female", got.Sex)
		assert.Equal(t, "MWI2016PHIA", got.Survey)
		assert.Equal(t, "CY2019Q3", got.Quarter)
		assert.Empty(t, updates)
	})

	t.Run("regions and year are never refreshed", func(t *testing.T) {
		opts := surveyOptions
		opts.Year = []FilterOption{{ID: "2019", Label: "2019"}}
		selected := SelectedFilters{Year: "1990", Regions: []string{"MWI_1_1"}}
		got, _ := RefreshSelectedFilters(selected, opts)
		assert.Equal(t, "1990", got.Year)
		assert.Equal(t, []string{"MWI_1_1"}, got.Regions)
	})

	t.Run("input is not modified", func(t *testing.T) {
		selected := SelectedFilters{Age: "bad", Regions: []string{"r"}}
		got, _ := RefreshSelectedFilters(selected, surveyOptions)
		got.Regions[0] = "changed"
		assert.Equal(t, "bad", selected.Age)
		assert.Equal(t, "r", selected.Regions[0])
	})
}

func TestSelection(t *testing.T) {
	var s Selection
	require.NoError(t, s.Update(DimensionSex, "male"))
	require.NoError(t, s.Update(DimensionRegions, "MWI_1_1", "MWI_1_2"))

	updates := s.SetDataType(DataTypeSurvey, surveyOptions)

	assert.Equal(t, DataTypeSurvey, s.DataType)
	assert.Equal(t, "both", s.Filters.Sex)
	assert.Equal(t, []string{"MWI_1_1", "MWI_1_2"}, s.Filters.Regions)
	assert.Len(t, updates, 3)

	assert.ErrorIs(t, s.Update("colour", "red"), ErrUnknownDimension)
	assert.Error(t, s.Update(DimensionAge, "a", "b"))

	req := s.Request(prevMeta)
	assert.Equal(t, DataTypeSurvey, req.DataType)
	assert.Equal(t, s.Filters, req.Selected)
}
