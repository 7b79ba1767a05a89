package engine

import (
	"errors"
	"fmt"
	"slices"
)

// ============================================================================
// SELECTION — Filter selection state and refresh on data type change
// ============================================================================

// Filter dimensions.
const (
	DimensionSex     = "sex"
	DimensionAge     = "age"
	DimensionSurvey  = "survey"
	DimensionYear    = "year"
	DimensionQuarter = "quarter"
	DimensionRegions = "regions"
)

// ErrUnknownDimension is returned by Selection.Update for an unknown dimension.
var ErrUnknownDimension = errors.New("unknown filter dimension")

// refreshOrder lists the dimensions re-validated on a data type change.
// Regions and year are never refreshed.
var refreshOrder = []string{DimensionAge, DimensionSurvey, DimensionQuarter, DimensionSex}

// FilterUpdate records a dimension whose selected value was replaced.
type FilterUpdate struct {
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
}

// Get returns the selected value of a single-valued dimension.
func (s SelectedFilters) Get(dimension string) string {
	switch dimension {
	case DimensionSex:
		return s.Sex
	case DimensionAge:
		return s.Age
	case DimensionSurvey:
		return s.Survey
	case DimensionYear:
		return s.Year
	case DimensionQuarter:
		return s.Quarter
	}
	return ""
}

func (s *SelectedFilters) set(dimension, value string) bool {
	switch dimension {
	case DimensionSex:
		s.Sex = value
	case DimensionAge:
		s.Age = value
	case DimensionSurvey:
		s.Survey = value
	case DimensionYear:
		s.Year = value
	case DimensionQuarter:
		s.Quarter = value
	default:
		return false
	}
	return true
}

// Options returns the available options of a single-valued dimension.
func (o FilterOptions) Options(dimension string) []FilterOption {
	switch dimension {
	case DimensionSex:
		return o.Sex
	case DimensionAge:
		return o.Age
	case DimensionSurvey:
		return o.Survey
	case DimensionYear:
		return o.Year
	case DimensionQuarter:
		return o.Quarter
	}
	return nil
}

// RefreshSelectedFilters re-validates age, survey, quarter and sex against
// the options of a newly active data type. A dimension without options is
// left untouched. A selected id that is still offered is kept; otherwise the
// first option is selected and reported as an update. The input is not
// modified.
func RefreshSelectedFilters(selected SelectedFilters, available FilterOptions) (SelectedFilters, []FilterUpdate) {
	out := selected
	out.Regions = slices.Clone(selected.Regions)

	var updates []FilterUpdate
	for _, dim := range refreshOrder {
		options := available.Options(dim)
		if len(options) == 0 {
			continue
		}
		current := selected.Get(dim)
		if containsOption(options, current) {
			continue
		}
		out.set(dim, options[0].ID)
		updates = append(updates, FilterUpdate{Dimension: dim, Value: options[0].ID})
	}
	return out, updates
}

func containsOption(options []FilterOption, id string) bool {
	for _, o := range options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Selection holds the active data type and the selected filters.
// It is not safe for concurrent use.
type Selection struct {
	DataType DataType        `json:"dataType"`
	Filters  SelectedFilters `json:"filters"`
}

// SetDataType switches the active data type and applies
// RefreshSelectedFilters with the new type's options.
func (s *Selection) SetDataType(dt DataType, available FilterOptions) []FilterUpdate {
	s.DataType = dt
	var updates []FilterUpdate
	s.Filters, updates = RefreshSelectedFilters(s.Filters, available)
	return updates
}

// Update sets a single dimension. Regions takes any number of ids; every
// other dimension takes exactly one value.
func (s *Selection) Update(dimension string, values ...string) error {
	if dimension == DimensionRegions {
		s.Filters.Regions = slices.Clone(values)
		return nil
	}
	if len(values) != 1 {
		return fmt.Errorf("dimension %q takes one value, got %d", dimension, len(values))
	}
	if !s.Filters.set(dimension, values[0]) {
		return fmt.Errorf("%w: %q", ErrUnknownDimension, dimension)
	}
	return nil
}

// Request builds an engine request for an indicator from the selection.
func (s *Selection) Request(meta IndicatorMetadata) Request {
	return Request{DataType: s.DataType, Indicator: meta, Selected: s.Filters}
}
