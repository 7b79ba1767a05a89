package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spektr-org/choropleth/engine"
)

// ============================================================================
// SCHEMA — Plotting metadata for every data type
// ============================================================================
// Loaded from configuration (metadata.json) or auto-discovered from data.
// The engine uses indicator metadata to read and colour rows; the server
// uses filter options to drive selection refresh.
// ============================================================================

// Metadata describes indicators, filter options and regions for a project.
type Metadata struct {
	Name       string                                         `json:"name,omitempty"`
	Indicators map[engine.DataType][]engine.IndicatorMetadata `json:"indicators"`
	Filters    map[engine.DataType]engine.FilterOptions       `json:"filters,omitempty"`
	Regions    []engine.NestedFilterOption                    `json:"regions,omitempty"`
}

// LoadMetadata decodes and validates metadata JSON.
func LoadMetadata(r io.Reader) (*Metadata, error) {
	var m Metadata
	dec := json.NewDecoder(r)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks every indicator can be read and coloured.
func (m *Metadata) Validate() error {
	var errs []error
	for dt, indicators := range m.Indicators {
		if dt == engine.DataTypeNone {
			errs = append(errs, errors.New("indicators listed without a data type"))
			continue
		}
		seen := make(map[string]bool)
		for _, ind := range indicators {
			prefix := fmt.Sprintf("%s indicator %q", dt, ind.Indicator)
			if ind.Indicator == "" {
				errs = append(errs, fmt.Errorf("%s indicator has no id", dt))
			}
			if seen[ind.Indicator] {
				errs = append(errs, fmt.Errorf("%s: duplicate id", prefix))
			}
			seen[ind.Indicator] = true
			if ind.ValueColumn == "" {
				errs = append(errs, fmt.Errorf("%s: value_column is required", prefix))
			}
			if (ind.IndicatorColumn == "") != (ind.IndicatorValue == "") {
				errs = append(errs, fmt.Errorf("%s: indicator_column and indicator_value must be set together", prefix))
			}
			if _, err := engine.ColorFuncFor(ind.Colour); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
			}
			if ind.Min != nil && ind.Max != nil && *ind.Min > *ind.Max {
				errs = append(errs, fmt.Errorf("%s: min %v is greater than max %v", prefix, *ind.Min, *ind.Max))
			}
		}
	}
	return errors.Join(errs...)
}

// Indicator returns the metadata of an indicator for a data type.
func (m *Metadata) Indicator(dt engine.DataType, id string) (engine.IndicatorMetadata, error) {
	for _, ind := range m.Indicators[dt] {
		if ind.Indicator == id {
			return ind, nil
		}
	}
	return engine.IndicatorMetadata{}, fmt.Errorf("%w: %s/%s", engine.ErrUnknownIndicator, dt, id)
}

// FilterOptions returns the options of a data type, with the region tree
// filled in when the data type does not carry its own.
func (m *Metadata) FilterOptions(dt engine.DataType) engine.FilterOptions {
	opts := m.Filters[dt]
	if opts.Regions == nil {
		opts.Regions = m.Regions
	}
	return opts
}

// Merge fills in anything m lacks from other. Existing entries win.
func (m *Metadata) Merge(other *Metadata) {
	if other == nil {
		return
	}
	if m.Name == "" {
		m.Name = other.Name
	}
	if m.Indicators == nil {
		m.Indicators = make(map[engine.DataType][]engine.IndicatorMetadata)
	}
	for dt, inds := range other.Indicators {
		if len(m.Indicators[dt]) == 0 {
			m.Indicators[dt] = inds
		}
	}
	if m.Filters == nil {
		m.Filters = make(map[engine.DataType]engine.FilterOptions)
	}
	for dt, f := range other.Filters {
		if _, ok := m.Filters[dt]; !ok {
			m.Filters[dt] = f
		}
	}
	if len(m.Regions) == 0 {
		m.Regions = other.Regions
	}
}
