package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// ENGINE TYPES — Region Indicators
// ============================================================================
// Rows are generic column → value maps because the column set differs per
// data type. Everything else (filters, metadata, results) is a typed value.
// ============================================================================

var (
	// ErrUnknownDataType is returned when a data type name cannot be parsed.
	ErrUnknownDataType = errors.New("unknown data type")
	// ErrUnknownColour is returned when an indicator names an unregistered colour scale.
	ErrUnknownColour = errors.New("unknown colour scale")
	// ErrUnknownIndicator is returned when no metadata exists for an indicator.
	ErrUnknownIndicator = errors.New("unknown indicator")
)

// ============================================================================
// DATA TYPE
// ============================================================================

// DataType selects which dataset and which row predicate apply.
// The zero value means no data is loaded yet.
type DataType int

const (
	DataTypeNone DataType = iota
	DataTypeANC
	DataTypeProgram
	DataTypeSurvey
	DataTypeOutput
)

// DataTypes lists every concrete data type in display order.
var DataTypes = []DataType{DataTypeSurvey, DataTypeProgram, DataTypeANC, DataTypeOutput}

var dataTypeNames = map[DataType]string{
	DataTypeNone:    "",
	DataTypeANC:     "anc",
	DataTypeProgram: "program",
	DataTypeSurvey:  "survey",
	DataTypeOutput:  "output",
}

func (d DataType) String() string {
	return dataTypeNames[d]
}

// ParseDataType accepts the text form of a data type.
// "programme" is accepted as an alias of "program".
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anc":
		return DataTypeANC, nil
	case "program", "programme":
		return DataTypeProgram, nil
	case "survey":
		return DataTypeSurvey, nil
	case "output":
		return DataTypeOutput, nil
	}
	return DataTypeNone, fmt.Errorf("%w: %q", ErrUnknownDataType, s)
}

func (d DataType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DataType) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = DataTypeNone
		return nil
	}
	parsed, err := ParseDataType(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ============================================================================
// FILTER OPTIONS
// ============================================================================

// FilterOption is a single selectable value, e.g. one survey or one age band.
type FilterOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// NestedFilterOption is a node of a hierarchical filter such as regions.
type NestedFilterOption struct {
	ID       string               `json:"id"`
	Label    string               `json:"label"`
	Children []NestedFilterOption `json:"children,omitempty"`
}

// FilterOptions are the options available for one data type.
// Any field may be nil when the dimension does not apply.
type FilterOptions struct {
	Sex     []FilterOption       `json:"sex,omitempty"`
	Age     []FilterOption       `json:"age,omitempty"`
	Survey  []FilterOption       `json:"survey,omitempty"`
	Quarter []FilterOption       `json:"quarter,omitempty"`
	Year    []FilterOption       `json:"year,omitempty"`
	Regions []NestedFilterOption `json:"regions,omitempty"`
}

// SelectedFilters is the user's current selection: one value per
// non-region dimension and any number of region ids.
type SelectedFilters struct {
	Sex     string   `json:"sex"`
	Age     string   `json:"age"`
	Survey  string   `json:"survey"`
	Year    string   `json:"year"`
	Quarter string   `json:"quarter"`
	Regions []string `json:"regions"`
}

// ============================================================================
// INDICATOR METADATA
// ============================================================================

// IndicatorMetadata describes how to read an indicator out of a row and how
// to colour it.
//
// Wide format rows carry the value in ValueColumn directly. Long format rows
// are disambiguated by IndicatorColumn == IndicatorValue and still read
// ValueColumn.
type IndicatorMetadata struct {
	Indicator       string   `json:"indicator"`
	Name            string   `json:"name"`
	ValueColumn     string   `json:"value_column"`
	IndicatorColumn string   `json:"indicator_column,omitempty"`
	IndicatorValue  string   `json:"indicator_value,omitempty"`
	Colour          string   `json:"colour"`
	InvertScale     bool     `json:"invert_scale"`
	Min             *float64 `json:"min,omitempty"`
	Max             *float64 `json:"max,omitempty"`
}

// IsLongFormat reports whether rows must be matched on IndicatorColumn.
func (m IndicatorMetadata) IsLongFormat() bool {
	return m.IndicatorColumn != ""
}

// ============================================================================
// RESULT TYPES
// ============================================================================

// IndicatorValue is the value and fill colour of a single area.
type IndicatorValue struct {
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// IndicatorValuesDict maps area id to its indicator value.
// A fresh map is built on every computation.
type IndicatorValuesDict map[string]IndicatorValue

// Range is the numeric domain of an indicator.
// A zero Max is treated as unset.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Result is the render-ready output of Execute.
type Result struct {
	DataType  DataType            `json:"dataType"`
	Indicator IndicatorMetadata   `json:"indicator"`
	Selected  SelectedFilters     `json:"selected"`
	Values    IndicatorValuesDict `json:"values"`
	Range     Range               `json:"range"`
	Legend    []LegendStop        `json:"legend,omitempty"`
	Table     *TableData          `json:"table,omitempty"`
	Summary   *Summary            `json:"summary"`
	Reply     string              `json:"reply"`
}

// LegendStop is a single entry of a colour legend.
type LegendStop struct {
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// TableData is a per-area tabular view of a result.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "color"
	Align string `json:"align"` // "left", "right"
}

// Summary describes the spread of values in a result.
type Summary struct {
	Areas int     `json:"areas"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// MarshalJSON keeps an empty dict encoded as {} rather than null.
func (d IndicatorValuesDict) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]IndicatorValue(d))
}
