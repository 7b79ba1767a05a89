package engine

import (
	"sort"
)

// ============================================================================
// TABLE BUILDER — Produces a per-area TableData from an IndicatorValuesDict
// ============================================================================
// Row per area, sorted by area label. Areas missing from the region lookup
// use their id as label.
// ============================================================================

// BuildAreaTable lists every area of a result with its value and colour.
func BuildAreaTable(values IndicatorValuesDict, regions FlattenedOptions, meta IndicatorMetadata) *TableData {
	title := LabelForIndicator(meta)
	if len(values) == 0 {
		return &TableData{
			Title:   title,
			Columns: []Column{},
			Rows:    [][]string{},
		}
	}

	columns := []Column{
		{Key: "area_id", Label: "Area ID", Type: "text", Align: "left"},
		{Key: "area_name", Label: "Area", Type: "text", Align: "left"},
		{Key: "value", Label: title, Type: "number", Align: "right"},
		{Key: "color", Label: "Colour", Type: "color", Align: "left"},
	}

	type entry struct {
		id, label string
		v         IndicatorValue
	}
	entries := make([]entry, 0, len(values))
	for id, v := range values {
		label := id
		if n, ok := regions[id]; ok && n.Label != "" {
			label = n.Label
		}
		entries = append(entries, entry{id: id, label: label, v: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].label == entries[j].label {
			return entries[i].id < entries[j].id
		}
		return entries[i].label < entries[j].label
	})

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.id, e.label, FormatNumber(e.v.Value), e.v.Color})
	}

	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
		Summary: BuildSummary(values),
	}
}
