// Package choropleth provides the region-indicator engine behind an HIV
// survey/programme/ANC results explorer.
//
// Usage:
//
//	import "github.com/spektr-org/choropleth/engine"
//
//	values := engine.GetRegionIndicators(engine.DataTypeSurvey, selected, view, meta,
//	    engine.WithRegions(engine.FlattenOptions(regionTree)),
//	)
//
// The engine takes raw rows (generic column → value maps), the user's
// selected filters and an indicator's plotting metadata, and returns an
// area-id keyed map of values and fill colours for choropleth rendering.
//
// Persistence (store), the HTTP API (server) and metadata discovery (schema)
// are layered on top. The engine itself never performs I/O.
package choropleth
