package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/spektr-org/choropleth/engine"
	"github.com/spektr-org/choropleth/schema"
	"github.com/spektr-org/choropleth/store"
)

// ChoroplethService answers map queries from the store. Metadata configured
// through metadata.json wins; anything it lacks is discovered from the rows.
type ChoroplethService struct {
	store       store.Store
	results     *cache.Cache
	legendSteps int
	logger      *slog.Logger
}

// NewChoroplethService caches computed results for ttl. A non-positive ttl
// recomputes every request.
func NewChoroplethService(s store.Store, ttl time.Duration, legendSteps int) *ChoroplethService {
	cs := &ChoroplethService{
		store:       s,
		legendSteps: legendSteps,
		logger:      slog.Default().With("component", "choropleth_service"),
	}
	if ttl > 0 {
		cs.results = cache.New(ttl, 2*ttl)
	}
	return cs
}

func (s *ChoroplethService) DataTypes(ctx context.Context) ([]engine.DataType, error) {
	return s.store.DataTypes(ctx)
}

// metadata returns the configured metadata, or an empty one when none is stored.
func (s *ChoroplethService) metadata(ctx context.Context) (*schema.Metadata, error) {
	m, err := s.store.Metadata(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return &schema.Metadata{}, nil
	}
	return m, err
}

// Regions returns the configured region tree, else the one discovered from
// the first loaded dataset that yields one.
func (s *ChoroplethService) Regions(ctx context.Context) ([]engine.NestedFilterOption, error) {
	m, err := s.metadata(ctx)
	if err != nil {
		return nil, err
	}
	if len(m.Regions) > 0 {
		return m.Regions, nil
	}

	dts, err := s.store.DataTypes(ctx)
	if err != nil {
		return nil, err
	}
	for _, dt := range dts {
		view, err := s.store.Dataset(ctx, dt)
		if err != nil {
			return nil, err
		}
		if regions := schema.DiscoverRegions(view); len(regions) > 0 {
			return regions, nil
		}
	}
	return []engine.NestedFilterOption{}, nil
}

func (s *ChoroplethService) FilterOptions(ctx context.Context, dt engine.DataType) (engine.FilterOptions, error) {
	m, err := s.metadata(ctx)
	if err != nil {
		return engine.FilterOptions{}, err
	}
	if _, ok := m.Filters[dt]; ok {
		opts := m.FilterOptions(dt)
		if opts.Regions == nil {
			opts.Regions, err = s.Regions(ctx)
		}
		return opts, err
	}

	view, err := s.store.Dataset(ctx, dt)
	if err != nil {
		return engine.FilterOptions{}, err
	}
	opts := schema.DiscoverFilterOptions(view, dt)
	opts.Regions, err = s.Regions(ctx)
	return opts, err
}

func (s *ChoroplethService) Indicators(ctx context.Context, dt engine.DataType) ([]engine.IndicatorMetadata, error) {
	m, err := s.metadata(ctx)
	if err != nil {
		return nil, err
	}
	if inds := m.Indicators[dt]; len(inds) > 0 {
		return inds, nil
	}

	view, err := s.store.Dataset(ctx, dt)
	if err != nil {
		return nil, err
	}
	return schema.DiscoverIndicators(view), nil
}

func (s *ChoroplethService) indicator(ctx context.Context, dt engine.DataType, id string) (engine.IndicatorMetadata, error) {
	inds, err := s.Indicators(ctx, dt)
	if err != nil {
		return engine.IndicatorMetadata{}, err
	}
	m := schema.Metadata{Indicators: map[engine.DataType][]engine.IndicatorMetadata{dt: inds}}
	return m.Indicator(dt, id)
}

// Compute colours every selected area for one indicator. Results are cached
// by the normalized request.
func (s *ChoroplethService) Compute(ctx context.Context, dt engine.DataType, indicatorID string, selected engine.SelectedFilters) (*engine.Result, error) {
	meta, err := s.indicator(ctx, dt, indicatorID)
	if err != nil {
		return nil, err
	}
	req := engine.Request{DataType: dt, Indicator: meta, Selected: selected}

	key := req.Key()
	if s.results != nil {
		if cached, found := s.results.Get(key); found {
			s.logger.Debug("result cache hit", "key", key)
			return cached.(*engine.Result), nil
		}
	}

	view, err := s.store.Dataset(ctx, dt)
	if err != nil {
		return nil, err
	}
	regions, err := s.Regions(ctx)
	if err != nil {
		return nil, err
	}

	result := engine.Execute(req, view,
		engine.WithLogger(s.logger),
		engine.WithRegions(engine.FlattenOptions(regions)),
		engine.WithLegendSteps(s.legendSteps),
	)
	if s.results != nil {
		s.results.Set(key, result, cache.DefaultExpiration)
	}
	return result, nil
}

// SelectionResponse is a selection after the refresh policy ran.
type SelectionResponse struct {
	DataType engine.DataType        `json:"dataType"`
	Selected engine.SelectedFilters `json:"selected"`
	Updates  []engine.FilterUpdate  `json:"updates"`
}

// RefreshSelection carries a selection over to dt, replacing values that
// are not available there.
func (s *ChoroplethService) RefreshSelection(ctx context.Context, dt engine.DataType, selected engine.SelectedFilters) (*SelectionResponse, error) {
	opts, err := s.FilterOptions(ctx, dt)
	if err != nil {
		return nil, err
	}
	sel := engine.Selection{Filters: selected}
	updates := sel.SetDataType(dt, opts)
	if updates == nil {
		updates = []engine.FilterUpdate{}
	}
	return &SelectionResponse{DataType: dt, Selected: sel.Filters, Updates: updates}, nil
}
