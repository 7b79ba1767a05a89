package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/spektr-org/choropleth/engine"
)

type ChoroplethController struct {
	cs *ChoroplethService
}

func NewChoroplethController(cs *ChoroplethService) *ChoroplethController {
	return &ChoroplethController{cs: cs}
}

func (h *ChoroplethController) GetHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ChoroplethController) GetDatasets(c echo.Context) error {
	dts, err := h.cs.DataTypes(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"dataTypes": dts})
}

func (h *ChoroplethController) GetRegions(c echo.Context) error {
	regions, err := h.cs.Regions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, regions)
}

func (h *ChoroplethController) GetFilterOptions(c echo.Context) error {
	dt, err := dataTypeParam(c)
	if err != nil {
		return err
	}
	opts, err := h.cs.FilterOptions(c.Request().Context(), dt)
	if err != nil {
		return toUserVisible(err)
	}
	return c.JSON(http.StatusOK, opts)
}

func (h *ChoroplethController) GetIndicators(c echo.Context) error {
	dt, err := dataTypeParam(c)
	if err != nil {
		return err
	}
	inds, err := h.cs.Indicators(c.Request().Context(), dt)
	if err != nil {
		return toUserVisible(err)
	}
	if inds == nil {
		inds = []engine.IndicatorMetadata{}
	}
	return c.JSON(http.StatusOK, inds)
}

func (h *ChoroplethController) GetRegionIndicators(c echo.Context) error {
	dt, err := dataTypeParam(c)
	if err != nil {
		return err
	}
	result, err := h.cs.Compute(c.Request().Context(), dt, c.Param("indicator"), selectedFromQuery(c))
	if err != nil {
		return toUserVisible(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *ChoroplethController) PostSelection(c echo.Context) error {
	dt, err := dataTypeParam(c)
	if err != nil {
		return err
	}
	var selected engine.SelectedFilters
	if err := c.Bind(&selected); err != nil {
		return NewUserVisibleError(http.StatusBadRequest, "invalid selection body")
	}
	resp, err := h.cs.RefreshSelection(c.Request().Context(), dt, selected)
	if err != nil {
		return toUserVisible(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func dataTypeParam(c echo.Context) (engine.DataType, error) {
	dt, err := engine.ParseDataType(c.Param("dataType"))
	if err != nil {
		return engine.DataTypeNone, toUserVisible(err)
	}
	return dt, nil
}

// selectedFromQuery reads ?sex=&age=&survey=&quarter=&region=.
// Regions may repeat or be comma separated. Year filters nothing, so it is
// not read here; PostSelection still carries it through the refresh policy.
func selectedFromQuery(c echo.Context) engine.SelectedFilters {
	selected := engine.SelectedFilters{
		Sex:     c.QueryParam(engine.DimensionSex),
		Age:     c.QueryParam(engine.DimensionAge),
		Survey:  c.QueryParam(engine.DimensionSurvey),
		Quarter: c.QueryParam(engine.DimensionQuarter),
	}
	for _, v := range c.QueryParams()["region"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				selected.Regions = append(selected.Regions, id)
			}
		}
	}
	return selected
}
