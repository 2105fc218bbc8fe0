package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"gonum.org/v1/plot"

	"popdash/internal/charts"
	"popdash/internal/config"
	"popdash/internal/engine"
	"popdash/internal/export"
	"popdash/internal/models"
)

// DatasetSource returns the current dataset for a path. *cache.Loader satisfies it.
type DatasetSource interface {
	Dataset(ctx context.Context, path string) (*engine.Dataset, error)
}

type Handler struct {
	source   DatasetSource
	dataPath string
	title    string
	charts   config.ChartsConfig
	logger   *zap.Logger
}

func NewHandler(source DatasetSource, cfg *config.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		source:   source,
		dataPath: cfg.DataPath,
		title:    cfg.Server.Title,
		charts:   cfg.Charts,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.GetPage)
	e.GET("/healthz", h.GetHealth)
	e.GET("/charts/:name", h.GetChart)

	api := e.Group("/api")
	api.GET("/provinces", h.GetProvinces)
	api.GET("/info", h.GetInfo)
	api.GET("/population", h.GetPopulation)
	api.GET("/export.arrow", h.ExportArrow)
	api.GET("/export.xlsx", h.ExportXLSX)
}

// --- HELPERS ---

func (h *Handler) dataset(c echo.Context) (*engine.Dataset, error) {
	ds, err := h.source.Dataset(c.Request().Context(), h.dataPath)
	if err != nil {
		h.logger.Warn("dataset unavailable", zap.String("path", h.dataPath), zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "dataset unavailable").SetInternal(err)
	}
	return ds, nil
}

// selectionError maps engine errors for a selector value to HTTP errors.
func selectionError(province string, err error) error {
	if errors.Is(err, engine.ErrOutOfRange) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown province %q", province)).SetInternal(err)
	}
	return err
}

func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func withProvince(path, province string) string {
	if province == engine.NoSelection {
		return path
	}
	return path + "?province=" + url.QueryEscape(province)
}

// attachmentName builds a download file name such as population-Davao_del_Sur.xlsx.
func attachmentName(province, ext string) string {
	if province == engine.NoSelection {
		return "population." + ext
	}
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r == '"' || r == '/' || r == '\\' || r < 0x20:
			return -1
		}
		return r
	}, province)
	return "population-" + clean + "." + ext
}

// --- HANDLERS ---

type pageData struct {
	Title     string
	View      *models.DashboardView
	TrendSrc  string
	BarsSrc   string
	ArrowHref string
	XLSXHref  string
}

// GetPage renders the dashboard for ?province=.
func (h *Handler) GetPage(c echo.Context) error {
	ds, err := h.dataset(c)
	if err != nil {
		return err
	}
	selected := c.QueryParam("province")
	// Charts are served by GetChart, so the page only needs the selector and info line.
	view, err := ds.PageView(selected)
	if err != nil {
		return selectionError(selected, err)
	}

	return c.Render(http.StatusOK, "index.html", pageData{
		Title:     h.title,
		View:      view,
		TrendSrc:  withProvince("/charts/trend."+h.charts.Format, selected),
		BarsSrc:   withProvince("/charts/bars."+h.charts.Format, selected),
		ArrowHref: withProvince("/api/export.arrow", selected),
		XLSXHref:  withProvince("/api/export.xlsx", selected),
	})
}

// GetChart serves trend.{png,svg} and bars.{png,svg}.
func (h *Handler) GetChart(c echo.Context) error {
	kind, format, _ := strings.Cut(c.Param("name"), ".")
	contentType, err := charts.ContentType(format)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown chart format").SetInternal(err)
	}
	if kind != "trend" && kind != "bars" {
		return echo.NewHTTPError(http.StatusNotFound, "unknown chart")
	}

	ds, err := h.dataset(c)
	if err != nil {
		return err
	}
	selected := c.QueryParam("province")
	rows, err := ds.Tidy(selected)
	if err != nil {
		return selectionError(selected, err)
	}

	etag := fmt.Sprintf(`"%016x-%016x"`, ds.Checksum, xxh3.HashString(c.Param("name")+"\x00"+selected))
	c.Response().Header().Set("ETag", etag)
	c.Response().Header().Set("Cache-Control", "no-cache")
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}

	var p *plot.Plot
	if kind == "trend" {
		p, err = charts.Trend(rows, charts.TrendTitle)
	} else {
		p, err = charts.GroupedBars(rows, charts.BarsTitle)
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := charts.Render(&buf, p, format, h.charts.Width, h.charts.Height); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

func (h *Handler) GetHealth(c echo.Context) error {
	ds, err := h.source.Dataset(c.Request().Context(), h.dataPath)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status": "loading",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"rows":      ds.Len(),
		"provinces": len(ds.Provinces()),
	})
}

func (h *Handler) GetProvinces(c echo.Context) error {
	ds, err := h.dataset(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ds.Provinces())
}

type infoResponse struct {
	Province string `json:"province"`
	models.ProvinceInfo
	Info string `json:"info"`
}

// GetInfo returns the descriptive fields of ?province=.
func (h *Handler) GetInfo(c echo.Context) error {
	province := c.QueryParam("province")
	if province == engine.NoSelection {
		return echo.NewHTTPError(http.StatusBadRequest, "province is required")
	}
	ds, err := h.dataset(c)
	if err != nil {
		return err
	}
	info, err := ds.Describe(province)
	if err != nil {
		return selectionError(province, err)
	}
	return c.JSON(http.StatusOK, infoResponse{Province: province, ProvinceInfo: info, Info: info.String()})
}

// GetPopulation returns the long-form table, paginated with limit/offset.
func (h *Handler) GetPopulation(c echo.Context) error {
	ds, err := h.dataset(c)
	if err != nil {
		return err
	}
	selected := c.QueryParam("province")
	rows, err := ds.Tidy(selected)
	if err != nil {
		return selectionError(selected, err)
	}

	total := len(rows)
	limit, offset := getPaginationParams(c, total)

	page := []models.TidyRecord{}
	if offset < total {
		end := total
		if limit < total-offset {
			end = offset + limit
		}
		page = rows[offset:end]
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   page,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) ExportArrow(c echo.Context) error {
	ds, err := h.dataset(c)
	if err != nil {
		return err
	}
	selected := c.QueryParam("province")
	rows, err := ds.Tidy(selected)
	if err != nil {
		return selectionError(selected, err)
	}

	var buf bytes.Buffer
	if err := export.WriteArrow(&buf, rows); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, attachmentName(selected, "arrow")))
	return c.Blob(http.StatusOK, export.ArrowContentType, buf.Bytes())
}

func (h *Handler) ExportXLSX(c echo.Context) error {
	ds, err := h.dataset(c)
	if err != nil {
		return err
	}
	selected := c.QueryParam("province")
	rows, err := ds.Tidy(selected)
	if err != nil {
		return selectionError(selected, err)
	}

	var info *models.ProvinceInfo
	if selected != engine.NoSelection {
		i, err := ds.Describe(selected)
		if err != nil {
			return selectionError(selected, err)
		}
		info = &i
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rows, selected, info); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, attachmentName(selected, "xlsx")))
	return c.Blob(http.StatusOK, export.XLSXContentType, buf.Bytes())
}
