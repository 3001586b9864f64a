package http

import (
	"errors"
	"net/http"
	"time"

	"golang-sentiment-index/internal/sentiment/dto"
	"golang-sentiment-index/internal/sentiment/registry"
	"golang-sentiment-index/internal/sentiment/service"
	"golang-sentiment-index/pkg/logger"
	"golang-sentiment-index/pkg/utils"

	"github.com/labstack/echo/v4"
)

// SentimentHandler handles HTTP requests for the sentiment pipeline.
type SentimentHandler struct {
	pipeline service.PipelineService
	history  service.HistoryService
	registry registry.Registry
	logger   *logger.Logger
}

// NewSentimentHandler creates a new SentimentHandler.
func NewSentimentHandler(pipeline service.PipelineService, history service.HistoryService, reg registry.Registry, logger *logger.Logger) *SentimentHandler {
	return &SentimentHandler{pipeline: pipeline, history: history, registry: reg, logger: logger}
}

// RegisterRoutes registers the sentiment routes to the Echo group.
func (h *SentimentHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/sentiment/run", h.Run)
	g.POST("/sentiment/backfill", h.Backfill)
	g.GET("/sentiment/status", h.Status)
	g.GET("/sentiment/latest", h.Latest)
	g.GET("/sentiment/composites", h.Composites)
	g.GET("/sentiment/layers", h.LayerScores)
	g.GET("/sentiment/drivers", h.DriverScores)
	g.GET("/sentiment/signals", h.Signals)
	g.GET("/assets", h.Assets)
}

// Run godoc
// @Summary Trigger a pipeline run
// @Description Starts the scoring pipeline for an asset and optional target date. Returns immediately; poll /sentiment/status.
// @Tags sentiment
// @Accept  json
// @Produce  json
// @Param   request  body    dto.RunRequest   true    "Run request"
// @Success 202 {object} service.RunAck
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /sentiment/run [post]
func (h *SentimentHandler) Run(c echo.Context) error {
	var req dto.RunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	if req.Asset == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "asset is required"})
	}

	var targetDate *time.Time
	if req.TargetDate != "" {
		t, err := utils.ParseDate(req.TargetDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "target_date must be YYYY-MM-DD"})
		}
		targetDate = &t
	}

	ack, err := h.pipeline.Run(c.Request().Context(), req.Asset, targetDate)
	if err != nil {
		return h.configError(c, err)
	}
	return c.JSON(http.StatusAccepted, ack)
}

// Backfill godoc
// @Summary Trigger a backfill run
// @Description Runs the pipeline for every weekday in the date range under a single running span.
// @Tags sentiment
// @Accept  json
// @Produce  json
// @Param   request  body    dto.BackfillRequest   true    "Backfill request"
// @Success 202 {object} service.RunAck
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /sentiment/backfill [post]
func (h *SentimentHandler) Backfill(c echo.Context) error {
	var req dto.BackfillRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	if req.Asset == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "asset is required"})
	}
	start, err := utils.ParseDate(req.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be YYYY-MM-DD"})
	}
	end, err := utils.ParseDate(req.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be YYYY-MM-DD"})
	}

	ack, err := h.pipeline.Backfill(c.Request().Context(), req.Asset, start, end)
	if err != nil {
		return h.configError(c, err)
	}
	return c.JSON(http.StatusAccepted, ack)
}

// Status godoc
// @Summary Poll the pipeline run status
// @Tags sentiment
// @Produce  json
// @Success 200 {object} service.RunStatus
// @Router /sentiment/status [get]
func (h *SentimentHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.pipeline.Status())
}

// Latest godoc
// @Summary Get the most recent composite for an asset
// @Tags sentiment
// @Produce  json
// @Param   asset  query  string  true  "Asset ID"
// @Success 200 {object} entity.DailyComposite
// @Failure 404 {object} dto.ErrorResponse
// @Router /sentiment/latest [get]
func (h *SentimentHandler) Latest(c echo.Context) error {
	asset := c.QueryParam("asset")
	if asset == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "asset is required"})
	}
	composite, err := h.history.GetLatestComposite(c.Request().Context(), asset)
	if err != nil {
		h.logger.Error("Failed to get latest composite", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	if composite == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no composite for asset"})
	}
	return c.JSON(http.StatusOK, composite)
}

// Composites godoc
// @Summary List composite history
// @Tags sentiment
// @Produce  json
// @Param   asset       query  string  false  "Asset ID"
// @Param   start_date  query  string  false  "Start date (YYYY-MM-DD)"
// @Param   end_date    query  string  false  "End date (YYYY-MM-DD)"
// @Success 200 {array} entity.DailyComposite
// @Failure 400 {object} dto.ErrorResponse
// @Router /sentiment/composites [get]
func (h *SentimentHandler) Composites(c echo.Context) error {
	var query dto.HistoryQuery
	if err := c.Bind(&query); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid query parameters"})
	}
	composites, err := h.history.GetComposites(c.Request().Context(), &query)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, composites)
}

// LayerScores godoc
// @Summary List layer score history
// @Tags sentiment
// @Produce  json
// @Param   asset       query  string  false  "Asset ID"
// @Param   start_date  query  string  false  "Start date (YYYY-MM-DD)"
// @Param   end_date    query  string  false  "End date (YYYY-MM-DD)"
// @Success 200 {array} entity.LayerScore
// @Failure 400 {object} dto.ErrorResponse
// @Router /sentiment/layers [get]
func (h *SentimentHandler) LayerScores(c echo.Context) error {
	var query dto.HistoryQuery
	if err := c.Bind(&query); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid query parameters"})
	}
	scores, err := h.history.GetLayerScores(c.Request().Context(), &query)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, scores)
}

// DriverScores godoc
// @Summary List driver score history
// @Tags sentiment
// @Produce  json
// @Param   asset       query  string  false  "Asset ID"
// @Param   driver      query  string  false  "Driver name"
// @Param   start_date  query  string  false  "Start date (YYYY-MM-DD)"
// @Param   end_date    query  string  false  "End date (YYYY-MM-DD)"
// @Success 200 {array} entity.DriverScore
// @Failure 400 {object} dto.ErrorResponse
// @Router /sentiment/drivers [get]
func (h *SentimentHandler) DriverScores(c echo.Context) error {
	var query dto.HistoryQuery
	if err := c.Bind(&query); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid query parameters"})
	}
	scores, err := h.history.GetDriverScores(c.Request().Context(), &query)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, scores)
}

// Signals godoc
// @Summary List raw signals
// @Tags sentiment
// @Produce  json
// @Param   asset       query  string  false  "Asset ID"
// @Param   driver      query  string  false  "Driver name"
// @Param   layer       query  string  false  "Layer (sentiment or macro)"
// @Param   source      query  string  false  "Signal source"
// @Param   start_date  query  string  false  "Start date (YYYY-MM-DD)"
// @Param   end_date    query  string  false  "End date (YYYY-MM-DD)"
// @Param   limit       query  int     false  "Page size (default 100)"
// @Param   offset      query  int     false  "Page offset"
// @Success 200 {array} entity.RawSignal
// @Failure 400 {object} dto.ErrorResponse
// @Router /sentiment/signals [get]
func (h *SentimentHandler) Signals(c echo.Context) error {
	var query dto.SignalQuery
	if err := c.Bind(&query); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid query parameters"})
	}
	signals, err := h.history.GetSignals(c.Request().Context(), &query)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, signals)
}

// Assets godoc
// @Summary List configured assets
// @Tags assets
// @Produce  json
// @Success 200 {array} registry.AssetSummary
// @Failure 500 {object} dto.ErrorResponse
// @Router /assets [get]
func (h *SentimentHandler) Assets(c echo.Context) error {
	assets, err := h.registry.List()
	if err != nil {
		h.logger.Error("Failed to list assets", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, assets)
}

func (h *SentimentHandler) configError(c echo.Context, err error) error {
	if errors.Is(err, registry.ErrUnknownAsset) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
}
