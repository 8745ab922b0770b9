package handler

import (
	"net/http"
	"time"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/service"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/xe"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// AnalysisHandler 技術分析HTTP處理器
type AnalysisHandler struct {
	analysisService *service.AnalysisService
	holidayService  *service.HolidayService
	calendar        *service.CalendarService
	logger          *zap.Logger
}

func NewAnalysisHandler(
	analysisService *service.AnalysisService,
	holidayService *service.HolidayService,
	calendar *service.CalendarService,
	logger *zap.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		holidayService:  holidayService,
		calendar:        calendar,
		logger:          logger,
	}
}

type calculateRequest struct {
	Symbol string `json:"symbol" validate:"required"`
	Date   string `json:"date"`
}

type batchCalculateRequest struct {
	Date      string   `json:"date"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Dates     []string `json:"dates"`
}

func validDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

// Calculate 計算單一股票的技術指標
// POST /api/analysis/calculate
func (h *AnalysisHandler) Calculate(c echo.Context) error {
	ctx := c.Request().Context()

	var req calculateRequest
	if err := c.Bind(&req); err != nil {
		return xe.ErrInvalidParams
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	date := req.Date
	if date == "" {
		resolved, err := h.calendar.ResolveTargetDate(ctx, service.DataTypeTicker)
		if err != nil {
			return err
		}
		date = resolved
	} else if !validDate(date) {
		return xe.ErrInvalidDate
	}

	computed, err := h.analysisService.ComputeAndStore(ctx, req.Symbol, date)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"symbol":   req.Symbol,
		"date":     date,
		"computed": computed,
	})
}

// BatchCalculate 批次計算技術指標，支援單日、日期區間與日期清單
// POST /api/analysis/batch-calculate
func (h *AnalysisHandler) BatchCalculate(c echo.Context) error {
	ctx := c.Request().Context()

	var req batchCalculateRequest
	if err := c.Bind(&req); err != nil {
		return xe.ErrInvalidParams
	}

	dates, err := h.expandBatchDates(c, req)
	if err != nil {
		return err
	}

	results := make([]*service.BatchCalculateResult, 0, len(dates))
	for _, date := range dates {
		result, err := h.analysisService.BatchCalculate(ctx, date)
		if err != nil {
			h.logger.Warn("批次計算失敗", zap.String("date", date), zap.Error(err))
			continue
		}
		results = append(results, result)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"dates":   len(dates),
		"results": results,
	})
}

func (h *AnalysisHandler) expandBatchDates(c echo.Context, req batchCalculateRequest) ([]string, error) {
	ctx := c.Request().Context()

	if len(req.Dates) > 0 {
		for _, date := range req.Dates {
			if !validDate(date) {
				return nil, xe.ErrInvalidDate
			}
		}
		return req.Dates, nil
	}

	if req.StartDate != "" || req.EndDate != "" {
		if !validDate(req.StartDate) || !validDate(req.EndDate) {
			return nil, xe.ErrInvalidDate
		}
		if req.StartDate > req.EndDate {
			return nil, xe.ErrInvalidRange
		}
		return h.holidayService.GetWorkingDays(ctx, req.StartDate, req.EndDate)
	}

	date := req.Date
	if date == "" {
		resolved, err := h.calendar.ResolveTargetDate(ctx, service.DataTypeTicker)
		if err != nil {
			return nil, err
		}
		date = resolved
	} else if !validDate(date) {
		return nil, xe.ErrInvalidDate
	}
	return []string{date}, nil
}

// GetMissingDates 找出有行情但缺技術指標的日期
// GET /api/analysis/missing-dates
func (h *AnalysisHandler) GetMissingDates(c echo.Context) error {
	result, err := h.analysisService.GetMissingDates(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GetReport 取得單一股票的技術分析報告
// GET /api/analysis/report/:symbol
func (h *AnalysisHandler) GetReport(c echo.Context) error {
	symbol := c.Param("symbol")
	if symbol == "" {
		return xe.ErrInvalidParams
	}
	date := c.QueryParam("date")
	if date == "" {
		resolved, err := h.calendar.ResolveTargetDate(c.Request().Context(), service.DataTypeTicker)
		if err != nil {
			return err
		}
		date = resolved
	} else if !validDate(date) {
		return xe.ErrInvalidDate
	}

	report, err := h.analysisService.GetReport(c.Request().Context(), symbol, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// GetOverview 取得市場總覽
// GET /api/analysis/overview
func (h *AnalysisHandler) GetOverview(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		resolved, err := h.calendar.ResolveTargetDate(c.Request().Context(), service.DataTypeTicker)
		if err != nil {
			return err
		}
		date = resolved
	} else if !validDate(date) {
		return xe.ErrInvalidDate
	}

	overview, err := h.analysisService.GetMarketOverview(c.Request().Context(), date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, overview)
}

// GetHistory 取得單一股票的技術指標歷史
// GET /api/analysis/history/:symbol
func (h *AnalysisHandler) GetHistory(c echo.Context) error {
	symbol := c.Param("symbol")
	if symbol == "" {
		return xe.ErrInvalidParams
	}
	startDate := c.QueryParam("startDate")
	endDate := c.QueryParam("endDate")
	if (startDate != "" && !validDate(startDate)) || (endDate != "" && !validDate(endDate)) {
		return xe.ErrInvalidDate
	}

	limit := cast.ToInt(c.QueryParam("limit"))

	history, err := h.analysisService.GetHistory(c.Request().Context(), symbol, startDate, endDate, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"history": history,
	})
}

func (h *AnalysisHandler) RegisterRoutes(g *echo.Group) {
	analysis := g.Group("/analysis")
	analysis.POST("/calculate", h.Calculate)
	analysis.POST("/batch-calculate", h.BatchCalculate)
	analysis.GET("/missing-dates", h.GetMissingDates)
	analysis.GET("/report/:symbol", h.GetReport)
	analysis.GET("/overview", h.GetOverview)
	analysis.GET("/history/:symbol", h.GetHistory)
}
