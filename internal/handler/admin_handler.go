package handler

import (
	"net/http"
	"time"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/service"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/xe"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AdminHandler 維運管理HTTP處理器，提供手動補抓與快取管理
type AdminHandler struct {
	backfillService *service.BackfillService
	holidayService  *service.HolidayService
	calendar        *service.CalendarService
	logger          *zap.Logger
}

func NewAdminHandler(
	backfillService *service.BackfillService,
	holidayService *service.HolidayService,
	calendar *service.CalendarService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		backfillService: backfillService,
		holidayService:  holidayService,
		calendar:        calendar,
		logger:          logger,
	}
}

type fetchSingleDayRequest struct {
	Date string `json:"date" validate:"required"`
}

type fetchDateRangeRequest struct {
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	MissingOnly bool   `json:"missingOnly"`
}

// FetchSingleDay 補抓單一日期的完整資料（大盤籌碼、行情、技術指標）
// POST /api/admin/fetch-single-day
func (h *AdminHandler) FetchSingleDay(c echo.Context) error {
	var req fetchSingleDayRequest
	if err := c.Bind(&req); err != nil {
		return xe.ErrInvalidParams
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return xe.ErrInvalidDate
	}

	outcomes, err := h.backfillService.Run(c.Request().Context(), service.BackfillRequest{
		Dates: []string{req.Date},
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":     req.Date,
		"outcomes": outcomes,
	})
}

// FetchDateRange 補抓日期區間，missingOnly 時只補缺指標的日期
// POST /api/admin/fetch-date-range
func (h *AdminHandler) FetchDateRange(c echo.Context) error {
	var req fetchDateRangeRequest
	if err := c.Bind(&req); err != nil {
		return xe.ErrInvalidParams
	}

	if !req.MissingOnly {
		if _, err := time.Parse("2006-01-02", req.StartDate); err != nil {
			return xe.ErrInvalidDate
		}
		if _, err := time.Parse("2006-01-02", req.EndDate); err != nil {
			return xe.ErrInvalidDate
		}
		if req.StartDate > req.EndDate {
			return xe.ErrInvalidRange
		}
	}

	outcomes, err := h.backfillService.Run(c.Request().Context(), service.BackfillRequest{
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		MissingOnly: req.MissingOnly,
	})
	if err != nil {
		h.logger.Error("日期區間補抓失敗", zap.Error(err))
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"outcomes": outcomes,
	})
}

// GetStatus 系統狀態：交易日曆解析結果與假日快取統計
// GET /api/admin/status
func (h *AdminHandler) GetStatus(c echo.Context) error {
	ctx := c.Request().Context()

	status := map[string]interface{}{
		"time":         time.Now().Format(time.RFC3339),
		"holidayCache": h.holidayService.GetCacheStats(),
	}

	if date, err := h.calendar.ResolveTargetDate(ctx, service.DataTypeTicker); err == nil {
		status["tickerTargetDate"] = date
	}
	if date, err := h.calendar.ResolveTargetDate(ctx, service.DataTypeMarketStats); err == nil {
		status["marketStatsTargetDate"] = date
	}

	return c.JSON(http.StatusOK, status)
}

// ClearHolidayCache 清除假日快取
// POST /api/admin/holiday-cache/clear
func (h *AdminHandler) ClearHolidayCache(c echo.Context) error {
	h.holidayService.ClearCache()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cleared": true,
	})
}

// GetHolidayCache 假日快取統計
// GET /api/admin/holiday-cache
func (h *AdminHandler) GetHolidayCache(c echo.Context) error {
	return c.JSON(http.StatusOK, h.holidayService.GetCacheStats())
}

func (h *AdminHandler) RegisterRoutes(g *echo.Group) {
	admin := g.Group("/admin")
	admin.POST("/fetch-single-day", h.FetchSingleDay)
	admin.POST("/fetch-date-range", h.FetchDateRange)
	admin.GET("/status", h.GetStatus)
	admin.POST("/holiday-cache/clear", h.ClearHolidayCache)
	admin.GET("/holiday-cache", h.GetHolidayCache)
}
