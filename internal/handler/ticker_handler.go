package handler

import (
	"net/http"
	"time"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/service"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/xe"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TickerHandler 行情資料HTTP處理器
type TickerHandler struct {
	tickerService *service.TickerService
	calendar      *service.CalendarService
	logger        *zap.Logger
}

func NewTickerHandler(tickerService *service.TickerService, calendar *service.CalendarService,
	logger *zap.Logger) *TickerHandler {
	return &TickerHandler{
		tickerService: tickerService,
		calendar:      calendar,
		logger:        logger,
	}
}

type fetchTickersRequest struct {
	Date string `json:"date"` // YYYY-MM-DD，留空則依交易日曆解析
}

func (r fetchTickersRequest) validate() error {
	if r.Date == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return xe.ErrInvalidDate
	}
	return nil
}

// resolveDate 解析目標日期，未指定時回退到最近交易日
func (h *TickerHandler) resolveDate(c echo.Context, date string) (string, error) {
	if date != "" {
		return date, nil
	}
	return h.calendar.ResolveTargetDate(c.Request().Context(), service.DataTypeTicker)
}

// FetchTwseEquities 抓取上市個股行情
// POST /api/ticker/fetch-twse-equities
func (h *TickerHandler) FetchTwseEquities(c echo.Context) error {
	var req fetchTickersRequest
	if err := c.Bind(&req); err != nil {
		return xe.ErrInvalidParams
	}
	if err := req.validate(); err != nil {
		return err
	}

	date, err := h.resolveDate(c, req.Date)
	if err != nil {
		return err
	}

	if err := h.tickerService.UpdateTwseEquitiesQuotes(c.Request().Context(), date); err != nil {
		h.logger.Error("上市個股行情更新失敗", zap.String("date", date), zap.Error(err))
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":   date,
		"market": "TWSE",
	})
}

// FetchTpexEquities 抓取上櫃個股行情
// POST /api/ticker/fetch-tpex-equities
func (h *TickerHandler) FetchTpexEquities(c echo.Context) error {
	var req fetchTickersRequest
	if err := c.Bind(&req); err != nil {
		return xe.ErrInvalidParams
	}
	if err := req.validate(); err != nil {
		return err
	}

	date, err := h.resolveDate(c, req.Date)
	if err != nil {
		return err
	}

	if err := h.tickerService.UpdateTpexEquitiesQuotes(c.Request().Context(), date); err != nil {
		h.logger.Error("上櫃個股行情更新失敗", zap.String("date", date), zap.Error(err))
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":   date,
		"market": "TPEx",
	})
}

// FetchAllEquities 執行完整每日行情更新（指數、大盤、類股、個股、法人）
// POST /api/ticker/fetch-all-equities
func (h *TickerHandler) FetchAllEquities(c echo.Context) error {
	var req fetchTickersRequest
	if err := c.Bind(&req); err != nil {
		return xe.ErrInvalidParams
	}
	if err := req.validate(); err != nil {
		return err
	}

	if err := h.tickerService.UpdateTickers(c.Request().Context(), req.Date); err != nil {
		h.logger.Error("每日行情更新失敗", zap.Error(err))
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"date": req.Date,
	})
}

func (h *TickerHandler) RegisterRoutes(g *echo.Group) {
	ticker := g.Group("/ticker")
	ticker.POST("/fetch-twse-equities", h.FetchTwseEquities)
	ticker.POST("/fetch-tpex-equities", h.FetchTpexEquities)
	ticker.POST("/fetch-all-equities", h.FetchAllEquities)
}
