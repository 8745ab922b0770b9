package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/models"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/repo"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/scraper"
)

// TwseFetcher 證交所行情來源
type TwseFetcher interface {
	FetchIndicesQuotes(ctx context.Context, date string) ([]scraper.IndexQuote, error)
	FetchMarketTrades(ctx context.Context, date string) (*scraper.MarketTrades, error)
	FetchIndicesTrades(ctx context.Context, date string) ([]scraper.SectorTrades, error)
	FetchEquitiesQuotes(ctx context.Context, date string) ([]scraper.EquityQuote, error)
	FetchEquitiesInstInvestorsTrades(ctx context.Context, date string) ([]scraper.EquityInstTrade, error)
}

// TpexFetcher 櫃買中心行情來源，方法集合與證交所相同
type TpexFetcher interface {
	TwseFetcher
}

// TickerService 每日行情更新流程。
// 任務分為五個固定群組依序執行：指數行情、大盤成交量值、類股成交量值、
// 個股行情、三大法人買賣超；群組內兩市場任務並行，群組間固定延遲，
// 後面群組的欄位會併入前面群組建立的資料列，彼此寫入的欄位不重疊。
type TickerService struct {
	logger *zap.Logger

	twse       TwseFetcher
	tpex       TpexFetcher
	tickerRepo *repo.TickerRepo
	calendar   *CalendarService
	holidays   *HolidayService

	groupDelay time.Duration
}

// NewTickerService 建立行情更新服務
func NewTickerService(twse TwseFetcher, tpex TpexFetcher, tickerRepo *repo.TickerRepo,
	calendar *CalendarService, holidays *HolidayService, groupDelay time.Duration, logger *zap.Logger) *TickerService {
	if groupDelay <= 0 {
		groupDelay = 5 * time.Second
	}
	return &TickerService{
		logger:     logger,
		twse:       twse,
		tpex:       tpex,
		tickerRepo: tickerRepo,
		calendar:   calendar,
		holidays:   holidays,
		groupDelay: groupDelay,
	}
}

type tickerTask struct {
	name string
	run  func(ctx context.Context, date string) error
}

// UpdateTickers 執行指定日期的完整行情更新。
// date 為空時由交易日曆解析目標日期；單一任務失敗只記錄，
// 不影響同群組其他任務與後續群組。
func (s *TickerService) UpdateTickers(ctx context.Context, date string) error {
	if date == "" {
		resolved, err := s.calendar.ResolveTargetDate(ctx, DataTypeTicker)
		if err != nil {
			return err
		}
		date = resolved
	}

	if s.holidays.IsHoliday(ctx, date) {
		s.logger.Info("休假日，跳過行情更新", zap.String("date", date))
		return nil
	}

	groups := [][]tickerTask{
		{
			{"上市指數收盤行情", s.UpdateTwseIndicesQuotes},
			{"上櫃指數收盤行情", s.UpdateTpexIndicesQuotes},
		},
		{
			{"集中市場成交量值", s.UpdateTwseMarketTrades},
			{"櫃買市場成交量值", s.UpdateTpexMarketTrades},
		},
		{
			{"上市類股成交量值", s.UpdateTwseIndicesTrades},
			{"上櫃類股成交量值", s.UpdateTpexIndicesTrades},
		},
		{
			{"上市個股收盤行情", s.UpdateTwseEquitiesQuotes},
			{"上櫃個股收盤行情", s.UpdateTpexEquitiesQuotes},
		},
		{
			{"上市個股法人買賣超", s.UpdateTwseEquitiesInstTrades},
			{"上櫃個股法人買賣超", s.UpdateTpexEquitiesInstTrades},
		},
	}

	for i, group := range groups {
		var wg sync.WaitGroup
		for _, task := range group {
			wg.Add(1)
			go func(task tickerTask) {
				defer wg.Done()
				if err := task.run(ctx, date); err != nil {
					s.logger.Warn("行情任務失敗",
						zap.String("task", task.name), zap.String("date", date), zap.Error(err))
				}
			}(task)
		}
		wg.Wait()

		if i < len(groups)-1 {
			select {
			case <-time.After(s.groupDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	s.logger.Info("行情更新完成", zap.String("date", date))
	return nil
}

// UpdateTwseIndicesQuotes 更新上市指數收盤行情
func (s *TickerService) UpdateTwseIndicesQuotes(ctx context.Context, date string) error {
	exists, err := s.hasData(ctx, date, models.ExchangeTWSE, models.TickerTypeIndex)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("上市指數行情已存在，跳過", zap.String("date", date))
		return nil
	}

	quotes, err := s.twse.FetchIndicesQuotes(ctx, date)
	if err != nil {
		return fmt.Errorf("取得上市指數行情失敗: %w", err)
	}
	if quotes == nil {
		s.logger.Warn("上市指數行情尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	tickers := make([]*models.Ticker, 0, len(quotes))
	for _, q := range quotes {
		tickers = append(tickers, indexQuoteToTicker(q, models.ExchangeTWSE, models.MarketTSE))
	}
	return s.batchUpdate(ctx, "上市指數收盤行情", date, tickers)
}

// UpdateTpexIndicesQuotes 更新上櫃指數收盤行情
func (s *TickerService) UpdateTpexIndicesQuotes(ctx context.Context, date string) error {
	exists, err := s.hasData(ctx, date, models.ExchangeTPEx, models.TickerTypeIndex)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("上櫃指數行情已存在，跳過", zap.String("date", date))
		return nil
	}

	quotes, err := s.tpex.FetchIndicesQuotes(ctx, date)
	if err != nil {
		return fmt.Errorf("取得上櫃指數行情失敗: %w", err)
	}
	if quotes == nil {
		s.logger.Warn("上櫃指數行情尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	tickers := make([]*models.Ticker, 0, len(quotes))
	for _, q := range quotes {
		tickers = append(tickers, indexQuoteToTicker(q, models.ExchangeTPEx, models.MarketOTC))
	}
	return s.batchUpdate(ctx, "上櫃指數收盤行情", date, tickers)
}

// UpdateTwseMarketTrades 集中市場成交量值併入加權指數資料列
func (s *TickerService) UpdateTwseMarketTrades(ctx context.Context, date string) error {
	trades, err := s.twse.FetchMarketTrades(ctx, date)
	if err != nil {
		return fmt.Errorf("取得集中市場成交量值失敗: %w", err)
	}
	if trades == nil {
		s.logger.Warn("集中市場成交量值尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	ticker := &models.Ticker{
		Date:        date,
		Symbol:      "IX0001",
		Name:        "發行量加權股價指數",
		Exchange:    models.ExchangeTWSE,
		Market:      models.MarketTSE,
		Type:        models.TickerTypeIndex,
		TradeVolume: trades.TradeVolume,
		TradeValue:  trades.TradeValue,
		Transaction: trades.Transaction,
	}
	return s.batchUpdate(ctx, "集中市場成交量值", date, []*models.Ticker{ticker})
}

// UpdateTpexMarketTrades 櫃買市場成交量值併入櫃買指數資料列
func (s *TickerService) UpdateTpexMarketTrades(ctx context.Context, date string) error {
	trades, err := s.tpex.FetchMarketTrades(ctx, date)
	if err != nil {
		return fmt.Errorf("取得櫃買市場成交量值失敗: %w", err)
	}
	if trades == nil {
		s.logger.Warn("櫃買市場成交量值尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	ticker := &models.Ticker{
		Date:        date,
		Symbol:      "IX0043",
		Name:        "櫃買指數",
		Exchange:    models.ExchangeTPEx,
		Market:      models.MarketOTC,
		Type:        models.TickerTypeIndex,
		TradeVolume: trades.TradeVolume,
		TradeValue:  trades.TradeValue,
		Transaction: trades.Transaction,
	}
	return s.batchUpdate(ctx, "櫃買市場成交量值", date, []*models.Ticker{ticker})
}

// UpdateTwseIndicesTrades 上市類股成交量值併入各類股指數資料列
func (s *TickerService) UpdateTwseIndicesTrades(ctx context.Context, date string) error {
	trades, err := s.twse.FetchIndicesTrades(ctx, date)
	if err != nil {
		return fmt.Errorf("取得上市類股成交量值失敗: %w", err)
	}
	if trades == nil {
		s.logger.Warn("上市類股成交量值尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	tickers := make([]*models.Ticker, 0, len(trades))
	for _, t := range trades {
		tickers = append(tickers, sectorTradesToTicker(t, models.ExchangeTWSE, models.MarketTSE))
	}
	return s.batchUpdate(ctx, "上市類股成交量值", date, tickers)
}

// UpdateTpexIndicesTrades 上櫃類股成交量值併入各類股指數資料列
func (s *TickerService) UpdateTpexIndicesTrades(ctx context.Context, date string) error {
	trades, err := s.tpex.FetchIndicesTrades(ctx, date)
	if err != nil {
		return fmt.Errorf("取得上櫃類股成交量值失敗: %w", err)
	}
	if trades == nil {
		s.logger.Warn("上櫃類股成交量值尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	tickers := make([]*models.Ticker, 0, len(trades))
	for _, t := range trades {
		tickers = append(tickers, sectorTradesToTicker(t, models.ExchangeTPEx, models.MarketOTC))
	}
	return s.batchUpdate(ctx, "上櫃類股成交量值", date, tickers)
}

// UpdateTwseEquitiesQuotes 更新上市個股收盤行情
func (s *TickerService) UpdateTwseEquitiesQuotes(ctx context.Context, date string) error {
	exists, err := s.hasData(ctx, date, models.ExchangeTWSE, models.TickerTypeEquity)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("上市個股行情已存在，跳過", zap.String("date", date))
		return nil
	}

	quotes, err := s.twse.FetchEquitiesQuotes(ctx, date)
	if err != nil {
		return fmt.Errorf("取得上市個股行情失敗: %w", err)
	}
	if quotes == nil {
		s.logger.Warn("上市個股行情尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	tickers := make([]*models.Ticker, 0, len(quotes))
	for _, q := range quotes {
		tickers = append(tickers, equityQuoteToTicker(q, models.ExchangeTWSE, models.MarketTSE))
	}
	return s.batchUpdate(ctx, "上市個股收盤行情", date, tickers)
}

// UpdateTpexEquitiesQuotes 更新上櫃個股收盤行情
func (s *TickerService) UpdateTpexEquitiesQuotes(ctx context.Context, date string) error {
	exists, err := s.hasData(ctx, date, models.ExchangeTPEx, models.TickerTypeEquity)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("上櫃個股行情已存在，跳過", zap.String("date", date))
		return nil
	}

	quotes, err := s.tpex.FetchEquitiesQuotes(ctx, date)
	if err != nil {
		return fmt.Errorf("取得上櫃個股行情失敗: %w", err)
	}
	if quotes == nil {
		s.logger.Warn("上櫃個股行情尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	tickers := make([]*models.Ticker, 0, len(quotes))
	for _, q := range quotes {
		tickers = append(tickers, equityQuoteToTicker(q, models.ExchangeTPEx, models.MarketOTC))
	}
	return s.batchUpdate(ctx, "上櫃個股收盤行情", date, tickers)
}

// UpdateTwseEquitiesInstTrades 上市個股三大法人買賣超併入個股資料列
func (s *TickerService) UpdateTwseEquitiesInstTrades(ctx context.Context, date string) error {
	trades, err := s.twse.FetchEquitiesInstInvestorsTrades(ctx, date)
	if err != nil {
		return fmt.Errorf("取得上市個股法人買賣超失敗: %w", err)
	}
	if trades == nil {
		s.logger.Warn("上市個股法人買賣超尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	tickers := make([]*models.Ticker, 0, len(trades))
	for _, t := range trades {
		tickers = append(tickers, instTradeToTicker(t, models.ExchangeTWSE, models.MarketTSE))
	}
	return s.batchUpdate(ctx, "上市個股法人買賣超", date, tickers)
}

// UpdateTpexEquitiesInstTrades 上櫃個股三大法人買賣超併入個股資料列
func (s *TickerService) UpdateTpexEquitiesInstTrades(ctx context.Context, date string) error {
	trades, err := s.tpex.FetchEquitiesInstInvestorsTrades(ctx, date)
	if err != nil {
		return fmt.Errorf("取得上櫃個股法人買賣超失敗: %w", err)
	}
	if trades == nil {
		s.logger.Warn("上櫃個股法人買賣超尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	tickers := make([]*models.Ticker, 0, len(trades))
	for _, t := range trades {
		tickers = append(tickers, instTradeToTicker(t, models.ExchangeTPEx, models.MarketOTC))
	}
	return s.batchUpdate(ctx, "上櫃個股法人買賣超", date, tickers)
}

// hasData 該日期已有同類資料時跳過整個任務，比逐筆比對便宜
func (s *TickerService) hasData(ctx context.Context, date string, exchange models.Exchange, tickerType models.TickerType) (bool, error) {
	count, err := s.tickerRepo.CountByDate(ctx, date, exchange, tickerType)
	if err != nil {
		return false, fmt.Errorf("查詢既有資料失敗: %w", err)
	}
	return count > 0, nil
}

func (s *TickerService) batchUpdate(ctx context.Context, name, date string, tickers []*models.Ticker) error {
	result, err := s.tickerRepo.SmartBatchUpdate(ctx, tickers)
	if err != nil {
		return err
	}
	s.logger.Info(name+"已更新",
		zap.String("date", date),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("total", result.Total))
	return nil
}

func indexQuoteToTicker(q scraper.IndexQuote, exchange models.Exchange, market models.Market) *models.Ticker {
	return &models.Ticker{
		Date:          q.Date,
		Symbol:        q.Symbol,
		Name:          q.Name,
		Exchange:      exchange,
		Market:        market,
		Type:          models.TickerTypeIndex,
		OpenPrice:     q.OpenPrice,
		HighPrice:     q.HighPrice,
		LowPrice:      q.LowPrice,
		ClosePrice:    q.ClosePrice,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
	}
}

func sectorTradesToTicker(t scraper.SectorTrades, exchange models.Exchange, market models.Market) *models.Ticker {
	return &models.Ticker{
		Date:        t.Date,
		Symbol:      t.Symbol,
		Name:        t.Name,
		Exchange:    exchange,
		Market:      market,
		Type:        models.TickerTypeIndex,
		TradeVolume: t.TradeVolume,
		TradeValue:  t.TradeValue,
		TradeWeight: t.TradeWeight,
	}
}

func equityQuoteToTicker(q scraper.EquityQuote, exchange models.Exchange, market models.Market) *models.Ticker {
	return &models.Ticker{
		Date:          q.Date,
		Symbol:        q.Symbol,
		Name:          q.Name,
		Exchange:      exchange,
		Market:        market,
		Type:          models.TickerTypeEquity,
		OpenPrice:     q.OpenPrice,
		HighPrice:     q.HighPrice,
		LowPrice:      q.LowPrice,
		ClosePrice:    q.ClosePrice,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		TradeVolume:   q.TradeVolume,
		TradeValue:    q.TradeValue,
		Transaction:   q.Transaction,
	}
}

func instTradeToTicker(t scraper.EquityInstTrade, exchange models.Exchange, market models.Market) *models.Ticker {
	return &models.Ticker{
		Date:              t.Date,
		Symbol:            t.Symbol,
		Exchange:          exchange,
		Market:            market,
		Type:              models.TickerTypeEquity,
		FiniNetBuySell:    t.FiniNetBuySell,
		SitcNetBuySell:    t.SitcNetBuySell,
		DealersNetBuySell: t.DealersNetBuySell,
	}
}
