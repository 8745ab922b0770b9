package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/models"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/repo"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/scraper"
)

// TwseMarketFetcher 證交所大盤統計來源
type TwseMarketFetcher interface {
	FetchMarketTrades(ctx context.Context, date string) (*scraper.MarketTrades, error)
	FetchInstInvestorsTrades(ctx context.Context, date string) (*scraper.InstInvestorsNet, error)
	FetchMarginTransactions(ctx context.Context, date string) (*scraper.MarginTransactions, error)
}

// TaifexFetcher 期交所衍生性商品統計來源
type TaifexFetcher interface {
	FetchInstInvestorsTxfTrades(ctx context.Context, date string) (*scraper.TxfNetOi, error)
	FetchInstInvestorsTxoTrades(ctx context.Context, date string) (*scraper.TxoNetOiValue, error)
	FetchLargeTradersTxfPosition(ctx context.Context, date string) (*scraper.LargeTradersTxf, error)
	FetchRetailMxfPosition(ctx context.Context, date string) (*scraper.RetailMxf, error)
	FetchTxoPutCallRatio(ctx context.Context, date string) (*scraper.PutCallRatio, error)
	FetchExchangeRates(ctx context.Context, date string) (*scraper.FxRate, error)
}

// MarketStatsService 大盤籌碼更新流程。
// 任務依序執行並於任務間固定延遲；各任務只寫自己的欄位子集，
// 同一日期的資料列由多個任務分次補齊。
type MarketStatsService struct {
	logger *zap.Logger

	twse      TwseMarketFetcher
	taifex    TaifexFetcher
	statsRepo *repo.MarketStatsRepo
	calendar  *CalendarService
	holidays  *HolidayService

	taskDelay time.Duration
}

// NewMarketStatsService 建立大盤籌碼服務
func NewMarketStatsService(twse TwseMarketFetcher, taifex TaifexFetcher, statsRepo *repo.MarketStatsRepo,
	calendar *CalendarService, holidays *HolidayService, taskDelay time.Duration, logger *zap.Logger) *MarketStatsService {
	if taskDelay <= 0 {
		taskDelay = 2 * time.Second
	}
	return &MarketStatsService{
		logger:    logger,
		twse:      twse,
		taifex:    taifex,
		statsRepo: statsRepo,
		calendar:  calendar,
		holidays:  holidays,
		taskDelay: taskDelay,
	}
}

type marketStatsTask struct {
	name string
	run  func(ctx context.Context, date string) error
}

// UpdateMarketStats 執行指定日期的完整大盤籌碼更新。
// date 為空時由交易日曆解析；單一任務失敗只記錄，不中斷後續任務。
func (s *MarketStatsService) UpdateMarketStats(ctx context.Context, date string) error {
	if date == "" {
		resolved, err := s.calendar.ResolveTargetDate(ctx, DataTypeMarketStats)
		if err != nil {
			return err
		}
		date = resolved
	}

	if s.holidays.IsHoliday(ctx, date) {
		s.logger.Info("休假日，跳過大盤籌碼更新", zap.String("date", date))
		return nil
	}

	tasks := []marketStatsTask{
		{"集中市場加權指數", s.UpdateTaiex},
		{"集中市場三大法人買賣超", s.UpdateInstInvestorsTrades},
		{"集中市場信用交易", s.UpdateMarginTransactions},
		{"外資臺股期貨未平倉淨口數", s.UpdateFiniTxfNetOi},
		{"外資臺指選擇權未平倉淨金額", s.UpdateFiniTxoNetOiValue},
		{"十大特法臺股期貨未平倉淨口數", s.UpdateLargeTradersTxfNetOi},
		{"散戶小台淨部位", s.UpdateRetailMxfPosition},
		{"臺指選擇權 Put/Call Ratio", s.UpdateTxoPutCallRatio},
		{"美元兌新臺幣匯率", s.UpdateUsdTwdRate},
	}

	for i, task := range tasks {
		if err := task.run(ctx, date); err != nil {
			s.logger.Warn("大盤籌碼任務失敗",
				zap.String("task", task.name), zap.String("date", date), zap.Error(err))
		}
		if i < len(tasks)-1 {
			select {
			case <-time.After(s.taskDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	s.logger.Info("大盤籌碼已更新", zap.String("date", date))
	return nil
}

// UpdateTaiex 更新加權指數與集中市場成交金額
func (s *MarketStatsService) UpdateTaiex(ctx context.Context, date string) error {
	if s.holidays.IsHoliday(ctx, date) {
		s.logger.Info("集中市場加權指數: 跳過假日", zap.String("date", date))
		return nil
	}

	data, err := s.twse.FetchMarketTrades(ctx, date)
	if err != nil {
		return fmt.Errorf("取得集中市場加權指數失敗: %w", err)
	}
	if data == nil {
		s.logger.Warn("集中市場加權指數: 尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	outcome, err := s.statsRepo.SmartUpdate(ctx, &models.MarketStats{
		Date:            data.Date,
		TaiexPrice:      data.Price,
		TaiexChange:     data.Change,
		TaiexTradeValue: data.TradeValue,
	})
	if err != nil {
		return err
	}
	s.logOutcome("集中市場加權指數", date, outcome)
	return nil
}

// UpdateInstInvestorsTrades 更新集中市場三大法人買賣超
func (s *MarketStatsService) UpdateInstInvestorsTrades(ctx context.Context, date string) error {
	if s.holidays.IsHoliday(ctx, date) {
		s.logger.Info("集中市場三大法人買賣超: 跳過假日", zap.String("date", date))
		return nil
	}

	data, err := s.twse.FetchInstInvestorsTrades(ctx, date)
	if err != nil {
		return fmt.Errorf("取得集中市場三大法人買賣超失敗: %w", err)
	}
	if data == nil {
		s.logger.Warn("集中市場三大法人買賣超: 尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	outcome, err := s.statsRepo.SmartUpdate(ctx, &models.MarketStats{
		Date:              data.Date,
		FiniNetBuySell:    data.FiniNetBuySell,
		SitcNetBuySell:    data.SitcNetBuySell,
		DealersNetBuySell: data.DealersNetBuySell,
	})
	if err != nil {
		return err
	}
	s.logOutcome("集中市場三大法人買賣超", date, outcome)
	return nil
}

// UpdateMarginTransactions 更新集中市場信用交易統計
func (s *MarketStatsService) UpdateMarginTransactions(ctx context.Context, date string) error {
	if s.holidays.IsHoliday(ctx, date) {
		s.logger.Info("集中市場信用交易: 跳過假日", zap.String("date", date))
		return nil
	}

	data, err := s.twse.FetchMarginTransactions(ctx, date)
	if err != nil {
		return fmt.Errorf("取得集中市場信用交易失敗: %w", err)
	}
	if data == nil {
		s.logger.Warn("集中市場信用交易: 尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	outcome, err := s.statsRepo.SmartUpdate(ctx, &models.MarketStats{
		Date:                     data.Date,
		MarginBalance:            data.MarginBalance,
		MarginBalanceChange:      data.MarginBalanceChange,
		MarginBalanceValue:       data.MarginBalanceValue,
		MarginBalanceValueChange: data.MarginBalanceValueChange,
		ShortBalance:             data.ShortBalance,
		ShortBalanceChange:       data.ShortBalanceChange,
	})
	if err != nil {
		return err
	}
	s.logOutcome("集中市場信用交易", date, outcome)
	return nil
}

// UpdateFiniTxfNetOi 更新外資臺股期貨未平倉淨口數
func (s *MarketStatsService) UpdateFiniTxfNetOi(ctx context.Context, date string) error {
	data, err := s.taifex.FetchInstInvestorsTxfTrades(ctx, date)
	if err != nil {
		return fmt.Errorf("取得外資臺股期貨未平倉淨口數失敗: %w", err)
	}
	if data == nil {
		s.logger.Warn("外資臺股期貨未平倉淨口數: 尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	if err := s.statsRepo.Upsert(ctx, &models.MarketStats{
		Date:         data.Date,
		FiniTxfNetOi: data.FiniTxfNetOi,
	}); err != nil {
		return err
	}
	s.logger.Info("外資臺股期貨未平倉淨口數: 已更新", zap.String("date", date))
	return nil
}

// UpdateFiniTxoNetOiValue 更新外資臺指選擇權未平倉淨金額
func (s *MarketStatsService) UpdateFiniTxoNetOiValue(ctx context.Context, date string) error {
	data, err := s.taifex.FetchInstInvestorsTxoTrades(ctx, date)
	if err != nil {
		return fmt.Errorf("取得外資臺指選擇權未平倉淨金額失敗: %w", err)
	}
	if data == nil {
		s.logger.Warn("外資臺指選擇權未平倉淨金額: 尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	if err := s.statsRepo.Upsert(ctx, &models.MarketStats{
		Date:                   data.Date,
		FiniTxoCallsNetOiValue: data.FiniTxoCallsNetOiValue,
		FiniTxoPutsNetOiValue:  data.FiniTxoPutsNetOiValue,
	}); err != nil {
		return err
	}
	s.logger.Info("外資臺指選擇權未平倉淨金額: 已更新", zap.String("date", date))
	return nil
}

// UpdateLargeTradersTxfNetOi 更新十大特定法人臺股期貨未平倉淨口數
func (s *MarketStatsService) UpdateLargeTradersTxfNetOi(ctx context.Context, date string) error {
	data, err := s.taifex.FetchLargeTradersTxfPosition(ctx, date)
	if err != nil {
		return fmt.Errorf("取得十大特法臺股期貨未平倉淨口數失敗: %w", err)
	}
	if data == nil {
		s.logger.Warn("十大特法臺股期貨未平倉淨口數: 尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	if err := s.statsRepo.Upsert(ctx, &models.MarketStats{
		Date:                             data.Date,
		TopTenSpecificFrontMonthTxfNetOi: data.TopTenSpecificFrontMonthTxfNetOi,
		TopTenSpecificBackMonthsTxfNetOi: data.TopTenSpecificBackMonthsTxfNetOi,
	}); err != nil {
		return err
	}
	s.logger.Info("十大特法臺股期貨未平倉淨口數: 已更新", zap.String("date", date))
	return nil
}

// UpdateRetailMxfPosition 更新散戶小型臺指淨部位
func (s *MarketStatsService) UpdateRetailMxfPosition(ctx context.Context, date string) error {
	data, err := s.taifex.FetchRetailMxfPosition(ctx, date)
	if err != nil {
		return fmt.Errorf("取得散戶小台淨部位失敗: %w", err)
	}
	if data == nil {
		s.logger.Warn("散戶小台淨部位: 尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	if err := s.statsRepo.Upsert(ctx, &models.MarketStats{
		Date:                    data.Date,
		RetailMxfNetOi:          data.RetailMxfNetOi,
		RetailMxfLongShortRatio: data.RetailMxfLongShortRatio,
	}); err != nil {
		return err
	}
	s.logger.Info("散戶小台淨部位: 已更新", zap.String("date", date))
	return nil
}

// UpdateTxoPutCallRatio 更新臺指選擇權 Put/Call Ratio
func (s *MarketStatsService) UpdateTxoPutCallRatio(ctx context.Context, date string) error {
	data, err := s.taifex.FetchTxoPutCallRatio(ctx, date)
	if err != nil {
		return fmt.Errorf("取得臺指選擇權 Put/Call Ratio 失敗: %w", err)
	}
	if data == nil {
		s.logger.Warn("臺指選擇權 Put/Call Ratio: 尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	if err := s.statsRepo.Upsert(ctx, &models.MarketStats{
		Date:            data.Date,
		TxoPutCallRatio: data.TxoPutCallRatio,
	}); err != nil {
		return err
	}
	s.logger.Info("臺指選擇權 Put/Call Ratio: 已更新", zap.String("date", date))
	return nil
}

// UpdateUsdTwdRate 更新美元兌新臺幣匯率
func (s *MarketStatsService) UpdateUsdTwdRate(ctx context.Context, date string) error {
	data, err := s.taifex.FetchExchangeRates(ctx, date)
	if err != nil {
		return fmt.Errorf("取得美元兌新臺幣匯率失敗: %w", err)
	}
	if data == nil {
		s.logger.Warn("美元兌新臺幣匯率: 尚無資料或非交易日", zap.String("date", date))
		return nil
	}

	if err := s.statsRepo.Upsert(ctx, &models.MarketStats{
		Date:   data.Date,
		UsdTwd: data.UsdTwd,
	}); err != nil {
		return err
	}
	s.logger.Info("美元兌新臺幣匯率: 已更新", zap.String("date", date))
	return nil
}

func (s *MarketStatsService) logOutcome(name, date string, outcome repo.UpsertOutcome) {
	switch outcome {
	case repo.OutcomeCreated:
		s.logger.Info(name+": 已新增", zap.String("date", date))
	case repo.OutcomeUpdated:
		s.logger.Info(name+": 已更新", zap.String("date", date))
	default:
		s.logger.Info(name+": 資料相同，跳過更新", zap.String("date", date))
	}
}
