package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler 每日排程。依各資料來源的公布時點註冊排程任務，
// 所有任務都以空日期呼叫服務層，由交易日曆解析實際目標日期，
// 因此同一批任務也能用指定日期直接觸發（回補、手動補抓）。
// Notifier 排程任務完成後推播摘要，未設定時不推播
type Notifier interface {
	NotifyDailyUpdate(date, task string) error
}

type Scheduler struct {
	logger *zap.Logger

	tickers     *TickerService
	marketStats *MarketStatsService
	analysis    *AnalysisService
	calendar    *CalendarService
	notifier    Notifier

	cron *cron.Cron
}

// SetNotifier 設定推播通知，須於 Start 前呼叫
func (s *Scheduler) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// NewScheduler 建立排程器
func NewScheduler(tickers *TickerService, marketStats *MarketStatsService,
	analysis *AnalysisService, calendar *CalendarService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger:      logger,
		tickers:     tickers,
		marketStats: marketStats,
		analysis:    analysis,
		calendar:    calendar,
	}
}

// Start 註冊所有排程並啟動
func (s *Scheduler) Start() error {
	// 任務內發生 panic 時由 cron 回收，不中斷整個排程器
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(zap.NewStdLog(s.logger))),
	))

	entries := []struct {
		spec string
		name string
		run  func(ctx context.Context) error
	}{
		// 14:00 收盤後行情更新（五個群組依序執行）
		{"0 14 * * 1-5", "每日行情更新", func(ctx context.Context) error {
			return s.tickers.UpdateTickers(ctx, "")
		}},
		// 14:30 技術指標計算
		{"30 14 * * 1-5", "技術指標計算", s.runBatchCalculate},
		// 15:00 加權指數與期交所衍生性商品統計
		{"0 15 * * 1-5", "大盤指數與衍生性商品統計", s.runAfternoonMarketStats},
		// 15:30 三大法人買賣超
		{"30 15 * * 1-5", "三大法人買賣超", func(ctx context.Context) error {
			return s.withResolvedDate(ctx, DataTypeMarketStats, s.marketStats.UpdateInstInvestorsTrades)
		}},
		// 16:30 個股法人買賣超（T86 下午公布）
		{"30 16 * * 1-5", "個股法人買賣超", s.runEquitiesInstTrades},
		// 17:00 匯率
		{"0 17 * * *", "美元兌新臺幣匯率", func(ctx context.Context) error {
			return s.withResolvedDate(ctx, DataTypeMarketStats, s.marketStats.UpdateUsdTwdRate)
		}},
		// 20:00 完整大盤籌碼更新比對
		{"0 20 * * 1-5", "完整大盤籌碼更新", s.runFullMarketStats},
		// 21:30 信用交易統計（晚間公布）
		{"30 21 * * *", "信用交易統計", func(ctx context.Context) error {
			return s.withResolvedDate(ctx, DataTypeMarketStats, s.marketStats.UpdateMarginTransactions)
		}},
	}

	for _, entry := range entries {
		entry := entry
		_, err := s.cron.AddFunc(entry.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			if err := entry.run(ctx); err != nil {
				s.logger.Error("排程任務失敗", zap.String("task", entry.name), zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("註冊排程 %s (%s) 失敗: %w", entry.name, entry.spec, err)
		}
		s.logger.Info("排程已註冊", zap.String("task", entry.name), zap.String("spec", entry.spec))
	}

	s.cron.Start()
	s.logger.Info("排程器已啟動")
	return nil
}

// Stop 停止排程器並等待執行中任務完成
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("排程器已停止")
}

func (s *Scheduler) withResolvedDate(ctx context.Context, dataType DataType,
	run func(ctx context.Context, date string) error) error {
	date, err := s.calendar.ResolveTargetDate(ctx, dataType)
	if err != nil {
		return err
	}
	return run(ctx, date)
}

func (s *Scheduler) runFullMarketStats(ctx context.Context) error {
	date, err := s.calendar.ResolveTargetDate(ctx, DataTypeMarketStats)
	if err != nil {
		return err
	}
	if err := s.marketStats.UpdateMarketStats(ctx, date); err != nil {
		return err
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyDailyUpdate(date, "完整大盤籌碼更新"); err != nil {
			s.logger.Warn("推播通知失敗", zap.Error(err))
		}
	}
	return nil
}

func (s *Scheduler) runBatchCalculate(ctx context.Context) error {
	date, err := s.calendar.ResolveTargetDate(ctx, DataTypeTicker)
	if err != nil {
		return err
	}
	_, err = s.analysis.BatchCalculate(ctx, date)
	return err
}

// runAfternoonMarketStats 加權指數與期交所統計，依公布順序逐一執行
func (s *Scheduler) runAfternoonMarketStats(ctx context.Context) error {
	date, err := s.calendar.ResolveTargetDate(ctx, DataTypeMarketStats)
	if err != nil {
		return err
	}

	tasks := []func(ctx context.Context, date string) error{
		s.marketStats.UpdateTaiex,
		s.marketStats.UpdateFiniTxfNetOi,
		s.marketStats.UpdateFiniTxoNetOiValue,
		s.marketStats.UpdateLargeTradersTxfNetOi,
		s.marketStats.UpdateRetailMxfPosition,
		s.marketStats.UpdateTxoPutCallRatio,
	}
	for _, task := range tasks {
		if err := task(ctx, date); err != nil {
			s.logger.Warn("大盤統計任務失敗", zap.String("date", date), zap.Error(err))
		}
	}
	return nil
}

func (s *Scheduler) runEquitiesInstTrades(ctx context.Context) error {
	date, err := s.calendar.ResolveTargetDate(ctx, DataTypeTicker)
	if err != nil {
		return err
	}
	if err := s.tickers.UpdateTwseEquitiesInstTrades(ctx, date); err != nil {
		s.logger.Warn("上市個股法人買賣超失敗", zap.String("date", date), zap.Error(err))
	}
	if err := s.tickers.UpdateTpexEquitiesInstTrades(ctx, date); err != nil {
		s.logger.Warn("上櫃個股法人買賣超失敗", zap.String("date", date), zap.Error(err))
	}
	return nil
}
