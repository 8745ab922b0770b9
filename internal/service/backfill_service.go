package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DateStatus 回補單日結果狀態
type DateStatus string

const (
	DateStatusSuccess DateStatus = "success"
	DateStatusSkipped DateStatus = "skipped"
	DateStatusError   DateStatus = "error"
)

// DateOutcome 回補單日結果
type DateOutcome struct {
	Date   string     `json:"date"`
	Status DateStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// BackfillRequest 回補請求：指定日期清單，或起訖範圍（含頭尾）。
// MissingOnly 時只處理缺少技術指標的日期。
type BackfillRequest struct {
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Dates       []string `json:"dates"`
	MissingOnly bool     `json:"missingOnly"`
}

// DateRunner 執行單一日期的完整更新
type DateRunner interface {
	RunDate(ctx context.Context, date string) error
}

// BackfillService 歷史資料回補。
// 逐日執行，結果逐日記錄而非拋出，日期之間固定延遲。
type BackfillService struct {
	logger *zap.Logger

	runner    DateRunner
	holidays  *HolidayService
	analysis  *AnalysisService
	dateDelay time.Duration
}

// NewBackfillService 建立回補服務
func NewBackfillService(runner DateRunner, holidays *HolidayService, analysis *AnalysisService,
	dateDelay time.Duration, logger *zap.Logger) *BackfillService {
	if dateDelay <= 0 {
		dateDelay = 3 * time.Second
	}
	return &BackfillService{
		logger:    logger,
		runner:    runner,
		holidays:  holidays,
		analysis:  analysis,
		dateDelay: dateDelay,
	}
}

// Run 執行回補，回傳每個日期的結果
func (s *BackfillService) Run(ctx context.Context, req BackfillRequest) ([]DateOutcome, error) {
	dates, err := s.expandDates(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("開始歷史資料回補", zap.Int("days", len(dates)))

	outcomes := make([]DateOutcome, 0, len(dates))
	for i, date := range dates {
		outcomes = append(outcomes, s.runDate(ctx, date))

		if i < len(dates)-1 {
			select {
			case <-time.After(s.dateDelay):
			case <-ctx.Done():
				return outcomes, ctx.Err()
			}
		}
	}

	s.logger.Info("歷史資料回補完成", zap.Int("days", len(outcomes)))
	return outcomes, nil
}

func (s *BackfillService) runDate(ctx context.Context, date string) DateOutcome {
	if s.holidays.IsHoliday(ctx, date) {
		s.logger.Info("休假日，跳過回補", zap.String("date", date))
		return DateOutcome{Date: date, Status: DateStatusSkipped}
	}

	if err := s.runner.RunDate(ctx, date); err != nil {
		s.logger.Warn("回補失敗", zap.String("date", date), zap.Error(err))
		return DateOutcome{Date: date, Status: DateStatusError, Error: err.Error()}
	}
	return DateOutcome{Date: date, Status: DateStatusSuccess}
}

func (s *BackfillService) expandDates(ctx context.Context, req BackfillRequest) ([]string, error) {
	if req.MissingOnly {
		missing, err := s.analysis.GetMissingDates(ctx)
		if err != nil {
			return nil, err
		}
		return missing.MissingDates, nil
	}

	if len(req.Dates) > 0 {
		return req.Dates, nil
	}

	start, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("無效的起始日期 %q: %w", req.StartDate, err)
	}
	end, err := time.Parse(time.DateOnly, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("無效的結束日期 %q: %w", req.EndDate, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("結束日期 %s 早於起始日期 %s", req.EndDate, req.StartDate)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(time.DateOnly))
	}
	return dates, nil
}

// FullUpdateRunner 單日完整更新：大盤籌碼、行情、技術指標依序執行
type FullUpdateRunner struct {
	marketStats *MarketStatsService
	tickers     *TickerService
	analysis    *AnalysisService
}

// NewFullUpdateRunner 建立單日完整更新 runner
func NewFullUpdateRunner(marketStats *MarketStatsService, tickers *TickerService,
	analysis *AnalysisService) *FullUpdateRunner {
	return &FullUpdateRunner{
		marketStats: marketStats,
		tickers:     tickers,
		analysis:    analysis,
	}
}

// RunDate 執行單一日期的完整更新
func (r *FullUpdateRunner) RunDate(ctx context.Context, date string) error {
	if err := r.marketStats.UpdateMarketStats(ctx, date); err != nil {
		return fmt.Errorf("大盤籌碼更新失敗: %w", err)
	}
	if err := r.tickers.UpdateTickers(ctx, date); err != nil {
		return fmt.Errorf("行情更新失敗: %w", err)
	}
	if _, err := r.analysis.BatchCalculate(ctx, date); err != nil {
		return fmt.Errorf("技術指標計算失敗: %w", err)
	}
	return nil
}
