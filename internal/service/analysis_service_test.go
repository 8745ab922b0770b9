package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/models"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/repo"
)

func newTestAnalysisService(t *testing.T) (*AnalysisService, *repo.TickerRepo, *repo.TechnicalIndicatorRepo) {
	t.Helper()
	db := newServiceTestDB(t)
	tickerRepo := repo.NewTickerRepo(db)
	indicatorRepo := repo.NewTechnicalIndicatorRepo(db)
	svc := NewAnalysisService(tickerRepo, indicatorRepo, zap.NewNop())
	return svc, tickerRepo, indicatorRepo
}

// seedHistory 寫入連續收盤價，日期由舊到新，最後一日即 dates[len-1]
func seedHistory(t *testing.T, tickerRepo *repo.TickerRepo, symbol string, dates []string, closes []float64) {
	t.Helper()
	for i, date := range dates {
		_, err := tickerRepo.SmartUpdate(context.Background(), &models.Ticker{
			Date: date, Symbol: symbol, Name: symbol,
			Exchange: models.ExchangeTWSE, Market: models.MarketTSE, Type: models.TickerTypeEquity,
			ClosePrice: fp(closes[i]), TradeVolume: fp(1000),
		})
		if err != nil {
			t.Fatalf("seed %s %s: %v", symbol, date, err)
		}
	}
}

func seqDates(n int) []string {
	dates := make([]string, n)
	for i := range dates {
		dates[i] = fmt.Sprintf("2025-05-%02d", i+1)
	}
	return dates
}

func TestAnalysisComputeAndStore(t *testing.T) {
	svc, tickerRepo, indicatorRepo := newTestAnalysisService(t)

	// 20 日連續上漲，收盤 100 -> 119
	dates := seqDates(20)
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	seedHistory(t, tickerRepo, "2330", dates, closes)

	computed, err := svc.ComputeAndStore(context.Background(), "2330", "2025-05-20")
	if err != nil {
		t.Fatalf("ComputeAndStore: %v", err)
	}
	if !computed {
		t.Fatal("expected indicator to be computed")
	}

	ind, err := indicatorRepo.FindByKey(context.Background(), "2025-05-20", "2330")
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if ind == nil {
		t.Fatal("indicator row should exist")
	}

	if ind.MA5 == nil || *ind.MA5 != 117 {
		t.Errorf("MA5: got %v, want 117", ind.MA5)
	}
	if ind.MA10 == nil || *ind.MA10 != 114.5 {
		t.Errorf("MA10: got %v, want 114.5", ind.MA10)
	}
	if ind.MA20 == nil || *ind.MA20 != 109.5 {
		t.Errorf("MA20: got %v, want 109.5", ind.MA20)
	}
	if ind.MA60 != nil {
		t.Errorf("MA60 should be nil with 20 days of history, got %v", *ind.MA60)
	}
	// 連續上漲且無下跌日
	if ind.RSI6 == nil || *ind.RSI6 != 100 {
		t.Errorf("RSI6: got %v, want 100", ind.RSI6)
	}
	if ind.VolumeRatio == nil || *ind.VolumeRatio != 1 {
		t.Errorf("VolumeRatio: got %v, want 1", ind.VolumeRatio)
	}
	if ind.ResistanceLevel == nil || *ind.ResistanceLevel != 119 {
		t.Errorf("ResistanceLevel: got %v, want 119", ind.ResistanceLevel)
	}

	var signals models.TechnicalSignals
	if err := json.Unmarshal(ind.Signals, &signals); err != nil {
		t.Fatalf("unmarshal signals: %v", err)
	}
	if !signals.RSIOverbought {
		t.Error("RSI 100 should flag overbought")
	}
	if signals.RSIOversold {
		t.Error("uptrend should not flag oversold")
	}
	// 收盤價即為 20 日最高，視為突破
	if !signals.PriceBreakout {
		t.Error("close at resistance should flag price breakout")
	}
	if ind.Recommendation == "" {
		t.Error("recommendation should be set")
	}
}

func TestAnalysisComputeAndStoreRecompute(t *testing.T) {
	svc, tickerRepo, indicatorRepo := newTestAnalysisService(t)

	dates := seqDates(10)
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	seedHistory(t, tickerRepo, "2330", dates, closes)

	for i := 0; i < 2; i++ {
		if _, err := svc.ComputeAndStore(context.Background(), "2330", "2025-05-10"); err != nil {
			t.Fatalf("ComputeAndStore #%d: %v", i+1, err)
		}
	}

	// 重算覆寫同一筆而不是新增
	rows, err := indicatorRepo.FindByDate(context.Background(), "2025-05-10")
	if err != nil {
		t.Fatalf("FindByDate: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("recompute should upsert in place, got %d rows", len(rows))
	}
}

func TestAnalysisSkipsInsufficientHistory(t *testing.T) {
	svc, tickerRepo, indicatorRepo := newTestAnalysisService(t)

	seedHistory(t, tickerRepo, "2330", seqDates(3), []float64{100, 101, 102})

	computed, err := svc.ComputeAndStore(context.Background(), "2330", "2025-05-03")
	if err != nil {
		t.Fatalf("ComputeAndStore: %v", err)
	}
	if computed {
		t.Error("3 days of history should be skipped, not computed")
	}

	ind, err := indicatorRepo.FindByKey(context.Background(), "2025-05-03", "2330")
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if ind != nil {
		t.Error("no indicator row should be written when skipped")
	}
}

func TestAnalysisComputeAndStoreUnknownSymbol(t *testing.T) {
	svc, _, _ := newTestAnalysisService(t)

	if _, err := svc.ComputeAndStore(context.Background(), "9999", "2025-05-20"); err == nil {
		t.Error("expected error for symbol without quotes")
	}
}

func TestAnalysisBatchCalculate(t *testing.T) {
	svc, tickerRepo, _ := newTestAnalysisService(t)

	dates := seqDates(6)
	closes := []float64{100, 101, 102, 103, 104, 105}
	seedHistory(t, tickerRepo, "2330", dates, closes)
	seedHistory(t, tickerRepo, "2317", dates, closes)
	// 只有最後一天有資料，歷史不足會被跳過
	seedHistory(t, tickerRepo, "3008", dates[5:], closes[5:])

	result, err := svc.BatchCalculate(context.Background(), "2025-05-06")
	if err != nil {
		t.Fatalf("BatchCalculate: %v", err)
	}
	if result.Total != 3 {
		t.Errorf("total: got %d, want 3", result.Total)
	}
	if result.Processed != 2 {
		t.Errorf("processed: got %d, want 2", result.Processed)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped: got %d, want 1", result.Skipped)
	}
	if result.Failed != 0 {
		t.Errorf("failed: got %d, want 0", result.Failed)
	}
}

func TestAnalysisBatchCalculateEmptyDate(t *testing.T) {
	svc, _, _ := newTestAnalysisService(t)

	result, err := svc.BatchCalculate(context.Background(), "2025-05-06")
	if err != nil {
		t.Fatalf("BatchCalculate: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("total: got %d, want 0", result.Total)
	}
}

func TestAnalysisGetReportFallsBackToLatest(t *testing.T) {
	svc, tickerRepo, _ := newTestAnalysisService(t)

	dates := seqDates(6)
	closes := []float64{100, 101, 102, 103, 104, 105}
	seedHistory(t, tickerRepo, "2330", dates, closes)
	if _, err := svc.ComputeAndStore(context.Background(), "2330", "2025-05-06"); err != nil {
		t.Fatalf("ComputeAndStore: %v", err)
	}

	// 指定日期無資料時退回最新一筆
	report, err := svc.GetReport(context.Background(), "2330", "2025-05-07")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if !report.HasData {
		t.Fatal("report should fall back to latest data")
	}
	if report.Data.Date != "2025-05-06" {
		t.Errorf("fallback date: got %s, want 2025-05-06", report.Data.Date)
	}
	if report.Message == "" {
		t.Error("fallback should carry an explanatory message")
	}

	empty, err := svc.GetReport(context.Background(), "9999", "2025-05-07")
	if err != nil {
		t.Fatalf("GetReport unknown: %v", err)
	}
	if empty.HasData {
		t.Error("unknown symbol should report no data")
	}
}

func TestAnalysisGetMarketOverview(t *testing.T) {
	svc, _, indicatorRepo := newTestAnalysisService(t)

	rows := []struct {
		symbol string
		score  float64
	}{
		{"2330", 50},
		{"2317", -50},
		{"3008", 0},
	}
	for _, r := range rows {
		err := indicatorRepo.Upsert(context.Background(), &models.TechnicalIndicator{
			Date: "2025-05-06", Symbol: r.symbol, TechnicalScore: r.score,
		})
		if err != nil {
			t.Fatalf("upsert %s: %v", r.symbol, err)
		}
	}

	overview, err := svc.GetMarketOverview(context.Background(), "2025-05-06")
	if err != nil {
		t.Fatalf("GetMarketOverview: %v", err)
	}
	if !overview.HasData || overview.TotalStocks != 3 {
		t.Fatalf("overview: %+v", overview)
	}
	if overview.BullishCount != 1 || overview.BearishCount != 1 || overview.NeutralCount != 1 {
		t.Errorf("counts: bullish %d bearish %d neutral %d, want 1/1/1",
			overview.BullishCount, overview.BearishCount, overview.NeutralCount)
	}

	missing, err := svc.GetMarketOverview(context.Background(), "2025-05-07")
	if err != nil {
		t.Fatalf("GetMarketOverview empty: %v", err)
	}
	if missing.HasData {
		t.Error("date without indicators should report no data")
	}
}

func TestAnalysisGetMissingDates(t *testing.T) {
	svc, tickerRepo, _ := newTestAnalysisService(t)

	dates := seqDates(6)
	closes := []float64{100, 101, 102, 103, 104, 105}
	seedHistory(t, tickerRepo, "2330", dates, closes)
	if _, err := svc.ComputeAndStore(context.Background(), "2330", "2025-05-06"); err != nil {
		t.Fatalf("ComputeAndStore: %v", err)
	}

	result, err := svc.GetMissingDates(context.Background())
	if err != nil {
		t.Fatalf("GetMissingDates: %v", err)
	}
	if result.TotalTickerDates != 6 {
		t.Errorf("totalTickerDates: got %d, want 6", result.TotalTickerDates)
	}
	if result.TotalTechDates != 1 {
		t.Errorf("totalTechDates: got %d, want 1", result.TotalTechDates)
	}
	if result.MissingCount != 5 {
		t.Errorf("missingCount: got %d, want 5", result.MissingCount)
	}
	for _, d := range result.MissingDates {
		if d == "2025-05-06" {
			t.Error("computed date should not be missing")
		}
	}
}
