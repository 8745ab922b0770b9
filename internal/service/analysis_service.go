package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/models"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/repo"
	"github.com/acronhuang/taiwan-stock-data-collector/pkg/ta"
)

const (
	// 技術指標計算的回看天數上限與最低歷史筆數
	indicatorLookback   = 250
	indicatorMinHistory = 5
)

// AnalysisService 技術指標計算與查詢
type AnalysisService struct {
	logger *zap.Logger

	tickerRepo    *repo.TickerRepo
	indicatorRepo *repo.TechnicalIndicatorRepo
}

// NewAnalysisService 建立技術分析服務
func NewAnalysisService(tickerRepo *repo.TickerRepo, indicatorRepo *repo.TechnicalIndicatorRepo,
	logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		logger:        logger,
		tickerRepo:    tickerRepo,
		indicatorRepo: indicatorRepo,
	}
}

// BatchCalculateResult 批量計算結果
type BatchCalculateResult struct {
	Date      string `json:"date"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Total     int    `json:"total"`
}

// BatchCalculate 計算指定日期所有標的的技術指標。
// 單一標的的錯誤只記錄並計數，不中斷整批計算。
func (s *AnalysisService) BatchCalculate(ctx context.Context, date string) (*BatchCalculateResult, error) {
	s.logger.Info("開始批量計算技術指標", zap.String("date", date))

	tickers, err := s.tickerRepo.FindByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("查詢 %s 行情資料失敗: %w", date, err)
	}

	result := &BatchCalculateResult{Date: date, Total: len(tickers)}
	if len(tickers) == 0 {
		s.logger.Warn("沒有找到行情資料", zap.String("date", date))
		return result, nil
	}

	for i := range tickers {
		computed, err := s.computeAndStore(ctx, &tickers[i], date)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Error("計算技術指標失敗",
				zap.String("symbol", tickers[i].Symbol), zap.String("date", date), zap.Error(err))
		case computed:
			result.Processed++
		default:
			result.Skipped++
		}
	}

	s.logger.Info("技術指標計算完成",
		zap.String("date", date),
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}

// ComputeAndStore 計算單一標的的技術指標並寫入。
// 歷史資料不足 5 筆時視為正常跳過，回傳 false 而非錯誤。
func (s *AnalysisService) ComputeAndStore(ctx context.Context, symbol, date string) (bool, error) {
	ticker, err := s.tickerRepo.FindByKey(ctx, date, symbol, models.ExchangeTWSE)
	if err != nil {
		return false, err
	}
	if ticker == nil {
		if ticker, err = s.tickerRepo.FindByKey(ctx, date, symbol, models.ExchangeTPEx); err != nil {
			return false, err
		}
	}
	if ticker == nil {
		return false, fmt.Errorf("%s 在 %s 沒有行情資料", symbol, date)
	}
	return s.computeAndStore(ctx, ticker, date)
}

func (s *AnalysisService) computeAndStore(ctx context.Context, ticker *models.Ticker, date string) (bool, error) {
	history, err := s.tickerRepo.FindHistory(ctx, ticker.Symbol, date, indicatorLookback)
	if err != nil {
		return false, err
	}
	if len(history) < indicatorMinHistory {
		return false, nil
	}

	// 數列一律由新到舊排列，index 0 為最近一日
	closes := make([]float64, 0, len(history))
	highs := make([]float64, 0, len(history))
	lows := make([]float64, 0, len(history))
	volumes := make([]float64, 0, len(history))
	for i := range history {
		h := &history[i]
		if h.ClosePrice == nil {
			continue
		}
		closes = append(closes, *h.ClosePrice)
		highs = append(highs, floatOr(h.HighPrice, *h.ClosePrice))
		lows = append(lows, floatOr(h.LowPrice, *h.ClosePrice))
		volumes = append(volumes, floatOr(h.TradeVolume, 0))
	}
	if len(closes) < indicatorMinHistory {
		return false, nil
	}

	indicator := &models.TechnicalIndicator{
		Date:       date,
		Symbol:     ticker.Symbol,
		Name:       ticker.Name,
		Type:       ticker.Type,
		OpenPrice:  ticker.OpenPrice,
		HighPrice:  ticker.HighPrice,
		LowPrice:   ticker.LowPrice,
		ClosePrice: ticker.ClosePrice,
		Volume:     ticker.TradeVolume,
	}

	indicator.MA5 = ta.SMA(closes, 5)
	indicator.MA10 = ta.SMA(closes, 10)
	indicator.MA20 = ta.SMA(closes, 20)
	indicator.MA60 = ta.SMA(closes, 60)
	indicator.MA120 = ta.SMA(closes, 120)
	indicator.MA240 = ta.SMA(closes, 240)

	indicator.EMA12 = ta.EMA(closes, 12)
	indicator.EMA26 = ta.EMA(closes, 26)

	macd := ta.MACD(closes, 12, 26)
	indicator.MACD = macd.MACD
	indicator.MACDSignal = macd.Signal
	indicator.MACDHistogram = macd.Histogram

	indicator.RSI6 = ta.RSI(closes, 6)
	indicator.RSI12 = ta.RSI(closes, 12)
	indicator.RSI24 = ta.RSI(closes, 24)

	indicator.K9, indicator.D9 = ta.KD(highs, lows, closes, 9)
	indicator.WR10 = ta.WilliamsR(highs, lows, closes, 10)
	indicator.WR20 = ta.WilliamsR(highs, lows, closes, 20)

	bb := ta.Bollinger(closes, 20)
	indicator.BBUpper = bb.Upper
	indicator.BBMiddle = bb.Middle
	indicator.BBLower = bb.Lower
	indicator.BBWidth = bb.Width

	indicator.VolumeMA5 = ta.SMA(volumes, 5)
	indicator.VolumeMA20 = ta.SMA(volumes, 20)
	if indicator.VolumeMA20 != nil && *indicator.VolumeMA20 > 0 && len(volumes) > 0 {
		ratio := volumes[0] / *indicator.VolumeMA20
		indicator.VolumeRatio = &ratio
	}

	support := ta.Lowest(lows, 20)
	resistance := ta.Highest(highs, 20)
	indicator.SupportLevel = &support
	indicator.ResistanceLevel = &resistance

	signals := deriveSignals(indicator)
	raw, err := json.Marshal(signals)
	if err != nil {
		return false, err
	}
	indicator.Signals = raw
	indicator.TechnicalScore = scoreSignals(signals)
	indicator.Recommendation = recommend(indicator.TechnicalScore)

	if err := s.indicatorRepo.Upsert(ctx, indicator); err != nil {
		return false, err
	}
	return true, nil
}

// deriveSignals 由指標值套用門檻規則產生買賣訊號
func deriveSignals(ind *models.TechnicalIndicator) models.TechnicalSignals {
	var signals models.TechnicalSignals

	if ind.MACD != nil && ind.MACDHistogram != nil {
		signals.MACDBuy = *ind.MACD > 0 && *ind.MACDHistogram >= 0
		signals.MACDSell = *ind.MACD < 0 && *ind.MACDHistogram <= 0
	}
	if ind.RSI6 != nil {
		signals.RSIOverbought = *ind.RSI6 >= 70
		signals.RSIOversold = *ind.RSI6 <= 30
	}
	if ind.K9 != nil && ind.D9 != nil {
		signals.KDGoldenCross = *ind.K9 > *ind.D9 && *ind.K9 < 80
		signals.KDDeathCross = *ind.K9 < *ind.D9 && *ind.K9 > 20
	}
	if ind.VolumeRatio != nil {
		signals.VolumeBreakout = *ind.VolumeRatio >= 2
	}
	if ind.ClosePrice != nil && ind.ResistanceLevel != nil {
		signals.PriceBreakout = *ind.ClosePrice >= *ind.ResistanceLevel
	}
	if ind.ClosePrice != nil && ind.BBLower != nil && ind.BBUpper != nil {
		signals.BollingerBuySignal = *ind.ClosePrice <= *ind.BBLower
		signals.BollingerSellSignal = *ind.ClosePrice >= *ind.BBUpper
	}
	if ind.WR10 != nil {
		signals.WilliamsOversold = *ind.WR10 <= -80
		signals.WilliamsOverbought = *ind.WR10 >= -20
	}
	return signals
}

// scoreSignals 訊號加權總分，限制在 -100 ~ 100
func scoreSignals(signals models.TechnicalSignals) float64 {
	var score float64
	add := func(on bool, weight float64) {
		if on {
			score += weight
		}
	}
	add(signals.MACDBuy, 20)
	add(signals.MACDSell, -20)
	add(signals.RSIOversold, 15)
	add(signals.RSIOverbought, -15)
	add(signals.KDGoldenCross, 15)
	add(signals.KDDeathCross, -15)
	add(signals.VolumeBreakout, 10)
	add(signals.PriceBreakout, 15)
	add(signals.BollingerBuySignal, 10)
	add(signals.BollingerSellSignal, -10)
	add(signals.WilliamsOversold, 10)
	add(signals.WilliamsOverbought, -10)

	if score > 100 {
		return 100
	}
	if score < -100 {
		return -100
	}
	return score
}

func recommend(score float64) models.Recommendation {
	switch {
	case score >= 60:
		return models.RecommendationStrongBuy
	case score >= 20:
		return models.RecommendationBuy
	case score > -20:
		return models.RecommendationHold
	case score > -60:
		return models.RecommendationSell
	default:
		return models.RecommendationStrongSell
	}
}

// AnalysisReport 單一標的的技術分析報告
type AnalysisReport struct {
	Symbol  string                     `json:"symbol"`
	Date    string                     `json:"date"`
	HasData bool                       `json:"hasData"`
	Data    *models.TechnicalIndicator `json:"data"`
	Message string                     `json:"message,omitempty"`
}

// GetReport 取得技術分析報告，指定日期沒有資料時改用最新可用資料
func (s *AnalysisService) GetReport(ctx context.Context, symbol, date string) (*AnalysisReport, error) {
	indicator, err := s.indicatorRepo.FindByKey(ctx, date, symbol)
	if err != nil {
		return nil, err
	}
	if indicator != nil {
		return &AnalysisReport{Symbol: symbol, Date: date, HasData: true, Data: indicator}, nil
	}

	latest, err := s.indicatorRepo.FindLatestBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	report := &AnalysisReport{Symbol: symbol, Date: date}
	if latest != nil {
		report.HasData = true
		report.Data = latest
		report.Message = fmt.Sprintf("使用最新可用資料 (%s)", latest.Date)
	} else {
		report.Message = "暫無技術分析資料"
	}
	return report, nil
}

// MarketOverview 市場技術分析概況
type MarketOverview struct {
	Date         string  `json:"date"`
	HasData      bool    `json:"hasData"`
	TotalStocks  int     `json:"totalStocks"`
	BullishCount int     `json:"bullishCount"`
	BearishCount int     `json:"bearishCount"`
	NeutralCount int     `json:"neutralCount"`
	BullishPct   float64 `json:"bullishPercentage"`
	BearishPct   float64 `json:"bearishPercentage"`
	NeutralPct   float64 `json:"neutralPercentage"`
}

// GetMarketOverview 取得指定日期的市場多空概況
func (s *AnalysisService) GetMarketOverview(ctx context.Context, date string) (*MarketOverview, error) {
	indicators, err := s.indicatorRepo.FindByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	overview := &MarketOverview{Date: date}
	if len(indicators) == 0 {
		return overview, nil
	}

	overview.HasData = true
	overview.TotalStocks = len(indicators)
	for i := range indicators {
		switch {
		case indicators[i].TechnicalScore > 20:
			overview.BullishCount++
		case indicators[i].TechnicalScore < -20:
			overview.BearishCount++
		default:
			overview.NeutralCount++
		}
	}
	total := float64(overview.TotalStocks)
	overview.BullishPct = float64(overview.BullishCount) / total * 100
	overview.BearishPct = float64(overview.BearishCount) / total * 100
	overview.NeutralPct = float64(overview.NeutralCount) / total * 100
	return overview, nil
}

// MissingDatesResult 缺少技術指標的日期
type MissingDatesResult struct {
	TotalTickerDates int      `json:"totalTickerDates"`
	TotalTechDates   int      `json:"totalTechDates"`
	MissingDates     []string `json:"missingDates"`
	MissingCount     int      `json:"missingCount"`
}

// GetMissingDates 找出有行情資料但尚未計算技術指標的日期
func (s *AnalysisService) GetMissingDates(ctx context.Context) (*MissingDatesResult, error) {
	tickerDates, err := s.tickerRepo.GetAllDates(ctx)
	if err != nil {
		return nil, err
	}
	techDates, err := s.indicatorRepo.GetAllDates(ctx)
	if err != nil {
		return nil, err
	}

	have := make(map[string]bool, len(techDates))
	for _, d := range techDates {
		have[d] = true
	}
	missing := make([]string, 0)
	for _, d := range tickerDates {
		if !have[d] {
			missing = append(missing, d)
		}
	}

	return &MissingDatesResult{
		TotalTickerDates: len(tickerDates),
		TotalTechDates:   len(techDates),
		MissingDates:     missing,
		MissingCount:     len(missing),
	}, nil
}

// GetHistory 取得單一標的的技術指標歷史
func (s *AnalysisService) GetHistory(ctx context.Context, symbol, startDate, endDate string, limit int) ([]models.TechnicalIndicator, error) {
	return s.indicatorRepo.FindHistory(ctx, symbol, startDate, endDate, limit)
}

// GetAvailableDates 取得範圍內有行情資料的日期
func (s *AnalysisService) GetAvailableDates(ctx context.Context, startDate, endDate string) ([]string, error) {
	return s.tickerRepo.GetAvailableDates(ctx, startDate, endDate)
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
