package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrNoTradingDayFound 在回溯上限內找不到任何交易日
var ErrNoTradingDayFound = errors.New("回溯期間內找不到交易日")

// DataType 更新資料類別，決定當日資料可用的時點
type DataType string

const (
	DataTypeTicker      DataType = "ticker"       // 行情資料，收盤後 14:00 起可取得
	DataTypeMarketStats DataType = "market_stats" // 大盤籌碼，14:30 起陸續公布，15:00 起視為可用
)

// 回溯上限，連續假期最長不會超過此天數
const maxLookbackDays = 30

// CalendarService 決定每次更新的目標日期：
// 當日為交易日且已過資料公布時點則取當日，否則回溯最近的交易日
type CalendarService struct {
	logger   *zap.Logger
	holidays *HolidayService
	now      func() time.Time
}

// NewCalendarService 建立交易日曆服務
func NewCalendarService(holidays *HolidayService, logger *zap.Logger) *CalendarService {
	return &CalendarService{
		logger:   logger,
		holidays: holidays,
		now:      time.Now,
	}
}

func (s *CalendarService) cutoffHour(dataType DataType) int {
	if dataType == DataTypeMarketStats {
		return 15
	}
	return 14
}

// ResolveTargetDate 解析目標更新日期
func (s *CalendarService) ResolveTargetDate(ctx context.Context, dataType DataType) (string, error) {
	now := s.now()
	today := now.Format(time.DateOnly)

	if s.holidays.IsWorkingDay(ctx, today) && now.Hour() >= s.cutoffHour(dataType) {
		s.logger.Info("使用當日進行更新",
			zap.String("date", today), zap.String("dataType", string(dataType)))
		return today, nil
	}

	for i := 1; i <= maxLookbackDays; i++ {
		date := now.AddDate(0, 0, -i).Format(time.DateOnly)
		if s.holidays.IsWorkingDay(ctx, date) {
			s.logger.Info("使用上一個交易日進行更新",
				zap.String("date", date), zap.String("dataType", string(dataType)))
			return date, nil
		}
	}
	return "", ErrNoTradingDayFound
}
