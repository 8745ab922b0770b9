package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const holidayCacheTTL = 24 * time.Hour

// knownHolidays 國定假日與休市日（依行政院人事行政總處公告）
var knownHolidays = map[string]bool{
	// 2024
	"2024-01-01": true, // 中華民國開國紀念日
	"2024-02-08": true, // 農曆除夕前一日
	"2024-02-09": true, // 農曆除夕
	"2024-02-10": true, // 農曆春節
	"2024-02-11": true, // 農曆春節
	"2024-02-12": true, // 農曆春節
	"2024-02-13": true, // 農曆春節
	"2024-02-14": true, // 農曆春節
	"2024-02-28": true, // 和平紀念日
	"2024-04-04": true, // 兒童節
	"2024-04-05": true, // 清明節
	"2024-05-01": true, // 勞動節
	"2024-06-10": true, // 端午節
	"2024-09-17": true, // 中秋節
	"2024-10-10": true, // 國慶日
	// 2025
	"2025-01-01": true, // 中華民國開國紀念日
	"2025-01-28": true, // 農曆除夕前一日
	"2025-01-29": true, // 農曆除夕
	"2025-01-30": true, // 農曆春節
	"2025-01-31": true, // 農曆春節
	"2025-02-01": true, // 農曆春節
	"2025-02-02": true, // 農曆春節
	"2025-02-03": true, // 農曆春節
	"2025-02-28": true, // 和平紀念日
	"2025-04-04": true, // 兒童節
	"2025-04-05": true, // 清明節
	"2025-05-01": true, // 勞動節
	"2025-05-31": true, // 端午節
	"2025-10-06": true, // 中秋節
	"2025-10-10": true, // 國慶日
}

// HolidayService 休市日判定，結果快取 24 小時，
// 查詢來源依序為週末判定、已知假日清單、政府開放資料 API
type HolidayService struct {
	logger *zap.Logger
	apiURL string
	client *http.Client
	now    func() time.Time

	mu         sync.Mutex
	cache      map[string]bool
	lastUpdate time.Time
}

// NewHolidayService 建立假日服務
func NewHolidayService(apiURL string, logger *zap.Logger) *HolidayService {
	return &HolidayService{
		logger: logger,
		apiURL: apiURL,
		client: &http.Client{Timeout: 5 * time.Second},
		now:    time.Now,
		cache:  make(map[string]bool),
	}
}

// holidayRecord 政府開放資料的假日紀錄
type holidayRecord struct {
	Date      string `json:"date"`
	IsHoliday string `json:"isholiday"`
}

// IsHoliday 判斷指定日期是否休市。
// API 不可用時回退為僅以週末判定，不回傳錯誤。
func (s *HolidayService) IsHoliday(ctx context.Context, date string) bool {
	if isWeekend(date) {
		return true
	}

	s.mu.Lock()
	if v, ok := s.cache[date]; ok && s.cacheValid() {
		s.mu.Unlock()
		return v
	}
	s.mu.Unlock()

	if knownHolidays[date] {
		s.store(date, true)
		return true
	}

	holiday, err := s.fetchFromAPI(ctx, date)
	if err != nil {
		// 查詢失敗時僅回退為平日，不寫入快取，下次查詢仍會重試 API
		s.logger.Warn("無法取得假日資訊，回退為週末判定",
			zap.String("date", date), zap.Error(err))
		return false
	}
	s.store(date, holiday)
	return holiday
}

// IsWorkingDay 判斷指定日期是否為交易日
func (s *HolidayService) IsWorkingDay(ctx context.Context, date string) bool {
	return !s.IsHoliday(ctx, date)
}

// GetWorkingDays 取得日期區間內的交易日（含頭尾）
func (s *HolidayService) GetWorkingDays(ctx context.Context, startDate, endDate string) ([]string, error) {
	start, err := time.Parse(time.DateOnly, startDate)
	if err != nil {
		return nil, fmt.Errorf("無效的起始日期 %q: %w", startDate, err)
	}
	end, err := time.Parse(time.DateOnly, endDate)
	if err != nil {
		return nil, fmt.Errorf("無效的結束日期 %q: %w", endDate, err)
	}

	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(time.DateOnly)
		if s.IsWorkingDay(ctx, date) {
			days = append(days, date)
		}
	}
	return days, nil
}

// GetNextWorkingDay 取得指定日期之後的第一個交易日
func (s *HolidayService) GetNextWorkingDay(ctx context.Context, date string) (string, error) {
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return "", fmt.Errorf("無效的日期 %q: %w", date, err)
	}
	for {
		d = d.AddDate(0, 0, 1)
		next := d.Format(time.DateOnly)
		if s.IsWorkingDay(ctx, next) {
			return next, nil
		}
	}
}

// ClearCache 清除假日快取
func (s *HolidayService) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]bool)
	s.lastUpdate = time.Time{}
	s.logger.Info("假日快取已清除")
}

// CacheStats 快取統計
type CacheStats struct {
	Size       int        `json:"size"`
	LastUpdate *time.Time `json:"lastUpdate"`
}

// GetCacheStats 取得快取統計
func (s *HolidayService) GetCacheStats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := CacheStats{Size: len(s.cache)}
	if !s.lastUpdate.IsZero() {
		t := s.lastUpdate
		stats.LastUpdate = &t
	}
	return stats
}

func (s *HolidayService) store(date string, holiday bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[date] = holiday
	if s.lastUpdate.IsZero() {
		s.lastUpdate = s.now()
	}
}

// cacheValid 快取是否仍在有效期內，呼叫端須持有鎖
func (s *HolidayService) cacheValid() bool {
	if s.lastUpdate.IsZero() {
		return false
	}
	return s.now().Sub(s.lastUpdate) < holidayCacheTTL
}

// fetchFromAPI 由政府開放資料查詢假日紀錄，API 的日期格式為 YYYY/MM/DD
func (s *HolidayService) fetchFromAPI(ctx context.Context, date string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"?size=5000", nil)
	if err != nil {
		return false, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("假日 API 回應狀態碼 %d", resp.StatusCode)
	}

	var records []holidayRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return false, err
	}

	apiDate := strings.ReplaceAll(date, "-", "/")
	for _, r := range records {
		if r.Date == apiDate {
			return r.IsHoliday == "是", nil
		}
	}
	return false, nil
}

func isWeekend(date string) bool {
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return false
	}
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
