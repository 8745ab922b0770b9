package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/models"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/repo"
	"github.com/acronhuang/taiwan-stock-data-collector/internal/scraper"
)

func newServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Ticker{}, &models.MarketStats{}, &models.TechnicalIndicator{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func fp(v float64) *float64 {
	return &v
}

// newOfflineHolidayService 以空回應的假日 API 建立服務，平日一律視為交易日
func newOfflineHolidayService(t *testing.T) *HolidayService {
	t.Helper()
	server := newHolidayAPIServer(t, nil)
	return NewHolidayService(server.URL, zap.NewNop())
}

// stubMarketFeed 可設定回傳值的行情來源，記錄各方法被呼叫的次數
type stubMarketFeed struct {
	mu    sync.Mutex
	calls map[string]int

	indices      []scraper.IndexQuote
	marketTrades *scraper.MarketTrades
	sectors      []scraper.SectorTrades
	equities     []scraper.EquityQuote
	instTrades   []scraper.EquityInstTrade

	indicesErr error
}

func newStubMarketFeed() *stubMarketFeed {
	return &stubMarketFeed{calls: make(map[string]int)}
}

func (s *stubMarketFeed) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
}

func (s *stubMarketFeed) callCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubMarketFeed) FetchIndicesQuotes(ctx context.Context, date string) ([]scraper.IndexQuote, error) {
	s.record("FetchIndicesQuotes")
	return s.indices, s.indicesErr
}

func (s *stubMarketFeed) FetchMarketTrades(ctx context.Context, date string) (*scraper.MarketTrades, error) {
	s.record("FetchMarketTrades")
	return s.marketTrades, nil
}

func (s *stubMarketFeed) FetchIndicesTrades(ctx context.Context, date string) ([]scraper.SectorTrades, error) {
	s.record("FetchIndicesTrades")
	return s.sectors, nil
}

func (s *stubMarketFeed) FetchEquitiesQuotes(ctx context.Context, date string) ([]scraper.EquityQuote, error) {
	s.record("FetchEquitiesQuotes")
	return s.equities, nil
}

func (s *stubMarketFeed) FetchEquitiesInstInvestorsTrades(ctx context.Context, date string) ([]scraper.EquityInstTrade, error) {
	s.record("FetchEquitiesInstInvestorsTrades")
	return s.instTrades, nil
}

func newTestTickerService(t *testing.T, twse, tpex *stubMarketFeed) (*TickerService, *repo.TickerRepo) {
	t.Helper()
	tickerRepo := repo.NewTickerRepo(newServiceTestDB(t))
	holidays := newOfflineHolidayService(t)
	calendar := NewCalendarService(holidays, zap.NewNop())
	svc := NewTickerService(twse, tpex, tickerRepo, calendar, holidays, time.Millisecond, zap.NewNop())
	return svc, tickerRepo
}

func TestTickerUpdateSkipsHoliday(t *testing.T) {
	twse := newStubMarketFeed()
	tpex := newStubMarketFeed()
	svc, _ := newTestTickerService(t, twse, tpex)

	// 國慶日為已知休市日
	if err := svc.UpdateTickers(context.Background(), "2025-10-10"); err != nil {
		t.Fatalf("UpdateTickers: %v", err)
	}
	if n := twse.callCount("FetchIndicesQuotes"); n != 0 {
		t.Errorf("holiday should not trigger fetches, got %d calls", n)
	}
}

func TestTickerUpdateMergesGroupsIntoSameRows(t *testing.T) {
	const date = "2025-06-03"

	twse := newStubMarketFeed()
	twse.indices = []scraper.IndexQuote{{
		Date: date, Symbol: "IX0001", Name: "發行量加權股價指數",
		OpenPrice: fp(22500), ClosePrice: fp(22600), Change: fp(100),
	}}
	twse.marketTrades = &scraper.MarketTrades{
		Date: date, TradeVolume: fp(7000000000), TradeValue: fp(400000000000), Transaction: fp(2500000),
	}
	twse.sectors = []scraper.SectorTrades{{
		Date: date, Symbol: "IX0028", Name: "半導體類指數",
		TradeVolume: fp(2000000000), TradeValue: fp(180000000000), TradeWeight: fp(45),
	}}
	twse.equities = []scraper.EquityQuote{{
		Date: date, Symbol: "2330", Name: "台積電",
		ClosePrice: fp(980), Change: fp(15), TradeVolume: fp(30000000),
	}}
	twse.instTrades = []scraper.EquityInstTrade{{
		Date: date, Symbol: "2330",
		FiniNetBuySell: fp(5000000), SitcNetBuySell: fp(-200000), DealersNetBuySell: fp(100000),
	}}
	tpex := newStubMarketFeed()

	svc, tickerRepo := newTestTickerService(t, twse, tpex)
	if err := svc.UpdateTickers(context.Background(), date); err != nil {
		t.Fatalf("UpdateTickers: %v", err)
	}

	// 加權指數列同時帶有指數行情與大盤成交量值
	taiex, err := tickerRepo.FindByKey(context.Background(), date, "IX0001", models.ExchangeTWSE)
	if err != nil {
		t.Fatalf("FindByKey IX0001: %v", err)
	}
	if taiex == nil {
		t.Fatal("IX0001 row should exist")
	}
	if taiex.ClosePrice == nil || *taiex.ClosePrice != 22600 {
		t.Errorf("taiex close: got %v", taiex.ClosePrice)
	}
	if taiex.TradeValue == nil || *taiex.TradeValue != 400000000000 {
		t.Errorf("taiex trade value should be merged in, got %v", taiex.TradeValue)
	}

	// 個股列同時帶有收盤行情與法人買賣超
	tsmc, err := tickerRepo.FindByKey(context.Background(), date, "2330", models.ExchangeTWSE)
	if err != nil {
		t.Fatalf("FindByKey 2330: %v", err)
	}
	if tsmc == nil {
		t.Fatal("2330 row should exist")
	}
	if tsmc.ClosePrice == nil || *tsmc.ClosePrice != 980 {
		t.Errorf("tsmc close: got %v", tsmc.ClosePrice)
	}
	if tsmc.FiniNetBuySell == nil || *tsmc.FiniNetBuySell != 5000000 {
		t.Errorf("tsmc fini net should be merged in, got %v", tsmc.FiniNetBuySell)
	}
	if tsmc.Name != "台積電" {
		t.Errorf("merge should preserve name, got %q", tsmc.Name)
	}

	sector, err := tickerRepo.FindByKey(context.Background(), date, "IX0028", models.ExchangeTWSE)
	if err != nil {
		t.Fatalf("FindByKey IX0028: %v", err)
	}
	if sector == nil || sector.TradeWeight == nil || *sector.TradeWeight != 45 {
		t.Errorf("sector trade weight: got %+v", sector)
	}
}

func TestTickerUpdateSkipsExistingQuotes(t *testing.T) {
	const date = "2025-06-03"

	twse := newStubMarketFeed()
	tpex := newStubMarketFeed()
	svc, tickerRepo := newTestTickerService(t, twse, tpex)

	// 預先寫入當日上市指數資料，指數行情任務應整批跳過
	_, err := tickerRepo.SmartUpdate(context.Background(), &models.Ticker{
		Date: date, Symbol: "IX0001", Name: "發行量加權股價指數",
		Exchange: models.ExchangeTWSE, Market: models.MarketTSE, Type: models.TickerTypeIndex,
		ClosePrice: fp(22600),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := svc.UpdateTickers(context.Background(), date); err != nil {
		t.Fatalf("UpdateTickers: %v", err)
	}
	if n := twse.callCount("FetchIndicesQuotes"); n != 0 {
		t.Errorf("existing indices should skip fetch, got %d calls", n)
	}
	// 合併型任務不受既有資料影響
	if n := twse.callCount("FetchMarketTrades"); n != 1 {
		t.Errorf("market trades should still run, got %d calls", n)
	}
}

func TestTickerUpdateTaskFailureDoesNotAbort(t *testing.T) {
	const date = "2025-06-03"

	twse := newStubMarketFeed()
	twse.indicesErr = scraper.ErrFeedUnavailable
	twse.equities = []scraper.EquityQuote{{
		Date: date, Symbol: "2330", Name: "台積電", ClosePrice: fp(980),
	}}
	tpex := newStubMarketFeed()

	svc, tickerRepo := newTestTickerService(t, twse, tpex)
	if err := svc.UpdateTickers(context.Background(), date); err != nil {
		t.Fatalf("UpdateTickers: %v", err)
	}

	tsmc, err := tickerRepo.FindByKey(context.Background(), date, "2330", models.ExchangeTWSE)
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if tsmc == nil {
		t.Error("later groups should run despite earlier task failure")
	}
}
