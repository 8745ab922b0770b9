package repo

import (
	"context"
	"errors"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/models"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

func NewTickerRepo(db *gorm.DB) *TickerRepo {
	return &TickerRepo{
		Repository: orz.NewRepository[models.Ticker, string](db),
	}
}

type TickerRepo struct {
	orz.Repository[models.Ticker, string]
}

// tickerKeyField 變化偵測使用的關鍵欄位，以靜態型別清單逐一比較
type tickerKeyField struct {
	name string
	get  func(*models.Ticker) *float64
}

var tickerKeyFields = []tickerKeyField{
	{"closePrice", func(t *models.Ticker) *float64 { return t.ClosePrice }},
	{"openPrice", func(t *models.Ticker) *float64 { return t.OpenPrice }},
	{"highPrice", func(t *models.Ticker) *float64 { return t.HighPrice }},
	{"lowPrice", func(t *models.Ticker) *float64 { return t.LowPrice }},
	{"change", func(t *models.Ticker) *float64 { return t.Change }},
	{"changePercent", func(t *models.Ticker) *float64 { return t.ChangePercent }},
	{"tradeVolume", func(t *models.Ticker) *float64 { return t.TradeVolume }},
	{"tradeValue", func(t *models.Ticker) *float64 { return t.TradeValue }},
	{"transaction", func(t *models.Ticker) *float64 { return t.Transaction }},
	{"tradeWeight", func(t *models.Ticker) *float64 { return t.TradeWeight }},
	{"finiNetBuySell", func(t *models.Ticker) *float64 { return t.FiniNetBuySell }},
	{"sitcNetBuySell", func(t *models.Ticker) *float64 { return t.SitcNetBuySell }},
	{"dealersNetBuySell", func(t *models.Ticker) *float64 { return t.DealersNetBuySell }},
}

// FindByKey 取得指定 (日期, 代號, 交易所) 的既有資料
func (r TickerRepo) FindByKey(ctx context.Context, date, symbol string, exchange models.Exchange) (*models.Ticker, error) {
	var m models.Ticker
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("date = ? AND symbol = ? AND exchange = ?", date, symbol, exchange).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CountByDate 計算指定日期的資料筆數，filters 指定交易所與類型（空值忽略）
func (r TickerRepo) CountByDate(ctx context.Context, date string, exchange models.Exchange, tickerType models.TickerType) (int64, error) {
	db := r.GetDB(ctx).Table(r.GetTableName()).Where("date = ?", date)
	if exchange != "" {
		db = db.Where("exchange = ?", exchange)
	}
	if tickerType != "" {
		db = db.Where("type = ?", tickerType)
	}
	var count int64
	err := db.Count(&count).Error
	return count, err
}

// NeedsUpdate 比較關鍵欄位，判斷資料是否需要更新
func (r TickerRepo) NeedsUpdate(existing, incoming *models.Ticker) bool {
	if existing == nil {
		return true
	}
	for _, field := range tickerKeyFields {
		if floatChanged(field.get(existing), field.get(incoming)) {
			return true
		}
	}
	return false
}

// SmartUpdate 智能更新：資料不存在時新增，關鍵欄位有變化時更新，否則不寫入。
// 未提供的欄位（nil）保留既有值，各來源寫入各自的欄位子集互不干擾。
func (r TickerRepo) SmartUpdate(ctx context.Context, incoming *models.Ticker) (UpsertOutcome, error) {
	db := r.GetDB(ctx)

	existing, err := r.FindByKey(ctx, incoming.Date, incoming.Symbol, incoming.Exchange)
	if err != nil {
		return "", err
	}

	if existing == nil {
		incoming.ID = ulid.Make().String()
		if err := db.Create(incoming).Error; err != nil {
			return "", err
		}
		return OutcomeCreated, nil
	}

	if !r.NeedsUpdate(existing, incoming) {
		return OutcomeUnchanged, nil
	}

	applyTickerFields(existing, incoming)
	if err := db.Save(existing).Error; err != nil {
		return "", err
	}
	return OutcomeUpdated, nil
}

// SmartBatchUpdate 批量智能更新，單筆失敗不中斷批次
func (r TickerRepo) SmartBatchUpdate(ctx context.Context, tickers []*models.Ticker) (BatchResult, error) {
	result := BatchResult{Total: len(tickers)}

	for _, ticker := range tickers {
		if ticker.Date == "" || ticker.Symbol == "" {
			result.Skipped++
			continue
		}
		outcome, err := r.SmartUpdate(ctx, ticker)
		if err != nil {
			result.Failed++
			continue
		}
		if outcome == OutcomeUnchanged {
			result.Skipped++
		} else {
			result.Updated++
		}
	}

	return result, nil
}

// FindByDate 取得指定日期的全部資料
func (r TickerRepo) FindByDate(ctx context.Context, date string) ([]models.Ticker, error) {
	var tickers []models.Ticker
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("date = ?", date).
		Find(&tickers).Error
	return tickers, err
}

// FindHistory 取得指定代號截至 endDate 的歷史資料，由新到舊最多 limit 筆。
// 只回傳收盤價有效的紀錄。
func (r TickerRepo) FindHistory(ctx context.Context, symbol, endDate string, limit int) ([]models.Ticker, error) {
	var tickers []models.Ticker
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("symbol = ? AND date <= ?", symbol, endDate).
		Where("close_price IS NOT NULL AND close_price > 0").
		Order("date DESC").
		Limit(limit).
		Find(&tickers).Error
	return tickers, err
}

// GetAllDates 取得所有存在資料的日期，由舊到新
func (r TickerRepo) GetAllDates(ctx context.Context) ([]string, error) {
	var dates []string
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Distinct("date").
		Order("date ASC").
		Pluck("date", &dates).Error
	return dates, err
}

// GetAvailableDates 取得範圍內存在資料的日期，由舊到新
func (r TickerRepo) GetAvailableDates(ctx context.Context, startDate, endDate string) ([]string, error) {
	var dates []string
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("date >= ? AND date <= ?", startDate, endDate).
		Distinct("date").
		Order("date ASC").
		Pluck("date", &dates).Error
	return dates, err
}

// applyTickerFields 把本次提供的欄位合併進既有資料
func applyTickerFields(existing, incoming *models.Ticker) {
	if incoming.Type != "" {
		existing.Type = incoming.Type
	}
	if incoming.Market != "" {
		existing.Market = incoming.Market
	}
	if incoming.Name != "" {
		existing.Name = incoming.Name
	}
	mergeFloat(&existing.OpenPrice, incoming.OpenPrice)
	mergeFloat(&existing.HighPrice, incoming.HighPrice)
	mergeFloat(&existing.LowPrice, incoming.LowPrice)
	mergeFloat(&existing.ClosePrice, incoming.ClosePrice)
	mergeFloat(&existing.Change, incoming.Change)
	mergeFloat(&existing.ChangePercent, incoming.ChangePercent)
	mergeFloat(&existing.TradeVolume, incoming.TradeVolume)
	mergeFloat(&existing.TradeValue, incoming.TradeValue)
	mergeFloat(&existing.Transaction, incoming.Transaction)
	mergeFloat(&existing.TradeWeight, incoming.TradeWeight)
	mergeFloat(&existing.FiniNetBuySell, incoming.FiniNetBuySell)
	mergeFloat(&existing.SitcNetBuySell, incoming.SitcNetBuySell)
	mergeFloat(&existing.DealersNetBuySell, incoming.DealersNetBuySell)
}
