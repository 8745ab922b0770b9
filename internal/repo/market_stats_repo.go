package repo

import (
	"context"
	"errors"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/models"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

func NewMarketStatsRepo(db *gorm.DB) *MarketStatsRepo {
	return &MarketStatsRepo{
		Repository: orz.NewRepository[models.MarketStats, string](db),
	}
}

type MarketStatsRepo struct {
	orz.Repository[models.MarketStats, string]
}

// marketStatsKeyField 變化偵測使用的關鍵欄位
type marketStatsKeyField struct {
	name string
	get  func(*models.MarketStats) *float64
}

var marketStatsKeyFields = []marketStatsKeyField{
	{"taiexPrice", func(m *models.MarketStats) *float64 { return m.TaiexPrice }},
	{"taiexChange", func(m *models.MarketStats) *float64 { return m.TaiexChange }},
	{"taiexTradeValue", func(m *models.MarketStats) *float64 { return m.TaiexTradeValue }},
	{"finiNetBuySell", func(m *models.MarketStats) *float64 { return m.FiniNetBuySell }},
	{"sitcNetBuySell", func(m *models.MarketStats) *float64 { return m.SitcNetBuySell }},
	{"dealersNetBuySell", func(m *models.MarketStats) *float64 { return m.DealersNetBuySell }},
	{"marginBalance", func(m *models.MarketStats) *float64 { return m.MarginBalance }},
	{"marginBalanceValue", func(m *models.MarketStats) *float64 { return m.MarginBalanceValue }},
	{"shortBalance", func(m *models.MarketStats) *float64 { return m.ShortBalance }},
}

// FindByDate 取得指定日期的既有資料
func (r MarketStatsRepo) FindByDate(ctx context.Context, date string) (*models.MarketStats, error) {
	var m models.MarketStats
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).Where("date = ?", date).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// HasForDate 檢查指定日期是否已有資料
func (r MarketStatsRepo) HasForDate(ctx context.Context, date string) (bool, error) {
	var count int64
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).Where("date = ?", date).Count(&count).Error
	return count > 0, err
}

// NeedsUpdate 比較關鍵欄位，判斷資料是否需要更新
func (r MarketStatsRepo) NeedsUpdate(existing, incoming *models.MarketStats) bool {
	if existing == nil {
		return true
	}
	for _, field := range marketStatsKeyFields {
		if floatChanged(field.get(existing), field.get(incoming)) {
			return true
		}
	}
	return false
}

// SmartUpdate 智能更新：不存在時新增，關鍵欄位有變化時更新，否則不寫入。
// 各排程任務只提供自己的欄位子集，未提供的欄位保留原值。
func (r MarketStatsRepo) SmartUpdate(ctx context.Context, incoming *models.MarketStats) (UpsertOutcome, error) {
	db := r.GetDB(ctx)

	existing, err := r.FindByDate(ctx, incoming.Date)
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

	applyMarketStatsFields(existing, incoming)
	if err := db.Save(existing).Error; err != nil {
		return "", err
	}
	return OutcomeUpdated, nil
}

// Upsert 直接寫入（不比較關鍵欄位），供只寫自有欄位的衍生性商品任務使用
func (r MarketStatsRepo) Upsert(ctx context.Context, incoming *models.MarketStats) error {
	db := r.GetDB(ctx)

	existing, err := r.FindByDate(ctx, incoming.Date)
	if err != nil {
		return err
	}
	if existing == nil {
		incoming.ID = ulid.Make().String()
		return db.Create(incoming).Error
	}
	applyMarketStatsFields(existing, incoming)
	return db.Save(existing).Error
}

// GetAllDates 取得所有存在資料的日期，由舊到新
func (r MarketStatsRepo) GetAllDates(ctx context.Context) ([]string, error) {
	var dates []string
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Distinct("date").
		Order("date ASC").
		Pluck("date", &dates).Error
	return dates, err
}

// applyMarketStatsFields 把本次提供的欄位合併進既有資料
func applyMarketStatsFields(existing, incoming *models.MarketStats) {
	mergeFloat(&existing.TaiexPrice, incoming.TaiexPrice)
	mergeFloat(&existing.TaiexChange, incoming.TaiexChange)
	mergeFloat(&existing.TaiexTradeValue, incoming.TaiexTradeValue)
	mergeFloat(&existing.FiniNetBuySell, incoming.FiniNetBuySell)
	mergeFloat(&existing.SitcNetBuySell, incoming.SitcNetBuySell)
	mergeFloat(&existing.DealersNetBuySell, incoming.DealersNetBuySell)
	mergeFloat(&existing.MarginBalance, incoming.MarginBalance)
	mergeFloat(&existing.MarginBalanceChange, incoming.MarginBalanceChange)
	mergeFloat(&existing.MarginBalanceValue, incoming.MarginBalanceValue)
	mergeFloat(&existing.MarginBalanceValueChange, incoming.MarginBalanceValueChange)
	mergeFloat(&existing.ShortBalance, incoming.ShortBalance)
	mergeFloat(&existing.ShortBalanceChange, incoming.ShortBalanceChange)
	mergeFloat(&existing.FiniTxfNetOi, incoming.FiniTxfNetOi)
	mergeFloat(&existing.FiniTxoCallsNetOiValue, incoming.FiniTxoCallsNetOiValue)
	mergeFloat(&existing.FiniTxoPutsNetOiValue, incoming.FiniTxoPutsNetOiValue)
	mergeFloat(&existing.TopTenSpecificFrontMonthTxfNetOi, incoming.TopTenSpecificFrontMonthTxfNetOi)
	mergeFloat(&existing.TopTenSpecificBackMonthsTxfNetOi, incoming.TopTenSpecificBackMonthsTxfNetOi)
	mergeFloat(&existing.RetailMxfNetOi, incoming.RetailMxfNetOi)
	mergeFloat(&existing.RetailMxfLongShortRatio, incoming.RetailMxfLongShortRatio)
	mergeFloat(&existing.TxoPutCallRatio, incoming.TxoPutCallRatio)
	mergeFloat(&existing.UsdTwd, incoming.UsdTwd)
}
