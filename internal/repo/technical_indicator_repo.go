package repo

import (
	"context"
	"errors"

	"github.com/acronhuang/taiwan-stock-data-collector/internal/models"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

func NewTechnicalIndicatorRepo(db *gorm.DB) *TechnicalIndicatorRepo {
	return &TechnicalIndicatorRepo{
		Repository: orz.NewRepository[models.TechnicalIndicator, string](db),
	}
}

type TechnicalIndicatorRepo struct {
	orz.Repository[models.TechnicalIndicator, string]
}

// Upsert 寫入指定 (日期, 代號) 的技術指標，已存在時整筆覆蓋。
// 指標引擎每日全量重算，不需逐欄位比較。
func (r TechnicalIndicatorRepo) Upsert(ctx context.Context, indicator *models.TechnicalIndicator) error {
	db := r.GetDB(ctx)

	var existing models.TechnicalIndicator
	err := db.Table(r.GetTableName()).
		Where("date = ? AND symbol = ?", indicator.Date, indicator.Symbol).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		indicator.ID = ulid.Make().String()
		return db.Create(indicator).Error
	}
	if err != nil {
		return err
	}

	indicator.ID = existing.ID
	indicator.CreatedAt = existing.CreatedAt
	return db.Save(indicator).Error
}

// FindByKey 取得指定 (日期, 代號) 的技術指標
func (r TechnicalIndicatorRepo) FindByKey(ctx context.Context, date, symbol string) (*models.TechnicalIndicator, error) {
	var m models.TechnicalIndicator
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("date = ? AND symbol = ?", date, symbol).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindLatestBySymbol 取得指定代號最近一筆技術指標
func (r TechnicalIndicatorRepo) FindLatestBySymbol(ctx context.Context, symbol string) (*models.TechnicalIndicator, error) {
	var m models.TechnicalIndicator
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("symbol = ?", symbol).
		Order("date DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByDate 取得指定日期的全部技術指標
func (r TechnicalIndicatorRepo) FindByDate(ctx context.Context, date string) ([]models.TechnicalIndicator, error) {
	var indicators []models.TechnicalIndicator
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("date = ?", date).
		Find(&indicators).Error
	return indicators, err
}

// FindHistory 取得指定代號在範圍內的技術指標，由新到舊
func (r TechnicalIndicatorRepo) FindHistory(ctx context.Context, symbol, startDate, endDate string, limit int) ([]models.TechnicalIndicator, error) {
	db := r.GetDB(ctx).Table(r.GetTableName()).Where("symbol = ?", symbol)
	if startDate != "" {
		db = db.Where("date >= ?", startDate)
	}
	if endDate != "" {
		db = db.Where("date <= ?", endDate)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	var indicators []models.TechnicalIndicator
	err := db.Order("date DESC").Find(&indicators).Error
	return indicators, err
}

// GetAllDates 取得所有存在技術指標的日期，由舊到新
func (r TechnicalIndicatorRepo) GetAllDates(ctx context.Context) ([]string, error) {
	var dates []string
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Distinct("date").
		Order("date ASC").
		Pluck("date", &dates).Error
	return dates, err
}
