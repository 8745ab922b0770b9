package models

import (
	"time"
)

// MarketStats 大盤籌碼統計，每個日期恰有一筆。
// 各欄位由不同排程任務獨立寫入，因此全部允許為空。
type MarketStats struct {
	ID   string `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Date string `gorm:"type:varchar(10);not null;uniqueIndex" json:"date"` // YYYY-MM-DD

	// 加權指數
	TaiexPrice      *float64 `gorm:"type:decimal(20,4)" json:"taiexPrice"`      // 加權指數收盤
	TaiexChange     *float64 `gorm:"type:decimal(20,4)" json:"taiexChange"`     // 加權指數漲跌
	TaiexTradeValue *float64 `gorm:"type:decimal(20,2)" json:"taiexTradeValue"` // 集中市場成交金額

	// 三大法人買賣超
	FiniNetBuySell    *float64 `gorm:"type:decimal(20,2)" json:"finiNetBuySell"`    // 外資及陸資
	SitcNetBuySell    *float64 `gorm:"type:decimal(20,2)" json:"sitcNetBuySell"`    // 投信
	DealersNetBuySell *float64 `gorm:"type:decimal(20,2)" json:"dealersNetBuySell"` // 自營商

	// 信用交易
	MarginBalance            *float64 `gorm:"type:decimal(20,2)" json:"marginBalance"`            // 融資餘額(張)
	MarginBalanceChange      *float64 `gorm:"type:decimal(20,2)" json:"marginBalanceChange"`      // 融資餘額增減
	MarginBalanceValue       *float64 `gorm:"type:decimal(20,2)" json:"marginBalanceValue"`       // 融資餘額(金額)
	MarginBalanceValueChange *float64 `gorm:"type:decimal(20,2)" json:"marginBalanceValueChange"` // 融資金額增減
	ShortBalance             *float64 `gorm:"type:decimal(20,2)" json:"shortBalance"`             // 融券餘額(張)
	ShortBalanceChange       *float64 `gorm:"type:decimal(20,2)" json:"shortBalanceChange"`       // 融券餘額增減

	// 期貨與選擇權未平倉
	FiniTxfNetOi                     *float64 `gorm:"type:decimal(20,2)" json:"finiTxfNetOi"`                     // 外資臺股期貨淨口數
	FiniTxoCallsNetOiValue           *float64 `gorm:"type:decimal(20,2)" json:"finiTxoCallsNetOiValue"`           // 外資臺指買權淨金額
	FiniTxoPutsNetOiValue            *float64 `gorm:"type:decimal(20,2)" json:"finiTxoPutsNetOiValue"`            // 外資臺指賣權淨金額
	TopTenSpecificFrontMonthTxfNetOi *float64 `gorm:"type:decimal(20,2)" json:"topTenSpecificFrontMonthTxfNetOi"` // 十大特法近月淨口數
	TopTenSpecificBackMonthsTxfNetOi *float64 `gorm:"type:decimal(20,2)" json:"topTenSpecificBackMonthsTxfNetOi"` // 十大特法遠月淨口數
	RetailMxfNetOi                   *float64 `gorm:"type:decimal(20,2)" json:"retailMxfNetOi"`                   // 散戶小台淨口數
	RetailMxfLongShortRatio          *float64 `gorm:"type:decimal(10,4)" json:"retailMxfLongShortRatio"`          // 散戶小台多空比
	TxoPutCallRatio                  *float64 `gorm:"type:decimal(10,4)" json:"txoPutCallRatio"`                  // 臺指選擇權 P/C Ratio

	// 匯率
	UsdTwd *float64 `gorm:"type:decimal(10,4)" json:"usdtwd"` // 美元兌新臺幣

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (MarketStats) TableName() string {
	return "market_stats"
}
