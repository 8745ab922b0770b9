package models

import (
	"time"
)

// TickerType 標的類型
type TickerType string

const (
	TickerTypeEquity TickerType = "stock" // 個股
	TickerTypeIndex  TickerType = "index" // 指數
)

// Exchange 交易所
type Exchange string

const (
	ExchangeTWSE Exchange = "TWSE" // 臺灣證券交易所
	ExchangeTPEx Exchange = "TPEx" // 證券櫃檯買賣中心
)

// Market 市場別
type Market string

const (
	MarketTSE Market = "TSE" // 集中市場
	MarketOTC Market = "OTC" // 上櫃市場
)

// Ticker 每日行情，每個 (日期, 代號, 交易所) 恰有一筆
type Ticker struct {
	ID       string     `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Date     string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_date_symbol_exchange;index" json:"date"` // YYYY-MM-DD
	Symbol   string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_date_symbol_exchange" json:"symbol"`     // 股票/指數代號
	Exchange Exchange   `gorm:"type:varchar(10);not null;uniqueIndex:idx_date_symbol_exchange" json:"exchange"`   // 交易所
	Type     TickerType `gorm:"type:varchar(10);index" json:"type"`                                               // stock/index
	Market   Market     `gorm:"type:varchar(10)" json:"market"`                                                   // TSE/OTC
	Name     string     `gorm:"type:varchar(50)" json:"name"`                                                     // 名稱

	// 價格欄位，各來源獨立寫入，允許為空
	OpenPrice  *float64 `gorm:"type:decimal(20,4)" json:"openPrice"`  // 開盤價
	HighPrice  *float64 `gorm:"type:decimal(20,4)" json:"highPrice"`  // 最高價
	LowPrice   *float64 `gorm:"type:decimal(20,4)" json:"lowPrice"`   // 最低價
	ClosePrice *float64 `gorm:"type:decimal(20,4)" json:"closePrice"` // 收盤價

	Change        *float64 `gorm:"type:decimal(20,4)" json:"change"`        // 漲跌
	ChangePercent *float64 `gorm:"type:decimal(10,4)" json:"changePercent"` // 漲跌幅(%)

	TradeVolume *float64 `gorm:"type:decimal(20,2)" json:"tradeVolume"` // 成交股數
	TradeValue  *float64 `gorm:"type:decimal(20,2)" json:"tradeValue"`  // 成交金額
	Transaction *float64 `gorm:"type:decimal(20,2)" json:"transaction"` // 成交筆數
	TradeWeight *float64 `gorm:"type:decimal(10,4)" json:"tradeWeight"` // 成交比重(%)

	// 三大法人買賣超
	FiniNetBuySell    *float64 `gorm:"type:decimal(20,2)" json:"finiNetBuySell"`    // 外資及陸資
	SitcNetBuySell    *float64 `gorm:"type:decimal(20,2)" json:"sitcNetBuySell"`    // 投信
	DealersNetBuySell *float64 `gorm:"type:decimal(20,2)" json:"dealersNetBuySell"` // 自營商

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Ticker) TableName() string {
	return "tickers"
}

// HasValidClose 收盤價存在且大於零，才能作為技術指標的輸入
func (t *Ticker) HasValidClose() bool {
	return t.ClosePrice != nil && *t.ClosePrice > 0
}
