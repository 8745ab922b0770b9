package models

import (
	"time"

	"gorm.io/datatypes"
)

// Recommendation 投資建議等級，由技術評分對應出的五級分類
type Recommendation string

const (
	RecommendationStrongBuy  Recommendation = "strong_buy"
	RecommendationBuy        Recommendation = "buy"
	RecommendationHold       Recommendation = "hold"
	RecommendationSell       Recommendation = "sell"
	RecommendationStrongSell Recommendation = "strong_sell"
)

// TechnicalSignals 買賣訊號旗標。欄位名稱與既有儲存資料的鍵一致，不可改名。
type TechnicalSignals struct {
	MACDBuy             bool `json:"macdBuy"`
	MACDSell            bool `json:"macdSell"`
	RSIOverbought       bool `json:"rsiOverbought"`
	RSIOversold         bool `json:"rsiOversold"`
	KDGoldenCross       bool `json:"kdGoldenCross"`
	KDDeathCross        bool `json:"kdDeathCross"`
	VolumeBreakout      bool `json:"volumeBreakout"`
	PriceBreakout       bool `json:"priceBreakout"`
	BollingerBuySignal  bool `json:"bollingerBuySignal"`
	BollingerSellSignal bool `json:"bollingerSellSignal"`
	WilliamsOversold    bool `json:"williamsOversold"`
	WilliamsOverbought  bool `json:"williamsOverbought"`
}

// TechnicalIndicator 技術指標快照，每個 (日期, 代號) 恰有一筆。
// 指標欄位在歷史資料不足時為空。
type TechnicalIndicator struct {
	ID     string     `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Date   string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_ti_date_symbol;index" json:"date"` // YYYY-MM-DD
	Symbol string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_ti_date_symbol" json:"symbol"`     // 股票/指數代號
	Name   string     `gorm:"type:varchar(50)" json:"name"`                                               // 名稱
	Type   TickerType `gorm:"type:varchar(10)" json:"type"`                                               // stock/index

	// 當日價量（由 Ticker 反正規化）
	OpenPrice  *float64 `gorm:"type:decimal(20,4)" json:"openPrice"`  // 開盤價
	HighPrice  *float64 `gorm:"type:decimal(20,4)" json:"highPrice"`  // 最高價
	LowPrice   *float64 `gorm:"type:decimal(20,4)" json:"lowPrice"`   // 最低價
	ClosePrice *float64 `gorm:"type:decimal(20,4)" json:"closePrice"` // 收盤價
	Volume     *float64 `gorm:"type:decimal(20,2)" json:"volume"`     // 成交股數

	// 移動平均線
	MA5   *float64 `gorm:"type:decimal(20,4)" json:"ma5"`   // 5日均線
	MA10  *float64 `gorm:"type:decimal(20,4)" json:"ma10"`  // 10日均線
	MA20  *float64 `gorm:"type:decimal(20,4)" json:"ma20"`  // 20日均線（月線）
	MA60  *float64 `gorm:"type:decimal(20,4)" json:"ma60"`  // 60日均線（季線）
	MA120 *float64 `gorm:"type:decimal(20,4)" json:"ma120"` // 120日均線（半年線）
	MA240 *float64 `gorm:"type:decimal(20,4)" json:"ma240"` // 240日均線（年線）

	// 指數移動平均
	EMA12 *float64 `gorm:"type:decimal(20,4)" json:"ema12"` // 12日EMA
	EMA26 *float64 `gorm:"type:decimal(20,4)" json:"ema26"` // 26日EMA

	// MACD
	MACD          *float64 `gorm:"type:decimal(20,4)" json:"macd"`          // MACD線
	MACDSignal    *float64 `gorm:"type:decimal(20,4)" json:"macdSignal"`    // 訊號線
	MACDHistogram *float64 `gorm:"type:decimal(20,4)" json:"macdHistogram"` // 柱狀圖

	// RSI
	RSI6  *float64 `gorm:"type:decimal(10,4)" json:"rsi6"`  // 6日RSI
	RSI12 *float64 `gorm:"type:decimal(10,4)" json:"rsi12"` // 12日RSI
	RSI24 *float64 `gorm:"type:decimal(10,4)" json:"rsi24"` // 24日RSI

	// KD 隨機指標
	K9 *float64 `gorm:"type:decimal(10,4)" json:"k9"` // 9日K值
	D9 *float64 `gorm:"type:decimal(10,4)" json:"d9"` // 9日D值

	// 威廉指標
	WR10 *float64 `gorm:"type:decimal(10,4)" json:"wr10"` // 10日威廉指標
	WR20 *float64 `gorm:"type:decimal(10,4)" json:"wr20"` // 20日威廉指標

	// 布林通道
	BBUpper  *float64 `gorm:"type:decimal(20,4)" json:"bbUpper"`  // 上軌
	BBMiddle *float64 `gorm:"type:decimal(20,4)" json:"bbMiddle"` // 中軌(20MA)
	BBLower  *float64 `gorm:"type:decimal(20,4)" json:"bbLower"`  // 下軌
	BBWidth  *float64 `gorm:"type:decimal(20,4)" json:"bbWidth"`  // 通道寬度

	// 成交量指標
	VolumeMA5   *float64 `gorm:"type:decimal(20,2)" json:"volumeMa5"`   // 5日均量
	VolumeMA20  *float64 `gorm:"type:decimal(20,2)" json:"volumeMa20"`  // 20日均量
	VolumeRatio *float64 `gorm:"type:decimal(10,4)" json:"volumeRatio"` // 量比

	// 支撐與阻力（最近20日低/高點）
	SupportLevel    *float64 `gorm:"type:decimal(20,4)" json:"supportLevel"`    // 支撐位
	ResistanceLevel *float64 `gorm:"type:decimal(20,4)" json:"resistanceLevel"` // 阻力位

	// 買賣訊號
	Signals datatypes.JSON `gorm:"type:json" json:"signals"`

	TechnicalScore float64        `gorm:"type:decimal(10,2)" json:"technicalScore"` // 綜合評分 (-100 ~ 100)
	Recommendation Recommendation `gorm:"type:varchar(15)" json:"recommendation"`   // 五級建議

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (TechnicalIndicator) TableName() string {
	return "technical_indicators"
}
