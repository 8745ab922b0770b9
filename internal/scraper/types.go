// Package scraper 交易所公開資料抓取。
//
// 各 client 只負責取回與解析單一來源的原始資料，
// 欄位對應與入庫由 service 層處理。來源回報非交易日或尚無資料時
// 回傳 nil 而非錯誤。
package scraper

// IndexQuote 指數收盤行情
type IndexQuote struct {
	Date          string
	Symbol        string
	Name          string
	OpenPrice     *float64
	HighPrice     *float64
	LowPrice      *float64
	ClosePrice    *float64
	Change        *float64
	ChangePercent *float64
}

// MarketTrades 大盤成交量值
type MarketTrades struct {
	Date        string
	TradeVolume *float64
	TradeValue  *float64
	Transaction *float64
	Price       *float64 // 收盤指數
	Change      *float64 // 指數漲跌
}

// SectorTrades 類股成交量值
type SectorTrades struct {
	Date        string
	Symbol      string
	Name        string
	TradeVolume *float64
	TradeValue  *float64
	TradeWeight *float64
}

// EquityQuote 個股收盤行情
type EquityQuote struct {
	Date          string
	Symbol        string
	Name          string
	OpenPrice     *float64
	HighPrice     *float64
	LowPrice      *float64
	ClosePrice    *float64
	Change        *float64
	ChangePercent *float64
	TradeVolume   *float64
	TradeValue    *float64
	Transaction   *float64
}

// EquityInstTrade 個股三大法人買賣超
type EquityInstTrade struct {
	Date              string
	Symbol            string
	FiniNetBuySell    *float64
	SitcNetBuySell    *float64
	DealersNetBuySell *float64
}

// InstInvestorsNet 市場別三大法人買賣超
type InstInvestorsNet struct {
	Date              string
	FiniNetBuySell    *float64
	SitcNetBuySell    *float64
	DealersNetBuySell *float64
}

// MarginTransactions 信用交易統計
type MarginTransactions struct {
	Date                     string
	MarginBalance            *float64
	MarginBalanceChange      *float64
	MarginBalanceValue       *float64
	MarginBalanceValueChange *float64
	ShortBalance             *float64
	ShortBalanceChange       *float64
}

// TxfNetOi 外資臺股期貨未平倉淨口數
type TxfNetOi struct {
	Date         string
	FiniTxfNetOi *float64
}

// TxoNetOiValue 外資臺指選擇權未平倉淨金額
type TxoNetOiValue struct {
	Date                   string
	FiniTxoCallsNetOiValue *float64
	FiniTxoPutsNetOiValue  *float64
}

// LargeTradersTxf 十大特定法人臺股期貨未平倉淨口數
type LargeTradersTxf struct {
	Date                             string
	TopTenSpecificFrontMonthTxfNetOi *float64
	TopTenSpecificBackMonthsTxfNetOi *float64
}

// RetailMxf 散戶小型臺指淨部位
type RetailMxf struct {
	Date                    string
	RetailMxfNetOi          *float64
	RetailMxfLongShortRatio *float64
}

// PutCallRatio 臺指選擇權 Put/Call Ratio
type PutCallRatio struct {
	Date            string
	TxoPutCallRatio *float64
}

// FxRate 匯率
type FxRate struct {
	Date   string
	UsdTwd *float64
}
