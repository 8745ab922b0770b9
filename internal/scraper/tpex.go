package scraper

import (
	"context"
	"regexp"
	"time"
)

// TpexClient 證券櫃檯買賣中心資料抓取
type TpexClient struct {
	*httpClient
}

// NewTpexClient 建立櫃買中心 client
func NewTpexClient(baseURL string, timeout time.Duration) *TpexClient {
	return &TpexClient{httpClient: newHTTPClient(baseURL, timeout)}
}

// tpexResponse 櫃買中心 JSON 回應格式，新版 API 使用 tables，
// 部分舊版端點仍回傳 iTotalRecords/aaData/tfootData
type tpexResponse struct {
	ITotalRecords int         `json:"iTotalRecords"`
	AaData        [][]string  `json:"aaData"`
	TfootDataOne  []string    `json:"tfootData_one"`
	TfootDataTwo  []string    `json:"tfootData_two"`
	Tables        []tpexTable `json:"tables"`
}

type tpexTable struct {
	TotalCount int        `json:"totalCount"`
	Data       [][]string `json:"data"`
}

func (r *tpexResponse) firstTable() *tpexTable {
	if len(r.Tables) == 0 || len(r.Tables[0].Data) == 0 {
		return nil
	}
	return &r.Tables[0]
}

// 權證代號規則：7 開頭後接特定序號與類別碼
var tpexWarrantPattern = regexp.MustCompile(`^7[0-3]\d{3}[\dPFQCBXY]$`)

// tpexSectorMappings 櫃買類股名稱對應指數代號
var tpexSectorMappings = map[string]struct{ symbol, name string }{
	"光電業":      {"IX0055", "櫃買光電業類指數"},
	"其他":       {"IX0100", "櫃買其他類指數"},
	"其他電子業":    {"IX0099", "櫃買其他電子類指數"},
	"化學工業":     {"IX0051", "櫃買化工類指數"},
	"半導體業":     {"IX0053", "櫃買半導體類指數"},
	"居家生活":     {"IX0191", "櫃買居家生活類指數"},
	"建材營造":     {"IX0048", "櫃買營建類指數"},
	"數位雲端":     {"IX0190", "櫃買數位雲端類指數"},
	"文化創意業":    {"IX0075", "櫃買文化創意業類指數"},
	"生技醫療":     {"IX0052", "櫃買生技醫療類指數"},
	"紡織纖維":     {"IX0044", "櫃買紡纖類指數"},
	"綠能環保":     {"IX0189", "櫃買綠能環保類指數"},
	"航運業":      {"IX0049", "櫃買航運類指數"},
	"觀光餐旅":     {"IX0050", "櫃買觀光類指數"},
	"資訊服務業":    {"IX0059", "櫃買資訊服務類指數"},
	"通信網路業":    {"IX0056", "櫃買通信網路類指數"},
	"鋼鐵工業":     {"IX0046", "櫃買鋼鐵類指數"},
	"電子通路業":    {"IX0058", "櫃買電子通路類指數"},
	"電子零組件業":   {"IX0057", "櫃買電子零組件類指數"},
	"電機機械":     {"IX0045", "櫃買機械類指數"},
	"電腦及週邊設備業": {"IX0054", "櫃買電腦及週邊類指數"},
}

// tpexElectronicSectors 彙總為櫃買電子類指數的子類股
var tpexElectronicSectors = map[string]bool{
	"IX0053": true,
	"IX0054": true,
	"IX0055": true,
	"IX0056": true,
	"IX0057": true,
	"IX0058": true,
	"IX0059": true,
	"IX0099": true,
}

// FetchMarketTrades 取得櫃買市場成交量值與收市指數
func (c *TpexClient) FetchMarketTrades(ctx context.Context, date string) (*MarketTrades, error) {
	url := c.buildURL("/web/stock/aftertrading/daily_trading_index/st41_result.php?d={date}&o=json", map[string]interface{}{
		"date": isoToROC(date),
	})

	var resp tpexResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	table := resp.firstTable()
	if table == nil || table.TotalCount == 0 {
		return nil, nil
	}

	for _, row := range table.Data {
		if len(row) < 6 {
			continue
		}
		if rocToISO(row[0]) != date {
			continue
		}
		return &MarketTrades{
			Date:        date,
			TradeVolume: parseNumber(row[1]),
			TradeValue:  parseNumber(row[2]),
			Transaction: parseNumber(row[3]),
			Price:       parseNumber(row[4]),
			Change:      parseNumber(row[5]),
		}, nil
	}
	return nil, nil
}

// FetchIndicesQuotes 取得櫃買指數收盤行情。
// 每分鐘指數端點已失效，改由市場焦點指標取收市指數與漲跌，
// 開盤價以收盤價減漲跌回推，僅能產出櫃買指數單檔。
func (c *TpexClient) FetchIndicesQuotes(ctx context.Context, date string) ([]IndexQuote, error) {
	url := c.buildURL("/web/stock/aftertrading/market_highlight/highlight_result.php?d={date}&o=json", map[string]interface{}{
		"date": isoToROC(date),
	})

	var resp tpexResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	table := resp.firstTable()
	if table == nil || len(table.Data[0]) < 7 {
		return nil, nil
	}

	// 欄位：[上櫃家數, 總資本額, 總市值, 成交值, 成交股數, 收市指數, 指數漲跌, ...]
	row := table.Data[0]
	closePrice := parseNumber(row[5])
	change := parseNumber(row[6])
	if closePrice == nil || change == nil || *closePrice <= 0 {
		return nil, nil
	}

	openPrice := *closePrice - *change
	if openPrice <= 0 {
		return nil, nil
	}
	highPrice := openPrice
	if *closePrice > highPrice {
		highPrice = *closePrice
	}
	lowPrice := openPrice
	if *closePrice < lowPrice {
		lowPrice = *closePrice
	}
	changePercent := *change / openPrice * 100

	return []IndexQuote{{
		Date:          date,
		Symbol:        "IX0043",
		Name:          "櫃買指數",
		OpenPrice:     &openPrice,
		HighPrice:     &highPrice,
		LowPrice:      &lowPrice,
		ClosePrice:    closePrice,
		Change:        change,
		ChangePercent: &changePercent,
	}}, nil
}

// FetchIndicesTrades 取得櫃買類股成交量值，電子相關子類股另彙總為櫃買電子類指數
func (c *TpexClient) FetchIndicesTrades(ctx context.Context, date string) ([]SectorTrades, error) {
	url := c.buildURL("/web/stock/historical/trading_vol_ratio/sectr_result.php?d={date}&o=json", map[string]interface{}{
		"date": isoToROC(date),
	})

	var resp tpexResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	table := resp.firstTable()
	if table == nil {
		return nil, nil
	}

	// 欄位：[類股名稱, 成交金額, 成交比重, 成交股數, 成交比重]
	trades := make([]SectorTrades, 0, len(table.Data)+1)
	var electronicValue, electronicWeight float64
	var hasElectronic bool
	for _, row := range table.Data {
		if len(row) < 3 {
			continue
		}
		mapping, ok := tpexSectorMappings[row[0]]
		if !ok {
			continue
		}
		tradeValue := parseNumber(row[1])
		tradeWeight := parseNumber(row[2])
		trades = append(trades, SectorTrades{
			Date:        date,
			Symbol:      mapping.symbol,
			Name:        mapping.name,
			TradeValue:  tradeValue,
			TradeWeight: tradeWeight,
		})
		if tpexElectronicSectors[mapping.symbol] {
			hasElectronic = true
			if tradeValue != nil {
				electronicValue += *tradeValue
			}
			if tradeWeight != nil {
				electronicWeight += *tradeWeight
			}
		}
	}
	if hasElectronic {
		trades = append(trades, SectorTrades{
			Date:        date,
			Symbol:      "IX0047",
			Name:        "櫃買電子類指數",
			TradeValue:  &electronicValue,
			TradeWeight: &electronicWeight,
		})
	}
	if len(trades) == 0 {
		return nil, nil
	}
	return trades, nil
}

// FetchEquitiesQuotes 取得上櫃個股收盤行情，權證代號略過。
// 欄位：[代號, 名稱, 收盤, 漲跌, 開盤, 最高, 最低, 均價, 成交股數, 成交金額, 成交筆數, ...]
func (c *TpexClient) FetchEquitiesQuotes(ctx context.Context, date string) ([]EquityQuote, error) {
	url := c.buildURL("/web/stock/aftertrading/daily_close_quotes/stk_quote_result.php?d={date}&o=json", map[string]interface{}{
		"date": isoToROC(date),
	})

	var resp tpexResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	table := resp.firstTable()
	if table == nil {
		return nil, nil
	}

	quotes := make([]EquityQuote, 0, len(table.Data))
	for _, row := range table.Data {
		if len(row) < 11 || tpexWarrantPattern.MatchString(row[0]) {
			continue
		}

		closePrice := parseNumber(row[2])
		change := parseNumber(row[3])
		var changePercent *float64
		if closePrice != nil && change != nil && *closePrice != *change {
			p := *change / (*closePrice - *change) * 100
			changePercent = &p
		}

		quotes = append(quotes, EquityQuote{
			Date:          date,
			Symbol:        row[0],
			Name:          row[1],
			OpenPrice:     parseNumber(row[4]),
			HighPrice:     parseNumber(row[5]),
			LowPrice:      parseNumber(row[6]),
			ClosePrice:    closePrice,
			TradeVolume:   parseNumber(row[8]),
			TradeValue:    parseNumber(row[9]),
			Transaction:   parseNumber(row[10]),
			Change:        change,
			ChangePercent: changePercent,
		})
	}
	if len(quotes) == 0 {
		return nil, nil
	}
	return quotes, nil
}

// FetchEquitiesInstInvestorsTrades 取得上櫃個股三大法人買賣超。
// 欄位順序：[0]代號 [1]名稱 [2-4]外資 [5-7]投信 [8-10]外資+投信
// [11-13]自營(自行) [14-16]自營(避險) [17-19]券商 [20-22]自營+券商 [23]合計
func (c *TpexClient) FetchEquitiesInstInvestorsTrades(ctx context.Context, date string) ([]EquityInstTrade, error) {
	url := c.buildURL("/web/stock/3insti/daily_trade/3itrade_hedge_result.php?d={date}&se=EW&t=D&o=json", map[string]interface{}{
		"date": isoToROC(date),
	})

	var resp tpexResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	table := resp.firstTable()
	if table == nil {
		return nil, nil
	}

	trades := make([]EquityInstTrade, 0, len(table.Data))
	for _, row := range table.Data {
		if len(row) < 23 {
			continue
		}
		trades = append(trades, EquityInstTrade{
			Date:              date,
			Symbol:            row[0],
			FiniNetBuySell:    parseNumber(row[4]),
			SitcNetBuySell:    parseNumber(row[7]),
			DealersNetBuySell: parseNumber(row[22]),
		})
	}
	return trades, nil
}

// FetchInstInvestorsTrades 取得櫃買市場三大法人買賣超總計
func (c *TpexClient) FetchInstInvestorsTrades(ctx context.Context, date string) (*InstInvestorsNet, error) {
	url := c.buildURL("/web/stock/3insti/3insti_summary/3itrdsum_result.php?d={date}&t=D&o=json", map[string]interface{}{
		"date": isoToROC(date),
	})

	var resp tpexResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	table := resp.firstTable()
	if table == nil || len(table.Data) < 5 {
		return nil, nil
	}

	// [0] 外資及陸資合計、[3] 投信、[4] 自營商合計，各列第 4 欄為買賣超
	pick := func(rowIdx int) *float64 {
		row := table.Data[rowIdx]
		if len(row) < 4 {
			return nil
		}
		return parseNumber(row[3])
	}
	return &InstInvestorsNet{
		Date:              date,
		FiniNetBuySell:    pick(0),
		SitcNetBuySell:    pick(3),
		DealersNetBuySell: pick(4),
	}, nil
}

// FetchMarginTransactions 取得櫃買市場信用交易統計，舊版端點以表尾列攤平取值
func (c *TpexClient) FetchMarginTransactions(ctx context.Context, date string) (*MarginTransactions, error) {
	url := c.buildURL("/web/stock/margin_trading/margin_balance/margin_bal_result.php?d={date}&o=json", map[string]interface{}{
		"date": isoToROC(date),
	})

	var resp tpexResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if resp.ITotalRecords == 0 {
		return nil, nil
	}

	var values []*float64
	for _, cell := range append(resp.TfootDataOne, resp.TfootDataTwo...) {
		if v := parseNumber(cell); v != nil {
			values = append(values, v)
		}
	}
	if len(values) < 15 {
		return nil, nil
	}

	return &MarginTransactions{
		Date:                     date,
		MarginBalance:            values[4],
		MarginBalanceChange:      diffNumbers(values[4], values[0]),
		MarginBalanceValue:       values[14],
		MarginBalanceValueChange: diffNumbers(values[14], values[10]),
		ShortBalance:             values[9],
		ShortBalanceChange:       diffNumbers(values[9], values[5]),
	}, nil
}
