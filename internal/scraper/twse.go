package scraper

import (
	"context"
	"time"
)

// TwseClient 臺灣證券交易所資料抓取
type TwseClient struct {
	*httpClient
}

// NewTwseClient 建立證交所 client
func NewTwseClient(baseURL string, timeout time.Duration) *TwseClient {
	return &TwseClient{httpClient: newHTTPClient(baseURL, timeout)}
}

// twseResponse 證交所 rwd JSON 回應的共通格式
type twseResponse struct {
	Stat   string      `json:"stat"`
	Data   [][]string  `json:"data"`
	Tables []twseTable `json:"tables"`
}

type twseTable struct {
	Title string     `json:"title"`
	Data  [][]string `json:"data"`
}

// twseIndices 上市指數定義，MI_5MINS_INDEX 各欄依此順序排列
var twseIndices = []struct{ symbol, name string }{
	{"IX0001", "發行量加權股價指數"},
	{"IX0007", "未含金融保險股指數"},
	{"IX0008", "未含電子股指數"},
	{"IX0009", "未含金融電子股指數"},
	{"IX0010", "水泥類指數"},
	{"IX0011", "食品類指數"},
	{"IX0012", "塑膠類指數"},
	{"IX0016", "紡織纖維類指數"},
	{"IX0017", "電機機械類指數"},
	{"IX0018", "電器電纜類指數"},
	{"IX0019", "化學生技醫療類指數"},
	{"IX0020", "化學類指數"},
	{"IX0021", "生技醫療類指數"},
	{"IX0022", "玻璃陶瓷類指數"},
	{"IX0023", "造紙類指數"},
	{"IX0024", "鋼鐵類指數"},
	{"IX0025", "橡膠類指數"},
	{"IX0026", "汽車類指數"},
	{"IX0027", "電子工業類指數"},
	{"IX0028", "半導體類指數"},
	{"IX0029", "電腦及週邊設備類指數"},
	{"IX0030", "光電類指數"},
	{"IX0031", "通信網路類指數"},
	{"IX0032", "電子零組件類指數"},
	{"IX0033", "電子通路類指數"},
	{"IX0034", "資訊服務類指數"},
	{"IX0035", "其他電子類指數"},
	{"IX0036", "建材營造類指數"},
	{"IX0037", "航運類指數"},
	{"IX0038", "觀光類指數"},
	{"IX0039", "金融保險類指數"},
	{"IX0040", "貿易百貨類指數"},
	{"IX0041", "油電燃氣類指數"},
	{"IX0185", "綠能環保類指數"},
	{"IX0186", "數位雲端類指數"},
	{"IX0187", "運動休閒類指數"},
	{"IX0188", "居家生活類指數"},
	{"IX0042", "其他類指數"},
}

// twseSectorIndices 上市類股指數定義，BFIAMU 回應依此順序排列
var twseSectorIndices = []struct{ symbol, name string }{
	{"IX0010", "水泥類指數"},
	{"IX0011", "食品類指數"},
	{"IX0012", "塑膠類指數"},
	{"IX0016", "紡織纖維類指數"},
	{"IX0017", "電機機械類指數"},
	{"IX0018", "電器電纜類指數"},
	{"IX0019", "化學生技醫療類指數"},
	{"IX0020", "化學類指數"},
	{"IX0021", "生技醫療類指數"},
	{"IX0022", "玻璃陶瓷類指數"},
	{"IX0023", "造紙類指數"},
	{"IX0024", "鋼鐵類指數"},
	{"IX0025", "橡膠類指數"},
	{"IX0026", "汽車類指數"},
	{"IX0027", "電子工業類指數"},
	{"IX0028", "半導體類指數"},
	{"IX0029", "電腦及週邊設備類指數"},
	{"IX0030", "光電類指數"},
	{"IX0031", "通信網路類指數"},
	{"IX0032", "電子零組件類指數"},
	{"IX0033", "電子通路類指數"},
	{"IX0034", "資訊服務類指數"},
	{"IX0035", "其他電子類指數"},
	{"IX0036", "建材營造類指數"},
	{"IX0037", "航運類指數"},
	{"IX0038", "觀光類指數"},
	{"IX0039", "金融保險類指數"},
	{"IX0040", "貿易百貨類指數"},
	{"IX0041", "油電燃氣類指數"},
	{"IX0042", "其他類指數"},
	{"IX0185", "綠能環保類指數"},
	{"IX0186", "數位雲端類指數"},
	{"IX0187", "運動休閒類指數"},
	{"IX0188", "居家生活類指數"},
}

// FetchMarketTrades 取得大盤成交量值與收盤指數。
// FMTQIK 回傳整月資料，從中挑出目標日期；找不到代表尚無資料或非交易日。
func (c *TwseClient) FetchMarketTrades(ctx context.Context, date string) (*MarketTrades, error) {
	url := c.buildURL("/rwd/zh/afterTrading/FMTQIK?date={date}&response=json", map[string]interface{}{
		"date": isoToCompact(date),
	})

	var resp twseResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if resp.Stat != "OK" {
		return nil, nil
	}

	for _, row := range resp.Data {
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

// FetchIndicesQuotes 取得上市指數收盤行情。
// MI_5MINS_INDEX 回傳各指數盤中五分鐘數列，每欄對應一檔指數；
// 第一列為前日收盤基準，其餘列推出開高低收並據以計算漲跌。
func (c *TwseClient) FetchIndicesQuotes(ctx context.Context, date string) ([]IndexQuote, error) {
	url := c.buildURL("/rwd/zh/TAIEX/MI_5MINS_INDEX?date={date}&response=json", map[string]interface{}{
		"date": isoToCompact(date),
	})

	var resp twseResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if resp.Stat != "OK" || len(resp.Data) < 2 {
		return nil, nil
	}

	type ohlc struct {
		prev, open, high, low, close *float64
	}
	series := make([]ohlc, len(twseIndices))

	for rowIdx, row := range resp.Data {
		for i := 1; i < len(row) && i-1 < len(series); i++ {
			price := parseNumber(row[i])
			if price == nil {
				continue
			}
			s := &series[i-1]
			if rowIdx == 0 {
				s.prev = price
				continue
			}
			if s.open == nil {
				s.open = price
			}
			if s.high == nil || *price > *s.high {
				s.high = price
			}
			if s.low == nil || *price < *s.low {
				s.low = price
			}
			s.close = price
		}
	}

	quotes := make([]IndexQuote, 0, len(series))
	for i, s := range series {
		if s.close == nil {
			continue
		}
		var change, changePercent *float64
		if s.prev != nil && *s.prev > 0 {
			ch := *s.close - *s.prev
			pct := ch / *s.prev * 100
			change, changePercent = &ch, &pct
		}
		quotes = append(quotes, IndexQuote{
			Date:          date,
			Symbol:        twseIndices[i].symbol,
			Name:          twseIndices[i].name,
			OpenPrice:     s.open,
			HighPrice:     s.high,
			LowPrice:      s.low,
			ClosePrice:    s.close,
			Change:        change,
			ChangePercent: changePercent,
		})
	}
	if len(quotes) == 0 {
		return nil, nil
	}
	return quotes, nil
}

// FetchIndicesTrades 取得上市類股成交量值，成交比重以大盤成交金額換算
func (c *TwseClient) FetchIndicesTrades(ctx context.Context, date string) ([]SectorTrades, error) {
	url := c.buildURL("/rwd/zh/afterTrading/BFIAMU?date={date}&response=json", map[string]interface{}{
		"date": isoToCompact(date),
	})

	var resp twseResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if resp.Stat != "OK" || len(resp.Data) == 0 {
		return nil, nil
	}

	market, err := c.FetchMarketTrades(ctx, date)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, nil
	}

	trades := make([]SectorTrades, 0, len(resp.Data))
	for i, row := range resp.Data {
		if i >= len(twseSectorIndices) || len(row) < 3 {
			break
		}
		tradeValue := parseNumber(row[2])
		var tradeWeight *float64
		if tradeValue != nil && market.TradeValue != nil && *market.TradeValue > 0 {
			w := *tradeValue / *market.TradeValue * 100
			tradeWeight = &w
		}
		trades = append(trades, SectorTrades{
			Date:        date,
			Symbol:      twseSectorIndices[i].symbol,
			Name:        twseSectorIndices[i].name,
			TradeVolume: parseNumber(row[1]),
			TradeValue:  tradeValue,
			TradeWeight: tradeWeight,
		})
	}
	return trades, nil
}

// FetchEquitiesQuotes 取得上市個股收盤行情（MI_INDEX 第 9 張表）。
// 欄位順序：證券代號、證券名稱、成交股數、成交筆數、成交金額、
// 開盤價、最高價、最低價、收盤價、漲跌(+/-)、漲跌價差。
func (c *TwseClient) FetchEquitiesQuotes(ctx context.Context, date string) ([]EquityQuote, error) {
	url := c.buildURL("/rwd/zh/afterTrading/MI_INDEX?date={date}&type=ALLBUT0999&response=json", map[string]interface{}{
		"date": isoToCompact(date),
	})

	var resp twseResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if resp.Stat != "OK" || len(resp.Tables) < 9 {
		return nil, nil
	}

	rows := resp.Tables[8].Data
	quotes := make([]EquityQuote, 0, len(rows))
	for _, row := range rows {
		if len(row) < 11 {
			continue
		}

		closePrice := parseNumber(row[8])
		change := parseNumber(row[10])
		// 跌的漲跌價差以綠色標記呈現，數值本身為正，需轉為負值
		if change != nil && row[9] == `<p style="color:green">` {
			neg := -*change
			change = &neg
		}

		var changePercent *float64
		if closePrice != nil && change != nil && *closePrice != *change {
			p := *change / (*closePrice - *change) * 100
			changePercent = &p
		}

		quotes = append(quotes, EquityQuote{
			Date:          date,
			Symbol:        row[0],
			Name:          row[1],
			TradeVolume:   parseNumber(row[2]),
			Transaction:   parseNumber(row[3]),
			TradeValue:    parseNumber(row[4]),
			OpenPrice:     parseNumber(row[5]),
			HighPrice:     parseNumber(row[6]),
			LowPrice:      parseNumber(row[7]),
			ClosePrice:    closePrice,
			Change:        change,
			ChangePercent: changePercent,
		})
	}
	if len(quotes) == 0 {
		return nil, nil
	}
	return quotes, nil
}

// FetchEquitiesInstInvestorsTrades 取得上市個股三大法人買賣超（T86）
func (c *TwseClient) FetchEquitiesInstInvestorsTrades(ctx context.Context, date string) ([]EquityInstTrade, error) {
	url := c.buildURL("/rwd/zh/fund/T86?date={date}&selectType=ALLBUT0999&response=json", map[string]interface{}{
		"date": isoToCompact(date),
	})

	var resp twseResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if resp.Stat != "OK" || len(resp.Data) == 0 {
		return nil, nil
	}

	trades := make([]EquityInstTrade, 0, len(resp.Data))
	for _, row := range resp.Data {
		if len(row) < 14 {
			continue
		}
		// 外資買賣超 = 外陸資(不含自營商) + 外資自營商
		fini := sumNumbers(parseNumber(row[6]), parseNumber(row[9]))
		trades = append(trades, EquityInstTrade{
			Date:              date,
			Symbol:            row[0],
			FiniNetBuySell:    fini,
			SitcNetBuySell:    parseNumber(row[12]),
			DealersNetBuySell: parseNumber(row[13]),
		})
	}
	return trades, nil
}

// FetchInstInvestorsTrades 取得集中市場三大法人買賣超總計（BFI82U）
func (c *TwseClient) FetchInstInvestorsTrades(ctx context.Context, date string) (*InstInvestorsNet, error) {
	url := c.buildURL("/rwd/zh/fund/BFI82U?dayDate={date}&type=day&response=json", map[string]interface{}{
		"date": isoToCompact(date),
	})

	var resp twseResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if resp.Stat != "OK" || len(resp.Data) == 0 {
		return nil, nil
	}

	// 每列為 [單位名稱, 買進金額, 賣出金額, 買賣差額]，攤平後依固定位置取值
	var values []*float64
	for _, row := range resp.Data {
		if len(row) < 2 {
			continue
		}
		for _, cell := range row[1:] {
			values = append(values, parseNumber(cell))
		}
	}
	if len(values) < 15 {
		return nil, nil
	}

	return &InstInvestorsNet{
		Date:              date,
		FiniNetBuySell:    sumNumbers(values[11], values[14]),
		SitcNetBuySell:    values[8],
		DealersNetBuySell: sumNumbers(values[2], values[5]),
	}, nil
}

// FetchMarginTransactions 取得集中市場信用交易統計（MI_MARGN）
func (c *TwseClient) FetchMarginTransactions(ctx context.Context, date string) (*MarginTransactions, error) {
	url := c.buildURL("/rwd/zh/marginTrading/MI_MARGN?date={date}&selectType=MS&response=json", map[string]interface{}{
		"date": isoToCompact(date),
	})

	var resp twseResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if resp.Stat != "OK" || len(resp.Tables) == 0 || len(resp.Tables[0].Data) == 0 {
		return nil, nil
	}

	var values []*float64
	for _, row := range resp.Tables[0].Data {
		if len(row) < 2 {
			continue
		}
		for _, cell := range row[1:] {
			values = append(values, parseNumber(cell))
		}
	}
	if len(values) < 15 {
		return nil, nil
	}

	return &MarginTransactions{
		Date:                     date,
		MarginBalance:            values[4],
		MarginBalanceChange:      diffNumbers(values[4], values[3]),
		MarginBalanceValue:       values[14],
		MarginBalanceValueChange: diffNumbers(values[14], values[13]),
		ShortBalance:             values[9],
		ShortBalanceChange:       diffNumbers(values[9], values[8]),
	}, nil
}

// sumNumbers 相加，任一為 nil 時回傳另一個
func sumNumbers(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	v := *a + *b
	return &v
}

// diffNumbers 相減，任一為 nil 時回傳 nil
func diffNumbers(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a - *b
	return &v
}
