package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// TaifexClient 臺灣期貨交易所資料抓取，下載端點均回傳 CSV
type TaifexClient struct {
	*httpClient
}

// NewTaifexClient 建立期交所 client
func NewTaifexClient(baseURL string, timeout time.Duration) *TaifexClient {
	return &TaifexClient{httpClient: newHTTPClient(baseURL, timeout)}
}

// FetchInstInvestorsTxfTrades 取得外資臺股期貨未平倉淨口數。
// 區分各期貨契約的三大法人資料，每日三列依序為自營商、投信、外資，
// 第 14 欄為多空未平倉口數淨額。
func (c *TaifexClient) FetchInstInvestorsTxfTrades(ctx context.Context, date string) (*TxfNetOi, error) {
	url := c.buildURL("/cgi-bin/r/marketdata/FutContractsDateDown?queryStartDate={date}&queryEndDate={date}&commodityId=TXF", map[string]interface{}{
		"date": isoToSlash(date),
	})

	rows, err := c.getCSV(ctx, url)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if len(row) < 14 {
			continue
		}
		if !strings.Contains(row[2], "外資") {
			continue
		}
		return &TxfNetOi{
			Date:         date,
			FiniTxfNetOi: parseNumber(row[13]),
		}, nil
	}
	return nil, nil
}

// FetchInstInvestorsTxoTrades 取得外資臺指選擇權未平倉淨金額。
// 買賣權分計的三大法人資料，依買權/賣權各三列，
// 第 16 欄為未平倉買賣差額契約金額（千元）。
func (c *TaifexClient) FetchInstInvestorsTxoTrades(ctx context.Context, date string) (*TxoNetOiValue, error) {
	url := c.buildURL("/cgi-bin/r/marketdata/CallsAndPutsDateDown?queryStartDate={date}&queryEndDate={date}&commodityId=TXO", map[string]interface{}{
		"date": isoToSlash(date),
	})

	rows, err := c.getCSV(ctx, url)
	if err != nil {
		return nil, err
	}

	result := &TxoNetOiValue{Date: date}
	for _, row := range rows {
		if len(row) < 16 {
			continue
		}
		if !strings.Contains(row[3], "外資") {
			continue
		}
		switch {
		case strings.Contains(row[2], "買權") || strings.Contains(row[2], "CALL"):
			result.FiniTxoCallsNetOiValue = parseNumber(row[15])
		case strings.Contains(row[2], "賣權") || strings.Contains(row[2], "PUT"):
			result.FiniTxoPutsNetOiValue = parseNumber(row[15])
		}
	}
	if result.FiniTxoCallsNetOiValue == nil && result.FiniTxoPutsNetOiValue == nil {
		return nil, nil
	}
	return result, nil
}

// FetchLargeTradersTxfPosition 取得十大特定法人臺股期貨淨部位。
// 大額交易人未沖銷部位結構：第 2 欄契約、第 3 欄到期月份別
// （999999 為全部月份合計），第 8、10 欄為前十大特定法人買方/賣方部位。
func (c *TaifexClient) FetchLargeTradersTxfPosition(ctx context.Context, date string) (*LargeTradersTxf, error) {
	url := c.buildURL("/cgi-bin/r/marketdata/LargeTradersFutDown?queryStartDate={date}&queryEndDate={date}", map[string]interface{}{
		"date": isoToSlash(date),
	})

	rows, err := c.getCSV(ctx, url)
	if err != nil {
		return nil, err
	}

	var frontMonth, allMonths *float64
	for _, row := range rows {
		if len(row) < 11 || !strings.Contains(row[1], "臺股期貨") {
			continue
		}
		net := diffNumbers(parseNumber(row[7]), parseNumber(row[9]))
		if net == nil {
			continue
		}
		if strings.TrimSpace(row[2]) == "999999" {
			allMonths = net
		} else if frontMonth == nil {
			frontMonth = net
		}
	}
	if frontMonth == nil && allMonths == nil {
		return nil, nil
	}
	return &LargeTradersTxf{
		Date:                             date,
		TopTenSpecificFrontMonthTxfNetOi: frontMonth,
		TopTenSpecificBackMonthsTxfNetOi: diffNumbers(allMonths, frontMonth),
	}, nil
}

// FetchRetailMxfPosition 取得散戶小型臺指淨部位。
// 散戶多空部位無直接統計，以市場未平倉扣除三大法人部位回推：
// 散戶多單 = 全市場未平倉 - 法人多方未平倉，空單同理。
func (c *TaifexClient) FetchRetailMxfPosition(ctx context.Context, date string) (*RetailMxf, error) {
	instURL := c.buildURL("/cgi-bin/r/marketdata/FutContractsDateDown?queryStartDate={date}&queryEndDate={date}&commodityId=MXF", map[string]interface{}{
		"date": isoToSlash(date),
	})
	instRows, err := c.getCSV(ctx, instURL)
	if err != nil {
		return nil, err
	}

	// 三大法人多方/空方未平倉口數合計（第 10、12 欄）
	var instLongOi, instShortOi float64
	var hasInst bool
	for _, row := range instRows {
		if len(row) < 14 {
			continue
		}
		long := parseNumber(row[9])
		short := parseNumber(row[11])
		if long == nil || short == nil {
			continue
		}
		hasInst = true
		instLongOi += *long
		instShortOi += *short
	}
	if !hasInst {
		return nil, nil
	}

	marketURL := c.buildURL("/cgi-bin/r/marketdata/FutDataDown?queryStartDate={date}&queryEndDate={date}&commodity_id=MXF&down_type=1&MarketCode=0", map[string]interface{}{
		"date": isoToSlash(date),
	})
	marketRows, err := c.getCSV(ctx, marketURL)
	if err != nil {
		return nil, err
	}

	// 各到期月份未平倉合約量（第 12 欄）加總為全市場未平倉
	var marketOi float64
	var hasMarket bool
	for _, row := range marketRows {
		if len(row) < 12 || !strings.Contains(row[1], "MXF") {
			continue
		}
		if oi := parseNumber(row[11]); oi != nil {
			hasMarket = true
			marketOi += *oi
		}
	}
	if !hasMarket || marketOi <= 0 {
		return nil, nil
	}

	retailLongOi := marketOi - instLongOi
	retailShortOi := marketOi - instShortOi
	netOi := retailLongOi - retailShortOi
	ratio := netOi / marketOi * 100
	return &RetailMxf{
		Date:                    date,
		RetailMxfNetOi:          &netOi,
		RetailMxfLongShortRatio: &ratio,
	}, nil
}

// FetchTxoPutCallRatio 取得臺指選擇權 Put/Call Ratio，第 7 欄為未平倉量比率(%)
func (c *TaifexClient) FetchTxoPutCallRatio(ctx context.Context, date string) (*PutCallRatio, error) {
	url := c.buildURL("/cgi-bin/r/marketdata/PcRatioDown?queryStartDate={date}&queryEndDate={date}", map[string]interface{}{
		"date": isoToSlash(date),
	})

	rows, err := c.getCSV(ctx, url)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if len(row) < 7 || rocOrIsoDate(row[0]) != date {
			continue
		}
		return &PutCallRatio{
			Date:            date,
			TxoPutCallRatio: parseNumber(row[6]),
		}, nil
	}
	return nil, nil
}

// FetchExchangeRates 取得美元兌新臺幣匯率，開放資料每日匯率第 2 欄為美元／新台幣
func (c *TaifexClient) FetchExchangeRates(ctx context.Context, date string) (*FxRate, error) {
	url := c.buildURL("/data_gov/taifex_open_data.asp?data_name=DailyForeignExchangeRates", nil)

	rows, err := c.getCSV(ctx, url)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if len(row) < 2 || rocOrIsoDate(row[0]) != date {
			continue
		}
		return &FxRate{
			Date:   date,
			UsdTwd: parseNumber(row[1]),
		}, nil
	}
	return nil, nil
}

// rocOrIsoDate 期交所日期欄位有 2024/10/01 與 113/10/01 兩種格式，一律轉為 ISO
func rocOrIsoDate(s string) string {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return s
	}
	if len(parts[0]) == 4 {
		return fmt.Sprintf("%s-%02d-%02d", parts[0], cast.ToInt(parts[1]), cast.ToInt(parts[2]))
	}
	return rocToISO(s)
}
