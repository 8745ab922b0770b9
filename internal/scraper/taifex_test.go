package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTaifexTestClient(t *testing.T, routes map[string]string) *TaifexClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return NewTaifexClient(server.URL, 5*time.Second)
}

func TestTaifexFetchInstInvestorsTxfTrades(t *testing.T) {
	csv := "日期,商品名稱,身份別,多方交易口數,多方契約金額,空方交易口數,空方契約金額,多空交易口數淨額,多空契約金額淨額,多方未平倉口數,多方未平倉契約金額,空方未平倉口數,空方未平倉契約金額,多空未平倉口數淨額\r\n" +
		"2024/10/02,臺股期貨,自營商,1000,100,900,90,100,10,5000,500,4000,400,1000\r\n" +
		"2024/10/02,臺股期貨,投信,200,20,300,30,-100,-10,2000,200,3000,300,-1000\r\n" +
		"2024/10/02,臺股期貨,外資,30000,3000,28000,2800,2000,200,80000,8000,65000,6500,15000\r\n"

	client := newTaifexTestClient(t, map[string]string{
		"/cgi-bin/r/marketdata/FutContractsDateDown": csv,
	})

	result, err := client.FetchInstInvestorsTxfTrades(context.Background(), "2024-10-02")
	if err != nil {
		t.Fatalf("FetchInstInvestorsTxfTrades: %v", err)
	}
	if result == nil {
		t.Fatal("expected data")
	}
	if *result.FiniTxfNetOi != 15000 {
		t.Errorf("fini txf net oi: got %v, want 15000", *result.FiniTxfNetOi)
	}
}

func TestTaifexFetchInstInvestorsTxfTradesNoFiniRow(t *testing.T) {
	csv := "日期,商品名稱,身份別,多方交易口數,多方契約金額,空方交易口數,空方契約金額,多空交易口數淨額,多空契約金額淨額,多方未平倉口數,多方未平倉契約金額,空方未平倉口數,空方未平倉契約金額,多空未平倉口數淨額\r\n" +
		"2024/10/02,臺股期貨,自營商,1000,100,900,90,100,10,5000,500,4000,400,1000\r\n"

	client := newTaifexTestClient(t, map[string]string{
		"/cgi-bin/r/marketdata/FutContractsDateDown": csv,
	})

	result, err := client.FetchInstInvestorsTxfTrades(context.Background(), "2024-10-02")
	if err != nil {
		t.Fatalf("FetchInstInvestorsTxfTrades: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result without 外資 row, got %+v", result)
	}
}

func TestTaifexFetchInstInvestorsTxoTrades(t *testing.T) {
	csv := "日期,商品名稱,買賣權別,身份別,買方交易口數,買方交易金額,賣方交易口數,賣方交易金額,交易口數差額,交易金額差額,買方未平倉口數,買方未平倉金額,賣方未平倉口數,賣方未平倉金額,未平倉口數差額,未平倉金額差額\r\n" +
		"2024/10/02,臺指選擇權,買權,自營商,10000,300,9000,280,1000,20,40000,900,38000,850,2000,50\r\n" +
		"2024/10/02,臺指選擇權,買權,外資,25000,800,24000,760,1000,40,90000,2200,85000,2050,5000,150\r\n" +
		"2024/10/02,臺指選擇權,賣權,外資,20000,700,21000,730,-1000,-30,70000,1800,75000,1900,-5000,-100\r\n"

	client := newTaifexTestClient(t, map[string]string{
		"/cgi-bin/r/marketdata/CallsAndPutsDateDown": csv,
	})

	result, err := client.FetchInstInvestorsTxoTrades(context.Background(), "2024-10-02")
	if err != nil {
		t.Fatalf("FetchInstInvestorsTxoTrades: %v", err)
	}
	if result == nil {
		t.Fatal("expected data")
	}
	if *result.FiniTxoCallsNetOiValue != 150 {
		t.Errorf("calls net oi value: got %v, want 150", *result.FiniTxoCallsNetOiValue)
	}
	if *result.FiniTxoPutsNetOiValue != -100 {
		t.Errorf("puts net oi value: got %v, want -100", *result.FiniTxoPutsNetOiValue)
	}
}

func TestTaifexFetchLargeTradersTxfPosition(t *testing.T) {
	// 第 3 欄 999999 為全部月份合計，其餘為個別月份
	csv := "日期,契約名稱,到期月份別,前五大買方,前五大買方比率,前十大買方,前十大買方比率,前十大特定買方,比率,前十大特定賣方,比率,全市場未沖銷\r\n" +
		"2024/10/02,臺股期貨(TX+MTX/4),202410,10000,10,20000,20,18000,18,12000,12,100000\r\n" +
		"2024/10/02,臺股期貨(TX+MTX/4),999999,11000,11,22000,22,21000,21,13000,13,110000\r\n"

	client := newTaifexTestClient(t, map[string]string{
		"/cgi-bin/r/marketdata/LargeTradersFutDown": csv,
	})

	result, err := client.FetchLargeTradersTxfPosition(context.Background(), "2024-10-02")
	if err != nil {
		t.Fatalf("FetchLargeTradersTxfPosition: %v", err)
	}
	if result == nil {
		t.Fatal("expected data")
	}
	// 近月 = 18000 - 12000
	if *result.TopTenSpecificFrontMonthTxfNetOi != 6000 {
		t.Errorf("front month: got %v, want 6000", *result.TopTenSpecificFrontMonthTxfNetOi)
	}
	// 遠月 = 全月份合計 (21000-13000) - 近月 6000
	if *result.TopTenSpecificBackMonthsTxfNetOi != 2000 {
		t.Errorf("back months: got %v, want 2000", *result.TopTenSpecificBackMonthsTxfNetOi)
	}
}

func TestTaifexFetchRetailMxfPosition(t *testing.T) {
	inst := "日期,商品名稱,身份別,多方交易口數,多方契約金額,空方交易口數,空方契約金額,多空交易口數淨額,多空契約金額淨額,多方未平倉口數,多方未平倉契約金額,空方未平倉口數,空方未平倉契約金額,多空未平倉口數淨額\r\n" +
		"2024/10/02,小型臺指期貨,自營商,100,10,90,9,10,1,8000,800,6000,600,2000\r\n" +
		"2024/10/02,小型臺指期貨,投信,10,1,20,2,-10,-1,1000,100,2000,200,-1000\r\n" +
		"2024/10/02,小型臺指期貨,外資,500,50,400,40,100,10,21000,2100,20000,2000,1000\r\n"

	market := "交易日期,契約,到期月份(週別),開盤價,最高價,最低價,收盤價,漲跌價,漲跌%,成交量,結算價,未沖銷契約數\r\n" +
		"2024/10/02,MXF,202410,22500,22600,22450,22580,80,0.36,50000,22580,40000\r\n" +
		"2024/10/02,MXF,202411,22520,22620,22470,22600,80,0.36,5000,22600,10000\r\n"

	client := newTaifexTestClient(t, map[string]string{
		"/cgi-bin/r/marketdata/FutContractsDateDown": inst,
		"/cgi-bin/r/marketdata/FutDataDown":          market,
	})

	result, err := client.FetchRetailMxfPosition(context.Background(), "2024-10-02")
	if err != nil {
		t.Fatalf("FetchRetailMxfPosition: %v", err)
	}
	if result == nil {
		t.Fatal("expected data")
	}
	// 全市場未平倉 50000；法人多方 30000、空方 28000 →
	// 散戶多單 20000、空單 22000 → 淨額 -2000
	if *result.RetailMxfNetOi != -2000 {
		t.Errorf("retail net oi: got %v, want -2000", *result.RetailMxfNetOi)
	}
	if *result.RetailMxfLongShortRatio != -4 {
		t.Errorf("ratio: got %v, want -4", *result.RetailMxfLongShortRatio)
	}
}

func TestTaifexFetchRetailMxfPositionNoMarketData(t *testing.T) {
	inst := "日期,商品名稱,身份別,多方交易口數,多方契約金額,空方交易口數,空方契約金額,多空交易口數淨額,多空契約金額淨額,多方未平倉口數,多方未平倉契約金額,空方未平倉口數,空方未平倉契約金額,多空未平倉口數淨額\r\n" +
		"2024/10/02,小型臺指期貨,外資,500,50,400,40,100,10,21000,2100,20000,2000,1000\r\n"

	client := newTaifexTestClient(t, map[string]string{
		"/cgi-bin/r/marketdata/FutContractsDateDown": inst,
		"/cgi-bin/r/marketdata/FutDataDown":          "交易日期,契約,到期月份(週別)\r\n",
	})

	result, err := client.FetchRetailMxfPosition(context.Background(), "2024-10-02")
	if err != nil {
		t.Fatalf("FetchRetailMxfPosition: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result without market rows, got %+v", result)
	}
}

func TestTaifexFetchTxoPutCallRatio(t *testing.T) {
	csv := "日期,賣權成交量,買權成交量,買賣權成交量比率%,賣權未平倉量,買權未平倉量,買賣權未平倉量比率%\r\n" +
		"2024/10/01,300000,400000,75.00,2000000,2100000,95.24\r\n" +
		"2024/10/02,350000,420000,83.33,2050000,2080000,98.56\r\n"

	client := newTaifexTestClient(t, map[string]string{
		"/cgi-bin/r/marketdata/PcRatioDown": csv,
	})

	result, err := client.FetchTxoPutCallRatio(context.Background(), "2024-10-02")
	if err != nil {
		t.Fatalf("FetchTxoPutCallRatio: %v", err)
	}
	if result == nil {
		t.Fatal("expected data")
	}
	if *result.TxoPutCallRatio != 98.56 {
		t.Errorf("put call ratio: got %v, want 98.56", *result.TxoPutCallRatio)
	}
}

func TestTaifexFetchTxoPutCallRatioDateMissing(t *testing.T) {
	csv := "日期,賣權成交量,買權成交量,買賣權成交量比率%,賣權未平倉量,買權未平倉量,買賣權未平倉量比率%\r\n" +
		"2024/10/01,300000,400000,75.00,2000000,2100000,95.24\r\n"

	client := newTaifexTestClient(t, map[string]string{
		"/cgi-bin/r/marketdata/PcRatioDown": csv,
	})

	result, err := client.FetchTxoPutCallRatio(context.Background(), "2024-10-02")
	if err != nil {
		t.Fatalf("FetchTxoPutCallRatio: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result for absent date, got %+v", result)
	}
}

func TestTaifexFetchExchangeRatesMatchesRocDate(t *testing.T) {
	// 開放資料日期為民國格式
	csv := "日期,美元／新台幣,人民幣／新台幣\r\n" +
		"113/10/01,31.985,4.545\r\n" +
		"113/10/02,32.015,4.550\r\n"

	client := newTaifexTestClient(t, map[string]string{
		"/data_gov/taifex_open_data.asp": csv,
	})

	result, err := client.FetchExchangeRates(context.Background(), "2024-10-02")
	if err != nil {
		t.Fatalf("FetchExchangeRates: %v", err)
	}
	if result == nil {
		t.Fatal("expected data")
	}
	if *result.UsdTwd != 32.015 {
		t.Errorf("usdtwd: got %v, want 32.015", *result.UsdTwd)
	}
}
