package ta

import (
	"math"
	"testing"
)

func assertClose(t *testing.T, label string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.0001 {
		t.Errorf("%s: got %.6f, want %.6f", label, got, want)
	}
}

func TestSMA(t *testing.T) {
	// 最新在前：(30+20+10)/3 = 20
	prices := []float64{30, 20, 10}
	got := SMA(prices, 3)
	if got == nil {
		t.Fatal("expected non-nil SMA")
	}
	assertClose(t, "SMA(3)", *got, 20)

	// 只取最近 period 筆
	got = SMA([]float64{10, 20, 30, 999}, 3)
	if got == nil {
		t.Fatal("expected non-nil SMA")
	}
	assertClose(t, "SMA(3) window", *got, 20)
}

func TestSMAInsufficientHistory(t *testing.T) {
	if got := SMA([]float64{10, 20}, 3); got != nil {
		t.Errorf("expected nil for short series, got %v", *got)
	}
	if got := SMA(nil, 5); got != nil {
		t.Errorf("expected nil for empty series, got %v", *got)
	}
	if got := SMA([]float64{10}, 0); got != nil {
		t.Errorf("expected nil for zero period, got %v", *got)
	}
}

func TestEMAEqualsSMAForConstantSeries(t *testing.T) {
	prices := []float64{50, 50, 50, 50, 50, 50}
	got := EMA(prices, 3)
	if got == nil {
		t.Fatal("expected non-nil EMA")
	}
	assertClose(t, "EMA constant", *got, 50)
}

func TestEMAWeightsRecentPrices(t *testing.T) {
	// 序列最新在前：10 為最新、1 為最舊。
	// 種子 SMA 取最舊 3 筆 (3+2+1)/3 = 2，之後逐日往前套用。
	prices := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	got := EMA(prices, 3)
	if got == nil {
		t.Fatal("expected non-nil EMA")
	}
	sma := SMA(prices, 3)
	if *got <= *sma-2 || *got > 10 {
		t.Errorf("EMA out of expected range: %.4f", *got)
	}
	// 上升趨勢（最新價最高）下 EMA 應落後最新價
	if *got >= prices[0] {
		t.Errorf("EMA should lag the latest price in an uptrend: %.4f", *got)
	}
}

func TestRSIAllGains(t *testing.T) {
	// 每日皆漲，跌幅為零 → RSI = 100
	prices := []float64{15, 14, 13, 12, 11, 10}
	got := RSI(prices, 5)
	if got == nil {
		t.Fatal("expected non-nil RSI")
	}
	assertClose(t, "RSI all gains", *got, 100)
}

func TestRSIBalanced(t *testing.T) {
	// 漲跌各半且幅度相同 → RS = 1 → RSI = 50
	prices := []float64{10, 11, 10, 11, 10}
	got := RSI(prices, 4)
	if got == nil {
		t.Fatal("expected non-nil RSI")
	}
	assertClose(t, "RSI balanced", *got, 50)
}

func TestRSIInsufficientHistory(t *testing.T) {
	// RSI 需要 period+1 筆資料
	if got := RSI([]float64{1, 2, 3}, 3); got != nil {
		t.Errorf("expected nil, got %v", *got)
	}
}

func TestMACDConstantSeries(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100
	}
	result := MACD(prices, 12, 26)
	if result.MACD == nil {
		t.Fatal("expected non-nil MACD")
	}
	assertClose(t, "MACD constant", *result.MACD, 0)
	assertClose(t, "Histogram", *result.Histogram, 0)
}

func TestMACDUptrend(t *testing.T) {
	// 上升趨勢（最新在前遞減代表過去較低）快線高於慢線 → MACD > 0
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 200 - float64(i)*2
	}
	result := MACD(prices, 12, 26)
	if result.MACD == nil {
		t.Fatal("expected non-nil MACD")
	}
	if *result.MACD <= 0 {
		t.Errorf("expected positive MACD in uptrend, got %.4f", *result.MACD)
	}
}

func TestMACDInsufficientHistory(t *testing.T) {
	result := MACD([]float64{1, 2, 3}, 12, 26)
	if result.MACD != nil || result.Signal != nil || result.Histogram != nil {
		t.Error("expected empty result for short series")
	}
}

func TestKD(t *testing.T) {
	highs := []float64{110, 108, 112, 105}
	lows := []float64{100, 98, 102, 95}
	closes := []float64{105, 103, 110, 100}

	// 視窗內最高 112、最低 95，K = (105-95)/(112-95)*100
	k, d := KD(highs, lows, closes, 4)
	if k == nil || d == nil {
		t.Fatal("expected non-nil K/D")
	}
	assertClose(t, "K", *k, (105.0-95.0)/(112.0-95.0)*100)
	assertClose(t, "D", *d, *k)
}

func TestKDZeroRange(t *testing.T) {
	flat := []float64{100, 100, 100}
	k, d := KD(flat, flat, flat, 3)
	if k == nil || d == nil {
		t.Fatal("expected non-nil K/D")
	}
	assertClose(t, "K zero range", *k, 50)
	assertClose(t, "D zero range", *d, 50)
}

func TestWilliamsR(t *testing.T) {
	highs := []float64{110, 108, 112}
	lows := []float64{100, 98, 102}
	closes := []float64{110, 103, 104}

	// 收在區間高點附近 → 接近 0（超買）
	got := WilliamsR(highs, lows, closes, 3)
	if got == nil {
		t.Fatal("expected non-nil %R")
	}
	assertClose(t, "WilliamsR", *got, (110.0-112.0)/(112.0-98.0)*100)
}

func TestWilliamsRZeroRange(t *testing.T) {
	flat := []float64{100, 100, 100}
	got := WilliamsR(flat, flat, flat, 3)
	if got == nil {
		t.Fatal("expected non-nil %R")
	}
	assertClose(t, "WilliamsR zero range", *got, -50)
}

func TestBollinger(t *testing.T) {
	prices := []float64{22, 20, 18}
	result := Bollinger(prices, 3)
	if result.Middle == nil {
		t.Fatal("expected non-nil bands")
	}
	assertClose(t, "Middle", *result.Middle, 20)

	// 標準差 sqrt(((22-20)^2+(20-20)^2+(18-20)^2)/3)
	stddev := math.Sqrt(8.0 / 3.0)
	assertClose(t, "Upper", *result.Upper, 20+2*stddev)
	assertClose(t, "Lower", *result.Lower, 20-2*stddev)
	assertClose(t, "Width", *result.Width, 4*stddev)
}

func TestBollingerInsufficientHistory(t *testing.T) {
	result := Bollinger([]float64{1, 2}, 20)
	if result.Middle != nil {
		t.Error("expected empty result for short series")
	}
}

func TestHighestLowest(t *testing.T) {
	values := []float64{5, 9, 3, 7, 100}

	if got := Highest(values, 4); got != 9 {
		t.Errorf("Highest(4): got %v, want 9", got)
	}
	if got := Lowest(values, 4); got != 3 {
		t.Errorf("Lowest(4): got %v, want 3", got)
	}
	// period 超過長度時退化為全序列
	if got := Highest(values, 10); got != 100 {
		t.Errorf("Highest(10): got %v, want 100", got)
	}
}
