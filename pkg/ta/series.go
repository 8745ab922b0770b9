// Package ta 技術指標計算。
//
// 所有函式都以「最新在前」的序列操作：index 0 為最近一個交易日，
// index 1 為前一日，以此類推。資料不足時回傳 nil 而非錯誤。
package ta

import "math"

// SMA 計算簡單移動平均線：取最近 period 筆收盤價的平均。
func SMA(prices []float64, period int) *float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	var sum float64
	for _, p := range prices[:period] {
		sum += p
	}
	v := sum / float64(period)
	return &v
}

// EMA 計算指數移動平均線。
//
// 每次呼叫都從可用視窗內最舊的 period 筆資料算出種子 SMA，
// 再逐日往前套用 close*k + prev*(1-k)，k = 2/(period+1)。
// 與教科書上跨日累積的 EMA 不同，這是刻意保留的簡化版本：
// 指標引擎每日重算，不保存前一日的 EMA 狀態。
func EMA(prices []float64, period int) *float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}

	// 以視窗內最舊的 period 筆資料作為種子
	seed := SMA(prices[len(prices)-period:], period)
	if seed == nil {
		return nil
	}

	k := 2.0 / float64(period+1)
	ema := *seed
	for i := len(prices) - period - 1; i >= 0; i-- {
		ema = prices[i]*k + ema*(1-k)
	}
	return &ema
}

// RSI 計算相對強弱指標：以最近 period 個單日漲跌計算平均漲幅與平均跌幅。
// 跌幅總和為零時回傳 100。
func RSI(prices []float64, period int) *float64 {
	if period <= 0 || len(prices) < period+1 {
		return nil
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		change := prices[i-1] - prices[i]
		if change > 0 {
			gainSum += change
		} else {
			lossSum += math.Abs(change)
		}
	}

	if lossSum == 0 {
		v := 100.0
		return &v
	}

	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	rs := avgGain / avgLoss
	v := 100 - 100/(1+rs)
	return &v
}

// MACDResult MACD 三元組
type MACDResult struct {
	MACD      *float64
	Signal    *float64
	Histogram *float64
}

// MACD 計算 MACD：EMA(fast) - EMA(slow)。
//
// signal 與 histogram 為簡化版：signal ≈ macd、histogram ≈ 0，
// 與既有儲存資料保持行為一致。如需完整訊號線應另外維護
// MACD 序列的 9 日 EMA。
func MACD(prices []float64, fastPeriod, slowPeriod int) MACDResult {
	if len(prices) < slowPeriod {
		return MACDResult{}
	}

	fastEMA := EMA(prices, fastPeriod)
	slowEMA := EMA(prices, slowPeriod)
	if fastEMA == nil || slowEMA == nil {
		return MACDResult{}
	}

	macd := *fastEMA - *slowEMA
	signal := macd
	histogram := macd - signal
	return MACDResult{MACD: &macd, Signal: &signal, Histogram: &histogram}
}

// KD 計算隨機指標 K/D 值。
// K = (close - 最低價) / (最高價 - 最低價) * 100；
// 高低價區間為零時 K = D = 50。D 為簡化版，直接取 K。
func KD(highs, lows, closes []float64, period int) (k, d *float64) {
	if len(highs) < period || len(lows) < period || len(closes) < period {
		return nil, nil
	}

	highestHigh := Highest(highs, period)
	lowestLow := Lowest(lows, period)
	currentClose := closes[0]

	if highestHigh == lowestLow {
		v := 50.0
		return &v, &v
	}

	kv := (currentClose - lowestLow) / (highestHigh - lowestLow) * 100
	dv := kv
	return &kv, &dv
}

// WilliamsR 計算威廉指標 %R，範圍 -100（超賣）到 0（超買）。
// 高低價區間為零時回傳 -50。
func WilliamsR(highs, lows, closes []float64, period int) *float64 {
	if len(highs) < period || len(lows) < period || len(closes) < period {
		return nil
	}

	highestHigh := Highest(highs, period)
	lowestLow := Lowest(lows, period)

	if highestHigh == lowestLow {
		v := -50.0
		return &v
	}

	v := (closes[0] - highestHigh) / (highestHigh - lowestLow) * 100
	return &v
}

// BollingerResult 布林通道
type BollingerResult struct {
	Upper  *float64
	Middle *float64
	Lower  *float64
	Width  *float64
}

// Bollinger 計算布林通道：中軌為 SMA(period)，上下軌為中軌 ± 2 倍標準差。
func Bollinger(prices []float64, period int) BollingerResult {
	middle := SMA(prices, period)
	if middle == nil {
		return BollingerResult{}
	}

	var variance float64
	for _, p := range prices[:period] {
		diff := p - *middle
		variance += diff * diff
	}
	stddev := math.Sqrt(variance / float64(period))

	upper := *middle + 2*stddev
	lower := *middle - 2*stddev
	width := upper - lower
	return BollingerResult{Upper: &upper, Middle: middle, Lower: &lower, Width: &width}
}

// Highest 取最近 period 筆資料中的最高值
func Highest(values []float64, period int) float64 {
	if period > len(values) {
		period = len(values)
	}
	maxVal := values[0]
	for _, v := range values[:period] {
		if v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}

// Lowest 取最近 period 筆資料中的最低值
func Lowest(values []float64, period int) float64 {
	if period > len(values) {
		period = len(values)
	}
	minVal := values[0]
	for _, v := range values[:period] {
		if v < minVal {
			minVal = v
		}
	}
	return minVal
}
