package market

import "time"

// DefaultCandleCap 每个 symbol 默认保留一天的分钟 K 线。
const DefaultCandleCap = 1440

// Candle 为一个 UTC 分钟桶的 OHLCV。
type Candle struct {
	Symbol string    `json:"symbol"`
	Start  time.Time `json:"start"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Ticks  int       `json:"ticks"`
}

// CandleSeries 按分钟聚合 tick；超出上限时淘汰最旧的 K 线。
type CandleSeries struct {
	symbol  string
	cap     int
	candles []Candle
}

func NewCandleSeries(symbol string, capacity int) *CandleSeries {
	if capacity <= 0 {
		capacity = DefaultCandleCap
	}
	return &CandleSeries{symbol: symbol, cap: capacity}
}

// OnTick 将一笔价格计入对应分钟桶。
// 同一桶内更新 high/low/close/volume；新桶开启新的 K 线。
// 早于当前桶的乱序 tick 计入最后一根，不会重新打开旧桶。
func (s *CandleSeries) OnTick(price, volume float64, ts time.Time) {
	bucket := ts.UTC().Truncate(time.Minute)
	if n := len(s.candles); n > 0 && !bucket.After(s.candles[n-1].Start) {
		c := &s.candles[n-1]
		if price > c.High {
			c.High = price
		}
		if price < c.Low {
			c.Low = price
		}
		c.Close = price
		c.Volume += volume
		c.Ticks++
		return
	}
	s.candles = append(s.candles, Candle{
		Symbol: s.symbol,
		Start:  bucket,
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: volume,
		Ticks:  1,
	})
	if over := len(s.candles) - s.cap; over > 0 {
		s.candles = append(s.candles[:0:0], s.candles[over:]...)
	}
}

// Len 返回当前保留的 K 线数量。
func (s *CandleSeries) Len() int { return len(s.candles) }

// Range 返回 [start, end] 内的 K 线拷贝；零值时间表示不限制。
func (s *CandleSeries) Range(start, end time.Time) []Candle {
	out := make([]Candle, 0, len(s.candles))
	for _, c := range s.candles {
		if !start.IsZero() && c.Start.Before(start) {
			continue
		}
		if !end.IsZero() && c.Start.After(end) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Resample 把分钟 K 线合并为 interval 周期（interval 必须是分钟的整数倍）。
func Resample(candles []Candle, interval time.Duration) []Candle {
	if interval <= time.Minute {
		return candles
	}
	var out []Candle
	for _, c := range candles {
		bucket := c.Start.Truncate(interval)
		if n := len(out); n > 0 && out[n-1].Start.Equal(bucket) {
			agg := &out[n-1]
			if c.High > agg.High {
				agg.High = c.High
			}
			if c.Low < agg.Low {
				agg.Low = c.Low
			}
			agg.Close = c.Close
			agg.Volume += c.Volume
			agg.Ticks += c.Ticks
			continue
		}
		c.Start = bucket
		out = append(out, c)
	}
	return out
}
