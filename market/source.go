package market

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"paper-engine-go/precision"
)

// ErrInvalidInterval 表示历史查询的周期不是分钟的整数倍。
var ErrInvalidInterval = errors.New("interval must be a positive multiple of one minute")

// Source 提供最新报价：外部推送优先，否则按 symbol+分钟桶确定性合成。
// 同时为每个 symbol 维护分钟 K 线。非并发安全，调用方负责串行化。
type Source struct {
	precision int
	candleCap int

	latest  map[string]Quote
	candles map[string]*CandleSeries
}

// NewSource 创建报价源；pricePrecision 为价格保留的小数位。
func NewSource(pricePrecision, candleCap int) *Source {
	if candleCap <= 0 {
		candleCap = DefaultCandleCap
	}
	return &Source{
		precision: pricePrecision,
		candleCap: candleCap,
		latest:    make(map[string]Quote),
		candles:   make(map[string]*CandleSeries),
	}
}

// Push 接收外部报价。缺省 last 取上一次 last（从未见过则取 BasePrice），
// 缺省 bid/ask 取 last ∓ 5bps，缺省 volume 为 0。
// 非正或非有限（NaN/Inf）的字段按缺省处理。
func (s *Source) Push(p PushQuote) Quote {
	sym := NormalizeSymbol(p.Symbol)
	last := s.lastOrBase(sym)
	if usable(p.Last) {
		last = *p.Last
	}
	q := Quote{Symbol: sym, Last: s.round(last), Time: p.Time.UTC()}
	q.Bid, q.Ask = s.spread(q.Last)
	if usable(p.Bid) {
		q.Bid = s.round(*p.Bid)
	}
	if usable(p.Ask) {
		q.Ask = s.round(*p.Ask)
	}
	if usable(p.Volume) {
		q.Volume = *p.Volume
	}
	s.store(q)
	return q
}

// Advance 让 symbol 的合成价格走一步并记录，供模拟时钟 tick 使用。
func (s *Source) Advance(symbol string, ts time.Time) Quote {
	sym := NormalizeSymbol(symbol)
	seed, bucket := SymbolSeed(sym), MinuteBucket(ts)
	last := s.round(s.lastOrBase(sym) * StepFactor(seed, bucket))
	q := Quote{Symbol: sym, Last: last, Volume: syntheticVolume(seed, bucket), Time: ts.UTC()}
	q.Bid, q.Ask = s.spread(last)
	s.store(q)
	return q
}

// Quote 返回最新报价；从未推送过的 symbol 按 asOf 所在分钟桶合成（不落表）。
func (s *Source) Quote(symbol string, asOf time.Time) Quote {
	sym := NormalizeSymbol(symbol)
	if q, ok := s.latest[sym]; ok {
		return q
	}
	return s.Synthesize(sym, asOf)
}

// Quotes 批量获取报价，顺序与入参一致。
func (s *Source) Quotes(symbols []string, asOf time.Time) []Quote {
	out := make([]Quote, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, s.Quote(sym, asOf))
	}
	return out
}

// Synthesize 按 symbol 与分钟桶生成确定性报价，不修改任何状态。
func (s *Source) Synthesize(symbol string, asOf time.Time) Quote {
	sym := NormalizeSymbol(symbol)
	seed, bucket := SymbolSeed(sym), MinuteBucket(asOf)
	last := s.round(BasePrice(sym) * StepFactor(seed, bucket))
	q := Quote{Symbol: sym, Last: last, Time: asOf.UTC()}
	q.Bid, q.Ask = s.spread(last)
	return q
}

// Has 判断 symbol 是否有过真实/推进的报价。
func (s *Source) Has(symbol string) bool {
	_, ok := s.latest[NormalizeSymbol(symbol)]
	return ok
}

// HistoricalQuery 描述 K 线查询条件。
type HistoricalQuery struct {
	Symbol   string
	Interval time.Duration // 0 表示 1 分钟
	Start    time.Time
	End      time.Time
	Limit    int // >0 时仅保留最近 Limit 根
}

// Historical 按时间范围过滤 K 线，按需重采样并截取最近 Limit 根。
func (s *Source) Historical(q HistoricalQuery) ([]Candle, error) {
	interval := q.Interval
	if interval == 0 {
		interval = time.Minute
	}
	if interval < time.Minute || interval%time.Minute != 0 {
		return nil, fmt.Errorf("historical %s: %w (got %s)", q.Symbol, ErrInvalidInterval, interval)
	}
	series, ok := s.candles[NormalizeSymbol(q.Symbol)]
	if !ok {
		return []Candle{}, nil
	}
	out := Resample(series.Range(q.Start, q.End), interval)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out, nil
}

// usable 推送字段存在、为正且有限时才覆盖推导值。
func usable(v *float64) bool {
	return v != nil && *v > 0 && precision.Finite(*v)
}

func (s *Source) store(q Quote) {
	s.latest[q.Symbol] = q
	series, ok := s.candles[q.Symbol]
	if !ok {
		series = NewCandleSeries(q.Symbol, s.candleCap)
		s.candles[q.Symbol] = series
	}
	series.OnTick(q.Last, q.Volume, q.Time)
}

func (s *Source) lastOrBase(sym string) float64 {
	if q, ok := s.latest[sym]; ok && q.Last > 0 {
		return q.Last
	}
	return BasePrice(sym)
}

func (s *Source) spread(last float64) (bid, ask float64) {
	off := precision.Bps(last, SpreadBps)
	return s.round(last - off), s.round(last + off)
}

func (s *Source) round(v float64) float64 {
	return precision.Round(v, s.precision)
}

// NormalizeSymbol 统一 symbol 格式（去空白、大写）。
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
