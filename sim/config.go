package sim

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"paper-engine-go/market"
	"paper-engine-go/precision"
)

// Config 在构造时确定，之后不可修改。
type Config struct {
	Currency       string
	StartingCash   float64
	CommissionBps  float64 // 手续费（名义金额的基点）
	SlippageBps    float64 // 不利方向滑点（基点）
	LotSize        float64 // 最小交易单位；<=0 表示不对齐
	PricePrecision int     // 价格保留小数位
	AllowShort     bool
	CandleCap      int // 每个 symbol 保留的分钟 K 线数量
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		Currency:       "USD",
		StartingCash:   100_000,
		LotSize:        1,
		PricePrecision: 4,
		CandleCap:      market.DefaultCandleCap,
	}
}

// Validate 校验配置合法性。
func (c Config) Validate() error {
	if c.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	for name, v := range map[string]float64{
		"startingCash":  c.StartingCash,
		"commissionBps": c.CommissionBps,
		"slippageBps":   c.SlippageBps,
		"lotSize":       c.LotSize,
	} {
		if !precision.Finite(v) {
			return fmt.Errorf("%s must be finite, got %v", name, v)
		}
	}
	if c.StartingCash < 0 {
		return fmt.Errorf("startingCash must be >= 0, got %v", c.StartingCash)
	}
	if c.CommissionBps < 0 {
		return fmt.Errorf("commissionBps must be >= 0, got %v", c.CommissionBps)
	}
	if c.SlippageBps < 0 {
		return fmt.Errorf("slippageBps must be >= 0, got %v", c.SlippageBps)
	}
	if c.LotSize < 0 {
		return fmt.Errorf("lotSize must be >= 0, got %v", c.LotSize)
	}
	if c.PricePrecision < 0 || c.PricePrecision > 12 {
		return fmt.Errorf("pricePrecision must be within [0,12], got %d", c.PricePrecision)
	}
	if c.CandleCap < 0 {
		return fmt.Errorf("candleCap must be >= 0, got %d", c.CandleCap)
	}
	return nil
}

// Option 定制引擎的外部协作者。
type Option func(*Engine)

// WithLogger 注入 zap logger；默认 zap.NewNop()。
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithRecorder 注入指标记录器。
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.rec = r
		}
	}
}

// WithClock 注入时钟；未显式传入时间的调用使用它。
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.clock = now
		}
	}
}

// WithCapacity 替换可成交数量模型。
func WithCapacity(c Capacity) Option {
	return func(e *Engine) {
		if c != nil {
			e.capacity = c
		}
	}
}
