package inventory

import (
	"math"
	"time"

	"paper-engine-go/order"
)

// qtyEpsilon 以下的残量视为 0，避免浮点累加留下 1e-17 之类的尾巴。
const qtyEpsilon = 1e-9

// Position 单个 symbol 的持仓：Qty 为带符号净仓位（>0 多头，<0 空头），
// AvgPrice 为当前持有方向的开仓均价。
type Position struct {
	Symbol        string    `json:"symbol"`
	Qty           float64   `json:"qty"`
	AvgPrice      float64   `json:"avgPrice"`
	RealizedPnL   float64   `json:"realizedPnl"`
	UnrealizedPnL float64   `json:"unrealizedPnl"`
	MarketPrice   float64   `json:"marketPrice"`
	MarketValue   float64   `json:"marketValue"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Side 返回 long/short/flat。
func (p Position) Side() string {
	switch {
	case p.Qty > 0:
		return "long"
	case p.Qty < 0:
		return "short"
	default:
		return "flat"
	}
}

// apply 根据成交数量调整仓位，返回本次实现的盈亏。
// 同向加仓取加权平均成本；减仓不改均价；穿越 0 时均价重置为成交价。
func (p *Position) apply(side order.Side, qty, price float64) float64 {
	delta := side.Sign() * qty
	old := p.Qty

	if old == 0 || (old > 0) == (delta > 0) {
		total := p.AvgPrice*math.Abs(old) + price*qty
		p.Qty = old + delta
		p.AvgPrice = total / math.Abs(p.Qty)
		return 0
	}

	covered := math.Min(qty, math.Abs(old))
	var realized float64
	if old > 0 {
		realized = (price - p.AvgPrice) * covered
	} else {
		realized = (p.AvgPrice - price) * covered
	}
	p.RealizedPnL += realized

	p.Qty = old + delta
	switch {
	case math.Abs(p.Qty) < qtyEpsilon:
		p.Qty = 0
		p.AvgPrice = 0
	case (p.Qty > 0) != (old > 0):
		p.AvgPrice = price
	}
	return realized
}

// mark 用给定价格重估市值与未实现盈亏。
func (p *Position) mark(price float64, ts time.Time) {
	if price <= 0 {
		return
	}
	p.MarketPrice = price
	p.MarketValue = p.Qty * price
	if p.Qty == 0 {
		p.UnrealizedPnL = 0
	} else if p.Qty > 0 {
		p.UnrealizedPnL = (price - p.AvgPrice) * p.Qty
	} else {
		p.UnrealizedPnL = (p.AvgPrice - price) * math.Abs(p.Qty)
	}
	p.UpdatedAt = ts
}
