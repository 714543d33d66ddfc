package inventory

import (
	"sort"
	"time"

	"paper-engine-go/order"
	"paper-engine-go/precision"
)

// Ledger 维护现金、各 symbol 持仓与成交流水。
// ApplyFill 是现金与持仓的唯一修改入口。非并发安全，由引擎独占。
type Ledger struct {
	startingCash float64
	feeBps       float64

	cash      float64
	fees      float64
	positions map[string]*Position
	fills     []order.Fill
}

func NewLedger(startingCash, feeBps float64) *Ledger {
	return &Ledger{
		startingCash: startingCash,
		feeBps:       feeBps,
		cash:         startingCash,
		positions:    make(map[string]*Position),
	}
}

// Fee 返回 notional 对应的手续费。
func (l *Ledger) Fee(notional float64) float64 {
	return precision.Bps(notional, l.feeBps)
}

// ApplyFill 记账一次成交：更新现金、持仓均价与已实现盈亏，并追加成交记录。
// 平仓部分实现的盈亏同时累加到订单的 RealizedPnL。
func (l *Ledger) ApplyFill(o *order.Order, qty, price float64, ts time.Time) order.Fill {
	notional := price * qty
	fee := l.Fee(notional)

	p, ok := l.positions[o.Symbol]
	if !ok {
		p = &Position{Symbol: o.Symbol}
		l.positions[o.Symbol] = p
	}
	o.RealizedPnL += p.apply(o.Side, qty, price)
	p.mark(price, ts)

	if o.Side == order.SideBuy {
		l.cash -= notional + fee
	} else {
		l.cash += notional - fee
	}
	l.fees += fee

	f := order.Fill{
		OrderID:  o.ID,
		Symbol:   o.Symbol,
		Side:     o.Side,
		Qty:      qty,
		Price:    price,
		Notional: notional,
		Fee:      fee,
		Time:     ts,
	}
	l.fills = append(l.fills, f)
	return f
}

// MarkToMarket 用 priceOf 给每个持仓重估；不触碰现金与已实现盈亏，可重复调用。
func (l *Ledger) MarkToMarket(priceOf func(symbol string) float64, ts time.Time) {
	for _, p := range l.positions {
		p.mark(priceOf(p.Symbol), ts)
	}
}

// Symbols 返回曾经交易过的 symbol（排序后）。
func (l *Ledger) Symbols() []string {
	out := make([]string, 0, len(l.positions))
	for sym := range l.positions {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Position 返回持仓拷贝。
func (l *Ledger) Position(symbol string) (Position, bool) {
	p, ok := l.positions[symbol]
	if !ok {
		return Position{Symbol: symbol}, false
	}
	return *p, true
}

// Positions 返回全部持仓拷贝（含 0 仓位），按 symbol 排序。
func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, sym := range l.Symbols() {
		out = append(out, *l.positions[sym])
	}
	return out
}

// Fills 返回成交流水拷贝。
func (l *Ledger) Fills() []order.Fill {
	out := make([]order.Fill, len(l.fills))
	copy(out, l.fills)
	return out
}

func (l *Ledger) FillCount() int { return len(l.fills) }

func (l *Ledger) Cash() float64 { return l.cash }

func (l *Ledger) StartingCash() float64 { return l.startingCash }

// Fees 累计手续费。
func (l *Ledger) Fees() float64 { return l.fees }

// MarketValue 所有持仓市值之和（使用最近一次 mark），按 symbol 顺序累加保证结果可复现。
func (l *Ledger) MarketValue() float64 {
	var mv float64
	for _, sym := range l.Symbols() {
		mv += l.positions[sym].MarketValue
	}
	return mv
}

// Equity = cash + Σ market value。
func (l *Ledger) Equity() float64 {
	return l.cash + l.MarketValue()
}

func (l *Ledger) RealizedPnL() float64 {
	var v float64
	for _, sym := range l.Symbols() {
		v += l.positions[sym].RealizedPnL
	}
	return v
}

func (l *Ledger) UnrealizedPnL() float64 {
	var v float64
	for _, sym := range l.Symbols() {
		v += l.positions[sym].UnrealizedPnL
	}
	return v
}
