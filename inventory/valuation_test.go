package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-engine-go/order"
)

var t0 = time.Date(2026, 4, 1, 13, 30, 0, 0, time.UTC)

func newOrder(id, symbol string, side order.Side) *order.Order {
	return &order.Order{ID: id, Symbol: symbol, Side: side}
}

func TestApplyFillBuyDebitsCash(t *testing.T) {
	l := NewLedger(100000, 10)
	o := newOrder("o1", "AAPL", order.SideBuy)
	before := l.Cash()

	f := l.ApplyFill(o, 100, 100, t0)
	assert.Equal(t, 10000.0, f.Notional)
	assert.InDelta(t, 10.0, f.Fee, 1e-9)
	assert.Equal(t, before-(f.Notional+f.Fee), l.Cash())

	p, ok := l.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, 100.0, p.Qty)
	assert.Equal(t, 100.0, p.AvgPrice)
	assert.Equal(t, 10000.0, p.MarketValue)
	assert.Equal(t, 1, l.FillCount())
}

func TestApplyFillSellRealizesPnL(t *testing.T) {
	l := NewLedger(100000, 0)
	l.ApplyFill(newOrder("o1", "AAPL", order.SideBuy), 100, 100, t0)

	sell := newOrder("o2", "AAPL", order.SideSell)
	before := l.Cash()
	f := l.ApplyFill(sell, 50, 106, t0.Add(time.Minute))
	assert.Equal(t, before+f.Notional-f.Fee, l.Cash())
	assert.InDelta(t, 300.0, sell.RealizedPnL, 1e-9)

	p, _ := l.Position("AAPL")
	assert.Equal(t, 50.0, p.Qty)
	assert.Equal(t, 100.0, p.AvgPrice)
	assert.InDelta(t, 300.0, p.RealizedPnL, 1e-9)
	assert.InDelta(t, 300.0, l.RealizedPnL(), 1e-9)
}

func TestApplyFillShortCover(t *testing.T) {
	l := NewLedger(10000, 0)
	l.ApplyFill(newOrder("o1", "TSLA", order.SideSell), 10, 200, t0)
	p, _ := l.Position("TSLA")
	assert.Equal(t, -10.0, p.Qty)
	assert.Equal(t, 12000.0, l.Cash())

	cover := newOrder("o2", "TSLA", order.SideBuy)
	l.ApplyFill(cover, 10, 180, t0)
	assert.InDelta(t, 200.0, cover.RealizedPnL, 1e-9)
	p, _ = l.Position("TSLA")
	assert.Equal(t, 0.0, p.Qty)
	assert.Equal(t, 10200.0, l.Cash())
	require.Len(t, l.Positions(), 1, "flat positions are kept")
}

func TestMarkToMarketIdempotent(t *testing.T) {
	l := NewLedger(100000, 5)
	l.ApplyFill(newOrder("o1", "AAPL", order.SideBuy), 10, 100, t0)
	l.ApplyFill(newOrder("o2", "MSFT", order.SideSell), 5, 300, t0)
	prices := map[string]float64{"AAPL": 110, "MSFT": 290}
	cash := l.Cash()
	realized := l.RealizedPnL()

	l.MarkToMarket(func(s string) float64 { return prices[s] }, t0)
	first := l.Positions()
	l.MarkToMarket(func(s string) float64 { return prices[s] }, t0)
	assert.Equal(t, first, l.Positions())
	assert.Equal(t, cash, l.Cash())
	assert.Equal(t, realized, l.RealizedPnL())

	for _, p := range first {
		assert.Equal(t, p.Qty*p.MarketPrice, p.MarketValue)
	}
	assert.InDelta(t, 100.0+50.0, l.UnrealizedPnL(), 1e-9)
	assert.InDelta(t, cash+1100-1450, l.Equity(), 1e-9)
}

func TestFillsAreCopies(t *testing.T) {
	l := NewLedger(1000, 0)
	l.ApplyFill(newOrder("o1", "AAPL", order.SideBuy), 1, 100, t0)
	fills := l.Fills()
	fills[0].Price = 1
	assert.Equal(t, 100.0, l.Fills()[0].Price)
	assert.Equal(t, []string{"AAPL"}, l.Symbols())
}
