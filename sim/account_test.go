package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-engine-go/order"
)

func TestAccountFreshEngine(t *testing.T) {
	e := newEngine(t, nil)
	a := e.Account(at(0))
	assert.Equal(t, "USD", a.Currency)
	assert.Equal(t, 100000.0, a.Cash)
	assert.Equal(t, 100000.0, a.Equity)
	assert.Equal(t, 200000.0, a.BuyingPower)
	assert.Equal(t, 0.0, a.DayPnL)
	assert.Equal(t, 0.0, a.TotalPnL)
	assert.Equal(t, 0, a.Positions)
	assert.Equal(t, at(0), a.AsOf)
}

func TestAccountBuyingPower(t *testing.T) {
	long := newEngine(t, nil)
	push(long, "AAPL", 100, at(0))
	long.PlaceOrder(marketOrder("AAPL", order.SideBuy, 100), at(1))
	a := long.Account(at(2))
	assert.Equal(t, 90000.0, a.Cash)
	assert.Equal(t, 180000.0, a.BuyingPower, "2x cash without shorting")

	short := newEngine(t, func(c *Config) { c.AllowShort = true })
	push(short, "AAPL", 100, at(0))
	short.PlaceOrder(marketOrder("AAPL", order.SideBuy, 100), at(1))
	push(short, "AAPL", 110, at(2))
	b := short.Account(at(3))
	assert.InDelta(t, 101000.0, b.Equity, 1e-6)
	assert.InDelta(t, 202000.0, b.BuyingPower, 1e-6, "2x equity with shorting")
}

func TestAccountPnLBreakdown(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.CommissionBps = 10 })
	push(e, "AAPL", 100, at(0))
	e.PlaceOrder(marketOrder("AAPL", order.SideBuy, 100), at(1))
	push(e, "AAPL", 120, at(2))
	e.PlaceOrder(marketOrder("AAPL", order.SideSell, 40), at(3))
	push(e, "AAPL", 130, at(4))

	a := e.Account(at(5))
	// 买入手续费 10，卖出手续费 4.8
	assert.InDelta(t, 14.8, a.Fees, 1e-9)
	assert.InDelta(t, 800.0, a.RealizedPnL, 1e-9)
	assert.InDelta(t, 1800.0, a.UnrealizedPnL, 1e-9)
	assert.InDelta(t, a.Equity-a.StartingCash, a.TotalPnL, 1e-9)
	assert.InDelta(t, a.RealizedPnL+a.UnrealizedPnL-a.Fees, a.TotalPnL, 1e-6)
	assert.Equal(t, 1, a.Positions)
}

func TestRolloverExpiresDayOrdersOnly(t *testing.T) {
	e := newEngine(t, nil)
	push(e, "AAPL", 100, at(0))
	day := e.PlaceOrder(order.Input{
		Symbol: "AAPL", Side: order.SideBuy, Qty: 1,
		Type: order.TypeLimit, TIF: order.TIFDay, LimitPrice: 80,
	}, at(1))
	gtc := e.PlaceOrder(order.Input{
		Symbol: "AAPL", Side: order.SideBuy, Qty: 1,
		Type: order.TypeLimit, TIF: order.TIFGTC, LimitPrice: 80,
	}, at(1))

	e.Rollover(at(60))

	got, err := e.GetOrder(day.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusExpired, got.Status)
	assert.Equal(t, 1.0, got.LeavesQty)
	assert.NotEmpty(t, got.Reason)

	got, err = e.GetOrder(gtc.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusAccepted, got.Status)
}

func TestDayPnLResetsAtRollover(t *testing.T) {
	e := newEngine(t, nil)
	push(e, "AAPL", 100, at(0))
	e.PlaceOrder(marketOrder("AAPL", order.SideBuy, 100), at(1))
	push(e, "AAPL", 110, at(2))

	a := e.Account(at(3))
	assert.InDelta(t, 1000.0, a.DayPnL, 1e-9)
	assert.InDelta(t, 1000.0, a.TotalPnL, 1e-9)

	r := e.Rollover(at(4))
	assert.InDelta(t, 0.0, r.DayPnL, 1e-9)
	assert.InDelta(t, 101000.0, r.DayStartEquity, 1e-9)

	push(e, "AAPL", 105, at(5))
	a = e.Account(at(6))
	assert.InDelta(t, -500.0, a.DayPnL, 1e-9)
	assert.InDelta(t, 500.0, a.TotalPnL, 1e-9)
}
