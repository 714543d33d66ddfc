package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"paper-engine-go/order"
)

func TestPositionSameSideAverages(t *testing.T) {
	var p Position
	p.apply(order.SideBuy, 1, 100)
	assert.Equal(t, 1.0, p.Qty)
	assert.Equal(t, 100.0, p.AvgPrice)
	p.apply(order.SideBuy, 1, 110)
	assert.Equal(t, 2.0, p.Qty)
	assert.InDelta(t, 105.0, p.AvgPrice, 1e-9)
}

func TestPositionReduceKeepsAverage(t *testing.T) {
	p := Position{Qty: 100, AvgPrice: 100}
	realized := p.apply(order.SideSell, 50, 106)
	assert.InDelta(t, 300.0, realized, 1e-9)
	assert.Equal(t, 50.0, p.Qty)
	assert.Equal(t, 100.0, p.AvgPrice)
	assert.InDelta(t, 300.0, p.RealizedPnL, 1e-9)
}

func TestPositionFlipResetsAverage(t *testing.T) {
	p := Position{Qty: 10, AvgPrice: 100}
	realized := p.apply(order.SideSell, 15, 90)
	assert.InDelta(t, -100.0, realized, 1e-9)
	assert.Equal(t, -5.0, p.Qty)
	assert.Equal(t, 90.0, p.AvgPrice)

	realized = p.apply(order.SideBuy, 8, 80)
	assert.InDelta(t, 50.0, realized, 1e-9)
	assert.Equal(t, 3.0, p.Qty)
	assert.Equal(t, 80.0, p.AvgPrice)
}

func TestPositionCloseToFlat(t *testing.T) {
	p := Position{Qty: -0.3, AvgPrice: 50}
	p.apply(order.SideBuy, 0.1, 40)
	p.apply(order.SideBuy, 0.2, 40)
	assert.Equal(t, 0.0, p.Qty)
	assert.Equal(t, 0.0, p.AvgPrice)
	assert.Equal(t, "flat", p.Side())
	assert.InDelta(t, 3.0, p.RealizedPnL, 1e-9)
}

func TestPositionMark(t *testing.T) {
	long := Position{Qty: 10, AvgPrice: 100}
	long.mark(105, t0)
	assert.Equal(t, 1050.0, long.MarketValue)
	assert.InDelta(t, 50.0, long.UnrealizedPnL, 1e-9)

	short := Position{Qty: -10, AvgPrice: 100}
	short.mark(105, t0)
	assert.Equal(t, -1050.0, short.MarketValue)
	assert.InDelta(t, -50.0, short.UnrealizedPnL, 1e-9)

	short.mark(0, t0)
	assert.Equal(t, 105.0, short.MarketPrice, "non-positive marks are ignored")
}
