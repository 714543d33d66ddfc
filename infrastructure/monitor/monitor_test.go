package monitor

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-engine-go/market"
	"paper-engine-go/order"
	"paper-engine-go/sim"
)

func TestRecorderCallbacks(t *testing.T) {
	m := New(DefaultConfig())

	m.OrderStatus(order.Order{Status: order.StatusAccepted})
	m.OrderStatus(order.Order{Status: order.StatusFilled})
	m.OrderStatus(order.Order{Status: order.StatusFilled})
	m.FillBooked(order.Fill{Symbol: "AAPL", Side: order.SideBuy, Notional: 1000, Fee: 0.5})
	m.FillBooked(order.Fill{Symbol: "AAPL", Side: order.SideSell, Notional: 500, Fee: 0.25})
	m.QuoteUpdated(market.Quote{Symbol: "AAPL", Last: 101.5})
	m.AccountMarked(sim.Account{Equity: 100100, Cash: 99000, DayPnL: 100, RealizedPnL: 40, UnrealizedPnL: 60})
	m.RecordTick()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.orderStatus.WithLabelValues("filled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orderStatus.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fills.WithLabelValues("AAPL", "sell")))
	assert.Equal(t, 1500.0, testutil.ToFloat64(m.tradedNotional))
	assert.Equal(t, 0.75, testutil.ToFloat64(m.fees))
	assert.Equal(t, 101.5, testutil.ToFloat64(m.lastPrice.WithLabelValues("AAPL")))
	assert.Equal(t, 100100.0, testutil.ToFloat64(m.equity))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.dayPnL))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks))
}

func TestMonitorWiredIntoEngine(t *testing.T) {
	m := New(DefaultConfig())
	e, err := sim.New(sim.DefaultConfig(), sim.WithRecorder(m))
	require.NoError(t, err)

	ts := time.Date(2026, 5, 4, 13, 30, 0, 0, time.UTC)
	e.PushQuote(market.PushQuote{Symbol: "AAPL", Last: market.Float(100), Time: ts})
	e.PlaceOrder(order.Input{Symbol: "AAPL", Side: order.SideBuy, Qty: 10}, ts.Add(time.Second))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fills.WithLabelValues("AAPL", "buy")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.tradedNotional))
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New(DefaultConfig())
	m.RecordFeedConnect()
	m.RecordPublishError()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "paper_engine_feed_connects_total 1")
	assert.Contains(t, string(body), "paper_engine_publish_errors_total 1")
}
