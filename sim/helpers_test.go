package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"paper-engine-go/market"
	"paper-engine-go/order"
)

var t0 = time.Date(2026, 5, 4, 13, 30, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func newEngine(t *testing.T, mutate func(*Config), opts ...Option) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	return e
}

func push(e *Engine, symbol string, last float64, ts time.Time) market.Quote {
	return e.PushQuote(market.PushQuote{Symbol: symbol, Last: market.Float(last), Time: ts})
}

func marketOrder(symbol string, side order.Side, qty float64) order.Input {
	return order.Input{Symbol: symbol, Side: side, Qty: qty, Type: order.TypeMarket, TIF: order.TIFDay}
}

// fixedCapacity 让测试精确控制可成交数量。
type fixedCapacity struct{ qty float64 }

func (f *fixedCapacity) Available(*order.Order, float64) (float64, string) {
	return f.qty, "cash"
}

type spyRecorder struct {
	statuses []order.Status
	fills    []order.Fill
	quotes   int
	accounts int
}

func (s *spyRecorder) OrderStatus(o order.Order) { s.statuses = append(s.statuses, o.Status) }
func (s *spyRecorder) FillBooked(f order.Fill)   { s.fills = append(s.fills, f) }
func (s *spyRecorder) QuoteUpdated(market.Quote) { s.quotes++ }
func (s *spyRecorder) AccountMarked(Account)     { s.accounts++ }
