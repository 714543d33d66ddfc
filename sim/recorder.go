package sim

import (
	"paper-engine-go/market"
	"paper-engine-go/order"
)

// Recorder 接收引擎事件，用于指标采集；所有回调同步执行。
type Recorder interface {
	OrderStatus(o order.Order)
	FillBooked(f order.Fill)
	QuoteUpdated(q market.Quote)
	AccountMarked(a Account)
}

type nopRecorder struct{}

func (nopRecorder) OrderStatus(order.Order)   {}
func (nopRecorder) FillBooked(order.Fill)     {}
func (nopRecorder) QuoteUpdated(market.Quote) {}
func (nopRecorder) AccountMarked(Account)     {}
