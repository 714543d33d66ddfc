package order

import (
	"errors"
	"math"
	"time"
)

// Side 买卖方向。
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Sign 买为 +1，卖为 -1。
func (s Side) Sign() float64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// Opposite 返回反方向。
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Type 订单类型。
type Type string

const (
	TypeMarket    Type = "market"
	TypeLimit     Type = "limit"
	TypeStop      Type = "stop"
	TypeStopLimit Type = "stop_limit"
)

// HasLimit 是否需要限价。
func (t Type) HasLimit() bool { return t == TypeLimit || t == TypeStopLimit }

// HasStop 是否需要触发价。
func (t Type) HasStop() bool { return t == TypeStop || t == TypeStopLimit }

// TimeInForce 有效期策略。
type TimeInForce string

const (
	TIFDay TimeInForce = "day"
	TIFGTC TimeInForce = "gtc"
	TIFIOC TimeInForce = "ioc"
	TIFFOK TimeInForce = "fok"
)

// Status represents order lifecycle.
type Status string

const (
	StatusNew             Status = "new"
	StatusAccepted        Status = "accepted"
	StatusPartiallyFilled Status = "partially_filled"
	StatusFilled          Status = "filled"
	StatusCanceled        Status = "canceled"
	StatusRejected        Status = "rejected"
	StatusExpired         Status = "expired"
)

var (
	ErrUnknownOrder = errors.New("unknown order")
	ErrTerminal     = errors.New("order is in a terminal state")
)

// Input 为下单请求。
type Input struct {
	ClientID   string      `json:"clientId,omitempty" yaml:"clientId"`
	Tag        string      `json:"tag,omitempty" yaml:"tag"`
	Symbol     string      `json:"symbol" yaml:"symbol"`
	Side       Side        `json:"side" yaml:"side"`
	Qty        float64     `json:"qty" yaml:"qty"`
	Type       Type        `json:"type,omitempty" yaml:"type"`
	TIF        TimeInForce `json:"tif,omitempty" yaml:"tif"`
	LimitPrice float64     `json:"limitPrice,omitempty" yaml:"limitPrice"`
	StopPrice  float64     `json:"stopPrice,omitempty" yaml:"stopPrice"`
}

// Order 记录一笔订单完整的生命周期。
type Order struct {
	ID       string `json:"id"`
	ClientID string `json:"clientId,omitempty"`
	Tag      string `json:"tag,omitempty"`

	Symbol       string      `json:"symbol"`
	Side         Side        `json:"side"`
	Qty          float64     `json:"qty"`
	RequestedQty float64     `json:"requestedQty"`
	Type         Type        `json:"type"`
	TIF          TimeInForce `json:"tif"`
	LimitPrice   float64     `json:"limitPrice,omitempty"`
	StopPrice    float64     `json:"stopPrice,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`

	Status       Status    `json:"status"`
	FilledQty    float64   `json:"filledQty"`
	LeavesQty    float64   `json:"leavesQty"`
	AvgFillPrice float64   `json:"avgFillPrice"`
	RealizedPnL  float64   `json:"realizedPnl"`
	Triggered    bool      `json:"triggered,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Reason       string    `json:"reason,omitempty"`
}

// Live 订单仍可能产生成交。
func (o *Order) Live() bool { return !IsFinal(o.Status) }

// QtyEpsilon 以下的剩余数量视为已全部成交。
const QtyEpsilon = 1e-9

// RecomputeLeaves 维护 leaves = max(0, qty - filled)；NaN/Inf 记为 0。
func (o *Order) RecomputeLeaves() {
	o.LeavesQty = o.Qty - o.FilledQty
	if !(o.LeavesQty > 0) || math.IsInf(o.LeavesQty, 0) {
		o.LeavesQty = 0
	}
}

// AddFill 记录一次成交：累计数量、更新成交均价与 leaves。
// 累加后与 Qty 的差小于 QtyEpsilon 时 FilledQty 对齐为 Qty（只会向上对齐）。
func (o *Order) AddFill(qty, price float64, ts time.Time) {
	if qty <= 0 {
		return
	}
	notional := o.AvgFillPrice*o.FilledQty + price*qty
	o.FilledQty += qty
	o.AvgFillPrice = notional / o.FilledQty
	if d := o.Qty - o.FilledQty; d > 0 && d < QtyEpsilon {
		o.FilledQty = o.Qty
	}
	o.RecomputeLeaves()
	o.UpdatedAt = ts
}

// Fill 为一次不可变的成交记录。
type Fill struct {
	OrderID  string    `json:"orderId"`
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Qty      float64   `json:"qty"`
	Price    float64   `json:"price"`
	Notional float64   `json:"notional"`
	Fee      float64   `json:"fee"`
	Time     time.Time `json:"ts"`
}
