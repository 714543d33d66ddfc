package sim

import (
	"math"

	"paper-engine-go/inventory"
	"paper-engine-go/order"
	"paper-engine-go/precision"
)

// Capacity 估算订单在给定成交价下最多可执行的数量。
// 返回值中的 constraint 用于拒单原因（cash/position/margin）。
type Capacity interface {
	Available(o *order.Order, price float64) (qty float64, constraint string)
}

const (
	// buyBuffer 给买入可用数量留一点余量，吸收价格舍入带来的误差。
	buyBuffer = 1.0001
	// marginMultiple 允许做空时的名义上限倍数（相对 equity）。
	marginMultiple = 2.0
)

// cashCapacity 是不看盘口深度的简化模型：
// 买入受现金约束；卖出在禁止做空时受多头持仓约束，否则受 2 倍 equity 的保证金上限约束。
//
// 买入数量按 cash / (px × (1+fee) × 1.0001) 计算。单位成本计入手续费，
// 比 cash / (px × 1.0001) 略保守，保证有手续费时现金不会成为负数。
type cashCapacity struct {
	ledger     *inventory.Ledger
	lotSize    float64
	feeBps     float64
	allowShort bool
}

func newCashCapacity(l *inventory.Ledger, cfg Config) *cashCapacity {
	return &cashCapacity{
		ledger:     l,
		lotSize:    cfg.LotSize,
		feeBps:     cfg.CommissionBps,
		allowShort: cfg.AllowShort,
	}
}

func (c *cashCapacity) Available(o *order.Order, price float64) (float64, string) {
	if price <= 0 {
		return 0, "price"
	}
	pos, _ := c.ledger.Position(o.Symbol)
	if o.Side == order.SideBuy {
		cash := c.ledger.Cash()
		if cash <= 0 {
			return 0, "cash"
		}
		perUnit := (price + precision.Bps(price, c.feeBps)) * buyBuffer
		return c.floorLot(cash / perUnit), "cash"
	}

	long := math.Max(0, pos.Qty)
	if !c.allowShort {
		return long, "position"
	}
	shortNotional := math.Max(0, -pos.Qty) * price
	room := math.Max(0, marginMultiple*c.ledger.Equity()-shortNotional)
	return long + c.floorLot(room/price), "margin"
}

func (c *cashCapacity) floorLot(qty float64) float64 {
	if qty <= 0 {
		return 0
	}
	if c.lotSize <= 0 {
		return qty
	}
	return precision.FloorToStep(qty, c.lotSize)
}
