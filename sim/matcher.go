package sim

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"paper-engine-go/market"
	"paper-engine-go/order"
	"paper-engine-go/precision"
)

// matchPass 对 orders 执行一轮撮合。报价在本轮开始时按 symbol 取一次快照，
// 本轮内的成交不会反过来影响其它订单看到的报价。
func (e *Engine) matchPass(orders []*order.Order, now time.Time) {
	if len(orders) == 0 {
		return
	}
	snapshot := make(map[string]market.Quote, len(orders))
	for _, o := range orders {
		if _, ok := snapshot[o.Symbol]; !ok {
			snapshot[o.Symbol] = e.quotes.Quote(o.Symbol, now)
		}
	}
	for _, o := range orders {
		if !o.Live() {
			continue
		}
		e.matchOne(o, snapshot[o.Symbol], now)
	}
}

// matchOne 单个订单的撮合决策：触发 -> 可成交 -> 成交价 -> 容量 -> TIF -> 记账。
//
// IOC 部分成交后剩余部分在同一轮撤销：最终状态为 canceled（经过 partially_filled），
// LeavesQty 保留未成交数量，Reason 为 "ioc remainder canceled"。
// 调用方应以 FilledQty > 0 判断 IOC 是否有成交，而不是以 partially_filled 状态判断。
func (e *Engine) matchOne(o *order.Order, q market.Quote, now time.Time) {
	if o.Type.HasStop() && !o.Triggered {
		if !stopTriggered(o, q.Last) {
			return
		}
		o.Triggered = true
		o.UpdatedAt = now
		e.log.Debug("stop triggered",
			zap.String("order_id", o.ID),
			zap.Float64("stop", o.StopPrice),
			zap.Float64("last", q.Last))
	}

	if !marketable(o, q) {
		if o.TIF == order.TIFIOC {
			e.finish(o, order.StatusCanceled, "ioc not marketable", now)
		}
		return
	}

	px := e.fillPrice(o, q)
	if px <= 0 {
		return
	}

	avail, constraint := e.capacity.Available(o, px)
	qty := math.Min(o.LeavesQty, avail)
	if qty <= 0 {
		reason := fmt.Sprintf("insufficient %s: %v requested, 0 executable at %v", constraint, o.LeavesQty, px)
		if o.FilledQty == 0 {
			e.finish(o, order.StatusRejected, reason, now)
			return
		}
		o.Reason = reason
		o.UpdatedAt = now
		return
	}

	// FOK 只在本轮可全部成交时才成交；否则本轮什么都不做，下轮重新评估。
	if o.TIF == order.TIFFOK && qty < o.LeavesQty {
		return
	}

	fill := e.ledger.ApplyFill(o, qty, px, now)
	o.AddFill(qty, px, now)
	e.rec.FillBooked(fill)
	e.log.Debug("order fill",
		zap.String("order_id", o.ID),
		zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)),
		zap.Float64("qty", qty),
		zap.Float64("price", px),
		zap.Float64("fee", fill.Fee))

	switch {
	case o.LeavesQty <= 0:
		e.transition(o, order.StatusFilled, now)
	case o.TIF == order.TIFIOC:
		e.transition(o, order.StatusPartiallyFilled, now)
		e.finish(o, order.StatusCanceled, "ioc remainder canceled", now)
	default:
		// 走到这里说明本轮受容量限制，剩余部分留待下一轮
		o.Reason = fmt.Sprintf("insufficient %s: %v of %v executable", constraint, o.FilledQty, o.Qty)
		e.transition(o, order.StatusPartiallyFilled, now)
	}
}

func stopTriggered(o *order.Order, last float64) bool {
	if last <= 0 {
		return false
	}
	if o.Side == order.SideBuy {
		return last >= o.StopPrice
	}
	return last <= o.StopPrice
}

// marketable 市价/止损单总是可成交；限价类要求对手价穿过限价。
func marketable(o *order.Order, q market.Quote) bool {
	if !o.Type.HasLimit() {
		return true
	}
	if o.Side == order.SideBuy {
		return q.Ask > 0 && q.Ask <= o.LimitPrice
	}
	return q.Bid > 0 && q.Bid >= o.LimitPrice
}

// fillPrice 计算含滑点的成交价并统一舍入。
// 限价类取限价与(对手价±滑点)中对订单更优者，再向有利方向取整，保证不越过限价；
// 市价类以中间价为基准，按方向加不利滑点。
func (e *Engine) fillPrice(o *order.Order, q market.Quote) float64 {
	slip := e.cfg.SlippageBps * precision.BasisPoint
	places := e.cfg.PricePrecision
	buy := o.Side == order.SideBuy

	if o.Type.HasLimit() {
		if buy {
			return precision.Floor(math.Min(o.LimitPrice, q.Ask*(1+slip)), places)
		}
		return precision.Ceil(math.Max(o.LimitPrice, q.Bid*(1-slip)), places)
	}

	mid := q.Mid()
	if buy {
		return precision.Round(mid*(1+slip), places)
	}
	return precision.Round(mid*(1-slip), places)
}
