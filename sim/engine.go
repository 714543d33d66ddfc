// Package sim 实现纸面交易撮合与记账引擎：
// 行情（推送或确定性合成）驱动订单撮合，成交记入现金/持仓账本。
//
// Engine 是单线程同步模型，内部不加锁；多协程访问时由调用方串行化
// （参见 internal/session）。所有读接口返回拷贝。
package sim

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"paper-engine-go/inventory"
	"paper-engine-go/market"
	"paper-engine-go/order"
)

// ErrNoPosition 表示平仓时该 symbol 没有持仓。
var ErrNoPosition = errors.New("no open position")

// Engine 独占订单表、成交流水与持仓表。
type Engine struct {
	cfg      Config
	quotes   *market.Source
	book     *order.Book
	ledger   *inventory.Ledger
	capacity Capacity

	log   *zap.Logger
	rec   Recorder
	clock func() time.Time

	dayStartEquity float64
}

// New 创建引擎；cfg 非法时返回错误。
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.CandleCap == 0 {
		cfg.CandleCap = market.DefaultCandleCap
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ledger := inventory.NewLedger(cfg.StartingCash, cfg.CommissionBps)
	e := &Engine{
		cfg:            cfg,
		quotes:         market.NewSource(cfg.PricePrecision, cfg.CandleCap),
		book:           order.NewBook(),
		ledger:         ledger,
		capacity:       newCashCapacity(ledger, cfg),
		log:            zap.NewNop(),
		rec:            nopRecorder{},
		clock:          time.Now,
		dayStartEquity: cfg.StartingCash,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config 返回构造时的配置。
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) now(ts time.Time) time.Time {
	if ts.IsZero() {
		return e.clock().UTC()
	}
	return ts.UTC()
}

// PlaceOrder 校验并登记订单，然后立即按当前报价尝试撮合。
// 校验失败不会返回错误，而是得到一个带原因的 rejected 订单。
// ClientID 重复时返回已有订单，不重复下单。
func (e *Engine) PlaceOrder(in order.Input, ts time.Time) order.Order {
	return e.placeOrder(in, e.now(ts), true)
}

func (e *Engine) placeOrder(in order.Input, now time.Time, alignLot bool) order.Order {
	in = order.Normalize(in)
	if existing, ok := e.book.ByClientID(in.ClientID); ok {
		e.log.Debug("duplicate client id, returning existing order",
			zap.String("client_id", in.ClientID), zap.String("order_id", existing.ID))
		return *existing
	}

	o := &order.Order{
		ID:           e.book.NextID(),
		ClientID:     in.ClientID,
		Tag:          in.Tag,
		Symbol:       in.Symbol,
		Side:         in.Side,
		Qty:          in.Qty,
		RequestedQty: in.Qty,
		Type:         in.Type,
		TIF:          in.TIF,
		LimitPrice:   in.LimitPrice,
		StopPrice:    in.StopPrice,
		CreatedAt:    now,
		UpdatedAt:    now,
		Status:       order.StatusNew,
	}

	if err := order.Validate(in); err != nil {
		clean := order.Sanitize(in)
		o.Qty, o.RequestedQty = clean.Qty, clean.Qty
		o.LimitPrice, o.StopPrice = clean.LimitPrice, clean.StopPrice
		o.RecomputeLeaves()
		e.book.Add(o)
		e.finish(o, order.StatusRejected, err.Error(), now)
		return *o
	}

	if alignLot {
		o.Qty = order.AlignQty(in.Qty, e.cfg.LotSize)
	}
	o.RecomputeLeaves()
	e.book.Add(o)
	e.transition(o, order.StatusAccepted, now)
	e.log.Debug("order accepted",
		zap.String("order_id", o.ID),
		zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)),
		zap.String("type", string(o.Type)),
		zap.String("tif", string(o.TIF)),
		zap.Float64("qty", o.Qty))

	e.matchPass([]*order.Order{o}, now)
	return *o
}

// CancelOrder 撤单；终态订单原样返回；未知 ID 返回 order.ErrUnknownOrder。
func (e *Engine) CancelOrder(id string, ts time.Time) (order.Order, error) {
	o, ok := e.book.Get(id)
	if !ok {
		return order.Order{}, fmt.Errorf("cancel %s: %w", id, order.ErrUnknownOrder)
	}
	if !order.CanCancel(o.Status) {
		return *o, nil
	}
	e.finish(o, order.StatusCanceled, "canceled by request", e.now(ts))
	return *o, nil
}

// PushQuote 写入外部报价并对所有活跃订单执行一轮撮合。
func (e *Engine) PushQuote(p market.PushQuote) market.Quote {
	p.Time = e.now(p.Time)
	q := e.quotes.Push(p)
	e.rec.QuoteUpdated(q)
	e.matchPass(e.book.Live(), p.Time)
	return q
}

// Tick 推进合成价格（symbols 为空时取所有活跃订单涉及的 symbol），再执行一轮撮合。
func (e *Engine) Tick(symbols []string, ts time.Time) []market.Quote {
	now := e.now(ts)
	if len(symbols) == 0 {
		symbols = e.liveSymbols()
	}
	out := make([]market.Quote, 0, len(symbols))
	for _, sym := range symbols {
		q := e.quotes.Advance(sym, now)
		e.rec.QuoteUpdated(q)
		out = append(out, q)
	}
	e.matchPass(e.book.Live(), now)
	return out
}

// Rollover 日切：所有活跃的 DAY 订单置为 expired，并记录新的日初权益。
// 只在调用方显式调用时发生，不会随时间自动触发。
func (e *Engine) Rollover(ts time.Time) Account {
	now := e.now(ts)
	for _, o := range e.book.Live() {
		if o.TIF == order.TIFDay {
			e.finish(o, order.StatusExpired, "day order expired at rollover", now)
		}
	}
	e.MarkToMarket(now)
	e.dayStartEquity = e.ledger.Equity()
	e.log.Info("day rollover",
		zap.Time("ts", now),
		zap.Float64("day_start_equity", e.dayStartEquity))
	return e.Account(now)
}

// ClosePosition 以市价 IOC 单平掉 symbol 的全部持仓（数量不做 lot 对齐）。
func (e *Engine) ClosePosition(symbol string, ts time.Time) (order.Order, error) {
	sym := market.NormalizeSymbol(symbol)
	pos, ok := e.ledger.Position(sym)
	if !ok || pos.Qty == 0 {
		return order.Order{}, fmt.Errorf("close %s: %w", sym, ErrNoPosition)
	}
	side := order.SideSell
	qty := pos.Qty
	if qty < 0 {
		side = order.SideBuy
		qty = -qty
	}
	return e.placeOrder(order.Input{
		Symbol: sym,
		Side:   side,
		Qty:    qty,
		Type:   order.TypeMarket,
		TIF:    order.TIFIOC,
		Tag:    "close_position",
	}, e.now(ts), false), nil
}

// MarkToMarket 用最新报价重估所有持仓，不影响现金与已实现盈亏。
func (e *Engine) MarkToMarket(ts time.Time) {
	now := e.now(ts)
	e.ledger.MarkToMarket(func(symbol string) float64 {
		return e.quotes.Quote(symbol, now).Last
	}, now)
}

// ListOrders 返回全部订单拷贝（按下单顺序）。
func (e *Engine) ListOrders() []order.Order { return e.book.List() }

// GetOrder 返回单个订单拷贝。
func (e *Engine) GetOrder(id string) (order.Order, error) {
	o, ok := e.book.Get(id)
	if !ok {
		return order.Order{}, fmt.Errorf("get %s: %w", id, order.ErrUnknownOrder)
	}
	return *o, nil
}

// ListFills 返回成交流水拷贝。
func (e *Engine) ListFills() []order.Fill { return e.ledger.Fills() }

// ListPositions 返回持仓拷贝（按 symbol 排序）。
func (e *Engine) ListPositions() []inventory.Position { return e.ledger.Positions() }

// Quote 返回 symbol 的当前报价（无推送时合成）。
func (e *Engine) Quote(symbol string, ts time.Time) market.Quote {
	return e.quotes.Quote(symbol, e.now(ts))
}

// Quotes 批量报价。
func (e *Engine) Quotes(symbols []string, ts time.Time) []market.Quote {
	return e.quotes.Quotes(symbols, e.now(ts))
}

// Historical 查询分钟 K 线（可重采样）。
func (e *Engine) Historical(q market.HistoricalQuery) ([]market.Candle, error) {
	return e.quotes.Historical(q)
}

func (e *Engine) liveSymbols() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, o := range e.book.Live() {
		if _, ok := seen[o.Symbol]; ok {
			continue
		}
		seen[o.Symbol] = struct{}{}
		out = append(out, o.Symbol)
	}
	sort.Strings(out)
	return out
}

// transition 推进状态并通知 Recorder；非法转换只记录日志，不改变订单。
func (e *Engine) transition(o *order.Order, to order.Status, now time.Time) bool {
	from := o.Status
	if err := o.Transition(to); err != nil {
		e.log.Warn("illegal order transition", zap.String("order_id", o.ID), zap.Error(err))
		return false
	}
	o.UpdatedAt = now
	if from != to {
		e.rec.OrderStatus(*o)
	}
	return true
}

// finish 把订单推进到终态并记录原因。
func (e *Engine) finish(o *order.Order, to order.Status, reason string, now time.Time) {
	prev := o.Reason
	o.Reason = reason
	if !e.transition(o, to, now) {
		o.Reason = prev
		return
	}
	o.RecomputeLeaves()
	level := e.log.Debug
	if to == order.StatusRejected {
		level = e.log.Info
	}
	level("order closed",
		zap.String("order_id", o.ID),
		zap.String("symbol", o.Symbol),
		zap.String("status", string(o.Status)),
		zap.Float64("filled_qty", o.FilledQty),
		zap.Float64("leaves_qty", o.LeavesQty),
		zap.String("reason", reason))
}
