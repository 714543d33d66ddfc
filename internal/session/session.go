// Package session 持有一个 sim.Engine，并把 tick 循环、行情推送、外部调用
// 串行化到同一把锁上；成交事件异步发布。
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"paper-engine-go/config"
	"paper-engine-go/infrastructure/logger"
	"paper-engine-go/infrastructure/monitor"
	"paper-engine-go/inventory"
	"paper-engine-go/market"
	"paper-engine-go/order"
	"paper-engine-go/publish"
	"paper-engine-go/sim"
)

// State 会话状态
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Components 会话依赖；Engine 和 Logger 必填。
type Components struct {
	Engine    *sim.Engine
	Logger    *logger.Logger
	Monitor   *monitor.Monitor
	Publisher publish.Publisher
	Clock     func() time.Time
}

// Statistics 会话统计
type Statistics struct {
	StartTime     time.Time
	TotalTicks    int64
	TotalQuotes   int64
	TotalOrders   int64
	TotalFills    int64
	Published     int64
	PublishErrors int64
	Rollovers     int64
	LastTickTime  time.Time
}

const publishTimeout = 5 * time.Second

type Session struct {
	mu     sync.Mutex
	engine *sim.Engine
	cfg    config.SessionConfig
	day    time.Time
	booked int
	state  State
	// stopRequested 标记 Stop 已被调用，防止重复关闭 stopChan
	stopRequested bool
	stats         Statistics
	pending       []order.Fill

	log   *logger.Logger
	mon   *monitor.Monitor
	pub   publish.Publisher
	clock func() time.Time

	// 发布队列有自己的锁，避免慢 broker 阻塞撮合
	pubMu    sync.Mutex
	wake     chan struct{}
	reload   chan time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

func New(cfg config.SessionConfig, c Components) (*Session, error) {
	if c.Engine == nil {
		return nil, errors.New("session: engine is required")
	}
	if c.Logger == nil {
		return nil, errors.New("session: logger is required")
	}
	if err := config.ValidateSession(cfg); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if c.Publisher == nil {
		c.Publisher = publish.Nop{}
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return &Session{
		engine: c.Engine,
		cfg:    cfg,
		day:    utcDay(c.Clock()),
		log:    c.Logger,
		mon:    c.Monitor,
		pub:    c.Publisher,
		clock:  c.Clock,
		wake:   make(chan struct{}, 1),
		reload: make(chan time.Duration, 1),
	}, nil
}

// Start 启动 tick 循环与发布循环。
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return fmt.Errorf("session already started (state: %s)", s.state)
	}
	s.state = StateRunning
	s.stopRequested = false
	s.stats.StartTime = s.clock()
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	interval := s.cfg.TickInterval()
	s.mu.Unlock()

	s.log.Info("session starting",
		zap.Duration("tick_interval", interval),
		zap.Strings("symbols", s.cfg.Symbols))

	go s.run(ctx, interval)
	return nil
}

// Stop 停止循环并把尚未发布的成交发布完。
func (s *Session) Stop() error {
	s.mu.Lock()
	// ctx 结束时循环已退出并置为 STOPPED，此时 Stop 仍负责收尾发布
	if s.stopChan == nil || s.stopRequested {
		s.mu.Unlock()
		return fmt.Errorf("session not running (state: %s)", s.state)
	}
	s.stopRequested = true
	s.state = StateStopped
	s.mu.Unlock()

	close(s.stopChan)
	select {
	case <-s.doneChan:
	case <-time.After(10 * time.Second):
		s.log.Warn("timeout waiting for session loop to stop")
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		s.log.Error("final fill flush failed", zap.Error(err))
	}
	s.log.Info("session stopped")
	return nil
}

// State 返回当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats 返回统计快照
func (s *Session) Stats() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Session) run(ctx context.Context, interval time.Duration) {
	defer close(s.doneChan)

	// interval 为 0 时不自动推进，只处理发布
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	tickC := func() <-chan time.Time {
		if interval <= 0 {
			return nil
		}
		return ticker.C
	}
	if interval > 0 {
		ticker.Reset(interval)
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info("context done, stopping session loop")
			s.mu.Lock()
			s.state = StateStopped
			s.mu.Unlock()
			return
		case <-s.stopChan:
			return
		case <-tickC():
			s.Tick()
		case d := <-s.reload:
			interval = d
			if d > 0 {
				ticker.Reset(d)
			}
		case <-s.wake:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := s.Flush(pctx); err != nil {
				s.log.Warn("fill publish failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// UpdateSession 热更新会话参数（tick 周期、symbol 列表、日切开关）。
func (s *Session) UpdateSession(cfg config.SessionConfig) error {
	if err := config.ValidateSession(cfg); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	select {
	case <-s.reload:
	default:
	}
	select {
	case s.reload <- cfg.TickInterval():
	default:
	}
	s.log.Info("session config applied",
		zap.Int("tick_interval_ms", cfg.TickIntervalMs),
		zap.Strings("symbols", cfg.Symbols),
		zap.Bool("daily_rollover", cfg.DailyRollover))
	return nil
}

// Tick 推进合成行情一步；跨越 UTC 日期且开启日切时先执行 Rollover。
func (s *Session) Tick() []market.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC()
	if s.cfg.DailyRollover && utcDay(now).After(s.day) {
		s.rolloverLocked(now)
	}
	quotes := s.engine.Tick(s.cfg.Symbols, now)
	s.stats.TotalTicks++
	s.stats.LastTickTime = now
	if s.mon != nil {
		s.mon.RecordTick()
	}
	s.collectLocked()
	return quotes
}

// PushQuote 写入外部报价；可以直接作为 feed.Handler 使用。
func (s *Session) PushQuote(p market.PushQuote) market.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Time.IsZero() {
		p.Time = s.clock()
	}
	q := s.engine.PushQuote(p)
	s.stats.TotalQuotes++
	s.collectLocked()
	return q
}

func (s *Session) PlaceOrder(in order.Input) order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.engine.PlaceOrder(in, s.clock())
	s.stats.TotalOrders++
	s.log.LogOrder(o)
	s.collectLocked()
	return o
}

func (s *Session) CancelOrder(id string) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.engine.CancelOrder(id, s.clock())
	if err != nil {
		return o, err
	}
	s.log.LogOrder(o)
	return o, nil
}

func (s *Session) ClosePosition(symbol string) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.engine.ClosePosition(symbol, s.clock())
	if err != nil {
		return o, err
	}
	s.stats.TotalOrders++
	s.log.LogOrder(o)
	s.collectLocked()
	return o, nil
}

// Rollover 手动日切
func (s *Session) Rollover() sim.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rolloverLocked(s.clock().UTC())
}

func (s *Session) rolloverLocked(now time.Time) sim.Account {
	a := s.engine.Rollover(now)
	s.day = utcDay(now)
	s.stats.Rollovers++
	return a
}

func (s *Session) Account() sim.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Account(s.clock())
}

func (s *Session) Orders() []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ListOrders()
}

func (s *Session) Order(id string) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.GetOrder(id)
}

func (s *Session) Fills() []order.Fill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ListFills()
}

func (s *Session) Positions() []inventory.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ListPositions()
}

func (s *Session) Quotes(symbols []string) []market.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Quotes(symbols, s.clock())
}

func (s *Session) Historical(q market.HistoricalQuery) ([]market.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Historical(q)
}

// collectLocked 把新增成交写日志并放入发布队列；调用方持有 s.mu。
func (s *Session) collectLocked() {
	fills := s.engine.ListFills()
	if len(fills) <= s.booked {
		return
	}
	fresh := fills[s.booked:]
	s.booked = len(fills)
	s.stats.TotalFills += int64(len(fresh))
	for _, f := range fresh {
		s.log.LogFill(f)
	}
	s.pending = append(s.pending, fresh...)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Flush 同步发布队列中的成交；失败时成交留在队列里等待下次发布。
func (s *Session) Flush(ctx context.Context) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	if err := s.pub.PublishFills(ctx, batch); err != nil {
		s.mu.Lock()
		s.pending = append(batch, s.pending...)
		s.stats.PublishErrors++
		s.mu.Unlock()
		if s.mon != nil {
			s.mon.RecordPublishError()
		}
		return err
	}
	s.mu.Lock()
	s.stats.Published += int64(len(batch))
	s.mu.Unlock()
	return nil
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
