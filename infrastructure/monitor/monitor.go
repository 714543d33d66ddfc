package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paper-engine-go/market"
	"paper-engine-go/order"
	"paper-engine-go/sim"
)

// Monitor Prometheus监控指标收集器，同时实现 sim.Recorder。
type Monitor struct {
	registry *prometheus.Registry

	// 订单指标
	orderStatus *prometheus.CounterVec

	// 成交指标
	fills          *prometheus.CounterVec
	tradedNotional prometheus.Counter
	fees           prometheus.Counter

	// 账户指标
	equity        prometheus.Gauge
	cash          prometheus.Gauge
	dayPnL        prometheus.Gauge
	realizedPnL   prometheus.Gauge
	unrealizedPnL prometheus.Gauge

	// 行情指标
	quotes    *prometheus.CounterVec
	lastPrice *prometheus.GaugeVec
	ticks     prometheus.Counter

	// 系统指标
	feedConnects    prometheus.Counter
	feedDisconnects prometheus.Counter
	publishErrors   prometheus.Counter
}

var _ sim.Recorder = (*Monitor)(nil)

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "paper",
		Subsystem: "engine",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help,
		})
	}

	return &Monitor{
		registry: reg,

		orderStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "order_status_total",
			Help:      "订单进入各状态的次数",
		}, []string{"status"}),

		fills: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "fills_total",
			Help:      "成交笔数",
		}, []string{"symbol", "side"}),
		tradedNotional: counter("traded_notional_total", "累计成交额"),
		fees:           counter("fees_total", "累计手续费"),

		equity:        gauge("equity", "账户权益"),
		cash:          gauge("cash", "现金余额"),
		dayPnL:        gauge("day_pnl", "当日盈亏"),
		realizedPnL:   gauge("realized_pnl", "已实现盈亏"),
		unrealizedPnL: gauge("unrealized_pnl", "未实现盈亏"),

		quotes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "quotes_total",
			Help:      "报价更新次数（推送与合成）",
		}, []string{"symbol"}),
		lastPrice: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "last_price",
			Help:      "最新成交价",
		}, []string{"symbol"}),
		ticks: counter("ticks_total", "会话 tick 次数"),

		feedConnects:    counter("feed_connects_total", "行情 websocket 连接次数"),
		feedDisconnects: counter("feed_disconnects_total", "行情 websocket 断开次数"),
		publishErrors:   counter("publish_errors_total", "成交事件发布失败次数"),
	}
}

// OrderStatus 实现 sim.Recorder
func (m *Monitor) OrderStatus(o order.Order) {
	m.orderStatus.WithLabelValues(string(o.Status)).Inc()
}

// FillBooked 实现 sim.Recorder
func (m *Monitor) FillBooked(f order.Fill) {
	m.fills.WithLabelValues(f.Symbol, string(f.Side)).Inc()
	m.tradedNotional.Add(f.Notional)
	m.fees.Add(f.Fee)
}

// QuoteUpdated 实现 sim.Recorder
func (m *Monitor) QuoteUpdated(q market.Quote) {
	m.quotes.WithLabelValues(q.Symbol).Inc()
	m.lastPrice.WithLabelValues(q.Symbol).Set(q.Last)
}

// AccountMarked 实现 sim.Recorder
func (m *Monitor) AccountMarked(a sim.Account) {
	m.equity.Set(a.Equity)
	m.cash.Set(a.Cash)
	m.dayPnL.Set(a.DayPnL)
	m.realizedPnL.Set(a.RealizedPnL)
	m.unrealizedPnL.Set(a.UnrealizedPnL)
}

func (m *Monitor) RecordTick() {
	m.ticks.Inc()
}

func (m *Monitor) RecordFeedConnect() {
	m.feedConnects.Inc()
}

func (m *Monitor) RecordFeedDisconnect() {
	m.feedDisconnects.Inc()
}

func (m *Monitor) RecordPublishError() {
	m.publishErrors.Inc()
}

// Handler 返回HTTP handler用于暴露指标
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回prometheus registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
