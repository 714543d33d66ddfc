// Package feed 从 websocket 行情源读取报价并转成 market.PushQuote。
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"paper-engine-go/market"
)

// Handler 接收解析后的报价；在读循环的 goroutine 中同步调用。
type Handler func(market.PushQuote)

// Hooks 连接生命周期回调（用于指标），均可为空。
type Hooks struct {
	OnConnect    func()
	OnDisconnect func(error)
}

// Client websocket 行情客户端，断线后按 Reconnect 间隔重连。
type Client struct {
	URL       string
	Symbols   []string
	Reconnect time.Duration
	ReadIdle  time.Duration // 超过该时长没有消息视为断线；0 不设读超时
	Dialer    *websocket.Dialer
	Hooks     Hooks

	log *zap.Logger
}

func NewClient(url string, symbols []string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		URL:       url,
		Symbols:   symbols,
		Reconnect: 2 * time.Second,
		ReadIdle:  30 * time.Second,
		Dialer:    websocket.DefaultDialer,
		log:       log,
	}
}

// Run 阻塞直到 ctx 结束，返回 ctx.Err()。
func (c *Client) Run(ctx context.Context, handler Handler) error {
	if c.URL == "" {
		return errors.New("feed url required")
	}
	for {
		err := c.session(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("feed disconnected", zap.String("url", c.URL), zap.Error(err))
		if c.Hooks.OnDisconnect != nil {
			c.Hooks.OnDisconnect(err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.Reconnect):
		}
	}
}

// session 单次连接：拨号、订阅、读到出错为止。
func (c *Client) session(ctx context.Context, handler Handler) error {
	conn, _, err := c.Dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.URL, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	if len(c.Symbols) > 0 {
		if err := conn.WriteJSON(subscribeRequest{Op: "subscribe", Symbols: c.Symbols}); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}
	c.log.Info("feed connected", zap.String("url", c.URL), zap.Strings("symbols", c.Symbols))
	if c.Hooks.OnConnect != nil {
		c.Hooks.OnConnect()
	}

	for {
		if c.ReadIdle > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.ReadIdle))
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		quotes, err := Parse(raw)
		if err != nil {
			c.log.Debug("feed message skipped", zap.Error(err), zap.ByteString("raw", raw))
			continue
		}
		if handler == nil {
			continue
		}
		for _, q := range quotes {
			handler(q)
		}
	}
}
