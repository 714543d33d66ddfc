package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"paper-engine-go/market"
)

// ErrEmptyMessage 消息体为空或不含报价。
var ErrEmptyMessage = errors.New("empty feed message")

// Message 行情推送的线上格式；除 symbol 外字段均可省略。
type Message struct {
	Symbol string     `json:"symbol"`
	Last   *float64   `json:"last,omitempty"`
	Bid    *float64   `json:"bid,omitempty"`
	Ask    *float64   `json:"ask,omitempty"`
	Volume *float64   `json:"volume,omitempty"`
	Time   *time.Time `json:"ts,omitempty"`
}

// envelope 兼容 {"stream": "...", "data": ...} 包装。
type envelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// subscribeRequest 连接建立后发送的订阅请求。
type subscribeRequest struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

// Parse 解析一帧消息：单个对象、对象数组，或带 data 字段的包装。
func Parse(raw []byte) ([]market.PushQuote, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrEmptyMessage
	}

	var msgs []Message
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &msgs); err != nil {
			return nil, fmt.Errorf("parse feed batch: %w", err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
			return Parse(env.Data)
		}
		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse feed message: %w", err)
		}
		msgs = []Message{m}
	default:
		return nil, fmt.Errorf("parse feed message: unexpected %q", raw[0])
	}

	out := make([]market.PushQuote, 0, len(msgs))
	for _, m := range msgs {
		if m.Symbol == "" {
			continue
		}
		p := market.PushQuote{Symbol: m.Symbol, Last: m.Last, Bid: m.Bid, Ask: m.Ask, Volume: m.Volume}
		if m.Time != nil {
			p.Time = m.Time.UTC()
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, ErrEmptyMessage
	}
	return out, nil
}
