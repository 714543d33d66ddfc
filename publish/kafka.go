// Package publish 把模拟成交作为事件发布到 Kafka。
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"paper-engine-go/order"
)

// Publisher 成交事件发布接口；session 只依赖这个接口。
type Publisher interface {
	PublishFills(ctx context.Context, fills []order.Fill) error
	Close() error
}

// FillEvent 是写入 Kafka 的消息体。
type FillEvent struct {
	Type     string     `json:"type"`
	OrderID  string     `json:"orderId"`
	Symbol   string     `json:"symbol"`
	Side     order.Side `json:"side"`
	Qty      float64    `json:"qty"`
	Price    float64    `json:"price"`
	Notional float64    `json:"notional"`
	Fee      float64    `json:"fee"`
	Time     time.Time  `json:"ts"`
}

func NewFillEvent(f order.Fill) FillEvent {
	return FillEvent{
		Type:     "fill",
		OrderID:  f.OrderID,
		Symbol:   f.Symbol,
		Side:     f.Side,
		Qty:      f.Qty,
		Price:    f.Price,
		Notional: f.Notional,
		Fee:      f.Fee,
		Time:     f.Time.UTC(),
	}
}

// messageWriter 是 *kafka.Writer 用到的子集，测试里替换成内存实现。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 同步写入，按 symbol 做 key 保证同一 symbol 的成交有序。
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) PublishFills(ctx context.Context, fills []order.Fill) error {
	if len(fills) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(fills))
	for _, f := range fills {
		value, err := json.Marshal(NewFillEvent(f))
		if err != nil {
			return fmt.Errorf("encode fill %s: %w", f.OrderID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(f.Symbol),
			Value:   value,
			Time:    f.Time,
			Headers: []kafka.Header{{Key: "event", Value: []byte("fill")}},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d fills: %w", len(msgs), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop 丢弃所有事件，未配置 broker 时使用。
type Nop struct{}

func (Nop) PublishFills(context.Context, []order.Fill) error { return nil }
func (Nop) Close() error                                     { return nil }
