package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-engine-go/order"
)

type memWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *memWriter) Close() error {
	m.closed = true
	return nil
}

func TestPublishFills(t *testing.T) {
	w := &memWriter{}
	p := &KafkaPublisher{writer: w}
	ts := time.Date(2026, 5, 4, 13, 30, 0, 0, time.UTC)

	err := p.PublishFills(context.Background(), []order.Fill{
		{OrderID: "PAPER-000001", Symbol: "AAPL", Side: order.SideBuy, Qty: 10, Price: 100, Notional: 1000, Fee: 0.5, Time: ts},
		{OrderID: "PAPER-000002", Symbol: "MSFT", Side: order.SideSell, Qty: 1, Price: 300, Notional: 300, Time: ts},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "AAPL", string(w.msgs[0].Key))
	assert.Equal(t, "fill", string(w.msgs[0].Headers[0].Value))
	var ev FillEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, "fill", ev.Type)
	assert.Equal(t, "PAPER-000001", ev.OrderID)
	assert.Equal(t, order.SideBuy, ev.Side)
	assert.Equal(t, 0.5, ev.Fee)
	assert.True(t, ts.Equal(ev.Time))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishFillsEmptyIsNoop(t *testing.T) {
	w := &memWriter{err: errors.New("should not be called")}
	p := &KafkaPublisher{writer: w}
	assert.NoError(t, p.PublishFills(context.Background(), nil))
}

func TestPublishFillsWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{writer: &memWriter{err: boom}}
	err := p.PublishFills(context.Background(), []order.Fill{{OrderID: "X", Symbol: "AAPL"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "publish 1 fills")
}

func TestNewKafkaPublisherConfiguresWriter(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "paper.fills")
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "paper.fills", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	require.NoError(t, p.Close())
}
