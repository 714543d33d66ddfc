package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-engine-go/market"
)

type collector struct {
	mu     sync.Mutex
	quotes []market.PushQuote
}

func (c *collector) handle(q market.PushQuote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes = append(c.quotes, q)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.quotes)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientSubscribesAndDelivers(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	subs := make(chan subscribeRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var req subscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		subs <- req
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"symbol":"AAPL","last":100}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`[{"symbol":"MSFT","last":300},{"symbol":"TSLA","last":200}]`))
		// 保持连接直到客户端关闭
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := NewClient(wsURL(srv), []string{"AAPL", "MSFT"}, nil)
	connected := make(chan struct{}, 1)
	c.Hooks.OnConnect = func() { connected <- struct{}{} }

	got := &collector{}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx, got.handle) }()

	select {
	case req := <-subs:
		assert.Equal(t, "subscribe", req.Op)
		assert.Equal(t, []string{"AAPL", "MSFT"}, req.Symbols)
	case <-time.After(2 * time.Second):
		t.Fatalf("no subscribe request")
	}
	<-connected
	require.Eventually(t, func() bool { return got.len() == 3 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}
	assert.Equal(t, "TSLA", got.quotes[2].Symbol)
}

func TestClientReconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var mu sync.Mutex
	conns := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		conns++
		mu.Unlock()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"symbol":"AAPL","last":100}`))
		conn.Close()
	}))
	defer srv.Close()

	c := NewClient(wsURL(srv), nil, nil)
	c.Reconnect = 10 * time.Millisecond
	disconnects := make(chan error, 8)
	c.Hooks.OnDisconnect = func(err error) {
		select {
		case disconnects <- err:
		default:
		}
	}

	got := &collector{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx, got.handle) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return conns >= 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, got.len(), 1)
	assert.NotEmpty(t, disconnects)
}

func TestClientRequiresURL(t *testing.T) {
	err := NewClient("", nil, nil).Run(context.Background(), nil)
	require.Error(t, err)
}
