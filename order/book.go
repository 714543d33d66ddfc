package order

import "fmt"

// Book 记录全部订单（含终态），按下单顺序保存，支持按 ID/ClientID 查询。
// 非并发安全；由撮合引擎独占。
type Book struct {
	seq      int
	orders   []*Order
	byID     map[string]*Order
	byClient map[string]*Order
}

func NewBook() *Book {
	return &Book{
		byID:     make(map[string]*Order),
		byClient: make(map[string]*Order),
	}
}

// NextID 生成顺序 ID，保证相同调用序列得到相同 ID。
func (b *Book) NextID() string {
	b.seq++
	return fmt.Sprintf("PAPER-%06d", b.seq)
}

// Add 登记订单；Book 持有该指针。
func (b *Book) Add(o *Order) {
	b.orders = append(b.orders, o)
	b.byID[o.ID] = o
	if o.ClientID != "" {
		b.byClient[o.ClientID] = o
	}
}

// Get 返回内部指针，仅供引擎使用。
func (b *Book) Get(id string) (*Order, bool) {
	o, ok := b.byID[id]
	return o, ok
}

// ByClientID 按调用方 ID 查找。
func (b *Book) ByClientID(clientID string) (*Order, bool) {
	if clientID == "" {
		return nil, false
	}
	o, ok := b.byClient[clientID]
	return o, ok
}

// Live 返回所有非终态订单（内部指针，按下单顺序）。
func (b *Book) Live() []*Order {
	out := make([]*Order, 0)
	for _, o := range b.orders {
		if o.Live() {
			out = append(out, o)
		}
	}
	return out
}

// List 返回全部订单（拷贝）。
func (b *Book) List() []Order {
	res := make([]Order, 0, len(b.orders))
	for _, o := range b.orders {
		res = append(res, *o)
	}
	return res
}

// Len 订单总数。
func (b *Book) Len() int { return len(b.orders) }
