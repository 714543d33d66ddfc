package market

import "time"

// Quote 为某个 symbol 的最新报价。
type Quote struct {
	Symbol string    `json:"symbol"`
	Last   float64   `json:"last"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Volume float64   `json:"volume"`
	Time   time.Time `json:"ts"`
}

// Mid 返回 bid/ask 中间价；任一侧缺失时退回 last。
func (q Quote) Mid() float64 {
	if q.Bid <= 0 || q.Ask <= 0 {
		return q.Last
	}
	return (q.Bid + q.Ask) / 2
}

// PushQuote 是外部推送的报价，未设置的字段由 Source 推导。
type PushQuote struct {
	Symbol string    `json:"symbol"`
	Last   *float64  `json:"last,omitempty"`
	Bid    *float64  `json:"bid,omitempty"`
	Ask    *float64  `json:"ask,omitempty"`
	Volume *float64  `json:"volume,omitempty"`
	Time   time.Time `json:"ts,omitempty"`
}

// Float 便于构造 PushQuote 的可选字段。
func Float(v float64) *float64 { return &v }
