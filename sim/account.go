package sim

import "time"

// Account 是账本与最新报价的只读投影，每次读取时重新计算。
type Account struct {
	Currency       string    `json:"currency"`
	Cash           float64   `json:"cash"`
	Equity         float64   `json:"equity"`
	BuyingPower    float64   `json:"buyingPower"`
	DayPnL         float64   `json:"dayPnl"`
	TotalPnL       float64   `json:"totalPnl"`
	RealizedPnL    float64   `json:"realizedPnl"`
	UnrealizedPnL  float64   `json:"unrealizedPnl"`
	Fees           float64   `json:"fees"`
	StartingCash   float64   `json:"startingCash"`
	DayStartEquity float64   `json:"dayStartEquity"`
	Positions      int       `json:"positions"`
	AsOf           time.Time `json:"asOf"`
}

// Account 先做一次 mark-to-market，再汇总现金、权益、购买力与盈亏。
// 购买力：允许做空时为 2 倍 equity，否则为 2 倍 cash。
// DayPnL 相对最近一次 Rollover 记录的日初权益（首次日切前为初始资金）。
func (e *Engine) Account(ts time.Time) Account {
	now := e.now(ts)
	e.MarkToMarket(now)

	equity := e.ledger.Equity()
	cash := e.ledger.Cash()
	bp := marginMultiple * cash
	if e.cfg.AllowShort {
		bp = marginMultiple * equity
	}
	open := 0
	for _, p := range e.ledger.Positions() {
		if p.Qty != 0 {
			open++
		}
	}
	a := Account{
		Currency:       e.cfg.Currency,
		Cash:           cash,
		Equity:         equity,
		BuyingPower:    bp,
		DayPnL:         equity - e.dayStartEquity,
		TotalPnL:       equity - e.cfg.StartingCash,
		RealizedPnL:    e.ledger.RealizedPnL(),
		UnrealizedPnL:  e.ledger.UnrealizedPnL(),
		Fees:           e.ledger.Fees(),
		StartingCash:   e.cfg.StartingCash,
		DayStartEquity: e.dayStartEquity,
		Positions:      open,
		AsOf:           now,
	}
	e.rec.AccountMarked(a)
	return a
}
