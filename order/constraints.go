package order

import (
	"errors"
	"fmt"
	"strings"

	"paper-engine-go/precision"
)

// Normalize 统一 symbol 大小写并补齐缺省的类型/有效期。
func Normalize(in Input) Input {
	in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	in.Side = Side(strings.ToLower(strings.TrimSpace(string(in.Side))))
	in.Type = Type(strings.ToLower(strings.TrimSpace(string(in.Type))))
	in.TIF = TimeInForce(strings.ToLower(strings.TrimSpace(string(in.TIF))))
	if in.Type == "" {
		in.Type = TypeMarket
	}
	if in.TIF == "" {
		in.TIF = TIFDay
	}
	return in
}

// Validate 检查下单请求的结构合法性（不涉及资金/行情）。
func Validate(in Input) error {
	if in.Symbol == "" {
		return errors.New("symbol is required")
	}
	switch in.Side {
	case SideBuy, SideSell:
	default:
		return fmt.Errorf("unsupported side %q", in.Side)
	}
	if !(in.Qty > 0) || !precision.Finite(in.Qty) {
		return fmt.Errorf("qty must be a finite number > 0, got %v", in.Qty)
	}
	// 市价单的价格字段虽不使用，也会随订单保存和序列化
	if !precision.Finite(in.LimitPrice) || !precision.Finite(in.StopPrice) {
		return fmt.Errorf("prices must be finite, got limitPrice=%v stopPrice=%v", in.LimitPrice, in.StopPrice)
	}
	switch in.Type {
	case TypeMarket, TypeLimit, TypeStop, TypeStopLimit:
	default:
		return fmt.Errorf("unsupported order type %q", in.Type)
	}
	switch in.TIF {
	case TIFDay, TIFGTC, TIFIOC, TIFFOK:
	default:
		return fmt.Errorf("unsupported time in force %q", in.TIF)
	}
	if in.Type.HasLimit() && !(in.LimitPrice > 0) {
		return fmt.Errorf("%s order requires limitPrice > 0", in.Type)
	}
	if in.Type.HasStop() && !(in.StopPrice > 0) {
		return fmt.Errorf("%s order requires stopPrice > 0", in.Type)
	}
	return nil
}

// Sanitize 把非有限的数量/价格置 0，用于保存被拒订单，保证可以正常序列化。
func Sanitize(in Input) Input {
	for _, v := range []*float64{&in.Qty, &in.LimitPrice, &in.StopPrice} {
		if !precision.Finite(*v) {
			*v = 0
		}
	}
	return in
}

// AlignQty 将数量向下对齐到 lot；对齐结果为 0 时保留原始数量。
func AlignQty(qty, lot float64) float64 {
	if lot <= 0 {
		return qty
	}
	aligned := precision.FloorToStep(qty, lot)
	if aligned <= 0 {
		return qty
	}
	return aligned
}
