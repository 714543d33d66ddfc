package order

import "fmt"

// StateTransition 状态转换
type StateTransition struct {
	From Status
	To   Status
}

// legalTransitions 所有合法的状态转换；终态（FILLED, CANCELED, REJECTED, EXPIRED）不能转出。
var legalTransitions = map[StateTransition]bool{
	{StatusNew, StatusAccepted}: true,
	{StatusNew, StatusRejected}: true,

	{StatusAccepted, StatusPartiallyFilled}: true,
	{StatusAccepted, StatusFilled}:          true,
	{StatusAccepted, StatusCanceled}:        true,
	{StatusAccepted, StatusRejected}:        true,
	{StatusAccepted, StatusExpired}:         true,

	{StatusPartiallyFilled, StatusPartiallyFilled}: true, // 多次部分成交
	{StatusPartiallyFilled, StatusFilled}:          true,
	{StatusPartiallyFilled, StatusCanceled}:        true,
	{StatusPartiallyFilled, StatusExpired}:         true,
}

// ValidateTransition 验证状态转换是否合法；相同状态视为幂等。
func ValidateTransition(from, to Status) error {
	if from == to {
		return nil
	}
	if !legalTransitions[StateTransition{From: from, To: to}] {
		return fmt.Errorf("illegal state transition: %s -> %s", from, to)
	}
	return nil
}

// Transition 按状态机推进订单状态。
func (o *Order) Transition(to Status) error {
	if IsFinal(o.Status) && o.Status != to {
		return fmt.Errorf("%s %s: %w", o.ID, o.Status, ErrTerminal)
	}
	if err := ValidateTransition(o.Status, to); err != nil {
		return fmt.Errorf("%s: %w", o.ID, err)
	}
	o.Status = to
	return nil
}

// AllowedTransitions 返回当前状态所有合法的目标状态
func AllowedTransitions(current Status) []Status {
	allowed := make([]Status, 0)
	for transition := range legalTransitions {
		if transition.From == current {
			allowed = append(allowed, transition.To)
		}
	}
	return allowed
}

// IsFinal 判断是否是终态
func IsFinal(status Status) bool {
	switch status {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

// CanCancel 判断当前状态下是否可以撤单
func CanCancel(status Status) bool {
	switch status {
	case StatusNew, StatusAccepted, StatusPartiallyFilled:
		return true
	default:
		return false
	}
}
