// Package precision 集中处理价格/数量的舍入，避免浮点误差在成交、估值之间扩散。
package precision

import (
	"math"

	"github.com/shopspring/decimal"
)

// BasisPoint 1bp = 0.0001。
const BasisPoint = 1e-4

// Finite 判断 v 既不是 NaN 也不是 ±Inf；decimal 无法表示这类值。
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Round 将 v 四舍五入到 places 位小数；places < 0 或 v 非有限值时原样返回。
func Round(v float64, places int) float64 {
	if places < 0 || !Finite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(int32(places)).InexactFloat64()
}

// Floor 向下截断到 places 位小数。
func Floor(v float64, places int) float64 {
	if places < 0 || !Finite(v) {
		return v
	}
	return decimal.NewFromFloat(v).RoundFloor(int32(places)).InexactFloat64()
}

// Ceil 向上进位到 places 位小数。
func Ceil(v float64, places int) float64 {
	if places < 0 || !Finite(v) {
		return v
	}
	return decimal.NewFromFloat(v).RoundCeil(int32(places)).InexactFloat64()
}

// FloorToStep 将 v 向下对齐到 step 的整数倍；step <= 0 时原样返回。
func FloorToStep(v, step float64) float64 {
	if !(step > 0) || !Finite(v) || !Finite(step) {
		return v
	}
	s := decimal.NewFromFloat(step)
	return decimal.NewFromFloat(v).Div(s).Floor().Mul(s).InexactFloat64()
}

// Bps 返回 v 按 bps 个基点计算的数值。
func Bps(v, bps float64) float64 {
	return v * bps * BasisPoint
}
