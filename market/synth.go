package market

import (
	"hash/fnv"
	"time"
)

// 合成行情参数。
const (
	// StepBps 单步最大乘数扰动（±8bps）。
	StepBps = 8.0
	// SpreadBps 缺省 bid/ask 相对 last 的偏移（±5bps）。
	SpreadBps = 5.0

	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407

	basePriceMin   = 20.0
	basePriceRange = 500.0
)

// SymbolSeed 返回 symbol 的确定性种子（FNV-1a 64）。
func SymbolSeed(symbol string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return h.Sum64()
}

// MinuteBucket 返回 ts 所在的 UTC 分钟序号。
func MinuteBucket(ts time.Time) uint64 {
	return uint64(ts.UTC().Unix() / 60)
}

// Noise 是纯函数：seed 与 bucket 异或后经一次 LCG 变换，输出 [0,1)。
// 相同输入永远得到相同输出，不依赖任何全局随机状态。
func Noise(seed, bucket uint64) float64 {
	x := seed ^ bucket
	x = x*lcgMultiplier + lcgIncrement
	// 再混一轮，避免相邻 bucket 的低位相关性
	x ^= x >> 33
	x = x*lcgMultiplier + lcgIncrement
	return float64(x>>11) / float64(uint64(1)<<53)
}

// StepFactor 返回 [1-8bps, 1+8bps] 区间的乘数。
func StepFactor(seed, bucket uint64) float64 {
	n := Noise(seed, bucket)*2 - 1
	return 1 + n*StepBps*1e-4
}

// BasePrice 从 symbol 哈希推导初始价格，落在 [20, 520)。
func BasePrice(symbol string) float64 {
	seed := SymbolSeed(symbol)
	cents := seed % uint64(basePriceRange*100)
	return basePriceMin + float64(cents)/100
}

// syntheticVolume 给 tick 生成一个确定性的成交量。
func syntheticVolume(seed, bucket uint64) float64 {
	return float64(100 + uint64(Noise(seed^0x9e3779b97f4a7c15, bucket)*900))
}
