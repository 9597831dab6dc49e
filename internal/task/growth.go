package task

import (
	"math"
	"math/big"
	"strings"

	"github.com/Kubistream/kubi-main-app-sub000/internal/model"
)

// dailyGrowth 把配置利率折算为日增长率。
// APR: rate/100/365；APY: (1+rate/100)^(1/365)-1。
func dailyGrowth(rate float64, mode string) float64 {
	switch strings.ToLower(mode) {
	case model.RateModeApy:
		return math.Pow(1+rate/100, 1.0/365) - 1
	default:
		return rate / 100 / 365
	}
}

// perRunGrowth 把日增长率折算为单次执行的增长率，
// 这样无论执行频率如何，24小时累计增长都等于日增长率。
func perRunGrowth(daily float64, runsPerDay int) float64 {
	return math.Pow(1+daily, 1.0/float64(runsPerDay)) - 1
}

// nextScalingFactor 当前因子乘以(1+增长率)，向下取整
func nextScalingFactor(current *big.Int, growth float64) *big.Int {
	factor := new(big.Float).SetInt(current)
	factor.Mul(factor, big.NewFloat(1+growth))
	result, _ := factor.Int(nil)
	return result
}
