package report

import (
	"math"
	"time"

	"arb-indexer-sol/internal/cache"
	"arb-indexer-sol/internal/consts"
	"arb-indexer-sol/internal/types"

	"github.com/shopspring/decimal"
)

// 已知报价币的静态 USD 价格，价格服务不可用时的保底取值。
var staticTokenValue = map[types.Pubkey]float64{
	consts.WSOLMint: 200.0,
	consts.USDCMint: 1.0,
	consts.USDTMint: 1.0,
}

// Valuer 将套利记录的 token 数量折算为 USD。
// priceCache 可为 nil（纯回扫模式），此时仅使用静态价格表。
type Valuer struct {
	priceCache *cache.PriceCache
}

func NewValuer(priceCache *cache.PriceCache) *Valuer {
	return &Valuer{priceCache: priceCache}
}

// USDValue 返回 amount 个 token 对应的 USD 价值。
// 未知 token 返回 ok=false，由调用方决定日志与跳过策略。
func (v *Valuer) USDValue(token types.Pubkey, amount decimal.Decimal) (float64, bool) {
	price, ok := v.priceOf(token)
	if !ok {
		return 0, false
	}
	value := amount.InexactFloat64() * price
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, false
	}
	return value, true
}

func (v *Valuer) priceOf(token types.Pubkey) (float64, bool) {
	if v.priceCache != nil {
		if price, ok := v.priceCache.GetPriceAt(token, time.Now().Unix()); ok {
			return price, true
		}
	}
	price, ok := staticTokenValue[token]
	return price, ok
}
