package detector

import (
	"arb-indexer-sol/internal/types"

	"github.com/shopspring/decimal"
)

// SwapLeg 表示行为形似"兑换腿"的 owner：本笔交易中恰好涉及两个 mint，
// 一个净流出（given）、一个净流入（received）。金额均取绝对值。
type SwapLeg struct {
	Owner          types.Pubkey
	GivenToken     types.Pubkey
	GivenAmount    decimal.Decimal // >= 0
	ReceivedToken  types.Pubkey
	ReceivedAmount decimal.Decimal // >= 0
}

// DetectSwapLegs 从余额变化中筛选出兑换腿：
// 恰好两个 mint 且两个变化量符号相反。单 token 转账、纯手续费变化、
// 三 token 以上的 LP 操作都会被排除在链路构建之外。
func DetectSwapLegs(deltas []OwnerDelta) []SwapLeg {
	legs := make([]SwapLeg, 0, len(deltas))
	for i := range deltas {
		d := &deltas[i]
		if len(d.Deltas) != 2 {
			continue
		}
		a, b := d.Deltas[0], d.Deltas[1]
		// 两侧符号相反（零值条目在上游已被丢弃）
		if a.Amount.Sign()*b.Amount.Sign() >= 0 {
			continue
		}
		leg := SwapLeg{Owner: d.Owner}
		for _, td := range d.Deltas {
			if td.Amount.Sign() < 0 {
				leg.GivenToken = td.Token
				leg.GivenAmount = td.Amount.Neg()
			} else {
				leg.ReceivedToken = td.Token
				leg.ReceivedAmount = td.Amount
			}
		}
		legs = append(legs, leg)
	}
	return legs
}
