package detector

import (
	"arb-indexer-sol/internal/logic/core"
	"arb-indexer-sol/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
)

// ClassifyChains 判定每条链是否构成回路套利并产出记录。
//
// 链头 owner 的流入 token 是 signer "付出"的起点，链尾 owner 的流出
// token 是 signer "收回"的终点；两者为同一 mint 时即认定回路成立，
// 净结余 = 链尾流出量 − 链头流入量（可能为负）。mint 不同的链直接丢弃。
//
// legs 由 DetectSwapLegs 产出，保证每个腿 owner 恰有一正一负两个条目；
// 链端 owner 不在 legs 中说明上游前置条件被破坏，记错误日志并跳过该链。
func ClassifyChains(tx *core.TxRecord, chains []Chain, legs []SwapLeg) []*core.ArbitrageRecord {
	legByOwner := make(map[types.Pubkey]*SwapLeg, len(legs))
	for i := range legs {
		legByOwner[legs[i].Owner] = &legs[i]
	}

	var records []*core.ArbitrageRecord
	for _, chain := range chains {
		headLeg, ok := legByOwner[chain.Head]
		if !ok {
			logx.Errorf("[classifier] chain head 不在兑换腿集合中: tx=%s owner=%s", tx.Signature, chain.Head)
			continue
		}
		tailLeg, ok := legByOwner[chain.Tail]
		if !ok {
			logx.Errorf("[classifier] chain tail 不在兑换腿集合中: tx=%s owner=%s", tx.Signature, chain.Tail)
			continue
		}

		if headLeg.ReceivedToken != tailLeg.GivenToken {
			continue // 未回到同一 token，不构成回路
		}

		records = append(records, &core.ArbitrageRecord{
			Signature:   tx.Signature,
			Beneficiary: tx.Signer,
			Token:       headLeg.ReceivedToken,
			Amount:      tailLeg.GivenAmount.Sub(headLeg.ReceivedAmount),
		})
	}
	return records
}
