// Package detector 实现单笔交易内的套利链路检测：
// 余额快照 → per-owner 净变化 → 兑换腿 → 转移边 → 贪心合并链 → 回路分类。
// 全程无跨交易状态，纯数据变换，可安全地按交易粒度并发调用。
package detector

import (
	"arb-indexer-sol/internal/logic/core"
)

// Detect 对单笔交易运行完整检测流水线。
// 一笔交易可能产出零条、一条或多条套利记录（每条定型链至多一条）。
func Detect(tx *core.TxRecord) []*core.ArbitrageRecord {
	deltas := ExtractBalanceChanges(tx)
	legs := DetectSwapLegs(deltas)
	if len(legs) == 0 {
		return nil
	}
	edges := MatchLegs(legs)
	if len(edges) == 0 {
		return nil
	}
	chains := BuildChains(edges)
	return ClassifyChains(tx, chains, legs)
}
