package core

import (
	"arb-indexer-sol/internal/types"

	"github.com/shopspring/decimal"
)

// ArbitrageRecord 表示一条已识别的套利事件。
// Amount 为链路回流 token 的净结余（可能为负，表示该链路实际亏损）。
type ArbitrageRecord struct {
	Signature   string          // 交易签名
	Beneficiary types.Pubkey    // 受益人（交易的第一个签名者）
	Token       types.Pubkey    // 回流 token mint
	Amount      decimal.Decimal // 净结余（已按 decimals 换算）
}
