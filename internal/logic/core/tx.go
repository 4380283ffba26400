package core

import (
	"arb-indexer-sol/internal/types"

	"github.com/shopspring/decimal"
)

// TxContext 表示交易所属区块的上下文信息。
type TxContext struct {
	BlockTime  int64      // 区块时间戳（Unix 秒）
	Slot       uint64     // 当前 Slot（Solana 高度单位）
	ParentSlot uint64     // 父 Slot（用于分叉检测）
	BlockHash  types.Hash // 区块哈希（辅助去重与 fork 检测）
}

// TokenBalanceEntry 表示某账户在交易执行前或执行后的一条 SPL Token 余额快照。
// 同一 owner/mint 组合可能只出现在 pre 或 post 其中一侧。
type TokenBalanceEntry struct {
	Owner     types.Pubkey    // 余额所属账户
	Token     types.Pubkey    // token mint
	RawAmount decimal.Decimal // 最小单位的整数余额；RPC 中 amount 为 null/空串时为 0
	Decimals  uint8           // 该 mint 的精度
}

// TxRecord 是套利检测流程的核心输入结构：单笔交易的余额快照视图。
// 只保留检测所需的字段，指令与日志在上游适配阶段即被丢弃。
type TxRecord struct {
	TxCtx     *TxContext
	TxIndex   uint32       // 当前交易在区块中的序号
	Signature string       // 交易签名（base58）
	Signer    types.Pubkey // 第一个签名者，视为潜在套利受益人

	PreBalances  []TokenBalanceEntry // 交易执行前余额快照
	PostBalances []TokenBalanceEntry // 交易执行后余额快照
}
