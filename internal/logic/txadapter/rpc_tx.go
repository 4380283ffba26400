package txadapter

import (
	"fmt"

	"arb-indexer-sol/internal/logic/core"
	"arb-indexer-sol/internal/rpc"
	"arb-indexer-sol/internal/types"
	"arb-indexer-sol/internal/utils"

	"github.com/shopspring/decimal"
)

// parseRawAmount 解析最小单位整数余额字符串。
// RPC 对已关闭账户可能返回空串（JSON null 反序列化结果），按 0 处理。
func parseRawAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid raw amount %q: %w", s, err)
	}
	return d, nil
}

// buildRpcBalances 将 accounts 档位的 tokenBalances 转换为余额快照条目。
// 仅保留标准 SPL Token（TokenProgram / Token2022），顺序与 RPC 返回一致。
func buildRpcBalances(resolver *addrResolver, list []rpc.TokenBalance) ([]core.TokenBalanceEntry, error) {
	entries := make([]core.TokenBalanceEntry, 0, len(list))
	for _, tb := range list {
		if !utils.IsSPLTokenStr(tb.ProgramID) {
			continue
		}
		owner, err := resolver.resolve(tb.Owner)
		if err != nil {
			return nil, fmt.Errorf("resolve owner: %w", err)
		}
		mint, err := resolver.resolve(tb.Mint)
		if err != nil {
			return nil, fmt.Errorf("resolve mint: %w", err)
		}
		amount, err := parseRawAmount(tb.UITokenAmount.Amount)
		if err != nil {
			return nil, err
		}
		entries = append(entries, core.TokenBalanceEntry{
			Owner:     owner,
			Token:     mint,
			RawAmount: amount,
			Decimals:  tb.UITokenAmount.Decimals,
		})
	}
	return entries, nil
}

// AdaptRpcTx 将 getBlock(transactionDetails=accounts) 返回的交易解析为 TxRecord。
// accounts 档位不含指令，足以覆盖余额快照检测所需的全部字段。
//
// 注意：失败交易（meta.err != null）同样保留——失败交易的 pre/post 余额相等，
// 不会产生余额变动，无需在此处提前过滤。
func AdaptRpcTx(txCtx *core.TxContext, txIndex uint32, tx *rpc.BlockTransaction) (*core.TxRecord, error) {
	if tx.Meta == nil {
		return nil, fmt.Errorf("transaction missing meta")
	}
	if len(tx.Transaction.Signatures) == 0 || len(tx.Transaction.AccountKeys) == 0 {
		return nil, fmt.Errorf("invalid transaction: missing signature or accountKeys")
	}

	// accounts 档位中 accountKeys[0] 即 fee payer / 第一个 signer
	signer, err := types.TryPubkeyFromBase58(tx.Transaction.AccountKeys[0].Pubkey)
	if err != nil {
		return nil, fmt.Errorf("resolve signer: %w", err)
	}

	// 单笔交易内 owner/mint 高度重复，resolver 按交易粒度复用
	resolver := newAddrResolver(len(tx.Meta.PreTokenBalances) + len(tx.Meta.PostTokenBalances))

	pre, err := buildRpcBalances(resolver, tx.Meta.PreTokenBalances)
	if err != nil {
		return nil, fmt.Errorf("pre balances: %w", err)
	}
	post, err := buildRpcBalances(resolver, tx.Meta.PostTokenBalances)
	if err != nil {
		return nil, fmt.Errorf("post balances: %w", err)
	}

	return &core.TxRecord{
		TxCtx:        txCtx,
		TxIndex:      txIndex,
		Signature:    tx.Transaction.Signatures[0],
		Signer:       signer,
		PreBalances:  pre,
		PostBalances: post,
	}, nil
}
