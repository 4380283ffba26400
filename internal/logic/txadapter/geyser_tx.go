package txadapter

import (
	"fmt"

	"arb-indexer-sol/internal/logic/core"
	"arb-indexer-sol/internal/types"
	"arb-indexer-sol/internal/utils"

	"github.com/mr-tron/base58"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
)

// validateGrpcTx 对 Geyser 推送的交易做基本健壮性校验。
// 投票交易与执行失败的交易在此处直接拒绝，不进入检测流程。
func validateGrpcTx(tx *pb.SubscribeUpdateTransactionInfo) error {
	if tx == nil {
		return fmt.Errorf("nil transaction info")
	}
	if tx.Transaction == nil {
		return fmt.Errorf("missing Transaction field")
	}
	if tx.Transaction.Message == nil {
		return fmt.Errorf("missing Message field in transaction")
	}
	if len(tx.Transaction.Signatures) == 0 {
		return fmt.Errorf("missing transaction signature")
	}
	if len(tx.Transaction.Signatures[0]) != 64 {
		return fmt.Errorf("invalid transaction signature length: %d", len(tx.Transaction.Signatures[0]))
	}
	if tx.IsVote {
		return fmt.Errorf("vote transaction skipped")
	}
	if tx.Meta == nil {
		return fmt.Errorf("missing transaction meta data")
	}
	if tx.Meta.Err != nil {
		return fmt.Errorf("transaction execution failed: %v", tx.Meta.Err)
	}
	return nil
}

// buildGrpcBalances 将 Geyser 的 pre/postTokenBalances 转换为余额快照条目。
// 仅保留标准 SPL Token，顺序与推送顺序一致。
func buildGrpcBalances(resolver *addrResolver, list []*pb.TokenBalance) ([]core.TokenBalanceEntry, error) {
	entries := make([]core.TokenBalanceEntry, 0, len(list))
	for _, tb := range list {
		if tb == nil || tb.UiTokenAmount == nil {
			continue
		}
		if !utils.IsSPLTokenStr(tb.ProgramId) {
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
		amount, err := parseRawAmount(tb.UiTokenAmount.Amount)
		if err != nil {
			return nil, err
		}
		entries = append(entries, core.TokenBalanceEntry{
			Owner:     owner,
			Token:     mint,
			RawAmount: amount,
			Decimals:  uint8(tb.UiTokenAmount.Decimals),
		})
	}
	return entries, nil
}

// AdaptGrpcTx 将 Geyser 推送的交易解析为 TxRecord。
// 与 RPC 路径不同，实时流在此处过滤投票与失败交易，避免无谓的下游计算。
func AdaptGrpcTx(txCtx *core.TxContext, tx *pb.SubscribeUpdateTransactionInfo) (*core.TxRecord, error) {
	if err := validateGrpcTx(tx); err != nil {
		return nil, err
	}

	accountKeys := tx.Transaction.Message.AccountKeys
	if len(accountKeys) == 0 {
		return nil, fmt.Errorf("invalid transaction: empty accountKeys")
	}
	// accountKeys[0] 即 fee payer / 第一个 signer
	signer, err := types.PubkeyFromBytes(accountKeys[0])
	if err != nil {
		return nil, fmt.Errorf("resolve signer: %w", err)
	}

	resolver := newAddrResolver(len(tx.Meta.PreTokenBalances) + len(tx.Meta.PostTokenBalances))

	pre, err := buildGrpcBalances(resolver, tx.Meta.PreTokenBalances)
	if err != nil {
		return nil, fmt.Errorf("pre balances: %w", err)
	}
	post, err := buildGrpcBalances(resolver, tx.Meta.PostTokenBalances)
	if err != nil {
		return nil, fmt.Errorf("post balances: %w", err)
	}

	return &core.TxRecord{
		TxCtx:        txCtx,
		TxIndex:      uint32(tx.Index),
		Signature:    base58.Encode(tx.Transaction.Signatures[0]),
		Signer:       signer,
		PreBalances:  pre,
		PostBalances: post,
	}, nil
}
