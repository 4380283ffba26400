package detector

import (
	"arb-indexer-sol/internal/logic/core"
	"arb-indexer-sol/internal/types"

	"github.com/shopspring/decimal"
)

// TokenDelta 表示某 owner 名下单个 mint 的净余额变化（已按 decimals 换算）。
type TokenDelta struct {
	Token  types.Pubkey
	Amount decimal.Decimal
}

// OwnerDelta 表示单个 owner 在本笔交易中的全部非零余额变化。
// Deltas 按 mint 首次出现的顺序排列，保证同一输入下产出确定。
type OwnerDelta struct {
	Owner  types.Pubkey
	Deltas []TokenDelta
}

// Get 返回指定 mint 的变化量，不存在时返回零值。
func (d *OwnerDelta) Get(token types.Pubkey) (decimal.Decimal, bool) {
	for _, td := range d.Deltas {
		if td.Token == token {
			return td.Amount, true
		}
	}
	return decimal.Decimal{}, false
}

// ownerAcc 是单个 owner 的原始金额累加器（最小单位，未换算）。
type ownerAcc struct {
	owner  types.Pubkey
	tokens []types.Pubkey // mint 首次出现顺序
	sums   map[types.Pubkey]decimal.Decimal
}

func (a *ownerAcc) add(token types.Pubkey, amount decimal.Decimal) {
	if _, ok := a.sums[token]; !ok {
		a.tokens = append(a.tokens, token)
	}
	a.sums[token] = a.sums[token].Add(amount)
}

// ExtractBalanceChanges 将交易的 pre/post 余额快照聚合为 per-owner / per-mint 的净变化量：
//   - post 正向累加、pre 负向累加（最小单位整数）；
//   - 每个 mint 记录其 decimals，重复出现时直接覆盖（假设同一交易内 mint 精度一致，不做冲突校验）；
//   - 累加完成后按 10^decimals 换算，丢弃零值条目与空 owner；
//   - 最后整体移除 signer 自身的条目 —— signer 是受益人，不是兑换腿的对手方。
//
// 输出顺序为 owner 在 post→pre 扫描中的首次出现顺序。
func ExtractBalanceChanges(tx *core.TxRecord) []OwnerDelta {
	accs := make(map[types.Pubkey]*ownerAcc)
	ownerOrder := make([]types.Pubkey, 0, len(tx.PostBalances))
	decimalsByMint := make(map[types.Pubkey]uint8)

	accumulate := func(entry *core.TokenBalanceEntry, sign int64) {
		acc, ok := accs[entry.Owner]
		if !ok {
			acc = &ownerAcc{
				owner: entry.Owner,
				sums:  make(map[types.Pubkey]decimal.Decimal, 2),
			}
			accs[entry.Owner] = acc
			ownerOrder = append(ownerOrder, entry.Owner)
		}
		acc.add(entry.Token, entry.RawAmount.Mul(decimal.NewFromInt(sign)))
		decimalsByMint[entry.Token] = entry.Decimals
	}

	for i := range tx.PostBalances {
		accumulate(&tx.PostBalances[i], 1)
	}
	for i := range tx.PreBalances {
		accumulate(&tx.PreBalances[i], -1)
	}

	result := make([]OwnerDelta, 0, len(ownerOrder))
	for _, owner := range ownerOrder {
		if owner == tx.Signer {
			continue
		}
		acc := accs[owner]
		deltas := make([]TokenDelta, 0, len(acc.tokens))
		for _, token := range acc.tokens {
			sum := acc.sums[token]
			if sum.IsZero() {
				continue
			}
			deltas = append(deltas, TokenDelta{
				Token:  token,
				Amount: sum.Shift(-int32(decimalsByMint[token])),
			})
		}
		if len(deltas) == 0 {
			continue
		}
		result = append(result, OwnerDelta{Owner: owner, Deltas: deltas})
	}
	return result
}
