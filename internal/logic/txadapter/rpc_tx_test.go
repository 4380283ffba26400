package txadapter

import (
	"testing"

	"arb-indexer-sol/internal/consts"
	"arb-indexer-sol/internal/logic/core"
	"arb-indexer-sol/internal/rpc"
	"arb-indexer-sol/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testOwnerStr  = types.Pubkey{0xaa}.String()
	testSignerStr = types.Pubkey{0xbb}.String()
)

func rpcTokenBalance(owner, mint, amount string, decimals uint8) rpc.TokenBalance {
	return rpc.TokenBalance{
		Mint:      mint,
		Owner:     owner,
		ProgramID: consts.TokenProgramStr,
		UITokenAmount: rpc.UITokenAmount{
			Amount:   amount,
			Decimals: decimals,
		},
	}
}

func testTxCtx() *core.TxContext {
	return &core.TxContext{BlockTime: 1700000000, Slot: 308803801, ParentSlot: 308803800}
}

func TestAdaptRpcTx_Basic(t *testing.T) {
	tx := &rpc.BlockTransaction{
		Transaction: rpc.TransactionAccounts{
			AccountKeys: []rpc.AccountKey{{Pubkey: testSignerStr, Signer: true}},
			Signatures:  []string{"sig-1"},
		},
		Meta: &rpc.TransactionMeta{
			PreTokenBalances: []rpc.TokenBalance{
				rpcTokenBalance(testOwnerStr, consts.WSOLMintStr, "1000000000", 9),
			},
			PostTokenBalances: []rpc.TokenBalance{
				rpcTokenBalance(testOwnerStr, consts.WSOLMintStr, "2000000000", 9),
			},
		},
	}

	record, err := AdaptRpcTx(testTxCtx(), 3, tx)
	require.NoError(t, err)

	assert.Equal(t, "sig-1", record.Signature)
	assert.Equal(t, uint32(3), record.TxIndex)
	assert.Equal(t, testSignerStr, record.Signer.String())
	require.Len(t, record.PreBalances, 1)
	require.Len(t, record.PostBalances, 1)
	assert.Equal(t, consts.WSOLMint, record.PreBalances[0].Token)
	assert.True(t, record.PreBalances[0].RawAmount.Equal(decimal.RequireFromString("1000000000")))
	assert.True(t, record.PostBalances[0].RawAmount.Equal(decimal.RequireFromString("2000000000")))
	assert.Equal(t, uint8(9), record.PostBalances[0].Decimals)
}

// 空 amount（RPC 对已关闭账户返回 null）按 0 处理。
func TestAdaptRpcTx_EmptyAmountIsZero(t *testing.T) {
	tx := &rpc.BlockTransaction{
		Transaction: rpc.TransactionAccounts{
			AccountKeys: []rpc.AccountKey{{Pubkey: testSignerStr, Signer: true}},
			Signatures:  []string{"sig-2"},
		},
		Meta: &rpc.TransactionMeta{
			PostTokenBalances: []rpc.TokenBalance{
				rpcTokenBalance(testOwnerStr, consts.USDCMintStr, "", 6),
			},
		},
	}

	record, err := AdaptRpcTx(testTxCtx(), 0, tx)
	require.NoError(t, err)
	require.Len(t, record.PostBalances, 1)
	assert.True(t, record.PostBalances[0].RawAmount.IsZero())
}

// 非标准 Token 程序的余额条目（模拟账户等）直接跳过。
func TestAdaptRpcTx_SkipsNonSPLPrograms(t *testing.T) {
	nonSPL := rpcTokenBalance(testOwnerStr, consts.USDTMintStr, "500", 6)
	nonSPL.ProgramID = "SomeOtherProgram1111111111111111111111111111"

	tx := &rpc.BlockTransaction{
		Transaction: rpc.TransactionAccounts{
			AccountKeys: []rpc.AccountKey{{Pubkey: testSignerStr, Signer: true}},
			Signatures:  []string{"sig-3"},
		},
		Meta: &rpc.TransactionMeta{
			PostTokenBalances: []rpc.TokenBalance{
				nonSPL,
				rpcTokenBalance(testOwnerStr, consts.USDTMintStr, "500", 6),
			},
		},
	}

	record, err := AdaptRpcTx(testTxCtx(), 0, tx)
	require.NoError(t, err)
	assert.Len(t, record.PostBalances, 1)
}

// 失败交易不过滤：pre/post 相等时下游自然不会产生余额变动。
func TestAdaptRpcTx_KeepsFailedTransactions(t *testing.T) {
	tx := &rpc.BlockTransaction{
		Transaction: rpc.TransactionAccounts{
			AccountKeys: []rpc.AccountKey{{Pubkey: testSignerStr, Signer: true}},
			Signatures:  []string{"sig-4"},
		},
		Meta: &rpc.TransactionMeta{
			Err: map[string]any{"InstructionError": []any{}},
			PreTokenBalances: []rpc.TokenBalance{
				rpcTokenBalance(testOwnerStr, consts.WSOLMintStr, "100", 9),
			},
			PostTokenBalances: []rpc.TokenBalance{
				rpcTokenBalance(testOwnerStr, consts.WSOLMintStr, "100", 9),
			},
		},
	}

	record, err := AdaptRpcTx(testTxCtx(), 0, tx)
	require.NoError(t, err)
	assert.Len(t, record.PreBalances, 1)
	assert.Len(t, record.PostBalances, 1)
}

func TestAdaptRpcTx_Malformed(t *testing.T) {
	t.Run("missing meta", func(t *testing.T) {
		tx := &rpc.BlockTransaction{
			Transaction: rpc.TransactionAccounts{
				AccountKeys: []rpc.AccountKey{{Pubkey: testSignerStr}},
				Signatures:  []string{"sig"},
			},
		}
		_, err := AdaptRpcTx(testTxCtx(), 0, tx)
		assert.Error(t, err)
	})

	t.Run("missing signature", func(t *testing.T) {
		tx := &rpc.BlockTransaction{
			Transaction: rpc.TransactionAccounts{
				AccountKeys: []rpc.AccountKey{{Pubkey: testSignerStr}},
			},
			Meta: &rpc.TransactionMeta{},
		}
		_, err := AdaptRpcTx(testTxCtx(), 0, tx)
		assert.Error(t, err)
	})

	t.Run("invalid owner base58", func(t *testing.T) {
		tx := &rpc.BlockTransaction{
			Transaction: rpc.TransactionAccounts{
				AccountKeys: []rpc.AccountKey{{Pubkey: testSignerStr}},
				Signatures:  []string{"sig"},
			},
			Meta: &rpc.TransactionMeta{
				PostTokenBalances: []rpc.TokenBalance{
					rpcTokenBalance("not-base58-0OIl", consts.WSOLMintStr, "1", 9),
				},
			},
		}
		_, err := AdaptRpcTx(testTxCtx(), 0, tx)
		assert.Error(t, err)
	})

	t.Run("malformed amount", func(t *testing.T) {
		tx := &rpc.BlockTransaction{
			Transaction: rpc.TransactionAccounts{
				AccountKeys: []rpc.AccountKey{{Pubkey: testSignerStr}},
				Signatures:  []string{"sig"},
			},
			Meta: &rpc.TransactionMeta{
				PostTokenBalances: []rpc.TokenBalance{
					rpcTokenBalance(testOwnerStr, consts.WSOLMintStr, "12x34", 9),
				},
			},
		}
		_, err := AdaptRpcTx(testTxCtx(), 0, tx)
		assert.Error(t, err)
	})
}

// resolver 对同一交易内重复出现的地址只解码一次，且结果一致。
func TestAddrResolver_CacheConsistency(t *testing.T) {
	r := newAddrResolver(4)

	first, err := r.resolve(testOwnerStr)
	require.NoError(t, err)
	second, err := r.resolve(testOwnerStr)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, r.cache, 1)

	// 常见报价币走快路径，不进缓存
	wsol, err := r.resolve(consts.WSOLMintStr)
	require.NoError(t, err)
	assert.Equal(t, consts.WSOLMint, wsol)
	assert.Len(t, r.cache, 1)
}
