package scanner

import (
	"testing"

	"arb-indexer-sol/internal/consts"
	"arb-indexer-sol/internal/rpc"
	"arb-indexer-sol/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ownerA = types.Pubkey{0x0a}.String()
	ownerB = types.Pubkey{0x0b}.String()
	signer = types.Pubkey{0x5e}.String()
)

func balance(owner, mint, amount string) rpc.TokenBalance {
	return rpc.TokenBalance{
		Mint:      mint,
		Owner:     owner,
		ProgramID: consts.TokenProgramStr,
		UITokenAmount: rpc.UITokenAmount{
			Amount:   amount,
			Decimals: 0,
		},
	}
}

// 一笔 A/B 互换的套利交易：B 给出 token X 100、收回 token Y 60，
// A 给出 Y 50、收到 X 100，恰好构成一条可归并的转移边。
func arbitrageTx(sig string) rpc.BlockTransaction {
	return rpc.BlockTransaction{
		Transaction: rpc.TransactionAccounts{
			AccountKeys: []rpc.AccountKey{{Pubkey: signer, Signer: true}},
			Signatures:  []string{sig},
		},
		Meta: &rpc.TransactionMeta{
			PreTokenBalances: []rpc.TokenBalance{
				balance(ownerA, consts.WSOLMintStr, "0"),
				balance(ownerA, consts.USDCMintStr, "100"),
				balance(ownerB, consts.WSOLMintStr, "150"),
				balance(ownerB, consts.USDCMintStr, "0"),
			},
			PostTokenBalances: []rpc.TokenBalance{
				balance(ownerA, consts.WSOLMintStr, "100"),
				balance(ownerA, consts.USDCMintStr, "50"),
				balance(ownerB, consts.WSOLMintStr, "50"),
				balance(ownerB, consts.USDCMintStr, "60"),
			},
		},
	}
}

func plainTx(sig string) rpc.BlockTransaction {
	return rpc.BlockTransaction{
		Transaction: rpc.TransactionAccounts{
			AccountKeys: []rpc.AccountKey{{Pubkey: signer, Signer: true}},
			Signatures:  []string{sig},
		},
		Meta: &rpc.TransactionMeta{},
	}
}

func testBlock(txs ...rpc.BlockTransaction) *rpc.Block {
	return &rpc.Block{
		Blockhash:    types.Hash{0xff}.String(),
		ParentSlot:   308803800,
		BlockTime:    1700000000,
		Transactions: txs,
	}
}

func TestDetectBlock_EmitsRecord(t *testing.T) {
	block := testBlock(arbitrageTx("sig-arb"))

	records, err := DetectBlock(308803801, block)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "sig-arb", r.Signature)
	assert.Equal(t, signer, r.Beneficiary.String())
	assert.Equal(t, consts.USDCMint, r.Token)
	// tail 给出 50，head 收回 60
	assert.True(t, r.Amount.Equal(decimal.NewFromInt(-10)))
}

func TestDetectBlock_EmptyAndPlainTxs(t *testing.T) {
	records, err := DetectBlock(1, testBlock())
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = DetectBlock(2, testBlock(plainTx("sig-1"), plainTx("sig-2")))
	require.NoError(t, err)
	assert.Empty(t, records)
}

// 多笔交易的结果按交易顺序展平。
func TestDetectBlock_PreservesTxOrder(t *testing.T) {
	block := testBlock(
		arbitrageTx("sig-1"),
		plainTx("sig-2"),
		arbitrageTx("sig-3"),
	)

	records, err := DetectBlock(3, block)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "sig-1", records[0].Signature)
	assert.Equal(t, "sig-3", records[1].Signature)
}

// 坏交易仅跳过，不影响同区块其他交易。
func TestDetectBlock_SkipsMalformedTx(t *testing.T) {
	bad := plainTx("sig-bad")
	bad.Transaction.Signatures = nil

	block := testBlock(bad, arbitrageTx("sig-good"))
	records, err := DetectBlock(4, block)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "sig-good", records[0].Signature)
}
