package txadapter

import (
	"testing"

	"arb-indexer-sol/internal/consts"

	"github.com/mr-tron/base58"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grpcTokenBalance(owner, mint, amount string, decimals uint32) *pb.TokenBalance {
	return &pb.TokenBalance{
		Mint:      mint,
		Owner:     owner,
		ProgramId: consts.TokenProgramStr,
		UiTokenAmount: &pb.UiTokenAmount{
			Amount:   amount,
			Decimals: decimals,
		},
	}
}

func grpcTx(signerByte byte) *pb.SubscribeUpdateTransactionInfo {
	signer := make([]byte, 32)
	signer[0] = signerByte
	sig := make([]byte, 64)
	sig[0] = 0xab

	return &pb.SubscribeUpdateTransactionInfo{
		Index: 7,
		Transaction: &pb.Transaction{
			Signatures: [][]byte{sig},
			Message: &pb.Message{
				Header:      &pb.MessageHeader{NumRequiredSignatures: 1},
				AccountKeys: [][]byte{signer},
			},
		},
		Meta: &pb.TransactionStatusMeta{
			PreTokenBalances: []*pb.TokenBalance{
				grpcTokenBalance(testOwnerStr, consts.WSOLMintStr, "1000000000", 9),
			},
			PostTokenBalances: []*pb.TokenBalance{
				grpcTokenBalance(testOwnerStr, consts.WSOLMintStr, "3000000000", 9),
			},
		},
	}
}

func TestAdaptGrpcTx_Basic(t *testing.T) {
	tx := grpcTx(0x11)

	record, err := AdaptGrpcTx(testTxCtx(), tx)
	require.NoError(t, err)

	assert.Equal(t, uint32(7), record.TxIndex)
	assert.Equal(t, base58.Encode(tx.Transaction.Signatures[0]), record.Signature)
	assert.Equal(t, byte(0x11), record.Signer[0])
	require.Len(t, record.PreBalances, 1)
	require.Len(t, record.PostBalances, 1)
	assert.Equal(t, consts.WSOLMint, record.PreBalances[0].Token)
	assert.Equal(t, uint8(9), record.PreBalances[0].Decimals)
}

// 投票交易与失败交易在适配阶段即被拒绝。
func TestAdaptGrpcTx_RejectsVoteAndFailed(t *testing.T) {
	t.Run("vote", func(t *testing.T) {
		tx := grpcTx(0x11)
		tx.IsVote = true
		_, err := AdaptGrpcTx(testTxCtx(), tx)
		assert.Error(t, err)
	})

	t.Run("failed", func(t *testing.T) {
		tx := grpcTx(0x11)
		tx.Meta.Err = &pb.TransactionError{Err: []byte{1}}
		_, err := AdaptGrpcTx(testTxCtx(), tx)
		assert.Error(t, err)
	})
}

func TestAdaptGrpcTx_Malformed(t *testing.T) {
	t.Run("nil tx", func(t *testing.T) {
		_, err := AdaptGrpcTx(testTxCtx(), nil)
		assert.Error(t, err)
	})

	t.Run("missing message", func(t *testing.T) {
		tx := grpcTx(0x11)
		tx.Transaction.Message = nil
		_, err := AdaptGrpcTx(testTxCtx(), tx)
		assert.Error(t, err)
	})

	t.Run("short signature", func(t *testing.T) {
		tx := grpcTx(0x11)
		tx.Transaction.Signatures = [][]byte{{1, 2, 3}}
		_, err := AdaptGrpcTx(testTxCtx(), tx)
		assert.Error(t, err)
	})

	t.Run("malformed amount", func(t *testing.T) {
		tx := grpcTx(0x11)
		tx.Meta.PostTokenBalances[0].UiTokenAmount.Amount = "abc"
		_, err := AdaptGrpcTx(testTxCtx(), tx)
		assert.Error(t, err)
	})
}

// nil 条目与非 SPL Token 程序的条目直接跳过。
func TestAdaptGrpcTx_SkipsInvalidBalanceEntries(t *testing.T) {
	tx := grpcTx(0x11)
	nonSPL := grpcTokenBalance(testOwnerStr, consts.USDCMintStr, "42", 6)
	nonSPL.ProgramId = "Vote111111111111111111111111111111111111111"
	tx.Meta.PostTokenBalances = append(tx.Meta.PostTokenBalances, nil, nonSPL)

	record, err := AdaptGrpcTx(testTxCtx(), tx)
	require.NoError(t, err)
	assert.Len(t, record.PostBalances, 1)
}
