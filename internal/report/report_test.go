package report

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"arb-indexer-sol/internal/cache"
	"arb-indexer-sol/internal/consts"
	"arb-indexer-sol/internal/logic/core"
	"arb-indexer-sol/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(sig string, beneficiary types.Pubkey, token types.Pubkey, amount string) *core.ArbitrageRecord {
	return &core.ArbitrageRecord{
		Signature:   sig,
		Beneficiary: beneficiary,
		Token:       token,
		Amount:      decimal.RequireFromString(amount),
	}
}

func TestCollector_OrderAndSnapshot(t *testing.T) {
	c := NewCollector()
	a := record("sig-a", types.Pubkey{1}, consts.WSOLMint, "1")
	b := record("sig-b", types.Pubkey{2}, consts.USDCMint, "2")

	c.Add(a)
	c.Add(b)

	records := c.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "sig-a", records[0].Signature)
	assert.Equal(t, "sig-b", records[1].Signature)

	// 快照不受后续 Add 影响
	c.Add(record("sig-c", types.Pubkey{3}, consts.WSOLMint, "3"))
	assert.Len(t, records, 2)
	assert.Equal(t, 3, c.Len())
}

func TestCollector_ConcurrentAdd(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Add(record("sig", types.Pubkey{9}, consts.WSOLMint, "1"))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, c.Len())
}

func TestWriteCSV(t *testing.T) {
	records := []*core.ArbitrageRecord{
		record("sig-a", types.Pubkey{1}, consts.WSOLMint, "1.5"),
		record("sig-b", types.Pubkey{2}, consts.USDCMint, "-0.25"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "signature,beneficiary,mint,amount", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "sig-a,"))
	assert.True(t, strings.HasSuffix(lines[1], ",1.5"))
	assert.True(t, strings.HasSuffix(lines[2], ",-0.25"))
}

func TestValuer_StaticPrices(t *testing.T) {
	v := NewValuer(nil)

	value, ok := v.USDValue(consts.WSOLMint, decimal.RequireFromString("2"))
	require.True(t, ok)
	assert.InDelta(t, 400.0, value, 1e-9)

	value, ok = v.USDValue(consts.USDCMint, decimal.RequireFromString("3"))
	require.True(t, ok)
	assert.InDelta(t, 3.0, value, 1e-9)

	_, ok = v.USDValue(types.Pubkey{0x42}, decimal.NewFromInt(1))
	assert.False(t, ok)
}

// 价格缓存有最新价时覆盖静态表。
func TestValuer_PriceCacheOverride(t *testing.T) {
	pc := cache.NewPriceCache()
	pc.Insert(map[types.Pubkey]cache.TokenPricePoint{
		consts.WSOLMint: {Timestamp: time.Now().Unix(), PriceUsd: 150.0},
	})

	v := NewValuer(pc)
	value, ok := v.USDValue(consts.WSOLMint, decimal.NewFromInt(1))
	require.True(t, ok)
	assert.InDelta(t, 150.0, value, 1e-9)

	// 缓存没有的 token 回落到静态表
	value, ok = v.USDValue(consts.USDTMint, decimal.NewFromInt(2))
	require.True(t, ok)
	assert.InDelta(t, 2.0, value, 1e-9)
}

func TestSummarize(t *testing.T) {
	signerA, signerB := types.Pubkey{1}, types.Pubkey{2}
	unknown := types.Pubkey{0x99}
	records := []*core.ArbitrageRecord{
		record("sig-1", signerA, consts.WSOLMint, "1"),  // $200
		record("sig-2", signerA, consts.USDCMint, "50"), // $50
		record("sig-3", signerB, consts.USDCMint, "30"), // $30
		record("sig-4", signerB, unknown, "999"),        // 未知 token，跳过
	}

	s := Summarize(records, NewValuer(nil), 10)

	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 280.0, s.TotalDollar, 1e-9)
	assert.Contains(t, s.Biggest, "sig-1")

	require.Len(t, s.TopSigners, 2)
	assert.Equal(t, signerA.String(), s.TopSigners[0].Signer)
	assert.InDelta(t, 250.0, s.TopSigners[0].Dollar, 1e-9)
	assert.InDelta(t, 30.0, s.TopSigners[1].Dollar, 1e-9)
}

func TestSummarize_TopNTruncation(t *testing.T) {
	var records []*core.ArbitrageRecord
	for i := byte(1); i <= 5; i++ {
		records = append(records, record("sig", types.Pubkey{i}, consts.USDCMint, decimal.NewFromInt(int64(i)).String()))
	}

	s := Summarize(records, NewValuer(nil), 3)
	require.Len(t, s.TopSigners, 3)
	// 降序排列
	assert.True(t, s.TopSigners[0].Dollar >= s.TopSigners[1].Dollar)
	assert.True(t, s.TopSigners[1].Dollar >= s.TopSigners[2].Dollar)
}

// 负收益记录计入总额，但不会成为 Biggest。
func TestSummarize_NegativeProfit(t *testing.T) {
	records := []*core.ArbitrageRecord{
		record("sig-neg", types.Pubkey{1}, consts.USDCMint, "-10"),
	}
	s := Summarize(records, NewValuer(nil), 10)
	assert.Equal(t, 1, s.Count)
	assert.InDelta(t, -10.0, s.TotalDollar, 1e-9)
	assert.Empty(t, s.Biggest)
}

func TestSummary_Print(t *testing.T) {
	records := []*core.ArbitrageRecord{
		record("sig-1", types.Pubkey{1}, consts.USDCMint, "10"),
	}
	s := Summarize(records, NewValuer(nil), 5)

	var buf bytes.Buffer
	s.Print(&buf, 5)
	out := buf.String()
	assert.Contains(t, out, "Total 1 transactions")
	assert.Contains(t, out, "Biggest transaction:")
	assert.Contains(t, out, "Top 5 traders:")
}
