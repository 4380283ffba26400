package report

import (
	"fmt"
	"io"
	"sort"

	"arb-indexer-sol/internal/logic/core"
	"arb-indexer-sol/pkg/logger"
)

// SignerTotal 表示某个签名者的累计 USD 收益。
type SignerTotal struct {
	Signer string
	Dollar float64
}

// Summary 是一次扫描的收益统计结果。
type Summary struct {
	Count       int     // 参与统计的记录数（未知 token 不计入）
	TotalDollar float64 // 累计 USD
	Biggest     string  // 单笔最大收益的描述，无正收益记录时为空
	TopSigners  []SignerTotal
}

// Summarize 对收集到的记录按 USD 估值做聚合统计。
// 未知 token 的记录仅记错误日志并跳过聚合，CSV 中仍保留原始行。
func Summarize(records []*core.ArbitrageRecord, valuer *Valuer, topN int) *Summary {
	s := &Summary{}
	perSigner := make(map[string]float64)

	var biggestValue float64
	for _, r := range records {
		value, ok := valuer.USDValue(r.Token, r.Amount)
		if !ok {
			logger.Errorf("[report] 未知 token %s，交易 %s 不计入收益统计", r.Token, r.Signature)
			continue
		}

		signer := r.Beneficiary.String()
		if value > biggestValue {
			biggestValue = value
			s.Biggest = fmt.Sprintf("%s made $%v in transaction %s with %s of %s",
				signer, value, r.Signature, r.Amount, r.Token)
		}
		s.Count++
		s.TotalDollar += value
		perSigner[signer] += value
	}

	// 按累计收益降序，收益相同时按地址字典序，保证输出稳定
	totals := make([]SignerTotal, 0, len(perSigner))
	for signer, dollar := range perSigner {
		totals = append(totals, SignerTotal{Signer: signer, Dollar: dollar})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Dollar != totals[j].Dollar {
			return totals[i].Dollar > totals[j].Dollar
		}
		return totals[i].Signer < totals[j].Signer
	})
	if topN > 0 && len(totals) > topN {
		totals = totals[:topN]
	}
	s.TopSigners = totals
	return s
}

// Print 以人类可读的形式输出统计结果。
func (s *Summary) Print(w io.Writer, topN int) {
	if s.Count > 0 {
		fmt.Fprintf(w, "Total %d transactions made $%v, an average of $%v\n",
			s.Count, s.TotalDollar, s.TotalDollar/float64(s.Count))
	} else {
		fmt.Fprintln(w, "Total 0 transactions")
	}
	if s.Biggest != "" {
		fmt.Fprintln(w, "Biggest transaction:", s.Biggest)
	}
	fmt.Fprintf(w, "Top %d traders:\n", topN)
	for _, t := range s.TopSigners {
		fmt.Fprintf(w, "%s made $%v\n", t.Signer, t.Dollar)
	}
}
