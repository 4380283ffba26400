package detector

import (
	"arb-indexer-sol/internal/types"
)

// Chain 表示一条合并完成的转移链，仅保留首尾 owner 用于后续分类。
type Chain struct {
	Head types.Pubkey
	Tail types.Pubkey
}

// BuildChains 将转移边贪心合并为最长链。
//
// 算法：每次取工作集中最后一条未消费的边开启新链，然后反复按当前列表顺序
// 扫描剩余边，找到第一条可以接在链尾（source == tail）或接在链头
// （dest == head）的边并入链；一轮扫描无可扩展时链即定型。
// 每条边恰好被消费一次。
//
// 同一轮同时存在多个可扩展候选时，列表顺序在前者胜出 —— 不做前瞻、
// 不做回溯。转移图存在分叉或并行路径时链形取决于边的顺序，这是约定行为。
// 自环边（source == dest）开链后首尾相等、无法扩展，立即定型。
//
// 边集合用"消费标记"数组建模而非原地删除，扫描语义与可变列表一致，
// 但不依赖具体容器的删除/迭代细节。
func BuildChains(edges []TransferEdge) []Chain {
	consumed := make([]bool, len(edges))
	remaining := len(edges)
	chains := make([]Chain, 0, len(edges))

	for remaining > 0 {
		// 从末尾取一条未消费的边作为新链起点
		start := -1
		for i := len(edges) - 1; i >= 0; i-- {
			if !consumed[i] {
				start = i
				break
			}
		}
		consumed[start] = true
		remaining--
		head, tail := edges[start].Source, edges[start].Dest

		for {
			found := false
			for i := range edges {
				if consumed[i] {
					continue
				}
				if edges[i].Source == tail {
					tail = edges[i].Dest
					found = true
				} else if edges[i].Dest == head {
					head = edges[i].Source
					found = true
				}
				if found {
					consumed[i] = true
					remaining--
					break
				}
			}
			if !found {
				chains = append(chains, Chain{Head: head, Tail: tail})
				break
			}
		}
	}
	return chains
}
