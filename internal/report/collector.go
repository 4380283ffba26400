// Package report 收集检测到的套利记录，落盘 CSV 并输出收益统计。
package report

import (
	"sync"

	"arb-indexer-sol/internal/logic/core"
)

// Collector 按产出顺序收集套利记录。
// 回扫路径按 slot 顺序串行写入，实时路径可能并发，统一加锁。
type Collector struct {
	mu      sync.Mutex
	records []*core.ArbitrageRecord
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Add(records ...*core.ArbitrageRecord) {
	if len(records) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, records...)
}

// Records 返回当前快照（拷贝），调用方可安全遍历。
func (c *Collector) Records() []*core.ArbitrageRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*core.ArbitrageRecord, len(c.records))
	copy(out, c.records)
	return out
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
