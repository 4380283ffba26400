package stream

import (
	"context"
	"sort"
	"time"

	"arb-indexer-sol/internal/rpc"
	"arb-indexer-sol/pkg/logger"
)

// SlotRange 表示一段待核对的 slot 区间（闭区间）。
type SlotRange struct {
	From     uint64
	To       uint64
	SubmitAt time.Time
}

// SlotChecker 核对实时流中缺失的 slot：延迟一段时间后用 getBlocks
// 区分"确认空块"与"漏扫块"，漏扫块交给 backfill 回调走 JSON-RPC
// 回扫补齐，结果与实时流进入相同的下游。
type SlotChecker struct {
	client   *rpc.Client
	backfill func(ctx context.Context, slot uint64) error
	rangeCh  chan SlotRange
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewSlotChecker(client *rpc.Client, backfill func(ctx context.Context, slot uint64) error) *SlotChecker {
	ctx, cancel := context.WithCancel(context.Background())
	return &SlotChecker{
		client:   client,
		backfill: backfill,
		rangeCh:  make(chan SlotRange, 300),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *SlotChecker) Start() {
	go s.run()
}

func (s *SlotChecker) Stop() {
	s.cancel()
}

// Submit 提交一个 slot 范围进行空块检测，闭区间 [from, to]
func (s *SlotChecker) Submit(from, to uint64) {
	if from > to {
		logger.Warnf("[SlotChecker] invalid slot range: from (%d) > to (%d)", from, to)
		return
	}

	r := SlotRange{
		From:     from,
		To:       to,
		SubmitAt: time.Now(),
	}
	select {
	case s.rangeCh <- r:
	default:
		logger.Warnf("[SlotChecker] slot range channel full, dropped: [%d, %d]", from, to)
	}
}

func (s *SlotChecker) run() {
	const maxPendingRanges = 200
	const delayBeforeCheck = 30 * time.Second // 等 slot 在 RPC 侧确认后再核对

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	var ranges, pending []SlotRange

	for {
		select {
		case <-s.ctx.Done():
			logger.Infof("[SlotChecker] stopped")
			return

		case r := <-s.rangeCh:
			if len(ranges) >= maxPendingRanges {
				logger.Warnf("[SlotChecker] too many pending ranges (%d), drop [%d, %d]",
					len(ranges), r.From, r.To)
			} else {
				ranges = append(ranges, r)
			}

		case <-ticker.C:
			drainTicker(ticker)

			var ready []SlotRange
			pending = pending[:0]
			now := time.Now()
			for _, r := range ranges {
				if now.Sub(r.SubmitAt) >= delayBeforeCheck {
					ready = append(ready, r)
				} else {
					pending = append(pending, r)
				}
			}
			if len(ready) == 0 {
				continue
			}

			// 串行执行，防止 goroutine 累积
			s.checkSlotRanges(ready)
			ranges = append(ranges[:0], pending...)
		}
	}
}

func drainTicker(t *time.Ticker) {
	for {
		select {
		case <-t.C:
		default:
			return
		}
	}
}

// checkSlotRanges 用 getBlocks 核对每段区间：结果中缺席的 slot 是确认空块，
// 在结果中但从未经过实时流处理的 slot 逐个回扫补齐。
func (s *SlotChecker) checkSlotRanges(ranges []SlotRange) {
	merged := mergeRanges(ranges)
	if len(merged) == 0 {
		return
	}

	maxEmptySlots := 0
	for _, r := range ranges {
		maxEmptySlots += int(r.To - r.From + 1)
	}
	confirmedEmptySlots := make(map[uint64]struct{}, maxEmptySlots)

	// 记录查询失败的范围，其内的 slot 状态未知，不能当作漏扫回扫
	failedRanges := make([]SlotRange, 0)

	for _, r := range merged {
		select {
		case <-s.ctx.Done():
			logger.Infof("[SlotChecker] stopped while checking slot range [%d, %d]", r.From, r.To)
			return
		default:
		}

		blocks, err := s.getBlocks(r.From, r.To)
		if err != nil {
			logger.Warnf("[SlotChecker] getBlocks [%d, %d] failed: %v", r.From, r.To, err)
			failedRanges = append(failedRanges, r)
			continue
		}

		fillEmptySlots(r.From, r.To, blocks, confirmedEmptySlots)
	}

	for _, r := range ranges {
		for slot := r.From; slot <= r.To; slot++ {
			// merge 后的 range 不会有交集且已排序，可以直接二分查找
			if len(failedRanges) > 0 && slotInFailedRanges(slot, failedRanges) {
				continue
			}

			if _, ok := confirmedEmptySlots[slot]; ok {
				logger.Infof("[SlotChecker] slot %d is confirmed empty", slot)
				continue
			}

			s.backfillSlot(slot)
		}
	}
}

func (s *SlotChecker) backfillSlot(slot uint64) {
	ctx, cancel := context.WithTimeout(s.ctx, time.Minute)
	defer cancel()

	if err := s.backfill(ctx, slot); err != nil {
		logger.Errorf("[SlotChecker] slot %d 回扫补齐失败: %v", slot, err)
	}
}

func (s *SlotChecker) getBlocks(from, to uint64) ([]uint64, error) {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()
	return s.client.GetBlocks(ctx, from, to)
}

func slotInFailedRanges(slot uint64, failedRanges []SlotRange) bool {
	// 二分查找：找第一个 From > slot 的范围
	i := sort.Search(len(failedRanges), func(i int) bool {
		return failedRanges[i].From > slot
	})
	if i == 0 {
		return false
	}
	r := failedRanges[i-1]
	return slot >= r.From && slot <= r.To
}

// mergeRanges 拆分并合并 SlotRange，使每段长度不超过 maxRangeSize，
// 且尽可能合并相邻段，控制单次 getBlocks 的查询规模。
func mergeRanges(ranges []SlotRange) []SlotRange {
	if len(ranges) == 0 {
		return nil
	}

	const maxRangeSize = 10000

	// 拆分所有 SlotRange，使每个段的长度不超过 maxRangeSize
	newRanges := make([]SlotRange, 0, len(ranges))
	for _, r := range ranges {
		from := r.From
		for {
			maxTo := from + maxRangeSize - 1
			if r.To > maxTo {
				newRanges = append(newRanges, SlotRange{From: from, To: maxTo, SubmitAt: r.SubmitAt})
				from = maxTo + 1
				continue
			}
			newRanges = append(newRanges, SlotRange{From: from, To: r.To, SubmitAt: r.SubmitAt})
			break
		}
	}

	// 按 From 升序排序；From 相同时按 To 升序，方便后续合并
	sort.Slice(newRanges, func(i, j int) bool {
		if newRanges[i].From == newRanges[j].From {
			return newRanges[i].To < newRanges[j].To
		}
		return newRanges[i].From < newRanges[j].From
	})

	// 合并相邻段，合并后的段仍需满足 maxRangeSize 限制
	merged := make([]SlotRange, 1, len(newRanges))
	merged[0] = newRanges[0]

	for _, r := range newRanges[1:] {
		last := &merged[len(merged)-1]

		maxTo := last.From + maxRangeSize - 1
		if r.To <= maxTo {
			last.To = r.To
		} else {
			last.To = maxTo
			merged = append(merged, SlotRange{From: maxTo + 1, To: r.To, SubmitAt: r.SubmitAt})
		}
	}
	return merged
}

// fillEmptySlots 把 [from, to] 中未出现在 confirmed 列表里的 slot 记入 empty。
func fillEmptySlots(from, to uint64, confirmed []uint64, empty map[uint64]struct{}) {
	expectedCount := int(to - from + 1)
	actualCount := len(confirmed)
	missing := expectedCount - actualCount
	if missing <= 0 {
		return
	}

	if actualCount == 0 {
		for slot := from; slot <= to; slot++ {
			empty[slot] = struct{}{}
		}
		return
	}

	if !sort.SliceIsSorted(confirmed, func(i, j int) bool {
		return confirmed[i] < confirmed[j]
	}) {
		sort.Slice(confirmed, func(i, j int) bool {
			return confirmed[i] < confirmed[j]
		})
	}

	found := 0

	// 开头缺失部分
	if confirmed[0] > from {
		for slot := from; slot < confirmed[0]; slot++ {
			empty[slot] = struct{}{}
			found++
			if found == missing {
				return
			}
		}
	}

	// 结尾缺失部分
	if confirmed[actualCount-1] < to {
		for slot := confirmed[actualCount-1] + 1; slot <= to; slot++ {
			empty[slot] = struct{}{}
			found++
			if found == missing {
				return
			}
		}
	}

	// 中间缺失部分
	for i := 1; i < actualCount && found < missing; i++ {
		for slot := confirmed[i-1] + 1; slot < confirmed[i]; slot++ {
			empty[slot] = struct{}{}
			found++
		}
	}
}
