package progress

import (
	"context"
	"time"

	"arb-indexer-sol/pkg/logger"
)

// ProgressManager 统一封装 Redis + DB + 缓冲，控制进度判重与写入。
// DB 为可选：仅配置 Redis 时 fallback 查询直接视为未处理。
type ProgressManager struct {
	redis           *RedisProgressStore
	db              *DBProgressStore // 可为 nil
	buffer          *slotBuffer
	recentThreshold time.Duration // 新 block 的判断阈值
}

func NewProgressManager(redis *RedisProgressStore, db *DBProgressStore, recentThresholdSec int) *ProgressManager {
	return &ProgressManager{
		redis:           redis,
		db:              db,
		buffer:          newSlotBuffer(),
		recentThreshold: time.Duration(recentThresholdSec) * time.Second,
	}
}

// ShouldProcessSlot 判断是否需要处理该 slot：
// - 如果 block 是“最近的”，直接处理
// - 否则 Redis 查状态 + fallback 到 DB
func (pm *ProgressManager) ShouldProcessSlot(ctx context.Context, slot uint64, blockTime int64) (bool, error) {
	if time.Since(time.Unix(blockTime, 0)) <= pm.recentThreshold {
		return true, nil // 近期 block，直接处理
	}

	// 旧 block 判重：先查 Redis
	status, err := pm.redis.GetSlotStatus(ctx, slot)
	if err != nil {
		return false, err
	}
	if status == SlotProcessed || status == SlotInvalid {
		return false, nil
	}

	if pm.db == nil {
		return true, nil
	}

	// fallback 到 DB
	exists, err := pm.db.CheckSlotExists(ctx, slot)
	if err != nil {
		return false, err
	}
	if exists {
		_ = pm.redis.MarkSlotProcessed(ctx, slot)
		return false, nil
	}
	return true, nil
}

// MarkSlotStatus 标记某 slot 的处理状态（已处理、结构非法等）。
// 会同时更新 Redis 与 slotBuffer（供后续批量写入 DB）。
func (pm *ProgressManager) MarkSlotStatus(
	ctx context.Context,
	slot uint64,
	source int16,
	blockTime int64,
	status SlotStatus,
) error {
	var err error

	// 写入 Redis 状态
	switch status {
	case SlotProcessed:
		err = pm.redis.MarkSlotProcessed(ctx, slot)
	case SlotInvalid:
		err = pm.redis.MarkSlotInvalid(ctx, slot)
	default:
		return nil // SlotUnknown / SlotPending 不参与记录
	}
	if err != nil {
		return err
	}

	if pm.db == nil {
		return nil
	}

	// 加入缓冲区，待后续批量持久化 DB
	pm.buffer.Add(&SlotRecord{
		Slot:      slot,
		Source:    source,
		BlockTime: blockTime,
		Status:    status,
	})
	return nil
}

// StartFlushLoop 启动后台定时 flush（阻塞运行，由调用方决定 goroutine）
func (pm *ProgressManager) StartFlushLoop(ctx context.Context, interval time.Duration) {
	if pm.db == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			pm.flushOnce(context.Background())
			return
		case <-ticker.C:
			pm.flushOnce(ctx)
		}
	}
}

func (pm *ProgressManager) flushOnce(ctx context.Context) {
	flushed := pm.buffer.Flush()
	if len(flushed) == 0 {
		return
	}
	if err := pm.db.BatchInsertProcessedSlots(ctx, flushed); err != nil {
		// buffer 已清空，丢失的记录只影响重启后的 fallback 判重
		logger.Errorf("[progress] 批量落库失败: count=%d err=%v", len(flushed), err)
	}
}

// StartGCLoop 启动后台 GC 清理（每 interval 执行一次历史 slot 清理）
func (pm *ProgressManager) StartGCLoop(ctx context.Context, interval time.Duration) {
	if pm.db == nil {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := pm.db.DeleteOldSlots(ctx); err != nil {
					logger.Warnf("[progress] GC 失败: %v", err)
				}
			}
		}
	}()
}
