package progress

import (
	"context"
	"database/sql"
	"fmt"

	"arb-indexer-sol/pkg/logger"
)

// DBProgressStore 管理 slot 进度的持久化存储。
// 服务恢复后可用，不做高频幂等判重，只 fallback 使用。
// 驱动为 pgx 的 database/sql 适配（jackc/pgx/v5/stdlib）。
type DBProgressStore struct {
	db *sql.DB
}

func NewDBProgressStore(db *sql.DB) *DBProgressStore {
	return &DBProgressStore{db: db}
}

// CheckSlotExists 判定某 slot 是否已存在于 DB 中（用于 Redis 未命中时的 fallback）
func (d *DBProgressStore) CheckSlotExists(ctx context.Context, slot uint64) (bool, error) {
	query := `SELECT 1 FROM arb_progress_slot WHERE slot = $1`
	var dummy int
	err := d.db.QueryRowContext(ctx, query, slot).Scan(&dummy)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check slot exists error: %w", err)
	}
	return true, nil
}

// InsertOrUpdateSlot 插入或更新单个 slot 的处理状态
func (d *DBProgressStore) InsertOrUpdateSlot(ctx context.Context, slot *SlotRecord) error {
	query := `
		INSERT INTO arb_progress_slot (slot, source, block_time, status, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (slot) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := d.db.ExecContext(ctx, query, slot.Slot, slot.Source, slot.BlockTime, slot.Status)
	if err != nil {
		return fmt.Errorf("insert/update slot %d failed: %w", slot.Slot, err)
	}
	return nil
}

// BatchInsertProcessedSlots 批量插入 slot 记录，按 batchLimit 分批写入数据库。
// 如果 slot 冲突，交由 insertChunk 中的 ON CONFLICT 策略处理。
func (d *DBProgressStore) BatchInsertProcessedSlots(ctx context.Context, slots []*SlotRecord) error {
	if len(slots) == 0 {
		return nil
	}

	const batchLimit = 1000
	for i := 0; i < len(slots); i += batchLimit {
		end := i + batchLimit
		if end > len(slots) {
			end = len(slots)
		}
		if err := d.insertChunk(ctx, slots[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// insertChunk 插入一批 slot 记录（最多 1000 条）。
// 若主键 slot 冲突，仅更新 status 和 updated_at 字段。
func (d *DBProgressStore) insertChunk(ctx context.Context, slots []*SlotRecord) error {
	query := `INSERT INTO arb_progress_slot (slot, source, block_time, status, updated_at) VALUES `
	args := make([]interface{}, 0, len(slots)*4)
	placeholders := ""

	for i, s := range slots {
		placeholders += fmt.Sprintf("($%d,$%d,$%d,$%d,CURRENT_TIMESTAMP),", i*4+1, i*4+2, i*4+3, i*4+4)
		args = append(args, s.Slot, s.Source, s.BlockTime, s.Status)
	}

	query += placeholders[:len(placeholders)-1] +
		` ON CONFLICT (slot) DO UPDATE SET
	status = EXCLUDED.status,
	updated_at = CURRENT_TIMESTAMP`

	_, err := d.db.ExecContext(ctx, query, args...)
	return err
}

// DeleteOldSlots 删除历史 slot 记录（用于进度 GC）。
// 保留最近 7 天的数据，老数据按 slot 值估算（每秒约 2.5 个 slot）。
// Postgres 的 DELETE 不支持 LIMIT，按 ctid 子查询分批删除，避免锁表和长事务。
func (d *DBProgressStore) DeleteOldSlots(ctx context.Context) error {
	var latestSlot sql.NullInt64
	if err := d.db.QueryRowContext(ctx, `SELECT MAX(slot) FROM arb_progress_slot`).Scan(&latestSlot); err != nil {
		return fmt.Errorf("fetch latest slot failed: %w", err)
	}
	if !latestSlot.Valid {
		return nil // 空表
	}

	const retainDays = 7
	retainSlots := uint64(float64(retainDays*24*3600) * 2.5)
	if uint64(latestSlot.Int64) <= retainSlots {
		return nil
	}
	safeSlot := uint64(latestSlot.Int64) - retainSlots

	const batchSize = 1000
	for {
		res, err := d.db.ExecContext(ctx,
			`DELETE FROM arb_progress_slot WHERE ctid IN (
				SELECT ctid FROM arb_progress_slot WHERE slot < $1 ORDER BY slot LIMIT $2
			)`,
			safeSlot, batchSize,
		)
		if err != nil {
			return fmt.Errorf("delete old slots failed: %w", err)
		}

		// 没有更多记录可删，提前退出
		n, _ := res.RowsAffected()
		if n == 0 {
			break
		}
		logger.Infof("[progress] GC 删除 %d 条历史进度记录", n)
	}

	return nil
}
