// Package scanner 驱动历史区块回扫：按 slot 顺序拉取区块，
// 并行跑套利检测，结果送入报表、Kafka 与进度各 sink。
package scanner

import (
	"context"
	"time"

	"arb-indexer-sol/internal/consts"
	"arb-indexer-sol/internal/logic/core"
	"arb-indexer-sol/internal/logic/detector"
	"arb-indexer-sol/internal/logic/progress"
	"arb-indexer-sol/internal/logic/txadapter"
	"arb-indexer-sol/internal/mq"
	"arb-indexer-sol/internal/rpc"
	"arb-indexer-sol/internal/svc"
	"arb-indexer-sol/internal/types"
	"arb-indexer-sol/pkg/logger"
	"arb-indexer-sol/pkg/utils"
)

// Scanner 按配置区间回扫历史区块。
type Scanner struct {
	svcCtx *svc.ScannerServiceContext
}

func NewScanner(svcCtx *svc.ScannerServiceContext) *Scanner {
	return &Scanner{svcCtx: svcCtx}
}

// Run 执行完整回扫。单个 slot 的失败视为整次扫描失败，
// 数据源不可用时产出残缺报表没有意义。
func (s *Scanner) Run(ctx context.Context) error {
	cfg := s.svcCtx.Config.ScanConf

	slots, err := s.svcCtx.RpcClient.GetBlocks(ctx, cfg.BeginSlot, cfg.EndSlot)
	if err != nil {
		return err
	}
	logger.Infof("[scanner] 区间 [%d,%d] 内共 %d 个可用 slot", cfg.BeginSlot, cfg.EndSlot, len(slots))

	for _, slot := range slots {
		if err := s.scanSlot(ctx, slot); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) scanSlot(ctx context.Context, slot uint64) error {
	start := time.Now()

	block, err := s.svcCtx.RpcClient.GetBlock(ctx, slot)
	if err != nil {
		return err
	}
	if block == nil {
		logger.Warnf("[scanner] slot=%d 无区块数据，跳过", slot)
		return nil
	}

	// 进度判重：已处理的 slot 直接跳过
	pm := s.svcCtx.ProgressManager
	if pm != nil {
		ok, err := pm.ShouldProcessSlot(ctx, slot, block.BlockTime)
		if err != nil {
			logger.Warnf("[scanner] slot=%d 进度查询失败，继续处理: %v", slot, err)
		} else if !ok {
			logger.Infof("[scanner] slot=%d 已处理，跳过", slot)
			return nil
		}
	}

	records, err := DetectBlock(slot, block)
	if err != nil {
		return err
	}

	s.svcCtx.Collector.Add(records...)

	if s.svcCtx.Producer != nil && len(records) > 0 {
		s.publish(ctx, slot, block.BlockTime, records)
	}

	if pm != nil {
		if err := pm.MarkSlotStatus(ctx, slot, progress.SourceRpc, block.BlockTime, progress.SlotProcessed); err != nil {
			logger.Warnf("[scanner] slot=%d 进度标记失败: %v", slot, err)
		}
	}

	logger.Infof("[scanner] slot=%d 完成: tx=%d records=%d 耗时=%v",
		slot, len(block.Transactions), len(records), time.Since(start))
	return nil
}

// DetectBlock 对单个区块的全部交易并行跑检测，结果按交易顺序展平。
func DetectBlock(slot uint64, block *rpc.Block) ([]*core.ArbitrageRecord, error) {
	blockHash, err := types.HashFromBase58(block.Blockhash)
	if err != nil {
		logger.Warnf("[scanner] slot=%d blockhash 解析失败: %v", slot, err)
	}
	txCtx := &core.TxContext{
		BlockTime:  block.BlockTime,
		Slot:       slot,
		ParentSlot: block.ParentSlot,
		BlockHash:  blockHash,
	}

	type indexedTx struct {
		index uint32
		tx    *rpc.BlockTransaction
	}
	txs := make([]indexedTx, len(block.Transactions))
	for i := range block.Transactions {
		txs[i] = indexedTx{index: uint32(i), tx: &block.Transactions[i]}
	}

	// 每笔交易独立检测，worker 数沿用 CPU 密集型任务的经验值
	results := utils.ParallelMap(txs, consts.CpuCount+2, func(item indexedTx) []*core.ArbitrageRecord {
		record, err := txadapter.AdaptRpcTx(txCtx, item.index, item.tx)
		if err != nil {
			logger.Warnf("[scanner] slot=%d tx=%d 适配失败: %v", slot, item.index, err)
			return nil
		}
		return detector.Detect(record)
	})

	// ParallelMap 保序，这里按交易顺序展平
	var flat []*core.ArbitrageRecord
	for _, rs := range results {
		flat = append(flat, rs...)
	}
	return flat, nil
}

func (s *Scanner) publish(ctx context.Context, slot uint64, blockTime int64, records []*core.ArbitrageRecord) {
	cfg := s.svcCtx.Config.KafkaProducerConf

	jobs, err := mq.BuildRecordJobs(cfg.Topic, cfg.Partitions, slot, blockTime, records)
	if err != nil {
		logger.Errorf("[scanner] slot=%d Kafka 消息构建失败: %v", slot, err)
		return
	}

	timeout := time.Duration(cfg.SendTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	_, failed := mq.SendKafkaJobs(ctx, s.svcCtx.Producer, jobs, timeout)
	for _, f := range failed {
		logger.Errorf("[scanner] slot=%d Kafka 发送失败: partition=%d err=%v", slot, f.Job.Partition, f.Err)
	}
}
