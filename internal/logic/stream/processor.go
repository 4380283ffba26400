package stream

import (
	"context"
	"errors"
	"time"

	"arb-indexer-sol/internal/consts"
	"arb-indexer-sol/internal/logic/core"
	"arb-indexer-sol/internal/logic/detector"
	"arb-indexer-sol/internal/logic/progress"
	"arb-indexer-sol/internal/logic/scanner"
	"arb-indexer-sol/internal/logic/txadapter"
	"arb-indexer-sol/internal/mq"
	"arb-indexer-sol/internal/rpc"
	"arb-indexer-sol/internal/svc"
	"arb-indexer-sol/internal/types"
	"arb-indexer-sol/pkg/utils"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
)

// BlockProcessor 消费 blockChan 中的区块，逐块跑套利检测并分发结果。
type BlockProcessor struct {
	sc          *svc.StreamServiceContext
	blockChan   chan *pb.SubscribeUpdateBlock // 接收 block 的 channel
	rpcClient   *rpc.Client                   // 可为 nil（未配置回扫端点时）
	slotChecker *SlotChecker                  // rpcClient 非 nil 时启用
	lastSlot    uint64                        // 上一个处理的 slot，用于漏块检测
	ctx         context.Context
	cancel      func(err error)
	logx.Logger
}

func NewBlockProcessor(sc *svc.StreamServiceContext, blockChan chan *pb.SubscribeUpdateBlock, rpcClient *rpc.Client) *BlockProcessor {
	ctx, cancel := context.WithCancelCause(context.Background())
	p := &BlockProcessor{
		sc:        sc,
		blockChan: blockChan,
		rpcClient: rpcClient,
		Logger:    logx.WithContext(ctx).WithFields(logx.Field("service", "block_processor")),
		ctx:       ctx,
		cancel:    cancel,
	}
	if rpcClient != nil {
		p.slotChecker = NewSlotChecker(rpcClient, p.backfillSlot)
	}
	return p
}

func (p *BlockProcessor) Start() {
	if p.slotChecker != nil {
		p.slotChecker.Start()
	}
	for {
		select {
		case <-p.ctx.Done():
			return // 退出
		case block := <-p.blockChan:
			p.procBlock(block)
			if len(p.blockChan) > 10 {
				p.Debugf("block chan len:%v", len(p.blockChan))
			}
		}
	}
}

func (p *BlockProcessor) Stop() {
	if p.slotChecker != nil {
		p.slotChecker.Stop()
	}
	p.cancel(errors.New("service stop"))
}

func (p *BlockProcessor) procBlock(block *pb.SubscribeUpdateBlock) {
	startTime := time.Now()
	defer func() {
		p.Infof("区块处理总耗时: %v, slot: %d", time.Since(startTime), block.Slot)
	}()

	blockTime := int64(0)
	if block.BlockTime != nil {
		blockTime = block.BlockTime.Timestamp
	}

	// 漏块检测：slot 不连续时提交区间给 SlotChecker 核对空块
	if p.slotChecker != nil && p.lastSlot > 0 && block.Slot > p.lastSlot+1 {
		p.slotChecker.Submit(p.lastSlot+1, block.Slot-1)
	}
	p.lastSlot = block.Slot

	// 进度判重：已处理（如另一副本）的 slot 跳过
	pm := p.sc.ProgressManager
	if pm != nil {
		ok, err := pm.ShouldProcessSlot(p.ctx, block.Slot, blockTime)
		if err != nil {
			p.Errorf("slot=%d 进度查询失败，继续处理: %v", block.Slot, err)
		} else if !ok {
			p.Infof("slot=%d 已处理，跳过", block.Slot)
			return
		}
	}

	records := p.detectBlock(block, blockTime)

	p.sc.Collector.Add(records...)

	if p.sc.Producer != nil && len(records) > 0 {
		p.publish(block.Slot, blockTime, records)
	}

	if pm != nil {
		if err := pm.MarkSlotStatus(p.ctx, block.Slot, progress.SourceGrpc, blockTime, progress.SlotProcessed); err != nil {
			p.Errorf("slot=%d 进度标记失败: %v", block.Slot, err)
		}
	}

	p.Infof("总tx数量: %v, 套利记录数量: %v", len(block.Transactions), len(records))
}

// detectBlock 并发适配并检测区块内全部交易，结果按推送顺序展平。
func (p *BlockProcessor) detectBlock(block *pb.SubscribeUpdateBlock, blockTime int64) []*core.ArbitrageRecord {
	// 尝试解析 blockHash，如果失败只打日志但继续执行
	blockHash, err := types.HashFromBase58(block.Blockhash)
	if err != nil {
		p.Errorf("BlockHash 无法解析，将使用零值：slot=%d, blockhash=%s, err=%v",
			block.Slot, block.Blockhash, err)
	}

	txCtx := &core.TxContext{
		BlockTime:  blockTime,
		Slot:       block.Slot,
		ParentSlot: block.ParentSlot,
		BlockHash:  blockHash, // 若解析失败为零值
	}

	results := utils.ParallelMap(block.Transactions, consts.CpuCount+2,
		func(tx *pb.SubscribeUpdateTransactionInfo) []*core.ArbitrageRecord {
			record, err := txadapter.AdaptGrpcTx(txCtx, tx)
			if err != nil {
				// 投票/失败交易走这里，数量大，仅 debug
				p.Debugf("slot=%d 交易跳过: %v", block.Slot, err)
				return nil
			}
			return detector.Detect(record)
		})

	var flat []*core.ArbitrageRecord
	for _, rs := range results {
		flat = append(flat, rs...)
	}
	return flat
}

// backfillSlot 回扫一个确认存在但未经实时流处理的 slot，
// 检测结果与实时流进入相同的下游。
func (p *BlockProcessor) backfillSlot(ctx context.Context, slot uint64) error {
	pm := p.sc.ProgressManager
	if pm != nil {
		ok, err := pm.ShouldProcessSlot(ctx, slot, 0)
		if err != nil {
			p.Errorf("slot=%d 回扫进度查询失败，继续处理: %v", slot, err)
		} else if !ok {
			return nil // 另一路径已处理
		}
	}

	block, err := p.rpcClient.GetBlock(ctx, slot)
	if err != nil {
		return err
	}

	records, err := scanner.DetectBlock(slot, block)
	if err != nil {
		return err
	}

	p.sc.Collector.Add(records...)

	if p.sc.Producer != nil && len(records) > 0 {
		p.publish(slot, block.BlockTime, records)
	}

	if pm != nil {
		if err := pm.MarkSlotStatus(ctx, slot, progress.SourceRpc, block.BlockTime, progress.SlotProcessed); err != nil {
			p.Errorf("slot=%d 回扫进度标记失败: %v", slot, err)
		}
	}

	p.Infof("回扫补齐 slot=%d, 套利记录数量: %d", slot, len(records))
	return nil
}

func (p *BlockProcessor) publish(slot uint64, blockTime int64, records []*core.ArbitrageRecord) {
	cfg := p.sc.Config.KafkaProducerConf

	jobs, err := mq.BuildRecordJobs(cfg.Topic, cfg.Partitions, slot, blockTime, records)
	if err != nil {
		p.Errorf("slot=%d Kafka 消息构建失败: %v", slot, err)
		return
	}

	timeout := time.Duration(cfg.SendTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	_, failed := mq.SendKafkaJobs(p.ctx, p.sc.Producer, jobs, timeout)
	for _, f := range failed {
		p.Errorf("slot=%d Kafka 发送失败: partition=%d err=%v", slot, f.Job.Partition, f.Err)
	}
}
