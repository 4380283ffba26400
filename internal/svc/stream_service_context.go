package svc

import (
	"context"
	"database/sql"

	"arb-indexer-sol/internal/cache"
	"arb-indexer-sol/internal/config"
	"arb-indexer-sol/internal/logic/progress"
	"arb-indexer-sol/internal/mq"
	"arb-indexer-sol/internal/report"
	"arb-indexer-sol/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// StreamServiceContext 持有实时流服务的共享资源。
type StreamServiceContext struct {
	Config          config.StreamConfig
	PriceCache      *cache.PriceCache
	Collector       *report.Collector
	Producer        *kafka.Producer
	ProgressManager *progress.ProgressManager

	db           *sql.DB
	stopProgress context.CancelFunc
}

// NewStreamServiceContext 创建实时流服务上下文
func NewStreamServiceContext(c config.StreamConfig) (*StreamServiceContext, error) {
	c.ScanConf.ApplyDefaults()

	ctx := &StreamServiceContext{
		Config:     c,
		PriceCache: cache.NewPriceCache(),
		Collector:  report.NewCollector(),
	}

	if c.KafkaProducerConf.Enabled {
		producer, err := mq.NewKafkaProducer(c.KafkaProducerConf)
		if err != nil {
			logger.Errorf("Kafka producer 初始化失败: %v", err)
			return nil, err
		}
		ctx.Producer = producer
	}

	if c.ProgressConf.Enabled {
		pm, db, stop, err := newProgressManager(c.ProgressConf)
		if err != nil {
			ctx.Close()
			return nil, err
		}
		ctx.ProgressManager = pm
		ctx.db = db
		ctx.stopProgress = stop
	}

	logger.Infof("实时流服务上下文初始化完成")
	return ctx, nil
}

// Close 关闭服务上下文中的资源
func (ctx *StreamServiceContext) Close() {
	if ctx.Producer != nil {
		ctx.Producer.Close()
	}
	if ctx.stopProgress != nil {
		ctx.stopProgress()
	}
	if ctx.db != nil {
		_ = ctx.db.Close()
	}
}
