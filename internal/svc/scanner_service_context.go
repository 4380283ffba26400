package svc

import (
	"context"
	"database/sql"
	"time"

	"arb-indexer-sol/internal/config"
	"arb-indexer-sol/internal/logic/progress"
	"arb-indexer-sol/internal/mq"
	"arb-indexer-sol/internal/report"
	"arb-indexer-sol/internal/rpc"
	"arb-indexer-sol/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

// ScannerServiceContext 持有回扫服务的共享资源。
// Producer 与 ProgressManager 按配置可为 nil。
type ScannerServiceContext struct {
	Config          config.ScannerConfig
	RpcClient       *rpc.Client
	Collector       *report.Collector
	Producer        *kafka.Producer
	ProgressManager *progress.ProgressManager

	db           *sql.DB
	stopProgress context.CancelFunc
}

// NewScannerServiceContext 创建回扫服务上下文
func NewScannerServiceContext(c config.ScannerConfig) (*ScannerServiceContext, error) {
	c.ScanConf.ApplyDefaults()

	timeout := time.Duration(c.RpcConf.TimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx := &ScannerServiceContext{
		Config:    c,
		RpcClient: rpc.NewClient(c.RpcConf.Endpoint, timeout),
		Collector: report.NewCollector(),
	}

	// Kafka 生产者（可选）
	if c.KafkaProducerConf.Enabled {
		producer, err := mq.NewKafkaProducer(c.KafkaProducerConf)
		if err != nil {
			logger.Errorf("Kafka producer 初始化失败: %v", err)
			return nil, err
		}
		ctx.Producer = producer
	}

	// 进度管理器（可选，Redis 必填、DB 可选）
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

	logger.Infof("回扫服务上下文初始化完成: slots=[%d,%d]", c.ScanConf.BeginSlot, c.ScanConf.EndSlot)
	return ctx, nil
}

// Close 关闭服务上下文中的资源
func (ctx *ScannerServiceContext) Close() {
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

// newProgressManager 按配置构建进度管理器并启动落库/GC 后台循环，
// 返回 DB 连接与停止函数用于统一关闭。
func newProgressManager(c config.ProgressConfig) (*progress.ProgressManager, *sql.DB, context.CancelFunc, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: c.RedisAddr, // eg: "127.0.0.1:6379"
	})
	redisStore := progress.NewRedisProgressStore(rdb)

	var db *sql.DB
	var dbStore *progress.DBProgressStore
	if c.PostgresDSN != "" {
		var err error
		db, err = sql.Open("pgx", c.PostgresDSN)
		if err != nil {
			logger.Errorf("PostgreSQL 连接失败: %v", err)
			return nil, nil, nil, err
		}
		dbStore = progress.NewDBProgressStore(db)
	}

	threshold := c.RecentThresholdSec
	if threshold <= 0 {
		threshold = 60
	}

	pm := progress.NewProgressManager(redisStore, dbStore, threshold)

	ctx, cancel := context.WithCancel(context.Background())
	if db != nil {
		flushInterval := time.Duration(c.FlushIntervalS) * time.Second
		if flushInterval <= 0 {
			flushInterval = 10 * time.Second
		}
		gcInterval := time.Duration(c.GCIntervalS) * time.Second
		if gcInterval <= 0 {
			gcInterval = time.Hour
		}
		go pm.StartFlushLoop(ctx, flushInterval)
		pm.StartGCLoop(ctx, gcInterval)
	}

	return pm, db, cancel, nil
}
