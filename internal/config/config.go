package config

import (
	"arb-indexer-sol/pkg/logger"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RpcConfig 表示 JSON-RPC 回扫数据源配置
type RpcConfig struct {
	Endpoint string `yaml:"endpoint"`  // Solana RPC 节点地址
	TimeoutS int    `yaml:"timeout_s"` // 单次 HTTP 请求超时（秒），0 取默认 30
}

// ScanConfig 表示回扫范围与报表输出配置
type ScanConfig struct {
	BeginSlot uint64 `yaml:"begin_slot"` // 扫描起始 slot（含）
	EndSlot   uint64 `yaml:"end_slot"`   // 扫描结束 slot（含）
	Top       int    `yaml:"top"`        // 统计输出的 top N 签名者数量
	DataFile  string `yaml:"data_file"`  // CSV 输出路径
}

// 回扫默认区间与输出，和历史分析脚本保持一致
const (
	DefaultBeginSlot = 308803801
	DefaultEndSlot   = 308803900
	DefaultTop       = 10
	DefaultDataFile  = "jito.csv"
)

// ApplyDefaults 填充未配置字段
func (c *ScanConfig) ApplyDefaults() {
	if c.BeginSlot == 0 {
		c.BeginSlot = DefaultBeginSlot
	}
	if c.EndSlot == 0 {
		c.EndSlot = DefaultEndSlot
	}
	if c.Top <= 0 {
		c.Top = DefaultTop
	}
	if c.DataFile == "" {
		c.DataFile = DefaultDataFile
	}
}

// PriceServiceConfig 表示 Pyth 价格同步服务配置
type PriceServiceConfig struct {
	Enabled       bool   `yaml:"enabled"`         // 关闭时估值仅用静态价格表
	Endpoint      string `yaml:"endpoint"`        // Solana RPC 节点地址（GetMultipleAccounts）
	SyncIntervalS int    `yaml:"sync_interval_s"` // 同步价格的时间间隔（秒）
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置
type KafkaProducerConfig struct {
	Enabled       bool   `yaml:"enabled"`         // 关闭时记录只进本地报表
	Brokers       string `yaml:"brokers"`         // Kafka broker 地址，多个用英文逗号分隔
	BatchSize     int    `yaml:"batch_size"`      // 批处理大小（单位字节）
	LingerMs      int    `yaml:"linger_ms"`       // 批处理最大延迟（毫秒）
	Topic         string `yaml:"topic"`           // 套利记录 topic
	Partitions    int    `yaml:"partitions"`      // topic 分区数
	SendTimeoutMs int    `yaml:"send_timeout_ms"` // 单条消息发送并等待 ack 的超时（毫秒）
}

// ProgressConfig 表示 slot 进度判重与持久化配置
type ProgressConfig struct {
	Enabled            bool   `yaml:"enabled"`              // 关闭时不做 slot 判重
	RedisAddr          string `yaml:"redis_addr"`           // Redis 地址
	PostgresDSN        string `yaml:"postgres_dsn"`         // PostgreSQL 数据源，可为空（仅 Redis）
	RecentThresholdSec int    `yaml:"recent_threshold_sec"` // 判定为“近期 block”的时间阈值（秒）
	FlushIntervalS     int    `yaml:"flush_interval_s"`     // 批量落库间隔（秒）
	GCIntervalS        int    `yaml:"gc_interval_s"`        // 历史进度 GC 间隔（秒）
}

// GrpcClientConfig 是 Geyser gRPC 客户端连接相关配置
type GrpcClientConfig struct {
	Endpoint string `yaml:"endpoint"` // gRPC 服务端地址
	XToken   string `yaml:"x_token"`  // x-token 认证

	// 应用级逻辑心跳（ping）配置
	StreamPingIntervalSec int `yaml:"stream_ping_interval_sec"` // 应用层 ping 心跳间隔（秒）

	// gRPC Keepalive 底层连接检测配置
	KeepalivePingIntervalSec int `yaml:"keepalive_ping_interval_sec"` // 底层 keepalive 间隔（秒）
	KeepalivePingTimeoutSec  int `yaml:"keepalive_ping_timeout_sec"`  // 底层 keepalive 超时（秒）

	// gRPC 窗口大小调优（用于大数据流推送）
	InitialWindowSize     int `yaml:"initial_window_size"`      // 单流窗口大小（字节）
	InitialConnWindowSize int `yaml:"initial_conn_window_size"` // 整体连接窗口大小（字节）

	// 消息体大小限制
	MaxCallSendMsgSize int `yaml:"max_call_send_msg_size"` // 单条消息最大发送字节数
	MaxCallRecvMsgSize int `yaml:"max_call_recv_msg_size"` // 单条消息最大接收字节数

	// 超时与重连策略
	ReconnectIntervalSec int `yaml:"reconnect_interval_sec"` // 重连最小间隔（秒）
	ConnectTimeoutSec    int `yaml:"connect_timeout_sec"`    // 连接建立超时（秒）
	SendTimeoutSec       int `yaml:"send_timeout_sec"`       // 发送超时（秒）
	BlockRecvTimeoutSec  int `yaml:"block_recv_timeout_sec"` // 无 block 数据触发重连的超时（秒）
	MaxLatencyWarnMs     int `yaml:"max_latency_warn_ms"`    // 延迟告警阈值（毫秒）
	MaxLatencyDropMs     int `yaml:"max_latency_drop_ms"`    // 延迟断连阈值（毫秒）
}

// ScannerConfig 驱动历史区块回扫
type ScannerConfig struct {
	LogConf           LogConfig           `yaml:"logger"`
	RpcConf           RpcConfig           `yaml:"rpc"`
	ScanConf          ScanConfig          `yaml:"scan"`
	KafkaProducerConf KafkaProducerConfig `yaml:"kafka_producer"`
	ProgressConf      ProgressConfig      `yaml:"progress"`
}

// StreamConfig 驱动 Geyser 实时流检测
type StreamConfig struct {
	LogConf           LogConfig           `yaml:"logger"`
	Grpc              GrpcClientConfig    `yaml:"grpc"`
	RpcConf           RpcConfig           `yaml:"rpc"` // 漏块核对与回扫补齐端点，留空则关闭

	ScanConf          ScanConfig          `yaml:"scan"` // 仅 top/data_file 字段参与报表
	PriceServiceConf  PriceServiceConfig  `yaml:"price_service"`
	KafkaProducerConf KafkaProducerConfig `yaml:"kafka_producer"`
	ProgressConf      ProgressConfig      `yaml:"progress"`
}
