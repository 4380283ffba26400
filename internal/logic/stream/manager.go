// Package stream 维护 Geyser gRPC 订阅：连接、心跳、重连，
// 并将推送的区块交给 BlockProcessor 跑套利检测。
package stream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"arb-indexer-sol/internal/config"
	"arb-indexer-sol/internal/consts"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
)

type GeyserStreamManager struct {
	mu                    sync.Mutex                    // 互斥锁，保护并发安全
	conn                  *grpc.ClientConn              // gRPC 连接对象
	client                pb.GeyserClient               // gRPC 客户端
	stream                pb.Geyser_SubscribeClient     // gRPC 订阅流
	stopped               bool                          // 标记是否已经停止
	reconnectAttempts     int                           // 已重连次数
	reconnectInterval     time.Duration                 // 重连基础间隔
	xToken                string                        // 认证用的 x-token
	streamPingIntervalSec int                           // Stream心跳包发送间隔（秒）
	blockChan             chan *pb.SubscribeUpdateBlock // 区块数据通道
	connCtx               context.Context               // 当前连接的 context
	connCancel            context.CancelFunc            // 当前连接的 cancel 函数
	blockRecvTimeoutSec   int                           // block接收超时时间（秒）
	sendTimeoutSec        int                           // gRPC发送超时时间（秒）
	maxLatencyWarnMs      int64                         // block延迟告警阈值（毫秒），0 不启用
	maxLatencyDropMs      int64                         // block延迟断连阈值（毫秒），0 不启用
}

func NewGeyserStreamManager(grpcConf config.GrpcClientConfig, blockChan chan *pb.SubscribeUpdateBlock) (*GeyserStreamManager, error) {
	configTls := &tls.Config{
		InsecureSkipVerify: true,
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(grpcConf.ConnectTimeoutSec)*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(
		dialCtx,
		grpcConf.Endpoint,
		grpc.WithTransportCredentials(credentials.NewTLS(configTls)),
		grpc.WithInitialWindowSize(int32(grpcConf.InitialWindowSize)),
		grpc.WithInitialConnWindowSize(int32(grpcConf.InitialConnWindowSize)),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(grpcConf.MaxCallSendMsgSize),
			grpc.MaxCallRecvMsgSize(grpcConf.MaxCallRecvMsgSize),
		),
		grpc.WithBlock(),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(grpcConf.KeepalivePingIntervalSec) * time.Second,
			Timeout:             time.Duration(grpcConf.KeepalivePingTimeoutSec) * time.Second,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %v", err)
	}

	return &GeyserStreamManager{
		conn:                  conn,
		client:                pb.NewGeyserClient(conn),
		reconnectAttempts:     0,
		reconnectInterval:     time.Duration(grpcConf.ReconnectIntervalSec) * time.Second,
		xToken:                grpcConf.XToken,
		streamPingIntervalSec: grpcConf.StreamPingIntervalSec,
		blockChan:             blockChan,
		blockRecvTimeoutSec:   grpcConf.BlockRecvTimeoutSec,
		sendTimeoutSec:        grpcConf.SendTimeoutSec,
		maxLatencyWarnMs:      int64(grpcConf.MaxLatencyWarnMs),
		maxLatencyDropMs:      int64(grpcConf.MaxLatencyDropMs),
	}, nil
}

func (m *GeyserStreamManager) Start() {
	m.mustConnect()
}

func (m *GeyserStreamManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true // 标记已停止
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
	}
}

// 内部循环直到连接成功
func (m *GeyserStreamManager) mustConnect() {
	for {
		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		if m.reconnectAttempts > 0 {
			if m.reconnectAttempts > 3 {
				time.Sleep(m.reconnectInterval * 2)
			} else {
				time.Sleep(m.reconnectInterval)
			}
		}
		logx.Infof("Connecting... Attempt %d", m.reconnectAttempts+1)
		m.reconnectAttempts++
		err := m.connect()
		if err == nil {
			return // 连接成功
		}
		logx.Errorf("Connect failed: %v, will retry...", err)
	}
}

func buildSubscribeRequest() *pb.SubscribeRequest {
	blocks := make(map[string]*pb.SubscribeRequestFilterBlocks)
	blocks["blocks"] = &pb.SubscribeRequestFilterBlocks{
		AccountInclude:      consts.GrpcAccountInclude,
		IncludeTransactions: boolPtr(true),  // 交易是检测的唯一输入
		IncludeAccounts:     boolPtr(false), // 不需要独立的 AccountUpdate
		IncludeEntries:      boolPtr(false), // 底层 entry 日志无用
	}
	commitment := pb.CommitmentLevel_CONFIRMED
	return &pb.SubscribeRequest{
		Blocks:     blocks,
		Commitment: &commitment,
	}
}

// connect 只尝试一次连接
func (m *GeyserStreamManager) connect() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return errors.New("manager is stopped")
	}
	defer m.mu.Unlock()

	// 先关闭旧的 context，优雅退出旧 goroutine
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
	}
	m.connCtx, m.connCancel = context.WithCancel(context.Background())

	logx.Info("Attempting to connect...")

	metaCtx := metadata.NewOutgoingContext(
		m.connCtx,
		metadata.New(map[string]string{"x-token": m.xToken}),
	)
	stream, err := m.client.Subscribe(metaCtx)
	if err != nil {
		logx.Errorf("Failed to subscribe: %v", err)
		return err
	}

	req := buildSubscribeRequest()
	err = sendWithTimeout(m.connCtx, stream.Send, req, time.Duration(m.sendTimeoutSec)*time.Second)
	if err != nil {
		logx.Errorf("Failed to send request: %v", err)
		return err
	}

	m.stream = stream
	m.reconnectAttempts = 0
	logx.Info("Connection established")

	// 启动 ping 协程
	go m.pingLoop(m.connCtx)
	// 启动 block 监听协程
	go m.blockRecvLoop(m.connCtx)

	return nil
}

func (m *GeyserStreamManager) blockRecvLoop(ctx context.Context) {
	last := time.Now()
	blockTimeout := time.Duration(m.blockRecvTimeoutSec) * time.Second
	for {
		select {
		case <-ctx.Done():
			return // 优雅退出
		default:
			update, err := m.stream.Recv()
			now := time.Now()
			if err != nil {
				if errors.Is(err, io.EOF) {
					logx.Errorf("Stream closed by server (EOF), will reconnect")
					m.reconnect()
					return
				}

				logx.Errorf("Stream error: %v", err)
				if m.reconnectIfBlockTimeout(last, blockTimeout) {
					return
				}
				time.Sleep(100 * time.Millisecond)
				continue
			}

			switch u := update.GetUpdateOneof().(type) {
			case *pb.SubscribeUpdate_Block:
				if u.Block.BlockTime != nil {
					interval := now.UnixMilli() - u.Block.BlockTime.Timestamp*1000
					if m.maxLatencyDropMs > 0 && interval > m.maxLatencyDropMs {
						// 延迟过大说明连接已经不健康，重连换一条链路
						logx.Errorf("block at slot %v latency %v ms exceeds drop threshold, will reconnect", u.Block.Slot, interval)
						m.reconnect()
						return
					}
					if m.maxLatencyWarnMs > 0 && interval > m.maxLatencyWarnMs {
						logx.Errorf("block at slot %v latency too high: %v ms", u.Block.Slot, interval)
					} else {
						logx.Debugf("received block at slot %v, latency to blockTime: %v ms", u.Block.Slot, interval)
					}
				}

				select {
				case m.blockChan <- u.Block:
				default:
					// 处理端堆积时丢块，依赖回扫补齐
					logx.Errorf("blockChan is full, discard block at slot %v", u.Block.Slot)
				}
				last = now
			}
		}

		if m.reconnectIfBlockTimeout(last, blockTimeout) {
			return
		}
	}
}

// 带超时的 Send
func sendWithTimeout[T any](ctx context.Context, sendFunc func(T) error, req T, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sendFunc(req)
	}()

	select {
	case <-timeoutCtx.Done():
		return timeoutCtx.Err()
	case err := <-done:
		return err
	}
}

// 心跳检测
func (m *GeyserStreamManager) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(m.streamPingIntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return // 优雅退出
		case <-ticker.C:
			pingReq := &pb.SubscribeRequest{
				Ping: &pb.SubscribeRequestPing{Id: 1},
			}
			err := sendWithTimeout(ctx, m.stream.Send, pingReq, time.Duration(m.sendTimeoutSec)*time.Second)
			if err != nil {
				// 只记录日志，不触发重连
				logx.Errorf("Ping failed: %v", err)
			}
		}
	}
}

func (m *GeyserStreamManager) reconnectIfBlockTimeout(last time.Time, timeout time.Duration) bool {
	if time.Since(last) > timeout {
		logx.Errorf("%v未收到block，触发重连", timeout)
		m.reconnect()
		return true
	}
	return false
}

func (m *GeyserStreamManager) reconnect() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if m.connCancel != nil {
		m.connCancel() // 关闭所有相关 goroutine
		m.connCancel = nil
	}
	m.mu.Unlock()

	go m.mustConnect()
}

func boolPtr(b bool) *bool {
	return &b
}
