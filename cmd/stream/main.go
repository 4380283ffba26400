package main

import (
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"arb-indexer-sol/internal/config"
	"arb-indexer-sol/internal/logic/stream"
	"arb-indexer-sol/internal/report"
	"arb-indexer-sol/internal/rpc"
	"arb-indexer-sol/internal/service"
	"arb-indexer-sol/internal/svc"
	"arb-indexer-sol/pkg/logger"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/stream.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.StreamConfig
	conf.MustLoad(*configFile, &c)

	logger.Init(c.LogConf.ToLogOption())
	defer logger.Sync()

	serviceContext, err := svc.NewStreamServiceContext(c)
	if err != nil {
		logx.Errorf("服务上下文初始化失败: %v", err)
		os.Exit(1)
	}
	defer serviceContext.Close()

	sg := zerosvc.NewServiceGroup()

	// 价格同步服务（可选）
	if c.PriceServiceConf.Enabled {
		priceSyncService, err := service.NewRpcPriceSyncService(&c.PriceServiceConf, serviceContext.PriceCache)
		if err != nil {
			logx.Errorf("价格同步服务初始化失败: %v", err)
			os.Exit(1)
		}
		sg.Add(priceSyncService)
	}

	blockChan := make(chan *pb.SubscribeUpdateBlock, 200)
	defer close(blockChan)

	// 漏块核对与回扫补齐（可选，未配置端点时关闭）
	var rpcClient *rpc.Client
	if c.RpcConf.Endpoint != "" {
		timeout := time.Duration(c.RpcConf.TimeoutS) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		rpcClient = rpc.NewClient(c.RpcConf.Endpoint, timeout)
	}

	sg.Add(stream.NewBlockProcessor(serviceContext, blockChan, rpcClient))

	streamManager, err := stream.NewGeyserStreamManager(c.Grpc, blockChan)
	if err != nil {
		panic(err)
	}
	sg.Add(streamManager)

	logx.Infof("Starting geyser stream service")

	// 启动服务
	sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()

	// 退出前落盘已累计的套利记录与统计
	records := serviceContext.Collector.Records()
	scanConf := serviceContext.Config.ScanConf
	if err := report.WriteCSVFile(scanConf.DataFile, records); err != nil {
		logx.Errorf("CSV 写入失败: %v", err)
		return
	}
	summary := report.Summarize(records, report.NewValuer(serviceContext.PriceCache), scanConf.Top)
	summary.Print(os.Stdout, scanConf.Top)
}
