package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"arb-indexer-sol/internal/config"
	"arb-indexer-sol/internal/logic/scanner"
	"arb-indexer-sol/internal/report"
	"arb-indexer-sol/internal/svc"
	"arb-indexer-sol/pkg/logger"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
)

var configFile = flag.String("f", "etc/scanner.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.ScannerConfig
	conf.MustLoad(*configFile, &c)

	logger.Init(c.LogConf.ToLogOption())
	defer logger.Sync()

	serviceContext, err := svc.NewScannerServiceContext(c)
	if err != nil {
		logx.Errorf("服务上下文初始化失败: %v", err)
		os.Exit(1)
	}
	defer serviceContext.Close()

	// Ctrl-C / SIGTERM 中断回扫
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := scanner.NewScanner(serviceContext).Run(ctx); err != nil {
		logx.Errorf("回扫失败: %v", err)
		os.Exit(1)
	}

	// 落盘 CSV 并输出统计
	records := serviceContext.Collector.Records()
	scanConf := serviceContext.Config.ScanConf
	if err := report.WriteCSVFile(scanConf.DataFile, records); err != nil {
		logx.Errorf("CSV 写入失败: %v", err)
		os.Exit(1)
	}

	summary := report.Summarize(records, report.NewValuer(nil), scanConf.Top)
	summary.Print(os.Stdout, scanConf.Top)
	fmt.Printf("共 %d 条套利记录已写入 %s\n", len(records), scanConf.DataFile)
}
