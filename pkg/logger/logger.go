package logger

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// LogOption 表示日志初始化配置
type LogOption struct {
	Format   string // 日志格式，支持 "console" 或 "json"
	LogDir   string // 日志目录，为空时输出到 stdout
	Level    string // 日志级别：debug / info / warn / error
	Compress bool   // 是否压缩旧日志文件
}

var sugar = newDefault()

// newDefault 默认输出 console 格式到 stdout，保证 Init 之前的日志不丢
func newDefault() *zap.SugaredLogger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.AddSync(os.Stdout),
		zapcore.InfoLevel,
	)
	return zap.New(core).Sugar()
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

// Init 按配置重建全局 logger。
// LogDir 非空时写入滚动日志文件（lumberjack），否则输出到 stdout。
func Init(opt LogOption) {
	var encoder zapcore.Encoder
	if strings.EqualFold(opt.Format, "json") {
		encoder = zapcore.NewJSONEncoder(encoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig())
	}

	var sink zapcore.WriteSyncer
	if opt.LogDir != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, "app.log"),
			MaxSize:    256, // MB
			MaxBackups: 10,
			Compress:   opt.Compress,
		})
	} else {
		sink = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(encoder, sink, parseLevel(opt.Level))
	sugar = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync 退出前刷新缓冲
func Sync() {
	_ = sugar.Sync()
}

func Debugf(format string, args ...interface{}) { sugar.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { sugar.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { sugar.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { sugar.Errorf(format, args...) }
