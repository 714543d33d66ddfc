package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"paper-engine-go/order"
)

// Logger 封装zap日志器，提供结构化日志功能
type Logger struct {
	*zap.Logger
	config Config
}

// Config 日志配置
type Config struct {
	Level      string   `yaml:"level"`       // debug, info, warn, error
	Outputs    []string `yaml:"outputs"`     // stdout, file
	OutputFile string   `yaml:"output_file"` // 日志文件路径
	ErrorFile  string   `yaml:"error_file"`  // 错误日志单独文件
	Format     string   `yaml:"format"`      // json 或 console
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Outputs: []string{"stdout"},
		Format:  "json",
	}
}

// New 创建新的Logger实例
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{}

	if contains(cfg.Outputs, "stdout") {
		var encoder zapcore.Encoder
		if cfg.Format == "console" {
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
		} else {
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	}

	// 文件统一 JSON 格式，便于回放分析
	if contains(cfg.Outputs, "file") && cfg.OutputFile != "" {
		fileWriter, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file failed: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(fileWriter),
			level,
		))
	}

	if cfg.ErrorFile != "" {
		errorWriter, err := os.OpenFile(cfg.ErrorFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open error log file failed: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(errorWriter),
			zapcore.ErrorLevel,
		))
	}

	return FromCore(zapcore.NewTee(cores...), cfg), nil
}

// FromCore 用现成的 core 构建 Logger（测试里配合 zaptest/observer 使用）。
func FromCore(core zapcore.Core, cfg Config) *Logger {
	return &Logger{
		Logger: zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)),
		config: cfg,
	}
}

// Nop 不输出任何内容的 Logger。
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop(), config: DefaultConfig()}
}

// LogOrder 记录订单状态变化；ts 取订单自身的更新时间，保证回放时日志可复现。
func (l *Logger) LogOrder(o order.Order) {
	fields := []zap.Field{
		zap.String("event", string(o.Status)),
		zap.String("order_id", o.ID),
		zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)),
		zap.String("type", string(o.Type)),
		zap.String("tif", string(o.TIF)),
		zap.Float64("qty", o.Qty),
		zap.Float64("filled_qty", o.FilledQty),
		zap.Float64("leaves_qty", o.LeavesQty),
		zap.String("ts", o.UpdatedAt.UTC().Format(time.RFC3339Nano)),
	}
	if o.ClientID != "" {
		fields = append(fields, zap.String("client_id", o.ClientID))
	}
	if o.Reason != "" {
		fields = append(fields, zap.String("reason", o.Reason))
	}
	if o.Status == order.StatusRejected {
		l.Warn("order_event", fields...)
		return
	}
	l.Info("order_event", fields...)
}

// LogFill 记录成交
func (l *Logger) LogFill(f order.Fill) {
	l.Info("fill_event",
		zap.String("order_id", f.OrderID),
		zap.String("symbol", f.Symbol),
		zap.String("side", string(f.Side)),
		zap.Float64("qty", f.Qty),
		zap.Float64("price", f.Price),
		zap.Float64("notional", f.Notional),
		zap.Float64("fee", f.Fee),
		zap.String("ts", f.Time.UTC().Format(time.RFC3339Nano)),
	)
}

// LogError 记录错误并附带上下文
func (l *Logger) LogError(err error, context map[string]interface{}) {
	zapFields := make([]zap.Field, 0, len(context)+1)
	zapFields = append(zapFields, zap.Error(err))
	for k, v := range context {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	l.Error("error_event", zapFields...)
}

// Close 关闭日志器
func (l *Logger) Close() error {
	return l.Sync()
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
