package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"paper-engine-go/infrastructure/logger"
	"paper-engine-go/sim"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string        `yaml:"env"`
	Engine  EngineConfig  `yaml:"engine"`
	Session SessionConfig `yaml:"session"`
	Log     logger.Config `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Feed    FeedConfig    `yaml:"feed"`
	Kafka   KafkaConfig   `yaml:"kafka"`
}

// EngineConfig 撮合引擎参数；引擎创建后不可热更新。
type EngineConfig struct {
	Currency       string  `yaml:"currency"`
	StartingCash   float64 `yaml:"startingCash"`
	CommissionBps  float64 `yaml:"commissionBps"`
	SlippageBps    float64 `yaml:"slippageBps"`
	LotSize        float64 `yaml:"lotSize"`
	PricePrecision int     `yaml:"pricePrecision"`
	AllowShort     bool    `yaml:"allowShort"`
	CandleCap      int     `yaml:"candleCap"`
}

// SessionConfig 会话循环参数，支持热更新。
type SessionConfig struct {
	TickIntervalMs int      `yaml:"tickIntervalMs"` // 合成行情推进周期；0 表示不自动推进
	Symbols        []string `yaml:"symbols"`        // 每次 tick 推进的 symbol（为空时取活跃订单涉及的 symbol）
	DailyRollover  bool     `yaml:"dailyRollover"`  // UTC 日期变化时自动日切
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// FeedConfig websocket 报价源；URL 为空时只使用合成行情。
type FeedConfig struct {
	URL         string   `yaml:"url"`
	Symbols     []string `yaml:"symbols"`
	ReconnectMs int      `yaml:"reconnectMs"`
}

// KafkaConfig 成交事件发布；Brokers 为空时不发布。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Default 返回带默认值的配置，YAML 中缺省的字段保持这些值。
func Default() AppConfig {
	d := sim.DefaultConfig()
	return AppConfig{
		Env: "dev",
		Engine: EngineConfig{
			Currency:       d.Currency,
			StartingCash:   d.StartingCash,
			CommissionBps:  d.CommissionBps,
			SlippageBps:    d.SlippageBps,
			LotSize:        d.LotSize,
			PricePrecision: d.PricePrecision,
			AllowShort:     d.AllowShort,
			CandleCap:      d.CandleCap,
		},
		Session: SessionConfig{TickIntervalMs: 1000},
		Log:     logger.DefaultConfig(),
		Metrics: MetricsConfig{Addr: ":9101"},
		Feed:    FeedConfig{ReconnectMs: 2000},
		Kafka:   KafkaConfig{Topic: "paper.fills"},
	}
}

// SimConfig 转换为引擎配置。
func (e EngineConfig) SimConfig() sim.Config {
	return sim.Config{
		Currency:       e.Currency,
		StartingCash:   e.StartingCash,
		CommissionBps:  e.CommissionBps,
		SlippageBps:    e.SlippageBps,
		LotSize:        e.LotSize,
		PricePrecision: e.PricePrecision,
		AllowShort:     e.AllowShort,
		CandleCap:      e.CandleCap,
	}
}

// TickInterval returns the session tick period (0 disables ticking).
func (s SessionConfig) TickInterval() time.Duration {
	return time.Duration(s.TickIntervalMs) * time.Millisecond
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides deployment fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, Validate(cfg)
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("PAPER_STARTING_CASH"); v != "" {
		cash, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PAPER_STARTING_CASH: %w", err)
		}
		cfg.Engine.StartingCash = cash
	}
	if v := os.Getenv("PAPER_FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("PAPER_KAFKA_BROKERS"); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		cfg.Kafka.Brokers = brokers
	}
	return nil
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if err := cfg.Engine.SimConfig().Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := ValidateSession(cfg.Session); err != nil {
		return err
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return errors.New("metrics.addr is required when metrics are enabled")
	}
	if cfg.Feed.ReconnectMs < 0 {
		return errors.New("feed.reconnectMs must be >= 0")
	}
	if cfg.Feed.URL != "" && !strings.HasPrefix(cfg.Feed.URL, "ws://") && !strings.HasPrefix(cfg.Feed.URL, "wss://") {
		return fmt.Errorf("feed.url %q must use ws:// or wss://", cfg.Feed.URL)
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when brokers are set")
	}
	return nil
}

// ValidateSession 单独校验可热更新的会话参数。
func ValidateSession(s SessionConfig) error {
	if s.TickIntervalMs < 0 {
		return errors.New("session.tickIntervalMs must be >= 0")
	}
	for i, sym := range s.Symbols {
		if strings.TrimSpace(sym) == "" {
			return fmt.Errorf("session.symbols[%d] is empty", i)
		}
	}
	return nil
}
