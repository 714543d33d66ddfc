package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"paper-engine-go/config"
	"paper-engine-go/feed"
	"paper-engine-go/infrastructure/logger"
	"paper-engine-go/infrastructure/monitor"
	"paper-engine-go/internal/session"
	"paper-engine-go/market"
	"paper-engine-go/publish"
	"paper-engine-go/sim"
)

// 长驻的模拟撮合进程：合成行情 tick + 可选 websocket 报价源 + Kafka 成交发布。
// 用法：
//
//	go run ./cmd/papersim -config configs/papersim.yaml
func main() {
	cfgPath := flag.String("config", "configs/papersim.yaml", "配置文件路径")
	watch := flag.Bool("watch", true, "监听配置文件并热更新 session 段")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	mon := monitor.New(monitor.DefaultConfig())
	engine, err := sim.New(cfg.Engine.SimConfig(),
		sim.WithLogger(lg.Named("engine")),
		sim.WithRecorder(mon))
	if err != nil {
		lg.Fatal("engine init failed", zap.Error(err))
	}

	var pub publish.Publisher = publish.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub = publish.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		lg.Info("kafka publisher enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}
	defer pub.Close()

	sess, err := session.New(cfg.Session, session.Components{
		Engine:    engine,
		Logger:    lg,
		Monitor:   mon,
		Publisher: pub,
	})
	if err != nil {
		lg.Fatal("session init failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, mon, lg)
	}

	if err := sess.Start(ctx); err != nil {
		lg.Fatal("session start failed", zap.Error(err))
	}

	if cfg.Feed.URL != "" {
		client := feed.NewClient(cfg.Feed.URL, cfg.Feed.Symbols, lg.Named("feed"))
		client.Reconnect = time.Duration(cfg.Feed.ReconnectMs) * time.Millisecond
		client.Hooks = feed.Hooks{
			OnConnect:    mon.RecordFeedConnect,
			OnDisconnect: func(error) { mon.RecordFeedDisconnect() },
		}
		go func() {
			if err := client.Run(ctx, func(p market.PushQuote) { sess.PushQuote(p) }); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("feed stopped", zap.Error(err))
			}
		}()
	}

	if *watch {
		w, err := config.NewWatcher(*cfgPath, 0, lg.Named("config"))
		if err != nil {
			lg.Warn("config watcher disabled", zap.Error(err))
		} else {
			go func() {
				_ = w.Run(ctx, func(s config.SessionConfig) {
					if err := sess.UpdateSession(s); err != nil {
						lg.Warn("session reload rejected", zap.Error(err))
					}
				})
			}()
		}
	}

	notify(lg, daemon.SdNotifyReady)
	go watchdog(ctx, sess, lg)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	lg.Info("shutdown signal received", zap.String("signal", sig.String()))
	notify(lg, daemon.SdNotifyStopping)

	cancel()
	if err := sess.Stop(); err != nil {
		lg.Warn("session stop", zap.Error(err))
	}
	logAccount(lg, sess.Account())
}

func serveMetrics(addr string, mon *monitor.Monitor, lg *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", mon.Handler())
	lg.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		lg.Error("metrics server stopped", zap.Error(err))
	}
}

// watchdog 按 systemd 要求的一半周期发送心跳，同时定期打印账户快照。
func watchdog(ctx context.Context, sess *session.Session, lg *logger.Logger) {
	interval := 30 * time.Second
	wd, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		lg.Warn("watchdog check failed", zap.Error(err))
	}
	if wd > 0 {
		interval = wd / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if wd > 0 {
				notify(lg, daemon.SdNotifyWatchdog)
			}
			logAccount(lg, sess.Account())
		}
	}
}

func notify(lg *logger.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		lg.Warn("sd_notify failed", zap.String("state", state), zap.Error(err))
		return
	}
	if sent {
		lg.Debug("sd_notify", zap.String("state", state))
	}
}

func logAccount(lg *logger.Logger, a sim.Account) {
	lg.Info("account",
		zap.String("currency", a.Currency),
		zap.Float64("cash", a.Cash),
		zap.Float64("equity", a.Equity),
		zap.Float64("buying_power", a.BuyingPower),
		zap.Float64("day_pnl", a.DayPnL),
		zap.Float64("total_pnl", a.TotalPnL),
		zap.Float64("fees", a.Fees),
		zap.Int("positions", a.Positions))
}
