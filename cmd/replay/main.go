package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"paper-engine-go/config"
	"paper-engine-go/infrastructure/logger"
	"paper-engine-go/inventory"
	"paper-engine-go/market"
	"paper-engine-go/order"
	"paper-engine-go/sim"
)

// 离线回放：按时间顺序把 CSV 报价与 YAML 订单脚本喂给引擎，输出订单/成交/账户 JSON。
// 用法：
//
//	go run ./cmd/replay -quotes data/aapl.csv -orders scripts/orders.yaml -config configs/papersim.yaml
func main() {
	cfgPath := flag.String("config", "", "配置文件路径（只使用 engine 与 log 段，留空用默认值）")
	quotesPath := flag.String("quotes", "", "报价 CSV：ts,symbol,last[,bid,ask,volume]")
	ordersPath := flag.String("orders", "", "订单脚本 YAML")
	outPath := flag.String("out", "", "结果 JSON 输出路径，留空输出到 stdout")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.LoadWithEnvOverrides(*cfgPath); err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
	}
	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	quotes, err := loadQuotes(*quotesPath)
	if err != nil {
		lg.Fatal("load quotes failed", zap.Error(err))
	}
	steps, err := loadScript(*ordersPath)
	if err != nil {
		lg.Fatal("load order script failed", zap.Error(err))
	}

	res, err := replay(cfg.Engine.SimConfig(), quotes, steps, lg)
	if err != nil {
		lg.Fatal("replay failed", zap.Error(err))
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			lg.Fatal("create output failed", zap.Error(err))
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		lg.Fatal("write result failed", zap.Error(err))
	}
}

type result struct {
	Orders    []order.Order        `json:"orders"`
	Fills     []order.Fill         `json:"fills"`
	Positions []inventory.Position `json:"positions"`
	Account   sim.Account          `json:"account"`
}

func replay(cfg sim.Config, quotes []market.PushQuote, steps []step, lg *logger.Logger) (result, error) {
	engine, err := sim.New(cfg, sim.WithLogger(lg.Named("engine")))
	if err != nil {
		return result{}, err
	}
	events := timeline(quotes, steps)
	var last time.Time
	for _, ev := range events {
		last = ev.at
		if ev.quote != nil {
			engine.PushQuote(*ev.quote)
			continue
		}
		s := ev.step
		switch s.kind() {
		case "rollover":
			engine.Rollover(s.At)
		case "cancel":
			id := s.Cancel
			if o, ok := findByClientID(engine.ListOrders(), id); ok {
				id = o.ID
			}
			o, err := engine.CancelOrder(id, s.At)
			if err != nil {
				lg.Warn("cancel skipped", zap.String("id", s.Cancel), zap.Error(err))
				continue
			}
			lg.LogOrder(o)
		case "close":
			o, err := engine.ClosePosition(s.Close, s.At)
			if err != nil {
				lg.Warn("close skipped", zap.String("symbol", s.Close), zap.Error(err))
				continue
			}
			lg.LogOrder(o)
		default:
			lg.LogOrder(engine.PlaceOrder(s.Input, s.At))
		}
	}
	for _, f := range engine.ListFills() {
		lg.LogFill(f)
	}
	return result{
		Orders:    engine.ListOrders(),
		Fills:     engine.ListFills(),
		Positions: engine.ListPositions(),
		Account:   engine.Account(last),
	}, nil
}

func findByClientID(orders []order.Order, clientID string) (order.Order, bool) {
	for _, o := range orders {
		if o.ClientID != "" && o.ClientID == clientID {
			return o, true
		}
	}
	return order.Order{}, false
}

func loadQuotes(path string) ([]market.PushQuote, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quotes: %w", err)
	}
	defer f.Close()
	return parseQuotes(f)
}

func loadScript(path string) ([]step, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open order script: %w", err)
	}
	defer f.Close()
	return parseScript(f)
}
