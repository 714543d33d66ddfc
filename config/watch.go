package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher 监听配置文件变化，重新加载后把新的 SessionConfig 交给回调。
// 引擎参数不会热更新，只有 session 段生效。
type Watcher struct {
	path     string
	debounce time.Duration
	log      *zap.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher 创建并立即开始监听 path 所在目录（编辑器通常以 rename 方式保存文件）。
func NewWatcher(path string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config dir: %w", err)
	}
	return &Watcher{path: abs, debounce: debounce, log: log, fsw: fsw}, nil
}

// Run 阻塞直到 ctx 结束；同一批次的多次写入合并为一次重载。
func (w *Watcher) Run(ctx context.Context, onUpdate func(SessionConfig)) error {
	defer w.fsw.Close()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			w.reload(onUpdate)
		}
	}
}

func (w *Watcher) reload(onUpdate func(SessionConfig)) {
	cfg, err := LoadWithEnvOverrides(w.path)
	if err != nil {
		w.log.Warn("config reload rejected", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.log.Info("config reloaded",
		zap.String("path", w.path),
		zap.Int("tick_interval_ms", cfg.Session.TickIntervalMs),
		zap.Strings("symbols", cfg.Session.Symbols))
	if onUpdate != nil {
		onUpdate(cfg.Session)
	}
}
