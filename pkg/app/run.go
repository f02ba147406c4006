package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flemzord/sbot/internal/reload"
)

const shutdownTimeout = 10 * time.Second

// Run builds the bot, starts all modules, and blocks until a shutdown
// signal is received or a module reports it is done. SIGHUP and
// file-change events trigger a live configuration reload.
func Run(p Params) error {
	return RunContext(context.Background(), p)
}

// RunContext is Run with an additional shutdown trigger: the bot stops
// when ctx is cancelled.
func RunContext(ctx context.Context, p Params) error {
	b, err := Build(ctx, p)
	if err != nil {
		return err
	}
	if err := b.Start(); err != nil {
		_ = b.shutdown(context.WithoutCancel(ctx))
		return err
	}
	b.Logger.Info("sbot started",
		"name", b.Settings.String("name"),
		"version", p.Version,
		"branches", b.Dispatcher.Registry().Len(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()

	var events <-chan reload.Event
	if b.ConfigPath != "" {
		watcher := reload.NewWatcher(reload.WatcherConfig{
			ConfigPath: b.ConfigPath,
			Logger:     b.Logger,
		})
		watcher.Start(watchCtx)
		defer watcher.Stop()
		events = watcher.Events()
	}

	done := b.Done()
	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				b.Logger.Info("SIGHUP received, reloading configuration")
				b.reload(watchCtx)
				continue
			}
			b.Logger.Info("shutdown signal received", "signal", sig.String())
			return b.shutdown(context.WithoutCancel(ctx))
		case evt := <-events:
			b.Logger.Info("config file changed, reloading", "path", evt.ConfigPath)
			b.reload(watchCtx)
		case <-done:
			b.Logger.Info("input closed, shutting down")
			return b.shutdown(context.WithoutCancel(ctx))
		case <-ctx.Done():
			b.Logger.Info("shutdown requested")
			return b.shutdown(context.WithoutCancel(ctx))
		}
	}
}

func (b *Bot) reload(ctx context.Context) {
	if b.ConfigPath == "" {
		b.Logger.Warn("no configuration file to reload")
		return
	}
	if err := b.Reload.HandleReload(ctx, b.ConfigPath); err != nil {
		b.Logger.Error("reload failed", "error", err)
	}
}

func (b *Bot) shutdown(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	err := b.Stop(stopCtx)
	b.Logger.Info("shutdown complete")
	return err
}
