package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"discord-modbot/metrics"

	"go.uber.org/zap"
)

// Run connects to the gateway and blocks until ctx is done or the process is asked to
// stop. SIGHUP reloads the configuration.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.scheduler.Start()
	metrics.Serve(ctx, b.GetConfig().Metrics.Listen, b.Logger.Named("metrics"))

	b.Logger.Info("Bot is now running. Press CTRL-C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, os.Interrupt)
	defer signal.Stop(sc)
	for {
		select {
		case sig := <-sc:
			if sig == syscall.SIGHUP {
				if err := b.ReloadConfig(); err != nil {
					b.Logger.Warn("Keeping previous configuration", zap.Error(err))
				}
				continue
			}
			b.Logger.Info("Received signal", zap.String("signal", sig.String()))
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
