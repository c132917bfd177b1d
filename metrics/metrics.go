package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var ActionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_actions_recorded_total",
	Help: "Number of moderation actions appended to the action log",
}, []string{"action"})

var ActionLogFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modbot_action_log_failures_total",
	Help: "Number of action log appends that failed",
})

var CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_commands_handled_total",
	Help: "Number of prefix commands dispatched",
}, []string{"command", "outcome"})

var RaidVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_raid_verdicts_total",
	Help: "Number of anti-raid verdicts by reason",
}, []string{"reason"})

var FilteredMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_filtered_messages_total",
	Help: "Number of messages removed by content filters",
}, []string{"filter"})

var OpenTickets = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "modbot_open_tickets",
	Help: "Number of tickets held in the registry",
})

var TrackedRaidUsers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "modbot_raid_tracked_users",
	Help: "Number of users in the anti-raid tracking map",
})

var ActiveTimers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "modbot_active_timers",
	Help: "Number of pending cancellable timers",
})

var ActiveGiveaways = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "modbot_active_giveaways",
	Help: "Number of giveaways awaiting a draw",
})

var DirectMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_direct_messages_total",
	Help: "Number of direct messages attempted by outcome",
}, []string{"outcome"})

// Serve exposes /metrics on addr until ctx is done. An empty addr disables it.
func Serve(ctx context.Context, addr string, logger *zap.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("Metrics listener started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics listener stopped", zap.Error(err))
		}
	}()
}
