package bot

import (
	"sync"
	"time"

	"discord-modbot/metrics"

	"go.uber.org/zap"
)

const housekeepingInterval = 30 * time.Second

// Scheduler runs the periodic housekeeping of the bot.
type Scheduler struct {
	bot  *Bot
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewScheduler creates a new scheduler.
func NewScheduler(bot *Bot) *Scheduler {
	return &Scheduler{
		bot:  bot,
		done: make(chan struct{}),
	}
}

// Start begins all scheduled tasks.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.startGauges()
}

// Stop terminates all scheduled tasks gracefully.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.bot.Logger.Debug("Stopping scheduler...")
		close(s.done)
		s.wg.Wait()
	})
}

func (s *Scheduler) startGauges() {
	defer s.wg.Done()
	ticker := time.NewTicker(housekeepingInterval)
	defer ticker.Stop()

	s.updateGauges()
	for {
		select {
		case <-ticker.C:
			s.updateGauges()
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) updateGauges() {
	b := s.bot
	metrics.ActiveTimers.Set(float64(b.Timers.Active()))
	metrics.TrackedRaidUsers.Set(float64(b.RaidGuard.Tracked()))
	metrics.OpenTickets.Set(float64(b.Tickets.Count()))
	metrics.ActiveGiveaways.Set(float64(b.Giveaways.Active()))
	b.Logger.Debug("Housekeeping",
		zap.Int("timers", b.Timers.Active()),
		zap.Int("raidTracked", b.RaidGuard.Tracked()),
		zap.Int("tickets", b.Tickets.Count()),
		zap.Int("giveaways", b.Giveaways.Active()),
		zap.Int("pendingMassDM", b.MassDM.Pending()),
	)
}
