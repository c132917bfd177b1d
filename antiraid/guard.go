package antiraid

import (
	"sync"
	"sync/atomic"
	"time"

	"discord-modbot/model"

	"github.com/bwmarrin/discordgo"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Reason is the verdict of the heuristic. The empty reason lets the message through.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonRapidSpam     Reason = "rapid spam"
	ReasonAccountTooNew Reason = "account too new"
)

// Observation is the part of a message the heuristic looks at.
type Observation struct {
	UserID         string
	MessageTime    time.Time
	AccountCreated time.Time
}

// ObservationFromMessage derives the account creation time from the author's snowflake.
func ObservationFromMessage(m *discordgo.Message) (Observation, error) {
	created, err := discordgo.SnowflakeTimestamp(m.Author.ID)
	if err != nil {
		return Observation{}, err
	}
	at := m.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	return Observation{UserID: m.Author.ID, MessageTime: at, AccountCreated: created}, nil
}

// Guard owns the anti-raid toggle and the per-user last-message times.
type Guard struct {
	enabled atomic.Bool
	window  time.Duration
	minAge  time.Duration

	// mu makes the velocity check and the timestamp update one step.
	mu   sync.Mutex
	last *expirable.LRU[string, time.Time]
}

func NewGuard(cfg model.AntiRaidConfig) *Guard {
	g := &Guard{
		window: cfg.VelocityWindow,
		minAge: cfg.MinAccountAge,
		last:   expirable.NewLRU[string, time.Time](cfg.TrackingSize, nil, cfg.TrackingTTL),
	}
	g.enabled.Store(cfg.Enabled)
	return g
}

func (g *Guard) Enabled() bool {
	return g.enabled.Load()
}

// SetEnabled flips the toggle. Tracking data is dropped when the guard is turned off.
func (g *Guard) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
	if !enabled {
		g.last.Purge()
	}
}

// Check evaluates one message. The sender's timestamp is updated after the velocity
// check and before the freshness check, so a banned burst still moves the clock.
func (g *Guard) Check(o Observation) Reason {
	if !g.Enabled() {
		return ReasonNone
	}

	g.mu.Lock()
	prev, seen := g.last.Get(o.UserID)
	g.last.Add(o.UserID, o.MessageTime)
	g.mu.Unlock()

	if seen && o.MessageTime.Sub(prev) < g.window {
		return ReasonRapidSpam
	}
	if o.MessageTime.Sub(o.AccountCreated) < g.minAge {
		return ReasonAccountTooNew
	}
	return ReasonNone
}

// Tracked returns the number of users currently tracked.
func (g *Guard) Tracked() int {
	return g.last.Len()
}
