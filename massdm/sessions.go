package massdm

import (
	"errors"
	"strings"
	"sync"
	"time"

	"discord-modbot/timers"

	"github.com/google/uuid"
)

const (
	ConfirmPrefix = "sendall_confirm:"
	CancelPrefix  = "sendall_cancel:"
)

var (
	ErrUnknownSession = errors.New("this confirmation has expired")
	ErrNotInvoker     = errors.New("this button is not for you")
	ErrAlreadyClaimed = errors.New("this action is already running or finished")
)

// Session is a pending mass DM awaiting its invoker's confirmation.
type Session struct {
	ID        string
	GuildID   string
	ChannelID string
	InvokerID string
	Message   string
	// PromptID is the confirmation message carrying the buttons.
	PromptID  string
	claimed   bool
}

// Sessions tracks confirmations until they are answered or expire.
type Sessions struct {
	mu       sync.Mutex
	pending  map[string]*Session
	timers   *timers.Manager
	ttl      time.Duration
	onExpire func(Session)
}

// NewSessions creates a session store. onExpire runs for sessions nobody answered.
func NewSessions(timerManager *timers.Manager, ttl time.Duration, onExpire func(Session)) *Sessions {
	return &Sessions{
		pending:  make(map[string]*Session),
		timers:   timerManager,
		ttl:      ttl,
		onExpire: onExpire,
	}
}

func timerKey(id string) string {
	return "confirm:" + id
}

// Create registers a session and starts its expiry timer.
func (s *Sessions) Create(guildID, channelID, invokerID, message string) Session {
	sess := &Session{
		ID:        uuid.NewString(),
		GuildID:   guildID,
		ChannelID: channelID,
		InvokerID: invokerID,
		Message:   message,
	}

	s.mu.Lock()
	s.pending[sess.ID] = sess
	s.mu.Unlock()

	s.timers.Schedule(timerKey(sess.ID), s.ttl, func() {
		s.mu.Lock()
		expired, ok := s.pending[sess.ID]
		if ok && !expired.claimed {
			delete(s.pending, sess.ID)
		}
		s.mu.Unlock()
		if ok && !expired.claimed && s.onExpire != nil {
			s.onExpire(*expired)
		}
	})
	return *sess
}

// SetPrompt records the message that carries the session's buttons.
func (s *Sessions) SetPrompt(id, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.pending[id]; ok {
		sess.PromptID = messageID
	}
}

// Claim answers a session for userID. Only the invoker may answer, and only once.
func (s *Sessions) Claim(id, userID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.pending[id]
	if !ok {
		return Session{}, ErrUnknownSession
	}
	if sess.InvokerID != userID {
		return Session{}, ErrNotInvoker
	}
	if sess.claimed {
		return Session{}, ErrAlreadyClaimed
	}
	sess.claimed = true
	delete(s.pending, id)
	s.timers.Cancel(timerKey(id))
	return *sess, nil
}

// Pending returns the number of unanswered sessions.
func (s *Sessions) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// ParseCustomID splits a button custom ID into its action and session ID.
func ParseCustomID(customID string) (confirm bool, id string, ok bool) {
	if id, found := strings.CutPrefix(customID, ConfirmPrefix); found {
		return true, id, id != ""
	}
	if id, found := strings.CutPrefix(customID, CancelPrefix); found {
		return false, id, id != ""
	}
	return false, "", false
}
