package tickets

import (
	"sync"

	"discord-modbot/model"
)

// Registry holds every known ticket. The creator slot is reserved before the channel
// exists so two clicks cannot open two tickets.
type Registry struct {
	mu        sync.Mutex
	byChannel map[string]*model.Ticket
	// byCreator maps guild/creator to the ticket channel; "" marks a reservation in flight.
	byCreator map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byChannel: make(map[string]*model.Ticket),
		byCreator: make(map[string]string),
	}
}

func creatorKey(guildID, creatorID string) string {
	return guildID + "/" + creatorID
}

// Reserve claims the creator's slot. When the slot is taken it returns the existing
// channel ID, which is empty while the other ticket is still being provisioned.
func (r *Registry) Reserve(guildID, creatorID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := creatorKey(guildID, creatorID)
	if existing, ok := r.byCreator[key]; ok {
		return existing, false
	}
	r.byCreator[key] = ""
	return "", true
}

// Release frees a reservation whose channel was never created.
func (r *Registry) Release(guildID, creatorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := creatorKey(guildID, creatorID)
	if r.byCreator[key] == "" {
		delete(r.byCreator, key)
	}
}

// Put registers a ticket and binds its creator's slot to the channel.
func (r *Registry) Put(t model.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket := t
	r.byChannel[t.ChannelID] = &ticket
	if t.CreatorID != "" {
		r.byCreator[creatorKey(t.GuildID, t.CreatorID)] = t.ChannelID
	}
}

func (r *Registry) Get(channelID string) (model.Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byChannel[channelID]
	if !ok {
		return model.Ticket{}, false
	}
	return *t, true
}

// Transition moves a ticket between states, failing when it is not in from.
func (r *Registry) Transition(channelID string, from, to model.TicketState) (model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byChannel[channelID]
	if !ok {
		return model.Ticket{}, ErrNotTicket
	}
	if t.State != from {
		return *t, &StateError{ChannelID: channelID, State: t.State, Want: from}
	}
	t.State = to
	return *t, nil
}

// SetName records a channel rename.
func (r *Registry) SetName(channelID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.byChannel[channelID]; ok {
		t.Name = name
	}
}

// Remove drops a ticket and frees its creator's slot.
func (r *Registry) Remove(channelID string) (model.Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byChannel[channelID]
	if !ok {
		return model.Ticket{}, false
	}
	delete(r.byChannel, channelID)
	key := creatorKey(t.GuildID, t.CreatorID)
	if r.byCreator[key] == channelID {
		delete(r.byCreator, key)
	}
	return *t, true
}

// Len returns the number of registered tickets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byChannel)
}
