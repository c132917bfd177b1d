package tickets

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"discord-modbot/model"
	"discord-modbot/moderation"
	"discord-modbot/timers"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	mu        sync.Mutex
	channels  []*discordgo.Channel
	created   []discordgo.GuildChannelCreateData
	history   []*discordgo.Message
	dms       map[string][]*discordgo.MessageSend
	sent      []string
	deleted   []string
	renamed   map[string]string
	deleteErr error
	nextID    int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{dms: map[string][]*discordgo.MessageSend{}, renamed: map[string]string{}}
}

func (p *fakePlatform) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (p *fakePlatform) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if strings.HasPrefix(channelID, "dm-") {
		userID := strings.TrimPrefix(channelID, "dm-")
		p.dms[userID] = append(p.dms[userID], data)
	}
	return &discordgo.Message{ID: "msg", ChannelID: channelID}, nil
}

func (p *fakePlatform) GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*discordgo.Channel(nil), p.channels...), nil
}

func (p *fakePlatform) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	c := &discordgo.Channel{ID: fmt.Sprintf("ch%d", p.nextID), GuildID: guildID, Name: data.Name, Type: data.Type, ParentID: data.ParentID}
	p.channels = append(p.channels, c)
	p.created = append(p.created, data)
	return c, nil
}

func (p *fakePlatform) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, content)
	return &discordgo.Message{ID: "msg", ChannelID: channelID}, nil
}

// ChannelMessages pages newest first like the platform.
func (p *fakePlatform) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	end := len(p.history)
	if beforeID != "" {
		for i, m := range p.history {
			if m.ID == beforeID {
				end = i
			}
		}
	}
	var page []*discordgo.Message
	for i := end - 1; i >= 0 && len(page) < limit; i-- {
		page = append(page, p.history[i])
	}
	return page, nil
}

func (p *fakePlatform) ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renamed[channelID] = data.Name
	return &discordgo.Channel{ID: channelID, Name: data.Name}, nil
}

func (p *fakePlatform) ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleteErr != nil {
		return nil, p.deleteErr
	}
	p.deleted = append(p.deleted, channelID)
	return &discordgo.Channel{ID: channelID}, nil
}

func (p *fakePlatform) deletedChannels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.deleted...)
}

type recorder struct {
	mu      sync.Mutex
	actions []moderation.Action
}

func (r *recorder) Record(a moderation.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
}

func (r *recorder) kinds() []model.ActionKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []model.ActionKind
	for _, a := range r.actions {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

var (
	creator  = &discordgo.User{ID: "1001", Username: "creator", Discriminator: "0"}
	stranger = &discordgo.User{ID: "1002", Username: "stranger", Discriminator: "0"}
	staffer  = &discordgo.User{ID: "1003", Username: "staff", Discriminator: "0"}
)

func newTestManager(platform *fakePlatform, grace time.Duration) (*Manager, *recorder) {
	rec := &recorder{}
	m := NewManager(platform, NewRegistry(), timers.NewManager(nil), rec, Options{
		Config:    model.TicketConfig{CategoryName: "Tickets support", GraceDelay: grace, InlineLimit: 1900},
		BotUserID: func() string { return "bot" },
		Staff:     func(string) []string { return []string{staffer.ID} },
		Now:       func() time.Time { return time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC) },
	}, nil)
	return m, rec
}

func openTicket(t *testing.T, m *Manager) *discordgo.Channel {
	t.Helper()
	res, err := m.Open("g1", creator)
	require.NoError(t, err)
	return &discordgo.Channel{ID: res.Ticket.ChannelID, GuildID: "g1", Name: res.Ticket.Name, Type: discordgo.ChannelTypeGuildText}
}

func TestOpenCreatesCategoryAndChannel(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform()
	m, rec := newTestManager(platform, time.Hour)

	res, err := m.Open("g1", creator)
	require.NoError(t, err)
	assert.Equal(t, "ticket-1001", res.Ticket.Name)
	assert.Equal(t, model.TicketOpen, res.Ticket.State)

	require.Len(t, platform.created, 2)
	assert.Equal(t, discordgo.ChannelTypeGuildCategory, platform.created[0].Type)
	assert.Equal(t, "Tickets support", platform.created[0].Name)

	data := platform.created[1]
	assert.Equal(t, "ch1", data.ParentID)
	overwriteIDs := map[string]*discordgo.PermissionOverwrite{}
	for _, o := range data.PermissionOverwrites {
		overwriteIDs[o.ID] = o
	}
	assert.Equal(t, int64(discordgo.PermissionViewChannel), overwriteIDs["g1"].Deny)
	assert.NotZero(t, overwriteIDs["1001"].Allow&discordgo.PermissionAttachFiles)
	assert.NotZero(t, overwriteIDs["bot"].Allow&discordgo.PermissionManageChannels)
	assert.NotZero(t, overwriteIDs["1003"].Allow&discordgo.PermissionSendMessages)

	assert.Equal(t, []model.ActionKind{model.ActionTicketCreate}, rec.kinds())
	assert.Len(t, platform.dms[staffer.ID], 1)
	assert.Equal(t, 1, m.Count())
}

func TestOpenReusesCategoryAndRejectsSecondTicket(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform()
	platform.channels = []*discordgo.Channel{{ID: "cat", Name: "Tickets support", Type: discordgo.ChannelTypeGuildCategory}}
	m, _ := newTestManager(platform, time.Hour)

	first, err := m.Open("g1", creator)
	require.NoError(t, err)
	require.Len(t, platform.created, 1)
	assert.Equal(t, "cat", platform.created[0].ParentID)

	second, err := m.Open("g1", creator)
	assert.ErrorIs(t, err, ErrAlreadyOpen)
	assert.True(t, second.Existing)
	assert.Equal(t, first.Ticket.ChannelID, second.Ticket.ChannelID)

	_, err = m.Open("g2", creator)
	assert.NoError(t, err)
}

func TestCloseAuthorization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		actor   *discordgo.User
		staff   bool
		wantErr error
		want    model.TicketState
	}{
		{name: "stranger rejected", actor: stranger, wantErr: ErrNotAuthorized, want: model.TicketOpen},
		{name: "creator allowed", actor: creator, want: model.TicketClosing},
		{name: "staff allowed", actor: stranger, staff: true, want: model.TicketClosing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, _ := newTestManager(newFakePlatform(), time.Hour)
			channel := openTicket(t, m)

			_, err := m.BeginClose(channel, tt.actor, tt.staff, "button")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			got, ok := m.registry.Get(channel.ID)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.State)
		})
	}
}

func TestCloseTwiceFails(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(newFakePlatform(), time.Hour)
	channel := openTicket(t, m)
	_, err := m.BeginClose(channel, creator, false, "command")
	require.NoError(t, err)

	_, err = m.BeginClose(channel, creator, false, "command")
	var stateErr *StateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestFinishCloseDeliversTranscriptAndDeletes(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform()
	m, rec := newTestManager(platform, 10*time.Millisecond)
	channel := openTicket(t, m)

	at := time.Date(2024, 3, 4, 5, 0, 0, 0, time.UTC)
	platform.history = []*discordgo.Message{
		{ID: "1", Content: "hello", Timestamp: at, Author: &discordgo.User{Username: "creator"}},
		{ID: "2", Content: "hi, how can we help?", Timestamp: at.Add(time.Minute), Author: &discordgo.User{Username: "staff"}},
	}

	ticket, err := m.BeginClose(channel, creator, false, "button")
	require.NoError(t, err)
	assert.Equal(t, 1, m.FinishClose(ticket, creator))

	dms := platform.dms[staffer.ID]
	require.Len(t, dms, 2)
	body := dms[1].Content
	assert.Contains(t, body, "Transcript of ticket-1001 closed by creator on 2024-03-04 05:06:07 (UTC):")
	assert.Less(t, strings.Index(body, "[2024-03-04 05:00:00] creator: hello"), strings.Index(body, "[2024-03-04 05:01:00] staff: hi"))
	assert.Empty(t, dms[1].Files)

	assert.Eventually(t, func() bool { return len(platform.deletedChannels()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return m.Count() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []model.ActionKind{model.ActionTicketCreate, model.ActionTicketClose}, rec.kinds())
}

func TestLongTranscriptIsAttached(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform()
	m, _ := newTestManager(platform, time.Hour)
	channel := openTicket(t, m)

	for i := 0; i < 250; i++ {
		platform.history = append(platform.history, &discordgo.Message{
			ID: fmt.Sprintf("%04d", i), Content: fmt.Sprintf("message %d", i), Author: &discordgo.User{Username: "u"},
		})
	}

	ticket, err := m.BeginClose(channel, creator, false, "command")
	require.NoError(t, err)
	m.FinishClose(ticket, creator)

	dms := platform.dms[staffer.ID]
	require.Len(t, dms, 2)
	require.Len(t, dms[1].Files, 1)
	assert.Equal(t, "transcript.txt", dms[1].Files[0].Name)
	data, err := io.ReadAll(dms[1].Files[0].Reader)
	require.NoError(t, err)
	assert.Contains(t, string(data), "message 0\n")
	assert.Contains(t, string(data), "message 249\n")
	assert.Less(t, strings.Index(string(data), "message 0\n"), strings.Index(string(data), "message 249\n"))
}

func TestInlineLimitCountsCharacters(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform()
	m, _ := newTestManager(platform, time.Hour)
	channel := openTicket(t, m)

	for i := 0; i < 20; i++ {
		platform.history = append(platform.history, &discordgo.Message{
			ID: fmt.Sprintf("%04d", i), Content: strings.Repeat("é", 50), Author: &discordgo.User{Username: "u"},
		})
	}

	ticket, err := m.BeginClose(channel, creator, false, "command")
	require.NoError(t, err)
	m.FinishClose(ticket, creator)

	dms := platform.dms[staffer.ID]
	require.Len(t, dms, 2)
	assert.Empty(t, dms[1].Files)
	assert.Greater(t, len(dms[1].Content), 1900)
	assert.Contains(t, dms[1].Content, strings.Repeat("é", 50))
}

func TestDeletionFailureKeepsClosing(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform()
	platform.deleteErr = &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden, Status: "403 Forbidden"},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingPermissions},
	}
	m, _ := newTestManager(platform, 5*time.Millisecond)
	channel := openTicket(t, m)

	ticket, err := m.BeginClose(channel, creator, false, "command")
	require.NoError(t, err)
	m.FinishClose(ticket, creator)

	assert.Eventually(t, func() bool {
		platform.mu.Lock()
		defer platform.mu.Unlock()
		return len(platform.sent) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, platform.sent[0], "permission")

	got, ok := m.registry.Get(channel.ID)
	require.True(t, ok)
	assert.Equal(t, model.TicketClosing, got.State)
}

func TestDeleteCancelsPendingTimer(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform()
	m, rec := newTestManager(platform, time.Hour)
	channel := openTicket(t, m)

	ticket, err := m.BeginClose(channel, creator, false, "command")
	require.NoError(t, err)
	m.FinishClose(ticket, creator)
	assert.True(t, m.timers.Pending(DeletionKey(channel.ID)))

	require.NoError(t, m.Delete(channel, staffer))
	assert.False(t, m.timers.Pending(DeletionKey(channel.ID)))
	assert.Equal(t, []string{channel.ID}, platform.deletedChannels())
	assert.Contains(t, rec.kinds(), model.ActionTicketDelete)

	_, err = m.Open("g1", creator)
	assert.NoError(t, err, "slot is free after deletion")
}

func TestRenameKeepsCreatorRights(t *testing.T) {
	t.Parallel()

	platform := newFakePlatform()
	m, _ := newTestManager(platform, time.Hour)
	channel := openTicket(t, m)

	_, err := m.Rename(channel, stranger, false, "billing")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	name, err := m.Rename(channel, creator, false, "Billing Issue #42!")
	require.NoError(t, err)
	assert.Equal(t, "ticket-billing-issue-42", name)
	assert.Equal(t, name, platform.renamed[channel.ID])

	channel.Name = name
	_, err = m.BeginClose(channel, creator, false, "command")
	assert.NoError(t, err)

	_, err = m.Rename(channel, creator, false, "!!!")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestAdoptAndForget(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(newFakePlatform(), time.Hour)
	adopted := m.Adopt([]*discordgo.Channel{
		{ID: "a", GuildID: "g1", Name: "ticket-1001", Type: discordgo.ChannelTypeGuildText},
		{ID: "b", GuildID: "g1", Name: "ticket-billing", Type: discordgo.ChannelTypeGuildText},
		{ID: "c", GuildID: "g1", Name: "general", Type: discordgo.ChannelTypeGuildText},
		{ID: "d", GuildID: "g1", Name: "ticket-1002", Type: discordgo.ChannelTypeGuildCategory},
	})
	assert.Equal(t, 1, adopted)

	got, ok := m.registry.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1001", got.CreatorID)

	_, err := m.Open("g1", creator)
	assert.ErrorIs(t, err, ErrAlreadyOpen)

	assert.True(t, m.Forget("a"))
	assert.False(t, m.Forget("a"))

	_, err = m.BeginClose(&discordgo.Channel{ID: "c", Name: "general", Type: discordgo.ChannelTypeGuildText}, creator, true, "command")
	assert.ErrorIs(t, err, ErrNotTicket)

	// A renamed ticket adopted lazily has no known creator and is staff-only.
	renamed := &discordgo.Channel{ID: "b", GuildID: "g1", Name: "ticket-billing", Type: discordgo.ChannelTypeGuildText}
	_, err = m.BeginClose(renamed, creator, false, "command")
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = m.BeginClose(renamed, staffer, true, "command")
	assert.NoError(t, err)
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		err  error
	}{
		{in: "My Ticket", want: "my-ticket"},
		{in: "ÉtÉ 2024", want: "t-2024"},
		{in: "a_b.c", want: "abc"},
		{in: "???", err: ErrInvalidName},
		{in: "", err: ErrInvalidName},
	}
	for _, tt := range tests {
		got, err := Sanitize(tt.in)
		if tt.err != nil {
			assert.True(t, errors.Is(err, tt.err), tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestBuildTranscriptWithFetchError(t *testing.T) {
	t.Parallel()

	out := BuildTranscript("ticket-1", "mod", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil, errors.New("boom"))
	assert.True(t, strings.HasPrefix(out, "Transcript of ticket-1 closed by mod on 2024-01-01 00:00:00 (UTC):\n\n"))
	assert.Contains(t, out, "ERROR WHILE FETCHING MESSAGES: boom")
}
