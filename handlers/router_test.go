package handlers

import (
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"discord-modbot/antiraid"
	"discord-modbot/commands"
	"discord-modbot/model"
	"discord-modbot/moderation"
	"discord-modbot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// routerPlatform behaves like the platform for one channel: deleting a message twice
// fails with Unknown Message.
type routerPlatform struct {
	mu      sync.Mutex
	events  []string
	deleted map[string]bool
	banErr  error
}

func (p *routerPlatform) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleted == nil {
		p.deleted = make(map[string]bool)
	}
	if p.deleted[messageID] {
		return &discordgo.RESTError{
			Response: &http.Response{StatusCode: http.StatusNotFound, Status: http.StatusText(http.StatusNotFound)},
			Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage, Message: "Unknown Message"},
		}
	}
	p.deleted[messageID] = true
	p.events = append(p.events, "delete:"+messageID)
	return nil
}

func (p *routerPlatform) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &discordgo.Message{ID: "notice", ChannelID: channelID}, nil
}

func (p *routerPlatform) GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.banErr != nil {
		return p.banErr
	}
	p.events = append(p.events, "ban:"+userID)
	return nil
}

func (p *routerPlatform) record(event string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *routerPlatform) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type actionLog struct {
	mu      sync.Mutex
	actions []model.ActionKind
}

func (l *actionLog) Record(a moderation.Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, a.Kind)
}

type routerFixture struct {
	router   *messageRouter
	platform *routerPlatform
	log      *actionLog
	mirrored []utils.LogLevel
}

func newRouterFixture(raidEnabled bool) *routerFixture {
	f := &routerFixture{platform: &routerPlatform{}, log: &actionLog{}}
	filter := moderation.NewFilter([]string{"mot1"}, true)
	identity := func() string { return "bot (0)" }
	f.router = &messageRouter{
		platform: f.platform,
		filter:   func() *moderation.Filter { return filter },
		guard: antiraid.NewGuard(model.AntiRaidConfig{
			Enabled:        raidEnabled,
			VelocityWindow: time.Second,
			MinAccountAge:  600 * time.Second,
			TrackingTTL:    time.Minute,
			TrackingSize:   100,
		}),
		enforcer:    antiraid.NewEnforcer(f.platform, f.log, identity, nil),
		recorder:    f.log,
		botIdentity: identity,
		logger:      zap.NewNop(),
		mirror: func(level utils.LogLevel, module, operation, extra string) {
			f.mirrored = append(f.mirrored, level)
		},
		prefix:   func() string { return "!" },
		commands: commands.NewRegistry(commands.Definitions()),
		run: func(m *discordgo.Message, cmd *commands.Command, inv commands.Invocation, perms int64) {
			f.platform.record("command:" + cmd.Name)
		},
	}
	return f
}

const oldAccountID = "175928847299117063"

func guildMessage(authorID, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Content:   content,
		Timestamp: time.Now(),
		Author:    &discordgo.User{ID: authorID, Username: "someone", Discriminator: "0"},
	}
}

func TestRouteCleanMessageReachesCommand(t *testing.T) {
	f := newRouterFixture(true)

	f.router.route(guildMessage(oldAccountID, "!ping"), 0)

	assert.Equal(t, []string{"command:ping"}, f.platform.Events())
	assert.Empty(t, f.log.actions)
}

func TestRouteFilterRemovesOnceAndContinues(t *testing.T) {
	f := newRouterFixture(true)

	f.router.route(guildMessage(oldAccountID, "!ping mot1 discord.gg/abc"), 0)

	assert.Equal(t, []string{"delete:m1", "command:ping"}, f.platform.Events())
	assert.Equal(t, []model.ActionKind{model.ActionAutoDelete}, f.log.actions)
}

func TestRouteInviteExemptForMessageManagers(t *testing.T) {
	f := newRouterFixture(false)

	f.router.route(guildMessage(oldAccountID, "!ping discord.gg/abc"), discordgo.PermissionManageMessages)

	assert.Equal(t, []string{"command:ping"}, f.platform.Events())
}

func TestRouteRaidBanStopsProcessing(t *testing.T) {
	f := newRouterFixture(true)
	fresh := snowflake(time.Now().Add(-100 * time.Second))

	f.router.route(guildMessage(fresh, "!ping discord.gg/abc"), 0)

	// The filter removed the message first; the guard still bans and no command runs.
	assert.Equal(t, []string{"delete:m1", "ban:" + fresh}, f.platform.Events())
	assert.Equal(t, []model.ActionKind{model.ActionAutoDelete, model.ActionAntiRaidBan}, f.log.actions)
	assert.Empty(t, f.mirrored)
}

func TestRouteFailedRaidBanLetsMessageThrough(t *testing.T) {
	f := newRouterFixture(true)
	f.platform.banErr = errors.New("gateway hiccup")
	fresh := snowflake(time.Now().Add(-100 * time.Second))

	f.router.route(guildMessage(fresh, "!ping"), 0)

	assert.Equal(t, []string{"delete:m1", "command:ping"}, f.platform.Events())
	assert.Equal(t, []utils.LogLevel{utils.Warn}, f.mirrored)
	assert.Empty(t, f.log.actions)
}

func TestRouteDisabledGuardIgnoresFreshAccounts(t *testing.T) {
	f := newRouterFixture(false)
	fresh := snowflake(time.Now().Add(-100 * time.Second))

	f.router.route(guildMessage(fresh, "!ping"), 0)

	assert.Equal(t, []string{"command:ping"}, f.platform.Events())
}

func TestRouteIgnoresUnknownCommands(t *testing.T) {
	f := newRouterFixture(false)

	f.router.route(guildMessage(oldAccountID, "!doesnotexist"), 0)
	f.router.route(guildMessage(oldAccountID, "hello there"), 0)

	assert.Empty(t, f.platform.Events())
}

type staticPermissions struct {
	perms int64
	err   error
	calls int
}

func (s *staticPermissions) UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error) {
	s.calls++
	return s.perms, s.err
}

func TestResolvePermissions(t *testing.T) {
	guild := &discordgo.Guild{
		ID:    "g1",
		Roles: []*discordgo.Role{{ID: "g1"}, {ID: "admin", Permissions: discordgo.PermissionAdministrator}},
	}
	admin := &discordgo.Member{User: &discordgo.User{ID: "1"}, Roles: []string{"admin"}}

	s := &staticPermissions{}
	assert.Equal(t, int64(discordgo.PermissionAll), resolvePermissions(s, guild, admin, "1", "c1"))
	assert.Zero(t, s.calls)

	s = &staticPermissions{perms: discordgo.PermissionAdministrator}
	got := resolvePermissions(s, nil, admin, "1", "c1")
	assert.True(t, utils.HasPermission(got, discordgo.PermissionBanMembers))
	assert.Equal(t, 1, s.calls)

	s = &staticPermissions{err: errors.New("unknown channel")}
	assert.Zero(t, resolvePermissions(s, nil, nil, "1", "c1"))
	require.Equal(t, 1, s.calls)
}
