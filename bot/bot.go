package bot

import (
	"fmt"
	"sync/atomic"
	"time"

	"discord-modbot/antiraid"
	"discord-modbot/commands"
	"discord-modbot/config"
	"discord-modbot/giveaway"
	"discord-modbot/massdm"
	"discord-modbot/model"
	"discord-modbot/moderation"
	"discord-modbot/tickets"
	"discord-modbot/timers"
	"discord-modbot/utils"
	"discord-modbot/utils/database"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var _ model.Bot = (*Bot)(nil)

type Bot struct {
	Session   *discordgo.Session
	Logger    *zap.Logger
	StartedAt time.Time

	config     atomic.Pointer[model.Config]
	filter     atomic.Pointer[moderation.Filter]
	configOpts config.Options

	Store      *database.Store
	Timers     *timers.Manager
	Recorder   *moderation.Recorder
	Moderation *moderation.Engine
	Muter      *moderation.Muter
	RaidGuard  *antiraid.Guard
	RaidBans   *antiraid.Enforcer
	Tickets    *tickets.Manager
	Giveaways  *giveaway.Service
	MassDM     *massdm.Sessions
	Commands   *commands.Registry

	scheduler *Scheduler
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load()
}

func (b *Bot) GetSession() *discordgo.Session {
	return b.Session
}

func (b *Bot) GetLogger() *zap.Logger {
	return b.Logger
}

// Filter returns the content filter built from the current configuration.
func (b *Bot) Filter() *moderation.Filter {
	return b.filter.Load()
}

// BotUserID returns the bot's own user ID once the gateway is ready.
func (b *Bot) BotUserID() string {
	if b.Session.State == nil || b.Session.State.User == nil {
		return ""
	}
	return b.Session.State.User.ID
}

// BotIdentity returns the bot's identity as written to the action log.
func (b *Bot) BotIdentity() string {
	if b.Session.State == nil || b.Session.State.User == nil {
		return "bot"
	}
	return utils.UserIdentity(b.Session.State.User)
}

// Guild returns the cached guild, or nil when it is not in the state.
func (b *Bot) Guild(guildID string) *discordgo.Guild {
	g, err := b.Session.State.Guild(guildID)
	if err != nil {
		return nil
	}
	return g
}

// StaffIDs lists the privileged staff of a guild from the member cache.
func (b *Bot) StaffIDs(guildID string) []string {
	var ids []string
	for _, member := range utils.PrivilegedStaff(b.Guild(guildID)) {
		ids = append(ids, member.User.ID)
	}
	return ids
}

// MemberIDs lists the cached non-bot members of a guild.
func (b *Bot) MemberIDs(guildID string) []string {
	g := b.Guild(guildID)
	if g == nil {
		return nil
	}
	var ids []string
	for _, member := range g.Members {
		if member.User == nil || member.User.Bot {
			continue
		}
		ids = append(ids, member.User.ID)
	}
	return ids
}

func New(cfg *model.Config, opts config.Options, logger *zap.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
	dg.Client = utils.NewRESTClient(20 * time.Second)
	dg.StateEnabled = true
	dg.State.TrackMembers = true
	dg.State.TrackChannels = true
	dg.State.TrackRoles = true

	store, err := database.Open(cfg.Storage, logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open moderation store: %w", err)
	}

	opts.Logger = logger.Named("config")
	b := &Bot{
		Session:    dg,
		Logger:     logger,
		StartedAt:  time.Now(),
		configOpts: opts,
		Store:      store,
		Timers:     timers.NewManager(logger.Named("timers")),
		Commands:   commands.NewRegistry(commands.Definitions()),
	}
	b.config.Store(cfg)
	b.filter.Store(moderation.NewFilter(cfg.Moderation.BadWords, cfg.Moderation.BlockInvites))

	b.Recorder = moderation.NewRecorder(store.Actions, logger.Named("actions"))
	b.Moderation = moderation.NewEngine(store.Warns, b.Recorder, dg, cfg.Moderation.MaxWarns, b.BotIdentity, logger.Named("moderation"))
	b.Muter = moderation.NewMuter(dg, b.Timers, b.Recorder, b.BotIdentity, logger.Named("mute"))
	b.RaidGuard = antiraid.NewGuard(cfg.AntiRaid)
	b.RaidBans = antiraid.NewEnforcer(dg, b.Recorder, b.BotIdentity, logger.Named("antiraid"))
	b.Tickets = tickets.NewManager(dg, tickets.NewRegistry(), b.Timers, b.Recorder, tickets.Options{
		Config:    cfg.Tickets,
		BotUserID: b.BotUserID,
		Staff:     b.StaffIDs,
	}, logger.Named("tickets"))
	b.Giveaways = giveaway.NewService(dg, b.Timers, b.Recorder, logger.Named("giveaway"))
	b.MassDM = massdm.NewSessions(b.Timers, cfg.MassDM.ConfirmTTL, b.expireMassDM)
	b.scheduler = NewScheduler(b)
	return b, nil
}

// expireMassDM strips the buttons from a confirmation nobody answered.
func (b *Bot) expireMassDM(sess massdm.Session) {
	if sess.PromptID == "" {
		return
	}
	edit := discordgo.NewMessageEdit(sess.ChannelID, sess.PromptID)
	edit.Components = &[]discordgo.MessageComponent{}
	if _, err := b.Session.ChannelMessageEditComplex(edit); err != nil {
		b.Logger.Warn("Failed to expire mass DM confirmation", zap.String("session", sess.ID), zap.Error(err))
	}
	utils.SendChannelMessage(b.Session, sess.ChannelID, "⌛ Confirmation expired. Nothing was sent.")
}

func (b *Bot) Close() {
	b.Logger.Info("Gracefully shutting down.")
	b.scheduler.Stop()
	b.Timers.StopAll()
	if err := b.Session.Close(); err != nil {
		b.Logger.Warn("Error closing gateway session", zap.Error(err))
	}
	if err := b.Store.Close(); err != nil {
		b.Logger.Warn("Error closing moderation store", zap.Error(err))
	}
}

// ReloadConfig re-reads the configuration. The prefix, log channel and content filter
// apply immediately; other settings need a restart.
func (b *Bot) ReloadConfig() error {
	b.Logger.Info("Reloading configuration...")
	newCfg, err := config.Load(b.configOpts)
	if err != nil {
		b.Logger.Error("Error reloading config", zap.Error(err))
		return err
	}
	newCfg.BotToken = b.GetConfig().BotToken

	b.config.Store(newCfg)
	b.filter.Store(moderation.NewFilter(newCfg.Moderation.BadWords, newCfg.Moderation.BlockInvites))
	b.Logger.Info("Configuration reloaded successfully.")
	return nil
}
