package model

import "time"

// ActionKind names a moderation action recorded in the action log.
type ActionKind string

const (
	ActionKick            ActionKind = "kick"
	ActionBan             ActionKind = "ban"
	ActionUnban           ActionKind = "unban"
	ActionKickID          ActionKind = "kickid"
	ActionBanID           ActionKind = "banid"
	ActionUnbanID         ActionKind = "unbanid"
	ActionClear           ActionKind = "clear"
	ActionWarn            ActionKind = "warn"
	ActionUnwarn          ActionKind = "unwarn"
	ActionMute            ActionKind = "mute"
	ActionUnmute          ActionKind = "unmute"
	ActionTempMute        ActionKind = "tempmute"
	ActionTempUnmute      ActionKind = "tempunmute"
	ActionMassDM          ActionKind = "mass_dm"
	ActionSendDM          ActionKind = "send_dm"
	ActionGiveawayStart   ActionKind = "giveaway_start"
	ActionGiveawayEnd     ActionKind = "giveaway_end"
	ActionGiveawayCancel  ActionKind = "giveaway_cancel"
	ActionTicketPanelSent ActionKind = "ticket_panel_sent"
	ActionTicketCreate    ActionKind = "ticket_create"
	ActionTicketClose     ActionKind = "ticket_close"
	ActionTicketDelete    ActionKind = "ticket_delete"
	ActionTicketRename    ActionKind = "ticket_rename"
	ActionFeedback        ActionKind = "feedback"
	ActionChannelLock     ActionKind = "channel_lock"
	ActionChannelUnlock   ActionKind = "channel_unlock"
	ActionSlowmodeOn      ActionKind = "slowmode_on"
	ActionSlowmodeOff     ActionKind = "slowmode_off"
	ActionAntiRaid        ActionKind = "anti_raid"
	ActionAntiRaidBan     ActionKind = "antiraid_ban"
	ActionAutoDelete      ActionKind = "auto-delete"
	ActionCommandError    ActionKind = "command_error"
)

// ActionLogEntry is one immutable line of the moderation action log.
// The database table is named 'actions'.
type ActionLogEntry struct {
	Action    ActionKind `json:"action" db:"action"`
	Moderator string     `json:"moderator" db:"moderator"`
	Target    *string    `json:"target" db:"target"`
	Reason    *string    `json:"reason" db:"reason"`
	Duration  *string    `json:"duration" db:"duration"`
	Details   *string    `json:"details" db:"details"`
	Timestamp time.Time  `json:"timestamp" db:"timestamp"`
}

// ActionLogDocument is the on-disk layout of the JSON action log.
type ActionLogDocument struct {
	Actions []ActionLogEntry `json:"actions"`
}
