package handlers

import (
	"context"
	"fmt"
	"strings"

	"discord-modbot/bot"
	"discord-modbot/massdm"
	"discord-modbot/model"
	"discord-modbot/moderation"
	"discord-modbot/tickets"
	"discord-modbot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	customID := i.MessageComponentData().CustomID
	switch {
	case customID == tickets.CreateButtonID:
		handleCreateTicketButton(s, i, b)
	case customID == tickets.CloseButtonID:
		handleCloseTicketButton(s, i, b)
	case strings.HasPrefix(customID, massdm.ConfirmPrefix), strings.HasPrefix(customID, massdm.CancelPrefix):
		handleMassDMButton(s, i, b, customID)
	}
}

func handleMassDMButton(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot, customID string) {
	confirm, id, ok := massdm.ParseCustomID(customID)
	if !ok {
		return
	}

	// 1. Only the invoker may answer, and only once
	user := interactionUser(i)
	sess, err := b.MassDM.Claim(id, user.ID)
	if err != nil {
		message, _ := describeCommandError(err)
		utils.SendErrorResponse(s, i, strings.TrimPrefix(message, "❌ "))
		return
	}

	// 2. Disable the buttons on the prompt
	if err := utils.DisableComponents(s, i); err != nil {
		b.Logger.Warn("Failed to disable mass DM buttons", zap.String("session", sess.ID), zap.Error(err))
	}
	if !confirm {
		utils.SendChannelMessage(s, sess.ChannelID, "❌ Sending cancelled.")
		return
	}

	// 3. Deliver in the background, then report
	recipients := b.MemberIDs(sess.GuildID)
	utils.SendChannelMessage(s, sess.ChannelID, fmt.Sprintf("🚀 Sending to %d members...", len(recipients)))
	go func() {
		result := massdm.Deliver(context.Background(), s, recipients, sess.Message, b.GetConfig().MassDM.Delay, b.Logger.Named("massdm"))
		utils.SendChannelMessage(s, sess.ChannelID, fmt.Sprintf("✅ Message sent to **%d** members. Failures: **%d**", result.Sent, result.Failed))
		b.Recorder.Record(moderation.Action{
			Kind:      model.ActionMassDM,
			Moderator: utils.UserIdentity(user),
			Details:   fmt.Sprintf("Sent to %d members, %d failures", result.Sent, result.Failed),
		})
	}()
}
