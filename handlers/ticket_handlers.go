package handlers

import (
	"errors"
	"fmt"
	"strings"

	"discord-modbot/bot"
	"discord-modbot/model"
	"discord-modbot/moderation"
	"discord-modbot/tickets"
	"discord-modbot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const msgTicketClosing = "✅ Ticket closed. Sending the transcript to staff, then deleting in 5 seconds..."

func ticketPanelEmbed(botUser *discordgo.User) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "🌟 Welcome to the Help Center 🌟",
		Description: "Click the button below to **open a new ticket**.\n" +
			"Our support team is here to help with all your questions and problems.\n\n" +
			"**Why open a ticket?**\n" +
			"• Technical help\n" +
			"• Reporting a problem\n" +
			"• General questions\n" +
			"• And much more!",
		Color:  utils.ColorInfo,
		Footer: &discordgo.MessageEmbedFooter{Text: "Press the button to get started!"},
	}
	if botUser != nil {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: botUser.AvatarURL("256")}
	}
	return embed
}

func handleTicketPanel(c *commandContext) error {
	_, err := c.s.ChannelMessageSendComplex(c.m.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{ticketPanelEmbed(c.s.State.User)},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Open a ticket",
					Style:    discordgo.PrimaryButton,
					CustomID: tickets.CreateButtonID,
					Emoji:    &discordgo.ComponentEmoji{Name: "🎫"},
				},
			}},
		},
	})
	if err != nil {
		return utils.Classify(err)
	}
	c.deleteInvocation()

	channelName := c.m.ChannelID
	if ch, err := c.channel(); err == nil {
		channelName = ch.Name
	}
	c.record(moderation.Action{
		Kind:    model.ActionTicketPanelSent,
		Details: "Ticket panel sent in " + channelName,
	})
	return nil
}

func handleTicket(c *commandContext) error {
	prefix := c.b.GetConfig().Prefix
	switch strings.ToLower(c.inv.Arg(0)) {
	case "close":
		ch, err := c.channel()
		if err != nil {
			return err
		}
		t, err := c.b.Tickets.BeginClose(ch, c.m.Author, c.isStaff(), "command")
		if err != nil {
			if errors.Is(err, tickets.ErrNotTicket) {
				return rejectf("❌ This command (`%sticket close`) must be used in a ticket channel.", prefix)
			}
			return err
		}
		c.reply(msgTicketClosing)
		go c.b.Tickets.FinishClose(t, c.m.Author)
		return nil
	case "delete":
		if !c.isStaff() {
			return tickets.ErrNotAuthorized
		}
		ch, err := c.channel()
		if err != nil {
			return err
		}
		return c.b.Tickets.Delete(ch, c.m.Author)
	case "":
		return rejectf("❌ To open a ticket, please use the ticket panel (`%sticketpanel`).", prefix)
	default:
		return rejectf("❌ Usage: `%sticket close` or use the ticket panel.", prefix)
	}
}

func handleRename(c *commandContext) error {
	ch, err := c.channel()
	if err != nil {
		return err
	}
	name, err := c.b.Tickets.Rename(ch, c.m.Author, c.isStaff(), c.inv.Rest(0))
	if err != nil {
		return err
	}
	c.reply(fmt.Sprintf("✅ Ticket renamed to: **%s**", name))
	return nil
}

func handleCreateTicketButton(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	// 1. Acknowledge privately, channel creation takes a few calls
	if err := utils.DeferResponse(s, i, true); err != nil {
		b.Logger.Warn("Failed to defer ticket creation", zap.Error(err))
		return
	}

	// 2. Provision the ticket
	user := interactionUser(i)
	result, err := b.Tickets.Open(i.GuildID, user)
	switch {
	case err == nil:
		utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("✅ Your ticket has been created: <#%s>", result.Ticket.ChannelID))
	case result.Existing && result.Ticket.ChannelID != "":
		utils.SendFollowUpError(s, i.Interaction, fmt.Sprintf("You already have an open ticket: <#%s>", result.Ticket.ChannelID))
	case result.Existing:
		utils.SendFollowUpError(s, i.Interaction, "Your ticket is already being created.")
	case utils.IsAuthorizationDenied(err):
		utils.SendFollowUpError(s, i.Interaction, "I don't have permission to create the ticket channel. Please check my roles (especially 'Manage Channels').")
	default:
		b.Logger.Error("Ticket creation failed", zap.String("user", user.ID), zap.Error(err))
		utils.SendFollowUpError(s, i.Interaction, "An error occurred while creating the ticket: "+err.Error())
	}
}

func handleCloseTicketButton(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ch, err := s.State.Channel(i.ChannelID)
	if err != nil {
		if ch, err = s.Channel(i.ChannelID); err != nil {
			utils.SendErrorResponse(s, i, "Cannot read this channel.")
			return
		}
	}

	user := interactionUser(i)
	t, err := b.Tickets.BeginClose(ch, user, utils.IsPrivilegedStaff(interactionPermissions(i)), "button")
	if err != nil {
		message, _ := describeCommandError(err)
		utils.SendErrorResponse(s, i, strings.TrimPrefix(message, "❌ "))
		return
	}
	utils.SendPublicResponse(s, i, msgTicketClosing)
	go b.Tickets.FinishClose(t, user)
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func interactionPermissions(i *discordgo.InteractionCreate) int64 {
	if i.Member == nil {
		return 0
	}
	return i.Member.Permissions
}
