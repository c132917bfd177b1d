package utils

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// ChannelSender is the part of *discordgo.Session used to post channel messages.
type ChannelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// MessageSender also removes messages.
type MessageSender interface {
	ChannelSender
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// SendChannelMessage posts a message and logs, rather than returns, a failure.
func SendChannelMessage(s ChannelSender, channelID, content string) *discordgo.Message {
	msg, err := s.ChannelMessageSend(channelID, content)
	if err != nil {
		zap.L().Warn("Failed to send channel message", zap.String("channelID", channelID), zap.Error(err))
		return nil
	}
	return msg
}

// SendTransientMessage posts a message that removes itself after the given delay.
func SendTransientMessage(s MessageSender, channelID, content string, after time.Duration) error {
	msg, err := s.ChannelMessageSend(channelID, content)
	if err != nil {
		return err
	}
	time.AfterFunc(after, func() {
		if err := s.ChannelMessageDelete(channelID, msg.ID); err != nil {
			zap.L().Debug("Failed to delete transient message", zap.String("messageID", msg.ID), zap.Error(err))
		}
	})
	return nil
}

// SendEmbed posts an embed to a channel.
func SendEmbed(s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	return s.ChannelMessageSendEmbed(channelID, embed)
}

// SendErrorResponse sends an ephemeral error message.
func SendErrorResponse(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "❌ " + message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		zap.L().Warn("Error sending error response", zap.Error(err))
	}
}

// SendPublicResponse answers an interaction with a message everyone can see.
func SendPublicResponse(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
		},
	})
	if err != nil {
		zap.L().Warn("Error sending public response", zap.Error(err))
	}
}

// SendSimpleResponse sends a simple ephemeral message.
func SendSimpleResponse(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		zap.L().Warn("Error sending simple response", zap.Error(err))
	}
}

// SendFollowUp sends an ephemeral follow-up message to an interaction.
func SendFollowUp(s *discordgo.Session, i *discordgo.Interaction, message string) {
	_, err := s.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
		Content: message,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		zap.L().Warn("Error sending follow-up message", zap.Error(err))
	}
}

// SendFollowUpError sends an ephemeral follow-up error message to an interaction.
func SendFollowUpError(s *discordgo.Session, i *discordgo.Interaction, message string) {
	SendFollowUp(s, i, "❌ "+message)
}

// DeferResponse defers an interaction response, optionally making it ephemeral.
func DeferResponse(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	response := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}
	if ephemeral {
		response.Data = &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		}
	}
	return s.InteractionRespond(i.Interaction, response)
}

// DisableComponents answers a component interaction by editing its message with every
// button disabled.
func DisableComponents(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	components := disabledCopy(i.Message.Components)
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    i.Message.Content,
			Embeds:     i.Message.Embeds,
			Components: components,
		},
	})
}

func disabledCopy(components []discordgo.MessageComponent) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(components))
	for _, component := range components {
		switch c := component.(type) {
		case *discordgo.ActionsRow:
			out = append(out, discordgo.ActionsRow{Components: disabledCopy(c.Components)})
		case discordgo.ActionsRow:
			out = append(out, discordgo.ActionsRow{Components: disabledCopy(c.Components)})
		case *discordgo.Button:
			b := *c
			b.Disabled = true
			out = append(out, b)
		case discordgo.Button:
			c.Disabled = true
			out = append(out, c)
		default:
			out = append(out, component)
		}
	}
	return out
}
