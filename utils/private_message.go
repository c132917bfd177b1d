package utils

import (
	"fmt"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/sourcegraph/conc/pool"
)

// DirectMessenger is the part of *discordgo.Session needed to reach a user by DM.
type DirectMessenger interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// SendPrivateComplex sends a direct message with arbitrary content to a user.
func SendPrivateComplex(s DirectMessenger, userID string, data *discordgo.MessageSend) error {
	channel, err := s.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("error creating private channel with user %s: %w", userID, Classify(err))
	}
	if _, err := s.ChannelMessageSendComplex(channel.ID, data); err != nil {
		return fmt.Errorf("error sending private message to user %s: %w", userID, Classify(err))
	}
	return nil
}

// SendPrivateMessage sends a direct message to a user.
func SendPrivateMessage(s DirectMessenger, userID, message string) error {
	return SendPrivateComplex(s, userID, &discordgo.MessageSend{Content: message})
}

// SendPrivateEmbedMessage sends a direct message with an embed to a user.
func SendPrivateEmbedMessage(s DirectMessenger, userID string, embed *discordgo.MessageEmbed) error {
	return SendPrivateComplex(s, userID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
}

// FanOutPrivate delivers a direct message to every user with at most workers sends in
// flight. build is called once per recipient so attachments get a fresh reader.
// onError, when set, is called for every failed delivery.
func FanOutPrivate(s DirectMessenger, userIDs []string, workers int, build func(userID string) *discordgo.MessageSend, onError func(userID string, err error)) (sent, failed int) {
	if workers < 1 {
		workers = 1
	}
	var sentCount, failedCount atomic.Int64
	p := pool.New().WithMaxGoroutines(workers)
	for _, userID := range userIDs {
		p.Go(func() {
			if err := SendPrivateComplex(s, userID, build(userID)); err != nil {
				failedCount.Add(1)
				if onError != nil {
					onError(userID, err)
				}
				return
			}
			sentCount.Add(1)
		})
	}
	p.Wait()
	return int(sentCount.Load()), int(failedCount.Load())
}
