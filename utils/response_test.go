package utils

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sendOnly implements nothing beyond posting messages.
type sendOnly struct {
	sent []string
	err  error
}

func (s *sendOnly) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, channelID+":"+content)
	return &discordgo.Message{ID: "m1", ChannelID: channelID, Content: content}, nil
}

func TestSendChannelMessage(t *testing.T) {
	t.Parallel()

	s := &sendOnly{}
	msg := SendChannelMessage(s, "c1", "hello")
	require.NotNil(t, msg)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, []string{"c1:hello"}, s.sent)

	failing := &sendOnly{err: errors.New("closed")}
	assert.Nil(t, SendChannelMessage(failing, "c1", "hello"))
}
