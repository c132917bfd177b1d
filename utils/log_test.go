package utils

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embedRecorder struct {
	channels []string
	embeds   []*discordgo.MessageEmbed
	err      error
}

func (r *embedRecorder) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.channels = append(r.channels, channelID)
	r.embeds = append(r.embeds, embed)
	return &discordgo.Message{ID: "log"}, nil
}

func TestLogLevelsUseEmbedColors(t *testing.T) {
	t.Parallel()

	r := &embedRecorder{}
	require.NoError(t, LogInfo(r, "logs", "System", "Startup", ""))
	require.NoError(t, LogWarn(r, "logs", "AntiRaid", "Enforce", "ban failed"))
	require.NoError(t, LogError(r, "logs", "Commands", "kick", "boom"))

	require.Len(t, r.embeds, 3)
	assert.Equal(t, ColorSuccess, r.embeds[0].Color)
	assert.Equal(t, ColorWarning, r.embeds[1].Color)
	assert.Equal(t, ColorDanger, r.embeds[2].Color)
	assert.Equal(t, "INFO Log", r.embeds[0].Title)
	assert.Equal(t, "-", r.embeds[0].Fields[2].Value)
}

func TestLogWithoutChannelIsNoop(t *testing.T) {
	t.Parallel()

	r := &embedRecorder{err: errors.New("unreachable")}
	assert.NoError(t, LogError(r, "", "Commands", "kick", "boom"))
	assert.Error(t, LogError(r, "logs", "Commands", "kick", "boom"))
}
