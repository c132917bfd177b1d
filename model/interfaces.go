package model

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Bot is the part of the runtime that helpers outside the bot package rely on.
type Bot interface {
	GetConfig() *Config
	GetSession() *discordgo.Session
	GetLogger() *zap.Logger
}
