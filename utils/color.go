package utils

// Embed colors used across the bot.
const (
	ColorSuccess  = 0x2ecc71
	ColorDanger   = 0xe74c3c
	ColorWarning  = 0xe67e22
	ColorInfo     = 0x3498db
	ColorGiveaway = 0xf1c40f
	ColorNeutral  = 0x95a5a6
)
