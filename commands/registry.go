package commands

import (
	"fmt"
	"strings"

	"discord-modbot/utils"

	"github.com/bwmarrin/discordgo"
)

// Category groups commands in the help embed.
type Category string

const (
	CategoryModeration Category = "👮 Moderation"
	CategoryTickets    Category = "🎫 Tickets"
	CategoryUtilities  Category = "🛠️ Utilities"
)

// Command describes one prefix command.
type Command struct {
	Name    string
	Aliases []string
	// Signature lists the arguments as shown in usage errors.
	Signature   string
	Description string
	Category    Category
	// MinArgs is the number of arguments the command cannot run without.
	MinArgs int
	// Permission is the guild permission the invoker must hold; 0 means everyone.
	Permission int64
}

// Usage renders the usage line for a command.
func (c *Command) Usage(prefix string) string {
	if c.Signature == "" {
		return prefix + c.Name
	}
	return prefix + c.Name + " " + c.Signature
}

const admin = discordgo.PermissionAdministrator

// Definitions returns the command table of the bot.
func Definitions() []*Command {
	return []*Command{
		{Name: "kick", Signature: "<member> [reason]", Description: "Kick a member", Category: CategoryModeration, MinArgs: 1, Permission: admin},
		{Name: "ban", Signature: "<member> [reason]", Description: "Ban a member", Category: CategoryModeration, MinArgs: 1, Permission: admin},
		{Name: "unban", Signature: "<name or id>", Description: "Unban a user by name or ID", Category: CategoryModeration, MinArgs: 1, Permission: admin},
		{Name: "clear", Signature: "<amount>", Description: "Delete the last messages of the channel", Category: CategoryModeration, MinArgs: 1, Permission: admin},
		{Name: "warn", Signature: "<member> [reason]", Description: "Warn a member, banning at the threshold", Category: CategoryModeration, MinArgs: 1, Permission: admin},
		{Name: "unwarn", Signature: "<member>", Description: "Reset a member's warnings", Category: CategoryModeration, MinArgs: 1, Permission: admin},
		{Name: "mute", Signature: "<member> [reason]", Description: "Mute a member on every channel", Category: CategoryModeration, MinArgs: 1, Permission: admin},
		{Name: "unmute", Signature: "<member>", Description: "Lift a mute", Category: CategoryModeration, MinArgs: 1, Permission: admin},
		{Name: "tempmute", Signature: "<member> <duration> [reason]", Description: "Mute a member for 10s, 5m, 1h or 2d", Category: CategoryModeration, MinArgs: 2, Permission: admin},
		{Name: "banid", Signature: "<id> [reason]", Description: "Ban a user by ID", Category: CategoryModeration, MinArgs: 1, Permission: admin},
		{Name: "kickid", Signature: "<id> [reason]", Description: "Kick a member by ID", Category: CategoryModeration, MinArgs: 1, Permission: admin},
		{Name: "unbanid", Signature: "<id>", Description: "Unban a user by ID", Category: CategoryModeration, MinArgs: 1, Permission: admin},
		{Name: "lock", Description: "Stop @everyone from talking here", Category: CategoryModeration, Permission: admin},
		{Name: "unlock", Description: "Let @everyone talk here again", Category: CategoryModeration, Permission: admin},
		{Name: "slowmode", Signature: "<seconds>", Description: "Set the channel slowmode (0 to 21600)", Category: CategoryModeration, MinArgs: 1, Permission: admin},
		{Name: "raid", Signature: "<on|off>", Description: "Toggle the anti-raid guard", Category: CategoryModeration, MinArgs: 1, Permission: admin},

		{Name: "ticketpanel", Description: "Post the ticket creation panel", Category: CategoryTickets, Permission: admin},
		{Name: "ticket", Signature: "<close|delete>", Description: "Close or delete the current ticket", Category: CategoryTickets},
		{Name: "rename", Signature: "<name>", Description: "Rename the current ticket", Category: CategoryTickets, MinArgs: 1},

		{Name: "send", Signature: "<member> <message>", Description: "DM a member", Category: CategoryUtilities, MinArgs: 2, Permission: admin},
		{Name: "sendall", Signature: "<message>", Description: "DM every member after confirmation", Category: CategoryUtilities, MinArgs: 1, Permission: admin},
		{Name: "giveaway", Signature: "<duration> <prize> | cancel <message-id>", Description: "Start or cancel a giveaway", Category: CategoryUtilities, MinArgs: 2, Permission: admin},
		{Name: "sondage", Aliases: []string{"poll"}, Signature: "<question>", Description: "Start a 👍/👎 poll", Category: CategoryUtilities, MinArgs: 1},
		{Name: "say", Signature: "<message>", Description: "Make the bot say something", Category: CategoryUtilities, MinArgs: 1, Permission: discordgo.PermissionManageMessages},
		{Name: "feedback", Signature: "<message>", Description: "Send feedback to the staff", Category: CategoryUtilities, MinArgs: 1},
		{Name: "userinfo", Signature: "[member]", Description: "Show information about a member", Category: CategoryUtilities},
		{Name: "serverinfo", Description: "Show information about the server", Category: CategoryUtilities},
		{Name: "ping", Description: "Show the gateway latency", Category: CategoryUtilities},
		{Name: "8ball", Signature: "<question>", Description: "Ask the magic 8-ball", Category: CategoryUtilities, MinArgs: 1},
		{Name: "sysinfo", Description: "Show host resource usage", Category: CategoryUtilities, Permission: admin},
		{Name: "help", Description: "Show this message", Category: CategoryUtilities},
	}
}

// Registry resolves command names and aliases.
type Registry struct {
	commands []*Command
	byName   map[string]*Command
}

func NewRegistry(defs []*Command) *Registry {
	r := &Registry{commands: defs, byName: make(map[string]*Command)}
	for _, c := range defs {
		r.byName[c.Name] = c
		for _, alias := range c.Aliases {
			r.byName[alias] = c
		}
	}
	return r
}

// Lookup finds a command by name or alias, case-insensitively.
func (r *Registry) Lookup(name string) (*Command, bool) {
	c, ok := r.byName[strings.ToLower(name)]
	return c, ok
}

// Commands returns the table in definition order.
func (r *Registry) Commands() []*Command {
	return r.commands
}

// HelpEmbed lists the commands by category.
func (r *Registry) HelpEmbed(prefix string) *discordgo.MessageEmbed {
	grouped := make(map[Category][]string)
	var categories []Category
	for _, c := range r.commands {
		if _, seen := grouped[c.Category]; !seen {
			categories = append(categories, c.Category)
		}
		grouped[c.Category] = append(grouped[c.Category], "`"+strings.TrimPrefix(c.Usage(prefix), prefix)+"`")
	}

	embed := &discordgo.MessageEmbed{
		Title:       "📖 Command list",
		Description: fmt.Sprintf("Prefix: `%s`", prefix),
		Color:       utils.ColorInfo,
	}
	for _, c := range categories {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  string(c),
			Value: utils.Truncate(strings.Join(grouped[c], "\n"), 1024),
		})
	}
	return embed
}
