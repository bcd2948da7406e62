package command

import "github.com/bwmarrin/discordgo"

// RotateCommand defines the structure for the /rotate command.
type RotateCommand struct{}

// Definition returns the application command definition.
func (c *RotateCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "rotate",
		Description: "Archive the current channel now and create its successor",
	}
}

// StatusCommand defines the structure for the /status command.
type StatusCommand struct{}

// Definition returns the application command definition.
func (c *StatusCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "status",
		Description: "Show the current rotation channel and when it expires",
	}
}

var minHistory = 1.0

// HistoryCommand defines the structure for the /history command.
type HistoryCommand struct{}

// Definition returns the application command definition.
func (c *HistoryCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "history",
		Description: "List recent rotation events",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "limit",
				Description: "Number of events to show (default 10)",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Required:    false,
				MinValue:    &minHistory,
				MaxValue:    25,
			},
		},
	}
}

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Responds with Pong!",
	}
}
