package command

import "github.com/bwmarrin/discordgo"

// Command is an interface for application commands.
type Command interface {
	Definition() *discordgo.ApplicationCommand
}

// AllCommands holds all the command instances.
var AllCommands = []Command{
	&RotateCommand{},
	&StatusCommand{},
	&HistoryCommand{},
	&PingCommand{},
}

// manageChannels hides commands that delete channels or expose the audit log
// from members who cannot manage channels. The handlers still check roles.
var manageChannels int64 = discordgo.PermissionManageChannels

var restricted = map[string]bool{
	"rotate":  true,
	"history": true,
}

// GetCommandDefinitions returns the guild command set, with default member
// permissions applied to the restricted commands.
func GetCommandDefinitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, 0, len(AllCommands))
	for _, cmd := range AllCommands {
		def := cmd.Definition()
		if restricted[def.Name] {
			def.DefaultMemberPermissions = &manageChannels
		}
		defs = append(defs, def)
	}
	return defs
}
