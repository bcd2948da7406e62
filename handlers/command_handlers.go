package handlers

import (
	"channel-rotator/bot"
	"channel-rotator/utils"

	"github.com/bwmarrin/discordgo"
)

var commandPermissions = map[string]string{
	"rotate":  utils.LevelAdmin,
	"status":  utils.LevelGuest,
	"history": utils.LevelAdmin,
	"ping":    utils.LevelGuest,
}

// CommandDispatcher is the central handler for all application command interactions.
// It performs permission checks and then dispatches the interaction to the appropriate handler.
func CommandDispatcher(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	commandName := i.ApplicationCommandData().Name

	if requiredLevel, ok := commandPermissions[commandName]; ok {
		if !b.Auth.CheckPermission(i.Member, requiredLevel) {
			respondEphemeral(s, i, "🚫 You do not have permission to run this command.")
			return
		}
	}

	switch commandName {
	case "rotate":
		HandleRotate(b, s, i)
	case "status":
		HandleStatus(b, s, i)
	case "history":
		HandleHistory(b, s, i)
	case "ping":
		HandlePing(s, i)
	default:
		respondEphemeral(s, i, "🚫 Internal error: unknown command.")
	}
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
