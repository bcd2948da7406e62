package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"channel-rotator/bot"
	"channel-rotator/models"
	"channel-rotator/rotation"
	"channel-rotator/utils"

	"github.com/bwmarrin/discordgo"
)

// HandleRotate handles the logic for the /rotate command.
func HandleRotate(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if b.Rotator.Running() {
		respondEphemeral(s, i, "⏳ A rotation cycle is already running.")
		return
	}

	// Respond to the interaction immediately.
	respondEphemeral(s, i, "Received command to rotate the channel. Archiving...")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		log.Printf("Manual rotation requested by %s", i.Member.User.ID)
		report, err := b.Rotator.Rotate(ctx)
		s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: formatRotateOutcome(b.Clock, report, err),
			Flags:   discordgo.MessageFlagsEphemeral,
		})
	}()
}

// HandleStatus handles the logic for the /status command.
func HandleStatus(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	st, err := b.Rotator.Status(context.Background())
	if err != nil {
		log.Printf("Error reading rotation status: %v", err)
		respondEphemeral(s, i, "Error: could not read the category.")
		return
	}
	respondEphemeral(s, i, formatStatus(b.Clock, st))
}

// HandleHistory handles the logic for the /history command.
func HandleHistory(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if b.Events == nil {
		respondEphemeral(s, i, "The rotation audit log is disabled (DB_PATH is empty).")
		return
	}
	limit := 10
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "limit" {
			limit = int(opt.IntValue())
		}
	}
	events, err := b.Events.RecentEvents(context.Background(), limit)
	if err != nil {
		log.Printf("Error reading rotation events: %v", err)
		respondEphemeral(s, i, "Error: could not read the audit log.")
		return
	}
	respondEphemeral(s, i, formatHistory(b.Clock, events))
}

// HandlePing handles the logic for the /ping command.
func HandlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Pong!",
		},
	})
}

func formatRotateOutcome(clock *utils.Clock, report *rotation.Report, err error) string {
	if errors.Is(err, rotation.ErrCycleInProgress) {
		return "⏳ A rotation cycle is already running."
	}
	if err != nil {
		return fmt.Sprintf("❌ Rotation failed: %s", utils.Truncate(err.Error(), 300))
	}
	var sb strings.Builder
	archived, failed := 0, 0
	for _, a := range report.Archives {
		if a.OK {
			archived++
		} else {
			failed++
		}
	}
	fmt.Fprintf(&sb, "✅ Rotation complete: %d archived, %d failed, %d deleted.", archived, failed, len(report.Deleted))
	if report.Created != nil {
		fmt.Fprintf(&sb, "\nNew channel <#%s> expires at **%s**.", report.Created.ID, clock.Format(report.ExpiresAt))
	}
	return sb.String()
}

func formatStatus(clock *utils.Clock, st rotation.Status) string {
	if st.Current == nil {
		return "No managed channel exists. One will be created on the next check."
	}
	due := ""
	if st.Due {
		due = " (rotation due)"
	}
	return fmt.Sprintf("Current channel: <#%s> `%s` (index %03d, %d managed)\nAge: %s\nExpires: **%s**%s",
		st.Current.ID, st.Current.Name, st.Current.Index, st.ManagedCount,
		utils.FormatAge(st.Age), clock.Format(st.ExpiresAt), due)
}

func formatHistory(clock *utils.Clock, events []models.RotationEvent) string {
	if len(events) == 0 {
		return "No rotation events recorded yet."
	}
	var sb strings.Builder
	for _, ev := range events {
		fmt.Fprintf(&sb, "`%s` %s %s", clock.Format(time.Unix(ev.Timestamp, 0)), ev.Kind, ev.ChannelName)
		if ev.Error != "" {
			fmt.Fprintf(&sb, ": %s", utils.Truncate(ev.Error, 120))
		}
		sb.WriteString("\n")
	}
	return utils.Truncate(strings.TrimRight(sb.String(), "\n"), 2000)
}
