package archive

import (
	"fmt"
	"strings"

	"channel-rotator/models"
	"channel-rotator/utils"

	"github.com/bwmarrin/discordgo"
)

// FormatMessage renders one message as "[<localized timestamp>] <author> : <content>".
// Embedded newlines in the content are kept as-is.
func FormatMessage(clock *utils.Clock, msg models.TranscriptMessage) string {
	return fmt.Sprintf("[%s] %s : %s", clock.Format(msg.Timestamp), msg.AuthorDisplayName, msg.Content)
}

// FormatTranscript joins formatted messages with newlines, in the order given.
func FormatTranscript(clock *utils.Clock, msgs []models.TranscriptMessage) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, FormatMessage(clock, m))
	}
	return strings.Join(lines, "\n")
}

// ToTranscript converts a Discord message. The author falls back from global name to username.
func ToTranscript(m *discordgo.Message) models.TranscriptMessage {
	var author string
	if m.Author != nil {
		author = m.Author.GlobalName
		if author == "" {
			author = m.Author.Username
		}
	}
	return models.TranscriptMessage{
		ID:                m.ID,
		Timestamp:         m.Timestamp,
		AuthorDisplayName: author,
		Content:           m.Content,
	}
}
