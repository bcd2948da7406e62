package archive

import (
	"testing"
	"time"

	"channel-rotator/models"
	"channel-rotator/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seoulClock(t *testing.T) *utils.Clock {
	t.Helper()
	c, err := utils.NewClock("Asia/Seoul", utils.LocaleKorean)
	require.NoError(t, err)
	return c
}

func TestFormatMessage(t *testing.T) {
	clock := seoulClock(t)
	msg := models.TranscriptMessage{
		Timestamp:         time.Date(2024, 1, 5, 6, 4, 5, 0, time.UTC),
		AuthorDisplayName: "Mina",
		Content:           "hello *world*",
	}
	assert.Equal(t, "[2024. 1. 5. 오후 3:04:05] Mina : hello *world*", FormatMessage(clock, msg))
}

func TestFormatMessageKeepsNewlines(t *testing.T) {
	clock := seoulClock(t)
	msg := models.TranscriptMessage{
		Timestamp:         time.Date(2024, 1, 5, 6, 4, 5, 0, time.UTC),
		AuthorDisplayName: "Mina",
		Content:           "line one\nline two",
	}
	assert.Equal(t, "[2024. 1. 5. 오후 3:04:05] Mina : line one\nline two", FormatMessage(clock, msg))
}

func TestFormatTranscript(t *testing.T) {
	clock := seoulClock(t)
	ts := time.Date(2024, 1, 5, 6, 4, 5, 0, time.UTC)
	doc := FormatTranscript(clock, []models.TranscriptMessage{
		{Timestamp: ts, AuthorDisplayName: "a", Content: "1"},
		{Timestamp: ts.Add(time.Second), AuthorDisplayName: "b", Content: "2"},
	})
	assert.Equal(t, "[2024. 1. 5. 오후 3:04:05] a : 1\n[2024. 1. 5. 오후 3:04:06] b : 2", doc)
	assert.Empty(t, FormatTranscript(clock, nil))
}

func TestToTranscriptAuthorFallback(t *testing.T) {
	withGlobal := ToTranscript(&discordgo.Message{ID: "1", Content: "x", Author: &discordgo.User{Username: "mina_k", GlobalName: "Mina"}})
	withoutGlobal := ToTranscript(&discordgo.Message{ID: "2", Content: "y", Author: &discordgo.User{Username: "mina_k"}})
	noAuthor := ToTranscript(&discordgo.Message{ID: "3"})

	assert.Equal(t, "Mina", withGlobal.AuthorDisplayName)
	assert.Equal(t, "mina_k", withoutGlobal.AuthorDisplayName)
	assert.Empty(t, noAuthor.AuthorDisplayName)
}
