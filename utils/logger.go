package utils

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"
	"unicode/utf8"

	"channel-rotator/platform"

	"github.com/bwmarrin/discordgo"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

// maxFieldLen is Discord's limit for an embed field value.
const maxFieldLen = 1024

// AdminLogger writes every entry to the process log and mirrors it to an admin channel as an embed.
type AdminLogger struct {
	client    platform.Client
	channelID string
	now       func() time.Time
}

// NewAdminLogger creates a logger. An empty channelID disables the admin channel.
func NewAdminLogger(client platform.Client, channelID string) *AdminLogger {
	if channelID == "" {
		log.Println("Warning: ADMIN_LOG_CHANNEL_ID is not set. Logging to channel will be disabled.")
	}
	return &AdminLogger{client: client, channelID: channelID, now: time.Now}
}

// Enabled reports whether entries are mirrored to Discord.
func (l *AdminLogger) Enabled() bool {
	return l != nil && l.client != nil && l.channelID != ""
}

// Log sends a log message to the admin channel.
func (l *AdminLogger) Log(ctx context.Context, level, module, operation, details string) {
	log.Printf("[%s] Module: %s, Operation: %s, Details: %s", level, module, operation, details)
	if !l.Enabled() {
		return
	}

	var color int
	switch level {
	case "INFO":
		color = ColorInfo
	case "WARN":
		color = ColorWarn
	case "ERROR":
		color = ColorError
	default:
		color = ColorInfo
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", level),
		Color:     color,
		Timestamp: l.now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Module",
				Value:  module,
				Inline: true,
			},
			{
				Name:   "Operation",
				Value:  operation,
				Inline: true,
			},
			{
				Name:  "Details",
				Value: Truncate(details, maxFieldLen),
			},
		},
	}

	if err := l.client.SendEmbed(ctx, l.channelID, embed); err != nil {
		log.Printf("Error sending log message to Discord: %v", err)
	}
}

// Info logs an informational message.
func (l *AdminLogger) Info(ctx context.Context, module, operation, details string) {
	l.Log(ctx, "INFO", module, operation, details)
}

// Warn logs a warning message.
func (l *AdminLogger) Warn(ctx context.Context, module, operation, details string) {
	l.Log(ctx, "WARN", module, operation, details)
}

// Error logs an error message.
func (l *AdminLogger) Error(ctx context.Context, module, operation, details string) {
	l.Log(ctx, "ERROR", module, operation, details)
}

// Attach uploads a file to the admin channel. It is a no-op when admin logging is disabled.
func (l *AdminLogger) Attach(ctx context.Context, name string, r io.Reader) {
	if !l.Enabled() {
		return
	}
	if err := l.client.SendFile(ctx, l.channelID, name, r); err != nil {
		log.Printf("Error sending file %s to Discord: %v", name, err)
	}
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
