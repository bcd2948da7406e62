// Package platform wraps the Discord REST calls the rotation engine depends on.
package platform

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bwmarrin/discordgo"
)

// MaxPageSize is the largest page Discord returns for channel message history.
const MaxPageSize = 100

// Client is the subset of the chat platform used by the scanner, archiver and rotator.
type Client interface {
	// Channel returns a single channel by id.
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	// GuildChannels returns a fresh snapshot of every channel in the guild.
	GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
	// ChannelMessages returns up to limit messages older than beforeID, newest first.
	// An empty beforeID starts from the newest message.
	ChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error)
	CreateTextChannel(ctx context.Context, guildID, parentID, name, reason string) (*discordgo.Channel, error)
	DeleteChannel(ctx context.Context, channelID, reason string) error
	SendMessage(ctx context.Context, channelID, content string) error
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
	SendFile(ctx context.Context, channelID, name string, r io.Reader) error
}

// Session implements Client on top of a discordgo session.
type Session struct {
	s *discordgo.Session
}

// NewSession wraps an existing discordgo session.
func NewSession(s *discordgo.Session) *Session {
	return &Session{s: s}
}

func (c *Session) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	ch, err := c.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get channel %s: %w", channelID, err)
	}
	return ch, nil
}

func (c *Session) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	channels, err := c.s.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get channels for guild %s: %w", guildID, err)
	}
	return channels, nil
}

func (c *Session) ChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	msgs, err := c.s.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages for channel %s: %w", channelID, err)
	}
	return msgs, nil
}

func (c *Session) CreateTextChannel(ctx context.Context, guildID, parentID, name, reason string) (*discordgo.Channel, error) {
	ch, err := c.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: parentID,
	}, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return nil, fmt.Errorf("failed to create channel %s: %w", name, err)
	}
	return ch, nil
}

func (c *Session) DeleteChannel(ctx context.Context, channelID, reason string) error {
	if _, err := c.s.ChannelDelete(channelID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason)); err != nil {
		return fmt.Errorf("failed to delete channel %s: %w", channelID, err)
	}
	return nil
}

func (c *Session) SendMessage(ctx context.Context, channelID, content string) error {
	if _, err := c.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", channelID, err)
	}
	return nil
}

func (c *Session) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	if _, err := c.s.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send embed to %s: %w", channelID, err)
	}
	return nil
}

func (c *Session) SendFile(ctx context.Context, channelID, name string, r io.Reader) error {
	_, err := c.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Files: []*discordgo.File{{Name: name, ContentType: "text/plain", Reader: r}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send file %s to %s: %w", name, channelID, err)
	}
	return nil
}

// IsTextBased reports whether messages can be read from the channel.
func IsTextBased(ch *discordgo.Channel) bool {
	if ch == nil {
		return false
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildVoice,
		discordgo.ChannelTypeGuildStageVoice,
		discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeDM,
		discordgo.ChannelTypeGroupDM:
		return true
	}
	return false
}

// CreatedAt derives a channel's creation time from its snowflake id.
func CreatedAt(ch *discordgo.Channel) time.Time {
	t, err := discordgo.SnowflakeTimestamp(ch.ID)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
