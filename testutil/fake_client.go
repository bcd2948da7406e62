// Package testutil provides an in-memory Discord guild for tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

const discordEpochMs = 1420070400000

// Snowflake builds a Discord id whose embedded timestamp is t.
func Snowflake(t time.Time, seq int) string {
	ms := t.UnixMilli() - discordEpochMs
	return strconv.FormatInt(ms<<22|int64(seq&0xfff), 10)
}

// SentFile records one file upload.
type SentFile struct {
	ChannelID string
	Name      string
	Content   string
}

// FakeClient is a platform.Client backed by maps. All methods are safe for concurrent use.
type FakeClient struct {
	mu sync.Mutex

	GuildID  string
	Channels []*discordgo.Channel
	Messages map[string][]*discordgo.Message // channel id -> messages, any order

	// Error injection, keyed by channel id.
	FetchErr       map[string]error
	FailFetchAfter map[string]int // fail once this many pages were served
	DeleteErr      map[string]error
	CreateErr      error
	SendErr        error // SendMessage only

	Now func() time.Time

	Fetches  []FetchCall
	Deleted  []string
	Created  []*discordgo.Channel
	Sent     map[string][]string
	Embeds   map[string][]*discordgo.MessageEmbed
	Files    []SentFile
	seq      int
	pages    map[string]int
	OnDelete func(channelID string)
}

// FetchCall records one ChannelMessages invocation.
type FetchCall struct {
	ChannelID string
	Limit     int
	BeforeID  string
}

// NewFakeClient returns an empty guild.
func NewFakeClient(guildID string) *FakeClient {
	return &FakeClient{
		GuildID:        guildID,
		Messages:       make(map[string][]*discordgo.Message),
		FetchErr:       make(map[string]error),
		FailFetchAfter: make(map[string]int),
		DeleteErr:      make(map[string]error),
		Sent:           make(map[string][]string),
		Embeds:         make(map[string][]*discordgo.MessageEmbed),
		pages:          make(map[string]int),
		Now:            time.Now,
	}
}

func (f *FakeClient) nextID(t time.Time) string {
	f.seq++
	return Snowflake(t, f.seq)
}

// AddCategory adds a category channel and returns it.
func (f *FakeClient) AddCategory(name string, created time.Time) *discordgo.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &discordgo.Channel{ID: f.nextID(created), GuildID: f.GuildID, Name: name, Type: discordgo.ChannelTypeGuildCategory}
	f.Channels = append(f.Channels, ch)
	return ch
}

// AddChannel adds a channel of the given type under parentID.
func (f *FakeClient) AddChannel(name, parentID string, typ discordgo.ChannelType, created time.Time) *discordgo.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &discordgo.Channel{ID: f.nextID(created), GuildID: f.GuildID, Name: name, ParentID: parentID, Type: typ}
	f.Channels = append(f.Channels, ch)
	return ch
}

// AddMessages appends n messages to a channel, one minute apart starting at start.
func (f *FakeClient) AddMessages(channelID string, n int, start time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * time.Minute)
		f.Messages[channelID] = append(f.Messages[channelID], &discordgo.Message{
			ID:        f.nextID(ts),
			ChannelID: channelID,
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: ts,
			Author:    &discordgo.User{ID: "42", Username: "user", GlobalName: "User"},
		})
	}
}

func (f *FakeClient) find(channelID string) (*discordgo.Channel, int) {
	for i, ch := range f.Channels {
		if ch.ID == channelID {
			return ch, i
		}
	}
	return nil, -1
}

func (f *FakeClient) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, _ := f.find(channelID)
	if ch == nil {
		return nil, fmt.Errorf("unknown channel %s", channelID)
	}
	return ch, nil
}

func (f *FakeClient) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if guildID != f.GuildID {
		return nil, fmt.Errorf("unknown guild %s", guildID)
	}
	out := make([]*discordgo.Channel, len(f.Channels))
	copy(out, f.Channels)
	return out, nil
}

func (f *FakeClient) ChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fetches = append(f.Fetches, FetchCall{ChannelID: channelID, Limit: limit, BeforeID: beforeID})
	if err := f.FetchErr[channelID]; err != nil {
		return nil, err
	}
	if n, ok := f.FailFetchAfter[channelID]; ok && f.pages[channelID] >= n {
		return nil, fmt.Errorf("transport error on page %d", f.pages[channelID]+1)
	}
	f.pages[channelID]++

	all := make([]*discordgo.Message, len(f.Messages[channelID]))
	copy(all, f.Messages[channelID])
	sort.Slice(all, func(i, j int) bool { return snowflakeLess(all[j].ID, all[i].ID) })

	var page []*discordgo.Message
	for _, m := range all {
		if beforeID != "" && !snowflakeLess(m.ID, beforeID) {
			continue
		}
		page = append(page, m)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (f *FakeClient) CreateTextChannel(ctx context.Context, guildID, parentID, name, reason string) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	ch := &discordgo.Channel{ID: f.nextID(f.Now()), GuildID: guildID, Name: name, ParentID: parentID, Type: discordgo.ChannelTypeGuildText}
	f.Channels = append(f.Channels, ch)
	f.Created = append(f.Created, ch)
	return ch, nil
}

func (f *FakeClient) DeleteChannel(ctx context.Context, channelID, reason string) error {
	f.mu.Lock()
	if err := f.DeleteErr[channelID]; err != nil {
		f.mu.Unlock()
		return err
	}
	_, i := f.find(channelID)
	if i < 0 {
		f.mu.Unlock()
		return fmt.Errorf("unknown channel %s", channelID)
	}
	f.Channels = append(f.Channels[:i], f.Channels[i+1:]...)
	f.Deleted = append(f.Deleted, channelID)
	hook := f.OnDelete
	f.mu.Unlock()
	if hook != nil {
		hook(channelID)
	}
	return nil
}

func (f *FakeClient) SendMessage(ctx context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	f.Sent[channelID] = append(f.Sent[channelID], content)
	return nil
}

func (f *FakeClient) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Embeds[channelID] = append(f.Embeds[channelID], embed)
	return nil
}

func (f *FakeClient) SendFile(ctx context.Context, channelID, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Files = append(f.Files, SentFile{ChannelID: channelID, Name: name, Content: string(data)})
	return nil
}

// ChannelNames returns the names of all channels under parentID.
func (f *FakeClient) ChannelNames(parentID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, ch := range f.Channels {
		if ch.ParentID == parentID {
			names = append(names, ch.Name)
		}
	}
	return names
}

func snowflakeLess(a, b string) bool {
	x, _ := strconv.ParseUint(a, 10, 64)
	y, _ := strconv.ParseUint(b, 10, 64)
	return x < y
}
