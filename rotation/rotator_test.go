package rotation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"channel-rotator/archive"
	"channel-rotator/models"
	"channel-rotator/scanner"
	"channel-rotator/testutil"
	"channel-rotator/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)

const period = 7 * 24 * time.Hour

type memRecorder struct {
	mu     sync.Mutex
	events []models.RotationEvent
}

func (m *memRecorder) RecordEvent(ctx context.Context, ev models.RotationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memRecorder) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, ev := range m.events {
		out = append(out, ev.Kind)
	}
	return out
}

type memHealth struct {
	mu      sync.Mutex
	serving []bool
}

func (h *memHealth) SetServing(ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.serving = append(h.serving, ok)
}

type env struct {
	fc       *testutil.FakeClient
	category *discordgo.Channel
	fs       afero.Fs
	rec      *memRecorder
	health   *memHealth
	clock    *utils.Clock
	r        *Rotator
}

func newEnv(t *testing.T, adminChannel string, titles TitleGenerator) *env {
	t.Helper()
	fc := testutil.NewFakeClient("guild")
	fc.Now = func() time.Time { return now }
	cat := fc.AddCategory("rotating", now.Add(-365*24*time.Hour))

	clock, err := utils.NewClock("Asia/Seoul", utils.LocaleKorean)
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	sink := archive.NewFileSink(fs)
	e := &env{fc: fc, category: cat, fs: fs, rec: &memRecorder{}, health: &memHealth{}, clock: clock}
	if titles == nil {
		titles = FixedTitle("calm-otter")
	}
	e.r = New(fc, archive.NewArchiver(fc, sink, clock, "output", archive.DefaultLimit), Options{
		GuildID:     "guild",
		CategoryID:  cat.ID,
		Period:      period,
		Clock:       clock,
		Titles:      titles,
		Logger:      utils.NewAdminLogger(fc, adminChannel),
		Transcripts: sink,
		Recorder:    e.rec,
		Health:      e.health,
		Now:         func() time.Time { return now },
	})
	return e
}

func (e *env) addManaged(name string, created time.Time, messages int) *discordgo.Channel {
	ch := e.fc.AddChannel(name, e.category.ID, discordgo.ChannelTypeGuildText, created)
	e.fc.AddMessages(ch.ID, messages, created)
	return ch
}

func TestRotateEmptyCategory(t *testing.T) {
	e := newEnv(t, "", nil)

	report, err := e.r.Rotate(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Archives)
	assert.Empty(t, e.fc.Deleted)
	assert.Empty(t, e.fc.Fetches)
	require.Len(t, e.fc.Created, 1)
	created := e.fc.Created[0]
	assert.Equal(t, "calm-otter-001", created.Name)
	assert.Equal(t, e.category.ID, created.ParentID)
	assert.Equal(t, []string{"calm-otter-001"}, e.fc.ChannelNames(e.category.ID))

	require.NotNil(t, report.Created)
	assert.Equal(t, 1, report.Created.Index)
	assert.Equal(t, now.Add(period), report.ExpiresAt)

	sent := e.fc.Sent[created.ID]
	require.Len(t, sent, 1)
	assert.Equal(t, e.clock.ExpiryNotice(now.Add(period)), sent[0])
	assert.Contains(t, sent[0], "2025. 6. 17. 오후 12:00:00")
	assert.Equal(t, []string{models.EventCreated}, e.rec.kinds())
}

func TestRotateProcessesInIndexOrder(t *testing.T) {
	e := newEnv(t, "", nil)
	// 005 is older by creation time than 003; index order wins.
	ch5 := e.addManaged("bright-reef-005", now.Add(-10*24*time.Hour), 3)
	ch3 := e.addManaged("old-pine-003", now.Add(-2*24*time.Hour), 2)

	report, err := e.r.Rotate(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Archives, 2)
	assert.Equal(t, ch3.ID, report.Archives[0].ChannelID)
	assert.Equal(t, ch5.ID, report.Archives[1].ChannelID)
	assert.Equal(t, []string{ch3.ID, ch5.ID}, e.fc.Deleted)
	assert.Equal(t, "calm-otter-006", e.fc.Created[0].Name)
	assert.Equal(t, []string{"calm-otter-006"}, e.fc.ChannelNames(e.category.ID))

	for _, ch := range []*discordgo.Channel{ch3, ch5} {
		exists, err := afero.Exists(e.fs, "output/"+ch.Name+"-"+ch.ID+".txt")
		require.NoError(t, err)
		assert.True(t, exists)
	}
	assert.Equal(t, []string{
		models.EventArchived, models.EventDeleted,
		models.EventArchived, models.EventDeleted,
		models.EventCreated,
	}, e.rec.kinds())
}

func TestRotateKeepsChannelWhenArchiveFails(t *testing.T) {
	e := newEnv(t, "admin", nil)
	ch1 := e.addManaged("calm-otter-001", now.Add(-9*24*time.Hour), 2)
	ch2 := e.addManaged("calm-otter-002", now.Add(-8*24*time.Hour), 2)
	e.fc.FetchErr[ch1.ID] = errors.New("HTTP 403 Forbidden")

	report, err := e.r.Rotate(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Archives, 2)
	assert.False(t, report.Archives[0].OK)
	assert.True(t, report.Archives[1].OK)
	assert.Equal(t, []string{ch2.ID}, e.fc.Deleted)
	assert.Equal(t, "calm-otter-003", e.fc.Created[0].Name)

	res, err := e.r.Scan(context.Background())
	require.NoError(t, err)
	var names []string
	for _, m := range res.Managed {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{"calm-otter-001", "calm-otter-003"}, names)
	assert.Equal(t, 3, res.MaxIndex)

	var failed bool
	for _, emb := range e.fc.Embeds["admin"] {
		if emb.Color == utils.ColorError && strings.Contains(emb.Fields[2].Value, "calm-otter-001") {
			failed = true
		}
	}
	assert.True(t, failed, "archive failure must reach the admin channel")
}

func TestRotateContinuesWhenDeleteFails(t *testing.T) {
	e := newEnv(t, "", nil)
	ch1 := e.addManaged("calm-otter-001", now.Add(-9*24*time.Hour), 1)
	ch2 := e.addManaged("calm-otter-002", now.Add(-8*24*time.Hour), 1)
	e.fc.DeleteErr[ch1.ID] = errors.New("Missing Permissions")

	report, err := e.r.Rotate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{ch1.ID}, report.DeleteFailed)
	assert.Equal(t, []string{ch2.ID}, report.Deleted)
	require.Len(t, e.fc.Created, 1)
	assert.Contains(t, e.rec.kinds(), models.EventDeleteFailed)

	// The orphan is archived again next time, to the same path.
	second, err := e.r.Rotate(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, second.Archives)
	assert.Equal(t, report.Archives[0].ExportPath, second.Archives[0].ExportPath)
}

func TestRotateAttachesTranscriptToAdminChannel(t *testing.T) {
	e := newEnv(t, "admin", nil)
	ch := e.addManaged("calm-otter-001", now.Add(-8*24*time.Hour), 2)

	_, err := e.r.Rotate(context.Background())
	require.NoError(t, err)

	require.Len(t, e.fc.Files, 1)
	assert.Equal(t, "admin", e.fc.Files[0].ChannelID)
	assert.Equal(t, "calm-otter-001-"+ch.ID+".txt", e.fc.Files[0].Name)
	assert.Contains(t, e.fc.Files[0].Content, "User : message 1")
}

func TestRotateCreateFailure(t *testing.T) {
	e := newEnv(t, "", nil)
	e.fc.CreateErr = errors.New("Maximum number of channels reached")

	report, err := e.r.Rotate(context.Background())
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Nil(t, report.Created)
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name        string
		age         time.Duration
		wantRotated bool
	}{
		{"fresh", 24 * time.Hour, false},
		{"just under", period - time.Second, false},
		{"exactly due", period, true},
		{"overdue", period + 48*time.Hour, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, "", nil)
			e.addManaged("calm-otter-004", now.Add(-tt.age), 0)

			report, err := e.r.Check(context.Background())
			require.NoError(t, err)
			if tt.wantRotated {
				require.NotNil(t, report)
				assert.Equal(t, 5, report.Created.Index)
			} else {
				assert.Nil(t, report)
				assert.Empty(t, e.fc.Created)
				assert.Empty(t, e.fc.Fetches)
			}
		})
	}
}

func TestCheckEmptyCategoryRotates(t *testing.T) {
	e := newEnv(t, "", nil)
	e.fc.AddChannel("rules", e.category.ID, discordgo.ChannelTypeGuildText, now)

	report, err := e.r.Check(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "calm-otter-001", report.Created.Name)
	assert.Empty(t, e.fc.Deleted, "unmanaged channels are never touched")
}

func TestEnsureActive(t *testing.T) {
	e := newEnv(t, "", nil)

	report, err := e.r.EnsureActive(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Len(t, e.fc.Created, 1)

	again, err := e.r.EnsureActive(context.Background())
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Len(t, e.fc.Created, 1)
}

func TestStatus(t *testing.T) {
	e := newEnv(t, "", nil)
	e.addManaged("calm-otter-002", now.Add(-3*24*time.Hour), 0)
	e.fc.AddChannel("general", e.category.ID, discordgo.ChannelTypeGuildText, now)

	st, err := e.r.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st.Current)
	assert.Equal(t, "calm-otter-002", st.Current.Name)
	assert.Equal(t, 1, st.ManagedCount)
	assert.Equal(t, 3*24*time.Hour, st.Age)
	assert.Equal(t, now.Add(4*24*time.Hour), st.ExpiresAt)
	assert.False(t, st.Due)
}

func TestRotateRejectsConcurrentCycle(t *testing.T) {
	e := newEnv(t, "", nil)
	require.True(t, e.r.acquire())

	_, err := e.r.Rotate(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)
	_, err = e.r.Check(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)

	e.r.Tick(context.Background())
	assert.Empty(t, e.fc.Created)
	assert.Empty(t, e.health.serving)

	e.r.release()
	_, err = e.r.Rotate(context.Background())
	assert.NoError(t, err)
}

type blockingTitles struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingTitles) Generate() string {
	close(b.entered)
	<-b.release
	return "slow-heron"
}

func TestTickSkipsWhileCycleRunning(t *testing.T) {
	titles := &blockingTitles{entered: make(chan struct{}), release: make(chan struct{})}
	e := newEnv(t, "", titles)

	done := make(chan struct{})
	go func() {
		e.r.Tick(context.Background())
		close(done)
	}()

	<-titles.entered
	assert.True(t, e.r.Running())
	e.r.Tick(context.Background()) // returns immediately

	close(titles.release)
	<-done

	assert.False(t, e.r.Running())
	require.Len(t, e.fc.Created, 1)
	assert.Equal(t, "slow-heron-001", e.fc.Created[0].Name)
	assert.Equal(t, []bool{true}, e.health.serving)
}

func TestTickReportsFailure(t *testing.T) {
	e := newEnv(t, "admin", nil)
	e.fc.CreateErr = errors.New(strings.Repeat("x", 1000))

	assert.NotPanics(t, func() { e.r.Tick(context.Background()) })

	embeds := e.fc.Embeds["admin"]
	require.NotEmpty(t, embeds)
	last := embeds[len(embeds)-1]
	assert.Equal(t, utils.ColorError, last.Color)
	assert.True(t, strings.HasPrefix(last.Fields[2].Value, "Channel rotation failed: "))
	assert.LessOrEqual(t, len(last.Fields[2].Value), len("Channel rotation failed: ")+maxReportLen)
	assert.Equal(t, []bool{false}, e.health.serving)
	assert.Contains(t, e.rec.kinds(), models.EventCycleFailed)
	assert.False(t, e.r.Running())

	// The next tick still runs.
	e.fc.CreateErr = nil
	e.r.Tick(context.Background())
	assert.Len(t, e.fc.Created, 1)
	assert.Equal(t, []bool{false, true}, e.health.serving)
}

type panicTitles struct{}

func (panicTitles) Generate() string { panic("title list empty") }

func TestTickRecoversPanic(t *testing.T) {
	e := newEnv(t, "", panicTitles{})

	assert.NotPanics(t, func() { e.r.Tick(context.Background()) })
	assert.False(t, e.r.Running())
	assert.Equal(t, []bool{false}, e.health.serving)
}

func TestWrappedChannelSurvivesFailedArchive(t *testing.T) {
	e := newEnv(t, "", nil)
	stuck := e.addManaged("calm-otter-999", now.Add(-8*24*time.Hour), 2)
	e.fc.FetchErr[stuck.ID] = errors.New("HTTP 403 Forbidden")

	report, err := e.r.Rotate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.Created)
	assert.Equal(t, "calm-otter-001", report.Created.Name)
	assert.Empty(t, e.fc.Deleted)

	st, err := e.r.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st.Current)
	assert.Equal(t, report.Created.ID, st.Current.ID)
	assert.False(t, st.Due)

	again, err := e.r.Check(context.Background())
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Len(t, e.fc.Created, 1)
	assert.Empty(t, e.fc.Deleted)

	// The succession continues from the wrapped index.
	next, err := e.r.Rotate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "calm-otter-002", next.Created.Name)
	assert.Equal(t, []string{report.Created.ID}, e.fc.Deleted)
	assert.ElementsMatch(t, []string{"calm-otter-999", "calm-otter-002"}, e.fc.ChannelNames(e.category.ID))
}

func TestRotateRecordsCreationWhenAnnouncementFails(t *testing.T) {
	e := newEnv(t, "admin", nil)
	e.fc.SendErr = errors.New("Missing Access")

	report, err := e.r.Rotate(context.Background())
	require.Error(t, err)
	require.NotNil(t, report)
	require.NotNil(t, report.Created)

	assert.Contains(t, e.rec.kinds(), models.EventCreated)
	var logged bool
	for _, emb := range e.fc.Embeds["admin"] {
		if strings.Contains(emb.Fields[2].Value, "was created") {
			logged = true
		}
	}
	assert.True(t, logged, "creation must reach the admin channel")
}

func TestRotateUpdatesHealth(t *testing.T) {
	e := newEnv(t, "admin", nil)
	e.fc.CreateErr = errors.New("Maximum number of channels reached")

	_, err := e.r.Rotate(context.Background())
	require.Error(t, err)
	assert.Equal(t, []bool{false}, e.health.serving)
	assert.Contains(t, e.rec.kinds(), models.EventCycleFailed)
	embeds := e.fc.Embeds["admin"]
	require.NotEmpty(t, embeds)
	assert.True(t, strings.HasPrefix(embeds[len(embeds)-1].Fields[2].Value, "Channel rotation failed: "))

	e.fc.CreateErr = nil
	_, err = e.r.Rotate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, e.health.serving)
}

func TestNextIndex(t *testing.T) {
	assert.Equal(t, 1, NextIndex(0))
	assert.Equal(t, 6, NextIndex(5))
	assert.Equal(t, 999, NextIndex(998))
	assert.Equal(t, 1, NextIndex(scanner.MaxIndex))
}

func TestRandomTitles(t *testing.T) {
	a := NewSeededTitles(7)
	b := NewSeededTitles(7)
	for i := 0; i < 20; i++ {
		title := a.Generate()
		assert.Equal(t, title, b.Generate())
		assert.Regexp(t, `^[a-z]+-[a-z]+$`, title)
		_, managed := scanner.ParseIndex(title)
		assert.False(t, managed)
	}
	assert.NotEmpty(t, NewRandomTitles().Generate())
}
