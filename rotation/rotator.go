// Package rotation archives, deletes and replaces the managed channel of a category on a schedule.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync/atomic"
	"time"

	"channel-rotator/archive"
	"channel-rotator/models"
	"channel-rotator/platform"
	"channel-rotator/scanner"
	"channel-rotator/telemetry"
	"channel-rotator/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

const module = "Rotation"

// maxReportLen bounds the error text posted to the admin channel when a cycle fails.
const maxReportLen = 300

// ErrCycleInProgress is returned when a rotation is requested while another cycle is running.
var ErrCycleInProgress = errors.New("a rotation cycle is already running")

// Recorder stores rotation events for auditing.
type Recorder interface {
	RecordEvent(ctx context.Context, ev models.RotationEvent) error
}

// TranscriptOpener reads back an exported transcript so it can be attached to the admin log.
type TranscriptOpener interface {
	Open(path string) (io.ReadCloser, error)
}

// HealthReporter is told whether the last cycle succeeded.
type HealthReporter interface {
	SetServing(serving bool)
}

// Options configures a Rotator. GuildID, CategoryID, Period and Clock are required.
type Options struct {
	GuildID     string
	CategoryID  string
	Period      time.Duration
	Clock       *utils.Clock
	Titles      TitleGenerator
	Logger      *utils.AdminLogger
	Transcripts TranscriptOpener
	Recorder    Recorder
	Health      HealthReporter
	Now         func() time.Time
}

// Rotator owns the rotation cycle for one category. At most one cycle runs at a time.
type Rotator struct {
	client      platform.Client
	archiver    *archive.Archiver
	guildID     string
	categoryID  string
	period      time.Duration
	clock       *utils.Clock
	titles      TitleGenerator
	logger      *utils.AdminLogger
	transcripts TranscriptOpener
	recorder    Recorder
	health      HealthReporter
	now         func() time.Time

	running atomic.Bool
}

// Report summarizes one rotation.
type Report struct {
	CycleID      string
	Archives     []models.ArchiveResult // in processing order
	Deleted      []string
	DeleteFailed []string
	Created      *models.ManagedChannel
	ExpiresAt    time.Time
}

// Status describes the category as seen by the last scan.
type Status struct {
	Current      *models.ManagedChannel
	ManagedCount int
	Age          time.Duration
	ExpiresAt    time.Time
	Due          bool
}

// New creates a Rotator.
func New(client platform.Client, archiver *archive.Archiver, opts Options) *Rotator {
	r := &Rotator{
		client:      client,
		archiver:    archiver,
		guildID:     opts.GuildID,
		categoryID:  opts.CategoryID,
		period:      opts.Period,
		clock:       opts.Clock,
		titles:      opts.Titles,
		logger:      opts.Logger,
		transcripts: opts.Transcripts,
		recorder:    opts.Recorder,
		health:      opts.Health,
		now:         opts.Now,
	}
	if r.titles == nil {
		r.titles = NewRandomTitles()
	}
	if r.logger == nil {
		r.logger = utils.NewAdminLogger(client, "")
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Scan reads a fresh channel snapshot and returns the managed channels of the category.
func (r *Rotator) Scan(ctx context.Context) (models.ScanResult, error) {
	res, _, err := r.scan(ctx)
	return res, err
}

func (r *Rotator) scan(ctx context.Context) (models.ScanResult, map[string]*discordgo.Channel, error) {
	channels, err := r.client.GuildChannels(ctx, r.guildID)
	if err != nil {
		return models.ScanResult{}, nil, fmt.Errorf("failed to list channels: %w", err)
	}
	byID := make(map[string]*discordgo.Channel, len(channels))
	for _, ch := range channels {
		if ch != nil {
			byID[ch.ID] = ch
		}
	}
	return scanner.Scan(channels, r.categoryID), byID, nil
}

// IsDue reports whether a rotation is needed: there is no managed channel, or the current one
// is at least one period old.
func (r *Rotator) IsDue(res models.ScanResult, now time.Time) bool {
	if res.Current == nil {
		return true
	}
	return res.Current.Age(now) >= r.period
}

// Status scans the category and reports the current channel and its expiry.
func (r *Rotator) Status(ctx context.Context) (Status, error) {
	res, err := r.Scan(ctx)
	if err != nil {
		return Status{}, err
	}
	now := r.now()
	st := Status{ManagedCount: len(res.Managed), Due: r.IsDue(res, now)}
	if res.Current != nil {
		st.Current = res.Current
		st.Age = res.Current.Age(now)
		st.ExpiresAt = res.Current.CreatedAt.Add(r.period)
	}
	return st, nil
}

// Running reports whether a cycle is in flight.
func (r *Rotator) Running() bool {
	return r.running.Load()
}

func (r *Rotator) acquire() bool {
	return r.running.CompareAndSwap(false, true)
}

func (r *Rotator) release() {
	r.running.Store(false)
}

// Rotate unconditionally archives the managed channels and creates the next one.
// It is accounted as a cycle like a scheduled tick.
func (r *Rotator) Rotate(ctx context.Context) (*Report, error) {
	if !r.acquire() {
		return nil, ErrCycleInProgress
	}
	defer r.release()

	var report *Report
	err := r.runCycle(ctx, uuid.NewString(), func(cycleID string) (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic during rotation: %v", p)
			}
		}()
		report, err = r.rotate(ctx, cycleID)
		return err
	})
	return report, err
}

// EnsureActive rotates only when the category holds no managed channel at all.
func (r *Rotator) EnsureActive(ctx context.Context) (*Report, error) {
	if !r.acquire() {
		return nil, ErrCycleInProgress
	}
	defer r.release()

	res, err := r.Scan(ctx)
	if err != nil {
		return nil, err
	}
	if res.Current != nil {
		telemetry.SetCurrentIndex(res.MaxIndex)
		log.Printf("Current managed channel is %s (%s), no initial rotation needed", res.Current.Name, res.Current.ID)
		return nil, nil
	}
	log.Println("No managed channel found in category, forcing an initial rotation")
	return r.rotate(ctx, uuid.NewString())
}

// Check rotates when IsDue says so. It returns a nil report when nothing was done.
func (r *Rotator) Check(ctx context.Context) (*Report, error) {
	if !r.acquire() {
		return nil, ErrCycleInProgress
	}
	defer r.release()
	return r.check(ctx, uuid.NewString())
}

func (r *Rotator) check(ctx context.Context, cycleID string) (*Report, error) {
	res, err := r.Scan(ctx)
	if err != nil {
		return nil, err
	}
	if !r.IsDue(res, r.now()) {
		return nil, nil
	}
	return r.rotate(ctx, cycleID)
}

// Tick is the scheduler callback. Overlapping ticks are skipped, and errors or panics are
// logged and reported to the admin channel without escaping.
func (r *Rotator) Tick(ctx context.Context) {
	if !r.acquire() {
		telemetry.Inc(telemetry.TicksSkipped)
		log.Println("Previous rotation cycle still running, skipping this tick")
		return
	}
	defer r.release()

	r.runCycle(ctx, uuid.NewString(), func(cycleID string) error {
		return r.safeCheck(ctx, cycleID)
	})
}

// runCycle times fn and does the cycle bookkeeping: metrics, the admin error report,
// the cycle_failed audit row and the health status.
func (r *Rotator) runCycle(ctx context.Context, cycleID string, fn func(cycleID string) error) error {
	telemetry.Inc(telemetry.CyclesTotal)

	var err error
	telemetry.TimeFunc(telemetry.CycleDuration, func() {
		err = fn(cycleID)
	})
	if err != nil {
		telemetry.Inc(telemetry.CyclesFailed)
		log.Printf("[%s] rotation cycle failed: %v", cycleID, err)
		r.logger.Error(ctx, module, "Cycle", fmt.Sprintf("Channel rotation failed: %s", utils.Truncate(err.Error(), maxReportLen)))
		r.record(ctx, models.RotationEvent{CycleID: cycleID, Kind: models.EventCycleFailed, Error: err.Error()})
		r.setHealth(false)
		return err
	}
	r.setHealth(true)
	return nil
}

func (r *Rotator) safeCheck(ctx context.Context, cycleID string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during rotation check: %v", p)
		}
	}()
	_, err = r.check(ctx, cycleID)
	return err
}

func (r *Rotator) rotate(ctx context.Context, cycleID string) (*Report, error) {
	res, channels, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}
	report := &Report{CycleID: cycleID}
	log.Printf("[%s] Rotating category %s: %d managed channel(s), max index %03d", cycleID, r.categoryID, len(res.Managed), res.MaxIndex)

	for _, m := range scanner.InRotationOrder(res.Managed) {
		ch, ok := channels[m.ID]
		if !ok {
			continue
		}
		result := r.archiver.Archive(ctx, ch)
		report.Archives = append(report.Archives, result)

		if !result.OK {
			stage := string(archive.FailedStage(result.Err))
			telemetry.IncArchiveFailed(stage)
			r.logger.Error(ctx, module, "Archive", fmt.Sprintf("Archiving channel %s (%s) failed, channel kept: %v", m.Name, m.ID, result.Err))
			r.record(ctx, models.RotationEvent{CycleID: cycleID, Kind: models.EventArchiveFailed, ChannelID: m.ID, ChannelName: m.Name, Index: m.Index, Error: result.Err.Error()})
			continue
		}

		telemetry.Inc(telemetry.ArchivesOK)
		telemetry.Add(telemetry.ArchivedMessages, result.MessageCount)
		r.logger.Info(ctx, module, "Archive", fmt.Sprintf("Channel %s archived (%d messages) to %s", m.Name, result.MessageCount, result.ExportPath))
		r.record(ctx, models.RotationEvent{CycleID: cycleID, Kind: models.EventArchived, ChannelID: m.ID, ChannelName: m.Name, Index: m.Index, ExportPath: result.ExportPath})
		r.attach(ctx, result.ExportPath)

		if err := r.client.DeleteChannel(ctx, m.ID, "Previous rotation channel archived"); err != nil {
			telemetry.Inc(telemetry.DeletionsFailed)
			report.DeleteFailed = append(report.DeleteFailed, m.ID)
			r.logger.Error(ctx, module, "Delete", fmt.Sprintf("Failed to delete channel %s (%s): %v", m.Name, m.ID, err))
			r.record(ctx, models.RotationEvent{CycleID: cycleID, Kind: models.EventDeleteFailed, ChannelID: m.ID, ChannelName: m.Name, Index: m.Index, Error: err.Error()})
			continue
		}
		telemetry.Inc(telemetry.DeletionsOK)
		report.Deleted = append(report.Deleted, m.ID)
		r.logger.Info(ctx, module, "Delete", fmt.Sprintf("Channel %s was deleted. #%s", m.Name, m.ID))
		r.record(ctx, models.RotationEvent{CycleID: cycleID, Kind: models.EventDeleted, ChannelID: m.ID, ChannelName: m.Name, Index: m.Index})
	}

	next := NextIndex(res.MaxIndex)
	if next <= res.MaxIndex {
		r.logger.Warn(ctx, module, "Create", fmt.Sprintf("Rotation index exhausted at %03d, wrapping to %03d", res.MaxIndex, next))
	}
	name := scanner.FormatName(r.titles.Generate(), next)

	created, err := r.client.CreateTextChannel(ctx, r.guildID, r.categoryID, name, "Auto Create: created "+name)
	if err != nil {
		return report, fmt.Errorf("failed to create channel %s: %w", name, err)
	}
	telemetry.Inc(telemetry.ChannelsCreated)
	telemetry.Inc(telemetry.Rotations)
	telemetry.SetCurrentIndex(next)

	createdAt := platform.CreatedAt(created)
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	report.ExpiresAt = createdAt.Add(r.period)
	report.Created = &models.ManagedChannel{
		ID:        created.ID,
		Name:      created.Name,
		Title:     name[:len(name)-4],
		Index:     next,
		CreatedAt: createdAt,
		ParentID:  created.ParentID,
	}

	r.logger.Info(ctx, module, "Create", fmt.Sprintf("Channel %s was created. #%s", name, created.ID))
	r.record(ctx, models.RotationEvent{CycleID: cycleID, Kind: models.EventCreated, ChannelID: created.ID, ChannelName: name, Index: next})

	if err := r.client.SendMessage(ctx, created.ID, r.clock.ExpiryNotice(report.ExpiresAt)); err != nil {
		return report, fmt.Errorf("failed to announce expiry in %s: %w", name, err)
	}
	return report, nil
}

// NextIndex returns the index following max, wrapping past 999 back to 1.
func NextIndex(max int) int {
	if max >= scanner.MaxIndex {
		return 1
	}
	return max + 1
}

func (r *Rotator) attach(ctx context.Context, path string) {
	if r.transcripts == nil || !r.logger.Enabled() {
		return
	}
	rc, err := r.transcripts.Open(path)
	if err != nil {
		log.Printf("Could not open transcript %s for upload: %v", path, err)
		return
	}
	defer rc.Close()
	r.logger.Attach(ctx, filepath.Base(path), rc)
}

func (r *Rotator) record(ctx context.Context, ev models.RotationEvent) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.RecordEvent(ctx, ev); err != nil {
		log.Printf("Failed to record %s event: %v", ev.Kind, err)
	}
}

func (r *Rotator) setHealth(ok bool) {
	if r.health != nil {
		r.health.SetServing(ok)
	}
}
