package archive

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"channel-rotator/models"
	"channel-rotator/platform"
	"channel-rotator/utils"

	"github.com/bwmarrin/discordgo"
)

// DefaultLimit is the default number of messages kept per archive.
const DefaultLimit = 1000

// Archiver exports one channel's history to a transcript file.
type Archiver struct {
	client    platform.Client
	sink      Exporter
	clock     *utils.Clock
	outputDir string
	limit     int
}

// NewArchiver creates an Archiver. limit <= 0 archives the full history.
func NewArchiver(client platform.Client, sink Exporter, clock *utils.Clock, outputDir string, limit int) *Archiver {
	return &Archiver{client: client, sink: sink, clock: clock, outputDir: outputDir, limit: limit}
}

// ExportPath returns the transcript location for a channel: <outputDir>/<name>-<id>.txt.
func (a *Archiver) ExportPath(ch *discordgo.Channel) string {
	return filepath.Join(a.outputDir, fmt.Sprintf("%s-%s.txt", ch.Name, ch.ID))
}

// Archive fetches, formats and exports a channel. Failures are reported in the result,
// wrapped in a *StageError; nothing is exported unless the whole history was fetched.
func (a *Archiver) Archive(ctx context.Context, ch *discordgo.Channel) models.ArchiveResult {
	res := models.ArchiveResult{ChannelID: ch.ID, ChannelName: ch.Name}

	if !platform.IsTextBased(ch) {
		res.Err = &StageError{Stage: StageCapability, Err: ErrNotTextBased}
		return res
	}

	if _, err := a.client.ChannelMessages(ctx, ch.ID, 1, ""); err != nil {
		res.Err = &StageError{Stage: StageProbe, Err: err}
		return res
	}

	msgs, err := FetchAll(ctx, a.client, ch.ID, FetchOptions{LimitTotal: a.limit})
	if err != nil {
		res.Err = &StageError{Stage: StageFetch, Err: err}
		return res
	}

	path, err := a.sink.Export(FormatTranscript(a.clock, msgs), a.ExportPath(ch))
	if err != nil {
		log.Printf("Failed to save transcript for channel %s (%s): %v", ch.Name, ch.ID, err)
		res.Err = &StageError{Stage: StageExport, Err: err}
		return res
	}

	res.OK = true
	res.ExportPath = path
	res.MessageCount = len(msgs)
	return res
}
