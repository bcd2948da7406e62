package archive

import (
	"context"
	"fmt"
	"sort"

	"channel-rotator/models"
	"channel-rotator/platform"
)

// PageSize is the number of messages requested per history page.
const PageSize = platform.MaxPageSize

// FetchOptions bounds a history fetch.
type FetchOptions struct {
	LimitTotal int    // <= 0 means unbounded
	BeforeID   string // start cursor, empty for the newest message
}

// FetchAll pages backwards through a channel's history and returns up to LimitTotal of the
// newest messages in ascending chronological order. A transport error discards everything
// fetched so far.
func FetchAll(ctx context.Context, client platform.Client, channelID string, opts FetchOptions) ([]models.TranscriptMessage, error) {
	var all []models.TranscriptMessage
	seen := make(map[string]bool)
	before := opts.BeforeID

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := client.ChannelMessages(ctx, channelID, PageSize, before)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch history page before %q: %w", before, err)
		}
		if len(batch) == 0 {
			break
		}

		added := 0
		for _, msg := range batch {
			if seen[msg.ID] {
				continue
			}
			seen[msg.ID] = true
			all = append(all, ToTranscript(msg))
			added++
			if opts.LimitTotal > 0 && len(all) >= opts.LimitTotal {
				break
			}
		}
		if opts.LimitTotal > 0 && len(all) >= opts.LimitTotal {
			break
		}
		// A page with nothing new means the cursor did not move.
		if added == 0 {
			break
		}

		before = batch[len(batch)-1].ID
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	return all, nil
}
