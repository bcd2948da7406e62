package scanner

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"channel-rotator/models"
	"channel-rotator/platform"

	"github.com/bwmarrin/discordgo"
)

// MaxIndex is the largest index a three-digit suffix can carry.
const MaxIndex = 999

const wrapDistance = (MaxIndex + 1) / 2

var indexSuffix = regexp.MustCompile(`-(\d{3})$`)

// ParseIndex extracts the rotation index from a "<title>-DDD" channel name.
func ParseIndex(name string) (int, bool) {
	m := indexSuffix.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return idx, true
}

// FormatName builds a managed channel name from a title and an index.
func FormatName(title string, idx int) string {
	return fmt.Sprintf("%s-%03d", title, idx)
}

// Scan picks the managed channels out of a guild channel snapshot.
// Only text channels whose parent is categoryID and whose name ends in "-DDD" are considered.
// When several channels share the highest index, the most recently created one is current;
// equal creation times fall back to the larger channel id. Once the index has wrapped past
// 999, the newest channel is current and MaxIndex is its index rather than the numeric maximum.
func Scan(channels []*discordgo.Channel, categoryID string) models.ScanResult {
	var res models.ScanResult
	for _, ch := range channels {
		if ch == nil || ch.ParentID != categoryID || ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		idx, ok := ParseIndex(ch.Name)
		if !ok {
			continue
		}
		res.Managed = append(res.Managed, models.ManagedChannel{
			ID:        ch.ID,
			Name:      ch.Name,
			Title:     ch.Name[:len(ch.Name)-4],
			Index:     idx,
			CreatedAt: platform.CreatedAt(ch),
			ParentID:  ch.ParentID,
		})
	}

	for i := range res.Managed {
		m := &res.Managed[i]
		if res.Current == nil || m.Index > res.MaxIndex || (m.Index == res.MaxIndex && newer(*m, *res.Current)) {
			res.MaxIndex = m.Index
			res.Current = m
		}
	}
	// A channel created after the highest-index one and at least half the index range below
	// it means the index wrapped past 999 while older channels survived. The newest channel
	// is then current.
	if res.Current != nil {
		top := res.Current
		for i := range res.Managed {
			m := &res.Managed[i]
			if top.Index-m.Index >= wrapDistance && newer(*m, *res.Current) {
				res.Current = m
			}
		}
		res.MaxIndex = res.Current.Index
	}
	if res.Current != nil {
		cur := *res.Current
		res.Current = &cur
	}
	return res
}

// InRotationOrder returns the managed channels sorted by ascending index.
func InRotationOrder(managed []models.ManagedChannel) []models.ManagedChannel {
	out := make([]models.ManagedChannel, len(managed))
	copy(out, managed)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return newer(out[j], out[i])
	})
	return out
}

func newer(a, b models.ManagedChannel) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return idLess(b.ID, a.ID)
}

func idLess(a, b string) bool {
	x, errA := strconv.ParseUint(a, 10, 64)
	y, errB := strconv.ParseUint(b, 10, 64)
	if errA != nil || errB != nil {
		return a < b
	}
	return x < y
}
