package rotation

import (
	"math/rand/v2"
	"sync"
)

// TitleGenerator produces the human-readable part of a new channel name.
type TitleGenerator interface {
	Generate() string
}

var adjectives = []string{
	"amber", "brave", "calm", "cosmic", "crimson", "dusty", "eager", "fuzzy", "gentle", "golden",
	"hidden", "hollow", "icy", "jolly", "lively", "lucky", "mellow", "misty", "noble", "quiet",
	"rapid", "rusty", "shiny", "silent", "sleepy", "snowy", "sunny", "swift", "tiny", "velvet",
	"wild", "windy",
}

var nouns = []string{
	"anchor", "badger", "beacon", "canyon", "cedar", "comet", "delta", "ember", "falcon", "fern",
	"garden", "harbor", "heron", "island", "lagoon", "lantern", "maple", "meadow", "nebula", "orchid",
	"otter", "pebble", "pine", "raven", "reef", "river", "summit", "thistle", "tide", "valley",
	"willow", "zephyr",
}

// RandomTitles picks "<adjective>-<noun>" pairs. Collisions are harmless since the index suffix
// keeps names unique.
type RandomTitles struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomTitles returns a generator seeded from the runtime's random source.
func NewRandomTitles() *RandomTitles {
	return &RandomTitles{rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededTitles returns a deterministic generator.
func NewSeededTitles(seed uint64) *RandomTitles {
	return &RandomTitles{rnd: rand.New(rand.NewPCG(seed, seed))}
}

func (g *RandomTitles) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return adjectives[g.rnd.IntN(len(adjectives))] + "-" + nouns[g.rnd.IntN(len(nouns))]
}

// FixedTitle always returns the same title.
type FixedTitle string

func (t FixedTitle) Generate() string { return string(t) }
