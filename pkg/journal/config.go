package journal

import "github.com/downfa11-org/segjournal/pkg/segment"

// Config is the journal builder's option set: Directory is required, the
// rest fall back to the documented defaults.
type Config struct {
	Directory           string
	Name                string
	JournalIndexDensity int
	MaxSegmentSize      int64
	MaxEntrySize        int
	MaxEntries          int64
}

const (
	DefaultJournalIndexDensity = 5
	DefaultMaxSegmentSize      = 32 << 20
	DefaultMaxEntrySize        = 1 << 20
)

func (c Config) normalize() Config {
	if c.Name == "" {
		c.Name = "journal"
	}
	if c.JournalIndexDensity <= 0 {
		c.JournalIndexDensity = DefaultJournalIndexDensity
	}
	if c.MaxSegmentSize <= 0 {
		c.MaxSegmentSize = DefaultMaxSegmentSize
	}
	if c.MaxEntrySize <= 0 {
		c.MaxEntrySize = DefaultMaxEntrySize
	}
	return c
}

func (c Config) segmentConfig() segment.Config {
	return segment.Config{
		MaxSegmentSize: c.MaxSegmentSize,
		MaxEntries:     c.MaxEntries,
		MaxEntrySize:   c.MaxEntrySize,
		IndexDensity:   c.JournalIndexDensity,
	}
}
