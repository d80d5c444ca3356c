package config_test

import (
	"testing"

	"github.com/downfa11-org/segjournal/pkg/config"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.Normalize()

	if cfg.Directory != "journal-data" {
		t.Errorf("Directory default incorrect: %q", cfg.Directory)
	}
	if cfg.Name != "journal" {
		t.Errorf("Name default incorrect: %q", cfg.Name)
	}
	if cfg.JournalIndexDensity != 5 {
		t.Errorf("JournalIndexDensity default incorrect: %d", cfg.JournalIndexDensity)
	}
	if cfg.MaxSegmentSizeBytes != 32<<20 {
		t.Errorf("MaxSegmentSizeBytes default incorrect: %d", cfg.MaxSegmentSizeBytes)
	}
	if cfg.MaxEntrySizeBytes != 1<<20 {
		t.Errorf("MaxEntrySizeBytes default incorrect: %d", cfg.MaxEntrySizeBytes)
	}
	if cfg.ExporterPort != 9100 {
		t.Errorf("ExporterPort default incorrect: %d", cfg.ExporterPort)
	}
}

func TestNormalizePreservesExplicitValues(t *testing.T) {
	cfg := &config.Config{
		Directory:           "/var/lib/journal",
		Name:                "raftlog",
		JournalIndexDensity: 10,
		MaxSegmentSizeBytes: 64 << 20,
		MaxEntrySizeBytes:   2 << 20,
		MaxEntries:          1000,
		ExporterPort:        9200,
	}
	cfg.Normalize()

	if cfg.Directory != "/var/lib/journal" {
		t.Errorf("Directory was overwritten: %q", cfg.Directory)
	}
	if cfg.MaxEntries != 1000 {
		t.Errorf("MaxEntries was overwritten: %d", cfg.MaxEntries)
	}
}
