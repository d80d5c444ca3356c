// Package config loads journal tunables: flag defaults, layered with an
// optional YAML/JSON file, layered again with explicit flags so an
// operator can override a single field on the command line without
// re-specifying the whole file.
package config

import (
	"encoding/json"
	"flag"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/downfa11-org/segjournal/pkg/journal"
	"github.com/downfa11-org/segjournal/util"
)

// Config holds every tunable this repository's journal and tooling need.
type Config struct {
	Directory           string        `yaml:"directory" json:"directory"`
	Name                string        `yaml:"name" json:"name"`
	JournalIndexDensity int           `yaml:"journal_index_density" json:"journal_index_density"`
	MaxSegmentSizeBytes int64         `yaml:"max_segment_size_bytes" json:"max_segment_size_bytes"`
	MaxEntrySizeBytes   int           `yaml:"max_entry_size_bytes" json:"max_entry_size_bytes"`
	MaxEntries          int64         `yaml:"max_entries" json:"max_entries"`
	LogLevel            util.LogLevel `yaml:"log_level" json:"log_level"`
	EnableExporter      bool          `yaml:"enable_exporter" json:"enable_exporter"`
	ExporterPort        int           `yaml:"exporter_port" json:"exporter_port"`
}

const (
	defaultDirectory           = "journal-data"
	defaultName                = "journal"
	defaultJournalIndexDensity = 5
	defaultMaxSegmentSize      = 32 << 20 // 32 MiB
	defaultMaxEntrySize        = 1 << 20  // 1 MiB
	defaultMaxEntries          = 0        // unbounded
	defaultExporterPort        = 9100
)

// LoadConfig parses flags, applies them as defaults, optionally layers a
// -config YAML/JSON file over them, then re-applies any flag the operator
// set explicitly on the command line.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	configPath := flag.String("config", "", "Path to YAML/JSON config file")
	dirStr := flag.String("directory", defaultDirectory, "Journal data directory")
	nameStr := flag.String("name", defaultName, "Journal segment file base name")
	densityStr := flag.String("index-density", strconv.Itoa(defaultJournalIndexDensity), "Sparse index density")
	maxSegmentStr := flag.String("max-segment-size", strconv.Itoa(defaultMaxSegmentSize), "Max segment size in bytes")
	maxEntryStr := flag.String("max-entry-size", strconv.Itoa(defaultMaxEntrySize), "Max single entry size in bytes")
	maxEntriesStr := flag.String("max-entries", strconv.Itoa(defaultMaxEntries), "Max entries per segment (0=unbounded)")
	logLevelStr := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	exporterStr := flag.String("exporter", "false", "Enable Prometheus exporter")
	exporterPortStr := flag.String("exporter-port", strconv.Itoa(defaultExporterPort), "Exporter port")

	if envPath := os.Getenv("JOURNAL_CONFIG_PATH"); envPath != "" && *configPath == "" {
		*configPath = envPath
	}

	flag.Parse()

	applyDefaults(cfg, dirStr, nameStr, densityStr, maxSegmentStr, maxEntryStr,
		maxEntriesStr, logLevelStr, exporterStr, exporterPortStr)

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(*configPath, ".json") {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	applyExplicitFlags(cfg, dirStr, nameStr, densityStr, maxSegmentStr, maxEntryStr,
		maxEntriesStr, logLevelStr, exporterStr, exporterPortStr)

	cfg.Normalize()
	util.SetLevel(cfg.LogLevel)

	return cfg, nil
}

func parseLogLevel(s string) util.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return util.LogLevelDebug
	case "warn", "warning":
		return util.LogLevelWarn
	case "error":
		return util.LogLevelError
	default:
		return util.LogLevelInfo
	}
}

func applyDefaults(cfg *Config, dirStr, nameStr, densityStr, maxSegmentStr, maxEntryStr,
	maxEntriesStr, logLevelStr, exporterStr, exporterPortStr *string) {

	cfg.Directory = *dirStr
	cfg.Name = *nameStr
	cfg.JournalIndexDensity = util.ParseInt(*densityStr, defaultJournalIndexDensity)
	if n, err := strconv.ParseInt(*maxSegmentStr, 10, 64); err == nil {
		cfg.MaxSegmentSizeBytes = n
	}
	cfg.MaxEntrySizeBytes = util.ParseInt(*maxEntryStr, defaultMaxEntrySize)
	if n, err := strconv.ParseInt(*maxEntriesStr, 10, 64); err == nil {
		cfg.MaxEntries = n
	}
	cfg.LogLevel = parseLogLevel(*logLevelStr)
	cfg.EnableExporter = util.ParseBool(*exporterStr, false)
	cfg.ExporterPort = util.ParseInt(*exporterPortStr, defaultExporterPort)
}

func applyExplicitFlags(cfg *Config, dirStr, nameStr, densityStr, maxSegmentStr, maxEntryStr,
	maxEntriesStr, logLevelStr, exporterStr, exporterPortStr *string) {

	if *dirStr != defaultDirectory {
		cfg.Directory = *dirStr
	}
	if *nameStr != defaultName {
		cfg.Name = *nameStr
	}
	if *densityStr != strconv.Itoa(defaultJournalIndexDensity) {
		cfg.JournalIndexDensity = util.ParseInt(*densityStr, cfg.JournalIndexDensity)
	}
	if *maxSegmentStr != strconv.Itoa(defaultMaxSegmentSize) {
		if n, err := strconv.ParseInt(*maxSegmentStr, 10, 64); err == nil {
			cfg.MaxSegmentSizeBytes = n
		}
	}
	if *maxEntryStr != strconv.Itoa(defaultMaxEntrySize) {
		cfg.MaxEntrySizeBytes = util.ParseInt(*maxEntryStr, cfg.MaxEntrySizeBytes)
	}
	if *maxEntriesStr != strconv.Itoa(defaultMaxEntries) {
		if n, err := strconv.ParseInt(*maxEntriesStr, 10, 64); err == nil {
			cfg.MaxEntries = n
		}
	}
	if *logLevelStr != "info" {
		cfg.LogLevel = parseLogLevel(*logLevelStr)
	}
	if *exporterStr != "false" {
		cfg.EnableExporter = util.ParseBool(*exporterStr, cfg.EnableExporter)
	}
	if *exporterPortStr != strconv.Itoa(defaultExporterPort) {
		cfg.ExporterPort = util.ParseInt(*exporterPortStr, cfg.ExporterPort)
	}
}

// Normalize fills in zero-valued fields with defaults so a sparse config
// file cannot produce an unusable journal.
func (cfg *Config) Normalize() {
	if strings.TrimSpace(cfg.Directory) == "" {
		cfg.Directory = defaultDirectory
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = defaultName
	}
	if cfg.JournalIndexDensity <= 0 {
		cfg.JournalIndexDensity = defaultJournalIndexDensity
	}
	if cfg.MaxSegmentSizeBytes <= 0 {
		cfg.MaxSegmentSizeBytes = defaultMaxSegmentSize
	}
	if cfg.MaxEntrySizeBytes <= 0 {
		cfg.MaxEntrySizeBytes = defaultMaxEntrySize
	}
	if cfg.MaxEntries < 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if cfg.ExporterPort <= 0 {
		cfg.ExporterPort = defaultExporterPort
	}
}

// JournalConfig projects the fields journal.Open needs out of the broader
// process config, so cmd/journalctl and any other binary wiring a journal
// don't have to know this package's flag/field names.
func (cfg *Config) JournalConfig() journal.Config {
	return journal.Config{
		Directory:           cfg.Directory,
		Name:                cfg.Name,
		JournalIndexDensity: cfg.JournalIndexDensity,
		MaxSegmentSize:      cfg.MaxSegmentSizeBytes,
		MaxEntrySize:        cfg.MaxEntrySizeBytes,
		MaxEntries:          cfg.MaxEntries,
	}
}
