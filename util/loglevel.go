package util

import (
	"encoding/json"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// UnmarshalYAML implements custom YAML unmarshaling for LogLevel, accepting
// either the level name ("debug", "info", "warn"/"warning", "error") or its
// raw integer value.
func (l *LogLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		switch strings.ToLower(s) {
		case "debug":
			*l = LogLevelDebug
		case "info":
			*l = LogLevelInfo
		case "warn", "warning":
			*l = LogLevelWarn
		case "error":
			*l = LogLevelError
		default:
			// An integer scalar also decodes into a string.
			if i, err := strconv.Atoi(s); err == nil {
				*l = LogLevel(i)
			} else {
				*l = LogLevelInfo
			}
		}
		return nil
	}

	var i int
	if err := value.Decode(&i); err != nil {
		return err
	}
	*l = LogLevel(i)
	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling for LogLevel.
func (l *LogLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch strings.ToLower(s) {
		case "debug":
			*l = LogLevelDebug
		case "info":
			*l = LogLevelInfo
		case "warn", "warning":
			*l = LogLevelWarn
		case "error":
			*l = LogLevelError
		default:
			*l = LogLevelInfo
		}
		return nil
	}

	i, err := strconv.Atoi(string(data))
	if err != nil {
		return err
	}
	*l = LogLevel(i)
	return nil
}
