// Package cli implements the line-oriented command dispatcher journalctl
// drives: one exported HandleCommand entry point, a handleX method per
// verb, and key=value argument parsing.
package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/downfa11-org/segjournal/pkg/journal"
	"github.com/downfa11-org/segjournal/pkg/record"
	"github.com/downfa11-org/segjournal/pkg/segment"
)

// CommandHandler dispatches journalctl's REPL commands against a single
// open journal.
type CommandHandler struct {
	J *journal.Journal
}

// NewCommandHandler binds a handler to an already-open journal.
func NewCommandHandler(j *journal.Journal) *CommandHandler {
	return &CommandHandler{J: j}
}

// HandleCommand parses and executes one line of input, returning the text
// to print back to the operator.
func (ch *CommandHandler) HandleCommand(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	fields := strings.SplitN(line, " ", 2)
	verb := strings.ToUpper(fields[0])
	rest := ""
	if len(fields) == 2 {
		rest = fields[1]
	}

	switch verb {
	case "HELP":
		return ch.handleHelp()
	case "APPEND":
		return ch.handleAppend(rest)
	case "READ":
		return ch.handleRead(rest)
	case "INFO":
		return ch.handleInfo()
	case "TRUNCATE":
		return ch.handleTruncate(rest)
	case "RESET":
		return ch.handleReset(rest)
	case "FLUSH":
		return ch.handleFlush()
	case "VERIFY":
		return ch.handleVerify()
	default:
		return fmt.Sprintf("unknown command %q. Type HELP for commands.", fields[0])
	}
}

func (ch *CommandHandler) handleHelp() string {
	return `Available commands:
APPEND data=<text> [asqn=<N>] - append a record, optionally with an explicit sequence number
READ from=<index> [count=<N>] - read records starting at index (default count=10)
INFO - show first/last index and open state
TRUNCATE after=<index> - discard every record after index
RESET first=<index> - discard every record and restart empty at index
FLUSH - fsync the active segment
VERIFY - scan every segment file and report checksum integrity
HELP - show this help
EXIT - exit`
}

func (ch *CommandHandler) handleAppend(argsStr string) string {
	args := parseKeyValueArgs(argsStr)
	data, ok := args["data"]
	if !ok {
		return "missing data parameter. Expected: APPEND data=<text> [asqn=<N>]"
	}

	if asqnStr, ok := args["asqn"]; ok {
		asqn, err := strconv.ParseInt(asqnStr, 10, 64)
		if err != nil {
			return "asqn must be an integer"
		}
		rec, err := ch.J.AppendAsqn([]byte(data), asqn)
		if err != nil {
			return fmt.Sprintf("append failed: %v", err)
		}
		return fmt.Sprintf("appended index=%d asqn=%d", rec.Index, rec.Asqn)
	}

	rec, err := ch.J.Append([]byte(data))
	if err != nil {
		return fmt.Sprintf("append failed: %v", err)
	}
	return fmt.Sprintf("appended index=%d", rec.Index)
}

func (ch *CommandHandler) handleRead(argsStr string) string {
	args := parseKeyValueArgs(argsStr)
	fromStr, ok := args["from"]
	if !ok {
		return "missing from parameter. Expected: READ from=<index> [count=<N>]"
	}
	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return "from must be a non-negative integer"
	}
	count := 10
	if countStr, ok := args["count"]; ok {
		n, err := strconv.Atoi(countStr)
		if err != nil || n <= 0 {
			return "count must be a positive integer"
		}
		count = n
	}

	r, err := ch.J.OpenReader()
	if err != nil {
		return fmt.Sprintf("open reader failed: %v", err)
	}
	defer r.Close()

	if err := r.Reset(from); err != nil {
		return fmt.Sprintf("seek to %d failed: %v", from, err)
	}

	var lines []string
	for i := 0; i < count; i++ {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Sprintf("read failed after %d records: %v", len(lines), err)
		}
		lines = append(lines, formatRecord(rec))
	}
	if len(lines) == 0 {
		return "(no records)"
	}
	return strings.Join(lines, "\n")
}

func (ch *CommandHandler) handleInfo() string {
	return fmt.Sprintf("first=%d last=%d empty=%v open=%v",
		ch.J.GetFirstIndex(), ch.J.GetLastIndex(), ch.J.IsEmpty(), ch.J.IsOpen())
}

func (ch *CommandHandler) handleTruncate(argsStr string) string {
	args := parseKeyValueArgs(argsStr)
	afterStr, ok := args["after"]
	if !ok {
		return "missing after parameter. Expected: TRUNCATE after=<index>"
	}
	after, err := strconv.ParseUint(afterStr, 10, 64)
	if err != nil {
		return "after must be a non-negative integer"
	}
	if err := ch.J.DeleteAfter(after); err != nil {
		return fmt.Sprintf("truncate failed: %v", err)
	}
	return fmt.Sprintf("truncated to last index %d", ch.J.GetLastIndex())
}

func (ch *CommandHandler) handleReset(argsStr string) string {
	args := parseKeyValueArgs(argsStr)
	firstStr, ok := args["first"]
	if !ok {
		return "missing first parameter. Expected: RESET first=<index>"
	}
	first, err := strconv.ParseUint(firstStr, 10, 64)
	if err != nil {
		return "first must be a non-negative integer"
	}
	if err := ch.J.Reset(first); err != nil {
		return fmt.Sprintf("reset failed: %v", err)
	}
	return fmt.Sprintf("journal reset, new first index %d", first)
}

func (ch *CommandHandler) handleFlush() string {
	if err := ch.J.Flush(); err != nil {
		return fmt.Sprintf("flush failed: %v", err)
	}
	return "flushed"
}

func (ch *CommandHandler) handleVerify() string {
	var lines []string
	for _, info := range ch.J.SegmentInfos() {
		sc, err := segment.OpenScanner(info.Path)
		if err != nil {
			return fmt.Sprintf("open %s failed: %v", info.Path, err)
		}
		result, err := sc.Verify(info.FirstIndex)
		sc.Close()
		if err != nil {
			return fmt.Sprintf("verify %s failed: %v", info.Path, err)
		}
		status := "ok"
		if result.FirstBadFrame >= 0 {
			status = fmt.Sprintf("bad frame at offset %d", result.FirstBadFrame)
		}
		lines = append(lines, fmt.Sprintf("segment %d: %d records, %s", info.SegmentID, result.ValidRecords, status))
	}
	return strings.Join(lines, "\n")
}

func formatRecord(rec record.Record) string {
	asqn := "unspecified"
	if rec.Asqn != record.UnspecifiedAsqn {
		asqn = strconv.FormatInt(rec.Asqn, 10)
	}
	return fmt.Sprintf("index=%d asqn=%s data=%q", rec.Index, asqn, rec.Data)
}

func parseKeyValueArgs(argsStr string) map[string]string {
	result := make(map[string]string)
	dataIdx := strings.Index(argsStr, "data=")
	if dataIdx == -1 {
		for _, part := range strings.Fields(argsStr) {
			kv := strings.SplitN(part, "=", 2)
			if len(kv) == 2 {
				result[kv[0]] = kv[1]
			}
		}
		return result
	}

	for _, part := range strings.Fields(argsStr[:dataIdx]) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 {
			result[kv[0]] = kv[1]
		}
	}
	data := strings.TrimSpace(argsStr[dataIdx+5:])
	if i := strings.LastIndex(data, " asqn="); i != -1 && !strings.Contains(data[i+1:], " ") {
		result["asqn"] = data[i+6:]
		data = strings.TrimSpace(data[:i])
	}
	result["data"] = data
	return result
}
