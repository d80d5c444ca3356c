package cli_test

import (
	"strings"
	"testing"

	"github.com/downfa11-org/segjournal/pkg/cli"
	"github.com/downfa11-org/segjournal/pkg/journal"
)

func newHandler(t *testing.T) *cli.CommandHandler {
	t.Helper()
	dir := t.TempDir()
	j, err := journal.Open(journal.Config{Directory: dir, Name: "journal"})
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return cli.NewCommandHandler(j)
}

func TestAppendReadRoundTrip(t *testing.T) {
	ch := newHandler(t)

	resp := ch.HandleCommand("APPEND data=hello world")
	if !strings.Contains(resp, "appended index=1") {
		t.Fatalf("APPEND response = %q", resp)
	}

	resp = ch.HandleCommand("READ from=1")
	if !strings.Contains(resp, `data="hello world"`) {
		t.Fatalf("READ response = %q", resp)
	}
}

func TestAppendWithAsqn(t *testing.T) {
	ch := newHandler(t)
	resp := ch.HandleCommand("APPEND data=x asqn=5")
	if !strings.Contains(resp, "asqn=5") {
		t.Fatalf("APPEND with asqn response = %q", resp)
	}
}

func TestInfoReflectsState(t *testing.T) {
	ch := newHandler(t)
	ch.HandleCommand("APPEND data=a")
	ch.HandleCommand("APPEND data=b")

	resp := ch.HandleCommand("INFO")
	if !strings.Contains(resp, "last=2") {
		t.Fatalf("INFO response = %q, want last=2", resp)
	}
}

func TestTruncateAndReset(t *testing.T) {
	ch := newHandler(t)
	for i := 0; i < 3; i++ {
		ch.HandleCommand("APPEND data=x")
	}

	resp := ch.HandleCommand("TRUNCATE after=1")
	if !strings.Contains(resp, "truncated to last index 1") {
		t.Fatalf("TRUNCATE response = %q", resp)
	}

	resp = ch.HandleCommand("RESET first=1")
	if !strings.Contains(resp, "reset") {
		t.Fatalf("RESET response = %q", resp)
	}
	if !strings.Contains(ch.HandleCommand("INFO"), "empty=true") {
		t.Fatalf("INFO after RESET = %q, want empty=true", ch.HandleCommand("INFO"))
	}
}

func TestVerifyReportsSegments(t *testing.T) {
	ch := newHandler(t)
	ch.HandleCommand("APPEND data=a")
	ch.HandleCommand("APPEND data=b")
	ch.HandleCommand("FLUSH")

	resp := ch.HandleCommand("VERIFY")
	if !strings.Contains(resp, "segment 1: 2 records, ok") {
		t.Fatalf("VERIFY response = %q", resp)
	}
}

func TestMissingArgsReportUsage(t *testing.T) {
	ch := newHandler(t)
	resp := ch.HandleCommand("APPEND")
	if !strings.Contains(resp, "missing data parameter") {
		t.Fatalf("APPEND without data = %q", resp)
	}
}

func TestUnknownCommand(t *testing.T) {
	ch := newHandler(t)
	resp := ch.HandleCommand("BOGUS")
	if !strings.Contains(resp, "unknown command") {
		t.Fatalf("BOGUS response = %q", resp)
	}
}
