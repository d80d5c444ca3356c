package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/downfa11-org/segjournal/pkg/cli"
	"github.com/downfa11-org/segjournal/pkg/config"
	"github.com/downfa11-org/segjournal/pkg/journal"
	"github.com/downfa11-org/segjournal/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Println("failed to load config:", err)
		os.Exit(1)
	}

	j, err := journal.Open(cfg.JournalConfig())
	if err != nil {
		fmt.Println("failed to open journal:", err)
		os.Exit(1)
	}
	defer j.Close()

	if cfg.EnableExporter {
		metrics.StartMetricsServer(cfg.ExporterPort)
	}

	ch := cli.NewCommandHandler(j)

	fmt.Printf("journalctl ready on %q (first=%d last=%d). Type HELP for commands.\n",
		cfg.Directory, j.GetFirstIndex(), j.GetLastIndex())
	fmt.Println("")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(line), "EXIT") {
			break
		}
		if result := ch.HandleCommand(line); result != "" {
			fmt.Println(result)
		}
	}
}
