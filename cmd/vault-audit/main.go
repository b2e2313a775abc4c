package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"acre/config"
	"acre/core"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitUnhealthy = 2
)

func main() {
	configPath := flag.String("config", "./config.toml", "Path to engine configuration file")
	flag.Parse()
	os.Exit(run(*configPath, os.Stdout, os.Stderr))
}

// run audits the persisted state without writing to the store. The store is
// closed before the exit code is returned.
func run(configPath string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitFailure
	}
	genesis, err := config.ValidateConfig(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return exitFailure
	}
	db, err := cfg.OpenStore()
	if err != nil {
		fmt.Fprintf(stderr, "failed to open store: %v\n", err)
		return exitFailure
	}
	defer db.Close()

	node, err := core.LoadNode(genesis, db)
	if err != nil {
		fmt.Fprintf(stderr, "failed to restore node: %v\n", err)
		return exitFailure
	}
	report, err := node.Audit()
	if err != nil {
		fmt.Fprintf(stderr, "audit failed: %v\n", err)
		return exitFailure
	}

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "failed to encode report: %v\n", err)
		return exitFailure
	}
	fmt.Fprintln(stdout, string(output))
	if !report.Healthy() {
		return exitUnhealthy
	}
	return exitOK
}
