// Command sercha-ingest incrementally ingests code, documents and database
// schemas into chunk stores.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-ingest/internal/app"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	a, err := app.New(app.Options{
		ConfigDir: os.Getenv("SERCHA_INGEST_HOME"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close: %v", err)
		}
	}()

	cli.Configure(&cli.Config{
		Version:         version,
		Settings:        a.SettingsService(),
		Orchestrator:    a.Orchestrator(),
		Search:          a.Search(),
		Targets:         a,
		ChunkStoreNames: a.ChunkStoreNames(),
		Metrics:         a.MetricsHandler(),
		Scheduler:       a.NewScheduler,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
