package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/3leaps/nimbrowse/internal/cmd"

	// Backends register themselves with the provider registry.
	_ "github.com/3leaps/nimbrowse/pkg/provider/file"
	_ "github.com/3leaps/nimbrowse/pkg/provider/minio"
	_ "github.com/3leaps/nimbrowse/pkg/provider/s3"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cmd.Execute(ctx)
	stop()
	os.Exit(code)
}
