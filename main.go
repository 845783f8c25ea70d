package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/pendant-go/cmd"
	"github.com/tphakala/pendant-go/internal/buildinfo"
)

// Set with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := cmd.RootCommand(buildinfo.NewContext(version, buildDate)).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
