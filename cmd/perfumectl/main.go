// cmd/perfumectl/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/javajoker/scentdb-backend/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}
