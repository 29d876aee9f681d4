package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sqlask/sqlask/internal/cli/sqlask"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := sqlask.NewRootCmd(sqlask.Options{})
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
