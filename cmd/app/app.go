package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/DRSN-tech/conditions-backend/internal/app"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
)

func main() {
	log := logger.NewSlogLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.NewRootCmd(log, os.Stdout).ExecuteContext(ctx); err != nil {
		log.Errorf(err, "command failed")
		stop()
		os.Exit(1)
	}
}
