package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"roadrescue/internal/service/bootstrap"
	"roadrescue/internal/shared/config"
	"roadrescue/internal/shared/logger"
)

func main() {
	log, err := logger.NewLoggerWithOptions(
		"roadrescue-api",
		os.Getenv("LOG_LEVEL"),
		os.Getenv("LOG_DIR"),
	)
	if err != nil {
		fallback := logger.NewLogger("roadrescue-api")
		fallback.Fatal(logger.Entry{
			Action:  "logger_init_failed",
			Message: err.Error(),
		})
	}
	defer log.Close()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.Run(ctx, cfg, log); err != nil {
		log.Fatal(logger.Entry{
			Action:  "startup_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
}
