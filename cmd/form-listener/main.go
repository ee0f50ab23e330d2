package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wotc/internal/app"
	"wotc/internal/config"
	"wotc/internal/listener"
)

func main() {
	cfg, err := config.Load()
	must(err)
	app.SetupLogging(cfg, false)

	a, err := app.Open(cfg)
	must(err)
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	processor, err := a.Processor(ctx, "")
	must(err)

	must(listener.NewService(a.DB, cfg, processor).Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
