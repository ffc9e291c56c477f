package main

import (
	"context"
	"os"
	"syscall"
	"time"

	"todoed/cmd/todoed/cmd"
	"todoed/internal/shutdown"
)

func main() {
	mgr := shutdown.NewManager()
	stop := mgr.NotifyOnSignals(os.Interrupt, syscall.SIGTERM)

	code := cmd.Execute(os.Args[1:], os.Stdout, os.Stderr, &cmd.Config{Shutdown: mgr})
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = mgr.Wait(ctx)
	cancel()

	if mgr.Signal() != nil {
		code = 130
	}
	os.Exit(code)
}
