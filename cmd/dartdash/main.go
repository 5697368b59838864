package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"dartdash/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	glog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dartdash: %v\n", err)
		os.Exit(1)
	}
}
