package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/internal/odfctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := odfctl.NewCommand(os.Stdout).ExecuteContext(ctx)

	stop()
	glog.Flush()

	if err != nil {
		os.Exit(1)
	}
}
