package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dyastin-0/livechat/cmd"
	"github.com/Dyastin-0/livechat/styles"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.New().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, styles.ERROR.Render(err.Error()))
		cancel()
		os.Exit(1)
	}
}
