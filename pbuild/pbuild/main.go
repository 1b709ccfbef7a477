package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/platformbuild/pbuild/pbuild"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := pbuild.Main(ctx, os.Args, nil)
	stop()
	os.Exit(code)
}
