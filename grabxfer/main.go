package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dyastin-0/grabxfer/cmd"
	"github.com/Dyastin-0/grabxfer/styles"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.New().Run(ctx, os.Args); err != nil {
		fmt.Println(styles.ERROR.Render(err.Error()))
		os.Exit(1)
	}
}
