// Command chatrelay starts the chat relay server: process bootstrap,
// flag/env parsing, and signal-driven shutdown are the ambient concerns
// spec.md §1 calls out of scope for the core — this is where they live,
// in buildkite-agent's urfave/cli-and-flags style (see its main.go /
// clicommand/agent_start.go).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/pankaj/chat-relay/internal/logging"
	"github.com/pankaj/chat-relay/server"
)

func main() {
	app := cli.NewApp()
	app.Name = "chatrelay"
	app.Usage = "single-threaded TCP chat relay server"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "host",
			Value:  "localhost",
			Usage:  "Host to listen on",
			EnvVar: "CHATRELAY_HOST",
		},
		cli.IntFlag{
			Name:   "port",
			Value:  50000,
			Usage:  "Port to listen on",
			EnvVar: "CHATRELAY_PORT",
		},
		cli.BoolFlag{
			Name:   "debug",
			Usage:  "Enable debug logging",
			EnvVar: "CHATRELAY_DEBUG",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger := logging.New(c.Bool("debug"))
	defer logger.Sync()

	srv, err := server.New(logger, c.String("host"), c.Int("port"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	return srv.Run(ctx)
}
