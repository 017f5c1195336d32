// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"codeberg.org/oliverandrich/talentgate-identity/internal/config"
	"codeberg.org/oliverandrich/talentgate-identity/internal/server"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *cli.Command {
	// Root flags are persistent, so every subcommand reads the same
	// configuration sources.
	return &cli.Command{
		Name:    "talentgate-identity",
		Usage:   "Identity and access service",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags:   append([]cli.Flag{config.ConfigFlag()}, config.Flags()...),
		Action:  server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server",
				Action: server.Run,
			},
			migrateCommand(),
			createAdminCommand(),
		},
	}
}
