package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrebq/backoffice/cmd/backoffice/migrate"
	"github.com/andrebq/backoffice/cmd/backoffice/serve"
	"github.com/andrebq/backoffice/cmd/backoffice/users"
	"github.com/andrebq/backoffice/internal/cmdflags"
	"github.com/andrebq/backoffice/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	var globals cmdflags.Globals
	var cfg config.Config
	app := &cli.App{
		Name:  "backoffice",
		Usage: "Admin backend to manage users, clients and memos",
		Flags: globals.Flags(),
		Before: func(ctx *cli.Context) error {
			return globals.Load(ctx, &cfg)
		},
		Commands: []*cli.Command{
			serve.Cmd(&cfg),
			migrate.Cmd(&cfg),
			users.Cmd(&cfg),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}
