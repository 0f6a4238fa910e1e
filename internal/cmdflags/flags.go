package cmdflags

import (
	"os"

	"github.com/andrebq/backoffice/internal/config"
	"github.com/andrebq/backoffice/internal/logutil"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

type (
	// Globals are the flags shared by every command.
	Globals struct {
		ConfigFile string
		EnvFile    string
		LogLevel   string
		LogFormat  string
		Dialect    string
		DSN        string
	}
)

func (g *Globals) Flags() []cli.Flag {
	if g.EnvFile == "" {
		g.EnvFile = ".env"
	}
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to a TOML configuration file",
			EnvVars:     []string{config.EnvPrefix + "CONFIG"},
			Destination: &g.ConfigFile,
			Value:       g.ConfigFile,
		},
		&cli.StringFlag{
			Name:        "env-file",
			Usage:       "Environment file loaded before reading BACKOFFICE_* variables (ignored when missing)",
			Destination: &g.EnvFile,
			Value:       g.EnvFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Destination: &g.LogLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (json or console)",
			Destination: &g.LogFormat,
		},
		StoreDialect(&g.Dialect),
		StoreDSN(&g.DSN),
	}
}

// Load builds the configuration, flags set on the command line win over
// every other source. The process logger is configured as a side effect
// and attached to the cli context.
func (g *Globals) Load(c *cli.Context, cfg *config.Config) error {
	err := config.LoadDotEnv(g.EnvFile)
	if err != nil {
		return err
	}
	loaded, err := config.Load(g.ConfigFile, os.Getenv)
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		loaded.Log.Level = g.LogLevel
	}
	if c.IsSet("log-format") {
		loaded.Log.Format = g.LogFormat
	}
	if c.IsSet("store-dialect") {
		loaded.Store.Dialect = g.Dialect
	}
	if c.IsSet("store-dsn") {
		loaded.Store.DSN = g.DSN
	}
	logger, err := logutil.New(os.Stderr, loaded.Log.Level, loaded.Log.Format)
	if err != nil {
		return err
	}
	log.Logger = logger
	c.Context = logutil.WithLogger(c.Context, logger)
	*cfg = loaded
	return nil
}

func StoreDialect(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "store-dialect",
		Usage:       "Database dialect (sqlite or postgres)",
		Destination: out,
		Value:       *out,
	}
}

func StoreDSN(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "store-dsn",
		Aliases:     []string{"db"},
		Usage:       "Path to the sqlite database or a postgres connection string",
		Destination: out,
		Value:       *out,
	}
}

func SecretEnvVar(name, what string, out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        name,
		Usage:       "Name of the environment variable that holds the " + what + ". The secret itself should not be passed as an argument",
		Value:       *out,
		Destination: out,
	}
}
