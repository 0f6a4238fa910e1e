package users

import (
	"bufio"
	"errors"
	"os"
	"strings"

	"github.com/andrebq/backoffice/auth"
	"github.com/andrebq/backoffice/internal/config"
	"github.com/andrebq/backoffice/internal/logutil"
	"github.com/andrebq/backoffice/store"
	"github.com/urfave/cli/v2"
)

func Cmd(cfg *config.Config) *cli.Command {
	var st *store.Store
	return &cli.Command{
		Name:  "users",
		Usage: "Manage backoffice accounts",
		Before: func(ctx *cli.Context) error {
			if err := cfg.ValidateStore(); err != nil {
				return err
			}
			var err error
			st, err = store.Open(ctx.Context, cfg.StoreConfig())
			if err != nil {
				return err
			}
			return st.Migrate(ctx.Context)
		},
		After: func(ctx *cli.Context) error {
			if st == nil {
				return nil
			}
			return st.Close()
		},
		Subcommands: []*cli.Command{
			registerCmd(cfg, &st),
		},
	}
}

func registerCmd(cfg *config.Config, st **store.Store) *cli.Command {
	var username string
	role := auth.RoleUser
	return &cli.Command{
		Name:  "register",
		Usage: "Register a new account (password is read from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "username",
				Aliases:     []string{"u", "user"},
				Usage:       "Name of the user to register",
				Destination: &username,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "role",
				Usage:       "Role of the new user (Admin or User)",
				Destination: &role,
				Value:       role,
			},
		},
		Action: func(ctx *cli.Context) error {
			sc := bufio.NewScanner(os.Stdin)
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return err
				}
				return errors.New("missing password from stdin")
			}
			password := strings.TrimSpace(sc.Text())
			if len(password) == 0 {
				return errors.New("missing password from stdin")
			}
			svc := auth.NewService(*st, auth.NewHasher(cfg.Auth.HashCost), nil, nil)
			id, err := svc.Register(ctx.Context, username, password, role)
			if err != nil {
				return err
			}
			log := logutil.GetOrDefault(ctx.Context)
			log.Info().Int64("user.id", id).Str("user.name", username).Str("user.role", role).Msg("User registered")
			return nil
		},
	}
}
