package migrate

import (
	"github.com/andrebq/backoffice/internal/config"
	"github.com/andrebq/backoffice/internal/logutil"
	"github.com/andrebq/backoffice/store"
	"github.com/urfave/cli/v2"
)

func Cmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations",
		Action: func(ctx *cli.Context) error {
			if err := cfg.ValidateStore(); err != nil {
				return err
			}
			st, err := store.Open(ctx.Context, cfg.StoreConfig())
			if err != nil {
				return err
			}
			defer st.Close()
			err = st.Migrate(ctx.Context)
			if err != nil {
				return err
			}
			log := logutil.GetOrDefault(ctx.Context)
			log.Info().Str("store.dialect", string(st.Dialect())).Msg("Migrations applied")
			return nil
		},
	}
}
