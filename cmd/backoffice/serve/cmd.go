package serve

import (
	"os"

	"github.com/andrebq/backoffice/api"
	"github.com/andrebq/backoffice/auth"
	authapi "github.com/andrebq/backoffice/auth/api"
	"github.com/andrebq/backoffice/internal/cmdflags"
	"github.com/andrebq/backoffice/internal/config"
	"github.com/andrebq/backoffice/internal/httpserver"
	"github.com/andrebq/backoffice/internal/logutil"
	"github.com/andrebq/backoffice/store"
	"github.com/urfave/cli/v2"
)

func Cmd(cfg *config.Config) *cli.Command {
	var bindAddr string
	var origins cli.StringSlice
	var insecureCookies bool
	var skipMigrations bool
	jwtSecretEnv := config.DefaultJWTSecretEnv
	cookieSecretEnv := config.DefaultCookieSecretEnv
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the backoffice HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "bind",
				Usage:       "Address to bind the HTTP API",
				Destination: &bindAddr,
			},
			&cli.StringSliceFlag{
				Name:        "allowed-origin",
				Usage:       "Origin allowed to make credentialed cross-origin requests (repeatable)",
				Destination: &origins,
			},
			&cli.BoolFlag{
				Name:        "insecure-cookies",
				Usage:       "Send session cookies without the Secure flag (plain HTTP development only)",
				Destination: &insecureCookies,
			},
			&cli.BoolFlag{
				Name:        "skip-migrations",
				Usage:       "Do not apply pending migrations on startup",
				Destination: &skipMigrations,
			},
			cmdflags.SecretEnvVar("jwt-secret-envvar-name", "JWT signing secret", &jwtSecretEnv),
			cmdflags.SecretEnvVar("cookie-secret-envvar-name", "cookie encryption secret", &cookieSecretEnv),
		},
		Action: func(ctx *cli.Context) error {
			conf := *cfg
			if ctx.IsSet("bind") {
				conf.Server.Bind = bindAddr
			}
			if ctx.IsSet("allowed-origin") {
				conf.Server.AllowedOrigins = origins.Value()
			}
			if ctx.IsSet("insecure-cookies") {
				conf.Server.InsecureCookies = insecureCookies
			}
			if ctx.IsSet("jwt-secret-envvar-name") {
				conf.Auth.JWTSecretEnv = jwtSecretEnv
			}
			if ctx.IsSet("cookie-secret-envvar-name") {
				conf.Auth.CookieSecretEnv = cookieSecretEnv
			}
			err := conf.LoadSecrets(os.Getenv, os.Setenv)
			if err != nil {
				return err
			}
			err = conf.Validate()
			if err != nil {
				return err
			}

			st, err := store.Open(ctx.Context, conf.StoreConfig())
			if err != nil {
				return err
			}
			defer st.Close()
			if !skipMigrations {
				err = st.Migrate(ctx.Context)
				if err != nil {
					return err
				}
			}

			ttl := conf.Auth.TokenTTL.Duration
			denylist, err := auth.InMemoryDenylist(ttl, nil)
			if err != nil {
				return err
			}
			cookies, err := auth.NewCookieCodec(conf.Auth.CookieSecret)
			if err != nil {
				return err
			}
			svc := auth.NewService(st, auth.NewHasher(conf.Auth.HashCost), auth.NewTokens(conf.Auth.JWTSecret, ttl, nil), denylist)
			realm := authapi.NewRealm(svc, cookies, conf.Server.InsecureCookies)
			handler := api.AsHandler(ctx.Context, st, realm, api.Options{AllowedOrigins: conf.Server.AllowedOrigins})

			log := logutil.GetOrDefault(ctx.Context)
			log.Info().
				Str("store.dialect", string(st.Dialect())).
				Strs("cors.origins", conf.Server.AllowedOrigins).
				Dur("auth.ttl", ttl).
				Msg("Backoffice ready")
			return httpserver.Serve(ctx.Context, conf.HTTPConfig(), handler)
		},
	}
}
