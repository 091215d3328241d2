// avatargen: grows mosaic avatars, either one-off to a file, for every user in the
// database that doesn't have one yet, or on request from a small web server.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/maxhully/mosaic"
	"github.com/maxhully/mosaic/avatargen"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCommand().ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("avatargen failed")
	}
}

func rootCommand() *cobra.Command {
	var configFile string
	var v *viper.Viper
	cmd := &cobra.Command{
		Use:           "avatargen",
		Short:         "Grow mosaic avatars",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			v, err = newViper(cmd, configFile)
			if err != nil {
				return err
			}
			setUpLogging(v.GetString("log_level"))
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a config file (JSON, YAML or TOML)")
	defineFlags(cmd)

	getViper := func() *viper.Viper { return v }
	cmd.AddCommand(generateCommand(getViper), addUserCommand(getViper), backfillCommand(getViper), serveCommand(getViper))
	return cmd
}

func generateCommand(getViper func() *viper.Viper) *cobra.Command {
	var seed string
	cmd := &cobra.Command{
		Use:   "generate NAME",
		Short: "Write NAME_default.png to the output directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(getViper())
			if err != nil {
				return err
			}
			g, err := avatargen.NewGenerator(cfg.Avatar, log.Logger)
			if err != nil {
				return err
			}
			if seed == "" {
				seed = args[0]
			}
			if _, err := g.GenerateAvatar(avatargen.NewRand(seed), args[0], cfg.OutDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s_default.png\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "random seed (defaults to NAME)")
	return cmd
}

// openWorker opens the database and builds a worker around it. Close the DB when
// you're done.
func openWorker(cfg config) (*mosaic.AvatarWorker, error) {
	g, err := avatargen.NewGenerator(cfg.Avatar, log.Logger)
	if err != nil {
		return nil, err
	}
	db, err := mosaic.OpenDB(cfg.DB, max(cfg.Workers, 1)+1)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		db.Close()
		return nil, err
	}
	return &mosaic.AvatarWorker{
		DB:        db,
		Generator: g,
		OutDir:    cfg.OutDir,
		Logger:    log.Logger,
	}, nil
}

func addUserCommand(getViper func() *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "adduser NAME...",
		Short: "Create users and give each of them a default avatar",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(getViper())
			if err != nil {
				return err
			}
			worker, err := openWorker(cfg)
			if err != nil {
				return err
			}
			defer worker.DB.Close()
			for _, name := range args {
				conn := worker.DB.Get(cmd.Context())
				_, err := mosaic.CreateUser(conn, name)
				worker.DB.Put(conn)
				if err != nil {
					return fmt.Errorf("couldn't create user %s: %w", name, err)
				}
				if err := worker.Process(cmd.Context(), mosaic.AvatarJob{UserName: name}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func backfillCommand(getViper func() *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Generate default avatars for users that don't have one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(getViper())
			if err != nil {
				return err
			}
			worker, err := openWorker(cfg)
			if err != nil {
				return err
			}
			defer worker.DB.Close()
			n, err := worker.Backfill(cmd.Context())
			log.Info().Int("count", n).Msg("backfilled avatars")
			return err
		},
	}
}

func serveCommand(getViper func() *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve user pages and regenerate avatars on request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(getViper())
			if err != nil {
				return err
			}
			if cfg.SecretKey == nil {
				return fmt.Errorf("--secret_key is required")
			}
			worker, err := openWorker(cfg)
			if err != nil {
				return err
			}
			defer worker.DB.Close()
			return serve(cmd.Context(), cfg, worker)
		},
	}
	defineServeFlags(cmd)
	return cmd
}
