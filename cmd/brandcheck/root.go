package main

import (
	"log/slog"

	"github.com/FranksOps/brandcheck/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	v      *viper.Viper
	cfg    config.Config
	logger *slog.Logger

	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "brandcheck",
		Short:         "Check brand name availability across domains and social handles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (yaml, json or toml)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("storage-driver", config.DriverNone, "history storage: none, sqlite, postgres, ndjson, csv")
	pf.String("storage-dsn", "", "storage location (file path or postgres DSN)")
	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = a.v.BindPFlag("storage.driver", pf.Lookup("storage-driver"))
	_ = a.v.BindPFlag("storage.dsn", pf.Lookup("storage-dsn"))

	root.AddCommand(
		newCheckCmd(a),
		newServeCmd(a),
		newSettingsCmd(a),
		newHistoryCmd(a),
		newIPCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.envFile, a.configFile)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	slog.SetDefault(logger)
	return nil
}
