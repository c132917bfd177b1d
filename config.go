package main

import (
	"discord-modbot/config"
	"discord-modbot/model"

	cli "github.com/urfave/cli/v2"
)

// loadConfig reads the configuration named by the global flags. Offline commands pass
// requireToken=false since they never connect.
func loadConfig(cctx *cli.Context, requireToken bool) (*model.Config, config.Options, error) {
	opts := config.Options{
		ConfigFile:   cctx.String("config"),
		EnvFile:      cctx.String("env-file"),
		RequireToken: requireToken,
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, opts, err
	}
	return cfg, opts, nil
}
