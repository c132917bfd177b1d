package main

import (
	"context"
	"fmt"
	"os"

	"discord-modbot/bot"
	"discord-modbot/handlers"
	"discord-modbot/utils"

	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := cli.NewApp()
	app.Name = "modbot"
	app.Usage = "community moderation bot"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "path to a config file (yaml, json or toml)",
			EnvVars: []string{"MODBOT_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "path to the .env file",
			Value: ".env",
		},
	}
	app.Commands = []*cli.Command{
		runCmd,
		logsCmd,
		warnsCmd,
	}
	app.Action = runCmd.Action

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "connect to the gateway and start moderating",
	Action: func(cctx *cli.Context) error {
		cfg, opts, err := loadConfig(cctx, true)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.DataDir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		logger, err := utils.NewLogger(cfg.Log.Level, cfg.Log.Encoding)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		defer logger.Sync()
		zap.ReplaceGlobals(logger)

		b, err := bot.New(cfg, opts, logger)
		if err != nil {
			logger.Error("Error creating bot", zap.Error(err))
			return err
		}

		handlers.Register(b)

		return b.Run(context.Background())
	},
}
