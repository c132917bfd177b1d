package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"discord-modbot/model"
	"discord-modbot/utils"
	"discord-modbot/utils/database"

	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var logsCmd = &cli.Command{
	Name:  "logs",
	Usage: "print the moderation action log",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "tail",
			Usage: "only print the last N entries (0 prints everything)",
		},
		&cli.StringFlag{
			Name:  "action",
			Usage: "only print entries of this kind, e.g. warn or ticket_close",
		},
	},
	Action: func(cctx *cli.Context) error {
		store, err := openStore(cctx)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.Actions.Entries()
		if err != nil {
			return err
		}
		for _, e := range selectEntries(entries, model.ActionKind(cctx.String("action")), cctx.Int("tail")) {
			fmt.Fprintln(cctx.App.Writer, formatEntry(e))
		}
		return nil
	},
}

var warnsCmd = &cli.Command{
	Name:  "warns",
	Usage: "inspect or clear a user's warnings",
	Subcommands: []*cli.Command{
		{
			Name:      "list",
			ArgsUsage: "<user-id>",
			Action: func(cctx *cli.Context) error {
				userID, err := userIDArg(cctx)
				if err != nil {
					return err
				}
				store, err := openStore(cctx)
				if err != nil {
					return err
				}
				defer store.Close()

				warns, err := store.Warns.List(userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cctx.App.Writer, "%s has %d warning(s)\n", userID, len(warns))
				for i, w := range warns {
					fmt.Fprintf(cctx.App.Writer, "%d. [%s] %s\n", i+1, w.Timestamp.UTC().Format(time.RFC3339), w.Reason)
				}
				return nil
			},
		},
		{
			Name:      "reset",
			ArgsUsage: "<user-id>",
			Action: func(cctx *cli.Context) error {
				userID, err := userIDArg(cctx)
				if err != nil {
					return err
				}
				store, err := openStore(cctx)
				if err != nil {
					return err
				}
				defer store.Close()

				if err := store.Warns.Reset(userID); err != nil {
					return err
				}
				fmt.Fprintf(cctx.App.Writer, "Warnings for %s cleared\n", userID)
				return nil
			},
		},
	},
}

func openStore(cctx *cli.Context) (*database.Store, error) {
	cfg, _, err := loadConfig(cctx, false)
	if err != nil {
		return nil, err
	}
	return database.Open(cfg.Storage, zap.L())
}

func userIDArg(cctx *cli.Context) (string, error) {
	id, ok := utils.ParseUserID(cctx.Args().First())
	if !ok {
		return "", errors.New("a user ID or mention is required")
	}
	return id, nil
}

// selectEntries keeps the entries of one kind (all when kind is empty), then the last
// tail of them (all when tail <= 0).
func selectEntries(entries []model.ActionLogEntry, kind model.ActionKind, tail int) []model.ActionLogEntry {
	var out []model.ActionLogEntry
	for _, e := range entries {
		if kind == "" || e.Action == kind {
			out = append(out, e)
		}
	}
	if tail > 0 && len(out) > tail {
		out = out[len(out)-tail:]
	}
	return out
}

func formatEntry(e model.ActionLogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-18s by %s", e.Timestamp.UTC().Format(time.RFC3339), e.Action, e.Moderator)
	field := func(name string, v *string) {
		if v != nil {
			fmt.Fprintf(&b, " %s=%q", name, *v)
		}
	}
	field("target", e.Target)
	field("reason", e.Reason)
	field("duration", e.Duration)
	field("details", e.Details)
	return b.String()
}
