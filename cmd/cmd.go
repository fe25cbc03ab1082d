// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the config file, data directory, and journal schema.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize data stores",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// serveCommand runs the Telegram bot until interrupted.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the Telegram bot",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Serve,
	}
}

// tuiCommand launches the interactive dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse the catalog and request tally interactively",
		Flags:  []cli.Flag{configFlag()},
		Action: r.TUI,
	}
}

// catalogCommand handles track catalog operations.
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"cat"},
		Usage:   "Track catalog operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all catalogued tracks",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.CatalogList,
			},
			{
				Name:  "search",
				Usage: "Fuzzy-search the catalog",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.CatalogSearch,
			},
			{
				Name:  "ingest",
				Usage: "Add or replace a track from an announcement filename",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "ref",
						Usage:    "Delivery reference ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Original filename to parse",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "size",
						Usage: "File size in bytes",
					},
				},
				Action: r.CatalogIngest,
			},
			{
				Name:  "export",
				Usage: "Export the catalog to CSV, Markdown, or plain text",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: csv, md, or txt",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.CatalogExport,
			},
		},
	}
}

// ledgerCommand handles user balance operations.
func ledgerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "User points ledger operations",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show a user's balance and counters",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User ID or display name",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LedgerShow,
			},
			{
				Name:  "grant",
				Usage: "Claim the periodic free grant for a user",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User ID",
						Required: true,
					},
				},
				Action: r.LedgerGrant,
			},
			{
				Name:  "credit",
				Usage: "Credit purchased points to a user",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User ID",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "points",
						Aliases:  []string{"p"},
						Usage:    "Points to credit",
						Required: true,
					},
				},
				Action: r.LedgerCredit,
			},
			{
				Name:  "history",
				Usage: "Show a user's journal entries",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User ID",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries to return",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LedgerHistory,
			},
		},
	}
}

// requestsCommand handles the missing-song request tracker.
func requestsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "requests",
		Aliases: []string{"req"},
		Usage:   "Missing-song request operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show the pending request tally",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "Output the tally as CSV",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write CSV to a file instead of stdout",
					},
				},
				Action: r.RequestsList,
			},
			{
				Name:   "clear",
				Usage:  "Clear all pending requests",
				Flags:  []cli.Flag{configFlag()},
				Action: r.RequestsClear,
			},
		},
	}
}

// statsCommand prints library totals.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show totals for users, tracks, requests, and revenue",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Stats,
	}
}
