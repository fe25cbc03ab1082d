package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/trax/internal/engine"
	"github.com/desertthunder/trax/internal/formatter"
	"github.com/urfave/cli/v3"
)

// RequestsList prints the pending missing-song tally.
func (r *Runner) RequestsList(ctx context.Context, cmd *cli.Command) error {
	return r.withEngine(cmd, func(eng *engine.Engine) error {
		tally := eng.MissingTally()

		if cmd.Bool("json") {
			return r.writeJSON(tally, true)
		}

		if cmd.Bool("csv") {
			data, err := formatter.TallyToCSV(tally)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if outputPath := cmd.String("output"); outputPath != "" {
				if err := os.WriteFile(outputPath, data, 0644); err != nil {
					return fmt.Errorf("failed to write export: %w", err)
				}
				return r.writePlain("✓ Exported %d queries to %s\n", len(tally), outputPath)
			}
			return r.writePlain("%s", data)
		}

		if len(tally) == 0 {
			return r.writePlain("No pending requests\n")
		}

		r.writePlainHeader(fmt.Sprintf("Pending requests (%d)", len(tally)))
		for _, entry := range tally {
			r.writePlain("%3d × %s\n", entry.Count, entry.Query)
		}
		return nil
	})
}

// RequestsClear removes every pending request.
func (r *Runner) RequestsClear(ctx context.Context, cmd *cli.Command) error {
	return r.withEngine(cmd, func(eng *engine.Engine) error {
		if err := eng.ClearMissing(); err != nil {
			return err
		}
		return r.writePlain("✓ Pending requests cleared\n")
	})
}

// Stats prints library totals.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	return r.withEngine(cmd, func(eng *engine.Engine) error {
		stats := eng.Summary()

		if cmd.Bool("json") {
			return r.writeJSON(stats, true)
		}

		r.writePlainHeader("Library Stats")
		r.writePlain("Users: %d\n", stats.Users)
		r.writePlain("Tracks: %d\n", stats.Tracks)
		r.writePlain("Pending requests: %d\n", stats.PendingRequests)
		r.writePlain("Revenue: ₹%.2f\n", stats.Revenue)
		return nil
	})
}
