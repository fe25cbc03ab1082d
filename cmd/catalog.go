package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/trax/internal/engine"
	"github.com/desertthunder/trax/internal/formatter"
	"github.com/desertthunder/trax/internal/models"
	"github.com/desertthunder/trax/internal/search"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/urfave/cli/v3"
)

// CatalogList prints every catalogued track.
func (r *Runner) CatalogList(ctx context.Context, cmd *cli.Command) error {
	return r.withEngine(cmd, func(eng *engine.Engine) error {
		tracks := eng.Tracks()

		if cmd.Bool("json") {
			return r.writeJSON(tracks, cmd.Bool("pretty"))
		}

		r.writePlainHeader(fmt.Sprintf("Catalog (%d tracks)", len(tracks)))
		for _, track := range tracks {
			r.writePlain("[%s] %s (%s, %.2f MB)\n",
				track.ReferenceID, track.Display(), strings.ToUpper(track.Format), track.SizeMB)
		}
		return nil
	})
}

// CatalogSearch runs the same fuzzy match the bot uses and prints the hits.
func (r *Runner) CatalogSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query argument is required", shared.ErrMissingArgument)
	}

	return r.withEngine(cmd, func(eng *engine.Engine) error {
		var matches []models.Track
		for _, track := range eng.Tracks() {
			if search.Match(query, track) {
				matches = append(matches, track)
			}
		}

		if len(matches) == 0 {
			r.writePlain("No matches for %q\n", query)
			return nil
		}

		r.writePlainHeader(fmt.Sprintf("%d match(es) for %q", len(matches), query))
		for _, track := range matches {
			r.writePlain("[%s] %s\n", track.ReferenceID, track.Display())
		}
		return nil
	})
}

// CatalogIngest parses an announcement filename into the catalog, the same
// path a channel post takes.
func (r *Runner) CatalogIngest(ctx context.Context, cmd *cli.Command) error {
	return r.withEngine(cmd, func(eng *engine.Engine) error {
		track, created, err := eng.Ingest(cmd.String("ref"), cmd.String("file"), int64(cmd.Int("size")))
		if err != nil {
			return err
		}

		verb := "updated"
		if created {
			verb = "added"
		}
		r.writePlain("✓ %s %s\n", verb, track.Display())
		r.writePlain("Reference: %s | Format: %s | Size: %.2f MB\n",
			track.ReferenceID, track.Format, track.SizeMB)
		return nil
	})
}

// CatalogExport writes the catalog in the requested format.
func (r *Runner) CatalogExport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	outputPath := cmd.String("output")

	return r.withEngine(cmd, func(eng *engine.Engine) error {
		tracks := eng.Tracks()

		var data []byte
		var err error
		switch format {
		case "csv":
			data, err = formatter.ExportToCSV(tracks)
		case "md", "markdown":
			data, err = formatter.ExportToMarkdown("Music Library", tracks)
		case "txt", "text":
			data, err = formatter.ExportToText("Music Library", tracks)
		default:
			return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if outputPath == "" {
			return r.writePlain("%s", data)
		}
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		r.writePlain("✓ Exported %d tracks to %s\n", len(tracks), outputPath)
		return nil
	})
}
