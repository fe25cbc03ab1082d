package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/trax/internal/engine"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/desertthunder/trax/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive dashboard over the engine's data stores.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/trax-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	return r.withEngine(cmd, func(eng *engine.Engine) error {
		model := ui.NewModel(eng)
		p := tea.NewProgram(model)

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})
}
