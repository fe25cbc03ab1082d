package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/trax/internal/engine"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/urfave/cli/v3"
)

// LedgerShow prints a user's record, resolving display names to IDs.
func (r *Runner) LedgerShow(ctx context.Context, cmd *cli.Command) error {
	return r.withEngine(cmd, func(eng *engine.Engine) error {
		id := cmd.String("user")

		user, err := eng.Lookup(id)
		if errors.Is(err, shared.ErrNotFound) {
			if resolved, rerr := eng.ResolveUser(id); rerr == nil {
				user, err = eng.Lookup(resolved)
			}
		}
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			return r.writeJSON(user, true)
		}

		r.writePlainHeader(fmt.Sprintf("User %s", user.ID))
		if user.DisplayName != "" {
			r.writePlain("Display name: %s\n", user.DisplayName)
		}
		r.writePlain("Balance: %d points\n", user.Balance)
		r.writePlain("Downloaded: %d | Purchased: %d | Spent: ₹%.2f\n",
			user.TotalDownloaded, user.TotalPurchased, user.TotalSpent)
		r.writePlain("Joined: %s\n", user.JoinedAt.Format(time.RFC3339))
		if user.LastGrantAt != nil {
			r.writePlain("Last grant: %s\n", user.LastGrantAt.Format(time.RFC3339))
		}
		return nil
	})
}

// LedgerGrant claims the periodic free grant on a user's behalf.
func (r *Runner) LedgerGrant(ctx context.Context, cmd *cli.Command) error {
	return r.withEngine(cmd, func(eng *engine.Engine) error {
		id := cmd.String("user")

		user, err := eng.ClaimDaily(id, "", time.Now())
		if err != nil {
			var wait *shared.GrantWaitError
			if errors.As(err, &wait) {
				return r.writePlain("Grant not available yet; %s remaining\n", wait.Remaining.Round(time.Minute))
			}
			return err
		}

		r.writePlain("✓ Granted %d point(s) to %s; balance is now %d\n",
			eng.Economy().GrantAmount, id, user.Balance)
		return nil
	})
}

// LedgerCredit credits purchased points, mirroring a payment approval.
func (r *Runner) LedgerCredit(ctx context.Context, cmd *cli.Command) error {
	return r.withEngine(cmd, func(eng *engine.Engine) error {
		id := cmd.String("user")
		points := int(cmd.Int("points"))

		user, err := eng.ApprovePurchase(id, points)
		if err != nil {
			return err
		}

		r.writePlain("✓ Credited %d point(s) to %s; balance is now %d\n", points, id, user.Balance)
		return nil
	})
}

// LedgerHistory prints a user's journal entries, newest first.
func (r *Runner) LedgerHistory(ctx context.Context, cmd *cli.Command) error {
	return r.withEngine(cmd, func(eng *engine.Engine) error {
		id := cmd.String("user")
		limit := int(cmd.Int("limit"))

		entries, err := eng.History(id, limit)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			return r.writeJSON(entries, true)
		}

		r.writePlainHeader(fmt.Sprintf("History for %s (%d entries)", id, len(entries)))
		for _, entry := range entries {
			line := fmt.Sprintf("%s  %-8s  %+d points",
				entry.CreatedAt.Format(time.RFC3339), entry.Kind, entry.Points)
			if entry.Amount != 0 {
				line += fmt.Sprintf("  ₹%.2f", entry.Amount)
			}
			r.writePlain("%s\n", line)
		}
		return nil
	})
}
