package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"parkgate/services/terminal/internal/checkout"
	"parkgate/services/terminal/internal/models"
	"parkgate/services/terminal/internal/receipt"
)

func newCheckpointCmd(rt *runtime) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Run the checkout console (employee)",
		Long: `Run the checkout console.

Requires an employee login. Look up a ticket, compare the plate with the subscription's
vehicles and close the stay. A subscriber whose plate does not match can be billed as a
visitor with "checkout --force".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := login(ctx, rt, creds, models.RoleEmployee); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			c := newCheckpointConsole(rt.app.NewCheckpoint(), rt.app.Renderer, cmd.InOrStdin(), out)
			c.help()
			return c.run(ctx)
		},
	}
	creds.bind(cmd)
	return cmd
}

func newCheckpointConsole(w *checkout.Workflow, renderer receipt.Renderer, in io.Reader, out io.Writer) *console {
	c := newConsole(in, out, "checkpoint> ")

	show := func() error {
		v := w.Snapshot()
		if v.Ticket == nil {
			fmt.Fprintln(out, "no ticket loaded")
			return nil
		}
		t := v.Ticket
		fmt.Fprintf(out, "ticket %s  %s  zone %s  gate %s  in %s\n",
			t.ID, t.Type, t.ZoneID, t.GateID, receipt.FormatTime(t.CheckinAt, renderer.Location))
		if t.CheckedOut() {
			fmt.Fprintf(out, "already checked out %s\n", receipt.FormatTime(*t.CheckoutAt, renderer.Location))
		}
		if v.Subscription != nil {
			if err := renderer.RenderSubscription(out, *v.Subscription); err != nil {
				return err
			}
			fmt.Fprintln(out, "verify the plate against the vehicles above")
		} else if t.Type == models.UserTypeSubscriber {
			fmt.Fprintln(out, "subscription not found, verify the vehicle manually")
		}
		return nil
	}

	c.handle("lookup", "lookup <ticket>       load a ticket", func(ctx context.Context, args []string) error {
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		if _, err := w.LookupTicket(ctx, id); err != nil {
			return err
		}
		return show()
	})
	c.handle("show", "show                  show the loaded ticket", func(context.Context, []string) error {
		return show()
	})
	c.handle("checkout", "checkout [--force]    close the stay (--force bills a subscriber as visitor)", func(ctx context.Context, args []string) error {
		force := len(args) > 0 && (args[0] == "--force" || args[0] == "-f")
		rc, err := w.Checkout(ctx, force)
		if err != nil {
			return err
		}
		return renderer.RenderReceipt(out, rc)
	})
	c.handle("reset", "reset                 start over", func(context.Context, []string) error {
		w.Reset()
		return nil
	})
	return c
}
