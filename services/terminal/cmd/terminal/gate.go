package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"parkgate/services/terminal/internal/app"
	"parkgate/services/terminal/internal/checkin"
	"parkgate/services/terminal/internal/gateview"
	"parkgate/services/terminal/internal/http/handlers"
	"parkgate/services/terminal/internal/models"
)

func newGateCmd(rt *runtime) *cobra.Command {
	var gateID string
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Run the check-in console of one gate",
		Long: `Run the check-in console of one gate.

Zone availability is loaded over REST and kept current through the push channel.
Visitors pick a zone directly; subscribers are verified first.

Example:
  terminal gate --gate gate_1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGate(cmd.Context(), rt, gateID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&gateID, "gate", "g", "", "gate id to serve")
	_ = cmd.MarkFlagRequired("gate")
	return cmd
}

func runGate(ctx context.Context, rt *runtime, gateID string, in io.Reader, out io.Writer) error {
	gate := rt.app.NewGate(gateID, gateview.Hooks{
		ConnectionChanged: func(up bool) {
			if up {
				fmt.Fprintln(out, "\n* live updates restored")
			} else {
				fmt.Fprintln(out, "\n* live updates lost, availability may be stale")
			}
		},
	})

	descriptor, err := gate.View.Open(ctx, gateID)
	if err != nil {
		return err
	}
	defer gate.View.Close()

	go func() {
		err := rt.app.ServeStatus(ctx, func() handlers.Status {
			s := app.ChannelStatus("gate", gate.Channel)
			s.Zones = gate.View.Zones()
			return s
		})
		if err != nil {
			rt.logger.Warn("status endpoint stopped", zap.Error(err))
		}
	}()

	fmt.Fprintf(out, "Gate %s (%s) %s\n", descriptor.Name, descriptor.ID, descriptor.Location)
	if err := gate.Workflow.SetTab(models.UserTypeVisitor); err != nil {
		return err
	}
	c := newGateConsole(rt, gate, descriptor, in, out)
	c.help()
	return c.run(ctx)
}

func newGateConsole(rt *runtime, gate *app.Gate, descriptor models.Gate, in io.Reader, out io.Writer) *console {
	w := gate.Workflow
	renderer := rt.app.Renderer
	c := newConsole(in, out, fmt.Sprintf("%s> ", descriptor.ID))

	showZones := func() error {
		selectable := map[string]bool{}
		for _, z := range w.SelectableZones() {
			selectable[z.ID] = true
		}
		eligible := func(z models.Zone) bool { return selectable[z.ID] }
		return renderer.RenderZones(out, gate.View.Zones(), w.Snapshot().Tab, eligible)
	}

	c.handle("zones", "zones                 list zones (* = selectable)", func(context.Context, []string) error {
		return showZones()
	})
	c.handle("tab", "tab visitor|subscriber  switch form", func(_ context.Context, args []string) error {
		if err := needArgs("tab visitor|subscriber", args, 1); err != nil {
			return err
		}
		if err := w.SetTab(models.UserType(args[0])); err != nil {
			return err
		}
		fmt.Fprintf(out, "tab: %s\n", args[0])
		return nil
	})
	c.handle("verify", "verify <subscription>  verify a subscriber", func(ctx context.Context, args []string) error {
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		sub, err := w.VerifySubscription(ctx, id)
		if err != nil {
			return err
		}
		return renderer.RenderSubscription(out, sub)
	})
	c.handle("select", "select <zone>         choose the target zone", func(_ context.Context, args []string) error {
		if err := needArgs("select <zone>", args, 1); err != nil {
			return err
		}
		if !w.SelectZone(args[0]) {
			fmt.Fprintf(out, "zone %s is not selectable\n", args[0])
			return nil
		}
		fmt.Fprintf(out, "selected %s\n", args[0])
		return nil
	})
	c.handle("clear", "clear                 drop the selected zone", func(context.Context, []string) error {
		w.ClearSelection()
		return nil
	})
	c.handle("submit", "submit                request the ticket", func(ctx context.Context, _ []string) error {
		ticket, err := w.Submit(ctx)
		if err != nil {
			return err
		}
		zone, _ := gate.Store.Zone(ticket.ZoneID)
		return renderer.RenderTicket(out, ticket, descriptor, zone)
	})
	c.handle("ack", "ack                   close the issued ticket", func(context.Context, []string) error {
		w.Acknowledge()
		return nil
	})
	c.handle("refresh", "refresh               reload zones over REST", func(ctx context.Context, _ []string) error {
		if err := gate.View.RefreshSnapshot(ctx); err != nil {
			return err
		}
		return showZones()
	})
	c.handle("state", "state                 show workflow state", func(context.Context, []string) error {
		printGateState(out, w.Snapshot(), gate.View.Live())
		return nil
	})
	return c
}

func printGateState(out io.Writer, v checkin.View, live bool) {
	fmt.Fprintf(out, "state=%s tab=%s live=%t", v.State, v.Tab, live)
	if v.SelectedZone != "" {
		fmt.Fprintf(out, " zone=%s", v.SelectedZone)
	}
	if v.Subscription != nil {
		fmt.Fprintf(out, " subscription=%s", v.Subscription.ID)
	}
	if v.Ticket != nil {
		fmt.Fprintf(out, " ticket=%s", v.Ticket.ID)
	}
	fmt.Fprintln(out)
	if v.LastError != nil {
		fmt.Fprintf(out, "last error: %v\n", v.LastError)
	}
}
