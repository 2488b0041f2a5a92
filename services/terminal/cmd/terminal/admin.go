package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"parkgate/services/terminal/internal/admin"
	"parkgate/services/terminal/internal/app"
	"parkgate/services/terminal/internal/apperr"
	"parkgate/services/terminal/internal/http/handlers"
	"parkgate/services/terminal/internal/models"
	"parkgate/services/terminal/internal/receipt"
)

func newAdminCmd(rt *runtime) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Run the admin console (admin)",
		Long: `Run the admin console.

Requires an admin login. Shows the occupancy report, opens and closes zones, edits category
rates and adds rush hours and vacations. Admin actions pushed by the authority are kept in
the audit feed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := login(ctx, rt, creds, models.RoleAdmin); err != nil {
				return err
			}
			desk, channel := rt.app.NewAdminConsole()
			if err := desk.Load(ctx); err != nil {
				return err
			}
			desk.Start(ctx)
			defer desk.Stop()

			go func() {
				if err := rt.app.ServeStatus(ctx, func() handlers.Status {
					return app.ChannelStatus("admin", channel)
				}); err != nil {
					rt.logger.Warn("status endpoint stopped", zap.Error(err))
				}
			}()

			c := newAdminConsole(desk, rt.app.Renderer, cmd.InOrStdin(), cmd.OutOrStdout())
			c.help()
			return c.run(ctx)
		},
	}
	creds.bind(cmd)
	return cmd
}

func newAdminConsole(a *admin.Console, renderer receipt.Renderer, in io.Reader, out io.Writer) *console {
	c := newConsole(in, out, "admin> ")
	money := func(v float64) string { return receipt.FormatCurrency(v, renderer.Currency) }

	c.handle("report", "report                occupancy per zone", func(ctx context.Context, args []string) error {
		if len(args) > 0 && args[0] == "--reload" {
			if err := a.Load(ctx); err != nil {
				return err
			}
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ZONE\tNAME\tOCCUPIED\tFREE\tRESERVED\tVISITORS\tSUBSCRIBERS\tSUBS\tSTATE")
		for _, r := range a.Report() {
			state := "open"
			if !r.Open {
				state = "closed"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
				r.ZoneID, r.Name, r.Occupied, r.TotalSlots, r.Free, r.Reserved,
				r.AvailableForVisitors, r.AvailableForSubscribers, r.SubscriberCount, state)
		}
		return tw.Flush()
	})
	c.handle("categories", "categories            list categories and rates", func(context.Context, []string) error {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tNAME\tNORMAL\tSPECIAL")
		for _, cat := range a.Categories() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cat.ID, cat.Name, money(cat.RateNormal), money(cat.RateSpecial))
		}
		return tw.Flush()
	})
	c.handle("subs", "subs                  list subscriptions", func(context.Context, []string) error {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SUBSCRIPTION\tHOLDER\tCATEGORY\tACTIVE\tCARS\tOPEN")
		for _, s := range a.Subscriptions() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\t%d\n", s.ID, s.UserName, s.Category, s.Active, len(s.Cars), len(s.CurrentCheckins))
		}
		return tw.Flush()
	})
	c.handle("toggle", "toggle <zone>         open or close a zone", func(ctx context.Context, args []string) error {
		if err := needArgs("toggle <zone>", args, 1); err != nil {
			return err
		}
		open, err := a.ToggleZone(ctx, args[0])
		if err != nil {
			return err
		}
		if open {
			fmt.Fprintf(out, "zone %s opened\n", args[0])
		} else {
			fmt.Fprintf(out, "zone %s closed\n", args[0])
		}
		return nil
	})
	c.handle("rates", "rates <category> <normal> <special>", func(ctx context.Context, args []string) error {
		const usage = "rates <category> <normal> <special>"
		if err := needArgs(usage, args, 3); err != nil {
			return err
		}
		normal, err1 := strconv.ParseFloat(args[1], 64)
		special, err2 := strconv.ParseFloat(args[2], 64)
		if err1 != nil || err2 != nil {
			return apperr.Validation("console", "rates must be numbers")
		}
		if err := a.UpdateCategoryRates(ctx, args[0], models.CategoryRates{RateNormal: normal, RateSpecial: special}); err != nil {
			return err
		}
		fmt.Fprintf(out, "category %s: %s / %s\n", args[0], money(normal), money(special))
		return nil
	})
	c.handle("rush", "rush <weekday 0-6> <HH:MM> <HH:MM>", func(ctx context.Context, args []string) error {
		const usage = "rush <weekday 0-6> <HH:MM> <HH:MM>"
		if err := needArgs(usage, args, 3); err != nil {
			return err
		}
		day, err := strconv.Atoi(args[0])
		if err != nil {
			return apperr.Validation("console", "usage: "+usage)
		}
		rush, err := a.AddRushHour(ctx, models.RushHour{WeekDay: day, From: args[1], To: args[2]})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "rush hour %s added\n", rush.ID)
		return nil
	})
	c.handle("vacation", "vacation <from YYYY-MM-DD> <to YYYY-MM-DD> <name...>", func(ctx context.Context, args []string) error {
		if err := needArgs("vacation <from> <to> <name...>", args, 3); err != nil {
			return err
		}
		v, err := a.AddVacation(ctx, models.Vacation{From: args[0], To: args[1], Name: strings.Join(args[2:], " ")})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "vacation %s added\n", v.ID)
		return nil
	})
	c.handle("audit", "audit [n]             recent admin actions, newest first", func(ctx context.Context, args []string) error {
		n := 10
		if len(args) > 0 {
			parsed, err := strconv.Atoi(args[0])
			if err != nil || parsed <= 0 {
				return apperr.Validation("console", "usage: audit [n]")
			}
			n = parsed
		}
		entries, err := a.AuditLog(ctx, n)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "no admin actions yet")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tADMIN\tACTION\tTARGET")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\n",
				receipt.FormatTime(e.Timestamp, renderer.Location), e.AdminID, e.Action, e.TargetType, e.TargetID)
		}
		return tw.Flush()
	})
	c.handle("clear-audit", "clear-audit           empty the audit feed", func(ctx context.Context, _ []string) error {
		return a.ClearAuditLog(ctx)
	})
	return c
}
