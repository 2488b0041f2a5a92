package receipt

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"parkgate/services/terminal/internal/models"
)

// Renderer writes tickets, receipts and zone cards as aligned plain text.
type Renderer struct {
	Currency string
	Location *time.Location
}

func newTab(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// RenderTicket prints the ticket issued at a gate.
func (r Renderer) RenderTicket(w io.Writer, ticket models.Ticket, gate models.Gate, zone models.Zone) error {
	tw := newTab(w)
	fmt.Fprintf(tw, "TICKET\t%s\n", ticket.ID)
	fmt.Fprintf(tw, "Type\t%s\n", ticket.Type)
	fmt.Fprintf(tw, "Gate\t%s\n", label(gate.Name, ticket.GateID))
	fmt.Fprintf(tw, "Zone\t%s\n", label(zone.Name, ticket.ZoneID))
	fmt.Fprintf(tw, "Check-in\t%s\n", FormatTime(ticket.CheckinAt, r.Location))
	if ticket.CheckoutAt != nil {
		fmt.Fprintf(tw, "Checkout\t%s\n", FormatTime(*ticket.CheckoutAt, r.Location))
	}
	return tw.Flush()
}

// RenderReceipt prints a checkout receipt. Billing segments keep the order they were
// received in.
func (r Renderer) RenderReceipt(w io.Writer, rc models.CheckoutReceipt) error {
	tw := newTab(w)
	fmt.Fprintf(tw, "RECEIPT\t%s\n", rc.TicketID)
	fmt.Fprintf(tw, "Check-in\t%s\n", FormatTime(rc.CheckinAt, r.Location))
	fmt.Fprintf(tw, "Checkout\t%s\n", FormatTime(rc.CheckoutAt, r.Location))
	fmt.Fprintf(tw, "Duration\t%s\n", FormatDuration(rc.DurationHours))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(rc.Breakdown) > 0 {
		fmt.Fprintln(w)
		tw = newTab(w)
		fmt.Fprintln(tw, "FROM\tTO\tHOURS\tMODE\tRATE\tAMOUNT")
		for _, seg := range rc.Breakdown {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\t%s\n",
				FormatTime(seg.From, r.Location),
				FormatTime(seg.To, r.Location),
				seg.Hours,
				seg.RateMode,
				FormatCurrency(seg.Rate, r.Currency),
				FormatCurrency(seg.Amount, r.Currency),
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	tw = newTab(w)
	fmt.Fprintf(tw, "TOTAL\t%s\n", FormatCurrency(rc.Amount, r.Currency))
	if rc.ZoneState.ID != "" {
		fmt.Fprintf(tw, "Zone now\t%s %d/%d occupied\n", label(rc.ZoneState.Name, rc.ZoneState.ID), rc.ZoneState.Occupied, rc.ZoneState.TotalSlots)
	}
	return tw.Flush()
}

// RenderZones prints one line per zone with the availability that applies to userType and
// a marker for zones the vehicle may enter.
func (r Renderer) RenderZones(w io.Writer, zs []models.Zone, userType models.UserType, eligible func(models.Zone) bool) error {
	tw := newTab(w)
	fmt.Fprintln(tw, "\tZONE\tNAME\tOCCUPIED\tFREE\tAVAILABLE\tRESERVED\tRATE\tSPECIAL\tSTATE")
	for _, z := range zs {
		mark := " "
		if eligible != nil && eligible(z) {
			mark = "*"
		}
		state := "open"
		if !z.Open {
			state = "closed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
			mark, z.ID, z.Name,
			z.Occupied, z.TotalSlots,
			z.Free,
			z.Available(userType),
			z.Reserved,
			FormatCurrency(z.RateNormal, r.Currency),
			FormatCurrency(z.RateSpecial, r.Currency),
			state,
		)
	}
	return tw.Flush()
}

// RenderSubscription prints a subscription card with its vehicles.
func (r Renderer) RenderSubscription(w io.Writer, sub models.Subscription) error {
	tw := newTab(w)
	fmt.Fprintf(tw, "SUBSCRIPTION\t%s\n", sub.ID)
	fmt.Fprintf(tw, "Holder\t%s\n", sub.UserName)
	fmt.Fprintf(tw, "Category\t%s\n", sub.Category)
	fmt.Fprintf(tw, "Active\t%t\n", sub.Active)
	plates := make([]string, 0, len(sub.Cars))
	for _, c := range sub.Cars {
		plates = append(plates, strings.TrimSpace(fmt.Sprintf("%s (%s %s %s)", c.Plate, c.Color, c.Brand, c.Model)))
	}
	if len(plates) > 0 {
		fmt.Fprintf(tw, "Vehicles\t%s\n", strings.Join(plates, ", "))
	}
	return tw.Flush()
}

func label(name, id string) string {
	if name == "" {
		return id
	}
	return fmt.Sprintf("%s (%s)", name, id)
}
