package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/iliyamo/ticketbooth/internal/model"
	"github.com/iliyamo/ticketbooth/internal/selection"
)

func money(v float64) string { return fmt.Sprintf("$%.2f", v) }

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printEvents(w io.Writer, events []model.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "DATE ID\tEVENT\tWHEN\tVENUE\tMODE")
	for _, ev := range events {
		for _, d := range ev.Dates {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", d.ID, ev.Title, d.Date, d.VenueName, d.SeatingMode)
		}
	}
	tw.Flush()
}

func printOccurrence(w io.Writer, occ model.EventOccurrence) {
	fmt.Fprintf(w, "%s\n", occ.Event.Title)
	if occ.Event.Description != "" {
		fmt.Fprintf(w, "%s\n", occ.Event.Description)
	}
	when := occ.Date
	if t, err := occ.StartsAt(); err == nil {
		when = t.Format("Mon 2 Jan 2006 15:04")
	}
	fmt.Fprintf(w, "%s at %s (capacity %d)\n\n", when, occ.Venue.Name, occ.Venue.Capacity)
}

// printAvailability renders a snapshot; sel marks what is currently
// selected and may be nil.
func printAvailability(w io.Writer, avail model.Availability, sel selection.Selection) {
	tw := table(w)
	switch a := avail.(type) {
	case *model.GeneralAdmission:
		tq, _ := sel.(*selection.TierQuantities)
		fmt.Fprintln(tw, "TIER ID\tTIER\tPRICE\tREMAINING\tSELECTED")
		for _, t := range a.Tiers {
			picked := 0
			if tq != nil {
				picked = tq.Quantity(t.ID)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", t.ID, t.Name, money(t.Price), t.Remaining, picked)
		}
	case *model.SeatedAvailability:
		ss, _ := sel.(*selection.SeatSet)
		fmt.Fprintln(tw, "SEAT ID\tSECTION\tSEAT\tTIER\tPRICE\tSTATUS")
		for _, sec := range a.Sections {
			for _, row := range sec.Rows {
				for _, seat := range row.Seats {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
						seat.SeatID, sec.Section, seat.Label, seat.TicketType, money(seat.Price), seatStatus(seat, ss))
				}
			}
		}
	}
	tw.Flush()
}

func seatStatus(seat model.Seat, ss *selection.SeatSet) string {
	selected := ss != nil && ss.Has(seat.SeatID)
	switch {
	case selected && !seat.Available:
		return "taken (selected)"
	case selected:
		return "selected"
	case !seat.Available:
		return "taken"
	default:
		return "available"
	}
}

func printIssued(w io.Writer, tickets []model.IssuedTicket) {
	tw := table(w)
	fmt.Fprintln(tw, "TICKET\tTIER\tSEAT\tNAME")
	for _, t := range tickets {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.ID, t.TicketType, label(t.SeatLabel), t.ToName)
	}
	tw.Flush()
}

func printOrder(w io.Writer, o model.Order) {
	fmt.Fprintf(w, "Order %d  %s  %s  %s\n", o.ID, o.CreatedAt, o.CustomerName, money(o.TotalAmount))
	tw := table(w)
	for _, t := range o.Tickets {
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\n", t.ID, t.EventTitle, t.EventDate, t.TicketType, label(t.SeatLabel))
	}
	tw.Flush()
}

func label(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
