package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/iliyamo/ticketbooth/internal/availability"
	"github.com/iliyamo/ticketbooth/internal/booking"
	"github.com/iliyamo/ticketbooth/internal/model"
	"github.com/iliyamo/ticketbooth/internal/notify"
)

// commands lists the subcommands; newCLI attaches the shared hooks.
func commands(s *runner) []*cli.Command {
	return []*cli.Command{
		{
			Name:   "events",
			Usage:  "list events and their dates",
			Action: s.action(cmdEvents),
		},
		{
			Name:      "show",
			Usage:     "show an event date and its availability",
			ArgsUsage: "[date id]",
			Flags: []cli.Flag{
				&cli.Int64Flag{Name: "date", Usage: "event date `ID`"},
			},
			Action: s.action(cmdShow),
		},
		{
			Name:  "login",
			Usage: "log in and remember the session",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "email", Usage: "account email", Required: true},
				&cli.StringFlag{Name: "password", Usage: "account password", Required: true},
			},
			Action: s.action(cmdLogin),
		},
		{
			Name:  "signup",
			Usage: "create an account and log in",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "email", Usage: "account email", Required: true},
				&cli.StringFlag{Name: "password", Usage: "account password", Required: true},
				&cli.StringFlag{Name: "confirm", Usage: "repeat the password"},
				&cli.StringFlag{Name: "first", Usage: "first name", Required: true},
				&cli.StringFlag{Name: "last", Usage: "last name"},
			},
			Action: s.action(cmdSignUp),
		},
		{
			Name:   "logout",
			Usage:  "forget the stored session",
			Action: s.action(cmdLogout),
		},
		{
			Name:   "whoami",
			Usage:  "print the logged-in user",
			Action: s.action(cmdWhoAmI),
		},
		bookCommand(s),
		{
			Name:   "orders",
			Usage:  "list your orders",
			Action: s.action(cmdOrders),
		},
		{
			Name:      "order",
			Usage:     "show one order",
			ArgsUsage: "[order id]",
			Flags: []cli.Flag{
				&cli.Int64Flag{Name: "id", Usage: "order `ID`"},
			},
			Action: s.action(cmdOrder),
		},
		{
			Name:   "watch",
			Usage:  "print booking events from RabbitMQ",
			Action: s.action(cmdWatch),
		},
	}
}

// idArg reads an id from the named flag or the first positional argument.
func idArg(c *cli.Context, flag, what string) (int64, error) {
	if v := c.Int64(flag); v > 0 {
		return v, nil
	}
	if c.Args().Present() {
		id, err := strconv.ParseInt(c.Args().First(), 10, 64)
		if err == nil && id > 0 {
			return id, nil
		}
	}
	return 0, cli.Exit(fmt.Sprintf("%s: missing or invalid %s id", c.Command.Name, what), exitUsage)
}

func cmdEvents(c *cli.Context, a *app) error {
	events, err := a.client.Events(c.Context)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	printEvents(a.out, events)
	return nil
}

func cmdShow(c *cli.Context, a *app) error {
	id, err := idArg(c, "date", "event date")
	if err != nil {
		return err
	}
	occ, avail, err := availability.NewLoader(a.client, a.log).Fetch(c.Context, id)
	if err != nil {
		return loadError(id, err)
	}
	printOccurrence(a.out, occ)
	printAvailability(a.out, avail, nil)
	return nil
}

func loadError(id int64, err error) error {
	if availability.IsNotFound(err) {
		return fmt.Errorf("event date %d not found", id)
	}
	return fmt.Errorf("load event date %d: %w", id, err)
}

func cmdLogin(c *cli.Context, a *app) error {
	st, err := a.client.Login(c.Context, model.LoginRequest{Email: c.String("email"), Password: c.String("password")})
	if err != nil {
		return err
	}
	if err := a.store.Save(c.Context, st); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", model.IdentityOf(st).DisplayName())
	return nil
}

func cmdSignUp(c *cli.Context, a *app) error {
	req := model.SignUpRequest{
		Email:     c.String("email"),
		Password:  c.String("password"),
		FirstName: c.String("first"),
		LastName:  c.String("last"),
	}
	if confirm := c.String("confirm"); confirm != "" && confirm != req.Password {
		return errors.New("passwords do not match")
	}
	st, err := a.client.SignUp(c.Context, req)
	if err != nil {
		return err
	}
	if err := a.store.Save(c.Context, st); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s\n", model.IdentityOf(st).DisplayName())
	return nil
}

func cmdLogout(c *cli.Context, a *app) error {
	if err := a.store.Clear(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func cmdWhoAmI(_ *cli.Context, a *app) error {
	id, err := a.identity()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> (user %d)\n", id.DisplayName(), id.Email, id.UserID)
	return nil
}

// tierValue collects -tier id=quantity pairs; a bare id means one ticket.
type tierValue []model.TierLine

func (t *tierValue) String() string {
	parts := make([]string, len(*t))
	for i, l := range *t {
		parts[i] = fmt.Sprintf("%d=%d", l.TicketTypeID, l.Quantity)
	}
	return strings.Join(parts, ",")
}

func (t *tierValue) Set(v string) error {
	id, qty, ok := strings.Cut(v, "=")
	if !ok {
		qty = "1"
	}
	tid, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return fmt.Errorf("tier id %q: %w", id, err)
	}
	q, err := strconv.Atoi(strings.TrimSpace(qty))
	if err != nil {
		return fmt.Errorf("quantity %q: %w", qty, err)
	}
	*t = append(*t, model.TierLine{TicketTypeID: tid, Quantity: q})
	return nil
}

// uniqueIDs drops repeated ids, keeping first occurrence order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func bookCommand(s *runner) *cli.Command {
	tiers := &tierValue{}
	return &cli.Command{
		Name:      "book",
		Usage:     "book tickets for an event date",
		ArgsUsage: "[date id]",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "date", Usage: "event date `ID`"},
			&cli.StringFlag{Name: "name", Usage: "name printed on the tickets (default: your name)"},
			&cli.GenericFlag{Name: "tier", Value: tiers, Usage: "tier `ID=QTY` for general admission (repeatable)"},
			&cli.Int64SliceFlag{Name: "seat", Usage: "seat `ID` for seated events (repeatable or comma separated)"},
		},
		Action: s.action(func(c *cli.Context, a *app) error {
			return book(c, a, *tiers, uniqueIDs(c.Int64Slice("seat")))
		}),
	}
}

func book(c *cli.Context, a *app, tiers []model.TierLine, seats []int64) error {
	ctx := c.Context
	id, err := idArg(c, "date", "event date")
	if err != nil {
		return err
	}

	var orderID int64
	w, err := booking.Open(ctx, id, booking.Deps{
		API:       a.client,
		Session:   a.store,
		Builder:   a.builder,
		Navigator: booking.NavigatorFunc(func(oid int64) { orderID = oid }),
		Events:    a.events,
		Log:       a.log,
	})
	if err != nil {
		return loadError(id, err)
	}
	defer w.Close()

	for _, t := range tiers {
		got, err := w.SetTierQuantity(t.TicketTypeID, t.Quantity)
		if err != nil {
			return err
		}
		if got != t.Quantity {
			fmt.Fprintf(a.out, "Tier %d: only %d available\n", t.TicketTypeID, got)
		}
	}
	for _, seat := range seats {
		selected, err := w.ToggleSeat(seat)
		if err != nil {
			return err
		}
		if !selected {
			fmt.Fprintf(a.out, "Seat %d is not available\n", seat)
		}
	}
	if name := c.String("name"); name != "" {
		w.SetCustomerName(name)
	}

	fmt.Fprintf(a.out, "Total: %s\n", money(w.TotalPrice()))
	conf, err := w.Submit(ctx)
	var conflict *booking.ConflictError
	if errors.As(err, &conflict) {
		fmt.Fprintln(a.out, "Availability has changed:")
		printAvailability(a.out, w.Snapshot(), w.Selection())
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Booked order %d for %s\n", orderID, money(conf.TotalAmount))
	printIssued(a.out, conf.Tickets)
	return nil
}

func cmdOrders(c *cli.Context, a *app) error {
	id, err := a.identity()
	if err != nil {
		return err
	}
	orders, err := a.client.Orders(c.Context, id.UserID)
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}
	if len(orders) == 0 {
		fmt.Fprintln(a.out, "No orders yet.")
		return nil
	}
	for i, o := range orders {
		if i > 0 {
			fmt.Fprintln(a.out)
		}
		printOrder(a.out, o)
	}
	return nil
}

func cmdOrder(c *cli.Context, a *app) error {
	id, err := idArg(c, "id", "order")
	if err != nil {
		return err
	}
	if _, err := a.identity(); err != nil {
		return err
	}
	o, err := a.client.Order(c.Context, id)
	if err != nil {
		return fmt.Errorf("load order %d: %w", id, err)
	}
	printOrder(a.out, o)
	return nil
}

func cmdWatch(c *cli.Context, a *app) error {
	if a.cfg.RabbitURL == "" {
		return errors.New("watch needs RABBITMQ_URL")
	}
	err := notify.Consume(c.Context, a.cfg.RabbitURL, a.cfg.BookingExchange, a.log, func(d notify.Delivery) error {
		return printDelivery(a.out, d)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printDelivery(w io.Writer, d notify.Delivery) error {
	switch d.RoutingKey {
	case notify.KeyBookingConfirmed:
		var ev notify.BookingConfirmedEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s confirmed order %d: %d ticket(s) for %s, %s\n",
			ev.ConfirmedAt, ev.OrderID, ev.Tickets, ev.EventTitle, money(ev.TotalAmount))
	case notify.KeyBookingConflict:
		var ev notify.BookingConflictEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s conflict on %s (date %d): %s\n", ev.OccurredAt, ev.EventTitle, ev.EventDateID, ev.Reason)
	default:
		fmt.Fprintf(w, "%s %s\n", d.RoutingKey, d.Body)
	}
	return nil
}
