package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"agenda/config"
	"agenda/internal/domain"
	"agenda/internal/ics"
	"agenda/internal/scheduler"
	"agenda/internal/service"
	"agenda/internal/storage"
	"agenda/internal/store"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "agenda",
		Usage: "Personal schedule manager with recurring events.",
		Commands: []*cli.Command{
			addCommand(),
			listCommand(),
			searchCommand(),
			doneCommand(),
			editCommand(),
			rmCommand(),
			statsCommand(),
			exportCommand(),
			importCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// appState bundles everything a command needs. Close releases the
// underlying database.
type appState struct {
	cfg      *config.Config
	store    *store.Store
	events   *service.EventService
	transfer *service.TransferService
}

func openApp() (*appState, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	backend, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	st, err := store.Open(backend)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("load events: %w", err)
	}

	return &appState{
		cfg:      cfg,
		store:    st,
		events:   service.NewEventService(st),
		transfer: service.NewTransferService(st),
	}, nil
}

func (a *appState) Close() {
	if err := a.store.Close(); err != nil {
		log.Printf("close store: %v", err)
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add an event. Omit --date for an unscheduled item.",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Usage: "Event date (YYYY-MM-DD)."},
			&cli.StringFlag{Name: "time", Usage: "Event time (HH:MM)."},
			&cli.StringFlag{Name: "category", Value: "personal", Usage: "personal, work, sideWork, social or love."},
			&cli.StringFlag{Name: "details", Usage: "Free-form notes."},
			&cli.StringFlag{Name: "repeat", Usage: "Repeat rule: daily, weekly, monthly or yearly."},
			&cli.StringFlag{Name: "until", Usage: "Last date of the repeat series (YYYY-MM-DD)."},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("title is required")
			}

			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			req := service.CreateRequest{
				Event: domain.Event{
					Title:    c.Args().First(),
					Date:     c.String("date"),
					Time:     c.String("time"),
					Category: domain.Category(c.String("category")),
					Details:  c.String("details"),
				},
			}
			if r := c.String("repeat"); r != "" {
				req.Repeat = true
				req.RepeatType = domain.RepeatType(r)
				req.RepeatEnd = c.String("until")
			}

			created, err := app.events.Create(req)
			if err != nil {
				return err
			}

			if len(created) == 1 {
				fmt.Printf("Added event %d: %s\n", created[0].ID, created[0].Title)
			} else {
				fmt.Printf("Added %d events (series %d): %s\n",
					len(created), created[0].RepeatID, created[0].Title)
			}
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List events. Default shows everything pending.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "today", Usage: "Only today's events."},
			&cli.BoolFlag{Name: "week", Usage: "Only this week's events."},
			&cli.BoolFlag{Name: "month", Usage: "Only this month's events."},
			&cli.StringFlag{Name: "date", Usage: "Only events on this date (YYYY-MM-DD)."},
			&cli.StringFlag{Name: "category", Usage: "Only events in this category."},
			&cli.BoolFlag{Name: "completed", Usage: "Only completed events."},
			&cli.BoolFlag{Name: "unscheduled", Usage: "Only events without a date."},
			&cli.BoolFlag{Name: "all", Usage: "Include completed events."},
		},
		Action: func(c *cli.Context) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			var events []*domain.Event
			switch {
			case c.Bool("today"):
				events = app.store.TodayEvents()
			case c.Bool("week"):
				events = app.store.WeekEvents()
			case c.Bool("month"):
				events = app.store.MonthEvents()
			case c.String("date") != "":
				events = app.store.EventsByDate(c.String("date"))
			case c.String("category") != "":
				events = app.store.EventsByCategory(domain.Category(c.String("category")))
			case c.Bool("completed"):
				events = app.store.Completed()
			case c.Bool("unscheduled"):
				events = app.store.Unscheduled()
			case c.Bool("all"):
				events = app.store.All()
			default:
				events = app.store.Pending()
			}

			printEvents(events)
			return nil
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search event titles and details.",
		ArgsUsage: "<query>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("query is required")
			}

			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			printEvents(app.store.Search(c.Args().First()))
			return nil
		},
	}
}

func doneCommand() *cli.Command {
	return &cli.Command{
		Name:      "done",
		Usage:     "Mark an event completed.",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "undo", Usage: "Mark the event pending again."},
		},
		Action: func(c *cli.Context) error {
			id, err := argID(c)
			if err != nil {
				return err
			}

			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ev, err := app.events.SetCompleted(id, !c.Bool("undo"))
			if err != nil {
				return err
			}

			state := "completed"
			if c.Bool("undo") {
				state = "pending"
			}
			fmt.Printf("Event %d (%s) is now %s\n", ev.ID, ev.Title, state)
			return nil
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit an event. For series instances pick --scope.",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "scope", Value: "single", Usage: "single or future."},
			&cli.StringFlag{Name: "title"},
			&cli.StringFlag{Name: "date"},
			&cli.StringFlag{Name: "time"},
			&cli.StringFlag{Name: "category"},
			&cli.StringFlag{Name: "details"},
			&cli.StringFlag{Name: "repeat", Usage: "New repeat rule for future-scope edits."},
			&cli.StringFlag{Name: "until", Usage: "New series end for future-scope edits."},
		},
		Action: func(c *cli.Context) error {
			id, err := argID(c)
			if err != nil {
				return err
			}
			scope, err := parseScope(c.String("scope"), false)
			if err != nil {
				return err
			}

			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			req := service.EditRequest{
				EventID:   id,
				Scope:     scope,
				Fields:    patchFromFlags(c),
				RepeatEnd: c.String("until"),
			}
			if r := c.String("repeat"); r != "" {
				req.RepeatType = domain.RepeatType(r)
			}

			res, err := app.events.Edit(req)
			if err != nil {
				return err
			}

			switch {
			case res.Updated != nil:
				fmt.Printf("Updated event %d\n", res.Updated.ID)
			case res.Detached != nil:
				fmt.Printf("Detached event %d from its series\n", res.Detached.ID)
			default:
				fmt.Printf("Rebuilt series %d with %d events\n", res.NewRepeatID, len(res.NewSeries))
			}
			return nil
		},
	}
}

func rmCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete an event. For series instances pick --scope.",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "scope", Value: "single", Usage: "single, future or all."},
		},
		Action: func(c *cli.Context) error {
			id, err := argID(c)
			if err != nil {
				return err
			}
			scope, err := parseScope(c.String("scope"), true)
			if err != nil {
				return err
			}

			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.events.Delete(service.DeleteRequest{EventID: id, Scope: scope})
			if err != nil {
				return err
			}

			fmt.Printf("Deleted %d event(s)\n", res.DeletedCount)
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show collection statistics.",
		Action: func(c *cli.Context) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			st := app.store.Stats()
			fmt.Printf("Total:       %d\n", st.Total)
			fmt.Printf("Completed:   %d\n", st.Completed)
			fmt.Printf("Pending:     %d\n", st.Pending)
			fmt.Printf("Unscheduled: %d\n", st.Unscheduled)
			fmt.Printf("Repeating:   %d\n", st.Repeat)
			fmt.Printf("Done rate:   %d%%\n", st.CompletionRate)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export all events.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: "json", Usage: "json or ics."},
			&cli.StringFlag{Name: "out", Usage: "Output file. Defaults to stdout."},
		},
		Action: func(c *cli.Context) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			var data []byte
			switch c.String("format") {
			case "json":
				data, err = app.transfer.ExportJSON()
			case "ics":
				data, err = ics.ExportICS(app.store.All())
			default:
				return fmt.Errorf("unknown format %q", c.String("format"))
			}
			if err != nil {
				return err
			}

			if out := c.String("out"); out != "" {
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Printf("Exported %d events to %s\n", app.store.Stats().Total, out)
				return nil
			}

			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import events from a file. Previews unless --apply is set.",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: "json", Usage: "json or ics."},
			&cli.BoolFlag{Name: "apply", Usage: "Write the non-conflicting events."},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("file is required")
			}

			data, err := os.ReadFile(c.Args().First())
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}

			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			switch c.String("format") {
			case "json":
				return importJSON(app, data, c.Bool("apply"))
			case "ics":
				return importICS(app, data, c.Bool("apply"))
			}
			return fmt.Errorf("unknown format %q", c.String("format"))
		},
	}
}

func importJSON(app *appState, data []byte, apply bool) error {
	plan, err := app.transfer.PreviewImport(data)
	if err != nil {
		return err
	}

	printPlan(plan)
	if !apply {
		fmt.Println("\nDry run. Re-run with --apply to import.")
		return nil
	}

	report := app.transfer.ExecuteImport(plan.EventsToImport)
	fmt.Printf("\nImported %d, skipped %d\n", len(report.Imported), len(report.Skipped))
	for _, sk := range report.Skipped {
		fmt.Printf("  skipped %q: %s\n", sk.Event.Title, sk.Error)
	}
	return nil
}

func importICS(app *appState, data []byte, apply bool) error {
	parsed, err := ics.ParseICS(data)
	if err != nil {
		return err
	}

	plan := app.transfer.Plan(eventPtrs(parsed.Singles))
	printPlan(plan)
	fmt.Printf("Recurring series:  %d\n", len(parsed.Series))

	if !apply {
		fmt.Println("\nDry run. Re-run with --apply to import.")
		return nil
	}

	report := app.transfer.ExecuteImport(plan.EventsToImport)
	imported := len(report.Imported)

	for _, s := range parsed.Series {
		created, err := app.events.Create(service.CreateRequest{
			Event:      s.Base,
			Repeat:     true,
			RepeatType: s.RepeatType,
			RepeatEnd:  s.EndDate,
		})
		if err != nil {
			fmt.Printf("  skipped series %q: %v\n", s.Base.Title, err)
			continue
		}
		imported += len(created)
	}

	fmt.Printf("\nImported %d, skipped %d\n", imported, len(report.Skipped))
	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the daily digest daemon.",
		Action: func(c *cli.Context) error {
			log.SetFlags(log.LstdFlags | log.Lshortfile)

			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			sched := scheduler.New(app.cfg, app.events)
			sched.SetSender(stdoutSender{})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go func() {
				if err := sched.Start(ctx); err != nil {
					log.Printf("Scheduler error: %v", err)
				}
			}()

			log.Println("Agenda daemon started")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			log.Println("Shutting down...")
			cancel()
			sched.Stop()
			return nil
		},
	}
}

type stdoutSender struct{}

func (stdoutSender) Send(text string) error {
	_, err := fmt.Println(text)
	return err
}

func argID(c *cli.Context) (int64, error) {
	if c.NArg() == 0 {
		return 0, fmt.Errorf("event id is required")
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid event id %q", c.Args().First())
	}
	return id, nil
}

func parseScope(s string, allowAll bool) (service.Scope, error) {
	switch service.Scope(s) {
	case service.ScopeSingle:
		return service.ScopeSingle, nil
	case service.ScopeFuture:
		return service.ScopeFuture, nil
	case service.ScopeAll:
		if allowAll {
			return service.ScopeAll, nil
		}
	}
	return "", fmt.Errorf("invalid scope %q", s)
}

func patchFromFlags(c *cli.Context) store.Patch {
	var p store.Patch
	if c.IsSet("title") {
		v := c.String("title")
		p.Title = &v
	}
	if c.IsSet("date") {
		v := c.String("date")
		p.Date = &v
	}
	if c.IsSet("time") {
		v := c.String("time")
		p.Time = &v
	}
	if c.IsSet("category") {
		v := domain.Category(c.String("category"))
		p.Category = &v
	}
	if c.IsSet("details") {
		v := c.String("details")
		p.Details = &v
	}
	return p
}

func printEvents(events []*domain.Event) {
	if len(events) == 0 {
		fmt.Println("No events.")
		return
	}

	sorted := make([]*domain.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].Time < sorted[j].Time
	})

	for _, ev := range sorted {
		fmt.Println(formatEvent(ev))
	}
}

func formatEvent(ev *domain.Event) string {
	mark := " "
	if ev.Completed {
		mark = "x"
	}

	when := "unscheduled"
	if ev.Date != "" {
		when = ev.Date
		if ev.Time != "" {
			when += " " + ev.Time
		}
	}

	line := fmt.Sprintf("[%s] %4d  %-16s  %s (%s)", mark, ev.ID, when, ev.Title, ev.Category)
	if ev.InSeries() {
		line += fmt.Sprintf(" [series %d]", ev.RepeatID)
	}
	return line
}

func printPlan(plan *service.ImportPlan) {
	fmt.Printf("Events in file:    %d\n", plan.Total)
	fmt.Printf("Ready to import:   %d\n", len(plan.EventsToImport))
	fmt.Printf("Conflicts skipped: %d\n", len(plan.Conflicts))
	for _, cf := range plan.Conflicts {
		fmt.Printf("  conflict: %q on %s (existing id %d)\n",
			cf.Imported.Title, cf.Imported.Date, cf.Existing.ID)
	}
}

func eventPtrs(events []domain.Event) []*domain.Event {
	out := make([]*domain.Event, len(events))
	for i := range events {
		out[i] = &events[i]
	}
	return out
}
