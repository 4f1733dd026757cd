package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cyp0633/wincal/calendar"
	"github.com/cyp0633/wincal/recurrence"
	"github.com/cyp0633/wincal/service"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

const timeLayout = "Mon 2006-01-02 15:04"

func newAddCmd(a *app) *cobra.Command {
	var (
		start, end, rule, category, location, notes string
		duration                                    time.Duration
		exdates                                     []string
		allDay                                      bool
		rf                                          ruleFlags
	)

	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Add an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if start == "" {
				return fmt.Errorf("--start is required")
			}
			s, err := a.parseTime("start", start, time.Time{})
			if err != nil {
				return err
			}
			e, err := a.parseTime("end", end, s.Add(duration))
			if err != nil {
				return err
			}
			exceptions, err := a.parseTimes("exdate", exdates)
			if err != nil {
				return err
			}
			if rule != "" && rf.freq != "" {
				return fmt.Errorf("--rule and --freq are mutually exclusive")
			}
			if rule != "" && recurrence.ParseRule(rule, a.location()).IsAbsent() {
				return fmt.Errorf("invalid --rule %q: FREQ is required", rule)
			}
			if rf.freq != "" {
				if rule, err = a.buildRule(rf); err != nil {
					return err
				}
			}

			ev, err := a.service.AddEvent(cmd.Context(), calendar.Event{
				Title:                args[0],
				Start:                s,
				End:                  e,
				AllDay:               allDay,
				Category:             category,
				Location:             location,
				Notes:                notes,
				RecurrenceRule:       rule,
				RecurrenceExceptions: exceptions,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ev.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start date or date-time")
	cmd.Flags().StringVar(&end, "end", "", "end date or date-time (default: start + --duration)")
	cmd.Flags().DurationVar(&duration, "duration", time.Hour, "length when --end is not given")
	cmd.Flags().StringVar(&rule, "rule", "", "recurrence rule, e.g. FREQ=WEEKLY;BYDAY=MO,WE")
	cmd.Flags().StringSliceVar(&exdates, "exdate", nil, "dates or instants to exclude from the series")
	cmd.Flags().StringVar(&category, "category", "", "category (default from config)")
	cmd.Flags().StringVar(&location, "location", "", "location")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	cmd.Flags().BoolVar(&allDay, "all-day", false, "mark as an all-day event")

	cmd.Flags().StringVar(&rf.freq, "freq", "", "build the rule: none, daily, weekly, monthly or yearly")
	cmd.Flags().IntVar(&rf.interval, "interval", 1, "with --freq: repeat every N periods")
	cmd.Flags().IntVar(&rf.count, "count", 0, "with --freq: number of occurrences")
	cmd.Flags().StringVar(&rf.until, "until", "", "with --freq: last date, ignored when --count is set")
	cmd.Flags().StringSliceVar(&rf.byDay, "byday", nil, "with --freq weekly: day codes, e.g. MO,WE")
	cmd.Flags().IntSliceVar(&rf.byMonthDay, "bymonthday", nil, "with --freq monthly: days of the month")
	return cmd
}

// ruleFlags are the editor-style recurrence choices of add.
type ruleFlags struct {
	freq       string
	interval   int
	count      int
	until      string
	byDay      []string
	byMonthDay []int
}

// buildRule turns ruleFlags into a rule string. Frequency "none" yields an
// empty rule.
func (a *app) buildRule(f ruleFlags) (string, error) {
	b := recurrence.Builder{
		Frequency:  f.freq,
		Interval:   f.interval,
		Count:      f.count,
		ByMonthDay: f.byMonthDay,
	}

	switch recurrence.Frequency(strings.ToUpper(strings.TrimSpace(f.freq))) {
	case "NONE", recurrence.Daily, recurrence.Weekly, recurrence.Monthly, recurrence.Yearly:
	default:
		return "", fmt.Errorf("invalid --freq %q", f.freq)
	}

	if f.until != "" {
		until, err := a.parseTime("until", f.until, time.Time{})
		if err != nil {
			return "", err
		}
		b.Until = mo.Some(until)
	}
	for _, code := range f.byDay {
		d, ok := recurrence.ParseWeekday(code)
		if !ok {
			return "", fmt.Errorf("invalid --byday %q", code)
		}
		b.ByDay = append(b.ByDay, d)
	}

	return b.Build().OrElse(""), nil
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid event ID %q: %w", args[0], err)
			}
			return a.service.DeleteEvent(cmd.Context(), id)
		},
	}
}

func newAgendaCmd(a *app) *cobra.Command {
	var from, to string
	var days int

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "List occurrences in a date range, recurring events expanded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now().In(a.location())
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

			f, err := a.parseTime("from", from, today)
			if err != nil {
				return err
			}
			t, err := a.parseTime("to", to, f.AddDate(0, 0, days).Add(-time.Second))
			if err != nil {
				return err
			}

			occs, err := a.service.Occurrences(cmd.Context(), f, t)
			if err != nil {
				return err
			}
			printOccurrences(cmd.OutOrStdout(), occs, a.location())
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "range start (default: today)")
	cmd.Flags().StringVar(&to, "to", "", "range end, inclusive (default: --from + --days)")
	cmd.Flags().IntVar(&days, "days", 7, "range length when --to is not given")
	return cmd
}

func printOccurrences(w io.Writer, occs []service.Occurrence, loc *time.Location) {
	if len(occs) == 0 {
		fmt.Fprintln(w, "No events.")
		return
	}
	for _, occ := range occs {
		when := occ.Start.In(loc).Format(timeLayout) + " - " + occ.End.In(loc).Format("15:04")
		if occ.Event.AllDay {
			when = occ.Start.In(loc).Format("Mon 2006-01-02") + " all day"
		}
		line := fmt.Sprintf("%s  %s [%s]", when, occ.Event.Title, occ.Event.Category)
		if occ.Event.Location != "" {
			line += " @ " + occ.Event.Location
		}
		fmt.Fprintln(w, line)
	}
}

func newExpandCmd(a *app) *cobra.Command {
	var start, rule, from, to string
	var exdates []string
	var maxOccurrences int

	cmd := &cobra.Command{
		Use:         "expand",
		Short:       "Preview the occurrences of a recurrence rule without touching the database",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipStore: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if start == "" {
				return fmt.Errorf("--start is required")
			}
			s, err := a.parseTime("start", start, time.Time{})
			if err != nil {
				return err
			}
			f, err := a.parseTime("from", from, s)
			if err != nil {
				return err
			}
			t, err := a.parseTime("to", to, s.AddDate(1, 0, 0))
			if err != nil {
				return err
			}
			exceptions, err := a.parseTimes("exdate", exdates)
			if err != nil {
				return err
			}
			if maxOccurrences <= 0 {
				maxOccurrences = a.cfg.MaxOccurrences
			}

			ev := calendar.Event{
				Start:                s,
				End:                  s,
				RecurrenceRule:       rule,
				RecurrenceExceptions: exceptions,
			}
			for _, occ := range recurrence.Expand(ev, f, t, maxOccurrences) {
				fmt.Fprintln(cmd.OutOrStdout(), occ.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "series start")
	cmd.Flags().StringVar(&rule, "rule", "", "recurrence rule")
	cmd.Flags().StringSliceVar(&exdates, "exdate", nil, "exception dates or instants")
	cmd.Flags().StringVar(&from, "from", "", "range start (default: --start)")
	cmd.Flags().StringVar(&to, "to", "", "range end (default: one year after --start)")
	cmd.Flags().IntVar(&maxOccurrences, "max", 0, "occurrence cap (default from config)")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search [QUERY...]",
		Short: "Find events by title, category, location or notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := a.service.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No events.")
				return nil
			}
			for _, ev := range events {
				line := fmt.Sprintf("%s  %s  %s [%s]", ev.ID, ev.Start.In(a.location()).Format(timeLayout), ev.Title, ev.Category)
				if ev.IsRecurring() {
					line += " (" + ev.RecurrenceRule + ")"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import events from an ICS file, skipping duplicates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.service.ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d events.\n", res.Imported, res.Parsed)
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Export every event to an ICS file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.service.ExportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d events.\n", n)
			return nil
		},
	}
}

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup FILE",
		Short: "Write a consistent copy of the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.service.Backup(cmd.Context(), args[0])
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add sample events to an empty calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.service.SeedSampleEvents(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d sample events.\n", n)
			return nil
		},
	}
}
