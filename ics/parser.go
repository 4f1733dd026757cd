package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cyp0633/wincal/calendar"
	"github.com/google/uuid"
)

// record is one VEVENT's properties. Parameters are discarded and the last
// occurrence of a property wins, except EXDATE which accumulates.
type record struct {
	fields  map[string]string
	exdates []string
}

// Parse extracts the events of every VEVENT block in text. Blocks without
// a usable DTSTART are dropped. Components nested inside a VEVENT, such as
// VALARM, are skipped.
func Parse(text string) []calendar.Event {
	var (
		events  []calendar.Event
		current *record
		nested  int
	)

	for _, line := range Unfold(text) {
		name, value, ok := splitContentLine(line)
		if !ok {
			continue
		}

		switch name {
		case "BEGIN":
			switch {
			case strings.EqualFold(strings.TrimSpace(value), "VEVENT"):
				current = &record{fields: make(map[string]string)}
				nested = 0
			case current != nil:
				nested++
			}
			continue
		case "END":
			switch {
			case current == nil:
			case nested > 0:
				nested--
			case strings.EqualFold(strings.TrimSpace(value), "VEVENT"):
				if ev, ok := current.event(); ok {
					events = append(events, ev)
				}
				current = nil
			}
			continue
		}

		if current == nil || nested > 0 {
			continue
		}
		if name == "EXDATE" {
			current.exdates = append(current.exdates, value)
			continue
		}
		current.fields[name] = value
	}

	if events == nil {
		return []calendar.Event{}
	}
	return events
}

// Decode reads all of r and parses it. Only read errors are returned.
func Decode(r io.Reader) ([]calendar.Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar: %w", err)
	}
	return Parse(string(data)), nil
}

// splitContentLine splits "NAME;PARAM=x:VALUE" into an uppercase name and
// the raw value.
func splitContentLine(line string) (string, string, bool) {
	head, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	name, _, _ := strings.Cut(head, ";")
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return "", "", false
	}
	return name, value, true
}

func (r *record) event() (calendar.Event, bool) {
	startRaw, ok := r.fields["DTSTART"]
	if !ok {
		return calendar.Event{}, false
	}
	start, err := ParseDateTime(startRaw).Get()
	if err != nil {
		return calendar.Event{}, false
	}

	end := start.Add(time.Hour)
	if endRaw, ok := r.fields["DTEND"]; ok {
		end = ParseDateTime(endRaw).OrElse(end)
	}

	category := calendar.DefaultCategory
	if raw := r.fields["CATEGORIES"]; strings.TrimSpace(raw) != "" {
		category = Unescape(raw)
	}

	return calendar.Event{
		ID:                   parseUID(r.fields["UID"]),
		Title:                Unescape(r.fields["SUMMARY"]),
		Start:                start,
		End:                  end,
		AllDay:               isDateOnly(startRaw),
		Category:             category,
		Location:             Unescape(r.fields["LOCATION"]),
		Notes:                Unescape(r.fields["DESCRIPTION"]),
		RecurrenceRule:       strings.TrimSpace(r.fields["RRULE"]),
		RecurrenceExceptions: parseDateList(r.exdates),
	}, true
}

// parseUID keeps a foreign identifier when it is a UUID and mints a new one
// otherwise.
func parseUID(raw string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.New()
	}
	return id
}

func parseDateList(values []string) []time.Time {
	var out []time.Time
	for _, value := range values {
		for _, raw := range strings.Split(value, ",") {
			if t, err := ParseDateTime(raw).Get(); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}
