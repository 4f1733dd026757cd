package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cyp0633/wincal/calendar"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// ErrMissingStart is returned by FromComponent for events without DTSTART.
var ErrMissingStart = errors.New("event has no DTSTART")

// ToComponent converts ev to a go-ical event. All-day events are written
// with VALUE=DATE; the rule is copied verbatim.
func ToComponent(ev calendar.Event, stamp time.Time) *ical.Event {
	e := ical.NewEvent()

	id := ev.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	e.Props.SetText(ical.PropUID, id.String())
	e.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	if ev.AllDay {
		e.Props.SetDate(ical.PropDateTimeStart, ev.Start)
		e.Props.SetDate(ical.PropDateTimeEnd, ev.End)
	} else {
		e.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
		e.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
	}

	e.Props.SetText(ical.PropSummary, ev.Title)
	if strings.TrimSpace(ev.Notes) != "" {
		e.Props.SetText(ical.PropDescription, ev.Notes)
	}
	if strings.TrimSpace(ev.Location) != "" {
		e.Props.SetText(ical.PropLocation, ev.Location)
	}
	if strings.TrimSpace(ev.Category) != "" {
		e.Props.SetText(ical.PropCategories, ev.Category)
	}

	// RRULE is a RECUR value; SetText would escape its separators.
	if rule := strings.TrimSpace(ev.RecurrenceRule); rule != "" {
		prop := ical.NewProp(ical.PropRecurrenceRule)
		prop.Value = rule
		e.Props.Set(prop)
	}
	if len(ev.RecurrenceExceptions) > 0 {
		prop := ical.NewProp(ical.PropExceptionDates)
		prop.Value = formatDateList(ev.RecurrenceExceptions)
		e.Props.Set(prop)
	}

	return e
}

// FromComponent converts a go-ical VEVENT to an event with the same
// defaults as Parse: a missing end is start plus one hour, a foreign UID is
// replaced and a blank category becomes calendar.DefaultCategory.
func FromComponent(comp *ical.Component) (calendar.Event, error) {
	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return calendar.Event{}, ErrMissingStart
	}
	start, err := startProp.DateTime(time.UTC)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("invalid DTSTART: %w", err)
	}

	ev := calendar.Event{
		Start:    start,
		End:      start.Add(time.Hour),
		AllDay:   strings.EqualFold(startProp.Params.Get(ical.ParamValue), string(ical.ValueDate)),
		Category: calendar.DefaultCategory,
	}

	if comp.Props.Get(ical.PropDateTimeEnd) != nil || comp.Props.Get(ical.PropDuration) != nil {
		end, err := (&ical.Event{Component: comp}).DateTimeEnd(time.UTC)
		if err == nil && !end.Before(start) {
			ev.End = end
		}
	}

	uid, _ := comp.Props.Text(ical.PropUID)
	ev.ID = parseUID(uid)

	if ev.Title, err = comp.Props.Text(ical.PropSummary); err != nil {
		return calendar.Event{}, fmt.Errorf("invalid SUMMARY: %w", err)
	}
	if ev.Notes, err = comp.Props.Text(ical.PropDescription); err != nil {
		return calendar.Event{}, fmt.Errorf("invalid DESCRIPTION: %w", err)
	}
	if ev.Location, err = comp.Props.Text(ical.PropLocation); err != nil {
		return calendar.Event{}, fmt.Errorf("invalid LOCATION: %w", err)
	}
	if category, err := comp.Props.Text(ical.PropCategories); err == nil && strings.TrimSpace(category) != "" {
		ev.Category = category
	}

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
		ev.RecurrenceRule = strings.TrimSpace(prop.Value)
	}
	var exdates []string
	for _, prop := range comp.Props[ical.PropExceptionDates] {
		exdates = append(exdates, prop.Value)
	}
	ev.RecurrenceExceptions = parseDateList(exdates)

	return ev, nil
}

// EncodeCalendar writes events as a single VCALENDAR through go-ical's
// encoder, which validates the output.
func EncodeCalendar(w io.Writer, events []calendar.Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	for _, ev := range events {
		cal.Children = append(cal.Children, ToComponent(ev, stamp).Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// DecodeCalendar reads every VCALENDAR in r with go-ical's strict decoder.
// Events that cannot be converted are skipped, as in Parse; malformed
// calendar syntax is an error.
func DecodeCalendar(r io.Reader) ([]calendar.Event, error) {
	dec := ical.NewDecoder(r)

	var events []calendar.Event
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}
		for _, e := range cal.Events() {
			ev, err := FromComponent(e.Component)
			if err != nil {
				continue
			}
			events = append(events, ev)
		}
	}
	return events, nil
}
