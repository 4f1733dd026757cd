package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cyp0633/wincal/calendar"
	"github.com/google/uuid"
)

// ProductID identifies this application in exported calendars.
const ProductID = "-//WinCalendar//EN"

// Writer serializes events. The zero value is not usable; use NewWriter.
type Writer struct {
	now    func() time.Time
	prodID string
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithClock sets the clock used for DTSTAMP.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// WithProductID overrides the PRODID written in the envelope.
func WithProductID(id string) WriterOption {
	return func(w *Writer) {
		if strings.TrimSpace(id) != "" {
			w.prodID = id
		}
	}
}

// NewWriter creates a Writer stamping events with the current time.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{
		now:    time.Now,
		prodID: ProductID,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write serializes events with a default Writer.
func Write(events []calendar.Event) string {
	return NewWriter().Write(events)
}

// Encode writes events to out with a default Writer.
func Encode(out io.Writer, events []calendar.Event) error {
	return NewWriter().Encode(out, events)
}

// Write returns the calendar text for events, in the given order.
func (w *Writer) Write(events []calendar.Event) string {
	var b strings.Builder
	w.write(&b, events)
	return b.String()
}

// Encode writes the calendar text for events to out.
func (w *Writer) Encode(out io.Writer, events []calendar.Event) error {
	if _, err := io.WriteString(out, w.Write(events)); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	return nil
}

func (w *Writer) write(b *strings.Builder, events []calendar.Event) {
	line := func(name, value string) {
		b.WriteString(Fold(name + ":" + value))
		b.WriteString("\r\n")
	}
	optional := func(name, value string) {
		if strings.TrimSpace(value) != "" {
			line(name, Escape(value))
		}
	}

	line("BEGIN", "VCALENDAR")
	line("VERSION", "2.0")
	line("PRODID", w.prodID)

	stamp := FormatDateTime(w.now())
	for _, ev := range events {
		id := ev.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		line("BEGIN", "VEVENT")
		line("UID", id.String())
		line("DTSTAMP", stamp)
		line("DTSTART", FormatDateTime(ev.Start))
		line("DTEND", FormatDateTime(ev.End))
		line("SUMMARY", Escape(ev.Title))
		optional("DESCRIPTION", ev.Notes)
		optional("LOCATION", ev.Location)
		optional("CATEGORIES", ev.Category)
		if rule := strings.TrimSpace(ev.RecurrenceRule); rule != "" {
			line("RRULE", rule)
		}
		if len(ev.RecurrenceExceptions) > 0 {
			line("EXDATE", formatDateList(ev.RecurrenceExceptions))
		}
		line("END", "VEVENT")
	}

	line("END", "VCALENDAR")
}

func formatDateList(times []time.Time) string {
	values := make([]string, len(times))
	for i, t := range times {
		values[i] = FormatDateTime(t)
	}
	return strings.Join(values, ",")
}
