/*
Package ics reads and writes events as iCalendar-style text.

The line codec (Write, Parse) is deliberately forgiving: blocks that cannot
be mapped to an event are dropped rather than failing the whole batch, and
identifiers, end times and categories fall back to defaults. Callers that
need to detect dropped blocks can compare input and output counts.

	text := ics.Write(events)
	parsed := ics.Parse(text)

Recurrence rules are carried verbatim in RRULE; the codec never interprets
them. Exception dates are written as a single EXDATE line per event.

For strict RFC 5545 interop the package also bridges to go-ical components
(ToComponent, FromComponent, EncodeCalendar, DecodeCalendar).
*/
package ics
