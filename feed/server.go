// Package feed publishes the calendar over HTTP as a single ICS resource
// that calendar clients can subscribe to. PUT on the same resource imports
// events.
package feed

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cyp0633/wincal/calendar"
	"github.com/cyp0633/wincal/ics"
	"github.com/cyp0633/wincal/service"
	"github.com/google/uuid"
)

const (
	// HTTP headers
	headerContentType = "Content-Type"
	headerETag        = "ETag"
	headerAllow       = "Allow"

	mimeTypeCalendar = "text/calendar; charset=utf-8"
	allowedMethods   = "OPTIONS, GET, HEAD, PUT"

	// DefaultPath is where the calendar is served.
	DefaultPath = "/calendar.ics"

	// maxImportSize bounds PUT bodies.
	maxImportSize = 10 << 20
)

// Calendar is the part of service.Service the feed depends on.
type Calendar interface {
	Search(ctx context.Context, query string) ([]calendar.Event, error)
	ImportICS(ctx context.Context, r io.Reader) (service.ImportResult, error)
}

var _ Calendar = (*service.Service)(nil)

// Server serves one calendar resource.
type Server struct {
	cal      Calendar
	path     string
	readOnly bool
	logger   *slog.Logger
	now      func() time.Time
	handlers map[string]http.HandlerFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for the server
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPath changes the resource path from DefaultPath.
func WithPath(path string) Option {
	return func(s *Server) {
		if path != "" {
			s.path = path
		}
	}
}

// WithClock sets the clock used for DTSTAMP.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// ReadOnly rejects PUT.
func ReadOnly() Option {
	return func(s *Server) {
		s.readOnly = true
	}
}

// New creates a feed server.
func New(cal Calendar, opts ...Option) (*Server, error) {
	if cal == nil {
		return nil, fmt.Errorf("calendar is required")
	}

	s := &Server{
		cal:      cal,
		path:     DefaultPath,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		handlers: make(map[string]http.HandlerFunc),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.handlers[http.MethodOptions] = s.handleOptions
	s.handlers[http.MethodGet] = s.handleGet
	s.handlers[http.MethodHead] = s.handleGet
	s.handlers[http.MethodPut] = s.handlePut

	return s, nil
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != s.path {
		http.NotFound(w, r)
		return
	}
	handler, ok := s.handlers[r.Method]
	if !ok {
		w.Header().Set(headerAllow, allowedMethods)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	handler(w, r)
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(headerAllow, allowedMethods)
	w.WriteHeader(http.StatusOK)
}

// handleGet renders every event. "?format=strict" goes through the go-ical
// encoder instead of the line writer. The ETag covers event content only,
// so a changing DTSTAMP does not defeat client caching.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	events, err := s.cal.Search(r.Context(), "")
	if err != nil {
		s.logger.Error("failed to list events", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	etag := contentTag(events)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	var buf bytes.Buffer
	if r.URL.Query().Get("format") == "strict" {
		err = ics.EncodeCalendar(&buf, events, s.now())
	} else {
		err = ics.NewWriter(ics.WithClock(s.now)).Encode(&buf, events)
	}
	if err != nil {
		s.logger.Error("failed to encode calendar", "error", err)
		http.Error(w, "Internal Server Error: Failed to encode calendar", http.StatusInternalServerError)
		return
	}

	w.Header().Set(headerContentType, mimeTypeCalendar)
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.Header().Set(headerETag, etag)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	if s.readOnly {
		w.Header().Set(headerAllow, "OPTIONS, GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res, err := s.cal.ImportICS(r.Context(), http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		s.logger.Error("import failed", "error", err)
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Info("events imported over HTTP", "parsed", res.Parsed, "imported", res.Imported)
	w.Header().Set(headerContentType, "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "imported %d of %d events\n", res.Imported, res.Parsed)
}

// contentTag hashes the calendar as written with a fixed DTSTAMP. Events
// without an ID get one derived from their fingerprint, since the writer
// would otherwise mint a random UID on every call.
func contentTag(events []calendar.Event) string {
	keyed := make([]calendar.Event, len(events))
	for i, ev := range events {
		if ev.ID == uuid.Nil {
			ev.ID = uuid.NewSHA1(uuid.Nil, []byte(ev.Fingerprint()))
		}
		keyed[i] = ev
	}

	stable := ics.NewWriter(ics.WithClock(func() time.Time { return time.Unix(0, 0) }))
	sum := sha256.Sum256([]byte(stable.Write(keyed)))
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
