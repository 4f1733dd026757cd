package feed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cyp0633/wincal/calendar"
	"github.com/cyp0633/wincal/service"
	"github.com/cyp0633/wincal/storage/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stamp = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...Option) (*Server, *memory.Store) {
	t.Helper()
	ev := calendar.New("Book club", time.Date(2026, 3, 4, 19, 0, 0, 0, time.UTC), time.Date(2026, 3, 4, 21, 0, 0, 0, time.UTC))
	ev.RecurrenceRule = "FREQ=MONTHLY"
	store := memory.New(ev)

	opts = append([]Option{WithClock(func() time.Time { return stamp })}, opts...)
	srv, err := New(service.New(store), opts...)
	require.NoError(t, err)
	return srv, store
}

func TestNew_RequiresCalendar(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestHandleGet(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, DefaultPath, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, mimeTypeCalendar, w.Header().Get(headerContentType))
	assert.NotEmpty(t, w.Header().Get(headerETag))

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, body, "SUMMARY:Book club\r\n")
	assert.Contains(t, body, "RRULE:FREQ=MONTHLY\r\n")
	assert.Contains(t, body, "DTSTAMP:20260101T000000Z\r\n")
}

func TestHandleGet_Strict(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, DefaultPath+"?format=strict", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "PRODID:-//WinCalendar//EN")
	assert.Contains(t, w.Body.String(), "RRULE:FREQ=MONTHLY")
}

func TestHandleGet_ETag(t *testing.T) {
	srv, store := newTestServer(t)

	first := httptest.NewRecorder()
	srv.ServeHTTP(first, httptest.NewRequest(http.MethodGet, DefaultPath, nil))
	etag := first.Header().Get(headerETag)

	// A different clock does not change the tag.
	srv.now = func() time.Time { return stamp.Add(time.Hour) }

	req := httptest.NewRequest(http.MethodGet, DefaultPath, nil)
	req.Header.Set("If-None-Match", etag)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())

	// Changing the data does.
	require.NoError(t, store.CreateEvent(context.Background(),
		calendar.New("Extra", stamp, stamp.Add(time.Hour))))

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, etag, w.Header().Get(headerETag))
}

func TestHandleHead(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodHead, DefaultPath, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, "0", w.Header().Get("Content-Length"))
	assert.Empty(t, w.Body.String())
}

func TestHandlePut(t *testing.T) {
	srv, store := newTestServer(t)

	body := "BEGIN:VEVENT\r\nDTSTART:20260310T080000Z\r\nSUMMARY:Dentist\r\nEND:VEVENT\r\n"
	req := httptest.NewRequest(http.MethodPut, DefaultPath, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "imported 1 of 1 events\n", w.Body.String())

	events, err := store.ListEvents(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestHandlePut_ReadOnly(t *testing.T) {
	srv, _ := newTestServer(t, ReadOnly())

	req := httptest.NewRequest(http.MethodPut, DefaultPath, strings.NewReader(""))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "OPTIONS, GET, HEAD", w.Header().Get(headerAllow))
}

type failingCalendar struct{}

func (failingCalendar) Search(context.Context, string) ([]calendar.Event, error) {
	return nil, errors.New("disk on fire")
}

func (failingCalendar) ImportICS(context.Context, io.Reader) (service.ImportResult, error) {
	return service.ImportResult{}, errors.New("failed to read calendar")
}

func TestServer_Errors(t *testing.T) {
	srv, err := New(failingCalendar{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"list failure", http.MethodGet, DefaultPath, http.StatusInternalServerError},
		{"import failure", http.MethodPut, DefaultPath, http.StatusBadRequest},
		{"unknown path", http.MethodGet, "/other.ics", http.StatusNotFound},
		{"unsupported method", http.MethodDelete, DefaultPath, http.StatusMethodNotAllowed},
		{"options", http.MethodOptions, DefaultPath, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader("")))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestWithPath(t *testing.T) {
	srv, _ := newTestServer(t, WithPath("/feeds/me.ics"))

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/feeds/me.ics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, DefaultPath, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContentTag_StableWithoutIDs(t *testing.T) {
	start := time.Date(2026, 3, 4, 19, 0, 0, 0, time.UTC)
	events := []calendar.Event{{Title: "Unsaved", Start: start, End: start.Add(time.Hour)}}

	first := contentTag(events)
	assert.Equal(t, first, contentTag(events))
	assert.Equal(t, uuid.Nil, events[0].ID)

	renamed := []calendar.Event{{Title: "Renamed", Start: start, End: start.Add(time.Hour)}}
	assert.NotEqual(t, first, contentTag(renamed))
}
